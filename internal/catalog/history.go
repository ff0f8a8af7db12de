package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportRun records the outcome of one committed import.
type ImportRun struct {
	ID             uuid.UUID `json:"id"`
	FileName       string    `json:"file_name"`
	Dialect        string    `json:"dialect"`
	UpdateExisting bool      `json:"update_existing"`
	Created        int       `json:"created"`
	Updated        int       `json:"updated"`
	Skipped        int       `json:"skipped"`
	ErrorCount     int       `json:"error_count"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// defaultHistoryLimit bounds ListImports when the caller passes no limit.
const defaultHistoryLimit = 50

// historyTimeLayout is fixed width so text ordering matches time ordering.
const historyTimeLayout = "2006-01-02 15:04:05.000000"

func (s *SQLiteStore) RecordImport(ctx context.Context, run ImportRun) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.conn.ExecContext(ctx, `
INSERT INTO import_runs (id, file_name, dialect, update_existing, created, updated, skipped,
                         error_count, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.FileName, run.Dialect, boolInt(run.UpdateExisting),
		run.Created, run.Updated, run.Skipped, run.ErrorCount,
		run.StartedAt.UTC().Format(historyTimeLayout), run.FinishedAt.UTC().Format(historyTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
SELECT id, file_name, dialect, update_existing, created, updated, skipped, error_count,
       started_at, finished_at
FROM import_runs
ORDER BY started_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRun
	for rows.Next() {
		var (
			run               ImportRun
			id                string
			fileName          sql.NullString
			update            sql.NullBool
			started, finished string
		)
		if err := rows.Scan(&id, &fileName, &run.Dialect, &update, &run.Created, &run.Updated,
			&run.Skipped, &run.ErrorCount, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("import run id %q: %w", id, err)
		}
		run.ID = parsed
		run.FileName = fileName.String
		run.UpdateExisting = update.Bool
		run.StartedAt = parseSQLiteTime(started)
		run.FinishedAt = parseSQLiteTime(finished)
		out = append(out, run)
	}
	return out, rows.Err()
}
