package core

// importer.go drives an import run: detect the dialect, resolve columns,
// clean and validate every row, then either report (Preview) or persist
// (Commit).
//
// Neither mode stops on a bad row. Row problems are collected and the run
// moves on; only a file-level problem (no header, no name column) ends a
// run before its rows are read.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pos/internal/catalog"
	"github.com/JonMunkholm/pos/internal/logging"
	"github.com/JonMunkholm/pos/internal/schema"
)

// File-level error messages.
const (
	MsgNoNameColumn = "Could not find product name column"
	msgReadError    = "Error reading CSV file"
	msgCancelled    = "Import cancelled"
)

// PreviewOptions controls a preview.
type PreviewOptions struct {
	// Limit caps the number of candidates; zero means DefaultPreviewRows.
	Limit int

	// UpdateExisting predicts update instead of skip for matched rows.
	UpdateExisting bool
}

// Importer turns product files into catalog writes. It holds no per-run
// state and is safe for concurrent use.
type Importer struct {
	registry *schema.Registry
	store    catalog.Store
	now      func() time.Time
}

// NewImporter returns an importer detecting dialects from reg. store may be
// nil for preview-only use; Commit then fails.
func NewImporter(reg *schema.Registry, store catalog.Store) *Importer {
	return &Importer{
		registry: reg,
		store:    store,
		now:      time.Now,
	}
}

// run is the per-file state shared by Preview and Commit.
type run struct {
	id         uuid.UUID
	dialect    schema.Dialect
	headers    []string
	resolution Resolution
}

// open reads the header and resolves columns. A non-empty message is a
// file-level error.
func (im *Importer) open(src Source) (*run, string) {
	r := &run{id: uuid.New(), dialect: im.registry.Fallback()}

	headers, err := src.Header()
	if err != nil {
		return r, fmt.Sprintf("%s: %v", msgReadError, err)
	}
	r.headers = headers
	r.dialect = DetectDialect(im.registry, headers)
	r.resolution = ResolveFields(r.dialect, headers)

	if _, ok := r.resolution.Column(schema.FieldName); !ok {
		return r, MsgNoNameColumn
	}
	return r, ""
}

// Preview reads at most opts.Limit candidates and writes nothing. When a
// store is configured each valid candidate is annotated with the action a
// commit would take.
//
// The returned error is non-nil only when ctx is cancelled; every other
// problem is reported in the outcome.
func (im *Importer) Preview(ctx context.Context, src Source, opts PreviewOptions) (*Outcome, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPreviewRows
	}

	r, fileErr := im.open(src)
	out := &Outcome{
		RunID:      r.id,
		Dialect:    r.dialect.Name,
		Headers:    r.headers,
		Columns:    columnNames(r.resolution, r.headers),
		Candidates: []Candidate{},
	}
	if fileErr != "" {
		out.Errors = append(out.Errors, fileErr)
		return out, nil
	}

	var planner *planner
	if im.store != nil {
		planner = newPlanner(im.store, opts.UpdateExisting)
	}

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", msgReadError, err))
			break
		}
		if len(out.Candidates) >= limit {
			out.Truncated = true
			break
		}

		c := buildCandidate(row, r.resolution)
		if planner != nil && c.Valid() {
			planner.annotate(ctx, &c)
		}
		out.Candidates = append(out.Candidates, c)
	}

	out.Summary = summarize(out.Candidates)
	logging.WithFields(ctx, "run_id", r.id, "dialect", r.dialect.Name).Debug("import previewed",
		"candidates", out.Summary.Candidates,
		"invalid", out.Summary.Invalid,
		"truncated", out.Truncated,
	)
	return out, nil
}

func summarize(cands []Candidate) PreviewSummary {
	s := PreviewSummary{Candidates: len(cands)}
	for i := range cands {
		if !cands[i].Valid() {
			s.Invalid++
			continue
		}
		s.Valid++
		switch cands[i].Action {
		case ActionCreate:
			s.Create++
		case ActionUpdate:
			s.Update++
		case ActionSkip:
			s.Skip++
		}
	}
	return s
}

// Commit processes every row and writes valid candidates to the store.
//
// A matched product (by barcode, then by case-insensitive name) is updated
// when opts.UpdateExisting is set and skipped otherwise; unmatched rows are
// created as active products. A failed write is recorded as a row error and
// the next row is processed. The run is recorded in the import history.
//
// The returned error is non-nil only when ctx is cancelled. The result then
// holds the counts reached before cancellation.
func (im *Importer) Commit(ctx context.Context, src Source, opts CommitOptions) (*CommitResult, error) {
	if im.store == nil {
		return nil, errors.New("importer: commit requires a catalog store")
	}

	start := im.now()
	r, fileErr := im.open(src)
	res := &CommitResult{RunID: r.id, Dialect: r.dialect.Name, Errors: []string{}}
	log := logging.WithFields(ctx, "run_id", r.id, "dialect", r.dialect.Name)

	var runErr error
	if fileErr != "" {
		res.Errors = append(res.Errors, fileErr)
	} else {
		runErr = im.commitRows(ctx, src, r, opts, res, log)
	}

	res.Duration = im.now().Sub(start)
	im.record(ctx, r, opts, res, start, log)

	log.Info("import committed",
		"file", opts.FileName,
		"created", res.Created,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"invalid", res.Invalid,
		"errors", len(res.Errors),
		"duration", res.Duration,
	)
	return res, runErr
}

func (im *Importer) commitRows(ctx context.Context, src Source, r *run, opts CommitOptions, res *CommitResult, log *slog.Logger) error {
	w := newWriter(im.store, opts.UpdateExisting)

	for n := 0; ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", msgCancelled, err))
				return err
			}
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", msgReadError, err))
			return nil
		}

		c := buildCandidate(row, r.resolution)
		if !c.Valid() {
			res.Invalid++
			for _, msg := range c.Errors {
				res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", c.Line, msg))
			}
			continue
		}

		action, err := w.apply(ctx, &c)
		if err != nil {
			log.Warn("row write failed", "line", c.Line, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Error processing - %v", c.Line, err))
			continue
		}
		switch action {
		case ActionCreate:
			res.Created++
		case ActionUpdate:
			res.Updated++
		case ActionSkip:
			res.Skipped++
		}
	}
}

// record stores the run in the import history. History is best effort: a
// failure is logged and does not change the result.
func (im *Importer) record(ctx context.Context, r *run, opts CommitOptions, res *CommitResult, start time.Time, log *slog.Logger) {
	entry := catalog.ImportRun{
		ID:             r.id,
		FileName:       opts.FileName,
		Dialect:        r.dialect.Name,
		UpdateExisting: opts.UpdateExisting,
		Created:        res.Created,
		Updated:        res.Updated,
		Skipped:        res.Skipped,
		ErrorCount:     len(res.Errors),
		StartedAt:      start,
		FinishedAt:     start.Add(res.Duration),
	}
	if err := im.store.RecordImport(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("failed to record import history", "error", err)
	}
}
