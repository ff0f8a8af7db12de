package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT,
  price REAL NOT NULL,
  barcode TEXT UNIQUE,
  category TEXT,
  stock_quantity INTEGER DEFAULT 0,
  is_active BOOLEAN DEFAULT 1,
  supplier TEXT,
  cost_price REAL DEFAULT 0.0,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

CREATE TABLE IF NOT EXISTS import_runs (
  id TEXT PRIMARY KEY,
  file_name TEXT,
  dialect TEXT NOT NULL,
  update_existing BOOLEAN NOT NULL DEFAULT 0,
  created INTEGER NOT NULL DEFAULT 0,
  updated INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  error_count INTEGER NOT NULL DEFAULT 0,
  started_at TIMESTAMP NOT NULL,
  finished_at TIMESTAMP NOT NULL
);
`

const productColumns = `id, name, description, price, barcode, category, stock_quantity,
       is_active, supplier, cost_price, created_at, updated_at`

// sqliteTimeLayout matches SQLite's CURRENT_TIMESTAMP.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLiteStore is a Store backed by a single SQLite file.
//
// The mutex guards the connection so Replace can swap the database file
// underneath running requests.
type SQLiteStore struct {
	mu   sync.RWMutex
	conn *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (and creates if needed) the catalog at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	s := &SQLiteStore{path: path, now: time.Now}
	conn, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; WAL lets readers proceed alongside it.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return conn, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.PingContext(ctx)
}

func (s *SQLiteStore) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRowContext(ctx, `
SELECT `+productColumns+`
FROM products
WHERE barcode = ? AND is_active = 1`, barcode)

	p, err := scanSQLiteProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by barcode: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + productColumns + ` FROM products`
	if !opts.IncludeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanSQLiteProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, p *Product) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC().Truncate(time.Second)
	res, err := s.conn.ExecContext(ctx, `
INSERT INTO products (name, description, price, barcode, category, stock_quantity,
                      is_active, supplier, cost_price, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, nullString(p.Barcode), p.Category, p.Stock,
		boolInt(p.Active), p.Supplier, p.CostPrice,
		now.Format(sqliteTimeLayout), now.Format(sqliteTimeLayout),
	)
	if err != nil {
		return sqliteWriteError("create product", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, p *Product) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC().Truncate(time.Second)
	res, err := s.conn.ExecContext(ctx, `
UPDATE products
SET name = ?, description = ?, price = ?, barcode = ?, category = ?, stock_quantity = ?,
    is_active = ?, supplier = ?, cost_price = ?, updated_at = ?
WHERE id = ?`,
		p.Name, p.Description, p.Price, nullString(p.Barcode), p.Category, p.Stock,
		boolInt(p.Active), p.Supplier, p.CostPrice, now.Format(sqliteTimeLayout), p.ID,
	)
	if err != nil {
		return sqliteWriteError("update product", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = now
	return nil
}

// Snapshot writes a consistent copy of the database to dest.
func (s *SQLiteStore) Snapshot(ctx context.Context, dest string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.conn.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}
	return nil
}

// Replace swaps the live database for the SQLite file at src. Requests block
// until the new file is open.
func (s *SQLiteStore) Replace(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", suffix, err)
		}
	}

	copyErr := copyFile(src, s.path)

	// Reopen even if the copy failed so the store stays usable.
	conn, err := openSQLite(s.path)
	if err != nil {
		return fmt.Errorf("reopen database: %w", err)
	}
	s.conn = conn

	if copyErr != nil {
		return fmt.Errorf("replace database: %w", copyErr)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".restore"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProduct(row rowScanner) (*Product, error) {
	var (
		p                     Product
		description, category sql.NullString
		barcode, supplier     sql.NullString
		costPrice             sql.NullFloat64
		stock                 sql.NullInt64
		active                sql.NullBool
		createdAt, updatedAt  sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &barcode, &category, &stock,
		&active, &supplier, &costPrice, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Category = category.String
	p.Supplier = supplier.String
	p.CostPrice = costPrice.Float64
	p.Stock = int(stock.Int64)
	p.Active = !active.Valid || active.Bool
	if barcode.Valid {
		b := barcode.String
		p.Barcode = &b
	}
	p.CreatedAt = parseSQLiteTime(createdAt.String)
	p.UpdatedAt = parseSQLiteTime(updatedAt.String)
	return &p, nil
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{sqliteTimeLayout, historyTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteWriteError(op string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed: products.barcode") {
		return fmt.Errorf("%s: %w", op, ErrDuplicateBarcode)
	}
	return fmt.Errorf("%s: %w", op, err)
}
