package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price DOUBLE PRECISION NOT NULL,
  barcode TEXT UNIQUE,
  category TEXT,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  supplier TEXT,
  cost_price DOUBLE PRECISION DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products (lower(btrim(name)));
CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);

CREATE TABLE IF NOT EXISTS import_runs (
  id UUID PRIMARY KEY,
  file_name TEXT,
  dialect TEXT NOT NULL,
  update_existing BOOLEAN NOT NULL DEFAULT FALSE,
  created INTEGER NOT NULL DEFAULT 0,
  updated INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  error_count INTEGER NOT NULL DEFAULT 0,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL
);
`

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// PoolOptions tunes the pgx connection pool.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to url, verifies the connection and ensures the
// schema exists.
func OpenPostgres(ctx context.Context, url string, opts PoolOptions) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns >= 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+productColumns+`
FROM products
WHERE barcode = $1 AND is_active`, barcode)

	p, err := scanPgProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by barcode: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if !opts.IncludeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name, id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanPgProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, p *Product) error {
	err := s.pool.QueryRow(ctx, `
INSERT INTO products (name, description, price, barcode, category, stock_quantity,
                      is_active, supplier, cost_price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at, updated_at`,
		p.Name, toPgText(p.Description), p.Price, barcodeText(p.Barcode), toPgText(p.Category),
		p.Stock, p.Active, toPgText(p.Supplier), p.CostPrice,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return pgWriteError("create product", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *Product) error {
	err := s.pool.QueryRow(ctx, `
UPDATE products
SET name = $1, description = $2, price = $3, barcode = $4, category = $5,
    stock_quantity = $6, is_active = $7, supplier = $8, cost_price = $9, updated_at = now()
WHERE id = $10
RETURNING updated_at`,
		p.Name, toPgText(p.Description), p.Price, barcodeText(p.Barcode), toPgText(p.Category),
		p.Stock, p.Active, toPgText(p.Supplier), p.CostPrice, p.ID,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return pgWriteError("update product", err)
	}
	return nil
}

func (s *PostgresStore) RecordImport(ctx context.Context, run ImportRun) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO import_runs (id, file_name, dialect, update_existing, created, updated, skipped,
                         error_count, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgtype.UUID{Bytes: run.ID, Valid: true}, toPgText(run.FileName), run.Dialect,
		run.UpdateExisting, run.Created, run.Updated, run.Skipped, run.ErrorCount,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, file_name, dialect, update_existing, created, updated, skipped, error_count,
       started_at, finished_at
FROM import_runs
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRun
	for rows.Next() {
		var (
			run      ImportRun
			id       pgtype.UUID
			fileName pgtype.Text
		)
		if err := rows.Scan(&id, &fileName, &run.Dialect, &run.UpdateExisting, &run.Created,
			&run.Updated, &run.Skipped, &run.ErrorCount, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.ID = id.Bytes
		run.FileName = fileName.String
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanPgProduct(row pgx.Row) (*Product, error) {
	var (
		p                     Product
		description, category pgtype.Text
		barcode, supplier     pgtype.Text
		costPrice             pgtype.Float8
	)
	err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &barcode, &category, &p.Stock,
		&p.Active, &supplier, &costPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Category = category.String
	p.Supplier = supplier.String
	p.CostPrice = costPrice.Float64
	if barcode.Valid {
		b := barcode.String
		p.Barcode = &b
	}
	return &p, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func barcodeText(b *string) pgtype.Text {
	if b == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *b, Valid: true}
}

func pgWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicateBarcode)
	}
	return fmt.Errorf("%s: %w", op, err)
}
