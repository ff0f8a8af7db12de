package catalog

import (
	"context"

	"github.com/JonMunkholm/pos/internal/config"
)

// Open returns the Store selected by cfg.URL: a pgx pool for postgres URLs,
// otherwise a SQLite file at that path.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	if cfg.IsPostgres() {
		return OpenPostgres(ctx, cfg.URL, PoolOptions{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
	}
	return OpenSQLite(cfg.URL)
}
