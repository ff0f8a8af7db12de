// Package application wires the back office together from configuration:
// catalog store, dialect registry, import service, backups and the
// cash-drawer session. Both the HTTP server and the CLI build on it.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/pos/internal/backup"
	"github.com/JonMunkholm/pos/internal/catalog"
	"github.com/JonMunkholm/pos/internal/config"
	"github.com/JonMunkholm/pos/internal/core"
	"github.com/JonMunkholm/pos/internal/schema"
	"github.com/JonMunkholm/pos/internal/session"
)

// Application holds the constructed services. Backups and Scheduler are nil
// for PostgreSQL catalogs.
type Application struct {
	Config    *config.Config
	Store     catalog.Store
	Registry  *schema.Registry
	Service   *core.Service
	Backups   *backup.Manager
	Scheduler *backup.Scheduler
	Sessions  *session.Manager
}

// New opens the catalog and builds every service from cfg.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	reg, err := newRegistry(cfg.Import.DialectsFile)
	if err != nil {
		return nil, err
	}

	store, err := catalog.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	app := &Application{
		Config:   cfg,
		Store:    store,
		Registry: reg,
		Service: core.NewService(store, reg, core.ServiceConfig{
			Encoding:      cfg.Import.Encoding,
			PreviewRows:   cfg.Import.PreviewRows,
			MaxConcurrent: cfg.Import.MaxConcurrent,
			MaxWait:       cfg.Import.MaxWaitTime,
			Timeout:       cfg.Import.Timeout,
		}),
		Sessions: session.NewManager(cfg.Session.File, cfg.Session.LogoutFlag),
	}

	if sqlite, ok := store.(*catalog.SQLiteStore); ok {
		app.Backups, err = backup.NewManager(sqlite, cfg.Backup.Dir, cfg.Backup.SettingsFile)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("backup manager: %w", err)
		}
		app.Scheduler = backup.NewScheduler(app.Backups)

		if cfg.Backup.S3Bucket != "" {
			up, err := backup.NewS3Uploader(ctx, backup.S3Options{
				Bucket:   cfg.Backup.S3Bucket,
				Prefix:   cfg.Backup.S3Prefix,
				Region:   cfg.Backup.S3Region,
				Endpoint: cfg.Backup.S3Endpoint,
			})
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("offsite backups: %w", err)
			}
			app.Backups.SetUploader(up)
			slog.Info("offsite backups enabled", "bucket", cfg.Backup.S3Bucket, "prefix", cfg.Backup.S3Prefix)
		}
	} else {
		slog.Info("backups disabled", "reason", "catalog is not a local SQLite file")
	}

	return app, nil
}

func newRegistry(dialectsFile string) (*schema.Registry, error) {
	if dialectsFile == "" {
		return schema.NewRegistry()
	}
	custom, err := schema.LoadDialects(dialectsFile)
	if err != nil {
		return nil, fmt.Errorf("load dialects: %w", err)
	}
	slog.Info("custom dialects loaded", "file", dialectsFile, "count", len(custom))
	return schema.NewRegistry(custom...)
}

// RequireBackups returns the backup manager or backup.ErrUnsupported.
func (a *Application) RequireBackups() (*backup.Manager, error) {
	if a.Backups == nil {
		return nil, backup.ErrUnsupported
	}
	return a.Backups, nil
}

// StartScheduler runs automatic backups until ctx is cancelled. It is a
// no-op without a backup manager.
func (a *Application) StartScheduler(ctx context.Context) {
	if a.Scheduler == nil {
		return
	}
	go a.Scheduler.Run(ctx, a.Config.Backup.CheckInterval)
}

// Close waits for running imports up to ctx's deadline, then closes the
// catalog.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if status := a.Service.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for imports to complete", "active", status.Active)
		if err := a.Service.Drain(ctx); err != nil {
			errs = append(errs, fmt.Errorf("imports did not complete: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close catalog: %w", err))
	}
	return errors.Join(errs...)
}
