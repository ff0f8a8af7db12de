package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/pos/internal/catalog"
	"github.com/JonMunkholm/pos/internal/schema"
)

// DefaultImportTimeout bounds one commit.
const DefaultImportTimeout = 10 * time.Minute

// ServiceConfig tunes a Service. Zero values select defaults.
type ServiceConfig struct {
	Encoding      string        // default input encoding for CSV
	PreviewRows   int           // preview cap when the caller passes none
	MaxConcurrent int           // parallel commits
	MaxWait       time.Duration // wait for a commit slot
	Timeout       time.Duration // per-commit timeout
}

// Upload is a product file handed to the service.
type Upload struct {
	Name     string    // file name, used to pick CSV or XLSX
	Body     io.Reader
	Encoding string    // overrides the service default when set
}

var (
	// ErrNoFile is returned when an upload carries no body.
	ErrNoFile = errors.New("no file provided")

	// ErrUnknownDialect is returned for a dialect name that is not registered.
	ErrUnknownDialect = errors.New("unknown dialect")
)

// Service is the entry point used by the HTTP server and the CLI.
type Service struct {
	store    catalog.Store
	registry *schema.Registry
	importer *Importer
	limiter  *ImportLimiter
	cfg      ServiceConfig
}

// NewService wires an importer and limiter around store.
func NewService(store catalog.Store, reg *schema.Registry, cfg ServiceConfig) *Service {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}
	return &Service{
		store:    store,
		registry: reg,
		importer: NewImporter(reg, store),
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		cfg:      cfg,
	}
}

// Dialects lists the configured dialects in detection order, fallback last.
func (s *Service) Dialects() []schema.Dialect {
	return s.registry.All()
}

func (s *Service) open(u Upload) (Source, error) {
	if u.Body == nil {
		return nil, ErrNoFile
	}
	enc := u.Encoding
	if enc == "" {
		enc = s.cfg.Encoding
	}
	return OpenSource(u.Name, u.Body, enc)
}

// Preview reads the head of u without writing.
func (s *Service) Preview(ctx context.Context, u Upload, opts PreviewOptions) (*Outcome, error) {
	src, err := s.open(u)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if opts.Limit <= 0 {
		opts.Limit = s.cfg.PreviewRows
	}
	return s.importer.Preview(ctx, src, opts)
}

// Import commits u. Only MaxConcurrent imports run at once; the others wait
// up to MaxWait and then fail with ErrTooManyImports.
func (s *Service) Import(ctx context.Context, u Upload, opts CommitOptions) (*CommitResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	src, err := s.open(u)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if opts.FileName == "" {
		opts.FileName = u.Name
	}
	return s.importer.Commit(ctx, src, opts)
}

// Products lists catalog products ordered by name.
func (s *Service) Products(ctx context.Context, includeInactive bool) ([]catalog.Product, error) {
	return s.store.List(ctx, catalog.ListOptions{IncludeInactive: includeInactive})
}

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Export writes the catalog to w as CSV or XLSX.
func (s *Service) Export(ctx context.Context, w io.Writer, format string, includeInactive bool) error {
	products, err := s.Products(ctx, includeInactive)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	switch strings.ToLower(format) {
	case "", FormatCSV:
		return catalog.WriteCSV(w, products)
	case FormatXLSX:
		return catalog.WriteXLSX(w, products)
	default:
		return fmt.Errorf("%w: export as %q", ErrUnsupportedFormat, format)
	}
}

// Template writes the import template of the named dialect; "" selects
// the generic dialect.
func (s *Service) Template(w io.Writer, dialect string) error {
	if dialect == "" {
		dialect = schema.GenericName
	}
	d, ok := s.registry.Get(dialect)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDialect, dialect)
	}
	return WriteTemplate(w, d)
}

// History returns the most recent import runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]catalog.ImportRun, error) {
	return s.store.ListImports(ctx, limit)
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// Drain waits for running imports to finish. Used on shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks the catalog connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
