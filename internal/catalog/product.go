// Package catalog stores the POS product catalog.
//
// Two backends implement Store: SQLite (the default single-till setup) and
// PostgreSQL for shops that share one catalog between several tills.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no active product matches a lookup.
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateBarcode is returned when a write would reuse a barcode.
	ErrDuplicateBarcode = errors.New("barcode already in use")
)

// Product is one sellable catalog item.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Barcode     *string   `json:"barcode,omitempty"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock_quantity"`
	CostPrice   float64   `json:"cost_price"`
	Supplier    string    `json:"supplier,omitempty"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BarcodeValue returns the barcode or "" when absent.
func (p *Product) BarcodeValue() string {
	if p.Barcode == nil {
		return ""
	}
	return *p.Barcode
}

// ListOptions filters List results.
type ListOptions struct {
	IncludeInactive bool
}

// Store is the persistence sink for products. Lookups only consider active
// products.
type Store interface {
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	RecordImport(ctx context.Context, run ImportRun) error
	ListImports(ctx context.Context, limit int) ([]ImportRun, error)
	Ping(ctx context.Context) error
	Close() error
}

// NameKey normalizes a product name for exact, case-insensitive matching.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NameIndex maps NameKey(name) to the first product carrying that name.
// Products are indexed in the order given, so an earlier product wins.
type NameIndex map[string]*Product

// IndexByName builds a NameIndex over products.
func IndexByName(products []Product) NameIndex {
	idx := make(NameIndex, len(products))
	for i := range products {
		idx.Add(&products[i])
	}
	return idx
}

// Add indexes p unless its name is already taken.
func (idx NameIndex) Add(p *Product) {
	key := NameKey(p.Name)
	if _, exists := idx[key]; !exists {
		idx[key] = p
	}
}

// Lookup returns the product whose name matches name, or nil.
func (idx NameIndex) Lookup(name string) *Product {
	return idx[NameKey(name)]
}
