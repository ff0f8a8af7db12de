// Package schema holds the header dialects the product importer understands.
//
// A Dialect names the export tool that produced a file (WooCommerce, Shopify,
// a hand-made sheet) and lists, per semantic field, the header spellings that
// tool uses. Alias order encodes confidence: the most distinctive spelling
// comes first.
package schema

import (
	"fmt"
	"sync"
)

// Field is a semantic product attribute an import column can map to.
type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldPrice       Field = "price"
	FieldBarcode     Field = "barcode"
	FieldCategory    Field = "category"
	FieldStock       Field = "stock"
	FieldCostPrice   Field = "cost_price"
	FieldSupplier    Field = "supplier"
)

// Fields lists every semantic field in display order.
var Fields = []Field{
	FieldName,
	FieldDescription,
	FieldPrice,
	FieldBarcode,
	FieldCategory,
	FieldStock,
	FieldCostPrice,
	FieldSupplier,
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// GenericName is the name of the fallback dialect.
const GenericName = "generic"

// Dialect is an immutable header convention. Treat values as read-only once
// registered.
type Dialect struct {
	Name string

	// Label is a human readable name for listings.
	Label string

	// Indicators are literal header strings distinctive of the export tool.
	// A file matches when any one of them is present, compared case-sensitively.
	Indicators []string

	// Aliases maps each field to its header spellings in priority order.
	Aliases map[Field][]string
}

// AliasesFor returns the alias list for f, or nil when the dialect does not
// know the field.
func (d Dialect) AliasesFor(f Field) []string {
	return d.Aliases[f]
}

// Validate checks that the dialect can drive an import.
func (d Dialect) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dialect name is required")
	}
	if d.Name != GenericName && len(d.Indicators) == 0 {
		return fmt.Errorf("dialect %q: at least one indicator header is required", d.Name)
	}
	if len(d.Aliases[FieldName]) == 0 {
		return fmt.Errorf("dialect %q: name aliases are required", d.Name)
	}
	for f, aliases := range d.Aliases {
		if !f.Valid() {
			return fmt.Errorf("dialect %q: unknown field %q", d.Name, f)
		}
		for _, a := range aliases {
			if a == "" {
				return fmt.Errorf("dialect %q: empty alias for field %q", d.Name, f)
			}
		}
	}
	return nil
}

// Registry is the ordered set of dialects consulted during detection.
// Order matters: the first dialect whose indicator matches wins, and the
// generic dialect is always the fallback.
type Registry struct {
	mu       sync.RWMutex
	ordered  []Dialect
	byName   map[string]Dialect
	fallback Dialect
}

// NewRegistry returns a registry holding the built-in dialects. Custom
// dialects are checked before the built-ins so a site-specific export can
// override a generic match.
func NewRegistry(custom ...Dialect) (*Registry, error) {
	r := &Registry{
		byName:   make(map[string]Dialect),
		fallback: Generic,
	}
	r.byName[Generic.Name] = Generic

	for _, d := range custom {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	for _, d := range builtins {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for callers with static input.
func MustNewRegistry(custom ...Dialect) *Registry {
	r, err := NewRegistry(custom...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register appends a dialect to the detection order.
func (r *Registry) Register(d Dialect) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("dialect already registered: %s", d.Name)
	}
	r.ordered = append(r.ordered, d)
	r.byName[d.Name] = d
	return nil
}

// Get returns a dialect by name, including the fallback.
func (r *Registry) Get(name string) (Dialect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[name]
	return d, ok
}

// Detectable returns the dialects in detection order, without the fallback.
func (r *Registry) Detectable() []Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Dialect, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Fallback returns the dialect used when no indicator matches.
func (r *Registry) Fallback() Dialect {
	return r.fallback
}

// All returns every dialect in detection order followed by the fallback.
func (r *Registry) All() []Dialect {
	return append(r.Detectable(), r.fallback)
}
