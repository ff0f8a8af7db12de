package core

// match.go finds the catalog product a candidate refers to and applies the
// candidate to it.
//
// A product matches by barcode first and then by exact, case-insensitive
// name. Only active products are considered. The name index is loaded from
// the store on first use and kept in step with the run's own writes, so a
// file naming the same product twice creates it once.

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/pos/internal/catalog"
)

// matcher resolves candidates against the store.
type matcher struct {
	store catalog.Store
	index catalog.NameIndex
	stale bool
}

func (m *matcher) names(ctx context.Context) (catalog.NameIndex, error) {
	if m.index != nil && !m.stale {
		return m.index, nil
	}
	products, err := m.store.List(ctx, catalog.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	m.index = catalog.IndexByName(products)
	m.stale = false
	return m.index, nil
}

// find returns the matching active product, or nil.
func (m *matcher) find(ctx context.Context, c *Candidate) (*catalog.Product, error) {
	if c.Barcode != nil {
		p, err := m.store.FindByBarcode(ctx, *c.Barcode)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, catalog.ErrNotFound):
			return nil, fmt.Errorf("find by barcode: %w", err)
		}
	}

	idx, err := m.names(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Lookup(c.Name), nil
}

// created indexes a product written by this run.
func (m *matcher) created(p *catalog.Product) {
	if m.index != nil && !m.stale {
		m.index.Add(p)
	}
}

// updated keeps the index in step with an updated product.
func (m *matcher) updated(p *catalog.Product, oldName string) {
	if m.index == nil || m.stale {
		return
	}
	if catalog.NameKey(oldName) != catalog.NameKey(p.Name) {
		m.stale = true
		return
	}
	if entry := m.index.Lookup(p.Name); entry != nil && entry.ID == p.ID && entry != p {
		*entry = *p
	}
}

// writer applies candidates during a commit.
type writer struct {
	matcher
	updateExisting bool
}

func newWriter(store catalog.Store, updateExisting bool) *writer {
	return &writer{matcher: matcher{store: store}, updateExisting: updateExisting}
}

// apply writes c and reports what it did.
func (w *writer) apply(ctx context.Context, c *Candidate) (Action, error) {
	existing, err := w.find(ctx, c)
	if err != nil {
		return "", err
	}

	if existing == nil {
		p := newProduct(c)
		if err := w.store.Create(ctx, p); err != nil {
			return "", err
		}
		w.created(p)
		return ActionCreate, nil
	}

	if !w.updateExisting {
		return ActionSkip, nil
	}

	oldName := existing.Name
	next := *existing
	overwrite(&next, c)
	if err := w.store.Update(ctx, &next); err != nil {
		return "", err
	}
	*existing = next
	w.updated(existing, oldName)
	return ActionUpdate, nil
}

func newProduct(c *Candidate) *catalog.Product {
	return &catalog.Product{
		Name:        c.Name,
		Description: c.Description,
		Price:       c.Price,
		Barcode:     c.Barcode,
		Category:    c.Category,
		Stock:       c.Stock,
		CostPrice:   c.CostPrice,
		Supplier:    c.Supplier,
		Active:      true,
	}
}

// overwrite copies c onto p. Barcode and supplier are kept when the
// candidate has none.
func overwrite(p *catalog.Product, c *Candidate) {
	p.Name = c.Name
	p.Description = c.Description
	p.Price = c.Price
	if c.Barcode != nil {
		p.Barcode = c.Barcode
	}
	p.Category = c.Category
	p.Stock = c.Stock
	p.CostPrice = c.CostPrice
	if c.Supplier != "" {
		p.Supplier = c.Supplier
	}
}

// planner predicts commit actions for a preview without writing. Rows that
// would be created are remembered so a later row naming the same product
// is predicted as a match.
type planner struct {
	matcher
	updateExisting bool
	barcodes       map[string]struct{}
	pending        catalog.NameIndex
}

func newPlanner(store catalog.Store, updateExisting bool) *planner {
	return &planner{
		matcher:        matcher{store: store},
		updateExisting: updateExisting,
		barcodes:       make(map[string]struct{}),
		pending:        make(catalog.NameIndex),
	}
}

func (p *planner) matchAction() Action {
	if p.updateExisting {
		return ActionUpdate
	}
	return ActionSkip
}

// annotate sets c.Action. A failed lookup leaves the action unset and adds
// a warning.
func (p *planner) annotate(ctx context.Context, c *Candidate) {
	existing, err := p.find(ctx, c)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("could not check catalog: %v", err))
		return
	}
	if existing != nil {
		c.Action = p.matchAction()
		c.ExistingID = existing.ID
		return
	}

	if c.Barcode != nil {
		if _, seen := p.barcodes[*c.Barcode]; seen {
			c.Action = p.matchAction()
			return
		}
	}
	if p.pending.Lookup(c.Name) != nil {
		c.Action = p.matchAction()
		return
	}

	c.Action = ActionCreate
	if c.Barcode != nil {
		p.barcodes[*c.Barcode] = struct{}{}
	}
	p.pending.Add(newProduct(c))
}
