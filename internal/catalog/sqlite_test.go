package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_CreateFindUpdate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	p := &Product{
		Name:     "Café",
		Price:    15,
		Barcode:  strPtr("CAFE001"),
		Category: "Boissons",
		Stock:    50,
		Active:   true,
	}
	require.NoError(t, store.Create(ctx, p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	found, err := store.FindByBarcode(ctx, "CAFE001")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, "Café", found.Name)
	assert.Equal(t, 50, found.Stock)
	assert.True(t, found.Active)
	require.NotNil(t, found.Barcode)
	assert.Equal(t, "CAFE001", *found.Barcode)

	found.Price = 16.5
	found.Stock = 40
	require.NoError(t, store.Update(ctx, found))

	again, err := store.FindByBarcode(ctx, "CAFE001")
	require.NoError(t, err)
	assert.InDelta(t, 16.5, again.Price, 1e-9)
	assert.Equal(t, 40, again.Stock)

	_, err = store.FindByBarcode(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Update(ctx, &Product{ID: 9999, Name: "ghost", Price: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_InactiveHiddenFromLookups(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, &Product{Name: "Old", Price: 1, Barcode: strPtr("OLD1"), Active: false}))
	require.NoError(t, store.Create(ctx, &Product{Name: "New", Price: 2, Active: true}))

	_, err := store.FindByBarcode(ctx, "OLD1")
	assert.ErrorIs(t, err, ErrNotFound)

	active, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "New", active[0].Name)
	assert.Nil(t, active[0].Barcode)

	all, err := store.List(ctx, ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStore_DuplicateBarcode(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, &Product{Name: "A", Price: 1, Barcode: strPtr("X1"), Active: true}))
	err := store.Create(ctx, &Product{Name: "B", Price: 1, Barcode: strPtr("X1"), Active: true})
	assert.ErrorIs(t, err, ErrDuplicateBarcode)

	// Absent barcodes never collide.
	require.NoError(t, store.Create(ctx, &Product{Name: "C", Price: 1, Active: true}))
	require.NoError(t, store.Create(ctx, &Product{Name: "D", Price: 1, Active: true}))
}

func TestSQLiteStore_SnapshotAndReplace(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, &Product{Name: "Kept", Price: 3, Active: true}))

	snap := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, store.Snapshot(ctx, snap))

	require.NoError(t, store.Create(ctx, &Product{Name: "Later", Price: 4, Active: true}))
	products, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, products, 2)

	require.NoError(t, store.Replace(ctx, snap))

	products, err = store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Kept", products[0].Name)
}

func TestSQLiteStore_ImportHistory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := ImportRun{ID: uuid.New(), FileName: "a.csv", Dialect: "generic", Created: 2, StartedAt: base, FinishedAt: base.Add(time.Second)}
	second := ImportRun{ID: uuid.New(), FileName: "b.csv", Dialect: "woocommerce", UpdateExisting: true, Updated: 3, ErrorCount: 1, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour)}
	require.NoError(t, store.RecordImport(ctx, first))
	require.NoError(t, store.RecordImport(ctx, second))

	runs, err := store.ListImports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.True(t, runs[0].UpdateExisting)
	assert.Equal(t, 3, runs[0].Updated)
	assert.Equal(t, 1, runs[0].ErrorCount)
	assert.True(t, runs[1].StartedAt.Equal(base))

	limited, err := store.ListImports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNameIndex(t *testing.T) {
	products := []Product{
		{ID: 1, Name: "  Café Noir "},
		{ID: 2, Name: "café noir"},
		{ID: 3, Name: "Thé"},
	}
	idx := IndexByName(products)

	got := idx.Lookup("CAFÉ NOIR")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID, "earlier product wins")

	assert.Nil(t, idx.Lookup("Café"), "match is exact, not partial")

	idx.Add(&Product{ID: 4, Name: "Chocolat"})
	require.NotNil(t, idx.Lookup("chocolat"))
}
