package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pos/internal/catalog"
	"github.com/JonMunkholm/pos/internal/schema"
)

const wooFile = "Nom,Tarif régulier,UGS,Catégories,Stock\n" +
	"Café,15.00,CAFE001,Boissons,50\n" +
	",8.00,BAD001,Boissons,5\n" +
	"Thé,abc,THE001,Boissons,20\n"

func csvSource(t *testing.T, content string) Source {
	t.Helper()
	src, err := NewCSVSource(strings.NewReader(content), "utf-8")
	require.NoError(t, err)
	return src
}

func openStore(t *testing.T) *catalog.SQLiteStore {
	t.Helper()
	store, err := catalog.OpenSQLite(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func listProducts(t *testing.T, store catalog.Store) []catalog.Product {
	t.Helper()
	products, err := store.List(context.Background(), catalog.ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	return products
}

func TestPreview_WooCommerceFile(t *testing.T) {
	im := NewImporter(schema.MustNewRegistry(), nil)

	out, err := im.Preview(context.Background(), csvSource(t, wooFile), PreviewOptions{})
	require.NoError(t, err)

	assert.Equal(t, "woocommerce", out.Dialect)
	assert.Empty(t, out.Errors)
	assert.False(t, out.Truncated)
	require.Len(t, out.Candidates, 3)

	cafe := out.Candidates[0]
	assert.True(t, cafe.Valid())
	assert.Equal(t, 2, cafe.Line)
	assert.Equal(t, "Café", cafe.Name)
	assert.InDelta(t, 15.0, cafe.Price, 1e-9)
	assert.Equal(t, "CAFE001", cafe.BarcodeValue())
	assert.Equal(t, "Boissons", cafe.Category)
	assert.Equal(t, 50, cafe.Stock)
	assert.Empty(t, cafe.Action, "no store, no prediction")

	assert.Equal(t, 3, out.Candidates[1].Line)
	assert.Equal(t, []string{"Product name is required"}, out.Candidates[1].Errors)

	assert.Equal(t, 4, out.Candidates[2].Line)
	assert.Equal(t, []string{"Price must be greater than 0"}, out.Candidates[2].Errors)

	assert.Equal(t, PreviewSummary{Candidates: 3, Valid: 1, Invalid: 2}, out.Summary)
	assert.Equal(t, "Nom", out.Columns[schema.FieldName])
	assert.NotContains(t, out.Columns, schema.FieldCostPrice)
}

func TestPreview_DefaultsForMissingColumns(t *testing.T) {
	im := NewImporter(schema.MustNewRegistry(), nil)

	out, err := im.Preview(context.Background(), csvSource(t, "name,price,category,stock\nTea,2\n"), PreviewOptions{})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)

	c := out.Candidates[0]
	assert.True(t, c.Valid(), "short rows are still candidates")
	assert.Equal(t, DefaultCategory, c.Category)
	assert.Equal(t, 0, c.Stock)
	assert.Nil(t, c.Barcode)
	assert.Zero(t, c.CostPrice)
}

func TestPreview_Warnings(t *testing.T) {
	im := NewImporter(schema.MustNewRegistry(), nil)

	out, err := im.Preview(context.Background(), csvSource(t, "name,price,barcode,stock\nTea,2,X,-4\n"), PreviewOptions{})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)

	c := out.Candidates[0]
	assert.True(t, c.Valid(), "warnings do not invalidate")
	assert.Nil(t, c.Barcode)
	assert.Equal(t, "X", c.OriginalBarcode)
	assert.Equal(t, 4, c.Stock)
	assert.Len(t, c.Warnings, 2)
}

func TestPreview_Limit(t *testing.T) {
	im := NewImporter(schema.MustNewRegistry(), nil)

	var b strings.Builder
	b.WriteString("name,price\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "Item %d,%d\n", i, i+1)
	}

	out, err := im.Preview(context.Background(), csvSource(t, b.String()), PreviewOptions{})
	require.NoError(t, err)
	assert.Len(t, out.Candidates, DefaultPreviewRows)
	assert.True(t, out.Truncated)

	out, err = im.Preview(context.Background(), csvSource(t, b.String()), PreviewOptions{Limit: 12})
	require.NoError(t, err)
	assert.Len(t, out.Candidates, 12)
	assert.False(t, out.Truncated, "exactly at the cap")
}

func TestPreview_FileErrors(t *testing.T) {
	im := NewImporter(schema.MustNewRegistry(), nil)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no name column", "sku,price\nA1,2\n", MsgNoNameColumn},
		{"empty file", "", "Error reading CSV file: file is empty: no header row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := im.Preview(context.Background(), csvSource(t, tt.content), PreviewOptions{})
			require.NoError(t, err)
			assert.True(t, out.Failed())
			assert.Equal(t, []string{tt.want}, out.Errors)
			assert.Empty(t, out.Candidates)
		})
	}
}

func TestPreview_PredictsActions(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.Create(ctx, &catalog.Product{Name: "Café", Price: 14, Barcode: strPtr("CAFE001"), Active: true}))

	content := "name,price,barcode\n" +
		"Café,15,CAFE001\n" +
		"Nouveau,3,N1\n" +
		"nouveau,3,\n" +
		"Autre,4,N1\n"
	im := NewImporter(schema.MustNewRegistry(), store)

	out, err := im.Preview(ctx, csvSource(t, content), PreviewOptions{})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 4)

	assert.Equal(t, ActionSkip, out.Candidates[0].Action)
	assert.NotZero(t, out.Candidates[0].ExistingID)
	assert.Equal(t, ActionCreate, out.Candidates[1].Action)
	assert.Equal(t, ActionSkip, out.Candidates[2].Action, "same name earlier in the file")
	assert.Equal(t, ActionSkip, out.Candidates[3].Action, "same barcode earlier in the file")
	assert.Equal(t, PreviewSummary{Candidates: 4, Valid: 4, Create: 1, Skip: 3}, out.Summary)

	out, err = im.Preview(ctx, csvSource(t, content), PreviewOptions{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, out.Candidates[0].Action)
	assert.Equal(t, 1, out.Summary.Create)
	assert.Equal(t, 3, out.Summary.Update)

	assert.Len(t, listProducts(t, store), 1, "preview never writes")
}

func TestPreview_LookupFailureBecomesWarning(t *testing.T) {
	store := &flakyStore{Store: openStore(t), listErr: errors.New("connection reset by peer")}
	im := NewImporter(schema.MustNewRegistry(), store)

	out, err := im.Preview(context.Background(), csvSource(t, "name,price\nTea,2\n"), PreviewOptions{})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)

	c := out.Candidates[0]
	assert.True(t, c.Valid())
	assert.Empty(t, c.Action)
	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0], "connection reset")
}

func TestCommit_WooCommerceFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	im := NewImporter(schema.MustNewRegistry(), store)
	im.now = steppingClock()

	res, err := im.Commit(ctx, csvSource(t, wooFile), CommitOptions{FileName: "woo.csv"})
	require.NoError(t, err)
	assert.Equal(t, "woocommerce", res.Dialect)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 2, res.Invalid)
	assert.Equal(t, []string{
		"Row 3: Product name is required",
		"Row 4: Price must be greater than 0",
	}, res.Errors)

	products := listProducts(t, store)
	require.Len(t, products, 1)
	assert.Equal(t, "Café", products[0].Name)
	assert.True(t, products[0].Active)
	assert.Equal(t, 50, products[0].Stock)

	res, err = im.Commit(ctx, csvSource(t, wooFile), CommitOptions{FileName: "woo.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, listProducts(t, store), 1)

	runs, err := store.ListImports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, "woo.csv", runs[0].FileName)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.Equal(t, 2, runs[0].ErrorCount)
}

func TestCommit_UpdateExisting(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.Create(ctx, &catalog.Product{
		Name: "Café Noir", Price: 2, Barcode: strPtr("KEEP1"), Category: "Old", Supplier: "Roaster", Active: true,
	}))
	im := NewImporter(schema.MustNewRegistry(), store)

	content := "name,price,category,stock,cost\n  café noir ,2.50,Drinks,30,1.10\n"
	res, err := im.Commit(ctx, csvSource(t, content), CommitOptions{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Errors)

	products := listProducts(t, store)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "café noir", p.Name)
	assert.InDelta(t, 2.5, p.Price, 1e-9)
	assert.Equal(t, "Drinks", p.Category)
	assert.Equal(t, 30, p.Stock)
	assert.InDelta(t, 1.1, p.CostPrice, 1e-9)
	assert.Equal(t, "KEEP1", p.BarcodeValue(), "absent barcode keeps the stored one")
	assert.Equal(t, "Roaster", p.Supplier, "absent supplier keeps the stored one")
}

func TestCommit_DuplicatesWithinFile(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	im := NewImporter(schema.MustNewRegistry(), store)

	content := "name,price,barcode\n" +
		"Tea,2,\n" +
		"TEA,3,\n" +
		"Coffee,3,C1\n" +
		"Espresso,4,C1\n"
	res, err := im.Commit(ctx, csvSource(t, content), CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, listProducts(t, store), 2)
}

func TestCommit_RenamedProductRefreshesNameIndex(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.Create(ctx, &catalog.Product{Name: "Old", Price: 1, Barcode: strPtr("B1"), Active: true}))
	im := NewImporter(schema.MustNewRegistry(), store)

	content := "name,price,barcode\n" +
		"Other,1,\n" + // loads the name index
		"New,2,B1\n" + // renames Old by barcode
		"Old,3,\n" + // no longer matches anything
		"new,4,\n" // matches the renamed product
	res, err := im.Commit(ctx, csvSource(t, content), CommitOptions{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Updated)

	names := map[string]float64{}
	for _, p := range listProducts(t, store) {
		names[p.Name] = p.Price
	}
	assert.Equal(t, map[string]float64{"Other": 1, "new": 4, "Old": 3}, names)
}

func TestCommit_InactiveProductsDoNotMatch(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.Create(ctx, &catalog.Product{Name: "Tea", Price: 1, Active: false}))
	im := NewImporter(schema.MustNewRegistry(), store)

	res, err := im.Commit(ctx, csvSource(t, "name,price\nTea,2\n"), CommitOptions{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Len(t, listProducts(t, store), 2)
}

func TestCommit_RowFailureDoesNotStopBatch(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: openStore(t), failCreate: "Bad"}
	im := NewImporter(schema.MustNewRegistry(), store)

	content := "name,price\nGood,1\nBad,2\nAlso Good,3\n"
	res, err := im.Commit(ctx, csvSource(t, content), CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, []string{"Row 3: Error processing - disk full"}, res.Errors)
}

func TestCommit_NoNameColumn(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	im := NewImporter(schema.MustNewRegistry(), store)

	res, err := im.Commit(ctx, csvSource(t, "sku,price\nA1,2\n"), CommitOptions{FileName: "bad.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{MsgNoNameColumn}, res.Errors)
	assert.Zero(t, res.Created+res.Updated)
	assert.Empty(t, listProducts(t, store))

	runs, err := store.ListImports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].ErrorCount)
}

func TestCommit_Cancelled(t *testing.T) {
	store := openStore(t)
	im := NewImporter(schema.MustNewRegistry(), store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := im.Commit(ctx, csvSource(t, "name,price\nTea,2\n"), CommitOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, []string{"Import cancelled: context canceled"}, res.Errors)
	assert.Empty(t, listProducts(t, store))

	runs, err := store.ListImports(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "cancelled runs are still recorded")
}

func TestCommit_EveryNonBlankRow(t *testing.T) {
	const total = 250
	require.Greater(t, total, DefaultPreviewRows)
	require.Greater(t, total, 2*ContextCheckInterval)

	var b strings.Builder
	b.WriteString("name,price,barcode\n")
	line := 1
	badLine := 0
	for i := 1; i <= total; i++ {
		if i%40 == 0 {
			// Both an empty line and a row of empty cells count as blank.
			b.WriteString("\n , ,\n")
			line += 2
		}
		line++
		if i == 180 {
			fmt.Fprintf(&b, ",4.00,SKU%03d\n", i)
			badLine = line
			continue
		}
		fmt.Fprintf(&b, "Item %03d,%d.50,SKU%03d\n", i, i, i)
	}

	store := openStore(t)
	im := NewImporter(schema.MustNewRegistry(), store)

	res, err := im.Commit(context.Background(), csvSource(t, b.String()), CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, total-1, res.Created)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, []string{fmt.Sprintf("Row %d: Product name is required", badLine)}, res.Errors)
	assert.Len(t, listProducts(t, store), total-1)
}

func TestCommit_CancelledMidRun(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,price\n")
	for i := 1; i <= 3*ContextCheckInterval; i++ {
		fmt.Fprintf(&b, "Item %d,2\n", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancellingStore{Store: openStore(t), after: ContextCheckInterval, cancel: cancel}
	im := NewImporter(schema.MustNewRegistry(), store)

	res, err := im.Commit(ctx, csvSource(t, b.String()), CommitOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, ContextCheckInterval, res.Created, "the run stops at the next check")
	assert.Equal(t, []string{"Import cancelled: context canceled"}, res.Errors)
}

func TestCommit_HistoryFailureIsNotFatal(t *testing.T) {
	store := &flakyStore{Store: openStore(t), recordErr: errors.New("history table missing")}
	im := NewImporter(schema.MustNewRegistry(), store)

	res, err := im.Commit(context.Background(), csvSource(t, "name,price\nTea,2\n"), CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Empty(t, res.Errors)
}

func TestCommit_RequiresStore(t *testing.T) {
	im := NewImporter(schema.MustNewRegistry(), nil)
	_, err := im.Commit(context.Background(), csvSource(t, "name,price\n"), CommitOptions{})
	assert.Error(t, err)
}

func TestCommit_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)
	for _, p := range []catalog.Product{
		{Name: "Café", Description: "Arabica, 250g", Price: 1234.5, Barcode: strPtr("0012345"), Category: "Boissons", Stock: 50, CostPrice: 7.25, Supplier: "Torréfacteur", Active: true},
		{Name: "Thé", Price: 8.5, Category: "Boissons", Stock: 3, Active: true},
	} {
		require.NoError(t, src.Create(ctx, &p))
	}

	var buf strings.Builder
	require.NoError(t, catalog.WriteCSV(&buf, listProducts(t, src)))

	dst := openStore(t)
	res, err := NewImporter(schema.MustNewRegistry(), dst).Commit(ctx, csvSource(t, buf.String()), CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, "generic", res.Dialect)
	assert.Equal(t, 2, res.Created)
	assert.Empty(t, res.Errors)

	got := listProducts(t, dst)
	require.Len(t, got, 2)
	assert.Equal(t, "Café", got[0].Name)
	assert.Equal(t, "Arabica, 250g", got[0].Description)
	assert.InDelta(t, 1234.5, got[0].Price, 1e-9)
	assert.Equal(t, "0012345", got[0].BarcodeValue())
	assert.Equal(t, 50, got[0].Stock)
	assert.InDelta(t, 7.25, got[0].CostPrice, 1e-9)
	assert.Equal(t, "Torréfacteur", got[0].Supplier)
}

func strPtr(s string) *string { return &s }

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

// flakyStore injects failures into a working store.
type flakyStore struct {
	catalog.Store
	failCreate string
	listErr    error
	recordErr  error
}

func (s *flakyStore) Create(ctx context.Context, p *catalog.Product) error {
	if p.Name == s.failCreate {
		return errors.New("disk full")
	}
	return s.Store.Create(ctx, p)
}

func (s *flakyStore) List(ctx context.Context, opts catalog.ListOptions) ([]catalog.Product, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.List(ctx, opts)
}

func (s *flakyStore) RecordImport(ctx context.Context, run catalog.ImportRun) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	return s.Store.RecordImport(ctx, run)
}

// cancellingStore cancels the import context after a number of creates.
type cancellingStore struct {
	catalog.Store
	after   int
	created int
	cancel  context.CancelFunc
}

func (s *cancellingStore) Create(ctx context.Context, p *catalog.Product) error {
	if err := s.Store.Create(ctx, p); err != nil {
		return err
	}
	s.created++
	if s.created == s.after {
		s.cancel()
	}
	return nil
}
