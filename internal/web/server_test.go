package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pos/internal/backup"
	"github.com/JonMunkholm/pos/internal/catalog"
	"github.com/JonMunkholm/pos/internal/config"
	"github.com/JonMunkholm/pos/internal/core"
	"github.com/JonMunkholm/pos/internal/schema"
	"github.com/JonMunkholm/pos/internal/session"
)

const productsCSV = "Nom,Tarif régulier,UGS,Catégories,Stock\n" +
	"Café,15.00,CAFE001,Boissons,50\n" +
	"<b>Thé</b>,3,THE001,Boissons,20\n" +
	",8.00,BAD001,Boissons,5\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			PreviewRows:   10,
			Encoding:      "utf-8",
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

type testEnv struct {
	server *Server
	store  *catalog.SQLiteStore
}

func newTestEnv(t *testing.T, cfg *config.Config, withBackups bool) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := catalog.OpenSQLite(filepath.Join(dir, "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := core.NewService(store, schema.MustNewRegistry(), core.ServiceConfig{
		Encoding:      cfg.Import.Encoding,
		PreviewRows:   cfg.Import.PreviewRows,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		Timeout:       cfg.Import.Timeout,
	})

	deps := Deps{
		Service:  svc,
		Sessions: session.NewManager(filepath.Join(dir, "pos_session.json"), filepath.Join(dir, "logout_flag.txt")),
	}
	if withBackups {
		mgr, err := backup.NewManager(store, filepath.Join(dir, "backups"), filepath.Join(dir, "backup.yaml"))
		require.NoError(t, err)
		deps.Backups = mgr
		deps.Scheduler = backup.NewScheduler(mgr)
	}

	s := NewServer(cfg, deps)
	t.Cleanup(func() { s.Shutdown(t.Context()) })
	return &testEnv{server: s, store: store}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig(), true)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "imports")
	assert.Contains(t, body, "backups")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestListDialects(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/dialects", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	dialects := decode[[]DialectInfo](t, rec)
	require.NotEmpty(t, dialects)
	assert.Equal(t, "woocommerce", dialects[0].Name)
	assert.Equal(t, schema.GenericName, dialects[len(dialects)-1].Name, "fallback listed last")
}

func TestPreview_JSON(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	rec := env.do(uploadRequest(t, "/api/import/preview", "products.csv", productsCSV, map[string]string{"limit": "2"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[core.Outcome](t, rec)
	assert.Equal(t, "woocommerce", out.Dialect)
	require.Len(t, out.Candidates, 2)
	assert.True(t, out.Truncated)
	assert.Equal(t, core.ActionCreate, out.Candidates[0].Action)
	assert.Equal(t, "Nom", out.Columns[schema.FieldName])

	products, err := env.store.List(t.Context(), catalog.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, products, "preview never writes")
}

func TestPreview_HTMLForHTMX(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	req := uploadRequest(t, "/api/import/preview", "products.csv", productsCSV, nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	html := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "&lt;b&gt;Thé&lt;/b&gt;", "names are escaped")
	assert.Contains(t, html, "Product name is required")
}

func TestPreview_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		status   int
		code     string
	}{
		{"no file", "", "", nil, http.StatusBadRequest, "FILE004"},
		{"legacy excel", "old.xls", "x", nil, http.StatusBadRequest, "FILE002"},
		{"bad encoding", "a.csv", "name\n", map[string]string{"encoding": "ebcdic"}, http.StatusBadRequest, "FILE003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), false)

			rec := env.do(uploadRequest(t, "/api/import/preview", tt.filename, tt.content, tt.fields))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestPreview_ErrorAsHTMLFragment(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	req := uploadRequest(t, "/api/import/preview", "old.xls", "x", nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-code="FILE002"`)
}

func TestCommitThenListAndHistory(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	rec := env.do(uploadRequest(t, "/api/import/commit", "products.csv", productsCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, res["created"])
	assert.Equal(t, "products.csv", res["file_name"])
	assert.Equal(t, []any{"Row 4: Product name is required"}, res["errors"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Product](t, rec), 2)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]catalog.ImportRun](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Created)
	assert.Equal(t, 1, runs[0].ErrorCount)

	// Re-importing with update_existing updates instead of skipping.
	rec = env.do(uploadRequest(t, "/api/import/commit", "products.csv", productsCSV, map[string]string{"update_existing": "on"}))
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[map[string]any](t, rec)
	assert.EqualValues(t, 0, res["created"])
	assert.EqualValues(t, 2, res["updated"])
}

func TestDownloadTemplate(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/import/template?dialect=shopify", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "shopify_template.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Title,"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/import/template?dialect=magento", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP005", decode[ErrorResponse](t, rec).Code)
}

func TestExportProducts(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)
	require.Equal(t, http.StatusOK, env.do(uploadRequest(t, "/api/import/commit", "products.csv", productsCSV, nil)).Code)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Café")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/export/products?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/export/products?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackups(t *testing.T) {
	env := newTestEnv(t, testConfig(), true)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/backups", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[backup.Info](t, rec)
	assert.True(t, strings.HasPrefix(created.FileName, "backup_manual_"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/backups", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[BackupListResponse](t, rec)
	require.Len(t, list.Backups, 1)
	assert.Equal(t, 30, list.Settings.MaxBackups)
	require.NotNil(t, list.Scheduler)

	rec = env.do(jsonRequest(http.MethodPost, "/api/backups/restore", `{"file":"../pos.db"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "BAK001", decode[ErrorResponse](t, rec).Code)

	rec = env.do(jsonRequest(http.MethodPost, "/api/backups/restore", `{"file":"`+created.FileName+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "backup_pre_restore_")
}

func TestBackupSettings(t *testing.T) {
	env := newTestEnv(t, testConfig(), true)

	rec := env.do(jsonRequest(http.MethodPut, "/api/backups/settings", `{"auto_backup_enabled":true,"backup_frequency":"weekly"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decode[backup.Settings](t, rec)
	assert.True(t, s.AutoBackupEnabled)
	assert.Equal(t, backup.Weekly, s.Frequency)
	assert.Equal(t, "02:00", s.Time, "omitted fields keep their value")

	rec = env.do(jsonRequest(http.MethodPut, "/api/backups/settings", `{"backup_frequency":"hourly"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAK003", decode[ErrorResponse](t, rec).Code)

	rec = env.do(jsonRequest(http.MethodPut, "/api/backups/settings", `{"frequency":"daily"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

func TestBackups_UnsupportedWithoutManager(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/backups", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "BAK002", decode[ErrorResponse](t, rec).Code)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, testConfig(), false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[SessionResponse](t, rec).NeedsOpening)

	rec = env.do(jsonRequest(http.MethodPost, "/api/session/cash", `{"new_balance":10,"type":"add","reason":"x","amount":10}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SES001", decode[ErrorResponse](t, rec).Code)

	rec = env.do(jsonRequest(http.MethodPost, "/api/session/open", `{"amount":500,"cashier":"Claire"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[SessionResponse](t, rec)
	assert.False(t, state.NeedsOpening)
	assert.InDelta(t, 500, state.CashAmount, 1e-9)
	require.NotNil(t, state.Session)
	assert.Equal(t, "Claire", state.Session.Cashier)

	rec = env.do(jsonRequest(http.MethodPost, "/api/session/cash", `{"new_balance":650,"type":"add","reason":"sale","amount":150}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[session.Session](t, rec).CashTransactions, 1)

	rec = env.do(jsonRequest(http.MethodPost, "/api/session/open", `{"amount":-1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SES002", decode[ErrorResponse](t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/session/close", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	state = decode[SessionResponse](t, rec)
	assert.True(t, state.NeedsOpening)
	assert.Nil(t, state.Session)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	env := newTestEnv(t, cfg, false)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/api/dialects", nil)).Code)
	}
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/dialects", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestImportRateLimitIsSeparate(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ImportLimit: 1}
	env := newTestEnv(t, cfg, false)

	rec := env.do(uploadRequest(t, "/api/import/preview", "products.csv", productsCSV, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(uploadRequest(t, "/api/import/preview", "products.csv", productsCSV, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/api/products", nil)).Code)
}

func TestAPIKeyGuardsWrites(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"till-key"}
	env := newTestEnv(t, cfg, false)

	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/api/products", nil)).Code)

	rec := env.do(uploadRequest(t, "/api/import/commit", "products.csv", productsCSV, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "/api/import/commit", "products.csv", productsCSV, nil)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)

	req = uploadRequest(t, "/api/import/commit", "products.csv", productsCSV, nil)
	req.Header.Set("X-API-Key", "till-key")
	assert.Equal(t, http.StatusOK, env.do(req).Code)
}
