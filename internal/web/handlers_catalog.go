package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/pos/internal/core"
)

// handleListProducts returns the catalog ordered by name.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.Products(r.Context(), parseBoolParam(r, "include_inactive"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, products)
}

// handleExportProducts streams the catalog as CSV or XLSX.
func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = core.FormatCSV
	}

	// Buffer so a failure can still be reported as an error response.
	var buf bytes.Buffer
	if err := s.service.Export(r.Context(), &buf, format, parseBoolParam(r, "include_inactive")); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == core.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	filename := fmt.Sprintf("products_%s.%s", time.Now().Format("20060102_150405"), format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(buf.Bytes())
}

// handleImportHistory returns recent import runs, newest first.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.History(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, runs)
}
