package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/JonMunkholm/pos/internal/core"
	"github.com/JonMunkholm/pos/internal/logging"
	"github.com/JonMunkholm/pos/internal/schema"
	"github.com/JonMunkholm/pos/internal/web/views"
)

// DialectInfo is the listing shape of a dialect.
type DialectInfo struct {
	Name       string                    `json:"name"`
	Label      string                    `json:"label"`
	Indicators []string                  `json:"indicators,omitempty"`
	Aliases    map[schema.Field][]string `json:"aliases"`
}

// handleListDialects returns the dialects in detection order.
func (s *Server) handleListDialects(w http.ResponseWriter, r *http.Request) {
	dialects := s.service.Dialects()
	out := make([]DialectInfo, len(dialects))
	for i, d := range dialects {
		out[i] = DialectInfo{Name: d.Name, Label: d.Label, Indicators: d.Indicators, Aliases: d.Aliases}
	}
	writeJSON(w, out)
}

// handlePreview parses the head of an uploaded file and reports what a
// commit would do, without writing.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, upload, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	out, err := s.service.Preview(r.Context(), upload, core.PreviewOptions{
		Limit:          parseIntParam(r, "limit", 0),
		UpdateExisting: parseBoolParam(r, "update_existing"),
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := views.PreviewReport(out).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render preview", "error", err)
		}
		return
	}
	writeJSON(w, out)
}

// CommitResponse is the JSON shape of a committed import.
type CommitResponse struct {
	*core.CommitResult
	FileName string `json:"file_name"`
	Duration string `json:"duration"`
}

// handleCommit imports an uploaded file into the catalog.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	file, upload, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	// The commit may outlive the server write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(s.cfg.Import.Timeout + time.Minute)); err != nil {
		logging.FromContext(r.Context()).Debug("extend write deadline", "error", err)
	}

	res, err := s.service.Import(r.Context(), upload, core.CommitOptions{
		UpdateExisting: parseBoolParam(r, "update_existing"),
		FileName:       upload.Name,
	})
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		if res != nil {
			// Rows before the cut stay committed.
			logging.FromContext(r.Context()).Warn("import stopped early",
				"run_id", res.RunID, "created", res.Created, "updated", res.Updated)
		}
		respondError(w, r, err, status)
		return
	}

	writeJSON(w, CommitResponse{CommitResult: res, FileName: upload.Name, Duration: res.Duration.String()})
}

// handleDownloadTemplate serves an import template for ?dialect=.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	dialect := r.URL.Query().Get("dialect")
	if dialect == "" {
		dialect = schema.GenericName
	}

	var buf bytes.Buffer
	if err := s.service.Template(&buf, dialect); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dialect+`_template.csv"`)
	w.Write(buf.Bytes())
}
