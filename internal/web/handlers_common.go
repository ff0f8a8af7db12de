package web

// Shared request parsing used across handlers.

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/pos/internal/core"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// parseIntParam parses a positive integer form or query value with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.FormValue(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam accepts the usual checkbox spellings ("on", "1", "true").
func parseBoolParam(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(name))) {
	case "1", "t", "true", "on", "yes":
		return true
	default:
		return false
	}
}

// readUpload parses the multipart form and returns the "file" part. The
// caller closes the returned file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, core.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, core.Upload{}, fmt.Errorf("file too large or invalid form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, core.Upload{}, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	return file, core.Upload{
		Name:     header.Filename,
		Body:     file,
		Encoding: r.FormValue("encoding"),
	}, nil
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
