package web

import (
	"net/http"

	"github.com/JonMunkholm/pos/internal/backup"
)

// BackupListResponse is the GET /api/backups payload.
type BackupListResponse struct {
	Backups   []backup.Info           `json:"backups"`
	Settings  backup.Settings         `json:"settings"`
	Scheduler *backup.SchedulerStatus `json:"scheduler,omitempty"`
}

// backupsOr reports ErrUnsupported when the catalog has no backup manager.
func (s *Server) backupsOr(w http.ResponseWriter, r *http.Request) bool {
	if s.backups == nil {
		respondError(w, r, backup.ErrUnsupported, http.StatusNotImplemented)
		return false
	}
	return true
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	if !s.backupsOr(w, r) {
		return
	}
	list, err := s.backups.List()
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := BackupListResponse{Backups: list, Settings: s.backups.Settings()}
	if resp.Backups == nil {
		resp.Backups = []backup.Info{}
	}
	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.Scheduler = &st
	}
	writeJSON(w, resp)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if !s.backupsOr(w, r) {
		return
	}
	info, err := s.backups.Create(r.Context(), backup.KindManual)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSONStatus(w, http.StatusCreated, info)
}

type restoreRequest struct {
	File string `json:"file"`
}

// handleRestoreBackup replaces the catalog with a backup. The current
// database is saved as a pre_restore backup first and returned.
func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	if !s.backupsOr(w, r) {
		return
	}
	var req restoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	pre, err := s.backups.Restore(r.Context(), req.File)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, map[string]any{"restored": req.File, "pre_restore": pre})
}

func (s *Server) handleGetBackupSettings(w http.ResponseWriter, r *http.Request) {
	if !s.backupsOr(w, r) {
		return
	}
	writeJSON(w, s.backups.Settings())
}

func (s *Server) handleUpdateBackupSettings(w http.ResponseWriter, r *http.Request) {
	if !s.backupsOr(w, r) {
		return
	}
	settings := s.backups.Settings()
	if err := decodeJSON(w, r, &settings); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.backups.UpdateSettings(settings); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, settings)
}
