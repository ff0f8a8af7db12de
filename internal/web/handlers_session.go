package web

import (
	"net/http"

	"github.com/JonMunkholm/pos/internal/session"
)

// SessionResponse is the GET /api/session payload.
type SessionResponse struct {
	NeedsOpening bool             `json:"needs_opening"`
	CashAmount   float64          `json:"cash_amount"`
	Session      *session.Session `json:"session"`
}

func (s *Server) sessionState() SessionResponse {
	return SessionResponse{
		NeedsOpening: s.sessions.NeedsOpening(),
		CashAmount:   s.sessions.CashAmount(),
		Session:      s.sessions.Current(),
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sessionState())
}

type openSessionRequest struct {
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason"`
	Cashier string  `json:"cashier"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if _, err := s.sessions.Start(req.Amount, req.Reason, req.Cashier); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, s.sessionState())
}

type closeSessionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	var req closeSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}
	if err := s.sessions.End(req.Reason); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, s.sessionState())
}

type cashRequest struct {
	NewBalance float64 `json:"new_balance"`
	Type       string  `json:"type"`
	Reason     string  `json:"reason"`
	Amount     float64 `json:"amount"`
}

func (s *Server) handleRecordCash(w http.ResponseWriter, r *http.Request) {
	var req cashRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	sess, err := s.sessions.RecordCash(req.NewBalance, req.Type, req.Reason, req.Amount)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, sess)
}
