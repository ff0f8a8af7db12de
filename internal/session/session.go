// Package session tracks the daily cash-drawer session of the till.
//
// Sessions are stored in a JSON file keyed by ISO date (2006-01-02). A
// separate logout flag file marks an explicit logout so the next start asks
// for the opening cash amount again, even on the same day.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Session states.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

const (
	dateLayout     = "2006-01-02"
	defaultCashier = "Admin"
	defaultOpening = "Session opened"
	defaultClosing = "Logout"
	logoutMarker   = "logged_out"
)

var (
	// ErrNoSession is returned when an operation needs an open session.
	ErrNoSession = errors.New("no active session found")

	// ErrNegativeAmount is returned for a negative drawer balance.
	ErrNegativeAmount = errors.New("cash amount cannot be negative")
)

// Transaction is one cash movement recorded against a session.
type Transaction struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Amount     float64   `json:"amount"`
	NewBalance float64   `json:"new_balance"`
	Reason     string    `json:"reason"`
}

// Session is one day's cash-drawer session.
type Session struct {
	Date             string        `json:"date"`
	StartTime        time.Time     `json:"start_time"`
	CashDrawerAmount float64       `json:"cash_drawer_amount"`
	OpeningReason    string        `json:"opening_reason,omitempty"`
	Status           string        `json:"status"`
	LogoutTime       *time.Time    `json:"logout_time"`
	Cashier          string        `json:"cashier"`
	RestartTime      *time.Time    `json:"restart_time,omitempty"`
	RestartReason    string        `json:"restart_reason,omitempty"`
	ClosingReason    string        `json:"closing_reason,omitempty"`
	CashTransactions []Transaction `json:"cash_transactions,omitempty"`
}

// Open reports whether the session is running.
func (s *Session) Open() bool {
	return s != nil && s.Status == StatusOpen && s.LogoutTime == nil
}

// Manager reads and writes the session file. Every operation is a
// read-modify-write of the whole file under mu.
type Manager struct {
	file string
	flag string
	now  func() time.Time

	mu sync.Mutex
}

// NewManager returns a Manager for the given session file and logout flag.
func NewManager(file, logoutFlag string) *Manager {
	return &Manager{file: file, flag: logoutFlag, now: time.Now}
}

func (m *Manager) today() string {
	return m.now().Format(dateLayout)
}

// load returns the stored sessions. A missing or corrupt file reads as
// empty so the till can always be reopened.
func (m *Manager) load() map[string]*Session {
	data, err := os.ReadFile(m.file)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("read session file", "file", m.file, "error", err)
		}
		return map[string]*Session{}
	}

	sessions := map[string]*Session{}
	if err := json.Unmarshal(data, &sessions); err != nil {
		slog.Warn("session file is corrupt, starting fresh", "file", m.file, "error", err)
		return map[string]*Session{}
	}
	return sessions
}

func (m *Manager) save(sessions map[string]*Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if dir := filepath.Dir(m.file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session directory: %w", err)
		}
	}
	tmp := m.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	if err := os.Rename(tmp, m.file); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}

func (m *Manager) loggedOut() bool {
	_, err := os.Stat(m.flag)
	return err == nil
}

// NeedsOpening reports whether the drawer must be counted before selling:
// after an explicit logout, on the first start of the day, or when today's
// session was closed.
func (m *Manager) NeedsOpening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loggedOut() {
		return true
	}
	return !m.load()[m.today()].Open()
}

// Start opens today's session with the counted drawer amount. Reopening a
// closed session keeps its history and records the restart.
func (m *Manager) Start(amount float64, reason, cashier string) (*Session, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	if reason == "" {
		reason = defaultOpening
	}
	if cashier == "" {
		cashier = defaultCashier
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.flag); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("clear logout flag: %w", err)
	}

	now := m.now()
	today := now.Format(dateLayout)
	sessions := m.load()

	s, ok := sessions[today]
	if ok && s.LogoutTime != nil {
		s.RestartTime = &now
		s.RestartReason = reason
		s.CashDrawerAmount = amount
		s.Status = StatusOpen
		s.LogoutTime = nil
	} else {
		s = &Session{
			Date:             today,
			StartTime:        now,
			CashDrawerAmount: amount,
			OpeningReason:    reason,
			Status:           StatusOpen,
			Cashier:          cashier,
		}
		sessions[today] = s
	}

	if err := m.save(sessions); err != nil {
		return nil, err
	}
	slog.Info("cash session opened", "date", today, "amount", amount, "cashier", s.Cashier)
	return s, nil
}

// End logs out: it writes the logout flag and closes today's session if one
// exists.
func (m *Manager) End(reason string) error {
	if reason == "" {
		reason = defaultClosing
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.WriteFile(m.flag, []byte(logoutMarker), 0o644); err != nil {
		return fmt.Errorf("write logout flag: %w", err)
	}

	now := m.now()
	sessions := m.load()
	s, ok := sessions[now.Format(dateLayout)]
	if !ok {
		return nil
	}
	s.LogoutTime = &now
	s.Status = StatusClosed
	s.ClosingReason = reason

	if err := m.save(sessions); err != nil {
		return err
	}
	slog.Info("cash session closed", "date", s.Date, "amount", s.CashDrawerAmount)
	return nil
}

// Current returns today's open session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.load()[m.today()]; s.Open() {
		return s
	}
	return nil
}

// Today returns today's session whether open or closed, or nil.
func (m *Manager) Today() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()[m.today()]
}

// CashAmount returns the drawer balance of the open session, or 0.
func (m *Manager) CashAmount() float64 {
	if s := m.Current(); s != nil {
		return s.CashDrawerAmount
	}
	return 0
}

// RecordCash sets the drawer balance and appends the movement to today's
// history. kind is free text such as "add" or "remove".
func (m *Manager) RecordCash(newBalance float64, kind, reason string, amount float64) (*Session, error) {
	if newBalance < 0 {
		return nil, ErrNegativeAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sessions := m.load()
	s := sessions[now.Format(dateLayout)]
	if !s.Open() {
		return nil, ErrNoSession
	}

	s.CashDrawerAmount = newBalance
	s.CashTransactions = append(s.CashTransactions, Transaction{
		Timestamp:  now,
		Type:       kind,
		Amount:     amount,
		NewBalance: newBalance,
		Reason:     reason,
	})

	if err := m.save(sessions); err != nil {
		return nil, err
	}
	return s, nil
}

// History returns all stored sessions keyed by date.
func (m *Manager) History() map[string]*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}
