package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pos/internal/schema"
)

// DefaultCategory is assigned when a row has no category.
const DefaultCategory = "Uncategorized"

// DefaultPreviewRows is the preview cap used when the caller passes none.
const DefaultPreviewRows = 10

// ContextCheckInterval is how many rows the commit loop processes between
// cancellation checks.
var ContextCheckInterval = 100

// RawRow is one data row as read from the source, before cleaning.
type RawRow struct {
	Line  int      // 1-based line of the row in the source file
	Cells []string // may be shorter than the header
}

// Action is what commit will do with a valid candidate.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Candidate is one row after cleaning and validation. A candidate with no
// Errors is valid; invalid candidates are kept so callers can show them.
type Candidate struct {
	Line            int      `json:"line"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	Barcode         *string  `json:"barcode"`
	OriginalBarcode string   `json:"original_barcode,omitempty"`
	Category        string   `json:"category"`
	Stock           int      `json:"stock_quantity"`
	CostPrice       float64  `json:"cost_price"`
	Supplier        string   `json:"supplier,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`

	// Set by preview when a catalog is available.
	Action     Action `json:"action,omitempty"`
	ExistingID int64  `json:"existing_id,omitempty"`
}

// Valid reports whether the candidate passed validation.
func (c *Candidate) Valid() bool {
	return len(c.Errors) == 0
}

// BarcodeValue returns the cleaned barcode or "".
func (c *Candidate) BarcodeValue() string {
	if c.Barcode == nil {
		return ""
	}
	return *c.Barcode
}

// PreviewSummary counts the candidates of a preview.
type PreviewSummary struct {
	Candidates int `json:"candidates"`
	Valid      int `json:"valid"`
	Invalid    int `json:"invalid"`
	Create     int `json:"create"`
	Update     int `json:"update"`
	Skip       int `json:"skip"`
}

// Outcome is the result of a preview: every candidate up to the cap, the
// detected dialect and any file-level errors.
type Outcome struct {
	RunID      uuid.UUID               `json:"run_id"`
	Dialect    string                  `json:"dialect"`
	Headers    []string                `json:"headers"`
	Columns    map[schema.Field]string `json:"columns"`
	Candidates []Candidate             `json:"candidates"`
	Errors     []string                `json:"errors,omitempty"`
	Summary    PreviewSummary          `json:"summary"`

	// Truncated is true when the file holds more rows than were previewed.
	Truncated bool `json:"truncated"`
}

// Failed reports whether a file-level error stopped the run.
func (o *Outcome) Failed() bool {
	return len(o.Errors) > 0
}

// CommitOptions controls a commit.
type CommitOptions struct {
	// UpdateExisting overwrites matched products instead of skipping them.
	UpdateExisting bool

	// FileName is recorded in the import history.
	FileName string
}

// CommitResult is the result of a commit. Errors holds file-level errors and
// row errors prefixed with "Row N: ".
type CommitResult struct {
	RunID    uuid.UUID     `json:"run_id"`
	Dialect  string        `json:"dialect"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Invalid  int           `json:"invalid"`
	Errors   []string      `json:"errors"`
	Duration time.Duration `json:"duration_ns"`
}
