package core

// error_messages.go maps technical errors to messages a cashier or shop
// manager can act on. Each message carries a code for support reference.
//
// # Error Codes Reference
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - No name column: no header matched a product name alias
//	         Action: Add a Name column or check the detected format
//	         Patterns: "could not find product name column"
//
//	IMP002 - Name required: a row has an empty product name
//	         Patterns: "product name is required"
//
//	IMP003 - Price invalid: a row's price is zero, negative or unreadable
//	         Patterns: "price must be greater than 0"
//
//	IMP004 - Name too long: a product name exceeds 255 characters
//	         Patterns: "product name is too long"
//
//	IMP005 - Unknown dialect: a forced import format is not configured
//	         Patterns: "unknown dialect"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate barcode
//	DB002 - Unique constraint
//	DB003 - Database busy (SQLite lock)
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported format
//	FILE003 - Unsupported encoding
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Import Run Errors (UPL001-UPL099)
//
//	UPL001 - Import cancelled
//	UPL002 - Too many concurrent imports
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Backup Errors (BAK001-BAK099)
//
//	BAK001 - Backup not found
//	BAK002 - Backups unsupported for this database
//	BAK003 - Invalid backup settings
//
// # Session Errors (SES001-SES099)
//
//	SES001 - No open cash-drawer session
//	SES002 - Negative cash amount
//
// # Request Errors (REQ001)
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains. The first
// matching pattern wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Import Errors (IMP001-IMP005)
	// =========================================================================
	{
		pattern: "could not find product name column",
		msg: UserMessage{
			Message: "The file has no product name column",
			Action:  "Add a Name column, or download the import template",
			Code:    "IMP001",
		},
	},
	{
		pattern: "product name is required",
		msg: UserMessage{
			Message: "A product name is missing",
			Action:  "Fill in the name of every product row",
			Code:    "IMP002",
		},
	},
	{
		pattern: "price must be greater than 0",
		msg: UserMessage{
			Message: "A product price is missing or not positive",
			Action:  "Use a plain number such as 12.50 or 12,50",
			Code:    "IMP003",
		},
	},
	{
		pattern: "product name is too long",
		msg: UserMessage{
			Message: "A product name is longer than 255 characters",
			Action:  "Shorten the name and move details to the description",
			Code:    "IMP004",
		},
	},
	{
		pattern: "unknown dialect",
		msg: UserMessage{
			Message: "The selected import format is not configured",
			Action:  "Choose one of the listed formats or let it be detected",
			Code:    "IMP005",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB006)
	// =========================================================================
	{
		pattern: "barcode already in use",
		msg: UserMessage{
			Message: "Another product already uses this barcode",
			Action:  "Check the file for repeated barcodes or enable updating existing products",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The database is busy",
			Action:  "Close other tills using this database and try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type cannot be imported",
			Action:  "Save the file as .csv or .xlsx",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported encoding",
		msg: UserMessage{
			Message: "This text encoding is not supported",
			Action:  "Use utf-8, windows-1252 or iso-8859-1",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a product file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row and products",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Import Run Errors (UPL001-UPL005)
	// =========================================================================
	{
		pattern: "import cancelled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Products imported before cancelling were kept",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Another import is in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try importing a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Backup Errors (BAK001-BAK002)
	// =========================================================================
	{
		pattern: "backup not found",
		msg: UserMessage{
			Message: "Backup not found",
			Action:  "Pick a backup from the list",
			Code:    "BAK001",
		},
	},
	{
		pattern: "backups are not supported",
		msg: UserMessage{
			Message: "Backups are only available for the local database",
			Action:  "Use your database provider's backup tools",
			Code:    "BAK002",
		},
	},
	{
		pattern: "invalid backup settings",
		msg: UserMessage{
			Message: "The backup settings are not valid",
			Action:  "Check the frequency, time of day and number of backups to keep",
			Code:    "BAK003",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES002)
	// =========================================================================
	{
		pattern: "no active session",
		msg: UserMessage{
			Message: "The cash drawer is not open",
			Action:  "Open the session with the counted drawer amount first",
			Code:    "SES001",
		},
	},
	{
		pattern: "cash amount cannot be negative",
		msg: UserMessage{
			Message: "The drawer amount cannot be negative",
			Action:  "Check the amount and try again",
			Code:    "SES002",
		},
	},

	// =========================================================================
	// Request Errors (REQ001)
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a JSON body with the expected fields",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. The first
// matching pattern wins; unmatched errors map to ERR000.
//
//	msg := MapError(catalog.ErrDuplicateBarcode)
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	return mapMessage(err.Error())
}

// MapMessage maps an error string, such as a row error of a CommitResult.
func MapMessage(s string) UserMessage {
	if s == "" {
		return UserMessage{}
	}
	return mapMessage(s)
}

func mapMessage(s string) UserMessage {
	lower := strings.ToLower(s)
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
