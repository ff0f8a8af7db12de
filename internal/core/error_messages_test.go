package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/pos/internal/catalog"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "missing name column",
			err:         errors.New(MsgNoNameColumn),
			wantCode:    "IMP001",
			wantMessage: "The file has no product name column",
		},
		{
			name:        "wrapped duplicate barcode",
			err:         fmt.Errorf("create product: %w", catalog.ErrDuplicateBarcode),
			wantCode:    "DB001",
			wantMessage: "Another product already uses this barcode",
		},
		{
			name:        "sqlite lock",
			err:         errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantCode:    "DB003",
			wantMessage: "The database is busy",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout wins over deadline",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "empty file",
			err:         ErrNoHeader,
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "unsupported encoding",
			err:         fmt.Errorf("%w: ebcdic", ErrUnsupportedEncoding),
			wantCode:    "FILE003",
			wantMessage: "This text encoding is not supported",
		},
		{
			name:        "limiter busy",
			err:         ErrTooManyImports,
			wantCode:    "UPL002",
			wantMessage: "Another import is in progress",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown dialect",
			err:         fmt.Errorf("%w: magento", ErrUnknownDialect),
			wantCode:    "IMP005",
			wantMessage: "The selected import format is not configured",
		},
		{
			name:        "no open session",
			err:         errors.New("no active session found"),
			wantCode:    "SES001",
			wantMessage: "The cash drawer is not open",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("COULD NOT FIND PRODUCT NAME COLUMN"),
			wantCode:    "IMP001",
			wantMessage: "The file has no product name column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestMapMessage_RowErrors(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"Row 3: Product name is required", "IMP002"},
		{"Row 4: Price must be greater than 0", "IMP003"},
		{"Row 5: " + MsgNameTooLong, "IMP004"},
		{"Row 6: Error processing - barcode already in use", "DB001"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MapMessage(tt.msg).Code; got != tt.want {
			t.Errorf("MapMessage(%q) code = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(catalog.ErrDuplicateBarcode)

	expected := "Another product already uses this barcode (Code: DB001). Check the file for repeated barcodes or enable updating existing products"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrTooManyImports,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("update product 7: %w", catalog.ErrDuplicateBarcode)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Another product already uses this barcode" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, catalog.ErrDuplicateBarcode) {
			t.Error("Unwrap() should expose the original error")
		}
	})
}
