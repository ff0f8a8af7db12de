package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backup frequencies.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
)

// Settings control automatic backups and retention. They are stored as
// YAML and edited from the back office.
type Settings struct {
	AutoBackupEnabled bool   `yaml:"auto_backup_enabled" json:"auto_backup_enabled"`
	Frequency         string `yaml:"backup_frequency" json:"backup_frequency"`
	Time              string `yaml:"backup_time" json:"backup_time"`
	MaxBackups        int    `yaml:"max_backups" json:"max_backups"`
	Compression       bool   `yaml:"compression" json:"compression"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		AutoBackupEnabled: false,
		Frequency:         Daily,
		Time:              "02:00",
		MaxBackups:        30,
		Compression:       true,
	}
}

// Validate checks every field and reports all problems at once.
func (s Settings) Validate() error {
	var errs []string

	switch s.Frequency {
	case Daily, Weekly, Monthly:
	default:
		errs = append(errs, fmt.Sprintf("backup_frequency must be daily, weekly or monthly, got %q", s.Frequency))
	}
	if _, _, err := ParseClock(s.Time); err != nil {
		errs = append(errs, err.Error())
	}
	if s.MaxBackups < 1 {
		errs = append(errs, fmt.Sprintf("max_backups must be at least 1, got %d", s.MaxBackups))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid backup settings:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseClock parses a time of day as "15:04" or "3:04 PM".
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range []string{"15:04", "3:04 PM", "3:04PM"} {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("backup_time must look like 02:00 or 2:00 AM, got %q", s)
}

// Interval returns the minimum spacing between automatic backups.
func (s Settings) Interval() time.Duration {
	switch s.Frequency {
	case Weekly:
		return 7 * 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// NextRun returns when the backup following one taken at last is due: the
// first occurrence of the configured time of day at least one interval
// minus a day after last.
func (s Settings) NextRun(last time.Time) time.Time {
	hour, minute, err := ParseClock(s.Time)
	if err != nil {
		hour, minute = 2, 0
	}

	earliest := last.Add(s.Interval() - 24*time.Hour)
	next := time.Date(earliest.Year(), earliest.Month(), earliest.Day(), hour, minute, 0, 0, last.Location())
	if !next.After(earliest) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// LoadSettings reads settings from path. A missing file yields the
// defaults; unknown keys are rejected.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read backup settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("parse backup settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// SaveSettings validates s and writes it to path.
func SaveSettings(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode backup settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
