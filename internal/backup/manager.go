// Package backup snapshots and restores the local SQLite catalog.
//
// A backup is a zip archive holding the database as database.db and a
// backup_info.json metadata file, or a bare .db copy when compression is
// off. Archives live in one directory and are pruned to MaxBackups.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for a backup name that is not in the directory.
	ErrNotFound = errors.New("backup not found")

	// ErrUnsupported is returned when the catalog cannot be snapshotted.
	ErrUnsupported = errors.New("backups are not supported for this database")
)

// Backup kinds, recorded in the metadata and the file name.
const (
	KindManual     = "manual"
	KindAutomatic  = "auto"
	KindPreRestore = "pre_restore"
)

const (
	filePrefix      = "backup_"
	dbEntry         = "database.db"
	metadataEntry   = "backup_info.json"
	metadataVersion = "1.0"
	stampLayout     = "20060102_150405"
)

// Database is the catalog being backed up.
type Database interface {
	// Snapshot writes a consistent copy of the database to dest.
	Snapshot(ctx context.Context, dest string) error
	// Replace swaps the live database for the file at src.
	Replace(ctx context.Context, src string) error
}

// Metadata is stored inside compressed backups.
type Metadata struct {
	ID           uuid.UUID `json:"id"`
	BackupDate   time.Time `json:"backup_date"`
	DatabaseSize int64     `json:"database_size"`
	BackupType   string    `json:"backup_type"`
	Version      string    `json:"version"`
}

// Info describes one backup file.
type Info struct {
	FileName string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Type     string    `json:"type"` // compressed or uncompressed
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Manager creates, lists, prunes and restores backups.
type Manager struct {
	db           Database
	dir          string
	settingsPath string
	now          func() time.Time

	mu       sync.Mutex // serializes create, restore and settings changes
	settings Settings
	uploader Uploader
}

// NewManager loads the settings at settingsPath and prepares dir.
func NewManager(db Database, dir, settingsPath string) (*Manager, error) {
	if db == nil {
		return nil, ErrUnsupported
	}
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &Manager{
		db:           db,
		dir:          dir,
		settingsPath: settingsPath,
		now:          time.Now,
		settings:     settings,
	}, nil
}

// SetUploader sends every new backup offsite as well. nil turns it off.
func (m *Manager) SetUploader(u Uploader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploader = u
}

// Settings returns the current settings.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// UpdateSettings validates, persists and applies s. A running scheduler
// picks the change up on its next tick.
func (m *Manager) UpdateSettings(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := SaveSettings(m.settingsPath, s); err != nil {
		return err
	}
	m.settings = s
	return nil
}

// Create takes a backup of the given kind and prunes old ones.
func (m *Manager) Create(ctx context.Context, kind string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(ctx, kind)
}

func (m *Manager) create(ctx context.Context, kind string) (Info, error) {
	info, err := m.snapshot(ctx, kind)
	if err != nil {
		return Info{}, err
	}
	if _, err := m.cleanup(); err != nil {
		slog.Warn("backup cleanup failed", "error", err)
	}
	return info, nil
}

// snapshot writes a new backup file without applying retention.
func (m *Manager) snapshot(ctx context.Context, kind string) (Info, error) {
	now := m.now()
	tmp, err := os.CreateTemp(m.dir, ".snapshot-*.db")
	if err != nil {
		return Info{}, fmt.Errorf("create snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// VACUUM INTO refuses to overwrite an existing file.
	os.Remove(tmpPath)
	defer os.Remove(tmpPath)

	if err := m.db.Snapshot(ctx, tmpPath); err != nil {
		return Info{}, fmt.Errorf("snapshot database: %w", err)
	}

	ext := ".db"
	if m.settings.Compression {
		ext = ".zip"
	}
	path := m.uniquePath(fmt.Sprintf("%s%s_%s", filePrefix, kind, now.Format(stampLayout)), ext)

	if m.settings.Compression {
		meta := Metadata{
			ID:         uuid.New(),
			BackupDate: now,
			BackupType: kind,
			Version:    metadataVersion,
		}
		if err := writeArchive(path, tmpPath, meta); err != nil {
			os.Remove(path)
			return Info{}, err
		}
	} else if err := os.Rename(tmpPath, path); err != nil {
		return Info{}, fmt.Errorf("store backup: %w", err)
	}

	info, err := m.describe(path)
	if err != nil {
		return Info{}, err
	}
	slog.Info("backup created", "file", info.FileName, "type", kind, "size", info.Size)

	if m.uploader != nil {
		if err := m.upload(ctx, info); err != nil {
			slog.Warn("offsite backup upload failed", "file", info.FileName, "error", err)
		} else {
			slog.Info("backup uploaded offsite", "file", info.FileName)
		}
	}
	return info, nil
}

// uniquePath avoids clobbering a backup taken within the same second.
func (m *Manager) uniquePath(base, ext string) string {
	path := filepath.Join(m.dir, base+ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
}

func writeArchive(path, dbPath string, meta Metadata) error {
	src, err := os.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer src.Close()

	if st, err := src.Stat(); err == nil {
		meta.DatabaseSize = st.Size()
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: dbEntry, Method: zip.Deflate, Modified: meta.BackupDate})
	if err == nil {
		_, err = io.Copy(w, src)
	}
	if err == nil {
		w, err = zw.Create(metadataEntry)
	}
	if err == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(meta)
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// describe stats a backup file and reads its metadata when compressed.
func (m *Manager) describe(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		FileName: filepath.Base(path),
		Path:     path,
		Size:     st.Size(),
		Created:  st.ModTime(),
		Type:     "uncompressed",
	}
	if filepath.Ext(path) == ".zip" {
		info.Type = "compressed"
		if meta, err := readMetadata(path); err == nil {
			info.Metadata = meta
			info.Created = meta.BackupDate
		}
	}
	return info, nil
}

func readMetadata(path string) (*Metadata, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	f, err := zr.Open(metadataEntry)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var meta Metadata
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns the backups in the directory, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var out []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isBackupName(name) {
			continue
		}
		info, err := m.describe(filepath.Join(m.dir, name))
		if err != nil {
			continue
		}
		out = append(out, info)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

func isBackupName(name string) bool {
	if !strings.HasPrefix(name, filePrefix) {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".zip" || ext == ".db"
}

// Cleanup removes the oldest backups beyond MaxBackups and reports how many
// were removed.
func (m *Manager) Cleanup() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanup()
}

func (m *Manager) cleanup() (int, error) {
	backups, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := m.settings.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", backups[i].FileName, err)
		}
		slog.Info("removed old backup", "file", backups[i].FileName)
		removed++
	}
	return removed, nil
}

// Restore replaces the live database with the named backup. The current
// database is backed up first; that backup is returned.
func (m *Manager) Restore(ctx context.Context, name string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name != filepath.Base(name) || !isBackupName(name) {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	path := filepath.Join(m.dir, name)
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	// Stage the source before anything else touches the directory.
	src, err := m.stage(path)
	if err != nil {
		return Info{}, err
	}
	defer os.Remove(src)

	pre, err := m.snapshot(ctx, KindPreRestore)
	if err != nil {
		return Info{}, fmt.Errorf("back up current database: %w", err)
	}

	if err := m.db.Replace(ctx, src); err != nil {
		return pre, fmt.Errorf("restore %s: %w", name, err)
	}
	slog.Info("backup restored", "file", name, "pre_restore", pre.FileName)

	if _, err := m.cleanup(); err != nil {
		slog.Warn("backup cleanup failed", "error", err)
	}
	return pre, nil
}

// stage copies the database held by a backup into a temporary file.
func (m *Manager) stage(path string) (string, error) {
	if filepath.Ext(path) == ".zip" {
		return m.extract(path)
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open backup: %w", err)
	}
	defer in.Close()
	return m.copyTemp(in)
}

// extract copies database.db out of an archive into a temporary file.
func (m *Manager) extract(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	in, err := zr.Open(dbEntry)
	if err != nil {
		return "", fmt.Errorf("archive has no %s: %w", dbEntry, err)
	}
	defer in.Close()

	return m.copyTemp(in)
}

func (m *Manager) copyTemp(in io.Reader) (string, error) {
	out, err := os.CreateTemp(m.dir, ".restore-*.db")
	if err != nil {
		return "", fmt.Errorf("create restore file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("copy database: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
