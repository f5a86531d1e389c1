// Package storage implements the on-disk migration journal layout of
// spec.md §4.8: journal.json, snapshot.json, per-migration SQL files, and
// a _backup directory for archived migrations, all written atomic-replace
// (temp file then rename) — grounded on internal/state/state.go's
// Load/Save idiom, generalised from one state file to a whole directory of
// journal/snapshot/migration files.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/migerr"
)

const (
	journalFileName  = "journal.json"
	snapshotFileName = "snapshot.json"
	backupDirName    = "_backup"
	journalVersion   = "1"
)

// MigrationEntry is one journal record (spec §3: "MigrationEntry").
type MigrationEntry struct {
	Idx      int    `json:"idx"`
	Version  string `json:"version"`
	Name     string `json:"name"`
	When     int64  `json:"when"`
	Checksum string `json:"checksum"`
}

// Journal is the append-only declaration of intended migration history.
type Journal struct {
	Version string           `json:"version"`
	Dialect dialect.Name     `json:"dialect"`
	Entries []MigrationEntry `json:"entries"`
}

// Store is a single base directory's migration storage.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store { return &Store{baseDir: baseDir} }

func (s *Store) journalPath() string  { return filepath.Join(s.baseDir, journalFileName) }
func (s *Store) snapshotPath() string { return filepath.Join(s.baseDir, snapshotFileName) }
func (s *Store) backupDir() string    { return filepath.Join(s.baseDir, backupDirName) }

func (s *Store) migrationPath(entry MigrationEntry) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%04d_%s.sql", entry.Idx, entry.Name))
}

func (s *Store) downMigrationPath(entry MigrationEntry) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%04d_%s.down.sql", entry.Idx, entry.Name))
}

// ReadJournal reads journal.json; it returns (nil, nil) if no journal
// exists yet — callers needing a usable journal should use
// GetOrCreateJournal instead.
func (s *Store) ReadJournal() (*Journal, error) {
	data, err := os.ReadFile(s.journalPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parsing journal: %w", err)
	}
	return &j, nil
}

// WriteJournal writes journal.json atomically, with entries sorted by idx
// and keys in stable (sorted-field) order per spec §4.10.
func (s *Store) WriteJournal(j *Journal) error {
	sort.Slice(j.Entries, func(i, k int) bool { return j.Entries[i].Idx < j.Entries[k].Idx })
	// Round-trip through a generic value: encoding/json writes map keys in
	// sorted order, while structs keep their field-declaration order.
	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", journalFileName, err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("re-reading %s: %w", journalFileName, err)
	}
	return writeJSONAtomic(s.journalPath(), generic)
}

// GetOrCreateJournal reads the existing journal or creates an empty one
// for the given dialect. It fails with DialectMismatchError if a journal
// already exists for a different dialect — a migration history cannot be
// replayed against the wrong target.
func (s *Store) GetOrCreateJournal(d dialect.Name) (*Journal, error) {
	existing, err := s.ReadJournal()
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &Journal{Version: journalVersion, Dialect: d}, nil
	}
	if existing.Dialect != d {
		return nil, migerr.DialectMismatchf("journal was created for dialect %q, cannot use with %q", existing.Dialect, d)
	}
	return existing, nil
}

// ReadSnapshot reads snapshot.json's raw bytes; returns (nil, nil) if
// absent. Callers unmarshal into snapshot.Schema themselves to avoid this
// package importing snapshot purely for a pass-through type.
func (s *Store) ReadSnapshot() ([]byte, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

// WriteSnapshot writes arbitrary already-marshalled JSON bytes atomically.
func (s *Store) WriteSnapshot(data []byte) error {
	return writeFileAtomic(s.snapshotPath(), data)
}

// GetSnapshotOrEmpty returns the stored snapshot bytes, or the literal
// empty-schema JSON `{}` if none exists yet.
func (s *Store) GetSnapshotOrEmpty() ([]byte, error) {
	data, err := s.ReadSnapshot()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []byte("{}"), nil
	}
	return data, nil
}

// ReadMigration reads a migration's up-SQL file contents.
func (s *Store) ReadMigration(entry MigrationEntry) ([]byte, error) {
	data, err := os.ReadFile(s.migrationPath(entry))
	if err != nil {
		return nil, fmt.Errorf("reading migration %04d_%s: %w", entry.Idx, entry.Name, err)
	}
	return data, nil
}

// WriteMigration writes a migration's up-SQL (and, if non-empty, down-SQL)
// file contents atomically.
func (s *Store) WriteMigration(entry MigrationEntry, upSQL, downSQL string) error {
	if err := writeFileAtomic(s.migrationPath(entry), []byte(upSQL)); err != nil {
		return err
	}
	if downSQL == "" {
		return nil
	}
	return writeFileAtomic(s.downMigrationPath(entry), []byte(downSQL))
}

// DeleteMigration removes a migration's up/down SQL files, ignoring a
// missing file (idempotent delete).
func (s *Store) DeleteMigration(entry MigrationEntry) error {
	for _, path := range []string{s.migrationPath(entry), s.downMigrationPath(entry)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// MigrationExists reports whether entry's up-SQL file is present.
func (s *Store) MigrationExists(entry MigrationEntry) bool {
	_, err := os.Stat(s.migrationPath(entry))
	return err == nil
}

// BackupMigration copies entry's SQL files into _backup, leaving the
// originals in place. It returns (false, nil) when the source migration
// does not exist, per spec §4.8.
func (s *Store) BackupMigration(entry MigrationEntry, timestamp time.Time) (bool, error) {
	return s.copyToBackup(entry, timestamp)
}

// ArchiveMigration copies entry's SQL files into _backup and then deletes
// the originals. It returns (false, nil) when the source does not exist.
func (s *Store) ArchiveMigration(entry MigrationEntry, timestamp time.Time) (bool, error) {
	copied, err := s.copyToBackup(entry, timestamp)
	if err != nil || !copied {
		return copied, err
	}
	return true, s.DeleteMigration(entry)
}

func (s *Store) copyToBackup(entry MigrationEntry, timestamp time.Time) (bool, error) {
	if !s.MigrationExists(entry) {
		return false, nil
	}
	if err := os.MkdirAll(s.backupDir(), 0o755); err != nil {
		return false, fmt.Errorf("creating backup directory: %w", err)
	}

	prefix := fmt.Sprintf("%s_%04d_%s", timestamp.UTC().Format("20060102T150405"), entry.Idx, entry.Name)
	data, err := s.ReadMigration(entry)
	if err != nil {
		return false, err
	}
	if err := writeFileAtomic(filepath.Join(s.backupDir(), prefix+".sql"), data); err != nil {
		return false, err
	}

	if downData, err := os.ReadFile(s.downMigrationPath(entry)); err == nil {
		if err := writeFileAtomic(filepath.Join(s.backupDir(), prefix+".down.sql"), downData); err != nil {
			return false, err
		}
	} else if !os.IsNotExist(err) {
		return false, err
	}
	return true, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
