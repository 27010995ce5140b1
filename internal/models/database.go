package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when the ledger has no entry for a video
var ErrNotFound = bolthold.ErrNotFound

// LedgerEntry records that a video was copied into the archive
type LedgerEntry struct {
	VideoID    string       `boltholdKey:"VideoID"`
	SourcePath string
	DestPath   string
	Status     LedgerStatus `boltholdIndex:"Status"`
	RunID      string

	ArchivedAt time.Time
	WatchedAt  *time.Time
	UpdatedAt  time.Time
}

// Database wraps the bolthold store holding the completion ledger
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// GetEntry retrieves the ledger entry of a video
func (db *Database) GetEntry(videoID string) (*LedgerEntry, error) {
	var entry LedgerEntry
	if err := db.store.Get(videoID, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// RecordArchived stores (or replaces) the entry of a freshly copied video
func (db *Database) RecordArchived(entry *LedgerEntry) error {
	now := time.Now()
	entry.Status = LedgerArchived
	entry.WatchedAt = nil
	if entry.ArchivedAt.IsZero() {
		entry.ArchivedAt = now
	}
	entry.UpdatedAt = now
	return db.store.Upsert(entry.VideoID, entry)
}

// MarkComplete flags a video as marked watched on the server. Unknown videos
// are ignored since nothing was archived for them by this tool.
func (db *Database) MarkComplete(videoID string) error {
	entry, err := db.GetEntry(videoID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if entry.Status == LedgerComplete {
		return nil
	}

	now := time.Now()
	entry.Status = LedgerComplete
	entry.WatchedAt = &now
	entry.UpdatedAt = now
	return db.store.Update(entry.VideoID, entry)
}

// GetEntriesByStatus retrieves all entries with a specific status
func (db *Database) GetEntriesByStatus(status LedgerStatus) ([]*LedgerEntry, error) {
	var entries []*LedgerEntry
	err := db.store.Find(&entries, bolthold.Where("Status").Eq(status).Index("Status"))
	return entries, err
}

// GetEntriesByDestPath retrieves the entries recorded for a destination file
func (db *Database) GetEntriesByDestPath(destPath string) ([]*LedgerEntry, error) {
	var entries []*LedgerEntry
	err := db.store.Find(&entries, bolthold.Where("DestPath").Eq(destPath))
	return entries, err
}

// GetAllEntries retrieves every ledger entry
func (db *Database) GetAllEntries() ([]*LedgerEntry, error) {
	var entries []*LedgerEntry
	err := db.store.Find(&entries, nil)
	return entries, err
}

// DeleteEntry removes the entry of a video
func (db *Database) DeleteEntry(videoID string) error {
	return db.store.Delete(videoID, &LedgerEntry{})
}

// CountByStatus returns the number of entries per status
func (db *Database) CountByStatus() (map[LedgerStatus]int, error) {
	entries, err := db.GetAllEntries()
	if err != nil {
		return nil, err
	}

	counts := map[LedgerStatus]int{
		LedgerArchived: 0,
		LedgerComplete: 0,
	}
	for _, entry := range entries {
		counts[entry.Status]++
	}
	return counts, nil
}
