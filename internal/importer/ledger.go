package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketFiles = []byte("files")
	bucketItems = []byte("items")
)

// FileEntry records a fully imported file.
type FileEntry struct {
	Path       string    `json:"path"`
	RecordIDs  []string  `json:"record_ids"`
	Rejected   int       `json:"rejected"`
	ImportedAt time.Time `json:"imported_at"`
}

// Ledger remembers which files and items were already imported, keyed by content hash.
type Ledger struct {
	db *bbolt.DB
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger dir: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketFiles, bucketItems} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// File returns the entry for a completed file, or nil when the content was never fully imported.
func (l *Ledger) File(contentID string) (*FileEntry, error) {
	var entry *FileEntry
	err := l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketFiles).Get([]byte(contentID))
		if data == nil {
			return nil
		}
		entry = &FileEntry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// PutFile marks a file as fully imported.
func (l *Ledger) PutFile(contentID string, entry FileEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).Put([]byte(contentID), data)
	})
}

// Item returns the record id stored for an item, or "" if the item has not been imported.
func (l *Ledger) Item(itemID string) (string, error) {
	var recordID string
	err := l.db.View(func(tx *bbolt.Tx) error {
		recordID = string(tx.Bucket(bucketItems).Get([]byte(itemID)))
		return nil
	})
	return recordID, err
}

// PutItem records the record id created for an item.
func (l *Ledger) PutItem(itemID, recordID string) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItems).Put([]byte(itemID), []byte(recordID))
	})
}

// Files returns the number of fully imported files.
func (l *Ledger) Files() (int, error) {
	var n int
	err := l.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketFiles).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
