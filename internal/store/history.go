package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketDownloads = []byte("downloads")

// HistoryEntry records one completed download.
type HistoryEntry struct {
	ContentID  string    `json:"content_id"`
	Title      string    `json:"title"`
	Path       string    `json:"path"`
	Bytes      int64     `json:"bytes"`
	Downloaded time.Time `json:"downloaded"`
}

// History is a BoltDB record of finished downloads keyed by content id, so a
// rerun skips items that already completed.
type History struct {
	db *bolt.DB
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDownloads)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &History{db: db}, nil
}

// Close releases the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Lookup returns the entry for contentID, if recorded.
func (h *History) Lookup(contentID string) (*HistoryEntry, bool, error) {
	var data []byte
	err := h.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketDownloads).Get([]byte(contentID)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, err
	}
	var entry HistoryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("corrupt history entry %s: %w", contentID, err)
	}
	return &entry, true, nil
}

// Record stores entry, replacing any previous one for the same content id.
func (h *History) Record(entry HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return h.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDownloads).Put([]byte(entry.ContentID), data)
	})
}

// Entries returns every recorded download in key order.
func (h *History) Entries() ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := h.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDownloads).ForEach(func(_, v []byte) error {
			var e HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}
