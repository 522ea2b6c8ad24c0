// Package storage persists prediction results using BoltDB. It keeps the
// latest prediction per player and a log of batch prediction runs so that
// repeated requests and reports can be served without recomputing.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	dbFile = "footstats.db"

	predictionsBucket = "predictions" // Latest prediction per player, keyed by name
	runsBucket        = "runs"        // Batch run summaries, keyed by start time
)

// Store provides persistent storage for predictions using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (creating if needed) the database under dataPath and makes sure
// every bucket exists.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// RunRecord summarises one batch prediction run.
type RunRecord struct {
	ID           string    `json:"id"`
	ModelVersion string    `json:"model_version"`
	Players      int       `json:"players"`
	Stored       int       `json:"stored"`
	Failed       int       `json:"failed"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func runKey(t time.Time) []byte {
	// Zero padded so byte order matches time order
	return []byte(fmt.Sprintf("run_%020d", t.UnixNano()))
}

// StoreRun records a batch run summary.
func (s *Store) StoreRun(run RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		return b.Put(runKey(run.StartedAt), data)
	})
}

// GetRuns returns runs started within [start, end], oldest first.
func (s *Store) GetRuns(start, end time.Time) ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		endKey := runKey(end)

		for k, v := c.Seek(runKey(start)); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				continue // Skip malformed records
			}
			runs = append(runs, run)
		}
		return nil
	})

	return runs, err
}

// LastRun returns the most recent run, if any.
func (s *Store) LastRun() (RunRecord, bool, error) {
	var (
		run   RunRecord
		found bool
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket([]byte(runsBucket)).Cursor().Last()
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &run); err != nil {
			return fmt.Errorf("unmarshal run: %w", err)
		}
		found = true
		return nil
	})

	return run, found, err
}
