package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

// PredictionRecord is the latest goals prediction for one player.
type PredictionRecord struct {
	Player         string    `json:"player"`
	Team           string    `json:"team"`
	BasisSeason    string    `json:"basis_season"`
	PredictedGoals int       `json:"predicted_goals"`
	RawPrediction  float64   `json:"raw_prediction"`
	ModelVersion   string    `json:"model_version"`
	CreatedAt      time.Time `json:"created_at"`
}

func putPrediction(b *bbolt.Bucket, record PredictionRecord) error {
	if record.Player == "" {
		return fmt.Errorf("prediction without player")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	return b.Put([]byte(record.Player), data)
}

// StorePrediction stores record, replacing any earlier prediction for the
// same player.
func (s *Store) StorePrediction(record PredictionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putPrediction(tx.Bucket([]byte(predictionsBucket)), record)
	})
}

// StorePredictions stores a batch in a single transaction.
func (s *Store) StorePredictions(records []PredictionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		for _, record := range records {
			if err := putPrediction(b, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPrediction returns the stored prediction for player.
func (s *Store) GetPrediction(player string) (PredictionRecord, bool, error) {
	var (
		record PredictionRecord
		found  bool
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(predictionsBucket)).Get([]byte(player))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &record); err != nil {
			return fmt.Errorf("unmarshal prediction: %w", err)
		}
		found = true
		return nil
	})

	return record, found, err
}

// TopPredictions returns up to limit predictions ordered by predicted goals
// descending, then raw prediction descending, then player name. A limit of
// zero or less returns every prediction.
func (s *Store) TopPredictions(limit int) ([]PredictionRecord, error) {
	var records []PredictionRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(predictionsBucket)).ForEach(func(k, v []byte) error {
			var record PredictionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return nil // Skip malformed records
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	Rank(records)

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// CountPredictions returns the number of stored predictions.
func (s *Store) CountPredictions() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// Rank orders predictions by predicted goals, then raw prediction, both
// descending, then by player name.
func Rank(records []PredictionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.PredictedGoals != b.PredictedGoals {
			return a.PredictedGoals > b.PredictedGoals
		}
		if a.RawPrediction != b.RawPrediction {
			return a.RawPrediction > b.RawPrediction
		}
		return a.Player < b.Player
	})
}
