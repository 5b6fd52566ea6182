package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/mocap.features/internal/mocap/features"
)

// FeatureStore persists the feature dataset of a run.
type FeatureStore struct {
	db *sql.DB
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(db *sql.DB) *FeatureStore {
	return &FeatureStore{db: db}
}

// encodeValues renders values as JSON with NaN and infinities as null.
func encodeValues(values []float64) (string, error) {
	out := make([]*float64, len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		out[i] = &values[i]
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func decodeValues(s string) ([]float64, error) {
	var in []*float64
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return nil, err
	}
	out := make([]float64, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out, nil
}

// Save stores the dataset's columns and rows under runID in one transaction.
func (s *FeatureStore) Save(runID string, ds *features.Dataset) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		colStmt, err := tx.Prepare(`INSERT INTO feature_columns (run_id, position, name, sensors) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer colStmt.Close()
		for i, c := range ds.Columns {
			if _, err := colStmt.Exec(runID, i, c.Name, strings.Join(c.Sensors, ",")); err != nil {
				return fmt.Errorf("insert column %s: %w", c.Name, err)
			}
		}

		rowStmt, err := tx.Prepare(`
			INSERT INTO feature_rows (run_id, row_index, subject, activity, window_start, values_json)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer rowStmt.Close()
		for i, r := range ds.Rows {
			values, err := encodeValues(r.Values)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
			if _, err := rowStmt.Exec(runID, i, r.Subject, r.Activity, r.Start, values); err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// Columns returns the stored feature columns of a run.
func (s *FeatureStore) Columns(runID string) ([]features.Column, error) {
	rows, err := s.db.Query(`SELECT name, sensors FROM feature_columns WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var out []features.Column
	for rows.Next() {
		var c features.Column
		var sensors string
		if err := rows.Scan(&c.Name, &sensors); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if sensors != "" {
			c.Sensors = strings.Split(sensors, ",")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rows returns the stored rows of a run, optionally restricted to one
// activity, in stored order.
func (s *FeatureStore) Rows(runID, activity string) ([]features.FeatureVector, error) {
	query := `SELECT subject, activity, window_start, values_json FROM feature_rows WHERE run_id = ?`
	args := []any{runID}
	if activity != "" {
		query += ` AND activity = ?`
		args = append(args, activity)
	}
	query += ` ORDER BY row_index`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []features.FeatureVector
	for rows.Next() {
		var v features.FeatureVector
		var values string
		if err := rows.Scan(&v.Subject, &v.Activity, &v.Start, &values); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if v.Values, err = decodeValues(values); err != nil {
			return nil, fmt.Errorf("decode row values: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Load rebuilds the dataset of a run. Stats come from the run record.
func (s *FeatureStore) Load(run *Run) (*features.Dataset, error) {
	cols, err := s.Columns(run.RunID)
	if err != nil {
		return nil, err
	}
	rows, err := s.Rows(run.RunID, "")
	if err != nil {
		return nil, err
	}
	ds := &features.Dataset{Columns: cols, Rows: rows, Stats: run.Stats}
	for _, c := range cols {
		ds.Header = append(ds.Header, c.Name)
	}
	return ds, nil
}
