package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/mocap.features/internal/mocap/evaluation"
	"github.com/banshee-data/mocap.features/internal/timeutil"
)

// SubsetResult is one persisted sensor-subset evaluation.
type SubsetResult struct {
	ResultID    string   `json:"result_id"`
	RunID       string   `json:"run_id"`
	SubsetKey   string   `json:"subset_key"`
	SensorCount int      `json:"sensor_count"`
	ColumnCount int      `json:"column_count"`
	Accuracy    float64  `json:"accuracy"`
	MeanF1      float64  `json:"mean_f1"`
	MeanF1Zero  float64  `json:"mean_f1_zero"`
	Classes     []string `json:"classes"`
	// PerClassF1 is aligned with Classes; NaN marks an incalculable score.
	PerClassF1 []float64 `json:"-"`
	CreatedAt  int64     `json:"created_at"`
}

// ResultFromEvaluation converts a sweep result.
func ResultFromEvaluation(runID string, r evaluation.Result) *SubsetResult {
	return &SubsetResult{
		RunID:       runID,
		SubsetKey:   r.Subset.Key(),
		SensorCount: r.Subset.Size(),
		ColumnCount: r.Columns,
		Accuracy:    r.Metrics.Accuracy,
		MeanF1:      r.Metrics.MeanF1(),
		MeanF1Zero:  r.Metrics.MeanF1ZeroSubstituted(),
		Classes:     r.Metrics.Classes,
		PerClassF1:  r.Metrics.PerClassF1,
	}
}

type subsetMetrics struct {
	Classes    []string `json:"classes"`
	PerClassF1 string   `json:"per_class_f1"`
}

// SubsetResultStore provides persistence for subset evaluations.
type SubsetResultStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewSubsetResultStore creates a new SubsetResultStore. A nil clock uses the
// real clock.
func NewSubsetResultStore(db *sql.DB, clock timeutil.Clock) *SubsetResultStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SubsetResultStore{db: db, clock: clock}
}

func nullable(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// Insert persists a result. If ResultID is empty, a UUID is generated.
func (s *SubsetResultStore) Insert(r *SubsetResult) error {
	if r.ResultID == "" {
		r.ResultID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = s.clock.Now().UnixNano()
	}
	f1, err := encodeValues(r.PerClassF1)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(subsetMetrics{Classes: r.Classes, PerClassF1: f1})
	if err != nil {
		return err
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO subset_results (
				result_id, run_id, subset_key, sensor_count, column_count,
				accuracy, mean_f1, mean_f1_zero, metrics_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ResultID, r.RunID, r.SubsetKey, r.SensorCount, r.ColumnCount,
			nullable(r.Accuracy), nullable(r.MeanF1), r.MeanF1Zero, string(metrics), r.CreatedAt,
		)
		return err
	})
}

// ListByRun returns the results of a run, best zero-substituted mean F1
// first, then fewer sensors first.
func (s *SubsetResultStore) ListByRun(runID string) ([]*SubsetResult, error) {
	rows, err := s.db.Query(`
		SELECT result_id, run_id, subset_key, sensor_count, column_count,
			accuracy, mean_f1, mean_f1_zero, metrics_json, created_at
		FROM subset_results
		WHERE run_id = ?
		ORDER BY mean_f1_zero DESC, sensor_count ASC, subset_key ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query subset results: %w", err)
	}
	defer rows.Close()

	var out []*SubsetResult
	for rows.Next() {
		var r SubsetResult
		var accuracy, meanF1 sql.NullFloat64
		var metrics sql.NullString
		if err := rows.Scan(&r.ResultID, &r.RunID, &r.SubsetKey, &r.SensorCount, &r.ColumnCount,
			&accuracy, &meanF1, &r.MeanF1Zero, &metrics, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subset result: %w", err)
		}
		r.Accuracy, r.MeanF1 = math.NaN(), math.NaN()
		if accuracy.Valid {
			r.Accuracy = accuracy.Float64
		}
		if meanF1.Valid {
			r.MeanF1 = meanF1.Float64
		}
		if metrics.Valid {
			var m subsetMetrics
			if err := json.Unmarshal([]byte(metrics.String), &m); err != nil {
				return nil, fmt.Errorf("decode metrics: %w", err)
			}
			r.Classes = m.Classes
			if r.PerClassF1, err = decodeValues(m.PerClassF1); err != nil {
				return nil, fmt.Errorf("decode per-class f1: %w", err)
			}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
