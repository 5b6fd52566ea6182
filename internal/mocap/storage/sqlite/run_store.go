package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/mocap.features/internal/mocap/features"
	"github.com/banshee-data/mocap.features/internal/timeutil"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Run is one persisted extraction run.
type Run struct {
	RunID      string          `json:"run_id"`
	InputDir   string          `json:"input_dir"`
	WindowSize float64         `json:"window_size"`
	Step       float64         `json:"window_step"`
	ConfigJSON json.RawMessage `json:"config_json,omitempty"`
	Stats      features.Stats  `json:"stats"`
	CreatedAt  int64           `json:"created_at"`
}

// RunStore provides persistence for extraction runs.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a new RunStore. A nil clock uses the real clock.
func NewRunStore(db *sql.DB, clock timeutil.Clock) *RunStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RunStore{db: db, clock: clock}
}

// Insert persists a run. If RunID is empty, a UUID is generated.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}

	var configStr interface{}
	if len(run.ConfigJSON) > 0 {
		configStr = string(run.ConfigJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO extraction_runs (
				run_id, input_dir, window_size, window_step, config_json,
				recordings, windows, discarded, skipped, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.InputDir, run.WindowSize, run.Step, configStr,
			run.Stats.Recordings, run.Stats.Windows, run.Stats.Discarded, run.Stats.Skipped,
			run.CreatedAt,
		)
		return err
	})
}

const runColumns = `run_id, input_dir, window_size, window_step, config_json,
	recordings, windows, discarded, skipped, created_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var configStr sql.NullString
	err := row.Scan(&r.RunID, &r.InputDir, &r.WindowSize, &r.Step, &configStr,
		&r.Stats.Recordings, &r.Stats.Windows, &r.Stats.Discarded, &r.Stats.Skipped, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if configStr.Valid {
		r.ConfigJSON = json.RawMessage(configStr.String)
	}
	return &r, nil
}

// Get returns a run by ID.
func (s *RunStore) Get(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM extraction_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// List returns runs, newest first.
func (s *RunStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM extraction_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
