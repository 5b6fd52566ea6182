package features

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/monitoring"
)

// Counter names recorded by Extractor.
const (
	CounterWindows   = "windows"
	CounterDiscarded = "windows_discarded"
	CounterSkipped   = "windows_skipped"
	CounterMissing   = "frames_missing"
)

// Stats summarises a batch extraction.
type Stats struct {
	Recordings int `json:"recordings"`
	Windows    int `json:"windows"`
	Discarded  int `json:"discarded"`
	Skipped    int `json:"skipped"`
	// Missing counts placeholder frames for samples a sensor did not
	// deliver. Not persisted.
	Missing    int `json:"missing"`
}

func (s *Stats) add(o Stats) {
	s.Recordings += o.Recordings
	s.Windows += o.Windows
	s.Discarded += o.Discarded
	s.Skipped += o.Skipped
	s.Missing += o.Missing
}

// RecordingYield is the window outcome of one recording.
type RecordingYield struct {
	Subject  string
	Activity string
	Stats    Stats
}

// Dataset is the output of a batch extraction.
type Dataset struct {
	Header  []string
	Columns []Column
	Rows    []FeatureVector
	Stats   Stats
	// Yield is per recording, in input order. Not persisted.
	Yield []RecordingYield
}

// SortByActivity stable-sorts rows by class label.
func (d *Dataset) SortByActivity() {
	sort.SliceStable(d.Rows, func(i, j int) bool {
		return d.Rows[i].Activity < d.Rows[j].Activity
	})
}

// Activities returns the distinct class labels in sorted order.
func (d *Dataset) Activities() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range d.Rows {
		if !seen[r.Activity] {
			seen[r.Activity] = true
			out = append(out, r.Activity)
		}
	}
	sort.Strings(out)
	return out
}

// Extractor segments recordings and extracts a vector per valid window,
// partitioning work across recordings.
type Extractor struct {
	Pipeline   *Pipeline
	WindowSize float64
	Step       float64
	// Workers bounds concurrency. Zero means GOMAXPROCS.
	Workers int
	// Counters is optional.
	Counters *monitoring.Counters
}

// ExtractRecording processes a single recording.
func (e *Extractor) ExtractRecording(rec *recording.Recording) ([]FeatureVector, Stats, error) {
	st := Stats{Recordings: 1, Missing: rec.MissingCount()}
	seg, err := rec.Segment(e.WindowSize, e.Step)
	if err != nil {
		return nil, st, err
	}
	st.Discarded = seg.Discarded

	rows := make([]FeatureVector, 0, len(seg.Windows))
	for _, w := range seg.Windows {
		v, err := e.Pipeline.Extract(w)
		if err != nil {
			if errors.Is(err, ErrSensorSetMismatch) && e.Pipeline.cfg.OnMismatch == MismatchSkip {
				st.Skipped++
				monitoring.Logf("features: skipping window %s/%s at %.3fs: %v", rec.Subject, rec.Activity, w.Start(), err)
				continue
			}
			return nil, st, fmt.Errorf("recording %s/%s window at %.3fs: %w", rec.Subject, rec.Activity, w.Start(), err)
		}
		rows = append(rows, v)
	}
	st.Windows = len(rows)
	return rows, st, nil
}

// Run extracts every recording. Rows keep recording order; the first error
// cancels the remaining work.
func (e *Extractor) Run(ctx context.Context, recs []*recording.Recording) (*Dataset, error) {
	if e.Pipeline == nil {
		return nil, errors.New("extractor has no pipeline")
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(recs) {
		workers = len(recs)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		rows  []FeatureVector
		stats Stats
	}
	results := make([]result, len(recs))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rows, st, err := e.ExtractRecording(recs[idx])
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				results[idx] = result{rows: rows, stats: st}
			}
		}()
	}

feed:
	for i := range recs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds := &Dataset{Header: e.Pipeline.Header(), Columns: e.Pipeline.Columns()}
	for i, r := range results {
		ds.Rows = append(ds.Rows, r.rows...)
		ds.Stats.add(r.stats)
		ds.Yield = append(ds.Yield, RecordingYield{Subject: recs[i].Subject, Activity: recs[i].Activity, Stats: r.stats})
	}
	if e.Counters != nil {
		e.Counters.Add(CounterWindows, int64(ds.Stats.Windows))
		e.Counters.Add(CounterDiscarded, int64(ds.Stats.Discarded))
		e.Counters.Add(CounterSkipped, int64(ds.Stats.Skipped))
		e.Counters.Add(CounterMissing, int64(ds.Stats.Missing))
	}
	return ds, nil
}
