package evaluation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/banshee-data/mocap.features/internal/mocap/features"
	"github.com/banshee-data/mocap.features/internal/mocap/subsets"
	"github.com/banshee-data/mocap.features/internal/monitoring"
)

// ErrEmptySplit is returned when a train or test split has no rows.
var ErrEmptySplit = errors.New("empty train or test split")

// FromDataset projects the numeric columns at indices cols (all columns
// when nil) of ds into a Matrix.
func FromDataset(ds *features.Dataset, cols []int) Matrix {
	if cols == nil {
		cols = make([]int, len(ds.Columns))
		for i := range cols {
			cols[i] = i
		}
	}
	m := Matrix{
		Columns:  make([]string, len(cols)),
		Rows:     make([][]float64, len(ds.Rows)),
		Labels:   make([]string, len(ds.Rows)),
		Subjects: make([]string, len(ds.Rows)),
	}
	for j, c := range cols {
		m.Columns[j] = ds.Columns[c].Name
	}
	for i, r := range ds.Rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = r.Values[c]
		}
		m.Rows[i] = row
		m.Labels[i] = r.Activity
		m.Subjects[i] = r.Subject
	}
	return m
}

// Split partitions m into training rows and rows of the held-out subjects.
func Split(m Matrix, testSubjects []string) (train, test Matrix) {
	held := make(map[string]bool, len(testSubjects))
	for _, s := range testSubjects {
		held[s] = true
	}
	train.Columns, test.Columns = m.Columns, m.Columns
	for i, row := range m.Rows {
		dst := &train
		if held[m.Subjects[i]] {
			dst = &test
		}
		dst.Rows = append(dst.Rows, row)
		dst.Labels = append(dst.Labels, m.Labels[i])
		dst.Subjects = append(dst.Subjects, m.Subjects[i])
	}
	return train, test
}

// Result is the outcome for one sensor subset.
type Result struct {
	Subset  subsets.SensorSubset
	Columns int
	Metrics Metrics
}

// SubsetSweep trains and evaluates one model per sensor subset.
type SubsetSweep struct {
	Classifier   Classifier
	TestSubjects []string
	// Workers bounds concurrency. Zero means GOMAXPROCS.
	Workers int
}

// Evaluate masks the dataset for a single subset, then trains and scores.
func (s *SubsetSweep) Evaluate(ctx context.Context, ds *features.Dataset, subset subsets.SensorSubset) (Result, error) {
	cols := features.MaskColumns(ds.Columns, subset.Contains)
	res := Result{Subset: subset, Columns: len(cols)}
	train, test := Split(FromDataset(ds, cols), s.TestSubjects)
	if train.Len() == 0 || test.Len() == 0 {
		return res, fmt.Errorf("%w: subset %s has %d training and %d test rows", ErrEmptySplit, subset, train.Len(), test.Len())
	}
	model, err := s.Classifier.Train(ctx, train)
	if err != nil {
		return res, fmt.Errorf("train subset %s: %w", subset, err)
	}
	res.Metrics, err = s.Classifier.Evaluate(ctx, model, test)
	if err != nil {
		return res, fmt.Errorf("evaluate subset %s: %w", subset, err)
	}
	return res, nil
}

// Run evaluates every subset. Results are returned in subset order; the
// first error cancels the remaining work.
func (s *SubsetSweep) Run(ctx context.Context, ds *features.Dataset, sets []subsets.SensorSubset) ([]Result, error) {
	if s.Classifier == nil {
		return nil, errors.New("subset sweep has no classifier")
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(sets))
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
				r, err := s.Evaluate(ctx, ds, sets[idx])
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				results[idx] = r
			}
		}()
	}

feed:
	for i := range sets {
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
	monitoring.Logf("evaluation: scored %d sensor subsets", len(results))
	return results, nil
}
