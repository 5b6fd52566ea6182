// Package evaluation models the classifier collaborator and sweeps sensor
// subsets through it. No concrete classifier lives here.
package evaluation

import (
	"context"
	"math"
	"sort"
)

// Matrix is a numeric training or test set with one class label per row.
type Matrix struct {
	Columns  []string
	Rows     [][]float64
	Labels   []string
	Subjects []string
}

// Len is the number of rows.
func (m Matrix) Len() int { return len(m.Rows) }

// Model is an opaque trained model.
type Model interface{}

// Classifier trains and evaluates models.
type Classifier interface {
	Train(ctx context.Context, training Matrix) (Model, error)
	Evaluate(ctx context.Context, model Model, test Matrix) (Metrics, error)
}

// Metrics is the evaluation result of one model on one test set.
type Metrics struct {
	Classes    []string  `json:"classes"`
	PerClassF1 []float64 `json:"per_class_f1"`
	Accuracy   float64   `json:"accuracy"`
	// Confusion[i][j] counts rows of class i predicted as class j.
	Confusion [][]int `json:"confusion"`
}

// NewMetrics scores predicted against actual labels. The class list is the
// sorted union of both. A class F1 is NaN when it is incalculable.
func NewMetrics(actual, predicted []string) Metrics {
	seen := map[string]bool{}
	var classes []string
	for _, l := range append(append([]string(nil), actual...), predicted...) {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	m := Metrics{Classes: classes, Confusion: make([][]int, len(classes))}
	for i := range m.Confusion {
		m.Confusion[i] = make([]int, len(classes))
	}
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	correct := 0
	for i := 0; i < n; i++ {
		m.Confusion[index[actual[i]]][index[predicted[i]]]++
		if actual[i] == predicted[i] {
			correct++
		}
	}
	if n > 0 {
		m.Accuracy = float64(correct) / float64(n)
	} else {
		m.Accuracy = math.NaN()
	}

	m.PerClassF1 = make([]float64, len(classes))
	for c := range classes {
		tp := m.Confusion[c][c]
		var fp, fn int
		for o := range classes {
			if o == c {
				continue
			}
			fp += m.Confusion[o][c]
			fn += m.Confusion[c][o]
		}
		m.PerClassF1[c] = f1(tp, fp, fn)
	}
	return m
}

func f1(tp, fp, fn int) float64 {
	if tp+fp == 0 || tp+fn == 0 {
		return math.NaN()
	}
	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// MeanF1 is the unweighted mean of the per-class F1 scores. It is NaN when
// any class score is NaN.
func (m Metrics) MeanF1() float64 {
	if len(m.PerClassF1) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range m.PerClassF1 {
		sum += v
	}
	return sum / float64(len(m.PerClassF1))
}

// MeanF1ZeroSubstituted is MeanF1 with incalculable class scores counted as
// zero.
func (m Metrics) MeanF1ZeroSubstituted() float64 {
	if len(m.PerClassF1) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.PerClassF1 {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum / float64(len(m.PerClassF1))
}
