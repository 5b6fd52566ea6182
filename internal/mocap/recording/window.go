package recording

import (
	"errors"
	"fmt"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
	"github.com/banshee-data/mocap.features/internal/monitoring"
)

// ErrInvalidWindow is returned for a non-positive window size or step.
var ErrInvalidWindow = errors.New("window size and step must be positive")

// timeEpsilon absorbs accumulated floating-point error in timestamps.
const timeEpsilon = 1e-9

// SegmentResult holds the valid windows of a recording and the number of
// windows rejected because they contained an invalid frame.
type SegmentResult struct {
	Windows   []*Recording
	Discarded int
}

// Segment cuts the recording into windows of windowSize seconds whose
// nominal starts are step seconds apart.
//
// Each frame covers (Timestamp-Duration, Timestamp]. Candidate start
// indices are queued as the timeline advances by step; a window
// [candidate, j] is closed as soon as frame j ends windowSize after the
// candidate's start. step < windowSize gives overlapping windows, equal
// values touching windows and step > windowSize gapped ones. Windows with
// any invalid or missing frame, in any sensor, are dropped and counted, as
// are windows whose first frame spans a missing sample.
func (r *Recording) Segment(windowSize, step float64) (*SegmentResult, error) {
	if !(windowSize > 0) || !(step > 0) {
		return nil, fmt.Errorf("%w: size=%g step=%g", ErrInvalidWindow, windowSize, step)
	}
	res := &SegmentResult{}
	n := r.Len()
	if n == 0 {
		return res, nil
	}
	if !r.Aligned() {
		monitoring.Logf("recording %s/%s: sensor sequences differ in length, segmenting first %d frames",
			r.Subject, r.Activity, n)
	}

	ref := r.frames[r.sensors[0]]
	queue := []int{0}
	lastCandidate := r.sliceStart(0)

	for j := 0; j < n; j++ {
		if start := r.sliceStart(j); j > 0 && start-lastCandidate >= step-timeEpsilon {
			queue = append(queue, j)
			lastCandidate = start
		}
		for len(queue) > 0 && ref[j].Timestamp-r.sliceStart(queue[0]) >= windowSize-timeEpsilon {
			from := queue[0]
			queue = queue[1:]
			if r.rangeHasInvalid(from, j+1) {
				res.Discarded++
				continue
			}
			res.Windows = append(res.Windows, r.window(from, j+1))
		}
	}
	return res, nil
}

func (r *Recording) rangeHasInvalid(from, to int) bool {
	for _, s := range r.sensors {
		// the frame after a placeholder also covers the missing interval
		if from > 0 && r.frames[s][from-1].Missing {
			return true
		}
		for _, f := range r.frames[s][from:to] {
			if f.Invalid {
				return true
			}
		}
	}
	return false
}

// window materialises [from, to) of every sensor as a sealed recording
// sharing the parent's frames.
func (r *Recording) window(from, to int) *Recording {
	w := &Recording{
		Subject:  r.Subject,
		Activity: r.Activity,
		sensors:  r.Sensors(),
		frames:   make(map[string][]*frame.SensorFrame, len(r.sensors)),
		checked:  to - from,
		sealed:   true,
		start:    r.sliceStart(from),
	}
	for _, s := range r.sensors {
		w.frames[s] = r.frames[s][from:to:to]
	}
	return w
}

// Sealed reports whether the recording is a read-only window.
func (r *Recording) Sealed() bool { return r.sealed }
