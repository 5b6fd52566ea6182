// Package recording holds one subject/activity session as time-aligned
// per-sensor frame sequences, validates it while it is ingested and cuts it
// into fixed-duration windows.
package recording

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

var (
	// ErrForeignFrame is returned when a frame's subject or activity does
	// not match the recording.
	ErrForeignFrame = errors.New("frame belongs to another recording")
	// ErrSealed is returned when frames are added to a window.
	ErrSealed = errors.New("recording is a read-only window")
)

// Recording is one subject+activity session. Each sensor's sequence is in
// time order and checked slices are index-aligned: frame i of every sensor
// shares approximately the same timestamp. A sample a sensor did not
// deliver is held by a Missing placeholder.
type Recording struct {
	Subject  string
	Activity string

	bounds  *Bounds
	sensors []string
	frames  map[string][]*frame.SensorFrame

	// last is the fold predecessor per sensor.
	last    map[string]frame.SensorFrame
	checked int
	invalid int
	missing int
	// period is the shortest frame interval seen so far.
	period  float64
	sealed  bool
	// start is the window start of a sealed recording.
	start   float64
}

// New returns an empty recording. bounds may be nil to skip validation.
func New(subject, activity string, bounds *Bounds) *Recording {
	return &Recording{
		Subject:  subject,
		Activity: activity,
		bounds:   bounds,
		frames:   make(map[string][]*frame.SensorFrame),
		last:     make(map[string]frame.SensorFrame),
	}
}

// AddFrame ingests the next frame of a sensor. The first frame of each
// sensor only seeds the derivation and is not stored. Every later frame
// gets its derived kinematics from its predecessor and is appended. Once
// all known sensors have a frame at some index, that slice is aligned on
// its earliest timestamp and checked against the anatomical bounds.
func (r *Recording) AddFrame(f frame.SensorFrame) error {
	if r.sealed {
		return ErrSealed
	}
	if f.Subject != r.Subject || f.Activity != r.Activity {
		return fmt.Errorf("%w: got %s/%s, want %s/%s", ErrForeignFrame, f.Subject, f.Activity, r.Subject, r.Activity)
	}

	prev, seen := r.last[f.Sensor]
	if !seen {
		r.registerSensor(f.Sensor)
		r.last[f.Sensor] = f
		return nil
	}

	d, err := frame.Derive(prev, f)
	if err != nil {
		return fmt.Errorf("derive %s frame at t=%g: %w", f.Sensor, f.Timestamp, err)
	}
	if err := f.ApplyDerived(d); err != nil {
		return err
	}
	r.last[f.Sensor] = f
	if r.period == 0 || d.Duration < r.period {
		r.period = d.Duration
	}
	stored := f
	r.frames[f.Sensor] = append(r.frames[f.Sensor], &stored)

	r.checkCompletedSlices()
	return nil
}

func (r *Recording) registerSensor(label string) {
	i := sort.SearchStrings(r.sensors, label)
	r.sensors = append(r.sensors, "")
	copy(r.sensors[i+1:], r.sensors[i:])
	r.sensors[i] = label
}

func (r *Recording) checkCompletedSlices() {
	for ; r.checked < r.Len(); r.checked++ {
		r.fillGaps(r.checked)
		present := make([]*frame.SensorFrame, 0, len(r.sensors))
		for _, f := range r.Slice(r.checked) {
			if !f.Missing {
				present = append(present, f)
			}
		}
		r.invalid += r.bounds.CheckSlice(present)
	}
}

// fillGaps aligns slice i on its earliest frame. Every sensor whose frame
// lies more than half a sampling period later did not deliver that sample
// and gets a Missing placeholder at i, shifting its later frames by one.
func (r *Recording) fillGaps(i int) {
	var earliest *frame.SensorFrame
	for _, s := range r.sensors {
		if f := r.frames[s][i]; earliest == nil || f.Timestamp < earliest.Timestamp {
			earliest = f
		}
	}
	tolerance := r.period / 2
	for _, s := range r.sensors {
		fs := r.frames[s]
		if fs[i].Timestamp-earliest.Timestamp <= tolerance {
			continue
		}
		held := fs[i]
		if i > 0 {
			held = fs[i-1]
		}
		gap := &frame.SensorFrame{
			Sensor:    s,
			Subject:   r.Subject,
			Activity:  r.Activity,
			Position:  held.Position,
			Rotation:  held.Rotation,
			BodySize:  held.BodySize,
			Timestamp: earliest.Timestamp,
			Duration:  earliest.Duration,
			Invalid:   true,
			Missing:   true,
		}
		fs = append(fs, nil)
		copy(fs[i+1:], fs[i:])
		fs[i] = gap
		r.frames[s] = fs
		r.missing++
	}
}

// Sensors returns the sensor labels in sorted order.
func (r *Recording) Sensors() []string {
	out := make([]string, len(r.sensors))
	copy(out, r.sensors)
	return out
}

// HasSensor reports whether the recording contains the sensor.
func (r *Recording) HasSensor(label string) bool {
	i := sort.SearchStrings(r.sensors, label)
	return i < len(r.sensors) && r.sensors[i] == label
}

// Frames returns the stored frames of one sensor.
func (r *Recording) Frames(sensor string) []*frame.SensorFrame {
	return r.frames[sensor]
}

// Len returns the common aligned length: the shortest sensor sequence.
func (r *Recording) Len() int {
	if len(r.sensors) == 0 {
		return 0
	}
	n := -1
	for _, s := range r.sensors {
		if l := len(r.frames[s]); n < 0 || l < n {
			n = l
		}
	}
	return n
}

// Aligned reports whether every sensor sequence has the same length.
func (r *Recording) Aligned() bool {
	n := r.Len()
	for _, s := range r.sensors {
		if len(r.frames[s]) != n {
			return false
		}
	}
	return true
}

// Slice returns frame i of every sensor, in sensor order.
func (r *Recording) Slice(i int) []*frame.SensorFrame {
	out := make([]*frame.SensorFrame, 0, len(r.sensors))
	for _, s := range r.sensors {
		out = append(out, r.frames[s][i])
	}
	return out
}

// InvalidCount returns the number of frames marked invalid during ingestion.
func (r *Recording) InvalidCount() int { return r.invalid }

// MissingCount returns the number of placeholders inserted for samples a
// sensor did not deliver.
func (r *Recording) MissingCount() int { return r.missing }

// Start returns the start of the interval covered by the first aligned frame.
func (r *Recording) Start() float64 {
	if r.sealed {
		return r.start
	}
	if r.Len() == 0 {
		return 0
	}
	return r.sliceStart(0)
}

// sliceStart is where slice i's interval begins: the previous slice's
// timestamp, or the start of the first frame.
func (r *Recording) sliceStart(i int) float64 {
	ref := r.frames[r.sensors[0]]
	if i == 0 {
		return ref[0].Start()
	}
	return ref[i-1].Timestamp
}

// End returns the timestamp of the last aligned frame.
func (r *Recording) End() float64 {
	n := r.Len()
	if n == 0 {
		return 0
	}
	return r.frames[r.sensors[0]][n-1].Timestamp
}

// Duration returns the elapsed time covered by the aligned frames.
func (r *Recording) Duration() float64 {
	return r.End() - r.Start()
}

// BodySize returns the body-scale factor of the first stored frame, or 1.
func (r *Recording) BodySize() float64 {
	for _, s := range r.sensors {
		if fs := r.frames[s]; len(fs) > 0 {
			return fs[0].EffectiveBodySize()
		}
	}
	return 1
}
