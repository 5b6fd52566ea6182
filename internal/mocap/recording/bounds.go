package recording

import (
	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

// PairKey identifies an unordered sensor pair. A is always the
// lexicographically smaller label.
type PairKey struct {
	A, B string
}

// Pair returns the canonical key for the unordered pair {a, b}.
func Pair(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// Bounds is the anatomical plausibility table applied to every timestamp
// slice during ingestion. Values are calibration constants in metres.
type Bounds struct {
	// MaxHeight is the highest plausible height per sensor label. Sensors
	// without an entry are not height-checked.
	MaxHeight map[string]float64
	// MaxDistance is the largest plausible distance between any two
	// sensors. Zero or negative disables the global check.
	MaxDistance float64
	// PairMaxDistance holds tighter maxima for anatomically adjacent pairs.
	PairMaxDistance map[PairKey]float64
}

// DefaultBounds returns the calibration table for the standard full-body
// setup.
func DefaultBounds() *Bounds {
	return &Bounds{
		MaxHeight: map[string]float64{
			frame.LeftHand:      3.0,
			frame.RightHand:     3.0,
			frame.LeftForeArm:   3.0,
			frame.RightForeArm:  3.0,
			frame.Head:          2.75,
			frame.LeftUpperArm:  2.5,
			frame.RightUpperArm: 2.5,
			frame.Spine:         2.25,
			frame.Hip:           1.5,
			frame.LeftLeg:       1.0,
			frame.RightLeg:      1.0,
			frame.LeftFoot:      1.0,
			frame.RightFoot:     1.0,
		},
		MaxDistance: 3.5,
		PairMaxDistance: map[PairKey]float64{
			Pair(frame.Head, frame.Spine):                 0.8,
			Pair(frame.Head, frame.Hip):                   1.3,
			Pair(frame.Spine, frame.Hip):                  0.8,
			Pair(frame.Hip, frame.LeftLeg):                1.0,
			Pair(frame.Hip, frame.RightLeg):               1.0,
			Pair(frame.LeftLeg, frame.LeftFoot):           0.8,
			Pair(frame.RightLeg, frame.RightFoot):         0.8,
			Pair(frame.Spine, frame.LeftUpperArm):         0.7,
			Pair(frame.Spine, frame.RightUpperArm):        0.7,
			Pair(frame.LeftUpperArm, frame.LeftForeArm):   0.6,
			Pair(frame.RightUpperArm, frame.RightForeArm): 0.6,
			Pair(frame.LeftForeArm, frame.LeftHand):       0.5,
			Pair(frame.RightForeArm, frame.RightHand):     0.5,
		},
	}
}

// pairLimit returns the distance limit for a pair, falling back to the
// global maximum. ok is false when no limit applies.
func (b *Bounds) pairLimit(a, c string) (float64, bool) {
	if lim, ok := b.PairMaxDistance[Pair(a, c)]; ok {
		return lim, true
	}
	if b.MaxDistance > 0 {
		return b.MaxDistance, true
	}
	return 0, false
}

// CheckSlice marks implausible frames of one timestamp slice as invalid and
// returns how many frames it newly invalidated. A nil Bounds checks nothing.
func (b *Bounds) CheckSlice(slice []*frame.SensorFrame) int {
	if b == nil {
		return 0
	}
	marked := 0
	mark := func(f *frame.SensorFrame) {
		if !f.Invalid {
			f.Invalid = true
			marked++
		}
	}
	for _, f := range slice {
		if lim, ok := b.MaxHeight[f.Sensor]; ok && f.Height() > lim {
			mark(f)
		}
	}
	for i := 0; i < len(slice); i++ {
		for j := i + 1; j < len(slice); j++ {
			lim, ok := b.pairLimit(slice[i].Sensor, slice[j].Sensor)
			if !ok {
				continue
			}
			if slice[i].Position.Distance(slice[j].Position) > lim {
				mark(slice[i])
				mark(slice[j])
			}
		}
	}
	return marked
}
