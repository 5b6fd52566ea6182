// Package frame defines a single body-worn sensor reading and the pure
// fold step that derives kinematics from its predecessor.
//
// Coordinates are Y-up; heights are read from Position.Y. Timestamps are
// seconds since the start of the recording.
package frame

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrSensorMismatch is returned by Derive when the two frames belong to
	// different sensors.
	ErrSensorMismatch = errors.New("frames belong to different sensors")
	// ErrNotChronological is returned by Derive when the predecessor is not
	// strictly earlier than the current frame.
	ErrNotChronological = errors.New("predecessor frame is not strictly earlier")
	// ErrAlreadyDerived is returned by ApplyDerived on a second call.
	ErrAlreadyDerived = errors.New("derived data already applied")
)

// Vec3 is a 3D vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Norm()
}

// Quat is an orientation quaternion as reported by the tracking system.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// SensorFrame is one sensor's reading at one instant. The raw fields are
// fixed at ingestion; the derived block is written exactly once from the
// same sensor's previous frame.
type SensorFrame struct {
	Sensor   string
	Subject  string
	Activity string

	Position        Vec3
	Rotation        Quat
	AngularVelocity Vec3
	LinearVelocity  Vec3
	BodySize        float64
	Timestamp       float64

	// Derived from the predecessor frame.
	LinearAcceleration  Vec3
	AngularAcceleration Vec3
	Duration            float64
	Invalid             bool
	// Missing marks a placeholder for a sample the sensor did not deliver.
	// It is always Invalid.
	Missing             bool

	derived bool
}

// Derived holds the kinematics computed from a (previous, current) pair.
type Derived struct {
	LinearAcceleration  Vec3
	AngularAcceleration Vec3
	Duration            float64
}

// Derive computes the derived kinematics of cur from its predecessor prev.
// It is a pure function of its inputs.
func Derive(prev, cur SensorFrame) (Derived, error) {
	if prev.Sensor != cur.Sensor {
		return Derived{}, fmt.Errorf("%w: %q vs %q", ErrSensorMismatch, prev.Sensor, cur.Sensor)
	}
	dt := cur.Timestamp - prev.Timestamp
	if !(dt > 0) {
		return Derived{}, fmt.Errorf("%w: sensor %s at t=%g after t=%g",
			ErrNotChronological, cur.Sensor, cur.Timestamp, prev.Timestamp)
	}
	inv := 1 / dt
	return Derived{
		LinearAcceleration:  cur.LinearVelocity.Sub(prev.LinearVelocity).Scale(inv),
		AngularAcceleration: cur.AngularVelocity.Sub(prev.AngularVelocity).Scale(inv),
		Duration:            dt,
	}, nil
}

// ApplyDerived stores d on the frame. It may be called once.
func (f *SensorFrame) ApplyDerived(d Derived) error {
	if f.derived {
		return ErrAlreadyDerived
	}
	f.LinearAcceleration = d.LinearAcceleration
	f.AngularAcceleration = d.AngularAcceleration
	f.Duration = d.Duration
	f.derived = true
	return nil
}

// HasDerived reports whether ApplyDerived has been called.
func (f *SensorFrame) HasDerived() bool { return f.derived }

// Start is the beginning of the time interval covered by this frame.
func (f *SensorFrame) Start() float64 { return f.Timestamp - f.Duration }

// Height is the vertical coordinate above ground.
func (f *SensorFrame) Height() float64 { return f.Position.Y }

// Speed is the magnitude of the linear velocity.
func (f *SensorFrame) Speed() float64 { return f.LinearVelocity.Norm() }

// AccelerationMagnitude is the magnitude of the derived linear acceleration.
func (f *SensorFrame) AccelerationMagnitude() float64 { return f.LinearAcceleration.Norm() }

// EffectiveBodySize returns BodySize, or 1 when it is not a usable divisor.
func (f *SensorFrame) EffectiveBodySize() float64 {
	if f.BodySize > 0 && !math.IsInf(f.BodySize, 0) {
		return f.BodySize
	}
	return 1
}
