package features

import (
	"math"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

// sensorSignal is a scalar read from every frame of one sensor.
type sensorSignal struct {
	name   string
	kind   FeatureType
	scaled bool
	value  func(f *frame.SensorFrame) float64
}

// pairSignal is a scalar read from the index-aligned frames of two sensors.
type pairSignal struct {
	name  string
	value func(a, b *frame.SensorFrame) float64
}

// sensorSignals is the canonical per-sensor signal order.
var sensorSignals = []sensorSignal{
	{"pos_x", TypePosition, true, func(f *frame.SensorFrame) float64 { return f.Position.X }},
	{"pos_y", TypePosition, true, func(f *frame.SensorFrame) float64 { return f.Position.Y }},
	{"pos_z", TypePosition, true, func(f *frame.SensorFrame) float64 { return f.Position.Z }},
	{"rot_x", TypeRotation, false, func(f *frame.SensorFrame) float64 { return f.Rotation.X }},
	{"rot_y", TypeRotation, false, func(f *frame.SensorFrame) float64 { return f.Rotation.Y }},
	{"rot_z", TypeRotation, false, func(f *frame.SensorFrame) float64 { return f.Rotation.Z }},
	{"rot_w", TypeRotation, false, func(f *frame.SensorFrame) float64 { return f.Rotation.W }},
	{"speed", TypeVelocity, true, (*frame.SensorFrame).Speed},
	{"accel", TypeAcceleration, true, (*frame.SensorFrame).AccelerationMagnitude},
}

// pairSignals is the canonical sensor-pair signal order. All are
// body-scaled.
var pairSignals = []pairSignal{
	{"dist_x", func(a, b *frame.SensorFrame) float64 { return math.Abs(a.Position.X - b.Position.X) }},
	{"dist_y", func(a, b *frame.SensorFrame) float64 { return math.Abs(a.Position.Y - b.Position.Y) }},
	{"dist_z", func(a, b *frame.SensorFrame) float64 { return math.Abs(a.Position.Z - b.Position.Z) }},
	{"dist", func(a, b *frame.SensorFrame) float64 { return a.Position.Distance(b.Position) }},
	{"speed_diff", func(a, b *frame.SensorFrame) float64 { return math.Abs(a.Speed() - b.Speed()) }},
}
