// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

// Default fixture identity.
const (
	Subject  = "s01"
	Activity = "walking"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// standingPose holds anatomically plausible Y-up positions for every
// known sensor.
var standingPose = map[string]frame.Vec3{
	frame.Head:          {X: 0, Y: 1.7, Z: 0},
	frame.Spine:         {X: 0, Y: 1.3, Z: 0},
	frame.Hip:           {X: 0, Y: 1.0, Z: 0},
	frame.LeftHand:      {X: -0.3, Y: 1.0, Z: 0.1},
	frame.RightHand:     {X: 0.3, Y: 1.0, Z: 0.1},
	frame.LeftForeArm:   {X: -0.3, Y: 1.2, Z: 0},
	frame.RightForeArm:  {X: 0.3, Y: 1.2, Z: 0},
	frame.LeftUpperArm:  {X: -0.2, Y: 1.4, Z: 0},
	frame.RightUpperArm: {X: 0.2, Y: 1.4, Z: 0},
	frame.LeftLeg:       {X: -0.1, Y: 0.5, Z: 0},
	frame.RightLeg:      {X: 0.1, Y: 0.5, Z: 0},
	frame.LeftFoot:      {X: -0.1, Y: 0.05, Z: 0},
	frame.RightFoot:     {X: 0.1, Y: 0.05, Z: 0},
}

// StandingPose returns the resting position of a sensor.
func StandingPose(sensor string) frame.Vec3 {
	if p, ok := standingPose[sensor]; ok {
		return p
	}
	return frame.Vec3{Y: 1}
}

// Frame returns a raw frame of the fixture subject/activity.
func Frame(sensor string, t float64, pos frame.Vec3) frame.SensorFrame {
	return frame.SensorFrame{
		Sensor:    sensor,
		Subject:   Subject,
		Activity:  Activity,
		Position:  pos,
		Rotation:  frame.Quat{W: 1},
		BodySize:  1,
		Timestamp: t,
	}
}

// SwayFrame returns a frame at the standing pose plus a small horizontal
// sway, with the matching linear velocity.
func SwayFrame(sensor string, t float64) frame.SensorFrame {
	const amp = 0.05
	base := StandingPose(sensor)
	f := Frame(sensor, t, frame.Vec3{
		X: base.X + amp*math.Sin(t),
		Y: base.Y,
		Z: base.Z + amp*math.Cos(t),
	})
	f.LinearVelocity = frame.Vec3{X: amp * math.Cos(t), Z: -amp * math.Sin(t)}
	f.Rotation = frame.Quat{Y: math.Sin(t / 2), W: math.Cos(t / 2)}
	return f
}

// Times returns from, from+step, ... up to and including to.
func Times(from, to, step float64) []float64 {
	n := int(math.Round((to-from)/step)) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, from+float64(i)*step)
	}
	return out
}

// Timeline returns swaying frames for every sensor at every time, in
// time-major order, the way rows arrive from a capture file.
func Timeline(sensors []string, times []float64) []frame.SensorFrame {
	out := make([]frame.SensorFrame, 0, len(sensors)*len(times))
	for _, t := range times {
		for _, s := range sensors {
			out = append(out, SwayFrame(s, t))
		}
	}
	return out
}

// Without returns frames minus the sensor's frame at time t, as when a
// capture loses one row.
func Without(frames []frame.SensorFrame, sensor string, t float64) []frame.SensorFrame {
	out := make([]frame.SensorFrame, 0, len(frames))
	for _, f := range frames {
		if f.Sensor == sensor && f.Timestamp == t {
			continue
		}
		out = append(out, f)
	}
	return out
}
