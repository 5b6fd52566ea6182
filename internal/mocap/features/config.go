package features

import (
	"fmt"

	"github.com/banshee-data/mocap.features/internal/mocap/stats"
)

// FeatureType groups signals that are switched on and off together.
type FeatureType int

const (
	TypePosition FeatureType = iota
	TypeRotation
	TypeVelocity
	TypeAcceleration
	TypePairwise
	TypeRangeOfMotion
)

var featureTypeNames = [...]string{"position", "rotation", "velocity", "acceleration", "pairwise", "range_of_motion"}

func (t FeatureType) String() string {
	if t >= 0 && int(t) < len(featureTypeNames) {
		return featureTypeNames[t]
	}
	return fmt.Sprintf("feature_type(%d)", int(t))
}

// FeatureTypes holds the enabled feature-type flags.
type FeatureTypes struct {
	Position      bool `json:"position"`
	Rotation      bool `json:"rotation"`
	Velocity      bool `json:"velocity"`
	Acceleration  bool `json:"acceleration"`
	Pairwise      bool `json:"pairwise"`
	RangeOfMotion bool `json:"range_of_motion"`
}

// AllFeatureTypes enables everything.
func AllFeatureTypes() FeatureTypes {
	return FeatureTypes{Position: true, Rotation: true, Velocity: true, Acceleration: true, Pairwise: true, RangeOfMotion: true}
}

// Enabled reports whether feature type t is switched on.
func (ft FeatureTypes) Enabled(t FeatureType) bool {
	switch t {
	case TypePosition:
		return ft.Position
	case TypeRotation:
		return ft.Rotation
	case TypeVelocity:
		return ft.Velocity
	case TypeAcceleration:
		return ft.Acceleration
	case TypePairwise:
		return ft.Pairwise
	case TypeRangeOfMotion:
		return ft.RangeOfMotion
	}
	return false
}

// OptionalStats says which of the optional statistics a feature type emits.
// The remaining statistics are always emitted.
type OptionalStats struct {
	Max          bool `json:"max"`
	Min          bool `json:"min"`
	CrossingRate bool `json:"crossing_rate"`
}

// StatTable maps feature types to their optional statistics. Types with no
// entry emit every statistic.
type StatTable map[FeatureType]OptionalStats

// DefaultStatTable returns the standard table.
func DefaultStatTable() StatTable {
	return StatTable{
		TypePosition:     {Max: true, Min: true, CrossingRate: true},
		TypeRotation:     {Max: true, Min: true, CrossingRate: false},
		TypeVelocity:     {Max: true, Min: false, CrossingRate: true},
		TypeAcceleration: {Max: true, Min: false, CrossingRate: false},
		TypePairwise:     {Max: true, Min: true, CrossingRate: false},
	}
}

// Stats returns the ordered statistics emitted for feature type t.
func (st StatTable) Stats(t FeatureType) []stats.Stat {
	opt, ok := st[t]
	if !ok {
		opt = OptionalStats{Max: true, Min: true, CrossingRate: true}
	}
	out := make([]stats.Stat, 0, len(stats.AllStats()))
	for _, s := range stats.AllStats() {
		switch {
		case s == stats.StatMax && !opt.Max,
			s == stats.StatMin && !opt.Min,
			s == stats.StatCrossingRate && !opt.CrossingRate:
			continue
		}
		out = append(out, s)
	}
	return out
}

// MismatchPolicy decides what happens to a window whose sensor set differs
// from the expected universe.
type MismatchPolicy int

const (
	// MismatchSkip drops the window and counts it.
	MismatchSkip MismatchPolicy = iota
	// MismatchFail aborts extraction.
	MismatchFail
)

// Config is the explicit configuration of a feature pipeline.
type Config struct {
	// Sensors is the expected sensor universe of every window.
	Sensors []string
	// Excluded sensors are expected to be present but produce no features.
	Excluded []string

	Types     FeatureTypes
	StatTable StatTable
	// FeatureScale multiplies every emitted feature value after body-size
	// normalisation, including the dimensionless crossing rates and the
	// range-of-motion areas. It conditions the output range for downstream
	// learners; it is not a unit conversion. Zero means 1.
	FeatureScale float64

	IncludeSubject  bool
	IncludeActivity bool
	OnMismatch      MismatchPolicy
}

// DefaultConfig returns a configuration with every feature type enabled
// and the activity label appended.
func DefaultConfig(sensors []string) Config {
	return Config{
		Sensors:         sensors,
		Types:           AllFeatureTypes(),
		StatTable:       DefaultStatTable(),
		FeatureScale:    1,
		IncludeActivity: true,
		OnMismatch:      MismatchSkip,
	}
}
