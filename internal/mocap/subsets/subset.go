// Package subsets enumerates the sensor combinations worth evaluating.
//
// Every non-empty subset of a sensor universe is addressed by a bitmask
// over the sorted universe. Rules filter the subsets; each rule is an
// independent predicate and a subset is admissible when all of them hold.
package subsets

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

// MaxUniverse is the largest universe that will be enumerated.
const MaxUniverse = 24

// ErrUniverseTooLarge is returned for universes above MaxUniverse sensors.
var ErrUniverseTooLarge = errors.New("sensor universe too large to enumerate")

// Sensor is a labelled sensor and its hardware kind.
type Sensor struct {
	Label string
	Kind  frame.Kind
}

// Universe is the sorted, duplicate-free set of sensors under study.
type Universe []Sensor

// NewUniverse builds a Universe from labels, classifying each with
// frame.KindOf.
func NewUniverse(labels []string) Universe {
	seen := make(map[string]bool, len(labels))
	u := make(Universe, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		u = append(u, Sensor{Label: l, Kind: frame.KindOf(l)})
	}
	sort.Slice(u, func(i, j int) bool { return u[i].Label < u[j].Label })
	return u
}

// Labels returns the sensor labels in order.
func (u Universe) Labels() []string {
	out := make([]string, len(u))
	for i, s := range u {
		out[i] = s.Label
	}
	return out
}

func (u Universe) check() error {
	if len(u) > MaxUniverse {
		return fmt.Errorf("%w: %d sensors (max %d)", ErrUniverseTooLarge, len(u), MaxUniverse)
	}
	return nil
}

// SensorSubset is one candidate configuration: a partition of the universe
// into included and excluded sensors. It is immutable.
type SensorSubset struct {
	included    []string
	excluded    []string
	hmds        int
	controllers int
	trackers    int
}

func newSubset(u Universe, mask uint32) SensorSubset {
	var s SensorSubset
	for i, sensor := range u {
		if mask&(1<<uint(i)) == 0 {
			s.excluded = append(s.excluded, sensor.Label)
			continue
		}
		s.included = append(s.included, sensor.Label)
		switch sensor.Kind {
		case frame.KindHMD:
			s.hmds++
		case frame.KindController:
			s.controllers++
		default:
			s.trackers++
		}
	}
	return s
}

// Included returns the sensors in the subset, sorted.
func (s SensorSubset) Included() []string { return append([]string(nil), s.included...) }

// Excluded returns the universe sensors left out, sorted.
func (s SensorSubset) Excluded() []string { return append([]string(nil), s.excluded...) }

// HMDs is the number of head-mounted sensors included.
func (s SensorSubset) HMDs() int { return s.hmds }

// Controllers is the number of hand controllers included.
func (s SensorSubset) Controllers() int { return s.controllers }

// Trackers is the number of included sensors that are neither HMD nor
// controller.
func (s SensorSubset) Trackers() int { return s.trackers }

// Size is the number of included sensors.
func (s SensorSubset) Size() int { return len(s.included) }

// Contains reports whether label is included.
func (s SensorSubset) Contains(label string) bool {
	i := sort.SearchStrings(s.included, label)
	return i < len(s.included) && s.included[i] == label
}

// Key is a stable identifier of the included set.
func (s SensorSubset) Key() string { return strings.Join(s.included, "+") }

func (s SensorSubset) String() string { return "{" + strings.Join(s.included, ", ") + "}" }

// Less orders subsets by size, then lexicographically by sensor labels.
func Less(a, b SensorSubset) bool {
	if a.Size() != b.Size() {
		return a.Size() < b.Size()
	}
	for i := range a.included {
		if a.included[i] != b.included[i] {
			return a.included[i] < b.included[i]
		}
	}
	return false
}

// All returns every non-empty subset of u (2^n - 1 of them) in mask order.
func All(u Universe) ([]SensorSubset, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	limit := uint32(1) << uint(len(u))
	out := make([]SensorSubset, 0, limit-1)
	for mask := uint32(1); mask < limit; mask++ {
		out = append(out, newSubset(u, mask))
	}
	return out, nil
}
