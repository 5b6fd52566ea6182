package subsets

import (
	"fmt"
	"sort"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

// Unbounded disables a count bound.
const Unbounded = -1

// Usage is the inclusion rule for a sensor.
type Usage int

const (
	MayInclude Usage = iota
	MustInclude
	CannotInclude
)

var usageNames = map[Usage]string{
	MayInclude:    "may_include",
	MustInclude:   "must_include",
	CannotInclude: "cannot_include",
}

func (u Usage) String() string {
	if n, ok := usageNames[u]; ok {
		return n
	}
	return fmt.Sprintf("usage(%d)", int(u))
}

// ParseUsage parses the String form of a Usage. The empty string is
// MayInclude.
func ParseUsage(s string) (Usage, error) {
	if s == "" {
		return MayInclude, nil
	}
	for u, n := range usageNames {
		if n == s {
			return u, nil
		}
	}
	return MayInclude, fmt.Errorf("unknown sensor usage %q", s)
}

// Rules filters candidate subsets. Use DefaultRules as the starting point:
// the zero value bounds the tracker and sensor counts to zero.
type Rules struct {
	HMDUsage        Usage
	ControllerUsage Usage
	// SensorUsage overrides the kind-level usage for individual labels.
	SensorUsage map[string]Usage

	// AllowSingleController admits subsets with exactly one hand controller.
	AllowSingleController bool

	MinTrackers, MaxTrackers int
	MinSensors, MaxSensors   int

	// AllowedSets, when non-empty, admits only these exact sets and replaces
	// the count bounds.
	AllowedSets [][]string
	// MinimumCombinations, when non-empty, admits a subset only if it
	// contains one of these bases and every extra sensor is a tracker.
	MinimumCombinations [][]string
}

// DefaultRules admits every subset.
func DefaultRules() Rules {
	return Rules{
		HMDUsage:              MayInclude,
		ControllerUsage:       MayInclude,
		AllowSingleController: true,
		MinTrackers:           Unbounded,
		MaxTrackers:           Unbounded,
		MinSensors:            Unbounded,
		MaxSensors:            Unbounded,
	}
}

// UsageFor returns the effective usage of a sensor.
func (r Rules) UsageFor(s Sensor) Usage {
	if u, ok := r.SensorUsage[s.Label]; ok {
		return u
	}
	switch s.Kind {
	case frame.KindHMD:
		return r.HMDUsage
	case frame.KindController:
		return r.ControllerUsage
	}
	return MayInclude
}

func within(n, lo, hi int) bool {
	if lo != Unbounded && n < lo {
		return false
	}
	if hi != Unbounded && n > hi {
		return false
	}
	return true
}

// Admit reports whether s satisfies every rule over universe u.
func (r Rules) Admit(u Universe, s SensorSubset) bool {
	for _, sensor := range u {
		switch r.UsageFor(sensor) {
		case MustInclude:
			if !s.Contains(sensor.Label) {
				return false
			}
		case CannotInclude:
			if s.Contains(sensor.Label) {
				return false
			}
		}
	}
	if !r.requiredPresent(u) {
		return false
	}
	if !r.AllowSingleController && s.Controllers() == 1 {
		return false
	}
	if len(r.AllowedSets) > 0 {
		return r.matchesAllowed(s)
	}
	if !within(s.Trackers(), r.MinTrackers, r.MaxTrackers) {
		return false
	}
	if !within(s.Size(), r.MinSensors, r.MaxSensors) {
		return false
	}
	if len(r.MinimumCombinations) > 0 {
		return r.extendsMinimum(s)
	}
	return true
}

// requiredPresent reports whether every MustInclude label, and at least one
// sensor of every MustInclude kind, exists in u. A requirement u cannot meet
// rejects every subset.
func (r Rules) requiredPresent(u Universe) bool {
	labels := make(map[string]bool, len(u))
	kinds := make(map[frame.Kind]bool, 3)
	for _, sensor := range u {
		labels[sensor.Label] = true
		kinds[sensor.Kind] = true
	}
	for label, usage := range r.SensorUsage {
		if usage == MustInclude && !labels[label] {
			return false
		}
	}
	if r.HMDUsage == MustInclude && !kinds[frame.KindHMD] {
		return false
	}
	if r.ControllerUsage == MustInclude && !kinds[frame.KindController] {
		return false
	}
	return true
}

func (r Rules) matchesAllowed(s SensorSubset) bool {
	for _, set := range r.AllowedSets {
		want := normalise(set)
		if len(want) != s.Size() {
			continue
		}
		match := true
		for _, l := range want {
			if !s.Contains(l) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (r Rules) extendsMinimum(s SensorSubset) bool {
	for _, base := range r.MinimumCombinations {
		inBase := make(map[string]bool, len(base))
		ok := true
		for _, l := range base {
			inBase[l] = true
			if !s.Contains(l) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, l := range s.included {
			if !inBase[l] && frame.KindOf(l) != frame.KindTracker {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func normalise(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}
