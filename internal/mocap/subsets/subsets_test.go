package subsets

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

func keys(ss []SensorSubset) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Key()
	}
	return out
}

func generate(t *testing.T, labels []string, rules Rules) []SensorSubset {
	t.Helper()
	g := &Generator{Universe: NewUniverse(labels), Rules: rules, Workers: 2}
	out, err := g.Generate(context.Background())
	require.NoError(t, err)
	return out
}

var fourSensors = []string{frame.Head, frame.LeftHand, frame.RightHand, frame.Hip}

func TestAll_PowerSetSize(t *testing.T) {
	t.Parallel()

	pool := []string{frame.Head, frame.LeftHand, frame.RightHand, frame.Hip, frame.Spine, frame.LeftFoot, frame.RightFoot}
	for n := 1; n <= len(pool); n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			u := NewUniverse(pool[:n])
			all, err := All(u)
			require.NoError(t, err)
			assert.Len(t, all, 1<<n-1)

			seen := map[string]bool{}
			for _, s := range all {
				assert.Positive(t, s.Size())
				assert.Equal(t, n, s.Size()+len(s.Excluded()))
				assert.False(t, seen[s.Key()], "duplicate %s", s)
				seen[s.Key()] = true
			}
		})
	}
}

func TestNewUniverse(t *testing.T) {
	t.Parallel()

	u := NewUniverse([]string{frame.Hip, frame.Head, frame.Hip, "", frame.LeftHand})
	assert.Equal(t, []string{frame.Head, frame.Hip, frame.LeftHand}, u.Labels())
	assert.Equal(t, frame.KindHMD, u[0].Kind)
	assert.Equal(t, frame.KindController, u[2].Kind)

	_, err := All(make(Universe, MaxUniverse+1))
	assert.ErrorIs(t, err, ErrUniverseTooLarge)
}

func TestSensorSubset_Counts(t *testing.T) {
	t.Parallel()

	u := NewUniverse(fourSensors)
	// head, hip, lHand, rHand in sorted order; mask picks head and lHand
	s := newSubset(u, 0b0101)
	assert.Equal(t, []string{frame.Head, frame.LeftHand}, s.Included())
	assert.Equal(t, []string{frame.Hip, frame.RightHand}, s.Excluded())
	assert.Equal(t, 1, s.HMDs())
	assert.Equal(t, 1, s.Controllers())
	assert.Equal(t, 0, s.Trackers())
	assert.True(t, s.Contains(frame.Head))
	assert.False(t, s.Contains(frame.Hip))
	assert.Equal(t, "head+lHand", s.Key())
	assert.Equal(t, "{head, lHand}", s.String())
}

func TestGenerate_PruningExample(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	rules.HMDUsage = MustInclude
	rules.AllowSingleController = false

	got := generate(t, fourSensors, rules)
	want := []string{"head", "head+hip", "head+lHand+rHand", "head+hip+lHand+rHand"}
	if diff := cmp.Diff(want, keys(got)); diff != "" {
		t.Errorf("admissible subsets mismatch (-want +got):\n%s", diff)
	}
	for _, s := range got {
		assert.True(t, s.Contains(frame.Head))
		assert.NotEqual(t, 1, s.Controllers())
	}
}

func TestGenerate_DefaultRulesAdmitEverything(t *testing.T) {
	t.Parallel()

	got := generate(t, fourSensors, DefaultRules())
	assert.Len(t, got, 15)
	for i := 1; i < len(got); i++ {
		assert.True(t, Less(got[i-1], got[i]), "%s before %s", got[i-1], got[i])
	}
}

func TestGenerate_Rules(t *testing.T) {
	t.Parallel()

	t.Run("cannot include controllers", func(t *testing.T) {
		rules := DefaultRules()
		rules.ControllerUsage = CannotInclude
		assert.Equal(t, []string{"head", "hip", "head+hip"}, keys(generate(t, fourSensors, rules)))
	})

	t.Run("per-sensor override", func(t *testing.T) {
		rules := DefaultRules()
		rules.SensorUsage = map[string]Usage{frame.Hip: MustInclude, frame.Head: CannotInclude}
		rules.AllowSingleController = false
		assert.Equal(t, []string{"hip", "hip+lHand+rHand"}, keys(generate(t, fourSensors, rules)))
	})

	t.Run("tracker bounds", func(t *testing.T) {
		labels := []string{frame.Head, frame.Hip, frame.Spine, frame.LeftFoot}
		rules := DefaultRules()
		rules.HMDUsage = MustInclude
		rules.MinTrackers = 1
		rules.MaxTrackers = 2
		got := generate(t, labels, rules)
		// head plus 1 or 2 of 3 trackers
		assert.Len(t, got, 3+3)
		for _, s := range got {
			assert.GreaterOrEqual(t, s.Trackers(), 1)
			assert.LessOrEqual(t, s.Trackers(), 2)
		}
	})

	t.Run("sensor count bounds", func(t *testing.T) {
		rules := DefaultRules()
		rules.MinSensors = 2
		rules.MaxSensors = 2
		assert.Len(t, generate(t, fourSensors, rules), 6)
	})

	t.Run("allowed sets supersede count rules", func(t *testing.T) {
		rules := DefaultRules()
		rules.MinSensors = 4
		rules.AllowedSets = [][]string{{frame.Hip, frame.Head}, {frame.Head, frame.LeftHand}}
		rules.AllowSingleController = false
		assert.Equal(t, []string{"head+hip"}, keys(generate(t, fourSensors, rules)))
	})

	t.Run("minimum combinations", func(t *testing.T) {
		labels := []string{frame.Head, frame.LeftHand, frame.RightHand, frame.Hip, frame.LeftFoot}
		rules := DefaultRules()
		rules.MinimumCombinations = [][]string{{frame.Head, frame.LeftHand, frame.RightHand}}
		want := []string{
			"head+lHand+rHand",
			"head+hip+lHand+rHand",
			"head+lFoot+lHand+rHand",
			"head+hip+lFoot+lHand+rHand",
		}
		assert.Equal(t, want, keys(generate(t, labels, rules)))

		rules.MaxTrackers = 1
		assert.Len(t, generate(t, labels, rules), 3)
	})

	t.Run("required sensor outside the universe", func(t *testing.T) {
		rules := DefaultRules()
		rules.SensorUsage = map[string]Usage{frame.Hip: MustInclude}
		labels := []string{frame.Head, frame.LeftHand, frame.RightHand}
		assert.Empty(t, generate(t, labels, rules))

		rules.SensorUsage = map[string]Usage{frame.Hip: CannotInclude}
		assert.Len(t, generate(t, labels, rules), 7)
	})

	t.Run("required kind missing from the universe", func(t *testing.T) {
		rules := DefaultRules()
		rules.HMDUsage = MustInclude
		assert.Empty(t, generate(t, []string{frame.Hip, frame.LeftHand, frame.RightHand}, rules))

		rules = DefaultRules()
		rules.ControllerUsage = MustInclude
		assert.Empty(t, generate(t, []string{frame.Head, frame.Hip}, rules))
	})

	t.Run("contradiction yields nothing", func(t *testing.T) {
		rules := DefaultRules()
		rules.SensorUsage = map[string]Usage{frame.Hip: MustInclude}
		rules.MaxTrackers = 0
		assert.Empty(t, generate(t, fourSensors, rules))
	})
}

func TestGenerate_WorkerCountDoesNotChangeResult(t *testing.T) {
	t.Parallel()

	labels := []string{frame.Head, frame.LeftHand, frame.RightHand, frame.Hip, frame.Spine,
		frame.LeftFoot, frame.RightFoot, frame.LeftLeg, frame.RightLeg, frame.LeftForeArm,
		frame.RightForeArm, frame.LeftUpperArm, frame.RightUpperArm}
	rules := DefaultRules()
	rules.AllowSingleController = false

	var baseline []string
	for _, workers := range []int{1, 4, 0} {
		g := &Generator{Universe: NewUniverse(labels), Rules: rules, Workers: workers}
		got, err := g.Generate(context.Background())
		require.NoError(t, err)
		if baseline == nil {
			baseline = keys(got)
			// 10 trackers x {none, both controllers} x {with, without head}, minus empty
			assert.Len(t, got, (1<<10)*2*2-1)
			continue
		}
		assert.Equal(t, baseline, keys(got), "workers=%d", workers)
	}
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Generator{Universe: NewUniverse(fourSensors), Rules: DefaultRules()}).Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = (&Generator{Universe: make(Universe, 25)}).Generate(context.Background())
	assert.ErrorIs(t, err, ErrUniverseTooLarge)
}

func TestUsage(t *testing.T) {
	t.Parallel()

	for _, u := range []Usage{MayInclude, MustInclude, CannotInclude} {
		got, err := ParseUsage(u.String())
		require.NoError(t, err)
		assert.Equal(t, u, got)
	}
	got, err := ParseUsage("")
	require.NoError(t, err)
	assert.Equal(t, MayInclude, got)
	_, err = ParseUsage("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "usage(9)", Usage(9).String())
}
