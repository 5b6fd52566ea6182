// Package features turns windowed recordings into labelled feature vectors.
//
// A Pipeline compiles its Config into an ordered plan of blocks once. Both
// Header and Extract walk that plan, so the column order of the header and
// the value order of every vector cannot drift apart.
package features

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/banshee-data/mocap.features/internal/mocap/geometry"
	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/mocap/stats"
)

var (
	// ErrSensorSetMismatch is returned when a window does not carry exactly
	// the configured sensor universe.
	ErrSensorSetMismatch = errors.New("window sensor set does not match configured sensors")
	// ErrHeaderMismatch is returned when a vector's length differs from the
	// header. It indicates a broken plan and must not be skipped.
	ErrHeaderMismatch = errors.New("feature vector length does not match header")
	// ErrNoSensors is returned by NewPipeline for an empty universe.
	ErrNoSensors = errors.New("no sensors configured")
)

// Label column names.
const (
	ColumnSubject  = "subject"
	ColumnActivity = "activity"
)

// Column describes one numeric feature column.
type Column struct {
	Name    string
	Sensors []string
	Type    FeatureType
}

// block is one unit of the plan. Collector blocks emit one value per stat;
// scalar blocks emit exactly one value.
type block struct {
	prefix  string
	sensors []string
	kind    FeatureType
	stats   []stats.Stat
	collect func(w *recording.Recording, n int, bodySize float64) *stats.Collector
	scalar  func(w *recording.Recording, n int, bodySize float64) float64
}

// Pipeline extracts feature vectors from windows. It is immutable after
// construction and safe for concurrent use.
type Pipeline struct {
	cfg      Config
	universe []string
	plan     []block
	columns  []Column
	scale    float64
}

// NewPipeline validates cfg and compiles its plan.
func NewPipeline(cfg Config) (*Pipeline, error) {
	universe := sortedUnique(cfg.Sensors)
	if len(universe) == 0 {
		return nil, ErrNoSensors
	}
	if cfg.StatTable == nil {
		cfg.StatTable = DefaultStatTable()
	}
	excluded := make(map[string]bool, len(cfg.Excluded))
	for _, s := range cfg.Excluded {
		excluded[s] = true
	}
	var active []string
	for _, s := range universe {
		if !excluded[s] {
			active = append(active, s)
		}
	}

	p := &Pipeline{cfg: cfg, universe: universe, scale: cfg.FeatureScale}
	if p.scale == 0 {
		p.scale = 1
	}

	for _, s := range active {
		for _, sig := range sensorSignals {
			if !cfg.Types.Enabled(sig.kind) {
				continue
			}
			p.plan = append(p.plan, sensorBlock(s, sig, cfg.StatTable.Stats(sig.kind)))
		}
	}
	if cfg.Types.Pairwise {
		pairStats := cfg.StatTable.Stats(TypePairwise)
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				for _, sig := range pairSignals {
					p.plan = append(p.plan, pairBlock(active[i], active[j], sig, pairStats))
				}
			}
		}
	}
	if cfg.Types.RangeOfMotion {
		for _, s := range active {
			p.plan = append(p.plan, romBlock(s))
		}
	}

	for _, b := range p.plan {
		if b.scalar != nil {
			p.columns = append(p.columns, Column{Name: b.prefix, Sensors: b.sensors, Type: b.kind})
			continue
		}
		for _, st := range b.stats {
			p.columns = append(p.columns, Column{Name: b.prefix + "_" + st.String(), Sensors: b.sensors, Type: b.kind})
		}
	}
	return p, nil
}

func sensorBlock(sensor string, sig sensorSignal, st []stats.Stat) block {
	return block{
		prefix:  sensor + "_" + sig.name,
		sensors: []string{sensor},
		kind:    sig.kind,
		stats:   st,
		collect: func(w *recording.Recording, n int, bodySize float64) *stats.Collector {
			c := stats.NewCollector(bodySize, sig.scaled)
			for _, f := range w.Frames(sensor)[:n] {
				c.Add(sig.value(f), f.Duration)
			}
			return c
		},
	}
}

func pairBlock(a, b string, sig pairSignal, st []stats.Stat) block {
	return block{
		prefix:  a + "__" + b + "_" + sig.name,
		sensors: []string{a, b},
		kind:    TypePairwise,
		stats:   st,
		collect: func(w *recording.Recording, n int, bodySize float64) *stats.Collector {
			c := stats.NewCollector(bodySize, true)
			fa, fb := w.Frames(a), w.Frames(b)
			for i := 0; i < n; i++ {
				c.Add(sig.value(fa[i], fb[i]), fa[i].Duration)
			}
			return c
		},
	}
}

func romBlock(sensor string) block {
	return block{
		prefix:  sensor + "_rom_xz_area",
		sensors: []string{sensor},
		kind:    TypeRangeOfMotion,
		scalar: func(w *recording.Recording, n int, bodySize float64) float64 {
			frames := w.Frames(sensor)[:n]
			pts := make([]geometry.Point2, len(frames))
			for i, f := range frames {
				pts[i] = geometry.Point2{X: f.Position.X, Y: f.Position.Z}
			}
			return geometry.PolygonArea(geometry.ConvexHull2D(pts)) / (bodySize * bodySize)
		},
	}
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Config returns the configuration the pipeline was built from.
func (p *Pipeline) Config() Config { return p.cfg }

// Sensors returns the sorted expected sensor universe.
func (p *Pipeline) Sensors() []string {
	return append([]string(nil), p.universe...)
}

// Width is the number of numeric feature columns.
func (p *Pipeline) Width() int { return len(p.columns) }

// Columns returns the numeric feature columns in order.
func (p *Pipeline) Columns() []Column {
	return append([]Column(nil), p.columns...)
}

// Header returns the column names, ending with the optional label columns.
func (p *Pipeline) Header() []string {
	out := make([]string, 0, len(p.columns)+2)
	for _, c := range p.columns {
		out = append(out, c.Name)
	}
	if p.cfg.IncludeSubject {
		out = append(out, ColumnSubject)
	}
	if p.cfg.IncludeActivity {
		out = append(out, ColumnActivity)
	}
	return out
}

// Mask returns the header indices to retain when only sensors accepted by
// keep are available. Label columns are always retained.
func (p *Pipeline) Mask(keep func(sensor string) bool) []int {
	out := MaskColumns(p.columns, keep)
	n := len(p.columns)
	if p.cfg.IncludeSubject {
		out = append(out, n)
		n++
	}
	if p.cfg.IncludeActivity {
		out = append(out, n)
	}
	return out
}

// MaskColumns returns the indices of columns whose sensors are all accepted
// by keep.
func MaskColumns(columns []Column, keep func(sensor string) bool) []int {
	var out []int
	for i, c := range columns {
		ok := true
		for _, s := range c.Sensors {
			if !keep(s) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// FeatureVector is one labelled example.
type FeatureVector struct {
	Values   []float64
	Subject  string
	Activity string
	// Start is the nominal start time of the source window.
	Start float64
}

// Row renders v against the pipeline's header. NaN is written as "NaN".
func (p *Pipeline) Row(v FeatureVector) []string {
	out := make([]string, 0, len(v.Values)+2)
	for _, x := range v.Values {
		out = append(out, strconv.FormatFloat(x, 'g', -1, 64))
	}
	if p.cfg.IncludeSubject {
		out = append(out, v.Subject)
	}
	if p.cfg.IncludeActivity {
		out = append(out, v.Activity)
	}
	return out
}

// Extract computes the feature vector of one window.
func (p *Pipeline) Extract(w *recording.Recording) (FeatureVector, error) {
	if got := w.Sensors(); !equalStrings(got, p.universe) {
		return FeatureVector{}, fmt.Errorf("%w: got %v, want %v", ErrSensorSetMismatch, got, p.universe)
	}
	n := w.Len()
	bodySize := w.BodySize()
	if bodySize <= 0 {
		bodySize = 1
	}

	values := make([]float64, 0, len(p.columns))
	for _, b := range p.plan {
		if b.scalar != nil {
			values = append(values, b.scalar(w, n, bodySize)*p.scale)
			continue
		}
		c := b.collect(w, n, bodySize)
		for _, st := range b.stats {
			values = append(values, c.Value(st)*p.scale)
		}
	}
	if len(values) != len(p.columns) {
		return FeatureVector{}, fmt.Errorf("%w: %d values, %d columns", ErrHeaderMismatch, len(values), len(p.columns))
	}
	return FeatureVector{Values: values, Subject: w.Subject, Activity: w.Activity, Start: w.Start()}, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
