// Package config loads the JSON pipeline configuration and converts it into
// the explicit structs handed to ingestion, feature extraction and subset
// generation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/mocap.features/internal/mocap/features"
	"github.com/banshee-data/mocap.features/internal/mocap/frame"
	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/mocap/subsets"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults used when a field is omitted.
const (
	DefaultWindowSize = 3.0
	DefaultStep       = 1.0
)

// StatOptions switches the optional statistics of one feature type.
type StatOptions struct {
	Max          *bool `json:"max,omitempty"`
	Min          *bool `json:"min,omitempty"`
	CrossingRate *bool `json:"crossing_rate,omitempty"`
}

// PairLimit is a tighter distance limit for one sensor pair.
type PairLimit struct {
	A   string  `json:"a"`
	B   string  `json:"b"`
	Max float64 `json:"max"`
}

// BoundsConfig overlays the default anatomical plausibility table.
type BoundsConfig struct {
	Disabled    *bool              `json:"disabled,omitempty"`
	MaxHeight   map[string]float64 `json:"max_height,omitempty"`
	MaxDistance *float64           `json:"max_distance,omitempty"`
	Pairs       []PairLimit        `json:"pairs,omitempty"`
}

// PipelineConfig is the root configuration. Omitted fields fall back to the
// defaults returned by the Get* accessors.
type PipelineConfig struct {
	// Windowing
	WindowSize *float64 `json:"window_size,omitempty"` // seconds
	Step       *float64 `json:"step,omitempty"`        // seconds
	Workers    *int     `json:"workers,omitempty"`

	// Feature extraction
	Sensors         []string               `json:"sensors,omitempty"`
	ExcludedSensors []string               `json:"excluded_sensors,omitempty"`
	FeatureTypes    *features.FeatureTypes `json:"feature_types,omitempty"`
	StatTable       map[string]StatOptions `json:"stat_table,omitempty"`
	FeatureScale    *float64               `json:"feature_scale,omitempty"`
	IncludeSubject  *bool                  `json:"include_subject,omitempty"`
	IncludeActivity *bool                  `json:"include_activity,omitempty"`
	OnMismatch      *string                `json:"on_mismatch,omitempty"` // "skip" or "fail"
	Bounds          *BoundsConfig          `json:"bounds,omitempty"`
	SensorUsage     map[string]string      `json:"sensor_usage,omitempty"`

	// Subset generation
	HMDUsage              *string    `json:"hmd_usage,omitempty"`
	ControllerUsage       *string    `json:"controller_usage,omitempty"`
	AllowSingleController *bool      `json:"allow_single_controller,omitempty"`
	MinTrackers           *int       `json:"min_trackers,omitempty"`
	MaxTrackers           *int       `json:"max_trackers,omitempty"`
	MinSensors            *int       `json:"min_sensors,omitempty"`
	MaxSensors            *int       `json:"max_sensors,omitempty"`
	AllowedSets           [][]string `json:"allowed_sets,omitempty"`
	MinimumCombinations   [][]string `json:"minimum_combinations,omitempty"`
}

// EmptyPipelineConfig returns a PipelineConfig with every field unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file. The file must
// have a .json extension and be at most 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/<name>/ and internal/mocap/
		"../../../../" + DefaultConfigPath, // from internal/mocap/<pkg>/
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *PipelineConfig) Validate() error {
	if c.WindowSize != nil && *c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %g", *c.WindowSize)
	}
	if c.Step != nil && *c.Step <= 0 {
		return fmt.Errorf("step must be positive, got %g", *c.Step)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.FeatureScale != nil && *c.FeatureScale <= 0 {
		return fmt.Errorf("feature_scale must be positive, got %g", *c.FeatureScale)
	}
	if _, err := c.GetMismatchPolicy(); err != nil {
		return err
	}
	if _, err := c.statTable(); err != nil {
		return err
	}
	if _, err := c.SubsetRules(); err != nil {
		return err
	}

	known := make(map[string]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		if known[s] {
			return fmt.Errorf("sensor %q listed twice", s)
		}
		known[s] = true
	}
	for _, s := range c.ExcludedSensors {
		if len(c.Sensors) > 0 && !known[s] {
			return fmt.Errorf("excluded sensor %q is not in sensors", s)
		}
	}

	if b := c.Bounds; b != nil {
		for s, h := range b.MaxHeight {
			if h <= 0 {
				return fmt.Errorf("bounds.max_height[%s] must be positive, got %g", s, h)
			}
		}
		for _, p := range b.Pairs {
			if p.A == "" || p.B == "" || p.A == p.B {
				return fmt.Errorf("bounds.pairs entry %q/%q must name two different sensors", p.A, p.B)
			}
			if p.Max <= 0 {
				return fmt.Errorf("bounds.pairs %s/%s max must be positive, got %g", p.A, p.B, p.Max)
			}
		}
	}
	return nil
}

// GetWindowSize returns the window duration in seconds.
func (c *PipelineConfig) GetWindowSize() float64 {
	if c.WindowSize == nil {
		return DefaultWindowSize
	}
	return *c.WindowSize
}

// GetStep returns the window step in seconds.
func (c *PipelineConfig) GetStep() float64 {
	if c.Step == nil {
		return DefaultStep
	}
	return *c.Step
}

// GetWorkers returns the worker count. Zero means one per CPU.
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSensors returns the expected sensor universe, defaulting to every
// known sensor.
func (c *PipelineConfig) GetSensors() []string {
	if len(c.Sensors) == 0 {
		return frame.AllSensors()
	}
	return append([]string(nil), c.Sensors...)
}

// GetFeatureScale returns the feature scale factor.
func (c *PipelineConfig) GetFeatureScale() float64 {
	if c.FeatureScale == nil {
		return 1
	}
	return *c.FeatureScale
}

// GetIncludeSubject returns whether the subject label column is appended.
func (c *PipelineConfig) GetIncludeSubject() bool {
	if c.IncludeSubject == nil {
		return false
	}
	return *c.IncludeSubject
}

// GetIncludeActivity returns whether the activity label column is appended.
func (c *PipelineConfig) GetIncludeActivity() bool {
	if c.IncludeActivity == nil {
		return true
	}
	return *c.IncludeActivity
}

// GetMismatchPolicy parses on_mismatch.
func (c *PipelineConfig) GetMismatchPolicy() (features.MismatchPolicy, error) {
	if c.OnMismatch == nil {
		return features.MismatchSkip, nil
	}
	switch *c.OnMismatch {
	case "", "skip":
		return features.MismatchSkip, nil
	case "fail":
		return features.MismatchFail, nil
	}
	return features.MismatchSkip, fmt.Errorf("on_mismatch must be \"skip\" or \"fail\", got %q", *c.OnMismatch)
}

func featureTypeByName(name string) (features.FeatureType, bool) {
	for t := features.TypePosition; t <= features.TypeRangeOfMotion; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// statTable overlays the configured entries on the default table.
func (c *PipelineConfig) statTable() (features.StatTable, error) {
	table := features.DefaultStatTable()
	for name, o := range c.StatTable {
		t, ok := featureTypeByName(name)
		if !ok {
			return nil, fmt.Errorf("stat_table: unknown feature type %q", name)
		}
		cur, ok := table[t]
		if !ok {
			cur = features.OptionalStats{Max: true, Min: true, CrossingRate: true}
		}
		if o.Max != nil {
			cur.Max = *o.Max
		}
		if o.Min != nil {
			cur.Min = *o.Min
		}
		if o.CrossingRate != nil {
			cur.CrossingRate = *o.CrossingRate
		}
		table[t] = cur
	}
	return table, nil
}

// FeatureConfig converts the configuration for the feature pipeline.
func (c *PipelineConfig) FeatureConfig() (features.Config, error) {
	fc := features.DefaultConfig(c.GetSensors())
	fc.Excluded = append([]string(nil), c.ExcludedSensors...)
	if c.FeatureTypes != nil {
		fc.Types = *c.FeatureTypes
	}
	table, err := c.statTable()
	if err != nil {
		return features.Config{}, err
	}
	fc.StatTable = table
	fc.FeatureScale = c.GetFeatureScale()
	fc.IncludeSubject = c.GetIncludeSubject()
	fc.IncludeActivity = c.GetIncludeActivity()
	if fc.OnMismatch, err = c.GetMismatchPolicy(); err != nil {
		return features.Config{}, err
	}
	return fc, nil
}

func parseUsage(field string, v *string) (subsets.Usage, error) {
	if v == nil {
		return subsets.MayInclude, nil
	}
	u, err := subsets.ParseUsage(*v)
	if err != nil {
		return u, fmt.Errorf("%s: %w", field, err)
	}
	return u, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// SubsetRules converts the configuration for the subset generator.
func (c *PipelineConfig) SubsetRules() (subsets.Rules, error) {
	r := subsets.DefaultRules()
	var err error
	if r.HMDUsage, err = parseUsage("hmd_usage", c.HMDUsage); err != nil {
		return r, err
	}
	if r.ControllerUsage, err = parseUsage("controller_usage", c.ControllerUsage); err != nil {
		return r, err
	}
	if len(c.SensorUsage) > 0 {
		r.SensorUsage = make(map[string]subsets.Usage, len(c.SensorUsage))
		for label, v := range c.SensorUsage {
			u, err := subsets.ParseUsage(v)
			if err != nil {
				return r, fmt.Errorf("sensor_usage[%s]: %w", label, err)
			}
			r.SensorUsage[label] = u
		}
	}
	if c.AllowSingleController != nil {
		r.AllowSingleController = *c.AllowSingleController
	}
	r.MinTrackers = intOr(c.MinTrackers, subsets.Unbounded)
	r.MaxTrackers = intOr(c.MaxTrackers, subsets.Unbounded)
	r.MinSensors = intOr(c.MinSensors, subsets.Unbounded)
	r.MaxSensors = intOr(c.MaxSensors, subsets.Unbounded)
	r.AllowedSets = c.AllowedSets
	r.MinimumCombinations = c.MinimumCombinations
	return r, nil
}

// GetBounds returns the plausibility table: the defaults overlaid with the
// configured entries, or nil when validation is disabled.
func (c *PipelineConfig) GetBounds() *recording.Bounds {
	b := recording.DefaultBounds()
	bc := c.Bounds
	if bc == nil {
		return b
	}
	if bc.Disabled != nil && *bc.Disabled {
		return nil
	}
	for s, h := range bc.MaxHeight {
		b.MaxHeight[s] = h
	}
	if bc.MaxDistance != nil {
		b.MaxDistance = *bc.MaxDistance
	}
	for _, p := range bc.Pairs {
		b.PairMaxDistance[recording.Pair(p.A, p.B)] = p.Max
	}
	return b
}
