package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.features/internal/mocap/features"
	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

func smallPipeline(t *testing.T) *features.Pipeline {
	t.Helper()
	cfg := features.DefaultConfig([]string{frame.Head, frame.Hip})
	cfg.Types = features.FeatureTypes{RangeOfMotion: true}
	cfg.IncludeSubject = true
	p, err := features.NewPipeline(cfg)
	require.NoError(t, err)
	return p
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	p := smallPipeline(t)
	nan := math.NaN()
	ds := &features.Dataset{
		Header: p.Header(),
		Rows: []features.FeatureVector{
			{Values: []float64{0.25, nan}, Subject: "s01", Activity: "walking"},
			{Values: []float64{1, 2}, Subject: "s02", Activity: "jumping"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, p, ds))
	want := strings.Join([]string{
		"head_rom_xz_area;hip_rom_xz_area;subject;activity",
		"1;2;s02;jumping",
		"0.25;NaN;s01;walking",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteMaskedCSV(t *testing.T) {
	t.Parallel()

	p := smallPipeline(t)
	ds := &features.Dataset{Rows: []features.FeatureVector{{Values: []float64{3, 4}, Subject: "s01", Activity: "walking"}}}

	var buf bytes.Buffer
	mask := p.Mask(func(s string) bool { return s == frame.Hip })
	require.NoError(t, WriteMaskedCSV(&buf, p, ds, mask))
	assert.Equal(t, "hip_rom_xz_area;subject;activity\n4;s01;walking\n", buf.String())

	err := WriteMaskedCSV(&bytes.Buffer{}, p, ds, []int{9})
	assert.ErrorContains(t, err, "out of range")

	short := &features.Dataset{Rows: []features.FeatureVector{{Values: []float64{1}, Activity: "x"}}}
	err = WriteCSV(&bytes.Buffer{}, p, short)
	assert.ErrorIs(t, err, features.ErrHeaderMismatch)
}
