package diagnostics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/testutil"
)

func TestWriteHeightPlot(t *testing.T) {
	t.Parallel()

	rec := recording.New(testutil.Subject, testutil.Activity, recording.DefaultBounds())
	frames := testutil.Timeline([]string{frame.Head, frame.Hip}, testutil.Times(0, 4, 0.5))
	for i := range frames {
		if frames[i].Sensor == frame.Head && frames[i].Timestamp == 2 {
			frames[i].Position.Y = 3
		}
		require.NoError(t, rec.AddFrame(frames[i]))
	}
	require.Positive(t, rec.InvalidCount())

	p, err := HeightPlot(rec)
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, testutil.Activity)

	var buf bytes.Buffer
	require.NoError(t, WriteHeightPlot(&buf, rec))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "output is not a PNG")
	assert.Equal(t, "height_s01_walking.png", HeightPlotName(rec))
	assert.Equal(t, "height_s01_unknown.png", HeightPlotName(recording.New("s01", "../", nil)))
}

func TestWriteHeightPlot_EmptyRecording(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec := recording.New(testutil.Subject, testutil.Activity, nil)
	require.NoError(t, WriteHeightPlot(&buf, rec))
	assert.NotZero(t, buf.Len())
}

func TestWindowYieldChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WindowYieldChart(&buf, []YieldEntry{
		{Label: "s01/walking", Kept: 8, Discarded: 2},
		{Label: "s02/jumping", Kept: 3, Skipped: 1},
	})
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "Window Yield")
	assert.Contains(t, html, "s01/walking")
	assert.Contains(t, html, "discarded")
}

func TestGenerateColors(t *testing.T) {
	t.Parallel()

	assert.Nil(t, generateColors(0))
	cs := generateColors(3)
	require.Len(t, cs, 3)
	assert.NotEqual(t, cs[0], cs[1])
	r, g, b := hslToRGB(0, 0, 0.5)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}
