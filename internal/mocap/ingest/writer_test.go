package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
	"github.com/banshee-data/mocap.features/internal/testutil"
)

func TestWriteFrames_RoundTrip(t *testing.T) {
	silence(t)

	sensors := []string{frame.Head, frame.Hip, frame.LeftFoot}
	frames := testutil.Timeline(sensors, testutil.Times(0, 2, 0.5))

	var buf bytes.Buffer
	require.NoError(t, WriteFrames(&buf, frames))

	recs, st, err := ReadRecordings(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: len(frames)}, st)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.ElementsMatch(t, sensors, rec.Sensors())
	// the first frame per sensor only seeds derivation
	assert.Equal(t, 4, rec.Len())
	got := rec.Frames(frame.Hip)[0]
	assert.Equal(t, frames[4].Position, got.Position)
	assert.Equal(t, frames[4].Rotation, got.Rotation)
	assert.Equal(t, 0.5, got.Timestamp)
}
