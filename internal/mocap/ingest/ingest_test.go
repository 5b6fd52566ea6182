package ingest

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.features/internal/fsutil"
	"github.com/banshee-data/mocap.features/internal/mocap/frame"
	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/monitoring"
	"github.com/banshee-data/mocap.features/internal/testutil"
)

func formatFrames(header []string, frames []frame.SensorFrame) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ";"))
	b.WriteString("\n")
	for _, f := range frames {
		values := map[string]string{
			ColSensor:   f.Sensor,
			ColSubject:  f.Subject,
			ColActivity: f.Activity,
		}
		nums := []float64{
			f.Position.X, f.Position.Y, f.Position.Z,
			f.Rotation.X, f.Rotation.Y, f.Rotation.Z, f.Rotation.W,
			f.AngularVelocity.X, f.AngularVelocity.Y, f.AngularVelocity.Z,
			f.LinearVelocity.X, f.LinearVelocity.Y, f.LinearVelocity.Z,
			f.BodySize, f.Timestamp,
		}
		for i, col := range Columns[3:] {
			values[col] = strconv.FormatFloat(nums[i], 'g', -1, 64)
		}
		row := make([]string, len(header))
		for i, h := range header {
			row[i] = values[h]
		}
		b.WriteString(strings.Join(row, ";"))
		b.WriteString("\n")
	}
	return b.String()
}

func silence(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = original })
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	return &lines
}

func TestReadRecordings_RoundTrip(t *testing.T) {
	silence(t)

	sensors := []string{frame.Head, frame.Hip}
	frames := testutil.Timeline(sensors, testutil.Times(0, 5, 1))
	other := testutil.Timeline(sensors, testutil.Times(0, 3, 1))
	for i := range other {
		other[i].Activity = "sitting"
	}
	data := formatFrames(Columns, append(frames, other...))

	recs, st, err := ReadRecordings(strings.NewReader(data), recording.DefaultBounds())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Stats{Rows: len(frames) + len(other)}, st)

	walking := recs[0]
	assert.Equal(t, testutil.Activity, walking.Activity)
	assert.Equal(t, testutil.Subject, walking.Subject)
	assert.Equal(t, []string{frame.Head, frame.Hip}, walking.Sensors())
	assert.Equal(t, 5, walking.Len())

	head := walking.Frames(frame.Head)[0]
	want := testutil.SwayFrame(frame.Head, 1)
	assert.InDelta(t, want.Position.X, head.Position.X, 1e-12)
	assert.InDelta(t, want.Rotation.W, head.Rotation.W, 1e-12)
	assert.InDelta(t, want.LinearVelocity.Z, head.LinearVelocity.Z, 1e-12)
	assert.Equal(t, 1.0, head.BodySize)

	assert.Equal(t, "sitting", recs[1].Activity)
	assert.Equal(t, 3, recs[1].Len())
}

func TestReadRecordings_ColumnOrderIsFree(t *testing.T) {
	silence(t)

	header := append([]string(nil), Columns...)
	for i, j := 0, len(header)-1; i < j; i, j = i+1, j-1 {
		header[i], header[j] = header[j], header[i]
	}
	header = append(header, "extra")
	data := formatFrames(header, testutil.Timeline([]string{frame.Head}, testutil.Times(0, 3, 1)))

	recs, _, err := ReadRecordings(strings.NewReader(data), nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 3, recs[0].Len())
}

func TestReadRecordings_SkipsBadRows(t *testing.T) {
	lines := silence(t)

	frames := testutil.Timeline([]string{frame.Head}, testutil.Times(0, 3, 1))
	data := formatFrames(Columns, frames)
	rows := strings.Split(strings.TrimSpace(data), "\n")
	bad := strings.Replace(rows[2], ";1.7;", ";abc;", 1)
	dup := rows[3]
	data = strings.Join([]string{rows[0], rows[1], bad, rows[3], dup, rows[4], "head;;walking"}, "\n") + "\n"

	recs, st, err := ReadRecordings(strings.NewReader(data), nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 6, st.Rows)
	assert.Equal(t, 3, st.RowsSkipped)
	assert.Equal(t, 2, recs[0].Len())
	assert.Len(t, *lines, 3)
}

func TestReadRecordings_DecimalComma(t *testing.T) {
	silence(t)

	data := formatFrames(Columns, testutil.Timeline([]string{frame.Hip}, []float64{0, 0.5, 1}))
	data = strings.ReplaceAll(data, "0.5", "0,5")
	recs, st, err := ReadRecordings(strings.NewReader(data), nil)
	require.NoError(t, err)
	assert.Zero(t, st.RowsSkipped)
	assert.Equal(t, 0.5, recs[0].Frames(frame.Hip)[0].Timestamp)
}

func TestReadRecordings_MissingColumn(t *testing.T) {
	t.Parallel()

	_, _, err := ReadRecordings(strings.NewReader("sensor;subject;activity\n"), nil)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.ErrorContains(t, err, "timestamp")

	_, _, err = ReadRecordings(strings.NewReader(""), nil)
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	silence(t)

	mfs := fsutil.NewMemoryFileSystem()
	sensors := []string{frame.Head, frame.Hip}
	mfs.WriteFile("/captures/s01_walking.csv", []byte(formatFrames(Columns, testutil.Timeline(sensors, testutil.Times(0, 4, 1)))))
	mfs.WriteFile("/captures/broken.CSV", []byte("sensor;subject\nhead;s01\n"))
	mfs.WriteFile("/captures/notes.txt", []byte("ignore me"))
	mfs.WriteFile("/captures/nested/s02.csv", []byte(formatFrames(Columns, testutil.Timeline(sensors, testutil.Times(0, 4, 1)))))

	recs, st, err := LoadDir(mfs, "/captures", recording.DefaultBounds())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 1, st.FilesSkipped)
	assert.Equal(t, 10, st.Rows)
	assert.Equal(t, 4, recs[0].Len())

	_, _, err = LoadDir(mfs, "/missing", nil)
	assert.Error(t, err)

	assert.True(t, IsCaptureFile("a.Csv"))
	assert.False(t, IsCaptureFile("a.csv.bak"))
}

func TestReadRecordings_DroppedRowLeavesPlaceholder(t *testing.T) {
	lines := silence(t)

	frames := testutil.Timeline([]string{frame.Head, frame.Hip}, testutil.Times(0, 10, 1))
	rows := strings.Split(strings.TrimSpace(formatFrames(Columns, frames)), "\n")
	// rows[8] is hip at t=3; a broken timestamp gets it skipped
	require.True(t, strings.HasPrefix(rows[8], frame.Hip+";"))
	require.True(t, strings.HasSuffix(rows[8], ";3"))
	rows[8] = strings.TrimSuffix(rows[8], ";3") + ";x"

	recs, st, err := ReadRecordings(strings.NewReader(strings.Join(rows, "\n")+"\n"), recording.DefaultBounds())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, st.RowsSkipped)
	assert.Len(t, *lines, 1)

	rec := recs[0]
	assert.Equal(t, 1, rec.MissingCount())
	require.Equal(t, 10, rec.Len())
	assert.True(t, rec.Frames(frame.Hip)[2].Missing)

	res, err := rec.Segment(3, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Discarded)
	require.Len(t, res.Windows, 4)
	for _, w := range res.Windows {
		head, hip := w.Frames(frame.Head), w.Frames(frame.Hip)
		require.Len(t, hip, len(head))
		for i := range head {
			assert.Equal(t, head[i].Timestamp, hip[i].Timestamp)
		}
	}
}
