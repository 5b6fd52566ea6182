// Package ingest reads semicolon-separated capture files into recordings.
//
// Columns are located by header name, so their order is free. Rows that
// cannot be parsed or that break chronological order are logged and skipped;
// files that cannot be read are logged and skipped by LoadDir.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/mocap.features/internal/fsutil"
	"github.com/banshee-data/mocap.features/internal/mocap/frame"
	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/monitoring"
)

// Separator is the field separator of capture files.
const Separator = ';'

// Column names.
const (
	ColSensor   = "sensor"
	ColSubject  = "subject"
	ColActivity = "activity"
	ColBodySize = "body_size"
	ColTime     = "timestamp"
)

// Columns lists every required column in canonical order.
var Columns = []string{
	ColSensor, ColSubject, ColActivity,
	"pos_x", "pos_y", "pos_z",
	"rot_x", "rot_y", "rot_z", "rot_w",
	"ang_vel_x", "ang_vel_y", "ang_vel_z",
	"lin_vel_x", "lin_vel_y", "lin_vel_z",
	ColBodySize, ColTime,
}

// ErrMissingColumn is returned when a header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Stats counts what a read consumed and skipped.
type Stats struct {
	Files        int `json:"files"`
	FilesSkipped int `json:"files_skipped"`
	Rows         int `json:"rows"`
	RowsSkipped  int `json:"rows_skipped"`
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.FilesSkipped += o.FilesSkipped
	s.Rows += o.Rows
	s.RowsSkipped += o.RowsSkipped
}

type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	// decimal commas are unambiguous with a semicolon separator
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// parseRow converts one record into a raw frame.
func (idx columnIndex) parseRow(rec []string) (frame.SensorFrame, error) {
	var f frame.SensorFrame
	get := func(col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	f.Sensor = get(ColSensor)
	f.Subject = get(ColSubject)
	f.Activity = get(ColActivity)
	if f.Sensor == "" || f.Subject == "" || f.Activity == "" {
		return f, errors.New("empty sensor, subject or activity")
	}

	targets := []*float64{
		&f.Position.X, &f.Position.Y, &f.Position.Z,
		&f.Rotation.X, &f.Rotation.Y, &f.Rotation.Z, &f.Rotation.W,
		&f.AngularVelocity.X, &f.AngularVelocity.Y, &f.AngularVelocity.Z,
		&f.LinearVelocity.X, &f.LinearVelocity.Y, &f.LinearVelocity.Z,
		&f.BodySize, &f.Timestamp,
	}
	for i, col := range Columns[3:] {
		v, err := parseNumber(get(col))
		if err != nil {
			return f, fmt.Errorf("column %s: %w", col, err)
		}
		*targets[i] = v
	}
	return f, nil
}

// ReadRecordings reads one capture stream. Each distinct subject/activity
// pair becomes one recording, in order of first appearance.
func ReadRecordings(r io.Reader, bounds *recording.Bounds) ([]*recording.Recording, Stats, error) {
	var st Stats
	cr := csv.NewReader(r)
	cr.Comma = Separator
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, st, fmt.Errorf("read header: %w", err)
	}
	idx, err := indexHeader(header)
	if err != nil {
		return nil, st, err
	}

	var order []*recording.Recording
	byKey := map[[2]string]*recording.Recording{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				st.RowsSkipped++
				monitoring.Logf("ingest: skipping line %d: %v", line, err)
				continue
			}
			return nil, st, fmt.Errorf("line %d: %w", line, err)
		}
		st.Rows++

		f, err := idx.parseRow(rec)
		if err != nil {
			st.RowsSkipped++
			monitoring.Logf("ingest: skipping line %d: %v", line, err)
			continue
		}
		key := [2]string{f.Subject, f.Activity}
		target, ok := byKey[key]
		if !ok {
			target = recording.New(f.Subject, f.Activity, bounds)
			byKey[key] = target
			order = append(order, target)
		}
		if err := target.AddFrame(f); err != nil {
			st.RowsSkipped++
			monitoring.Logf("ingest: skipping line %d: %v", line, err)
		}
	}
	return order, st, nil
}

// IsCaptureFile reports whether name looks like a capture file.
func IsCaptureFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// LoadDir reads every capture file directly inside dir. Files that fail
// to open or parse are skipped and counted; only an unreadable directory is
// an error.
func LoadDir(fsys fsutil.FileSystem, dir string, bounds *recording.Bounds) ([]*recording.Recording, Stats, error) {
	var st Stats
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, st, fmt.Errorf("read capture directory %s: %w", dir, err)
	}

	var out []*recording.Recording
	for _, e := range entries {
		if e.IsDir() || !IsCaptureFile(e.Name()) {
			continue
		}
		st.Files++
		name := filepath.Join(dir, e.Name())
		recs, fileStats, err := loadFile(fsys, name, bounds)
		st.add(fileStats)
		if err != nil {
			st.FilesSkipped++
			monitoring.Logf("ingest: skipping file %s: %v", name, err)
			continue
		}
		out = append(out, recs...)
	}
	monitoring.Logf("ingest: loaded %d recordings from %d files (%d skipped), %d rows (%d skipped)",
		len(out), st.Files, st.FilesSkipped, st.Rows, st.RowsSkipped)
	return out, st, nil
}

func loadFile(fsys fsutil.FileSystem, name string, bounds *recording.Bounds) ([]*recording.Recording, Stats, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()
	return ReadRecordings(f, bounds)
}
