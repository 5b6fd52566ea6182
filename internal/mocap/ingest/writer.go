package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/mocap.features/internal/mocap/frame"
)

// WriteFrames writes raw frames as a capture file with the canonical
// column order. Derived kinematics are not written.
func WriteFrames(w io.Writer, frames []frame.SensorFrame) error {
	cw := csv.NewWriter(w)
	cw.Comma = Separator
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(Columns))
	for _, f := range frames {
		row[0], row[1], row[2] = f.Sensor, f.Subject, f.Activity
		nums := [...]float64{
			f.Position.X, f.Position.Y, f.Position.Z,
			f.Rotation.X, f.Rotation.Y, f.Rotation.Z, f.Rotation.W,
			f.AngularVelocity.X, f.AngularVelocity.Y, f.AngularVelocity.Z,
			f.LinearVelocity.X, f.LinearVelocity.Y, f.LinearVelocity.Z,
			f.BodySize, f.Timestamp,
		}
		for i, v := range nums {
			row[3+i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s frame at t=%g: %w", f.Sensor, f.Timestamp, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
