// Package diagnostics renders recording and extraction diagnostics: height
// traces with invalid frames marked, and window yield charts.
package diagnostics

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/mocap.features/internal/mocap/recording"
	"github.com/banshee-data/mocap.features/internal/security"
)

// HeightPlot builds a plot of every sensor's height over time. Invalid
// frames are overlaid as red crosses.
func HeightPlot(rec *recording.Recording) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s / %s - Sensor Height", rec.Subject, rec.Activity)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Height"

	sensors := rec.Sensors()
	colors := generateColors(len(sensors))
	var invalid plotter.XYs

	for i, s := range sensors {
		frames := rec.Frames(s)
		if len(frames) == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, len(frames))
		for _, f := range frames {
			pts = append(pts, plotter.XY{X: f.Timestamp, Y: f.Height()})
			if f.Invalid {
				invalid = append(invalid, plotter.XY{X: f.Timestamp, Y: f.Height()})
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("line for %s: %w", s, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s, line)
	}

	if len(invalid) > 0 {
		sc, err := plotter.NewScatter(invalid)
		if err != nil {
			return nil, fmt.Errorf("invalid frame markers: %w", err)
		}
		sc.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("invalid", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteHeightPlot renders the height plot of rec as PNG to w.
func WriteHeightPlot(w io.Writer, rec *recording.Recording) error {
	p, err := HeightPlot(rec)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("height plot writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write height plot: %w", err)
	}
	return nil
}

// HeightPlotName is the file name used for rec's height plot. Labels come
// from capture contents and are sanitized.
func HeightPlotName(rec *recording.Recording) string {
	return fmt.Sprintf("height_%s_%s.png", security.SanitizeFilename(rec.Subject), security.SanitizeFilename(rec.Activity))
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
