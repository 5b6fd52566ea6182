// Package stats accumulates a time-stamped scalar series and computes
// summary statistics over it.
//
// Aggregates that need more than one pass (the unweighted mean, the
// variance and the sorted copy) are cached until the next Add. Accessors
// never coerce an undefined result to zero: too few samples yield NaN.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Collector accumulates (value, duration) samples.
type Collector struct {
	values    []float64
	durations []float64

	bodySize float64
	scale    bool

	cached   bool
	mean     float64
	variance float64
	sorted   []float64
}

// NewCollector returns an empty collector. When scaleByBodySize is set,
// location and dispersion results are divided by bodySize (variance by
// its square). A non-positive bodySize is treated as 1.
func NewCollector(bodySize float64, scaleByBodySize bool) *Collector {
	if !(bodySize > 0) || math.IsInf(bodySize, 0) {
		bodySize = 1
	}
	return &Collector{bodySize: bodySize, scale: scaleByBodySize}
}

// Add appends a sample with its time weight.
func (c *Collector) Add(value, duration float64) {
	c.values = append(c.values, value)
	c.durations = append(c.durations, duration)
	c.cached = false
}

// Len returns the number of samples.
func (c *Collector) Len() int { return len(c.values) }

// Values returns a copy of the samples in insertion order.
func (c *Collector) Values() []float64 {
	out := make([]float64, len(c.values))
	copy(out, c.values)
	return out
}

func (c *Collector) refresh() {
	if c.cached {
		return
	}
	n := len(c.values)
	c.sorted = append(c.sorted[:0], c.values...)
	sort.Float64s(c.sorted)
	switch {
	case n == 0:
		c.mean, c.variance = math.NaN(), math.NaN()
	case n == 1:
		c.mean, c.variance = c.values[0], math.NaN()
	default:
		c.mean = stat.Mean(c.values, nil)
		c.variance = stat.Variance(c.values, nil)
	}
	c.cached = true
}

func (c *Collector) scaled(v float64) float64 {
	if c.scale && c.bodySize > 0 {
		return v / c.bodySize
	}
	return v
}

// MeanTimeWeighted returns sum(value*duration) / sum(duration): the signal
// intensity normalised by the elapsed window time.
func (c *Collector) MeanTimeWeighted() float64 {
	total := floats.Sum(c.durations)
	if len(c.values) == 0 || total == 0 {
		return math.NaN()
	}
	return c.scaled(floats.Dot(c.values, c.durations) / total)
}

// Mean returns the unweighted arithmetic mean.
func (c *Collector) Mean() float64 {
	c.refresh()
	return c.scaled(c.mean)
}

// Variance returns the Bessel-corrected sample variance.
func (c *Collector) Variance() float64 {
	c.refresh()
	if c.scale && c.bodySize > 0 {
		return c.variance / (c.bodySize * c.bodySize)
	}
	return c.variance
}

// StdDev returns the Bessel-corrected sample standard deviation.
func (c *Collector) StdDev() float64 {
	c.refresh()
	return c.scaled(math.Sqrt(c.variance))
}

// MeanAbsoluteDeviation returns the average of |value - mean|.
func (c *Collector) MeanAbsoluteDeviation() float64 {
	c.refresh()
	n := len(c.values)
	if n == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range c.values {
		sum += math.Abs(v - c.mean)
	}
	return c.scaled(sum / float64(n))
}

func (c *Collector) percentile(p float64) float64 {
	c.refresh()
	n := len(c.sorted)
	if n == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	p = math.Max(0, math.Min(1, p))
	return c.sorted[int(math.Floor(float64(n-1)*p))]
}

// Percentile returns the nearest-rank p-th percentile, p in [0, 1], using
// index floor((n-1)*p) into the sorted samples. No interpolation.
func (c *Collector) Percentile(p float64) float64 {
	return c.scaled(c.percentile(p))
}

// Min returns the smallest sample.
func (c *Collector) Min() float64 { return c.Percentile(0) }

// Max returns the largest sample.
func (c *Collector) Max() float64 { return c.Percentile(1) }

// Range returns Max - Min.
func (c *Collector) Range() float64 {
	return c.scaled(c.percentile(1) - c.percentile(0))
}

// InterquartileRange returns P75 - P25.
func (c *Collector) InterquartileRange() float64 {
	return c.scaled(c.percentile(0.75) - c.percentile(0.25))
}

// MedianCrossingRate returns the number of adjacent sample pairs lying on
// opposite sides of the median, divided by n-1. Samples equal to the
// median do not cross. The rate is dimensionless and never body-scaled.
func (c *Collector) MedianCrossingRate() float64 {
	n := len(c.values)
	if n < 2 {
		return math.NaN()
	}
	m := c.percentile(0.5)
	crossings := 0
	for i := 1; i < n; i++ {
		if (c.values[i-1]-m)*(c.values[i]-m) < 0 {
			crossings++
		}
	}
	return float64(crossings) / float64(n-1)
}
