package stats

import "fmt"

// Stat names one summary statistic a Collector can emit.
type Stat int

// Canonical emission order of a collector's statistics.
const (
	StatMean Stat = iota // time-weighted
	StatStdDev
	StatMAD
	StatIQR
	StatMax
	StatMin
	StatRange
	StatCrossingRate
	StatP25
	StatP75
)

var statNames = [...]string{"mean", "std", "mad", "iqr", "max", "min", "range", "mcr", "p25", "p75"}

// AllStats returns every statistic in canonical order.
func AllStats() []Stat {
	out := make([]Stat, len(statNames))
	for i := range out {
		out[i] = Stat(i)
	}
	return out
}

// String returns the column-name suffix for the statistic.
func (s Stat) String() string {
	if s >= 0 && int(s) < len(statNames) {
		return statNames[s]
	}
	return fmt.Sprintf("stat(%d)", int(s))
}

// Value returns the statistic s computed over the collector.
func (c *Collector) Value(s Stat) float64 {
	switch s {
	case StatMean:
		return c.MeanTimeWeighted()
	case StatStdDev:
		return c.StdDev()
	case StatMAD:
		return c.MeanAbsoluteDeviation()
	case StatIQR:
		return c.InterquartileRange()
	case StatMax:
		return c.Max()
	case StatMin:
		return c.Min()
	case StatRange:
		return c.Range()
	case StatCrossingRate:
		return c.MedianCrossingRate()
	case StatP25:
		return c.Percentile(0.25)
	case StatP75:
		return c.Percentile(0.75)
	}
	panic(fmt.Sprintf("stats: unknown statistic %d", int(s)))
}
