package monitoring

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Counters is a set of named monotonic diagnostic counters, such as the
// number of discarded windows or skipped input files. Safe for concurrent use.
type Counters struct {
	mu     sync.Mutex
	values map[string]*atomic.Int64
}

// NewCounters returns an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]*atomic.Int64)}
}

func (c *Counters) counter(name string) *atomic.Int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	if !ok {
		v = new(atomic.Int64)
		c.values[name] = v
	}
	return v
}

// Add increments the named counter by delta.
func (c *Counters) Add(name string, delta int64) {
	c.counter(name).Add(delta)
}

// Get returns the current value of the named counter (zero if never touched).
func (c *Counters) Get(name string) int64 {
	c.mu.Lock()
	v, ok := c.values[name]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return v.Load()
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v.Load()
	}
	return out
}

// LogSummary writes every counter through Logf in name order.
func (c *Counters) LogSummary(prefix string) {
	snap := c.Snapshot()
	names := make([]string, 0, len(snap))
	for k := range snap {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		Logf("%s%s=%d", prefix, n, snap[n])
	}
}
