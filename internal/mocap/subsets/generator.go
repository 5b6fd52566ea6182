package subsets

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/banshee-data/mocap.features/internal/monitoring"
)

// Generator enumerates the admissible subsets of a universe.
type Generator struct {
	Universe Universe
	Rules    Rules
	// Workers bounds concurrency. Zero means GOMAXPROCS.
	Workers int
}

// chunkSize is the number of masks handed to a worker at a time.
const chunkSize = 1 << 12

// Generate returns every admissible subset, sorted with Less. An empty
// result is valid and is not an error.
func (g *Generator) Generate(ctx context.Context) ([]SensorSubset, error) {
	if err := g.Universe.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := uint32(1) << uint(len(g.Universe))
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	chunks := make(chan [2]uint32)
	var (
		mu  sync.Mutex
		out []SensorSubset
		wg  sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local []SensorSubset
			for c := range chunks {
				for mask := c[0]; mask < c[1]; mask++ {
					s := newSubset(g.Universe, mask)
					if g.Rules.Admit(g.Universe, s) {
						local = append(local, s)
					}
				}
			}
			mu.Lock()
			out = append(out, local...)
			mu.Unlock()
		}()
	}

	var err error
feed:
	for lo := uint32(1); lo < limit; lo += chunkSize {
		hi := lo + chunkSize
		if hi > limit {
			hi = limit
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case chunks <- [2]uint32{lo, hi}:
		}
	}
	close(chunks)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	if len(out) == 0 {
		monitoring.Logf("subsets: no admissible subsets of %d sensors", len(g.Universe))
	}
	return out, nil
}
