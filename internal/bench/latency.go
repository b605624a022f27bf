// Package bench implements the latency test suite the benchmark driver
// runs against every store variant. It consumes stores only through the
// uniform Store interface, so the engine internals stay invisible to it.
package bench

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cinderdb/cinder/pkg/cinder"
)

// LatencyTest drives a store with a mixed read/write workload over a fixed
// keyspace and records per-operation latencies.
type LatencyTest struct {
	// NumKeys bounds the keyspace; keys are drawn uniformly from it.
	NumKeys int

	// NumOperations is the total operation count per run.
	NumOperations int

	// ReadWriteRatio is the fraction of operations that are reads. The
	// remaining writes are sets, with an occasional delete mixed in so
	// tombstones flow through rotation and merging too.
	ReadWriteRatio float64

	// Seed makes runs reproducible across stores, so every variant sees the
	// same operation sequence.
	Seed int64
}

// Result summarizes one run against one store.
type Result struct {
	Description  string
	Reads        int
	Writes       int
	ReadLatency  LatencySummary
	WriteLatency LatencySummary
}

// LatencySummary aggregates observed latencies for one operation kind.
type LatencySummary struct {
	Total time.Duration
	Max   time.Duration
	Count int
}

// Avg returns the mean latency, zero when nothing was measured.
func (s LatencySummary) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

func (s *LatencySummary) observe(d time.Duration) {
	s.Total += d
	s.Count++
	if d > s.Max {
		s.Max = d
	}
}

// Run executes the workload against the store and returns the summary. One
// write in sixteen is a delete.
func (t *LatencyTest) Run(store cinder.Store) (*Result, error) {
	rng := rand.New(rand.NewSource(t.Seed))
	result := &Result{Description: store.Description()}

	for op := 0; op < t.NumOperations; op++ {
		key := fmt.Sprintf("key-%d", rng.Intn(t.NumKeys))

		if rng.Float64() < t.ReadWriteRatio {
			start := time.Now()
			_, _, err := store.Get(key)
			if err != nil {
				return nil, err
			}
			result.ReadLatency.observe(time.Since(start))
			result.Reads++
			continue
		}

		var err error
		start := time.Now()
		if rng.Intn(16) == 0 {
			err = store.Delete(key)
		} else {
			err = store.Set(key, fmt.Sprintf("value-%d-%d", op, rng.Int63()))
		}
		if err != nil {
			return nil, err
		}
		result.WriteLatency.observe(time.Since(start))
		result.Writes++
	}

	return result, nil
}
