// Command cinder-bench runs the latency test suite against every store
// variant over small parameter grids and prints a comparison. Thresholds
// are deliberately tiny so rotation, merging and memtable flushes all fire
// within a short run.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cinderdb/cinder/internal/bench"
	"github.com/cinderdb/cinder/pkg/cinder"
	"github.com/cinderdb/cinder/pkg/options"
)

const (
	numKeys        = 10000
	numOperations  = 10000
	readWriteRatio = 0.5
	seed           = 42
)

func main() {
	baseDir, err := os.MkdirTemp("", "cinder-bench-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating bench directory: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(baseDir)

	suite := &bench.LatencyTest{
		NumKeys:        numKeys,
		NumOperations:  numOperations,
		ReadWriteRatio: readWriteRatio,
		Seed:           seed,
	}

	var stores []cinder.Store

	for mergingThreshold := 2; mergingThreshold <= 5; mergingThreshold++ {
		for sizeFactor := 1; sizeFactor <= 5; sizeFactor++ {
			dir := filepath.Join(baseDir, fmt.Sprintf("hashlog_%d_%d", mergingThreshold, sizeFactor))
			store, err := cinder.NewHashLogStore(context.Background(), "cinder-bench",
				options.WithDataDir(dir),
				options.WithFileSizeThreshold(int64(500*sizeFactor)),
				options.WithMergingThreshold(mergingThreshold),
			)
			if err != nil {
				fmt.Fprintf(os.Stderr, "opening hash log store: %v\n", err)
				os.Exit(1)
			}
			stores = append(stores, store)
		}
	}

	for mergingThreshold := 2; mergingThreshold < 5; mergingThreshold++ {
		for sparsityFactor := 1; sparsityFactor < 3; sparsityFactor++ {
			for memtableFactor := 1; memtableFactor <= 2; memtableFactor++ {
				dir := filepath.Join(baseDir, fmt.Sprintf("sstable_%d_%d_%d", mergingThreshold, sparsityFactor, memtableFactor))
				store, err := cinder.NewSSTableStore(context.Background(), "cinder-bench",
					options.WithDataDir(dir),
					options.WithMergingThreshold(mergingThreshold),
					options.WithSparsity(int64(100*sparsityFactor)),
					options.WithMemtableSizeThreshold(int64(2000*memtableFactor)),
				)
				if err != nil {
					fmt.Fprintf(os.Stderr, "opening sstable store: %v\n", err)
					os.Exit(1)
				}
				stores = append(stores, store)
			}
		}
	}

	for _, store := range stores {
		fmt.Printf("------- %s -------\n", store.Description())
		result, err := suite.Run(store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "running suite: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  reads:  %6d  avg %-12v max %v\n", result.Reads, result.ReadLatency.Avg(), result.ReadLatency.Max)
		fmt.Printf("  writes: %6d  avg %-12v max %v\n", result.Writes, result.WriteLatency.Avg(), result.WriteLatency.Max)
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing store: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
	}
}
