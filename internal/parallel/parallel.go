// Package parallel splits index ranges across goroutines for the CPU kernels.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// Sequential returns a Config that runs all work on the calling goroutine.
func Sequential() Config {
	return Config{}
}

// WithMinChunk returns a copy of c with MinChunkSize set to n.
func (c Config) WithMinChunk(n int) Config {
	c.MinChunkSize = n
	return c
}

// Range calls f once per contiguous chunk [start, end) covering [0, n).
//
// Falls back to a single f(0, n) call on the calling goroutine if
// parallelism is disabled or n is too small to split. A panic in any chunk
// is re-raised on the calling goroutine after all chunks finish.
func Range(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	minChunk := max(cfg.MinChunkSize, 1)
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*minChunk {
		f(0, n)
		return
	}

	var (
		wg      sync.WaitGroup
		once    sync.Once
		failure any
	)
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, minChunk)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { failure = r })
				}
			}()
			f(s, e)
		}(start, end)
	}
	wg.Wait()

	if failure != nil {
		panic(failure)
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
func For(n int, f func(i int), cfg Config) {
	Range(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}
