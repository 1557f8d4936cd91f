package workers

import (
	"runtime"
)

// Count returns a worker count for a task type, derived from GOMAXPROCS so
// container CPU limits are respected.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Resolve turns a configured worker count into the number of workers to
// start. A positive request is honored up to the mixed-workload ceiling for
// this machine; zero or less asks for automatic sizing. The result is never
// below 1.
func Resolve(requested, limit int) int {
	ceiling := ForMixed(limit)
	if requested <= 0 {
		return ForCPU(limit)
	}
	return min(requested, ceiling)
}
