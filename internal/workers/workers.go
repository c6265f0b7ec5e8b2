package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that fixes the job worker count.
const EnvOverride = "COMPRESS_WORKERS"

// Auto asks Resolve for one worker per available CPU.
const Auto = -1

// Count returns the number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The limit parameter caps the worker count to prevent resource exhaustion.
// Use 0 for no limit.
//
// Can be overridden with the COMPRESS_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if count, ok := fromEnv(); ok {
		return capAt(count, limit)
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)
	return capAt(max(1, int(float64(available)*multiplier)), limit)
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
// The limit parameter caps the maximum number of workers.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Resolve turns a requested worker count into the pool size for a batch.
//
// A positive request is used as is. Auto sizes by CPU. Zero means "not
// set": COMPRESS_WORKERS applies if present, otherwise jobs run one at a
// time. Every encoder already uses several threads, so sequential is the
// default. The result never exceeds limit when limit is positive.
func Resolve(requested, limit int) int {
	switch {
	case requested > 0:
		return capAt(requested, limit)
	case requested == Auto:
		return ForCPU(limit)
	}
	if count, ok := fromEnv(); ok {
		return capAt(count, limit)
	}
	return 1
}

func fromEnv() (int, bool) {
	override := os.Getenv(EnvOverride)
	if override == "" {
		return 0, false
	}
	count, err := strconv.Atoi(override)
	if err != nil || count < 1 {
		return 0, false
	}
	return count, true
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
