/*
Package workers sizes the job pool in containerized environments.

runtime.NumCPU reports the host's CPUs even when a cgroup limit applies;
GOMAXPROCS follows the container limit (Go 1.19+), so Count and ForCPU use it:

	// Wrong: Returns 64 (host CPUs), ignores container limit
	workers := runtime.NumCPU()

	// Correct: Returns 2 (respects container limit in Go 1.19+)
	workers := runtime.GOMAXPROCS(0)

Compression jobs are run one at a time unless asked otherwise. Resolve maps
the -workers flag to a pool size:

	workers.Resolve(0, 8)            // COMPRESS_WORKERS if set, else 1
	workers.Resolve(3, 8)            // 3
	workers.Resolve(workers.Auto, 8) // one per CPU, at most 8

# Environment Variable Override

COMPRESS_WORKERS replaces the automatic calculation and the sequential
default. Invalid or non-positive values are ignored.
*/
package workers
