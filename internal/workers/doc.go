/*
Package workers sizes worker pools from GOMAXPROCS rather than
runtime.NumCPU, so a process in a container with a 2 CPU limit on a 64 core
node starts 2 workers, not 64. Go 1.19+ sets GOMAXPROCS from the cgroup limit.

pixelbox processes files one at a time by default. When WORKERS is set, the
batch processor calls Resolve to bound the request:

	n := workers.Resolve(cfg.Workers, 16)

A request of 0 means one worker per available CPU. Positive requests are
capped at 1.5 workers per CPU since each file alternates between disk I/O and
pixel work.
*/
package workers
