package pool

import "runtime"

// DefaultMaxWorkers caps the number of walkers in a pool.
const DefaultMaxWorkers = 8

// WorkerCount returns the pool size for the given parallelism: one core is
// left for the consumer, the result never exceeds maxWorkers and is never
// below one.
func WorkerCount(parallelism, maxWorkers int) int {
	if maxWorkers < 1 {
		maxWorkers = DefaultMaxWorkers
	}
	n := parallelism - 1
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// availableParallelism is the number of CPUs the process may use. main
// imports automaxprocs, so this already honours container CPU quotas.
func availableParallelism() int {
	return runtime.GOMAXPROCS(0)
}

func (o Options) workerCount() int {
	maxWorkers := o.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = DefaultMaxWorkers
	}
	if o.Workers > 0 {
		return min(o.Workers, maxWorkers)
	}
	return WorkerCount(availableParallelism(), maxWorkers)
}
