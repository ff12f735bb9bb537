package pool

import "fmt"

// Status is the externally observable state of a scan.
type Status int32

const (
	StatusStopped  Status = iota // No worker has reported in yet, or the scan was stopped
	StatusScanning               // At least one worker is alive
	StatusFinished               // Every worker reported zero pending jobs
	StatusDead                   // A worker failed and the scan was abandoned
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusScanning:
		return "scanning"
	case StatusFinished:
		return "finished"
	case StatusDead:
		return "dead"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// StatusFn is called by the coordinator on every status transition. It runs
// on the coordinator goroutine and must not block.
type StatusFn func(Status)

// Stats is a point-in-time snapshot of scan progress.
type Stats struct {
	PendingSearchTasks   int   // Sum of the per-worker pending counts
	DispatchedSearchJobs int   // Explore jobs handed to workers so far
	CompletedSearchTasks int   // Directories fully processed
	ResultsFound         int   // Target directories emitted
	WorkersJobs          []int // Pending count per worker
}
