package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/TFMV/dirhunt/internal/actor"
	"github.com/TFMV/dirhunt/internal/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scan is a running search. Every field the coordinator uses for job
// accounting is owned by the coordinator goroutine; observers only see the
// published status and stats snapshots.
type Scan struct {
	id       string
	cfg      protocol.Config
	opts     Options
	logger   *zap.Logger
	onStatus StatusFn
	release  func()

	ctx           context.Context
	cancel        context.CancelFunc
	listenCtx     context.Context
	stopListeners context.CancelFunc

	group     errgroup.Group
	listeners sync.WaitGroup
	inbox     chan protocol.Report
	failures  chan workerFailure

	// Coordinator state.
	workers    []*workerHandle
	cursor     int
	finished   bool
	dispatched int
	completed  int
	found      int

	paths  chan string
	done   chan struct{}
	err    error
	status atomic.Int32
	stats  atomic.Pointer[Stats]
}

type workerHandle struct {
	id     int
	inbox  *actor.Mailbox[protocol.Command]
	reply  chan protocol.Report
	cancel context.CancelFunc

	sent    int // Explore jobs handed to this worker
	pending int // Jobs this worker still owns, as last accounted
}

type workerFailure struct {
	id  int
	err error
}

// ID returns the unique id of the scan.
func (s *Scan) ID() string { return s.id }

// Config returns the configuration the scan runs with.
func (s *Scan) Config() protocol.Config { return s.cfg.Clone() }

// Paths returns the stream of discovered target directories. Paths arrive in
// no particular order. The channel is closed when the scan finishes, fails or
// is stopped; callers must keep draining it until then.
func (s *Scan) Paths() <-chan string { return s.paths }

// Done is closed once the pool has been torn down.
func (s *Scan) Done() <-chan struct{} { return s.done }

// Status returns the current status.
func (s *Scan) Status() Status { return Status(s.status.Load()) }

// Stats returns the latest progress snapshot.
func (s *Scan) Stats() Stats {
	st := *s.stats.Load()
	st.WorkersJobs = append([]int(nil), st.WorkersJobs...)
	return st
}

// Wait blocks until the pool has been torn down and returns the reason the
// scan ended early, if any.
func (s *Scan) Wait() error {
	<-s.done
	return s.err
}

// Err returns the scan error once the scan is done, nil before that.
func (s *Scan) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stop terminates every worker and discards in-flight work. It is safe to
// call at any time, including after the scan has finished.
func (s *Scan) Stop() {
	s.cancel()
}

func (s *Scan) run() {
	defer close(s.done)
	for {
		// Cancellation wins over reports that are already queued.
		if s.ctx.Err() != nil {
			s.stop()
			return
		}

		select {
		case r := <-s.inbox:
			s.handle(r)
			if s.finished {
				s.logger.Info("scan finished",
					zap.Int("found", s.found),
					zap.Int("directories", s.completed),
				)
				close(s.paths)
				s.teardown()
				return
			}

		case f := <-s.failures:
			s.err = fmt.Errorf("pool: worker %d: %w", f.id, f.err)
			s.logger.Error("worker failed", zap.Int("worker", f.id), zap.Error(f.err))
			s.setStatus(StatusDead)
			close(s.paths)
			s.teardown()
			return

		case <-s.ctx.Done():
			s.stop()
			return
		}
	}
}

func (s *Scan) stop() {
	s.err = s.ctx.Err()
	s.logger.Info("scan stopped", zap.Error(s.err))
	s.setStatus(StatusStopped)
	close(s.paths)
	s.teardown()
}

func (s *Scan) handle(r protocol.Report) {
	switch m := r.(type) {
	case protocol.Alive:
		if s.Status() == StatusStopped {
			s.setStatus(StatusScanning)
		}

	case protocol.ScanResult:
		if m.WorkerID < 0 || m.WorkerID >= len(s.workers) {
			s.logger.Error("scan result from unknown worker", zap.Int("worker", m.WorkerID))
			return
		}
		h := s.workers[m.WorkerID]

		// The worker's own count is authoritative for everything it has
		// received; jobs still in its mailbox are added back.
		h.pending = h.sent - m.Received + m.Pending
		if h.pending < 0 {
			s.logger.Warn("negative pending count", zap.Int("worker", h.id), zap.Int("pending", h.pending))
			h.pending = 0
		}
		s.completed++

		for _, e := range m.Results {
			if e.IsTarget {
				s.found++
				s.emit(e.Path)
				continue
			}
			s.dispatch(e.Path)
		}

		s.publishStats()
		s.checkComplete()

	default:
		s.logger.Warn("unexpected report", zap.String("kind", protocol.Kind(r)))
	}
}

// dispatch hands a job to the next worker in round-robin order.
func (s *Scan) dispatch(path string) {
	if s.finished {
		s.logger.Warn("job after completion dropped", zap.String("path", path))
		return
	}
	h := s.workers[s.cursor]
	h.inbox.Send(protocol.Explore{Path: path})
	h.sent++
	h.pending++
	s.dispatched++
	s.cursor = (s.cursor + 1) % len(s.workers)
}

func (s *Scan) emit(path string) {
	select {
	case s.paths <- path:
	case <-s.ctx.Done():
	}
}

func (s *Scan) pendingJobs() int {
	total := 0
	for _, h := range s.workers {
		total += h.pending
	}
	return total
}

func (s *Scan) checkComplete() {
	if s.finished || s.pendingJobs() != 0 {
		return
	}
	s.finished = true
	s.setStatus(StatusFinished)
}

func (s *Scan) setStatus(st Status) {
	prev := Status(s.status.Swap(int32(st)))
	if prev == st {
		return
	}
	s.logger.Debug("status changed", zap.Stringer("from", prev), zap.Stringer("to", st))
	if s.onStatus != nil {
		s.onStatus(st)
	}
}

func (s *Scan) publishStats() {
	st := &Stats{
		PendingSearchTasks:   s.pendingJobs(),
		DispatchedSearchJobs: s.dispatched,
		CompletedSearchTasks: s.completed,
		ResultsFound:         s.found,
		WorkersJobs:          make([]int, len(s.workers)),
	}
	for i, h := range s.workers {
		st.WorkersJobs[i] = h.pending
	}
	s.stats.Store(st)
}

// teardown stops the listeners and every worker, then waits for all of them
// to exit. Termination errors are logged, never retried.
func (s *Scan) teardown() {
	s.stopListeners()
	for _, h := range s.workers {
		h.cancel()
		h.inbox.Close()
	}

	// Every sender has returned once the group is done.
	_ = s.group.Wait()
	close(s.failures)
	var errs []error
	for f := range s.failures {
		errs = append(errs, fmt.Errorf("worker %d: %w", f.id, f.err))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("workers exited with errors", zap.Error(err))
	}

	s.listeners.Wait()
	s.cancel()
	if s.release != nil {
		s.release()
	}
	s.logger.Debug("pool torn down", zap.Int("workers", len(s.workers)))
}
