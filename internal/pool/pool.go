// Package pool coordinates a set of walkers that search a directory tree for
// target directories.
//
// The coordinator hands explore jobs to walkers in round-robin order, turns
// their reports into new jobs or discovered targets, and decides that the
// scan is finished once every walker reports that it holds no pending work.
package pool

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/TFMV/dirhunt/internal/actor"
	"github.com/TFMV/dirhunt/internal/inspect"
	"github.com/TFMV/dirhunt/internal/logging"
	"github.com/TFMV/dirhunt/internal/protocol"
	"github.com/TFMV/dirhunt/internal/walker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultOutputBuffer is the capacity of the discovered-paths channel.
const DefaultOutputBuffer = 64

var (
	// ErrInvalidConfig is returned when a scan config lacks a root or target.
	ErrInvalidConfig = errors.New("pool: invalid scan config")
	// ErrScanRunning is returned when a pool is asked to start a second scan
	// while one is still active.
	ErrScanRunning = errors.New("pool: a scan is already running")
)

// Options configures a Pool.
type Options struct {
	Workers      int              // Explicit pool size; computed from GOMAXPROCS when <= 0
	MaxWorkers   int              // Ceiling on the pool size; DefaultMaxWorkers when <= 0
	MaxProcs     int              // Concurrent directory reads per walker
	OutputBuffer int              // Capacity of Scan.Paths; DefaultOutputBuffer when <= 0
	Lister       walker.DirLister // Directory reader shared by all walkers
	Logger       *zap.Logger
	OnStatus     StatusFn

	// ValidateRoot checks the root before any worker is spawned.
	// inspect.ValidateRoot when nil.
	ValidateRoot func(path string) error
}

// Pool starts scans. A pool runs at most one scan at a time.
type Pool struct {
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	active *Scan
}

// New creates a pool with the given options.
func New(opts Options) *Pool {
	if opts.OutputBuffer <= 0 {
		opts.OutputBuffer = DefaultOutputBuffer
	}
	if opts.ValidateRoot == nil {
		opts.ValidateRoot = inspect.ValidateRoot
	}
	return &Pool{
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
	}
}

// StartScan validates cfg, spawns the walkers and submits the root as the
// only seed job. It does not block; discovered targets arrive on the
// returned scan's Paths channel, which is closed when the scan ends.
//
// Canceling ctx tears the pool down the same way Scan.Stop does.
func (p *Pool) StartScan(ctx context.Context, cfg protocol.Config) (*Scan, error) {
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("%w: empty root path", ErrInvalidConfig)
	}
	if cfg.TargetName == "" {
		return nil, fmt.Errorf("%w: empty target name", ErrInvalidConfig)
	}
	cfg = cfg.Clone()
	cfg.RootPath = filepath.Clean(cfg.RootPath)
	if err := p.opts.ValidateRoot(cfg.RootPath); err != nil {
		return nil, fmt.Errorf("pool: invalid root %q: %w", cfg.RootPath, err)
	}

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return nil, ErrScanRunning
	}
	s := newScan(ctx, cfg, p.opts, p.logger)
	p.active = s
	p.mu.Unlock()

	s.release = func() {
		p.mu.Lock()
		if p.active == s {
			p.active = nil
		}
		p.mu.Unlock()
	}

	s.spawn(p.opts.workerCount())
	go s.run()
	return s, nil
}

func newScan(ctx context.Context, cfg protocol.Config, opts Options, logger *zap.Logger) *Scan {
	id := uuid.NewString()
	s := &Scan{
		id:       id,
		cfg:      cfg,
		opts:     opts,
		logger:   logger.With(zap.String("scan_id", id)),
		onStatus: opts.OnStatus,
		paths:    make(chan string, opts.OutputBuffer),
		done:     make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listenCtx, s.stopListeners = context.WithCancel(s.ctx)
	s.status.Store(int32(StatusStopped))
	s.stats.Store(&Stats{})
	return s
}

// spawn starts n walkers, wires a private reply channel to each, pushes the
// configuration and submits the seed job to worker 0.
func (s *Scan) spawn(n int) {
	s.logger.Info("starting scan",
		zap.String("root", s.cfg.RootPath),
		zap.String("target", s.cfg.TargetName),
		zap.Strings("exclude", s.cfg.Exclude),
		zap.Int("workers", n),
	)

	s.inbox = make(chan protocol.Report, n)
	s.failures = make(chan workerFailure, n)
	s.workers = make([]*workerHandle, n)

	for i := 0; i < n; i++ {
		h := &workerHandle{
			id:    i,
			inbox: actor.NewMailbox[protocol.Command](),
			reply: make(chan protocol.Report, 1),
		}
		w := walker.New(h.inbox, walker.Options{
			MaxProcs: s.opts.MaxProcs,
			Lister:   s.opts.Lister,
			Logger:   s.logger,
		})

		var wctx context.Context
		wctx, h.cancel = context.WithCancel(s.ctx)
		s.group.Go(func() error {
			err := w.Run(wctx)
			if err == nil || wctx.Err() != nil {
				// Stopped by teardown or by the caller's deadline.
				return nil
			}
			s.failures <- workerFailure{id: h.id, err: err}
			return err
		})

		s.listeners.Add(1)
		go s.listen(h)

		h.inbox.Send(protocol.Startup{WorkerID: i, Reply: h.reply})
		s.workers[i] = h
		s.logger.Debug("worker instantiated", zap.Int("worker", i))
	}

	for _, h := range s.workers {
		h.inbox.Send(protocol.ExploreConfig{Config: s.cfg.Clone()})
	}

	s.dispatch(s.cfg.RootPath)
	s.publishStats()
}

// listen forwards one worker's reports into the coordinator inbox, keeping
// their order.
func (s *Scan) listen(h *workerHandle) {
	defer s.listeners.Done()
	for {
		select {
		case r := <-h.reply:
			select {
			case s.inbox <- r:
			case <-s.listenCtx.Done():
				return
			}
		case <-s.listenCtx.Done():
			return
		}
	}
}
