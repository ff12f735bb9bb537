// Package walker implements the worker side of the directory scan pool.
//
// A Walker owns a local queue of directories to explore. It lists at most
// MaxProcs directories at a time, classifies every child directory as either
// a target or something to explore further, and reports one batch per
// finished directory to the coordinator.
package walker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TFMV/dirhunt/internal/actor"
	"github.com/TFMV/dirhunt/internal/logging"
	"github.com/TFMV/dirhunt/internal/protocol"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxProcs is the default number of directory reads a single walker
// keeps open at once.
const DefaultMaxProcs = 3

// ErrProtocol is returned from Run when the coordinator sends a message the
// walker cannot accept in its current state.
var ErrProtocol = errors.New("walker: protocol violation")

// State is the lifecycle state of a walker.
type State int

const (
	StateIdle State = iota
	StateConfigured
	StateRunning
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Walker.
type Options struct {
	MaxProcs int         // Concurrent directory reads; DefaultMaxProcs when <= 0
	Lister   DirLister   // GodirwalkLister when nil
	Logger   *zap.Logger // No-op logger when nil
}

// Walker processes explore jobs for one worker. All fields below the options
// are owned by the goroutine running Run.
type Walker struct {
	inbox    *actor.Mailbox[protocol.Command]
	lister   DirLister
	maxProcs int
	logger   *zap.Logger

	id         int
	reply      chan<- protocol.Report
	started    bool
	configured bool
	match      matcher
	state      State

	queue     []string
	procs     int
	received  int
	completed int

	done chan readResult
}

type readResult struct {
	path    string
	entries []protocol.Entry
	err     error // directory could not be read; the batch is empty
	fatal   error // the read goroutine panicked
}

// New creates a walker that consumes commands from inbox.
func New(inbox *actor.Mailbox[protocol.Command], opts Options) *Walker {
	if opts.MaxProcs <= 0 {
		opts.MaxProcs = DefaultMaxProcs
	}
	if opts.Lister == nil {
		opts.Lister = GodirwalkLister{}
	}
	return &Walker{
		inbox:    inbox,
		lister:   opts.Lister,
		maxProcs: opts.MaxProcs,
		logger:   logging.OrNop(opts.Logger),
		// Never more than maxProcs reads in flight, so finished reads can
		// always hand off their result even after Run has returned.
		done: make(chan readResult, opts.MaxProcs),
	}
}

// Run processes commands until ctx is canceled or a fatal error occurs.
// Cancellation is the normal way to stop a walker and returns ctx.Err().
func (w *Walker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("walker %d: panic: %v", w.id, r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.inbox.Ready():
			for _, msg := range w.inbox.Drain() {
				if err := w.handle(ctx, msg); err != nil {
					return err
				}
			}
		case res := <-w.done:
			if err := w.complete(ctx, res); err != nil {
				return err
			}
		}
	}
}

func (w *Walker) handle(ctx context.Context, msg protocol.Command) error {
	if _, ok := msg.(protocol.Startup); !ok && !w.started {
		return fmt.Errorf("%w: %s before startup", ErrProtocol, protocol.Kind(msg))
	}

	switch m := msg.(type) {
	case protocol.Startup:
		if w.started {
			return fmt.Errorf("%w: duplicate startup", ErrProtocol)
		}
		if m.Reply == nil {
			return fmt.Errorf("%w: startup without reply channel", ErrProtocol)
		}
		w.id = m.WorkerID
		w.reply = m.Reply
		w.started = true
		w.logger = w.logger.With(zap.Int("worker", w.id))
		w.logger.Debug("walker started")

	case protocol.ExploreConfig:
		w.match = newMatcher(m.Config)
		first := !w.configured
		w.configured = true
		if w.state == StateIdle {
			w.setState(StateConfigured)
		}
		if first {
			if err := w.send(ctx, protocol.Alive{WorkerID: w.id}); err != nil {
				return err
			}
		}
		w.processQueue()

	case protocol.Explore:
		w.received++
		w.queue = append(w.queue, m.Path)
		w.processQueue()

	default:
		return fmt.Errorf("%w: unexpected %s", ErrProtocol, protocol.Kind(msg))
	}
	return nil
}

// processQueue starts reads until the concurrency cap is reached or the queue
// is empty. Jobs stay queued until a configuration has arrived.
func (w *Walker) processQueue() {
	for w.configured && w.procs < w.maxProcs && len(w.queue) > 0 {
		path := w.queue[0]
		w.queue[0] = ""
		w.queue = w.queue[1:]
		w.procs++
		go w.read(path, w.match)
	}
	w.refreshState()
}

func (w *Walker) read(path string, m matcher) {
	res := readResult{path: path}
	defer func() {
		if r := recover(); r != nil {
			res.entries = nil
			res.fatal = fmt.Errorf("walker %d: reading %q: panic: %v", w.id, path, r)
		}
		w.done <- res
	}()

	children, err := w.lister.ListDir(path)
	if err != nil {
		res.err = err
		return
	}
	res.entries = m.classify(path, children)
}

func (w *Walker) complete(ctx context.Context, res readResult) error {
	w.procs--
	w.completed++
	if res.fatal != nil {
		return res.fatal
	}
	if res.err != nil {
		w.logger.Debug("skipping unreadable directory", zap.String("path", res.path), zap.Error(res.err))
	}

	report := protocol.ScanResult{
		Results:  res.entries,
		WorkerID: w.id,
		Pending:  w.pending(),
		Received: w.received,
	}
	if err := w.send(ctx, report); err != nil {
		return err
	}
	w.processQueue()
	return nil
}

// pending is the number of jobs this walker still owns: queued plus reads in
// flight.
func (w *Walker) pending() int {
	return len(w.queue) + w.procs
}

func (w *Walker) send(ctx context.Context, r protocol.Report) error {
	select {
	case w.reply <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Walker) refreshState() {
	switch {
	case !w.configured:
		w.setState(StateIdle)
	case w.procs > 0 && len(w.queue) > 0:
		w.setState(StateRunning)
	case w.procs > 0:
		w.setState(StateDraining)
	case w.completed > 0:
		w.setState(StateIdle)
	}
}

func (w *Walker) setState(s State) {
	if w.state == s {
		return
	}
	w.logger.Debug("walker state",
		zap.Stringer("from", w.state),
		zap.Stringer("to", s),
		zap.Int("queued", len(w.queue)),
		zap.Int("procs", w.procs),
		zap.Int("completed", w.completed),
	)
	w.state = s
}

// matcher is the immutable classification rule derived from a Config.
type matcher struct {
	target  string
	exclude []string
}

func newMatcher(cfg protocol.Config) matcher {
	var exclude []string
	for _, e := range cfg.Exclude {
		if e != "" {
			exclude = append(exclude, e)
		}
	}
	return matcher{
		target:  norm.NFC.String(cfg.TargetName),
		exclude: exclude,
	}
}

func (m matcher) excluded(path string) bool {
	for _, e := range m.exclude {
		if strings.Contains(path, e) {
			return true
		}
	}
	return false
}

func (m matcher) isTarget(name string) bool {
	return m.target != "" && norm.NFC.String(name) == m.target
}

// classify turns the children of dir into a result batch. Non-directories
// and excluded paths are dropped.
func (m matcher) classify(dir string, children []DirEntry) []protocol.Entry {
	results := make([]protocol.Entry, 0, len(children))
	for _, c := range children {
		if !c.IsDir {
			continue
		}
		sub := filepath.Join(dir, c.Name)
		if m.excluded(sub) {
			continue
		}
		results = append(results, protocol.Entry{Path: sub, IsTarget: m.isTarget(c.Name)})
	}
	return results
}
