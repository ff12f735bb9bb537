// Package hunt provides a parallel search for directories with a given name,
// such as node_modules, below a root directory.
//
// It re-exports the pool and inspection API and adds Find, a blocking helper
// that collects every match.
package hunt

import (
	"context"
	"sort"

	"github.com/TFMV/dirhunt/internal/inspect"
	"github.com/TFMV/dirhunt/internal/logging"
	"github.com/TFMV/dirhunt/internal/pool"
	"github.com/TFMV/dirhunt/internal/protocol"
	"github.com/TFMV/dirhunt/internal/walker"
	"go.uber.org/zap"
)

// Re-export the types from the internal packages
type (
	// Config describes one search.
	Config = protocol.Config

	// Options configures a Pool.
	Options = pool.Options

	// Pool starts scans.
	Pool = pool.Pool

	// Scan is a running or completed search.
	Scan = pool.Scan

	// Status is the state of a scan.
	Status = pool.Status

	// StatusFn observes status transitions.
	StatusFn = pool.StatusFn

	// Stats is a snapshot of scan progress.
	Stats = pool.Stats

	// DirLister reads the immediate children of a directory.
	DirLister = walker.DirLister

	// DirEntry is one child returned by a DirLister.
	DirEntry = walker.DirEntry

	// Usage is the disk usage of a folder.
	Usage = inspect.Usage

	// Watch types
	WatchEvent   = inspect.WatchEvent
	WatchOptions = inspect.WatchOptions
	WatchResult  = inspect.WatchResult
	WatchHandler = inspect.WatchHandler
)

const (
	StatusStopped  = pool.StatusStopped
	StatusScanning = pool.StatusScanning
	StatusFinished = pool.StatusFinished
	StatusDead     = pool.StatusDead

	EventCreate = inspect.EventCreate
	EventDelete = inspect.EventDelete

	DefaultMaxWorkers = pool.DefaultMaxWorkers
	DefaultMaxProcs   = walker.DefaultMaxProcs
)

var (
	ErrInvalidConfig  = pool.ErrInvalidConfig
	ErrScanRunning    = pool.ErrScanRunning
	ErrRootNotFound   = inspect.ErrRootNotFound
	ErrRootNotDir     = inspect.ErrRootNotDir
	ErrRootUnreadable = inspect.ErrRootUnreadable
	ErrUnsafeDelete   = inspect.ErrUnsafeDelete
)

// New creates a pool with the given options.
func New(opts Options) *Pool {
	return pool.New(opts)
}

// WorkerCount returns the pool size used for the given parallelism.
func WorkerCount(parallelism, maxWorkers int) int {
	return pool.WorkerCount(parallelism, maxWorkers)
}

// Find searches root for directories named target and returns them sorted.
// Paths containing any of the exclude substrings are not explored.
func Find(ctx context.Context, root, target string, exclude ...string) ([]string, error) {
	return FindWithOptions(ctx, Config{RootPath: root, TargetName: target, Exclude: exclude}, Options{})
}

// FindWithOptions runs a scan with explicit pool options and waits for it.
// On failure the paths found before the scan ended are returned with the
// error.
func FindWithOptions(ctx context.Context, cfg Config, opts Options) ([]string, error) {
	scan, err := New(opts).StartScan(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var found []string
	for path := range scan.Paths() {
		found = append(found, path)
	}
	sort.Strings(found)
	return found, scan.Wait()
}

// ValidateRoot reports whether path can be scanned.
func ValidateRoot(path string) error {
	return inspect.ValidateRoot(path)
}

// IsDangerous reports whether deleting path may break an application.
func IsDangerous(path string) bool {
	return inspect.IsDangerous(path)
}

// IsSafeToDelete reports whether path lies within a target directory.
func IsSafeToDelete(path, targetName string) bool {
	return inspect.IsSafeToDelete(path, targetName)
}

// Delete removes a target directory found by a scan. Paths outside a
// directory named targetName are refused with ErrUnsafeDelete; dryRun only
// runs that check.
func Delete(ctx context.Context, path, targetName string, dryRun bool) error {
	return inspect.DeleteDir(ctx, path, targetName, dryRun)
}

// FolderSize returns the disk usage below path.
func FolderSize(ctx context.Context, path string) (Usage, error) {
	return inspect.FolderSize(ctx, path)
}

// Watch reports target directories created or removed below root.
func Watch(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	return inspect.WatchTargets(ctx, root, opts, handler)
}

// LoggingStatus returns a StatusFn that logs every transition.
func LoggingStatus(logger *zap.Logger) StatusFn {
	return func(s Status) {
		logging.OrNop(logger).Info("scan status changed", zap.Stringer("status", s))
	}
}
