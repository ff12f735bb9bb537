package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/TFMV/dirhunt/internal/inspect"
	"github.com/TFMV/dirhunt/internal/pool"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sizeWorkers bounds how many results are measured or deleted at once.
const sizeWorkers = 4

// ErrDeleteNotConfirmed is returned when --delete is used without --yes or
// --dry-run.
var ErrDeleteNotConfirmed = errors.New("--delete removes every result; pass --yes to confirm or --dry-run to preview")

// Result orderings accepted by --sort-by.
const (
	sortNone    = ""
	sortPath    = "path"
	sortSize    = "size"
	sortLastMod = "last-mod"
)

// scanOptions holds the result handling selected on the command line.
type scanOptions struct {
	format        string
	template      string
	sortBy        string
	measure       bool
	excludeHidden bool
	delete        bool
	dryRun        bool
	keep          filter
}

func loadScanOptions() (scanOptions, error) {
	opts := scanOptions{
		format:        viper.GetString("format"),
		template:      viper.GetString("template"),
		sortBy:        viper.GetString("sort-by"),
		excludeHidden: viper.GetBool("exclude-hidden-directories"),
		delete:        viper.GetBool("delete"),
		dryRun:        viper.GetBool("dry-run"),
	}
	if opts.format != "text" && opts.format != "json" {
		return opts, fmt.Errorf("invalid format: %s", opts.format)
	}
	switch opts.sortBy {
	case sortNone, sortPath, sortSize, sortLastMod:
	default:
		return opts, fmt.Errorf("invalid sort-by value: %s (path|size|last-mod)", opts.sortBy)
	}
	if opts.delete && !opts.dryRun && !viper.GetBool("yes") {
		return opts, ErrDeleteNotConfirmed
	}

	keep, err := newFilter()
	if err != nil {
		return opts, err
	}
	opts.keep = keep
	opts.measure = viper.GetBool("sizes") || keep.active() ||
		opts.sortBy == sortSize || opts.sortBy == sortLastMod
	return opts, nil
}

func runScan(ctx context.Context, root string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := loadScanOptions()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", root, err)
	}

	logger := newLogger()
	defer logger.Sync()

	p := pool.New(pool.Options{
		Workers:    viper.GetInt("workers"),
		MaxWorkers: viper.GetInt("max-workers"),
		MaxProcs:   viper.GetInt("max-procs"),
		Logger:     logger,
	})

	start := time.Now()
	scan, err := p.StartScan(ctx, scanConfig(abs))
	if err != nil {
		return err
	}
	target := scan.Config().TargetName

	out := newPrinter(stdout, opts.format, opts.template, scan.ID(), useColor(stdout))
	var (
		mu     sync.Mutex
		sorted []result
	)
	emit := func(res result) {
		if opts.sortBy == sortNone {
			out.print(res)
			return
		}
		mu.Lock()
		sorted = append(sorted, res)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(sizeWorkers)
	for path := range scan.Paths() {
		res := result{Path: path, Dangerous: inspect.IsDangerous(path)}
		if opts.excludeHidden && res.Dangerous {
			continue
		}
		if !opts.measure && !opts.delete {
			emit(res)
			continue
		}
		g.Go(func() error {
			if opts.measure {
				measure(ctx, logger, &res, target)
				if !opts.keep.keep(res, time.Now()) {
					return nil
				}
			}
			if opts.delete {
				remove(ctx, logger, &res, target, opts.dryRun)
			}
			emit(res)
			return nil
		})
	}
	g.Wait()

	if opts.sortBy != sortNone {
		sortResults(sorted, opts.sortBy)
		for _, res := range sorted {
			out.print(res)
		}
	}

	scanErr := scan.Wait()
	if !viper.GetBool("silent") {
		stats := scan.Stats()
		out.summary(stderr, stats, scan.Status(), time.Since(start))
	}
	if scanErr != nil {
		return fmt.Errorf("scan %s: %w", scan.Status(), scanErr)
	}
	return nil
}

// measure fills in size and age for a result. Failures leave the fields
// empty; a result is still worth reporting without them.
func measure(ctx context.Context, logger *zap.Logger, res *result, target string) {
	usage, err := inspect.FolderSize(ctx, res.Path)
	if err != nil {
		logger.Debug("cannot measure folder", zap.String("path", res.Path), zap.Error(err))
	} else {
		res.SizeBytes = &usage.Bytes
	}

	project := filepath.Dir(res.Path)
	modified, err := inspect.LastModified(ctx, project, target)
	if err != nil {
		logger.Debug("cannot read modification time", zap.String("path", project), zap.Error(err))
		return
	}
	if !modified.IsZero() {
		res.LastModified = &modified
	}
}

// remove deletes a result and records the outcome on it.
func remove(ctx context.Context, logger *zap.Logger, res *result, target string, dryRun bool) {
	if err := inspect.DeleteDir(ctx, res.Path, target, dryRun); err != nil {
		logger.Error("cannot delete folder", zap.String("path", res.Path), zap.Error(err))
		res.Action = actionDeleteFailed
		res.Error = err.Error()
		return
	}
	if dryRun {
		res.Action = actionWouldDelete
		return
	}
	logger.Info("deleted folder", zap.String("path", res.Path))
	res.Action = actionDeleted
}

// sortResults orders results by path, by size (largest first) or by project
// age (oldest first, unknown ages last).
func sortResults(results []result, by string) {
	byPath := func(a, b result) bool { return a.Path < b.Path }

	var less func(a, b result) bool
	switch by {
	case sortSize:
		less = func(a, b result) bool {
			sa, sb := sizeOf(a), sizeOf(b)
			if sa != sb {
				return sa > sb
			}
			return byPath(a, b)
		}
	case sortLastMod:
		less = func(a, b result) bool {
			switch {
			case a.LastModified == nil && b.LastModified == nil:
				return byPath(a, b)
			case a.LastModified == nil:
				return false
			case b.LastModified == nil:
				return true
			case a.LastModified.Equal(*b.LastModified):
				return byPath(a, b)
			default:
				return a.LastModified.Before(*b.LastModified)
			}
		}
	default:
		less = byPath
	}
	sort.SliceStable(results, func(i, j int) bool { return less(results[i], results[j]) })
}

func sizeOf(r result) int64 {
	if r.SizeBytes == nil {
		return -1
	}
	return *r.SizeBytes
}

// printer serialises result output from concurrent measurers.
type printer struct {
	mu       sync.Mutex
	w        io.Writer
	format   string
	template string
	scanID   string
	color    bool
	count    int
	deleted  int
	freed    int64
}
