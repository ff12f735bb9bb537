package inspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// WatchEvent represents the kind of change seen for a target directory.
type WatchEvent string

const (
	EventCreate WatchEvent = "create"
	EventDelete WatchEvent = "delete"
)

// WatchOptions defines which directories WatchTargets reports.
type WatchOptions struct {
	TargetName string   // Exact base name of the directories to report
	Exclude    []string // Paths containing any of these substrings are ignored
	Logger     *zap.Logger
}

// WatchResult is a single watch notification. Exactly one of Path or Error
// is set.
type WatchResult struct {
	Path  string
	Event WatchEvent
	Error error
}

// WatchHandler processes watch notifications. It runs on the watch goroutine.
type WatchHandler func(ctx context.Context, result WatchResult) error

// WatchTargets reports target directories created or removed below root
// until ctx is done. Existing targets are not reported; run a scan first for
// those. Target directories themselves are never watched.
func WatchTargets(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	if opts.TargetName == "" {
		return fmt.Errorf("watch: empty target name")
	}
	if handler == nil {
		return fmt.Errorf("watch: nil handler")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	target := norm.NFC.String(opts.TargetName)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	w := &targetWatcher{
		watcher: watcher,
		target:  target,
		exclude: opts.Exclude,
		logger:  logger,
	}
	if err := w.addTree(root); err != nil {
		return fmt.Errorf("error watching directory %s: %w", root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.excluded(event.Name) {
				continue
			}
			isTarget := w.isTarget(filepath.Base(event.Name))

			switch {
			case event.Has(fsnotify.Create):
				info, err := os.Lstat(event.Name)
				if err != nil || !info.IsDir() {
					continue
				}
				if isTarget {
					if err := handler(ctx, WatchResult{Path: event.Name, Event: EventCreate}); err != nil {
						return err
					}
					continue
				}
				// A new subtree may already contain targets by the time it
				// is watched; report those as created too.
				if err := w.addTreeReporting(ctx, event.Name, handler); err != nil {
					return err
				}

			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				if isTarget {
					if err := handler(ctx, WatchResult{Path: event.Name, Event: EventDelete}); err != nil {
						return err
					}
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if herr := handler(ctx, WatchResult{Error: fmt.Errorf("watcher error: %w", err)}); herr != nil {
				return herr
			}
		}
	}
}

type targetWatcher struct {
	watcher *fsnotify.Watcher
	target  string
	exclude []string
	logger  *zap.Logger
}

func (w *targetWatcher) isTarget(name string) bool {
	return norm.NFC.String(name) == w.target
}

func (w *targetWatcher) excluded(path string) bool {
	for _, e := range w.exclude {
		if e != "" && strings.Contains(path, e) {
			return true
		}
	}
	return false
}

// addTree watches root and every non-target, non-excluded directory below it.
func (w *targetWatcher) addTree(root string) error {
	return w.walkTree(root, nil)
}

func (w *targetWatcher) addTreeReporting(ctx context.Context, root string, handler WatchHandler) error {
	return w.walkTree(root, func(path string) error {
		return handler(ctx, WatchResult{Path: path, Event: EventCreate})
	})
}

func (w *targetWatcher) walkTree(root string, onTarget func(string) error) error {
	var handlerErr error
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if path != root && w.excluded(path) {
				return godirwalk.SkipThis
			}
			if path != root && w.isTarget(de.Name()) {
				if onTarget != nil {
					if err := onTarget(path); err != nil {
						handlerErr = err
						return err
					}
				}
				return godirwalk.SkipThis
			}
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("cannot watch directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if handlerErr != nil {
				return godirwalk.Halt
			}
			w.logger.Debug("skipping unreadable directory", zap.String("path", path), zap.Error(err))
			return godirwalk.SkipNode
		},
	})
	if handlerErr != nil {
		return handlerErr
	}
	return err
}
