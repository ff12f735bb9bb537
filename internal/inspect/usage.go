package inspect

import (
	"context"
	"os"
	"time"

	"github.com/karrick/godirwalk"
)

// Usage describes the contents of a directory tree.
type Usage struct {
	Bytes  int64 // Total size of regular files and symlinks, not followed
	Files  int64 // Number of non-directory entries
	Dirs   int64 // Number of directories, including the root
	Errors int64 // Entries that could not be read
}

// FolderSize walks path and sums the size of everything below it. Unreadable
// entries are counted in Usage.Errors and otherwise skipped.
func FolderSize(ctx context.Context, path string) (Usage, error) {
	var u Usage
	err := godirwalk.Walk(path, &godirwalk.Options{
		Unsorted: true,
		Callback: func(p string, de *godirwalk.Dirent) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if de.IsDir() {
				u.Dirs++
				return nil
			}
			info, err := os.Lstat(p)
			if err != nil {
				u.Errors++
				return nil
			}
			u.Files++
			u.Bytes += info.Size()
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			if ctx.Err() != nil {
				return godirwalk.Halt
			}
			u.Errors++
			return godirwalk.SkipNode
		},
	})
	if err != nil && ctx.Err() == nil {
		return u, err
	}
	return u, ctx.Err()
}

// LastModified returns the newest modification time of any file below path.
// Directories named skipName are not descended into, so a project's age is
// not reset by reinstalling its dependencies. The zero time is returned for a
// tree without files.
func LastModified(ctx context.Context, path, skipName string) (time.Time, error) {
	var newest time.Time
	err := godirwalk.Walk(path, &godirwalk.Options{
		Unsorted: true,
		Callback: func(p string, de *godirwalk.Dirent) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if de.IsDir() {
				if skipName != "" && p != path && de.Name() == skipName {
					return godirwalk.SkipThis
				}
				return nil
			}
			info, err := os.Lstat(p)
			if err != nil {
				return nil
			}
			if info.ModTime().After(newest) {
				newest = info.ModTime()
			}
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			if ctx.Err() != nil {
				return godirwalk.Halt
			}
			return godirwalk.SkipNode
		},
	})
	if err != nil && ctx.Err() == nil {
		return newest, err
	}
	return newest, ctx.Err()
}
