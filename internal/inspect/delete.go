package inspect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsafeDelete is returned when a path is not inside a target directory.
var ErrUnsafeDelete = errors.New("folder not safe to delete")

// DeleteDir removes path and everything below it. Paths that do not lie
// within a directory named target are refused with ErrUnsafeDelete. With
// dryRun set the checks run but nothing is removed.
func DeleteDir(ctx context.Context, path, target string, dryRun bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = filepath.Clean(path)
	if !IsSafeToDelete(path, target) || filepath.Dir(path) == path {
		return fmt.Errorf("%w: %s", ErrUnsafeDelete, path)
	}
	if dryRun {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("error deleting %s: %w", path, err)
	}
	return nil
}
