// Package inspect holds the filesystem helpers that sit around a scan:
// validating the root, judging whether a result is risky to remove, measuring
// result directories and watching a tree for new targets.
package inspect

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	ErrRootNotFound   = errors.New("the path does not exist")
	ErrRootNotDir     = errors.New("the path must point to a directory")
	ErrRootUnreadable = errors.New("cannot read the specified path")
)

// ValidateRoot checks that path exists, is a directory and can be read.
func ValidateRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRootNotFound, err)
	}
	if !info.IsDir() {
		return ErrRootNotDir
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRootUnreadable, err)
	}
	return f.Close()
}

var (
	hiddenDirPattern      = regexp.MustCompile(`(^|/)\.[^./]`)
	macAppsPattern        = regexp.MustCompile(`(^|/)Applications/[^/]+\.app/`)
	windowsAppDataPattern = regexp.MustCompile(`(^|\\)AppData\\`)
)

// IsDangerous reports whether removing path is likely to break an installed
// application: it lives under a hidden directory, inside a macOS application
// bundle or under a Windows AppData directory.
func IsDangerous(path string) bool {
	return hiddenDirPattern.MatchString(path) ||
		macAppsPattern.MatchString(path) ||
		windowsAppDataPattern.MatchString(path)
}

// IsSafeToDelete reports whether path refers to something inside (or equal
// to) a directory named targetName.
func IsSafeToDelete(path, targetName string) bool {
	return targetName != "" && strings.Contains(path, targetName)
}
