package walker

import (
	"github.com/karrick/godirwalk"
)

// DirEntry is one immediate child of a listed directory.
type DirEntry struct {
	Name  string
	IsDir bool // false for symbolic links, even when they point at a directory
}

// DirLister lists the immediate children of a directory.
// Implementations must be safe for concurrent use.
type DirLister interface {
	ListDir(path string) ([]DirEntry, error)
}

// GodirwalkLister reads directories with godirwalk, which takes entry types
// from the directory itself instead of calling lstat on every child.
type GodirwalkLister struct{}

// ListDir implements DirLister.
func (GodirwalkLister) ListDir(path string) ([]DirEntry, error) {
	dirents, err := godirwalk.ReadDirents(path, nil)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(dirents))
	for _, de := range dirents {
		out = append(out, DirEntry{Name: de.Name(), IsDir: de.IsDir()})
	}
	return out, nil
}
