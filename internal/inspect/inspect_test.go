package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.NoError(t, ValidateRoot(dir))
	assert.ErrorIs(t, ValidateRoot(filepath.Join(dir, "missing")), ErrRootNotFound)
	assert.ErrorIs(t, ValidateRoot(file), ErrRootNotDir)
}

func TestIsDangerous(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/home/user/projects/app/node_modules", false},
		{"/home/user/.config/discord/node_modules", true},
		{".vscode/extensions/node_modules", true},
		{"/home/user/projects/../app/node_modules", false},
		{"/Applications/Spotify.app/Contents/node_modules", true},
		{"/Users/me/Applications/notes/node_modules", false},
		{`C:\Users\me\AppData\Roaming\Code\node_modules`, true},
		{`C:\Users\me\projects\app\node_modules`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDangerous(tt.path), tt.path)
	}
}

func TestIsSafeToDelete(t *testing.T) {
	assert.True(t, IsSafeToDelete("/r/a/node_modules", "node_modules"))
	assert.True(t, IsSafeToDelete("/r/a/node_modules/lib", "node_modules"))
	assert.False(t, IsSafeToDelete("/r/a/src", "node_modules"))
	assert.False(t, IsSafeToDelete("/r/a/src", ""))
}

func TestFolderSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "one"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "two"), make([]byte, 200), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "three"), make([]byte, 300), 0o644))

	u, err := FolderSize(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(600), u.Bytes)
	assert.Equal(t, int64(3), u.Files)
	assert.Equal(t, int64(3), u.Dirs)
}

func TestFolderSizeCanceled(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FolderSize(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLastModifiedSkipsTargets(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	src := filepath.Join(root, "index.js")
	dep := filepath.Join(root, "node_modules", "dep.js")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dep, []byte("x"), 0o644))

	old := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	recent := time.Now().Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, old, old))
	require.NoError(t, os.Chtimes(dep, recent, recent))

	got, err := LastModified(context.Background(), root, "node_modules")
	require.NoError(t, err)
	assert.True(t, got.Equal(old), "got %v want %v", got, old)

	got, err = LastModified(context.Background(), root, "")
	require.NoError(t, err)
	assert.True(t, got.Equal(recent), "got %v want %v", got, recent)
}

func TestLastModifiedEmptyTree(t *testing.T) {
	got, err := LastModified(context.Background(), t.TempDir(), "node_modules")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestWatchTargetsReportsNewTargets(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "project"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := make(chan WatchResult, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- WatchTargets(ctx, root, WatchOptions{TargetName: "node_modules", Exclude: []string{".cache"}},
			func(_ context.Context, r WatchResult) error {
				results <- r
				return nil
			})
	}()

	// Give the watcher time to register the tree.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.Mkdir(filepath.Join(root, ".cache", "node_modules"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "project", "src"), 0o755))
	want := filepath.Join(root, "project", "node_modules")
	require.NoError(t, os.Mkdir(want, 0o755))

	select {
	case r := <-results:
		require.NoError(t, r.Error)
		assert.Equal(t, want, r.Path)
		assert.Equal(t, EventCreate, r.Event)
	case <-ctx.Done():
		t.Fatal("no watch event received")
	}

	cancel()
	assert.NoError(t, <-errCh)
}

func TestWatchTargetsValidatesOptions(t *testing.T) {
	noop := func(context.Context, WatchResult) error { return nil }
	assert.Error(t, WatchTargets(context.Background(), t.TempDir(), WatchOptions{}, noop))
	assert.Error(t, WatchTargets(context.Background(), t.TempDir(), WatchOptions{TargetName: "x"}, nil))
}

func TestDeleteDirRefusesUnsafePath(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "app", "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	err := DeleteDir(context.Background(), src, "node_modules", false)
	assert.ErrorIs(t, err, ErrUnsafeDelete)
	assert.DirExists(t, src)

	assert.ErrorIs(t, DeleteDir(context.Background(), src, "", false), ErrUnsafeDelete)
}

func TestDeleteDirDryRunKeepsFolder(t *testing.T) {
	target := filepath.Join(t.TempDir(), "app", "node_modules")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "dep"), 0o755))

	require.NoError(t, DeleteDir(context.Background(), target, "node_modules", true))
	assert.DirExists(t, filepath.Join(target, "dep"))
}

func TestDeleteDirRemovesTree(t *testing.T) {
	project := filepath.Join(t.TempDir(), "app")
	target := filepath.Join(project, "node_modules")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "dep", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "dep", "lib", "index.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "package.json"), []byte("{}"), 0o644))

	require.NoError(t, DeleteDir(context.Background(), target, "node_modules", false))
	assert.NoDirExists(t, target)
	assert.FileExists(t, filepath.Join(project, "package.json"))
}

func TestDeleteDirCanceled(t *testing.T) {
	target := filepath.Join(t.TempDir(), "node_modules")
	require.NoError(t, os.MkdirAll(target, 0o755))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, DeleteDir(ctx, target, "node_modules", false), context.Canceled)
	assert.DirExists(t, target)
}
