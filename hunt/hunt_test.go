package hunt

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func makeTree(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755))
	}
	return root
}

func TestFind(t *testing.T) {
	root := makeTree(t,
		"web/node_modules/react/node_modules",
		"api/node_modules",
		"api/.git/node_modules",
		"docs",
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got, err := Find(ctx, root, "node_modules", ".git")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "api", "node_modules"),
		filepath.Join(root, "web", "node_modules"),
	}, got)
}

func TestFindNoMatches(t *testing.T) {
	root := makeTree(t, "a/b/c")
	got, err := Find(context.Background(), root, "node_modules")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindInvalidRoot(t *testing.T) {
	_, err := Find(context.Background(), filepath.Join(t.TempDir(), "missing"), "node_modules")
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, err = Find(context.Background(), t.TempDir(), "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFindWithOptionsReportsStatus(t *testing.T) {
	root := makeTree(t, "x/target", "y/z/target")

	core, logs := observer.New(zap.InfoLevel)
	var mu sync.Mutex
	var seen []Status
	logStatus := LoggingStatus(zap.New(core))

	got, err := FindWithOptions(context.Background(),
		Config{RootPath: root, TargetName: "target"},
		Options{Workers: 2, OnStatus: func(s Status) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
			logStatus(s)
		}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusScanning, StatusFinished}, seen)
	assert.Equal(t, 2, logs.FilterMessage("scan status changed").Len())
}

func TestFindCanceled(t *testing.T) {
	root := makeTree(t, "a/node_modules")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Find(ctx, root, "node_modules")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindThenDelete(t *testing.T) {
	root := makeTree(t, "web/node_modules/react", "api/node_modules", "api/src")
	ctx := context.Background()

	found, err := Find(ctx, root, "node_modules")
	require.NoError(t, err)
	require.Len(t, found, 2)

	for _, path := range found {
		require.NoError(t, Delete(ctx, path, "node_modules", false))
	}
	again, err := Find(ctx, root, "node_modules")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.DirExists(t, filepath.Join(root, "api", "src"))

	assert.ErrorIs(t, Delete(ctx, filepath.Join(root, "api", "src"), "node_modules", false), ErrUnsafeDelete)
}
