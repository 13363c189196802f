package claudecode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForSession(t *testing.T, changed <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case id, ok := <-changed:
			require.True(t, ok, "watch channel closed before %s arrived", want)
			if id == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for session %s", want)
		}
	}
}

func TestWatcherReportsChangedSessions(t *testing.T) {
	dirs := testDirs(t)
	projectDir := filepath.Join(dirs.ProjectsDir(), "-home-me-app")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed, err := NewWatcher(dirs).Watch(ctx)
	require.NoError(t, err)

	path := dirs.TranscriptPath(projectDir, "sess-watch")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"user"}`+"\n"), 0o644))

	waitForSession(t, changed, "sess-watch")
}

func TestWatcherPicksUpNewProjectFolders(t *testing.T) {
	dirs := testDirs(t)
	require.NoError(t, os.MkdirAll(dirs.ProjectsDir(), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed, err := NewWatcher(dirs).Watch(ctx)
	require.NoError(t, err)

	projectDir := filepath.Join(dirs.ProjectsDir(), "-home-me-new")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))

	// Give the watcher a moment to register the new folder.
	time.Sleep(250 * time.Millisecond)

	path := dirs.TranscriptPath(projectDir, "sess-new")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"user"}`+"\n"), 0o644))

	waitForSession(t, changed, "sess-new")
}

func TestWatcherClosesOnCancel(t *testing.T) {
	dirs := testDirs(t)
	ctx, cancel := context.WithCancel(context.Background())

	changed, err := NewWatcher(dirs).Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-changed:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel not closed after cancellation")
	}
}
