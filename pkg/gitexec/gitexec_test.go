package gitexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLocatorPrefersBundledPath(t *testing.T) {
	tmpDir := t.TempDir()
	bundled := filepath.Join(tmpDir, "git")
	require.NoError(t, os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0o755))

	locator := &SystemLocator{BundledPath: bundled}
	path, err := locator.Resolve()
	require.NoError(t, err)
	assert.Equal(t, bundled, path)
}

func TestSystemLocatorFallsBackWhenBundledMissing(t *testing.T) {
	locator := &SystemLocator{BundledPath: "/nonexistent/git"}
	path, err := locator.Resolve()
	if err != nil {
		t.Skip("no system git available")
	}
	assert.NotEqual(t, "/nonexistent/git", path)
}

func TestCurrentBranchOnRef(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/feature/sync\n"), 0o644))

	assert.Equal(t, "feature/sync", CurrentBranch(context.Background(), tmpDir))
}

func TestCurrentBranchDetached(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("0123456789abcdef0123456789abcdef01234567\n"), 0o644))

	assert.Equal(t, "0123456", CurrentBranch(context.Background(), tmpDir))
}

func TestCurrentBranchWorktreeIndirection(t *testing.T) {
	tmpDir := t.TempDir()

	realGitDir := filepath.Join(tmpDir, "repo.git", "worktrees", "wt")
	require.NoError(t, os.MkdirAll(realGitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(realGitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))

	worktree := filepath.Join(tmpDir, "wt")
	require.NoError(t, os.MkdirAll(worktree, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(worktree, ".git"), []byte("gitdir: "+realGitDir+"\n"), 0o644))

	assert.Equal(t, "main", CurrentBranch(context.Background(), worktree))
}

func TestCurrentBranchMissingRepo(t *testing.T) {
	assert.Empty(t, CurrentBranch(context.Background(), t.TempDir()))
}
