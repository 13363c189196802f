// Package gitexec wraps invocations of the git binary used by skill imports
// and update checks. The binary location is resolved through a Locator
// capability so that the hosting shell can point the core at a bundled git
// without process-global state.
package gitexec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/pkg/errors"
)

// Locator resolves the path of the git binary to execute.
type Locator interface {
	Resolve() (string, error)
}

// SystemLocator prefers an explicitly bundled git binary and falls back to
// whatever is on PATH.
type SystemLocator struct {
	BundledPath string
}

// Resolve returns the bundled git path when it exists, otherwise the system git.
func (l *SystemLocator) Resolve() (string, error) {
	if l != nil && l.BundledPath != "" {
		if _, err := os.Stat(l.BundledPath); err == nil {
			return l.BundledPath, nil
		}
	}
	path, err := exec.LookPath("git")
	if err != nil {
		return "", errors.Wrap(err, "git binary not found")
	}
	return path, nil
}

// Git executes git commands through a Locator.
type Git struct {
	locator Locator
}

// New creates a Git executor. A nil locator falls back to the system git.
func New(locator Locator) *Git {
	if locator == nil {
		locator = &SystemLocator{}
	}
	return &Git{locator: locator}
}

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin, err := g.locator.Resolve()
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

// Clone performs a shallow clone of url into dir. branch is optional.
func (g *Git) Clone(ctx context.Context, url, dir, branch string, depth int) error {
	args := []string{"clone"}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dir)

	if _, err := g.run(ctx, "", args...); err != nil {
		return errors.Wrapf(err, "failed to clone %s", url)
	}
	return nil
}

// RevParseShort returns the 7-character short commit hash of HEAD in dir.
func (g *Git) RevParseShort(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	if len(out) < 7 {
		return "", errors.Errorf("unexpected rev-parse output %q", out)
	}
	return out[:7], nil
}

// LsRemoteHead returns the 7-character short hash of the remote HEAD.
func (g *Git) LsRemoteHead(ctx context.Context, url string) (string, error) {
	out, err := g.run(ctx, "", "ls-remote", url, "HEAD")
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 || len(fields[0]) < 7 {
		return "", errors.Errorf("unexpected ls-remote output %q", out)
	}
	return fields[0][:7], nil
}

// CurrentBranch reads the branch name (or detached short commit hash) for the
// repository containing dir. It follows the gitdir indirection file used by
// worktrees. Failures degrade to an empty string, never an error.
func CurrentBranch(ctx context.Context, dir string) string {
	gitPath := filepath.Join(dir, ".git")

	info, err := os.Stat(gitPath)
	if err != nil {
		return ""
	}

	headDir := gitPath
	if !info.IsDir() {
		// Worktree: .git is a file containing "gitdir: <path>".
		data, err := os.ReadFile(gitPath)
		if err != nil {
			return ""
		}
		line := strings.TrimSpace(string(data))
		if !strings.HasPrefix(line, "gitdir:") {
			return ""
		}
		headDir = strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
		if !filepath.IsAbs(headDir) {
			headDir = filepath.Join(dir, headDir)
		}
	}

	data, err := os.ReadFile(filepath.Join(headDir, "HEAD"))
	if err != nil {
		logger.G(ctx).WithError(err).Debug("failed to read git HEAD")
		return ""
	}

	head := strings.TrimSpace(string(data))
	if strings.HasPrefix(head, "ref: ") {
		ref := strings.TrimPrefix(head, "ref: ")
		return strings.TrimPrefix(ref, "refs/heads/")
	}
	if len(head) >= 7 {
		return head[:7]
	}
	return ""
}
