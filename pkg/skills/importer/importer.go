// Package importer pulls skill bundles from zip archives, local folders, git
// repositories, single files, and URLs into the workspace skill store. Every
// import stages through an isolated temporary directory that is removed on
// both success and failure, resolves slug conflicts with numeric suffixes,
// persists provenance, and returns the skill re-loaded from disk.
package importer

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/gitexec"
	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/agentdeck/agentdeck/pkg/skills"
)

// Importer installs skills into a workspace.
type Importer struct {
	workspaceRoot string
	git           *gitexec.Git
	httpClient    *http.Client
}

// Option configures an Importer.
type Option func(*Importer)

// WithGitLocator sets the git binary locator used for clone-based imports.
func WithGitLocator(locator gitexec.Locator) Option {
	return func(i *Importer) {
		i.git = gitexec.New(locator)
	}
}

// WithHTTPClient sets the HTTP client used for URL imports.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Importer) {
		i.httpClient = client
	}
}

// New creates an Importer for a workspace.
func New(workspaceRoot string, opts ...Option) *Importer {
	i := &Importer{
		workspaceRoot: workspaceRoot,
		git:           gitexec.New(nil),
		httpClient:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// stage creates the scratch directory for one import attempt. The returned
// cleanup must run on every path; removal failures are logged and ignored.
func (i *Importer) stage(ctx context.Context) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", "agentdeck-import-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create staging directory")
	}
	cleanup := func() {
		if err := os.RemoveAll(tempDir); err != nil {
			logger.G(ctx).WithError(err).WithField("dir", tempDir).Warn("failed to clean import staging directory")
		}
	}
	return tempDir, cleanup, nil
}

// install validates a staged skill directory, copies it into the store under
// a conflict-free slug, persists provenance, and returns the skill as loaded
// back from disk.
func (i *Importer) install(ctx context.Context, srcDir, slugCandidate string, source *skills.Source) (*skills.Skill, error) {
	skillFile := filepath.Join(srcDir, skills.SkillFileName)
	if _, _, err := skills.ParseSkillFile(skillFile); err != nil {
		return nil, errors.Wrapf(err, "invalid skill at %s", srcDir)
	}

	slug := skills.EnsureUniqueSlug(i.workspaceRoot, slugCandidate)
	destDir := skills.SkillDir(i.workspaceRoot, slug)

	if err := copyDir(srcDir, destDir, ".git"); err != nil {
		os.RemoveAll(destDir)
		return nil, errors.Wrap(err, "failed to copy skill into store")
	}

	if err := skills.SaveSource(destDir, source); err != nil {
		os.RemoveAll(destDir)
		return nil, err
	}

	installed, err := skills.Load(ctx, i.workspaceRoot, slug)
	if err != nil || installed == nil {
		os.RemoveAll(destDir)
		return nil, errors.Errorf("imported skill %s failed validation after install", slug)
	}

	logger.G(ctx).WithField("slug", slug).WithField("source", source.Type).Info("skill installed")
	return installed, nil
}

// copyDir copies a directory tree, skipping top-level entries named in skip.
func copyDir(src, dst string, skip ...string) error {
	skipSet := make(map[string]struct{}, len(skip))
	for _, name := range skip {
		skipSet[name] = struct{}{}
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return os.MkdirAll(dst, 0o755)
		}

		topLevel := strings.SplitN(relPath, string(filepath.Separator), 2)[0]
		if _, skipped := skipSet[topLevel]; skipped {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		destPath := filepath.Join(dst, relPath)
		if info.IsDir() {
			return os.MkdirAll(destPath, info.Mode())
		}
		return copyFile(path, destPath)
	})
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
