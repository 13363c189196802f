// Package updater checks installed skills against their origin for newer
// versions and replaces them in place.
package updater

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/catalog"
	"github.com/agentdeck/agentdeck/pkg/gitexec"
	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/agentdeck/agentdeck/pkg/skills"
	"github.com/agentdeck/agentdeck/pkg/skills/importer"
)

// Updater compares installed skills against catalog entries and git remotes.
type Updater struct {
	workspaceRoot string
	importer      *importer.Importer
	git           *gitexec.Git
}

// Option configures an Updater.
type Option func(*Updater)

// WithImporter overrides the importer used for re-installation.
func WithImporter(imp *importer.Importer) Option {
	return func(u *Updater) { u.importer = imp }
}

// WithGitLocator overrides how the git binary is resolved.
func WithGitLocator(locator gitexec.Locator) Option {
	return func(u *Updater) { u.git = gitexec.New(locator) }
}

// New builds an Updater rooted at the given workspace.
func New(workspaceRoot string, opts ...Option) *Updater {
	u := &Updater{
		workspaceRoot: workspaceRoot,
		git:           gitexec.New(nil),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.importer == nil {
		u.importer = importer.New(workspaceRoot)
	}
	return u
}

// HasUpdate reports whether a newer version of the skill is available. Every
// failure path degrades to false; this is a best-effort check.
func (u *Updater) HasUpdate(ctx context.Context, skill *skills.Skill, cat *catalog.Catalog) bool {
	if skill == nil || skill.Source == nil {
		return false
	}

	switch skill.Source.Type {
	case skills.SourceSkillssh:
		entry := cat.Lookup(skill.Slug)
		if entry == nil {
			return false
		}
		return entry.Version != skill.Source.Version
	case skills.SourceGit:
		if skill.Source.URL == "" {
			return false
		}
		head, err := u.git.LsRemoteHead(ctx, skill.Source.URL)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("slug", skill.Slug).Debug("update check failed")
			return false
		}
		return head != skill.Source.Version
	default:
		return false
	}
}

// Update deletes the installed skill and re-imports it from its original
// source. The delete happens before the re-import, so a failed re-import
// leaves the skill uninstalled.
func (u *Updater) Update(ctx context.Context, skill *skills.Skill, cat *catalog.Catalog) (*skills.Skill, error) {
	if skill == nil || skill.Source == nil {
		return nil, errors.New("cannot update a skill without source provenance")
	}

	switch skill.Source.Type {
	case skills.SourceSkillssh:
		entry := cat.Lookup(skill.Slug)
		if entry == nil {
			return nil, errors.Errorf("skill %s is no longer in the catalog", skill.Slug)
		}
		if entry.DownloadURL == "" {
			return nil, errors.Errorf("catalog entry for %s has no download URL", skill.Slug)
		}
		skills.Delete(ctx, u.workspaceRoot, skill.Slug)
		return u.importer.ImportURL(ctx, entry.DownloadURL, importer.URLOptions{
			SlugHint: skill.Slug,
			Version:  entry.Version,
		})
	case skills.SourceGit:
		if skill.Source.URL == "" {
			return nil, errors.Errorf("skill %s has no origin URL", skill.Slug)
		}
		skills.Delete(ctx, u.workspaceRoot, skill.Slug)
		return u.importer.ImportGit(ctx, skill.Source.URL, "")
	default:
		return nil, errors.Errorf("cannot update skill with source type %s", skill.Source.Type)
	}
}

// CheckAll runs HasUpdate for each skill concurrently and returns a slug to
// result mapping. Individual checks are fault isolated.
func (u *Updater) CheckAll(ctx context.Context, list []*skills.Skill, cat *catalog.Catalog) map[string]bool {
	results := make(map[string]bool, len(list))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, skill := range list {
		wg.Add(1)
		go func(skill *skills.Skill) {
			defer wg.Done()
			has := u.HasUpdate(ctx, skill, cat)
			mu.Lock()
			results[skill.Slug] = has
			mu.Unlock()
		}(skill)
	}
	wg.Wait()

	return results
}
