package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/agentdeck/agentdeck/pkg/skills"
)

// ImportGit shallow-clones a repository and installs the skill at its root.
// Unlike zip imports, SKILL.md must sit at the clone root; subdirectories are
// not searched.
func (i *Importer) ImportGit(ctx context.Context, repoURL, branch string) (*skills.Skill, error) {
	cloneURL, err := NormalizeGitURL(repoURL)
	if err != nil {
		return nil, err
	}

	tempDir, cleanup, err := i.stage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cloneDir := filepath.Join(tempDir, "clone")
	if err := i.git.Clone(ctx, cloneURL, cloneDir, branch, 1); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(cloneDir, skills.SkillFileName)); err != nil {
		return nil, errors.Errorf("no %s at repository root of %s", skills.SkillFileName, repoURL)
	}

	source := skills.NewRemoteSource(skills.SourceGit, repoURL, "")
	if version, err := i.git.RevParseShort(ctx, cloneDir); err == nil {
		source.Version = version
	} else {
		logger.G(ctx).WithError(err).Debug("could not determine cloned skill version")
	}

	return i.install(ctx, cloneDir, repoNameFromURL(cloneURL), source)
}

// NormalizeGitURL validates a git URL shape and appends .git to bare GitHub
// HTTPS URLs. Accepted shapes are http(s):// and git@host:path.
func NormalizeGitURL(repoURL string) (string, error) {
	trimmed := strings.TrimSpace(repoURL)

	if strings.HasPrefix(trimmed, "git@") && strings.Contains(trimmed, ":") {
		return trimmed, nil
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		if isBareGitHubURL(trimmed) {
			return strings.TrimSuffix(trimmed, "/") + ".git", nil
		}
		return trimmed, nil
	}

	return "", errors.Errorf("unsupported git URL %q: expected http(s):// or git@host:path", repoURL)
}

func isBareGitHubURL(u string) bool {
	if strings.HasSuffix(u, ".git") {
		return false
	}
	stripped := strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://")
	stripped = strings.TrimSuffix(stripped, "/")
	parts := strings.Split(stripped, "/")
	return len(parts) == 3 && parts[0] == "github.com" && parts[1] != "" && parts[2] != ""
}

func repoNameFromURL(u string) string {
	name := strings.TrimSuffix(u, ".git")
	name = strings.TrimSuffix(name, "/")
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
