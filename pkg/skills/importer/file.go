package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/skills"
)

// ImportFile installs a skill from a single SKILL.md file. The file must be
// named SKILL.md (case-insensitive) and its raw content must contain a
// frontmatter delimiter; full validation happens at install time.
func (i *Importer) ImportFile(ctx context.Context, filePath, slugHint string) (*skills.Skill, error) {
	return i.importFile(ctx, filePath, slugHint, skills.NewSource(skills.SourceFile))
}

func (i *Importer) importFile(ctx context.Context, filePath, slugHint string, source *skills.Source) (*skills.Skill, error) {
	if !strings.EqualFold(filepath.Base(filePath), skills.SkillFileName) {
		return nil, errors.Errorf("file must be named %s, got %s", skills.SkillFileName, filepath.Base(filePath))
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", filePath)
	}
	if !strings.Contains(string(raw), "---") {
		return nil, errors.Errorf("%s has no frontmatter", filePath)
	}

	tempDir, cleanup, err := i.stage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := os.WriteFile(filepath.Join(tempDir, skills.SkillFileName), raw, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to stage skill file")
	}

	slugCandidate := slugHint
	if slugCandidate == "" {
		slugCandidate = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	return i.install(ctx, tempDir, slugCandidate, source)
}
