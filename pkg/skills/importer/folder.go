package importer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/skills"
)

// ImportFolder installs a skill from a local directory containing SKILL.md.
func (i *Importer) ImportFolder(ctx context.Context, folderPath string) (*skills.Skill, error) {
	return i.importFolder(ctx, folderPath, filepath.Base(folderPath), skills.NewSource(skills.SourceFolder))
}

func (i *Importer) importFolder(ctx context.Context, folderPath, slugCandidate string, source *skills.Source) (*skills.Skill, error) {
	info, err := os.Stat(folderPath)
	if err != nil {
		return nil, errors.Wrapf(err, "folder %s not accessible", folderPath)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", folderPath)
	}

	if _, err := os.Stat(filepath.Join(folderPath, skills.SkillFileName)); err != nil {
		return nil, errors.Errorf("no %s found in %s", skills.SkillFileName, folderPath)
	}

	return i.install(ctx, folderPath, slugCandidate, source)
}
