package importer

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/skills"
)

// ImportZip extracts a zip archive into a scratch directory and installs the
// skill it contains. SKILL.md must sit either at the archive root or inside
// exactly one immediate subdirectory; the search does not recurse deeper.
func (i *Importer) ImportZip(ctx context.Context, zipPath string) (*skills.Skill, error) {
	slugCandidate := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	return i.importZip(ctx, zipPath, slugCandidate, skills.NewSource(skills.SourceZip))
}

func (i *Importer) importZip(ctx context.Context, zipPath, slugCandidate string, source *skills.Source) (*skills.Skill, error) {
	tempDir, cleanup, err := i.stage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := extractZip(zipPath, tempDir); err != nil {
		return nil, errors.Wrapf(err, "failed to extract %s", zipPath)
	}

	skillDir, err := locateSkillDir(tempDir)
	if err != nil {
		return nil, errors.Wrapf(err, "no skill found in %s", zipPath)
	}

	// When the archive wraps the skill in a folder, that folder's name is a
	// better slug candidate than the archive filename.
	if skillDir != tempDir {
		slugCandidate = filepath.Base(skillDir)
	}

	return i.install(ctx, skillDir, slugCandidate, source)
}

// locateSkillDir finds SKILL.md at root or in exactly one level of
// subdirectories, first match wins.
func locateSkillDir(root string) (string, error) {
	if _, err := os.Stat(filepath.Join(root, skills.SkillFileName)); err == nil {
		return root, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", errors.Wrap(err, "failed to read extracted archive")
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(candidate, skills.SkillFileName)); err == nil {
			return candidate, nil
		}
	}
	return "", errors.Errorf("%s not found at archive root or one level deep", skills.SkillFileName)
}

func extractZip(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer reader.Close()

	for _, file := range reader.File {
		name := filepath.FromSlash(file.Name)
		target := filepath.Join(destDir, name)

		// Reject entries escaping the extraction root.
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return errors.Errorf("archive entry %q escapes extraction directory", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := file.Open()
		if err != nil {
			return errors.Wrapf(err, "failed to read archive entry %s", file.Name)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to extract archive entry %s", file.Name)
		}
	}
	return nil
}
