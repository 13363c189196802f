package updater

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/agentdeck/pkg/catalog"
	"github.com/agentdeck/agentdeck/pkg/gitexec"
	"github.com/agentdeck/agentdeck/pkg/skills"
	"github.com/agentdeck/agentdeck/pkg/skills/importer"
)

const updaterSkillFile = `---
name: Code Reviewer
description: Reviews pull requests
---

Body.
`

// fakeGit writes a shell script that mimics the git subcommands the updater
// exercises and returns a locator resolving to it.
func fakeGit(t *testing.T, lsRemoteHash string) gitexec.Locator {
	t.Helper()
	script := fmt.Sprintf(`#!/bin/sh
case "$1" in
  ls-remote) printf '%s\tHEAD\n' ;;
  *) exit 1 ;;
esac
`, lsRemoteHash)
	path := filepath.Join(t.TempDir(), "git")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return &gitexec.SystemLocator{BundledPath: path}
}

func installSkill(t *testing.T, workspace, slug string, source *skills.Source) *skills.Skill {
	t.Helper()
	dir := skills.SkillDir(workspace, slug)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, skills.SkillFileName), []byte(updaterSkillFile), 0o644))
	if source != nil {
		require.NoError(t, skills.SaveSource(dir, source))
	}
	skill, err := skills.Load(context.Background(), workspace, slug)
	require.NoError(t, err)
	require.NotNil(t, skill)
	return skill
}

func TestHasUpdateSkillssh(t *testing.T) {
	workspace := t.TempDir()
	u := New(workspace)
	ctx := context.Background()

	skill := installSkill(t, workspace, "reviewer", &skills.Source{
		Type:    skills.SourceSkillssh,
		URL:     "https://skills.sh/reviewer.md",
		Version: "1.0.0",
	})

	t.Run("newer version in catalog", func(t *testing.T) {
		cat := &catalog.Catalog{Skills: []catalog.Entry{{Slug: "reviewer", Version: "1.1.0"}}}
		assert.True(t, u.HasUpdate(ctx, skill, cat))
	})

	t.Run("same version", func(t *testing.T) {
		cat := &catalog.Catalog{Skills: []catalog.Entry{{Slug: "reviewer", Version: "1.0.0"}}}
		assert.False(t, u.HasUpdate(ctx, skill, cat))
	})

	t.Run("slug absent from catalog", func(t *testing.T) {
		cat := &catalog.Catalog{Skills: []catalog.Entry{{Slug: "other"}}}
		assert.False(t, u.HasUpdate(ctx, skill, cat))
	})

	t.Run("nil catalog", func(t *testing.T) {
		assert.False(t, u.HasUpdate(ctx, skill, nil))
	})
}

func TestHasUpdateGit(t *testing.T) {
	workspace := t.TempDir()
	ctx := context.Background()

	skill := installSkill(t, workspace, "reviewer", &skills.Source{
		Type:    skills.SourceGit,
		URL:     "https://github.com/acme/reviewer.git",
		Version: "abc1234",
	})

	t.Run("remote moved", func(t *testing.T) {
		u := New(workspace, WithGitLocator(fakeGit(t, "def5678000000000")))
		assert.True(t, u.HasUpdate(ctx, skill, nil))
	})

	t.Run("remote unchanged", func(t *testing.T) {
		u := New(workspace, WithGitLocator(fakeGit(t, "abc1234000000000")))
		assert.False(t, u.HasUpdate(ctx, skill, nil))
	})

	t.Run("git failure degrades to false", func(t *testing.T) {
		failing := filepath.Join(t.TempDir(), "git")
		require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\nexit 128\n"), 0o755))
		u := New(workspace, WithGitLocator(&gitexec.SystemLocator{BundledPath: failing}))
		assert.False(t, u.HasUpdate(ctx, skill, nil))
	})
}

func TestHasUpdateOtherSources(t *testing.T) {
	workspace := t.TempDir()
	u := New(workspace)
	ctx := context.Background()

	for _, sourceType := range []skills.SourceType{skills.SourceLocal, skills.SourceZip, skills.SourceFolder, skills.SourceFile} {
		skill := installSkill(t, workspace, "skill-"+string(sourceType), &skills.Source{Type: sourceType})
		assert.False(t, u.HasUpdate(ctx, skill, nil), "source type %s", sourceType)
	}

	noSource := installSkill(t, workspace, "bare", nil)
	assert.False(t, u.HasUpdate(ctx, noSource, nil))
	assert.False(t, u.HasUpdate(ctx, nil, nil))
}

func TestUpdateSkillssh(t *testing.T) {
	workspace := t.TempDir()
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte(updaterSkillFile))
	}))
	defer server.Close()

	skill := installSkill(t, workspace, "reviewer", &skills.Source{
		Type:    skills.SourceSkillssh,
		URL:     server.URL + "/reviewer.md",
		Version: "1.0.0",
	})

	cat := &catalog.Catalog{Skills: []catalog.Entry{{
		Slug:        "reviewer",
		Version:     "1.1.0",
		DownloadURL: server.URL + "/reviewer.md",
	}}}

	u := New(workspace)
	updated, err := u.Update(ctx, skill, cat)
	require.NoError(t, err)

	// The old directory was replaced, not suffixed.
	assert.Equal(t, "reviewer", updated.Slug)
	assert.Equal(t, skills.SourceSkillssh, updated.Source.Type)
	assert.Equal(t, "1.1.0", updated.Source.Version)

	assert.Equal(t, []string{"reviewer"}, skills.ListSlugs(workspace))
}

func TestUpdateSkillsshVanishedFromCatalog(t *testing.T) {
	workspace := t.TempDir()
	u := New(workspace)

	skill := installSkill(t, workspace, "reviewer", &skills.Source{
		Type:    skills.SourceSkillssh,
		Version: "1.0.0",
	})

	_, err := u.Update(context.Background(), skill, &catalog.Catalog{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer in the catalog")

	// Resolution failed before the delete, so the skill survives.
	assert.True(t, skills.Exists(workspace, "reviewer"))
}

func TestUpdateUnsupportedSource(t *testing.T) {
	workspace := t.TempDir()
	u := New(workspace)

	skill := installSkill(t, workspace, "reviewer", &skills.Source{Type: skills.SourceZip})

	_, err := u.Update(context.Background(), skill, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot update")
	assert.True(t, skills.Exists(workspace, "reviewer"))
}

func TestUpdateGitReimportFailureIsDestructive(t *testing.T) {
	workspace := t.TempDir()

	script := `#!/bin/sh
exit 128
`
	gitPath := filepath.Join(t.TempDir(), "git")
	require.NoError(t, os.WriteFile(gitPath, []byte(script), 0o755))
	locator := &gitexec.SystemLocator{BundledPath: gitPath}

	imp := importer.New(workspace, importer.WithGitLocator(locator))
	u := New(workspace, WithImporter(imp), WithGitLocator(locator))

	skill := installSkill(t, workspace, "reviewer", &skills.Source{
		Type:    skills.SourceGit,
		URL:     "https://github.com/acme/reviewer.git",
		Version: "abc1234",
	})

	_, err := u.Update(context.Background(), skill, nil)
	require.Error(t, err)

	// The delete ran before the clone failed, so the skill is gone.
	assert.False(t, skills.Exists(workspace, "reviewer"))
}

func TestCheckAll(t *testing.T) {
	workspace := t.TempDir()
	ctx := context.Background()

	fromCatalog := installSkill(t, workspace, "from-catalog", &skills.Source{
		Type:    skills.SourceSkillssh,
		Version: "1.0.0",
	})
	pinned := installSkill(t, workspace, "pinned", &skills.Source{
		Type:    skills.SourceSkillssh,
		Version: "2.0.0",
	})
	local := installSkill(t, workspace, "local-only", &skills.Source{Type: skills.SourceLocal})

	cat := &catalog.Catalog{Skills: []catalog.Entry{
		{Slug: "from-catalog", Version: "1.1.0"},
		{Slug: "pinned", Version: "2.0.0"},
	}}

	u := New(workspace)
	results := u.CheckAll(ctx, []*skills.Skill{fromCatalog, pinned, local}, cat)

	assert.Equal(t, map[string]bool{
		"from-catalog": true,
		"pinned":       false,
		"local-only":   false,
	}, results)
}
