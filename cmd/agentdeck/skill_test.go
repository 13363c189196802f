package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/agentdeck/pkg/skills/importer"
)

func TestImportSkillTargetRejectsBranchWithTreeURL(t *testing.T) {
	imp := importer.New(t.TempDir())

	_, err := importSkillTarget(context.Background(), imp,
		"https://github.com/acme/repo/tree/main/skills/foo", "dev", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--branch")
}

func TestImportSkillTargetMissingLocalPath(t *testing.T) {
	imp := importer.New(t.TempDir())

	_, err := importSkillTarget(context.Background(), imp, "does-not-exist", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-te", truncate("exactly-te", 10))
	assert.Equal(t, "a long ...", truncate("a long description", 10))
	// Multi-byte runes must not be split mid-sequence.
	assert.Equal(t, "日本語の...", truncate("日本語のスキルの説明文です", 7))
}
