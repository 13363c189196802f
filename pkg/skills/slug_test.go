package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Cool Skill", "my-cool-skill"},
		{"already-a-slug", "already-a-slug"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"Ünïcödé Skill!", "n-c-d-skill"},
		{"___", "skill"},
		{"", "skill"},
		{"UPPER.case.zip", "upper-case-zip"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeSlug(tt.in), "input %q", tt.in)
	}
}

func TestEnsureUniqueSlug(t *testing.T) {
	workspaceRoot := t.TempDir()

	assert.Equal(t, "fresh", EnsureUniqueSlug(workspaceRoot, "fresh"))

	writeSkill(t, workspaceRoot, "taken", validSkill)
	assert.Equal(t, "taken-1", EnsureUniqueSlug(workspaceRoot, "taken"))

	writeSkill(t, workspaceRoot, "taken-1", validSkill)
	assert.Equal(t, "taken-2", EnsureUniqueSlug(workspaceRoot, "Taken"))
}
