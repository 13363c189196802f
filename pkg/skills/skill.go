// Package skills implements the on-disk skill store. A skill is a directory
// under {workspaceRoot}/skills/{slug} containing a SKILL.md file with YAML
// frontmatter metadata, an optional icon file, and a provenance sidecar
// describing where the skill was installed from.
package skills

import (
	"net/url"
	"strings"
	"time"
	"unicode"
)

const (
	// SkillFileName is the canonical skill definition file.
	SkillFileName = "SKILL.md"
	// SkillsDirName is the per-workspace directory holding skill directories.
	SkillsDirName = "skills"
)

// SourceType discriminates skill provenance variants.
type SourceType string

const (
	// SourceLocal marks manually authored or edited skills.
	SourceLocal SourceType = "local"
	// SourceSkillssh marks skills installed from the remote skill catalog.
	SourceSkillssh SourceType = "skillssh"
	// SourceGit marks skills cloned from a git repository.
	SourceGit SourceType = "git"
	// SourceZip marks skills extracted from a zip archive.
	SourceZip SourceType = "zip"
	// SourceFolder marks skills copied from a local folder.
	SourceFolder SourceType = "folder"
	// SourceFile marks skills created from a single SKILL.md file.
	SourceFile SourceType = "file"
)

// Source is the provenance sidecar persisted next to SKILL.md. Only the
// git and skillssh variants carry a URL and version; the rest are
// timestamp-only.
type Source struct {
	Type        SourceType `json:"type"`
	URL         string     `json:"url,omitempty"`
	Version     string     `json:"version,omitempty"`
	InstalledAt time.Time  `json:"installedAt,omitempty"`
	Modified    bool       `json:"modified,omitempty"`
}

// NewSource creates a timestamp-only provenance record.
func NewSource(t SourceType) *Source {
	return &Source{Type: t, InstalledAt: time.Now().UTC()}
}

// NewRemoteSource creates a provenance record for git or skillssh installs.
func NewRemoteSource(t SourceType, url, version string) *Source {
	s := NewSource(t)
	s.URL = url
	s.Version = version
	return s
}

// Metadata is the YAML frontmatter of SKILL.md. Field order here is the
// canonical serialization order.
type Metadata struct {
	Name        string   `yaml:"name" mapstructure:"name"`
	Description string   `yaml:"description" mapstructure:"description"`
	Globs       []string `yaml:"globs,omitempty" mapstructure:"globs"`
	AlwaysAllow []string `yaml:"alwaysAllow,omitempty" mapstructure:"alwaysAllow"`
	Icon        string   `yaml:"icon,omitempty" mapstructure:"icon"`
}

// Skill is a fully loaded skill record.
type Skill struct {
	Slug      string
	Metadata  Metadata
	Content   string // markdown body without frontmatter
	IconPath  string // path to an icon file in the skill directory, if any
	Source    *Source
	Directory string
}

// ValidIcon reports whether an icon value is acceptable: an emoji literal or
// an absolute http(s) URL. Relative paths and inline markup are rejected.
func ValidIcon(icon string) bool {
	if icon == "" {
		return true
	}

	if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
		u, err := url.Parse(icon)
		return err == nil && u.Host != ""
	}

	// Emoji literal: short, no ASCII, no markup characters.
	if len(icon) > 32 {
		return false
	}
	for _, r := range icon {
		if r < 128 {
			return false
		}
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
