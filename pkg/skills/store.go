package skills

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"github.com/agentdeck/agentdeck/pkg/logger"
)

// Dir returns the skills directory of a workspace.
func Dir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, SkillsDirName)
}

// SkillDir returns the directory of a single skill.
func SkillDir(workspaceRoot, slug string) string {
	return filepath.Join(Dir(workspaceRoot), slug)
}

// Load reads a skill from the store. It fails soft: a missing directory,
// missing SKILL.md, unparsable frontmatter, missing required fields, an
// invalid icon, or an invalid glob trigger all yield (nil, nil).
func Load(ctx context.Context, workspaceRoot, slug string) (*Skill, error) {
	dir := SkillDir(workspaceRoot, slug)

	metadata, content, err := ParseSkillFile(filepath.Join(dir, SkillFileName))
	if err != nil {
		logger.G(ctx).WithError(err).WithField("slug", slug).Debug("skipping invalid skill")
		return nil, nil
	}

	return &Skill{
		Slug:      slug,
		Metadata:  metadata,
		Content:   content,
		IconPath:  findIconFile(dir),
		Source:    LoadSource(ctx, dir),
		Directory: dir,
	}, nil
}

// LoadAll returns every valid skill in the workspace. Invalid entries are
// silently skipped.
func LoadAll(ctx context.Context, workspaceRoot string) []*Skill {
	var result []*Skill
	for _, slug := range ListSlugs(workspaceRoot) {
		skill, err := Load(ctx, workspaceRoot, slug)
		if err != nil || skill == nil {
			continue
		}
		result = append(result, skill)
	}
	return result
}

// Update rewrites a skill's SKILL.md with canonical frontmatter ordering and
// marks its provenance as modified, creating local provenance if absent.
// Returns (nil, nil) when the slug does not exist.
func Update(ctx context.Context, workspaceRoot, slug string, metadata Metadata, content string) (*Skill, error) {
	if !Exists(workspaceRoot, slug) {
		return nil, nil
	}

	if err := validateMetadata(metadata); err != nil {
		return nil, err
	}

	dir := SkillDir(workspaceRoot, slug)
	if err := WriteSkillFile(filepath.Join(dir, SkillFileName), metadata, content); err != nil {
		return nil, err
	}

	source := LoadSource(ctx, dir)
	if source == nil {
		source = NewSource(SourceLocal)
	}
	source.Modified = true
	if err := SaveSource(dir, source); err != nil {
		return nil, err
	}

	return Load(ctx, workspaceRoot, slug)
}

// Delete removes a skill directory recursively. Returns false when the slug
// is absent; never returns an error to the caller.
func Delete(ctx context.Context, workspaceRoot, slug string) bool {
	dir := SkillDir(workspaceRoot, slug)
	if _, err := os.Stat(dir); err != nil {
		return false
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.G(ctx).WithError(err).WithField("slug", slug).Warn("failed to remove skill directory")
		return false
	}
	return true
}

// Exists reports whether a skill directory with a SKILL.md exists.
func Exists(workspaceRoot, slug string) bool {
	_, err := os.Stat(filepath.Join(SkillDir(workspaceRoot, slug), SkillFileName))
	return err == nil
}

// ListSlugs enumerates the slugs of all skill directories holding a SKILL.md.
func ListSlugs(workspaceRoot string) []string {
	entries, err := os.ReadDir(Dir(workspaceRoot))
	if err != nil {
		return nil
	}

	var slugs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if Exists(workspaceRoot, entry.Name()) {
			slugs = append(slugs, entry.Name())
		}
	}
	sort.Strings(slugs)
	return slugs
}

// WriteSkillFile serializes metadata and content into a SKILL.md. Frontmatter
// fields keep the canonical order: name, description, globs, alwaysAllow, icon.
func WriteSkillFile(path string, metadata Metadata, content string) error {
	front, err := yaml.Marshal(metadata)
	if err != nil {
		return errors.Wrap(err, "failed to marshal skill frontmatter")
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimLeft(content, "\n"))
	if !strings.HasSuffix(buf.String(), "\n") {
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "failed to write skill file")
	}
	return nil
}

func validateMetadata(metadata Metadata) error {
	var result *multierror.Error
	if strings.TrimSpace(metadata.Name) == "" {
		result = multierror.Append(result, errors.New("skill name is required"))
	}
	if strings.TrimSpace(metadata.Description) == "" {
		result = multierror.Append(result, errors.New("skill description is required"))
	}
	if !ValidIcon(metadata.Icon) {
		result = multierror.Append(result, errors.Errorf("invalid icon %q: must be an emoji or absolute URL", metadata.Icon))
	}
	for _, pattern := range metadata.Globs {
		if _, err := glob.Compile(pattern); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "invalid glob trigger %q", pattern))
		}
	}
	return result.ErrorOrNil()
}

// ParseSkillFile parses and validates a SKILL.md, returning its metadata and
// markdown body.
func ParseSkillFile(path string) (Metadata, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, "", errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(raw, &buf, parser.WithContext(pctx)); err != nil {
		return Metadata{}, "", errors.Wrap(err, "failed to parse skill markdown")
	}

	fields := meta.Get(pctx)
	if fields == nil {
		return Metadata{}, "", errors.New("missing frontmatter")
	}

	name, _ := fields["name"].(string)
	description, _ := fields["description"].(string)
	icon, _ := fields["icon"].(string)

	metadata := Metadata{
		Name:        name,
		Description: description,
		Globs:       toStringSlice(fields["globs"]),
		AlwaysAllow: toStringSlice(fields["alwaysAllow"]),
		Icon:        icon,
	}

	if err := validateMetadata(metadata); err != nil {
		return Metadata{}, "", err
	}

	return metadata, extractBody(string(raw)), nil
}

// extractBody strips the YAML frontmatter block and returns the markdown body.
func extractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
		}
	}
	return content
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var result []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func findIconFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.EqualFold(base, "icon") {
			return filepath.Join(dir, name)
		}
	}
	return ""
}
