// Package catalog fetches and caches the remote skill index. The index lives
// in a GitHub repository under a skills/ directory, one subdirectory per
// skill, each with a SKILL.md describing it.
package catalog

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Entry describes one installable skill in the remote index.
type Entry struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Version     string `json:"version,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Catalog is the full remote index plus the time it was fetched.
type Catalog struct {
	Skills      []Entry   `json:"skills"`
	LastFetched time.Time `json:"lastFetched"`
}

// Lookup returns the entry with the given slug, or nil.
func (c *Catalog) Lookup(slug string) *Entry {
	if c == nil {
		return nil
	}
	for i := range c.Skills {
		if c.Skills[i].Slug == slug {
			return &c.Skills[i]
		}
	}
	return nil
}

var (
	frontmatterRe = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---`)
	quoteTrimSet  = "\"' \t"
)

// frontmatterField pulls one scalar field out of a frontmatter block by
// regex. Catalog entries are best-effort and network-sourced, so a regex
// scan is deliberate here; the canonical skill-file parser uses a real
// YAML engine.
func frontmatterField(block, key string) string {
	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(key) + `:[ \t]*(.+)$`)
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(m[1]), quoteTrimSet)
}

// entryFromSkillFile builds an Entry from raw SKILL.md content. Missing
// frontmatter degrades to slug-derived values rather than failing.
func entryFromSkillFile(slug, content, downloadURL string) Entry {
	entry := Entry{
		Slug:        slug,
		Name:        titleCaseSlug(slug),
		DownloadURL: downloadURL,
	}

	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return entry
	}
	block := m[1]

	if name := frontmatterField(block, "name"); name != "" {
		entry.Name = name
	}
	entry.Description = frontmatterField(block, "description")
	entry.Author = frontmatterField(block, "author")
	entry.Version = frontmatterField(block, "version")
	return entry
}

// titleCaseSlug turns "code-reviewer" into "Code Reviewer".
func titleCaseSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
