package skills

import (
	"fmt"
	"strings"
)

// SanitizeSlug converts an arbitrary name into a filesystem- and URL-safe
// slug: lower-case alphanumeric plus hyphens.
func SanitizeSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return "skill"
	}
	return slug
}

// EnsureUniqueSlug resolves slug conflicts within a workspace by appending
// an incrementing numeric suffix (-1, -2, ...) until the slug is free.
func EnsureUniqueSlug(workspaceRoot, candidate string) string {
	slug := SanitizeSlug(candidate)
	if !Exists(workspaceRoot, slug) {
		return slug
	}

	for i := 1; ; i++ {
		next := fmt.Sprintf("%s-%d", slug, i)
		if !Exists(workspaceRoot, next) {
			return next
		}
	}
}
