package importer

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/agentdeck/agentdeck/pkg/skills"
)

var githubTreeRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/(?:tree|blob)/([^/]+)/(.+)$`)

// URLOptions carries optional hints for URL imports, typically provided by a
// catalog entry.
type URLOptions struct {
	SlugHint string
	Version  string
}

// IsGitHubTreeURL reports whether rawURL addresses a subdirectory or file
// within a GitHub repository. Such URLs already name a branch, so callers
// must not supply one separately.
func IsGitHubTreeURL(rawURL string) bool {
	return githubTreeRe.MatchString(rawURL)
}

// ImportURL dispatches on the URL shape: GitHub tree/blob URLs clone the
// repository and import the named subdirectory; git-like URLs delegate to the
// git importer; anything else is fetched and dispatched on content type
// (zip archives and markdown files are supported).
func (i *Importer) ImportURL(ctx context.Context, rawURL string, opts URLOptions) (*skills.Skill, error) {
	if m := githubTreeRe.FindStringSubmatch(rawURL); m != nil {
		return i.importGitHubSubpath(ctx, rawURL, m[1], m[2], m[3], m[4])
	}

	if looksLikeGitURL(rawURL) {
		return i.ImportGit(ctx, rawURL, "")
	}

	return i.importFetchedURL(ctx, rawURL, opts)
}

// importGitHubSubpath clones the repository and imports a single
// subdirectory, tagging provenance as git with the original tree URL.
func (i *Importer) importGitHubSubpath(ctx context.Context, originalURL, owner, repo, branch, subpath string) (*skills.Skill, error) {
	// A blob URL points at the SKILL.md itself; import its directory.
	if strings.EqualFold(path.Base(subpath), skills.SkillFileName) {
		subpath = path.Dir(subpath)
	}

	tempDir, cleanup, err := i.stage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cloneURL := "https://github.com/" + owner + "/" + repo + ".git"
	cloneDir := filepath.Join(tempDir, "clone")
	if err := i.git.Clone(ctx, cloneURL, cloneDir, branch, 1); err != nil {
		return nil, err
	}

	skillDir := filepath.Join(cloneDir, filepath.FromSlash(subpath))
	if _, err := os.Stat(filepath.Join(skillDir, skills.SkillFileName)); err != nil {
		return nil, errors.Errorf("no %s at %s in %s/%s", skills.SkillFileName, subpath, owner, repo)
	}

	source := skills.NewRemoteSource(skills.SourceGit, originalURL, "")
	if version, err := i.git.RevParseShort(ctx, cloneDir); err == nil {
		source.Version = version
	} else {
		logger.G(ctx).WithError(err).Debug("could not determine cloned skill version")
	}

	return i.importFolder(ctx, skillDir, path.Base(subpath), source)
}

func looksLikeGitURL(rawURL string) bool {
	if strings.HasPrefix(rawURL, "git@") {
		return true
	}
	if strings.HasSuffix(strings.TrimSuffix(rawURL, "/"), ".git") {
		return true
	}
	return isBareGitHubURL(rawURL)
}

// importFetchedURL downloads the URL and dispatches on the response content
// type and URL extension.
func (i *Importer) importFetchedURL(ctx context.Context, rawURL string, opts URLOptions) (*skills.Skill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL %s", rawURL)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	urlPath := strings.SplitN(rawURL, "?", 2)[0]

	switch {
	case strings.HasSuffix(urlPath, ".zip") || strings.Contains(contentType, "application/zip"):
		return i.importZipResponse(ctx, rawURL, resp.Body, opts)
	case strings.HasSuffix(urlPath, ".md") || strings.Contains(contentType, "text/markdown"):
		return i.importMarkdownResponse(ctx, rawURL, resp.Body, opts)
	default:
		return nil, errors.Errorf("unsupported content type %q for %s", contentType, rawURL)
	}
}

func (i *Importer) importZipResponse(ctx context.Context, rawURL string, body io.Reader, opts URLOptions) (*skills.Skill, error) {
	tempDir, cleanup, err := i.stage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	zipPath := filepath.Join(tempDir, "download.zip")
	if err := writeStream(zipPath, body); err != nil {
		return nil, errors.Wrapf(err, "failed to save archive from %s", rawURL)
	}

	slugCandidate := opts.SlugHint
	if slugCandidate == "" {
		slugCandidate = strings.TrimSuffix(path.Base(strings.SplitN(rawURL, "?", 2)[0]), ".zip")
	}

	source := skills.NewRemoteSource(skills.SourceSkillssh, rawURL, opts.Version)
	return i.importZip(ctx, zipPath, slugCandidate, source)
}

func (i *Importer) importMarkdownResponse(ctx context.Context, rawURL string, body io.Reader, opts URLOptions) (*skills.Skill, error) {
	tempDir, cleanup, err := i.stage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	filePath := filepath.Join(tempDir, skills.SkillFileName)
	if err := writeStream(filePath, body); err != nil {
		return nil, errors.Wrapf(err, "failed to save skill file from %s", rawURL)
	}

	slugHint := opts.SlugHint
	if slugHint == "" {
		slugHint = strings.TrimSuffix(path.Base(strings.SplitN(rawURL, "?", 2)[0]), ".md")
	}

	source := skills.NewRemoteSource(skills.SourceSkillssh, rawURL, opts.Version)
	return i.importFile(ctx, filePath, slugHint, source)
}

func writeStream(dst string, r io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, r)
	return err
}
