package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/agentdeck/agentdeck/pkg/logger"
)

const (
	defaultAPIBaseURL = "https://api.github.com"

	defaultAttempts     = 4
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 60 * time.Second
)

var githubRepoRe = regexp.MustCompile(`^(?:https?://)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseRepoURL extracts owner and repo from a GitHub repository URL.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	m := githubRepoRe.FindStringSubmatch(strings.TrimSpace(repoURL))
	if m == nil {
		return "", "", errors.Errorf("catalog repository must be a github.com/<owner>/<repo> URL, got %q", repoURL)
	}
	return m[1], m[2], nil
}

// Fetcher retrieves the skill index from a GitHub repository and caches it
// locally.
type Fetcher struct {
	httpClient   *http.Client
	apiBaseURL   string
	cachePath    string
	attempts     uint
	initialDelay time.Duration
	maxDelay     time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = client }
}

// WithAPIBaseURL overrides the GitHub API base URL.
func WithAPIBaseURL(baseURL string) Option {
	return func(f *Fetcher) { f.apiBaseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithCachePath overrides the cache file location.
func WithCachePath(path string) Option {
	return func(f *Fetcher) { f.cachePath = path }
}

// WithRetryPolicy overrides attempt count and backoff bounds.
func WithRetryPolicy(attempts uint, initialDelay, maxDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.attempts = attempts
		f.initialDelay = initialDelay
		f.maxDelay = maxDelay
	}
}

// New builds a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		apiBaseURL:   defaultAPIBaseURL,
		cachePath:    DefaultCachePath(),
		attempts:     defaultAttempts,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// rateLimitError carries the reset time advertised by GitHub alongside the
// HTTP status that triggered it.
type rateLimitError struct {
	status int
	reset  time.Time
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d), resets at %s", e.status, e.reset.Format(time.RFC3339))
}

// IsRateLimited reports whether err is a rate-limit failure.
func IsRateLimited(err error) bool {
	var rle *rateLimitError
	return errors.As(err, &rle)
}

type contentsEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

type fileContents struct {
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
	DownloadURL string `json:"download_url"`
}

// Fetch retrieves the full catalog from the repository's skills/ directory
// and writes it to the local cache.
func (f *Fetcher) Fetch(ctx context.Context, repoURL string) (*Catalog, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	listURL := fmt.Sprintf("%s/repos/%s/%s/contents/skills", f.apiBaseURL, owner, repo)
	body, err := f.fetchWithRetry(ctx, listURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list skills in %s/%s", owner, repo)
	}

	var entries []contentsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.Wrap(err, "unexpected contents listing response")
	}

	// Per-skill fetches fan out concurrently; a failed or malformed entry is
	// skipped rather than failing the whole catalog. Directory listing order
	// is preserved.
	results := make([]*Entry, len(entries))
	var wg sync.WaitGroup
	for idx, entry := range entries {
		if entry.Type != "dir" {
			continue
		}
		wg.Add(1)
		go func(idx int, slug, dirPath string) {
			defer wg.Done()
			skillEntry, err := f.fetchEntry(ctx, owner, repo, slug, dirPath)
			if err != nil {
				logger.G(ctx).WithError(err).WithField("slug", slug).Debug("skipping catalog entry")
				return
			}
			results[idx] = skillEntry
		}(idx, entry.Name, entry.Path)
	}
	wg.Wait()

	catalog := &Catalog{LastFetched: time.Now()}
	for _, entry := range results {
		if entry != nil {
			catalog.Skills = append(catalog.Skills, *entry)
		}
	}

	if err := f.saveCache(catalog); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to write catalog cache")
	}
	return catalog, nil
}

func (f *Fetcher) fetchEntry(ctx context.Context, owner, repo, slug, dirPath string) (*Entry, error) {
	fileURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s/SKILL.md", f.apiBaseURL, owner, repo, dirPath)
	body, err := f.fetchWithRetry(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	var file fileContents
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, errors.Wrapf(err, "unexpected contents response for %s", slug)
	}

	raw := file.Content
	if file.Encoding == "base64" || file.Encoding == "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw, "\n", ""))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode SKILL.md for %s", slug)
		}
		raw = string(decoded)
	}

	entry := entryFromSkillFile(slug, raw, file.DownloadURL)
	return &entry, nil
}

// fetchWithRetry performs a GET with bounded retries. Rate-limit responses
// wait until the advertised reset time (capped at the max delay); everything
// else backs off exponentially with jitter.
func (f *Fetcher) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/vnd.github+json")

			resp, err := f.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				body, err = io.ReadAll(resp.Body)
				return err
			case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
				return &rateLimitError{status: resp.StatusCode, reset: parseRateLimitReset(resp)}
			default:
				return errors.Errorf("HTTP %d from %s", resp.StatusCode, url)
			}
		},
		retry.Attempts(f.attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.DelayType(f.retryDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Debug("retrying catalog fetch")
		}),
	)
	if err != nil {
		if IsRateLimited(err) {
			return nil, errors.Wrap(err, "catalog fetch exhausted retries while rate limited")
		}
		return nil, errors.Wrap(err, "catalog fetch failed")
	}
	return body, nil
}

// retryDelay waits for the rate-limit reset when one is advertised, else
// applies exponential backoff with 25% jitter. Either way the wait is capped
// at the configured max delay.
func (f *Fetcher) retryDelay(n uint, err error, _ *retry.Config) time.Duration {
	var rle *rateLimitError
	if errors.As(err, &rle) && !rle.reset.IsZero() {
		wait := time.Until(rle.reset)
		if wait < 0 {
			wait = f.initialDelay
		}
		if wait > f.maxDelay {
			wait = f.maxDelay
		}
		return wait
	}

	delay := f.initialDelay << n
	if delay > f.maxDelay || delay <= 0 {
		delay = f.maxDelay
	}
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(delay) * jitter)
}

func parseRateLimitReset(resp *http.Response) time.Time {
	header := resp.Header.Get("X-RateLimit-Reset")
	if header == "" {
		return time.Time{}
	}
	epoch, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
