package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.github.com"
	maxBodySize    = 4 << 20
)

var ErrRateLimited = errors.New("release feed rate limit reached, try again later")

// Release is one entry of the release feed.
type Release struct {
	Tag         string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	URL         string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	Draft       bool      `json:"draft"`
}

// Repo identifies a repository on the release feed.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// ReleaseSource lists releases, newest first.
type ReleaseSource interface {
	Releases(ctx context.Context, repo Repo) ([]Release, error)
}

// GitHubReleaseSource reads the GitHub releases API. Requests are limited
// client side so that a busy site doesn't exhaust the anonymous API quota.
// While the limiter refuses, the last successful list for the repo is served.
type GitHubReleaseSource struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Limiter   *rate.Limiter
	Tracer    trace.Tracer // global provider's tracer when nil

	mu    sync.Mutex
	cache map[Repo]cachedReleases
}

type cachedReleases struct {
	releases  []Release
	fetchedAt time.Time
}

// NewGitHubReleaseSource returns a source with a 30s client timeout that allows
// one request per minute with a burst of 5.
func NewGitHubReleaseSource(baseURL, userAgent string) *GitHubReleaseSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GitHubReleaseSource{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: 30 * time.Second},
		Limiter:   rate.NewLimiter(rate.Every(time.Minute), 5),
	}
}

func (g *GitHubReleaseSource) Releases(ctx context.Context, repo Repo) ([]Release, error) {
	ctx, span := g.tracer().Start(ctx, "release.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("release.repo", repo.String()))

	if g.Limiter != nil && !g.Limiter.Allow() {
		cached, ok := g.cached(repo)
		if !ok {
			span.RecordError(ErrRateLimited)
			span.SetStatus(codes.Error, ErrRateLimited.Error())
			return nil, ErrRateLimited
		}
		span.SetAttributes(
			attribute.Bool("release.cached", true),
			attribute.String("release.fetched_at", cached.fetchedAt.Format(time.RFC3339)),
			attribute.Int("release.count", len(cached.releases)),
		)
		return cached.releases, nil
	}

	releases, err := g.fetch(ctx, repo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	g.store(repo, releases)
	span.SetAttributes(attribute.Int("release.count", len(releases)))
	return releases, nil
}

func (g *GitHubReleaseSource) tracer() trace.Tracer {
	if g.Tracer != nil {
		return g.Tracer
	}
	return otel.Tracer("lastautoindex/release")
}

// cached returns a copy of the last successful list for repo.
func (g *GitHubReleaseSource) cached(repo Repo) (cachedReleases, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.cache[repo]
	if !ok {
		return cachedReleases{}, false
	}
	c.releases = append([]Release(nil), c.releases...)
	return c, true
}

func (g *GitHubReleaseSource) store(repo Repo, releases []Release) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cache == nil {
		g.cache = make(map[Repo]cachedReleases)
	}
	g.cache[repo] = cachedReleases{
		releases:  append([]Release(nil), releases...),
		fetchedAt: time.Now(),
	}
}

func (g *GitHubReleaseSource) fetch(ctx context.Context, repo Repo) ([]Release, error) {

	url := fmt.Sprintf("%s/repos/%s/%s/releases", g.BaseURL, repo.Owner, repo.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var all []Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&all); err != nil {
		return nil, fmt.Errorf("failed to decode releases: %w", err)
	}

	// drafts never count as releases
	releases := all[:0]
	for _, r := range all {
		if !r.Draft {
			releases = append(releases, r)
		}
	}
	return releases, nil
}
