package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/version"
)

// GitHubRelease represents a GitHub release response
type GitHubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// GitHubSource uses a repository's latest GitHub release as the latest
// version for every platform. The release body is the changelog.
type GitHubSource struct {
	base

	owner   string
	repo    string
	token   string // Optional, for rate limiting
	client  *http.Client
	baseURL string

	mu     sync.Mutex
	cached *GitHubRelease
}

// NewGitHubSource creates a source for owner/repo.
func NewGitHubSource(owner, repo string, opts Options) *GitHubSource {
	return &GitHubSource{
		base:  base{opts: opts},
		owner: owner,
		repo:  repo,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://api.github.com",
	}
}

// WithToken sets an optional GitHub token for authentication
func (s *GitHubSource) WithToken(token string) *GitHubSource {
	s.token = token
	return s
}

// WithBaseURL points the source at another API root, such as GitHub
// Enterprise or a test server.
func (s *GitHubSource) WithBaseURL(url string) *GitHubSource {
	s.baseURL = url
	return s
}

// Initialize drops any cached release so the next lookup refetches.
func (s *GitHubSource) Initialize(ctx context.Context) error {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return nil
}

// Release returns the latest published release, fetching it once per
// Initialize. It returns ErrNoRelease when the repository has none.
func (s *GitHubSource) Release(ctx context.Context) (*GitHubRelease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}
	release, err := s.getLatestRelease(ctx)
	if err != nil {
		return nil, err
	}
	s.cached = release
	return release, nil
}

func (s *GitHubSource) LatestVersion(ctx context.Context, p platform.Platform) (string, error) {
	release, err := s.Release(ctx)
	if errors.Is(err, ErrNoRelease) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest release: %w", err)
	}
	return version.Normalize(release.TagName), nil
}

func (s *GitHubSource) AppStoreConfig(ctx context.Context) (storeurl.Config, error) {
	return s.storeConfig(storeurl.Config{}), nil
}

// ChangeLog returns the release body when v is the latest release.
func (s *GitHubSource) ChangeLog(ctx context.Context, v string) (string, error) {
	release, err := s.Release(ctx)
	if errors.Is(err, ErrNoRelease) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest release: %w", err)
	}
	if version.Compare(release.TagName, v) != 0 {
		return "", nil
	}
	return release.Body, nil
}

// getLatestRelease fetches the latest release from GitHub API
func (s *GitHubSource) getLatestRelease(ctx context.Context) (*GitHubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", s.baseURL, s.owner, s.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Set headers
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s/%s: %w", s.owner, s.repo, ErrNoRelease)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &release, nil
}
