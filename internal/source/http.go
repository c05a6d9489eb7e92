package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adamancini/nudge/internal/types"
)

// maxManifestSize bounds remote manifest bodies.
const maxManifestSize = 1 << 20

// HTTPSource fetches a manifest from a URL, such as the one served by
// `nudge serve`.
type HTTPSource struct {
	*remoteManifest

	url    string
	client *http.Client
	etag   string
}

// NewHTTPSource creates a source for the manifest at url.
func NewHTTPSource(url string, opts Options) *HTTPSource {
	s := &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	s.remoteManifest = newRemoteManifest(opts, s.get)
	return s
}

// WithClient replaces the HTTP client.
func (s *HTTPSource) WithClient(c *http.Client) *HTTPSource {
	s.client = c
	return s
}

// URL returns the manifest URL.
func (s *HTTPSource) URL() string {
	return s.url
}

func (s *HTTPSource) get(ctx context.Context) ([]byte, types.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, types.FormatUnknown, err
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, application/toml;q=0.8")
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, types.FormatUnknown, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return nil, types.FormatUnknown, nil
	case http.StatusNotFound:
		return nil, types.FormatUnknown, fmt.Errorf("%s: %w", s.url, ErrNoRelease)
	default:
		return nil, types.FormatUnknown, fmt.Errorf("manifest server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return nil, types.FormatUnknown, fmt.Errorf("failed to read manifest: %w", err)
	}
	s.etag = resp.Header.Get("ETag")
	return body, formatFromContentType(resp.Header.Get("Content-Type")), nil
}

// formatFromContentType maps a media type to a document format.
func formatFromContentType(ct string) types.Format {
	if i := strings.Index(ct, ";"); i != -1 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	switch {
	case strings.HasSuffix(ct, "json"):
		return types.FormatJSON
	case strings.HasSuffix(ct, "yaml"), strings.HasSuffix(ct, "yml"):
		return types.FormatYAML
	case strings.HasSuffix(ct, "toml"):
		return types.FormatTOML
	default:
		return types.FormatUnknown
	}
}
