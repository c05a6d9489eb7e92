// Package server publishes a release manifest over HTTP so that HTTPSource
// clients can poll it.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/types"
	"github.com/adamancini/nudge/internal/version"
)

// ManifestProvider returns the manifest to serve, nil when none is loaded.
// source.ManifestSource and source.FileSource satisfy it.
type ManifestProvider interface {
	Manifest() *manifest.Manifest
}

// LatestResponse is the body of the per-platform latest endpoint.
type LatestResponse struct {
	Platform        platform.Platform `json:"platform"`
	Latest          string            `json:"latest"`
	Minimum         string            `json:"minimum,omitempty"`
	Mandatory       bool              `json:"mandatory"`
	Changelog       string            `json:"changelog,omitempty"`
	StoreURL        string            `json:"store_url,omitempty"`
	Current         string            `json:"current,omitempty"`
	UpdateAvailable *bool             `json:"update_available,omitempty"`
}

// Server serves a manifest.
type Server struct {
	manifests ManifestProvider
	router    chi.Router
}

// New creates a server over p.
func New(p ManifestProvider) *Server {
	s := &Server{manifests: p}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no route for "+r.URL.Path)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/manifest", s.getManifest)
		r.Get("/latest", s.getLatest)
		r.Get("/platforms/{platform}/latest", s.getLatest)
	})

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("manifest server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) current(w http.ResponseWriter) (*manifest.Manifest, bool) {
	m := s.manifests.Manifest()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no manifest loaded")
		return nil, false
	}
	return m, true
}

func (s *Server) getManifest(w http.ResponseWriter, r *http.Request) {
	m, ok := s.current(w)
	if !ok {
		return
	}

	format, contentType := negotiate(r.Header.Get("Accept"))
	body, err := manifest.Encode(m, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// negotiate picks the first supported format named in an Accept header.
// JSON is the default.
func negotiate(accept string) (types.Format, string) {
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		switch {
		case strings.HasSuffix(mediaType, "json"):
			return types.FormatJSON, "application/json"
		case strings.HasSuffix(mediaType, "yaml"):
			return types.FormatYAML, "application/yaml"
		case strings.HasSuffix(mediaType, "toml"):
			return types.FormatTOML, "application/toml"
		}
	}
	return types.FormatJSON, "application/json"
}

// getLatest answers for the platform in the path, then the platform query
// parameter, then the User-Agent.
func (s *Server) getLatest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "platform")
	if name == "" {
		name = r.URL.Query().Get("platform")
	}

	var p platform.Platform
	if name == "" {
		p = platform.FromUserAgent(r.UserAgent())
	} else {
		parsed, err := platform.Parse(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		p = parsed
	}

	m, ok := s.current(w)
	if !ok {
		return
	}
	rel, ok := m.Release(p)
	if !ok || rel.Latest == "" {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no release published for "+p.String())
		return
	}

	resp := LatestResponse{
		Platform:  p,
		Latest:    rel.Latest,
		Minimum:   rel.Minimum,
		Mandatory: rel.Mandatory,
		Changelog: rel.Notes(rel.Latest),
		StoreURL:  storeurl.Resolve(p, m.Store),
	}

	if current := r.URL.Query().Get("current"); current != "" {
		if !version.IsValid(version.Normalize(current)) {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid current version "+current)
			return
		}
		available := version.IsUpdateAvailable(current, rel.Latest)
		resp.Current = current
		resp.UpdateAvailable = &available
		if rel.Minimum != "" && version.Compare(current, rel.Minimum) < 0 {
			resp.Mandatory = true
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// requestLogger logs each request through the logging package.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
