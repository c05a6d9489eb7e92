package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/source"
	"github.com/adamancini/nudge/internal/types"
)

const testManifest = `
store:
  ios_app_store_id: "123456789"
  android_package_name: com.example.app
platforms:
  ios:
    latest: 1.2.0
    minimum: 1.1.0
    changelog: New onboarding
  android:
    latest: 1.2.0
    mandatory: true
`

func newTestServer(t *testing.T) (*httptest.Server, *source.ManifestSource) {
	t.Helper()
	m, err := manifest.Parse([]byte(testManifest), types.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	src := source.NewManifestSource(m, source.Options{CurrentVersion: "1.0.0"})
	ts := httptest.NewServer(New(src).Handler())
	t.Cleanup(ts.Close)
	return ts, src
}

func get(t *testing.T, url string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := get(t, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGetManifestNegotiation(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		accept string
		want   string
	}{
		{"", "application/json"},
		{"application/yaml", "application/yaml"},
		{"text/html, application/toml;q=0.9", "application/toml"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			resp := get(t, ts.URL+"/v1/manifest", map[string]string{"Accept": tt.accept})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != tt.want {
				t.Errorf("Content-Type = %q, want %q", ct, tt.want)
			}
			if resp.Header.Get("ETag") == "" {
				t.Error("missing ETag")
			}
		})
	}
}

func TestGetManifestNotModified(t *testing.T) {
	ts, _ := newTestServer(t)

	first := get(t, ts.URL+"/v1/manifest", nil)
	etag := first.Header.Get("ETag")

	second := get(t, ts.URL+"/v1/manifest", map[string]string{"If-None-Match": etag})
	if second.StatusCode != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.StatusCode)
	}
}

func TestGetManifestUnavailable(t *testing.T) {
	src := source.NewManifestSource(nil, source.Options{CurrentVersion: "1.0.0"})
	ts := httptest.NewServer(New(src).Handler())
	defer ts.Close()

	resp := get(t, ts.URL+"/v1/manifest", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != ErrCodeUnavailable {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestGetLatest(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name          string
		path          string
		ua            string
		wantStatus    int
		wantPlatform  platform.Platform
		wantMandatory bool
		wantCode      string
	}{
		{"path platform", "/v1/platforms/ios/latest", "", http.StatusOK, platform.IOS, false, ""},
		{"mandatory flag", "/v1/platforms/android/latest", "", http.StatusOK, platform.Android, true, ""},
		{"query platform", "/v1/latest?platform=ios", "", http.StatusOK, platform.IOS, false, ""},
		{"user agent", "/v1/latest", "Mozilla/5.0 (Linux; Android 14)", http.StatusOK, platform.Android, true, ""},
		{"below minimum", "/v1/platforms/ios/latest?current=1.0.0", "", http.StatusOK, platform.IOS, true, ""},
		{"unknown platform", "/v1/platforms/windows/latest", "", http.StatusBadRequest, "", false, ErrCodeBadRequest},
		{"nothing published", "/v1/platforms/web/latest", "", http.StatusNotFound, "", false, ErrCodeNotFound},
		{"bad current", "/v1/platforms/ios/latest?current=abc", "", http.StatusBadRequest, "", false, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+tt.path, map[string]string{"User-Agent": tt.ua})
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			if tt.wantCode != "" {
				var body ErrorResponse
				if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
					t.Fatal(err)
				}
				if body.Error.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
				}
				return
			}

			var body LatestResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Platform != tt.wantPlatform || body.Latest != "1.2.0" {
				t.Errorf("body = %+v", body)
			}
			if body.Mandatory != tt.wantMandatory {
				t.Errorf("Mandatory = %t, want %t", body.Mandatory, tt.wantMandatory)
			}
		})
	}
}

func TestGetLatestDetails(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := get(t, ts.URL+"/v1/platforms/ios/latest?current=1.1.5", nil)
	var body LatestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Changelog != "New onboarding" || body.Minimum != "1.1.0" {
		t.Errorf("body = %+v", body)
	}
	if !strings.Contains(body.StoreURL, "id123456789") {
		t.Errorf("StoreURL = %q", body.StoreURL)
	}
	if body.UpdateAvailable == nil || !*body.UpdateAvailable {
		t.Error("expected update_available true")
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := get(t, ts.URL+"/v2/nothing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != ErrCodeNotFound {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestHTTPSourceAgainstServer(t *testing.T) {
	ts, served := newTestServer(t)
	ctx := context.Background()

	client := source.NewHTTPSource(ts.URL+"/v1/manifest", source.Options{CurrentVersion: "1.0.0"})
	if err := client.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	latest, err := client.LatestVersion(ctx, platform.IOS)
	if err != nil || latest != "1.2.0" {
		t.Fatalf("LatestVersion() = %q, %v", latest, err)
	}
	mandatory, err := client.IsUpdateMandatory(ctx, "1.0.0", "1.2.0")
	if err != nil || !mandatory {
		t.Errorf("IsUpdateMandatory() = %t, %v (below minimum)", mandatory, err)
	}

	updated, err := manifest.Parse([]byte("platforms:\n  ios:\n    latest: 1.3.0\n"), types.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	served.SetManifest(updated)
	if err := client.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if latest, _ := client.LatestVersion(ctx, platform.IOS); latest != "1.3.0" {
		t.Errorf("LatestVersion() after refresh = %q", latest)
	}
}
