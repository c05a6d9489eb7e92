package source

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/prefs"
	"github.com/adamancini/nudge/internal/provider"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/types"
	"github.com/adamancini/nudge/internal/update"
)

// manifestSourceCaps are the capabilities every manifest-backed source has.
type manifestSourceCaps interface {
	provider.DataSource
	provider.PlatformProvider
	provider.VersionFormatter
	provider.MandatoryChecker
	provider.ChangeLogProvider
	provider.MinimumVersionProvider
	provider.AvailabilityChecker
}

var (
	_ manifestSourceCaps = (*ManifestSource)(nil)
	_ manifestSourceCaps = (*FileSource)(nil)
	_ manifestSourceCaps = (*HTTPSource)(nil)
	_ manifestSourceCaps = (*S3Source)(nil)
	_ manifestSourceCaps = (*PostgresSource)(nil)

	_ provider.Initializer = (*FileSource)(nil)
	_ provider.Initializer = (*HTTPSource)(nil)
	_ provider.Initializer = (*S3Source)(nil)
	_ provider.Initializer = (*GitHubSource)(nil)
	_ provider.Initializer = (*PostgresSource)(nil)
	_ provider.Disposer    = (*PostgresSource)(nil)

	_ provider.ChangeLogProvider = (*GitHubSource)(nil)
)

const testManifest = `
store:
  ios_app_store_id: "123456789"
platforms:
  ios:
    latest: 1.2.0
    minimum: 1.1.0
    changelog: New onboarding
  android:
    latest: 1.2.0
    mandatory: true
    rollout: 50
  web:
    latest: 1.2.0
`

func mustParse(t *testing.T, content string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(content), types.FormatYAML)
	if err != nil {
		t.Fatalf("manifest.Parse: %v", err)
	}
	return m
}

func TestRolloutBucket(t *testing.T) {
	if rolloutBucket("install-a", "1.2.0") != rolloutBucket("install-a", "1.2.0") {
		t.Fatal("rolloutBucket is not deterministic")
	}

	counts := make(map[int]int)
	for i := 0; i < 1000; i++ {
		b := rolloutBucket(fmt.Sprintf("install-%d", i), "1.2.0")
		if b < 0 || b >= 100 {
			t.Fatalf("bucket %d out of range", b)
		}
		counts[b/10]++
	}
	for decile, n := range counts {
		if n < 30 || n > 170 {
			t.Errorf("decile %d has %d of 1000 installs; distribution is skewed", decile, n)
		}
	}
}

func TestBaseCurrentVersion(t *testing.T) {
	ctx := context.Background()

	b := &base{}
	if _, err := b.CurrentVersion(ctx); err == nil {
		t.Error("expected error without a current version")
	}

	b = &base{opts: Options{CurrentVersion: "1.0.0"}}
	if v, _ := b.FormattedVersion(ctx); v != "1.0.0" {
		t.Errorf("FormattedVersion() = %q, want fallback 1.0.0", v)
	}

	b = &base{opts: Options{CurrentVersion: "1.0.0", FormattedVersion: "1.0.0 (42)", Platform: platform.Android}}
	if v, _ := b.FormattedVersion(ctx); v != "1.0.0 (42)" {
		t.Errorf("FormattedVersion() = %q", v)
	}
	if p, _ := b.CurrentPlatform(ctx); p != platform.Android {
		t.Errorf("CurrentPlatform() = %s, want pinned android", p)
	}
}

func TestBasePlatformFor(t *testing.T) {
	tests := []struct {
		name   string
		pinned platform.Platform
		ctx    context.Context
		want   platform.Platform
	}{
		{"unpinned without context", "", context.Background(), ""},
		{"unpinned uses context", "", platform.NewContext(context.Background(), platform.IOS), platform.IOS},
		{"pinned wins", platform.Android, platform.NewContext(context.Background(), platform.IOS), platform.Android},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &base{opts: Options{CurrentVersion: "1.0.0", Platform: tt.pinned}}
			if got := b.platformFor(tt.ctx); got != tt.want {
				t.Errorf("platformFor() = %q, want %q", got, tt.want)
			}
			if got, _ := b.CurrentPlatform(tt.ctx); got != tt.pinned {
				t.Errorf("CurrentPlatform() = %q, want %q", got, tt.pinned)
			}
		})
	}
}

func TestManifestSource(t *testing.T) {
	ctx := context.Background()
	s := NewManifestSource(mustParse(t, testManifest), Options{
		CurrentVersion: "1.0.0",
		Platform:       platform.IOS,
		Store:          storeurl.Config{AndroidPackageName: "com.example.app"},
	})

	latest, err := s.LatestVersion(ctx, platform.IOS)
	if err != nil || latest != "1.2.0" {
		t.Errorf("LatestVersion(ios) = %q, %v", latest, err)
	}

	cfg, _ := s.AppStoreConfig(ctx)
	if cfg.IOSAppStoreID != "123456789" || cfg.AndroidPackageName != "com.example.app" {
		t.Errorf("AppStoreConfig() = %+v, want manifest and configured fields merged", cfg)
	}

	// Below the ios minimum of 1.1.0.
	if m, _ := s.IsUpdateMandatory(ctx, "1.0.0", "1.2.0"); !m {
		t.Error("update should be mandatory below the minimum")
	}
	if m, _ := s.IsUpdateMandatory(ctx, "1.1.5", "1.2.0"); m {
		t.Error("update should be optional at or above the minimum")
	}

	if cl, _ := s.ChangeLog(ctx, "1.2.0"); cl != "New onboarding" {
		t.Errorf("ChangeLog() = %q", cl)
	}
	if minimum, _ := s.MinimumSupportedVersion(ctx, platform.IOS); minimum != "1.1.0" {
		t.Errorf("MinimumSupportedVersion() = %q", minimum)
	}
	if ok, _ := s.IsVersionAvailableForUser(ctx, "1.2.0", platform.IOS); !ok {
		t.Error("full rollout should be available")
	}
}

func TestManifestSourceMandatoryFlag(t *testing.T) {
	ctx := context.Background()
	s := NewManifestSource(mustParse(t, testManifest), Options{CurrentVersion: "1.1.9", Platform: platform.Android})

	if m, _ := s.IsUpdateMandatory(ctx, "1.1.9", "1.2.0"); !m {
		t.Error("flagged release should be mandatory")
	}
	if m, _ := s.IsUpdateMandatory(ctx, "1.1.9", "1.3.0"); m {
		t.Error("the flag applies to the listed latest only")
	}
}

func TestManifestSourceRollout(t *testing.T) {
	ctx := context.Background()
	m := mustParse(t, testManifest)

	var inside, outside int
	for i := 0; i < 200; i++ {
		s := NewManifestSource(m, Options{CurrentVersion: "1.0.0", InstallID: fmt.Sprintf("id-%d", i)})
		ok, err := s.IsVersionAvailableForUser(ctx, "1.2.0", platform.Android)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			inside++
		} else {
			outside++
		}
	}
	if inside == 0 || outside == 0 {
		t.Errorf("50%% rollout gave %d inside, %d outside", inside, outside)
	}

	s := NewManifestSource(m, Options{CurrentVersion: "1.0.0"})
	if ok, _ := s.IsVersionAvailableForUser(ctx, "1.2.0", platform.Android); !ok {
		t.Error("installs without an ID are never gated")
	}
	s = NewManifestSource(m, Options{CurrentVersion: "1.0.0", InstallID: "id-1"})
	if ok, _ := s.IsVersionAvailableForUser(ctx, "1.1.0", platform.Android); !ok {
		t.Error("only the latest version is gated")
	}
}

func TestManifestSourceMissing(t *testing.T) {
	ctx := context.Background()

	s := NewManifestSource(mustParse(t, "platforms:\n  ios:\n    latest: 1.0.0\n"), Options{CurrentVersion: "1.0.0"})
	if v, err := s.LatestVersion(ctx, platform.Android); err != nil || v != "" {
		t.Errorf("LatestVersion(android) = %q, %v; want empty", v, err)
	}

	s = NewManifestSource(nil, Options{CurrentVersion: "1.0.0"})
	if _, err := s.LatestVersion(ctx, platform.IOS); err == nil {
		t.Error("expected error before a manifest is set")
	}
	s.SetManifest(mustParse(t, testManifest))
	if v, _ := s.LatestVersion(ctx, platform.IOS); v != "1.2.0" {
		t.Errorf("LatestVersion after SetManifest = %q", v)
	}
}

func TestEngineWithManifestSource(t *testing.T) {
	ctx := context.Background()
	src := NewManifestSource(mustParse(t, testManifest), Options{CurrentVersion: "1.0.0", Platform: platform.IOS})
	engine := update.NewEngine(src, prefs.NewMemoryStore(), update.Options{})

	res := engine.ShouldShowUpdatePrompt(ctx)
	if !res.ShouldShowPrompt {
		t.Fatalf("expected prompt, got %s", res.SkipReason)
	}
	if res.VersionInfo.StoreURL != "https://apps.apple.com/app/id123456789" {
		t.Errorf("StoreURL = %q", res.VersionInfo.StoreURL)
	}
	if m, _ := engine.IsUpdateMandatory(ctx); !m {
		t.Error("1.0.0 is below the ios minimum")
	}
	if ok, _ := engine.IsCurrentVersionSupported(ctx); ok {
		t.Error("1.0.0 should be unsupported")
	}

	web := NewManifestSource(mustParse(t, testManifest), Options{CurrentVersion: "1.0.0", Platform: platform.Web})
	res = update.NewEngine(web, prefs.NewMemoryStore(), update.Options{}).ShouldShowUpdatePrompt(ctx)
	if res.SkipReason != update.SkipWebPlatform {
		t.Errorf("web SkipReason = %s", res.SkipReason)
	}
	if !strings.Contains(res.String(), "web_platform") {
		t.Errorf("String() = %s", res.String())
	}
}

func TestEngineWithUnpinnedSourceUsesDetector(t *testing.T) {
	ctx := context.Background()
	src := NewManifestSource(mustParse(t, testManifest), Options{CurrentVersion: "1.0.0"})
	engine := update.NewEngine(src, prefs.NewMemoryStore(), update.Options{
		Detector: platform.Fixed(platform.IOS),
	})

	res := engine.ShouldShowUpdatePrompt(ctx)
	if !res.ShouldShowPrompt {
		t.Fatalf("expected prompt, got %s", res.SkipReason)
	}
	if res.VersionInfo.Platform != platform.IOS {
		t.Errorf("Platform = %s, want detector's ios", res.VersionInfo.Platform)
	}
	if res.VersionInfo.StoreURL != "https://apps.apple.com/app/id123456789" {
		t.Errorf("StoreURL = %q", res.VersionInfo.StoreURL)
	}
	if m, _ := engine.IsUpdateMandatory(ctx); !m {
		t.Error("1.0.0 is below the ios minimum")
	}
	if notes, _ := engine.ChangeLog(ctx); notes != "New onboarding" {
		t.Errorf("ChangeLog() = %q, want ios notes", notes)
	}

	// Android has no minimum but its release is flagged mandatory.
	android := update.NewEngine(src, prefs.NewMemoryStore(), update.Options{
		Detector: platform.Fixed(platform.Android),
	})
	if m, _ := android.IsUpdateMandatory(ctx); !m {
		t.Error("android release is mandatory")
	}
	if notes, _ := android.ChangeLog(ctx); notes != "" {
		t.Errorf("android ChangeLog() = %q, want empty", notes)
	}
}
