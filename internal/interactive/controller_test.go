package interactive

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/prefs"
	"github.com/adamancini/nudge/internal/source"
	"github.com/adamancini/nudge/internal/types"
	"github.com/adamancini/nudge/internal/update"
)

const releases = `
store:
  ios_app_store_id: "123456789"
platforms:
  ios:
    latest: 1.1.0
    mandatory: true
    changelog: Dark mode
`

func newTestController(t *testing.T) (*Controller, *prefs.MemoryStore, *[]string) {
	t.Helper()

	m, err := manifest.Parse([]byte(releases), types.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	src := source.NewManifestSource(m, source.Options{
		CurrentVersion: "1.0.49",
		Platform:       platform.IOS,
	})
	store := prefs.NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := update.NewEngine(src, store, update.Options{Now: func() time.Time { return now }})

	var opened []string
	c := NewController(engine).WithOpener(func(ctx context.Context, url string) error {
		opened = append(opened, url)
		return nil
	})
	return c, store, &opened
}

func TestControllerCheckPrompts(t *testing.T) {
	c, _, _ := newTestController(t)

	var got Dialog
	c.OnPrompt(func(ctx context.Context, d Dialog) { got = d })

	res, err := c.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.ShouldShowPrompt {
		t.Fatalf("expected prompt, got %+v", res)
	}
	if got.ChangeLog != "Dark mode" || !got.Mandatory || got.FormattedVersion != "1.0.49" {
		t.Errorf("dialog = %+v", got)
	}
	if _, ok := c.Pending(); !ok {
		t.Error("expected a pending dialog")
	}
}

func TestControllerUpdateNow(t *testing.T) {
	c, _, opened := newTestController(t)

	if err := c.UpdateNow(context.Background()); err == nil {
		t.Error("expected error with no pending dialog")
	}

	if _, err := c.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(*opened) != 1 || (*opened)[0] != "https://apps.apple.com/app/id123456789" {
		t.Errorf("opened = %v", *opened)
	}
	if _, ok := c.Pending(); ok {
		t.Error("dialog should be dismissed after update")
	}
}

func TestControllerUpdateNowOpenError(t *testing.T) {
	c, _, _ := newTestController(t)
	c.WithOpener(func(ctx context.Context, url string) error { return errors.New("no browser") })

	if _, err := c.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	err := c.UpdateNow(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no browser") {
		t.Errorf("UpdateNow() = %v", err)
	}
	if _, ok := c.Pending(); !ok {
		t.Error("dialog should stay pending when the opener fails")
	}
}

func TestControllerRemindLater(t *testing.T) {
	c, store, _ := newTestController(t)
	ctx := context.Background()

	if _, err := c.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Respond(ctx, ChoiceRemindLater); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Pending(); ok {
		t.Error("dialog should be dismissed")
	}
	if n, _ := store.DismissCount(ctx); n != 1 {
		t.Errorf("DismissCount = %d, want 1", n)
	}

	res, _ := c.Check(ctx)
	if res.SkipReason != update.SkipRemindLater {
		t.Errorf("SkipReason = %s, want remind_later", res.SkipReason)
	}
}

func TestControllerRejectsReentrantCheck(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	var inner error
	c.OnPrompt(func(ctx context.Context, d Dialog) {
		if !c.Checking() {
			t.Error("Checking() should be true inside the prompt callback")
		}
		_, inner = c.Check(ctx)
	})

	if _, err := c.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrCheckInProgress) {
		t.Errorf("re-entrant Check() = %v, want ErrCheckInProgress", inner)
	}
	if c.Checking() {
		t.Error("Checking() should be false after Check returns")
	}
}

func TestControllerRun(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	prompts := 0
	c.OnPrompt(func(ctx context.Context, d Dialog) {
		mu.Lock()
		prompts++
		mu.Unlock()
		c.Dismiss()
	})

	triggers := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 0, triggers) }()

	// The first check prompts; the trigger lands inside the check interval.
	triggers <- struct{}{}
	close(triggers)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if prompts != 1 {
		t.Errorf("prompts = %d, want 1", prompts)
	}
	if !c.Engine().Initialized() {
		t.Error("Run should initialize the engine")
	}
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArgs int
	}{
		{"darwin", "open", 1},
		{"linux", "xdg-open", 1},
		{"freebsd", "xdg-open", 1},
		{"windows", "rundll32", 2},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := openCommand(tt.goos, "https://example.com")
			if name != tt.wantName || len(args) != tt.wantArgs {
				t.Errorf("openCommand(%s) = %s %v", tt.goos, name, args)
			}
			if args[len(args)-1] != "https://example.com" {
				t.Errorf("url must be the last argument: %v", args)
			}
		})
	}
}
