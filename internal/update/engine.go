// Package update decides whether to surface an "update available" prompt.
//
// Engine combines version comparison with time-based throttling over an
// injected provider.DataSource and provider.PreferenceStore. It holds no
// locks: overlapping calls on one Engine are not serialized, and callers that
// need exactly-once evaluation per interval must guard it themselves.
package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/provider"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/version"
)

// Engine evaluates update prompts.
type Engine struct {
	source      provider.DataSource
	store       provider.PreferenceStore
	opts        Options
	initialized bool
}

// NewEngine creates an engine over the given providers.
func NewEngine(source provider.DataSource, store provider.PreferenceStore, opts Options) *Engine {
	return &Engine{
		source: source,
		store:  store,
		opts:   opts.withDefaults(),
	}
}

// Options returns the resolved options.
func (e *Engine) Options() Options {
	return e.opts
}

// Initialized reports whether Initialize has succeeded since the last Dispose.
func (e *Engine) Initialized() bool {
	return e.initialized
}

// Capabilities reports which optional hooks the providers implement.
func (e *Engine) Capabilities() provider.Capabilities {
	return provider.Probe(e.source, e.store)
}

func (e *Engine) logger() *slog.Logger {
	if e.opts.Logger != nil {
		return e.opts.Logger
	}
	return logging.Logger()
}

// Initialize runs the providers' Initialize hooks, source first.
// Calls after a successful first call are no-ops. Hook errors are returned
// unchanged and leave the engine uninitialized.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.initialized {
		return nil
	}
	if init, ok := e.source.(provider.Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return err
		}
	}
	if init, ok := e.store.(provider.Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return err
		}
	}
	e.initialized = true
	e.logger().Debug("update engine initialized")
	return nil
}

// Dispose runs the providers' Dispose hooks and clears the initialized flag.
// Both hooks are attempted; their errors are joined.
func (e *Engine) Dispose(ctx context.Context) error {
	var errs []error
	if d, ok := e.source.(provider.Disposer); ok {
		if err := d.Dispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d, ok := e.store.(provider.Disposer); ok {
		if err := d.Dispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.initialized = false
	return errors.Join(errs...)
}

// Platform returns the platform for this evaluation. A data source that
// implements provider.PlatformProvider takes precedence over the detector
// unless it reports "".
func (e *Engine) Platform(ctx context.Context) (platform.Platform, error) {
	if pp, ok := e.source.(provider.PlatformProvider); ok {
		p, err := pp.CurrentPlatform(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get platform from data source: %w", err)
		}
		if p != "" {
			return p, nil
		}
	}
	return e.opts.Detector(), nil
}

// scoped resolves the platform and stores it in the returned context, so
// source hooks without a platform argument answer for the same platform.
func (e *Engine) scoped(ctx context.Context) (context.Context, platform.Platform, error) {
	p, err := e.Platform(ctx)
	if err != nil {
		return ctx, "", err
	}
	return platform.NewContext(ctx, p), p, nil
}

// fallbackPlatform resolves the platform for error reporting. Hook errors
// and panics fall back to the detector, and a panicking detector to web.
func (e *Engine) fallbackPlatform(ctx context.Context) (p platform.Platform) {
	defer func() {
		if r := recover(); r != nil {
			e.logger().Debug("platform unavailable", "panic", r)
			p = e.detectQuietly()
		}
	}()
	p, err := e.Platform(ctx)
	if err != nil {
		return e.detectQuietly()
	}
	return p
}

func (e *Engine) detectQuietly() (p platform.Platform) {
	defer func() {
		if recover() != nil {
			p = platform.Web
		}
	}()
	return e.opts.Detector()
}

// VersionInfo fetches the current and latest versions and the store
// configuration. It never touches the preference store.
func (e *Engine) VersionInfo(ctx context.Context) (VersionInfo, error) {
	p, err := e.Platform(ctx)
	if err != nil {
		return VersionInfo{}, err
	}
	return e.versionInfo(ctx, p)
}

func (e *Engine) versionInfo(ctx context.Context, p platform.Platform) (VersionInfo, error) {
	info := VersionInfo{Platform: p}

	current, err := e.source.CurrentVersion(ctx)
	if err != nil {
		return info, fmt.Errorf("failed to get current version: %w", err)
	}
	info.CurrentVersion = current

	latest, err := e.source.LatestVersion(ctx, p)
	if err != nil {
		return info, fmt.Errorf("failed to get latest version: %w", err)
	}
	info.LatestVersion = latest

	cfg, err := e.source.AppStoreConfig(ctx)
	if err != nil {
		return info, fmt.Errorf("failed to get app store config: %w", err)
	}

	info.UpdateAvailable = version.IsUpdateAvailable(current, latest)
	info.StoreURL = storeurl.Resolve(p, cfg)
	return info, nil
}

// bestEffortInfo gathers whatever version info the source can provide,
// ignoring failures and panics.
func (e *Engine) bestEffortInfo(ctx context.Context, p platform.Platform) (info VersionInfo) {
	info = VersionInfo{Platform: p}
	defer func() {
		if r := recover(); r != nil {
			e.logger().Debug("version info unavailable", "panic", r)
		}
	}()

	if current, err := e.source.CurrentVersion(ctx); err == nil {
		info.CurrentVersion = current
	}
	if latest, err := e.source.LatestVersion(ctx, p); err == nil {
		info.LatestVersion = latest
	}
	if cfg, err := e.source.AppStoreConfig(ctx); err == nil {
		info.StoreURL = storeurl.Resolve(p, cfg)
	}
	info.UpdateAvailable = version.IsUpdateAvailable(info.CurrentVersion, info.LatestVersion)
	return info
}

func (e *Engine) skipWeb(p platform.Platform) bool {
	return p.IsWeb() && *e.opts.SkipWebPlatform
}

// IsUpdateAvailable reports whether a newer version exists. On a skipped
// web platform it returns false without asking the source for versions.
func (e *Engine) IsUpdateAvailable(ctx context.Context) (bool, error) {
	p, err := e.Platform(ctx)
	if err != nil {
		return false, err
	}
	if e.skipWeb(p) {
		return false, nil
	}
	info, err := e.versionInfo(ctx, p)
	if err != nil {
		return false, err
	}
	return info.UpdateAvailable, nil
}

// ShouldShowUpdatePrompt decides whether to show the update prompt. Rules
// are applied in order and the first skip reason wins:
//
//  1. web platform while SkipWebPlatform is set
//  2. no newer version
//  3. inside the remind-later window
//  4. less than MinCheckInterval since the last check
//  5. the latest version was already shown, unless it is mandatory
//
// A passing check records the check time and the shown version. Provider
// errors and panics are never returned; they yield SkipError with the
// version info fetched best-effort.
func (e *Engine) ShouldShowUpdatePrompt(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = e.errorResult(ctx, fmt.Errorf("update check panicked: %v", r))
		}
	}()

	res, err := e.evaluate(ctx)
	if err != nil {
		return e.errorResult(ctx, err)
	}

	log := e.logger().With("platform", res.VersionInfo.Platform,
		"current", res.VersionInfo.CurrentVersion, "latest", res.VersionInfo.LatestVersion)
	if res.ShouldShowPrompt {
		log.Info("update prompt due")
	} else {
		log.Debug("update prompt skipped", "reason", res.SkipReason)
	}
	return res
}

func (e *Engine) evaluate(ctx context.Context) (Result, error) {
	ctx, p, err := e.scoped(ctx)
	if err != nil {
		return Result{}, err
	}

	if e.skipWeb(p) {
		return Result{VersionInfo: e.bestEffortInfo(ctx, p), SkipReason: SkipWebPlatform}, nil
	}

	info, err := e.versionInfo(ctx, p)
	if err != nil {
		return Result{}, err
	}
	if !info.UpdateAvailable {
		return Result{VersionInfo: info, SkipReason: SkipNoUpdate}, nil
	}

	now := e.opts.Now()

	remindAt, ok, err := e.store.RemindLaterTime(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read remind-later time: %w", err)
	}
	if ok && now.Before(remindAt) {
		return Result{VersionInfo: info, SkipReason: SkipRemindLater}, nil
	}

	lastCheck, ok, err := e.store.LastCheckTime(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read last check time: %w", err)
	}
	if ok && e.opts.MinCheckInterval > 0 && now.Sub(lastCheck) < e.opts.MinCheckInterval {
		return Result{VersionInfo: info, SkipReason: SkipTooSoon}, nil
	}

	recorder, records := e.store.(provider.ShownVersionRecorder)
	if records {
		shown, err := recorder.LastShownVersion(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read last shown version: %w", err)
		}
		if shown != "" && version.Compare(shown, info.LatestVersion) == 0 {
			mandatory, err := e.isMandatory(ctx, info.CurrentVersion, info.LatestVersion)
			if err != nil {
				return Result{}, err
			}
			if !mandatory {
				return Result{VersionInfo: info, SkipReason: SkipRemindLater}, nil
			}
		}
	}

	if err := e.store.SetLastCheckTime(ctx, now); err != nil {
		return Result{}, fmt.Errorf("failed to record check time: %w", err)
	}
	if records {
		if err := recorder.SetLastShownVersion(ctx, info.LatestVersion); err != nil {
			return Result{}, fmt.Errorf("failed to record shown version: %w", err)
		}
	}

	return Result{ShouldShowPrompt: true, VersionInfo: info}, nil
}

func (e *Engine) errorResult(ctx context.Context, err error) Result {
	p := e.fallbackPlatform(ctx)
	e.logger().Warn("update check failed", "error", err)
	return Result{
		VersionInfo: e.bestEffortInfo(ctx, p),
		SkipReason:  SkipError,
		Error:       err.Error(),
		Err:         err,
	}
}

// SetRemindMeLater suppresses prompts for RemindLaterDuration from now and
// bumps the dismiss counter when the store keeps one.
func (e *Engine) SetRemindMeLater(ctx context.Context) error {
	until := e.opts.Now().Add(e.opts.RemindLaterDuration)
	if err := e.store.SetRemindLaterTime(ctx, until); err != nil {
		return fmt.Errorf("failed to set remind-later time: %w", err)
	}
	if dc, ok := e.store.(provider.DismissCounter); ok {
		if err := dc.IncrementDismissCount(ctx); err != nil {
			return fmt.Errorf("failed to increment dismiss count: %w", err)
		}
	}
	e.logger().Debug("remind later set", "until", until.Format(time.RFC3339))
	return nil
}

// ClearRemindMeLater removes any stored remind-later time.
func (e *Engine) ClearRemindMeLater(ctx context.Context) error {
	if err := e.store.ClearRemindLaterTime(ctx); err != nil {
		return fmt.Errorf("failed to clear remind-later time: %w", err)
	}
	return nil
}

// IsUpdateMandatory asks the source whether the latest version is required.
// It is false when the source has no MandatoryChecker or no latest version.
func (e *Engine) IsUpdateMandatory(ctx context.Context) (bool, error) {
	if _, ok := e.source.(provider.MandatoryChecker); !ok {
		return false, nil
	}
	ctx, p, err := e.scoped(ctx)
	if err != nil {
		return false, err
	}
	current, err := e.source.CurrentVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current version: %w", err)
	}
	latest, err := e.source.LatestVersion(ctx, p)
	if err != nil {
		return false, fmt.Errorf("failed to get latest version: %w", err)
	}
	return e.isMandatory(ctx, current, latest)
}

func (e *Engine) isMandatory(ctx context.Context, current, latest string) (bool, error) {
	mc, ok := e.source.(provider.MandatoryChecker)
	if !ok || latest == "" {
		return false, nil
	}
	mandatory, err := mc.IsUpdateMandatory(ctx, current, latest)
	if err != nil {
		return false, fmt.Errorf("failed to check mandatory update: %w", err)
	}
	return mandatory, nil
}

// ChangeLog returns release notes for the latest version, or "".
func (e *Engine) ChangeLog(ctx context.Context) (string, error) {
	cl, ok := e.source.(provider.ChangeLogProvider)
	if !ok {
		return "", nil
	}
	ctx, p, err := e.scoped(ctx)
	if err != nil {
		return "", err
	}
	latest, err := e.source.LatestVersion(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to get latest version: %w", err)
	}
	if latest == "" {
		return "", nil
	}
	notes, err := cl.ChangeLog(ctx, latest)
	if err != nil {
		return "", fmt.Errorf("failed to get changelog: %w", err)
	}
	return notes, nil
}

// FormattedVersion returns the source's display version, falling back to
// the raw current version.
func (e *Engine) FormattedVersion(ctx context.Context) (string, error) {
	if f, ok := e.source.(provider.VersionFormatter); ok {
		return f.FormattedVersion(ctx)
	}
	return e.source.CurrentVersion(ctx)
}

// MinimumSupportedVersion returns the source's version floor for the
// current platform, or "".
func (e *Engine) MinimumSupportedVersion(ctx context.Context) (string, error) {
	mv, ok := e.source.(provider.MinimumVersionProvider)
	if !ok {
		return "", nil
	}
	p, err := e.Platform(ctx)
	if err != nil {
		return "", err
	}
	return mv.MinimumSupportedVersion(ctx, p)
}

// IsCurrentVersionSupported reports whether the running version is at or
// above the minimum supported version.
func (e *Engine) IsCurrentVersionSupported(ctx context.Context) (bool, error) {
	minimum, err := e.MinimumSupportedVersion(ctx)
	if err != nil || minimum == "" {
		return true, err
	}
	current, err := e.source.CurrentVersion(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to get current version: %w", err)
	}
	return version.Compare(current, minimum) >= 0, nil
}

// IsVersionAvailableForUser reports whether the latest version has been
// rolled out to this installation. Sources without rollout gating report true.
func (e *Engine) IsVersionAvailableForUser(ctx context.Context) (bool, error) {
	ac, ok := e.source.(provider.AvailabilityChecker)
	if !ok {
		return true, nil
	}
	p, err := e.Platform(ctx)
	if err != nil {
		return false, err
	}
	latest, err := e.source.LatestVersion(ctx, p)
	if err != nil {
		return false, fmt.Errorf("failed to get latest version: %w", err)
	}
	if latest == "" {
		return false, nil
	}
	return ac.IsVersionAvailableForUser(ctx, latest, p)
}

// ResetVersionCheckData clears the reminder, resets the last check time to
// the epoch and wipes the store when it supports it. Meant for tests and
// debugging.
func (e *Engine) ResetVersionCheckData(ctx context.Context) error {
	if err := e.store.ClearRemindLaterTime(ctx); err != nil {
		return fmt.Errorf("failed to clear remind-later time: %w", err)
	}
	if err := e.store.SetLastCheckTime(ctx, time.UnixMilli(0)); err != nil {
		return fmt.Errorf("failed to reset last check time: %w", err)
	}
	if c, ok := e.store.(provider.Clearer); ok {
		if err := c.ClearAll(ctx); err != nil {
			return fmt.Errorf("failed to clear preferences: %w", err)
		}
	}
	return nil
}

// Preferences returns the store's snapshot, or one assembled from the
// required accessors when the store cannot dump itself.
func (e *Engine) Preferences(ctx context.Context) (provider.Preferences, error) {
	if d, ok := e.store.(provider.PreferenceDumper); ok {
		return d.AllPreferences(ctx)
	}

	var prefs provider.Preferences
	if t, ok, err := e.store.LastCheckTime(ctx); err != nil {
		return prefs, err
	} else if ok {
		prefs.LastCheckTime = provider.Millis(t)
	}
	if t, ok, err := e.store.RemindLaterTime(ctx); err != nil {
		return prefs, err
	} else if ok {
		prefs.RemindLaterTime = provider.Millis(t)
	}
	return prefs, nil
}
