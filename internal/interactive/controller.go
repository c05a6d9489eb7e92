package interactive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/update"
)

// ErrCheckInProgress is returned by Check while another Check on the same
// Controller is running.
var ErrCheckInProgress = errors.New("update check already in progress")

// Opener opens a URL in the platform's handler.
type Opener func(ctx context.Context, url string) error

// PromptFunc is called with the dialog whenever a check decides to prompt.
type PromptFunc func(ctx context.Context, d Dialog)

// Controller owns one long-lived engine and tracks the dialog state.
// The in-flight guard only covers calls made through this Controller;
// other holders of the engine are not serialized.
type Controller struct {
	engine   *update.Engine
	open     Opener
	onPrompt PromptFunc

	checking atomic.Bool

	mu      sync.Mutex
	pending *Dialog
}

// NewController creates a controller over engine. URLs open with OpenURL.
func NewController(engine *update.Engine) *Controller {
	return &Controller{engine: engine, open: OpenURL}
}

// WithOpener replaces the URL opener.
func (c *Controller) WithOpener(open Opener) *Controller {
	c.open = open
	return c
}

// OnPrompt registers the callback that presents the dialog.
func (c *Controller) OnPrompt(fn PromptFunc) *Controller {
	c.onPrompt = fn
	return c
}

// Engine returns the wrapped engine.
func (c *Controller) Engine() *update.Engine {
	return c.engine
}

// Checking reports whether a check is running.
func (c *Controller) Checking() bool {
	return c.checking.Load()
}

// Pending returns the dialog awaiting a response, if any.
func (c *Controller) Pending() (Dialog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Dialog{}, false
	}
	return *c.pending, true
}

// Check evaluates the engine. When a prompt is due it fills in the dialog,
// marks it pending and hands it to the OnPrompt callback before returning.
func (c *Controller) Check(ctx context.Context) (update.Result, error) {
	if !c.checking.CompareAndSwap(false, true) {
		return update.Result{}, ErrCheckInProgress
	}
	defer c.checking.Store(false)

	res := c.engine.ShouldShowUpdatePrompt(ctx)
	if !res.ShouldShowPrompt {
		return res, nil
	}

	d := c.dialog(ctx, res)
	c.mu.Lock()
	c.pending = &d
	c.mu.Unlock()

	if c.onPrompt != nil {
		c.onPrompt(ctx, d)
	}
	return res, nil
}

// dialog gathers the optional details. Failures leave the field empty.
func (c *Controller) dialog(ctx context.Context, res update.Result) Dialog {
	d := Dialog{Result: res}
	log := logging.Logger()

	if v, err := c.engine.FormattedVersion(ctx); err == nil {
		d.FormattedVersion = v
	} else {
		log.Debug("formatted version unavailable", "error", err)
	}
	if notes, err := c.engine.ChangeLog(ctx); err == nil {
		d.ChangeLog = notes
	} else {
		log.Debug("changelog unavailable", "error", err)
	}
	if mandatory, err := c.engine.IsUpdateMandatory(ctx); err == nil {
		d.Mandatory = mandatory
	} else {
		log.Debug("mandatory flag unavailable", "error", err)
	}
	return d
}

// UpdateNow opens the pending dialog's store URL and dismisses the dialog.
func (c *Controller) UpdateNow(ctx context.Context) error {
	d, ok := c.Pending()
	if !ok {
		return fmt.Errorf("no update dialog is pending")
	}
	url := d.Result.VersionInfo.StoreURL
	if url == "" {
		c.Dismiss()
		return fmt.Errorf("no store URL for platform %s", d.Result.VersionInfo.Platform)
	}
	if err := c.open(ctx, url); err != nil {
		return fmt.Errorf("failed to open store URL: %w", err)
	}
	c.Dismiss()
	return nil
}

// RemindLater defers prompts through the engine and dismisses the dialog.
func (c *Controller) RemindLater(ctx context.Context) error {
	if err := c.engine.SetRemindMeLater(ctx); err != nil {
		return err
	}
	c.Dismiss()
	return nil
}

// Dismiss clears the pending dialog.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// Respond applies a dialog choice.
func (c *Controller) Respond(ctx context.Context, choice Choice) error {
	switch choice {
	case ChoiceUpdate:
		return c.UpdateNow(ctx)
	case ChoiceRemindLater:
		return c.RemindLater(ctx)
	default:
		c.Dismiss()
		return nil
	}
}

// Run initializes the engine, checks once, then re-checks every interval
// and on each value from triggers until ctx is done. A zero interval
// disables the timer; a nil triggers channel is never ready.
func (c *Controller) Run(ctx context.Context, interval time.Duration, triggers <-chan struct{}) error {
	if err := c.engine.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize update engine: %w", err)
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	c.runCheck(ctx, "start")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			c.runCheck(ctx, "timer")
		case _, ok := <-triggers:
			if !ok {
				triggers = nil
				continue
			}
			c.runCheck(ctx, "trigger")
		}
	}
}

func (c *Controller) runCheck(ctx context.Context, cause string) {
	res, err := c.Check(ctx)
	if err != nil {
		logging.Debug("check skipped", "cause", cause, "error", err)
		return
	}
	logging.Debug("check finished", "cause", cause, "prompt", res.ShouldShowPrompt, "reason", res.SkipReason)
}
