// Package tray provides the system tray menu: the live mode label, the
// enable toggle and quit.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/airinteract/internal/gesture"
)

// Tray is the system tray application.
type Tray struct {
	mu         sync.RWMutex
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	status     string
	profile    string

	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a Tray for the named profile, enabled by default.
func New(profile string) *Tray {
	return &Tray{enabled: true, profile: profile}
}

// OnToggle sets the callback run when the user toggles processing.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback run by "Open Status...".
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback run when the user quits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Stop or Quit, and must be called
// from the main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Stop closes the tray and makes Run return.
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("AirInteract")
	systray.SetTooltip("AirInteract (" + t.profile + ")")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume gesture control")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem(statusTitle(t.status), "Active gesture mode")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Status...", "Open the status page in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit AirInteract")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

func statusTitle(status string) string {
	if status == "" {
		return "Mode: none"
	}
	return "Mode: " + status
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// Observe shows an announced result. It is an app.Observer.
func (t *Tray) Observe(res gesture.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = res.Status
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(res.Status))
	}
}

// SetEnabled reflects a toggle made elsewhere, without running OnToggle.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Status returns the last shown status label.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
