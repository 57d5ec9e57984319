package control

import (
	"time"

	"golang.org/x/time/rate"
)

// Action names a discrete action kind guarded by its own cooldown.
type Action string

const (
	LeftClick   Action = "left_click"
	RightClick  Action = "right_click"
	DoubleClick Action = "double_click"
	DragToggle  Action = "drag_toggle"
	ModeEnter   Action = "mode_enter"
	VolumeSet   Action = "volume_set"
	PrevSlide   Action = "prev_slide"
	NextSlide   Action = "next_slide"
	Nitro       Action = "nitro"
)

// Cooldown allows an action at most once per window. Time is passed in
// explicitly so frames are judged by their capture time, not wall time.
type Cooldown struct {
	window  time.Duration
	limiter *rate.Limiter
}

// NewCooldown creates a gate for window. A zero window never blocks.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window:  window,
		limiter: newLimiter(window),
	}
}

func newLimiter(window time.Duration) *rate.Limiter {
	if window <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(window), 1)
}

// Allow consumes the gate if it is open at now.
func (c *Cooldown) Allow(now time.Time) bool {
	return c.limiter.AllowN(now, 1)
}

// Ready reports whether Allow would succeed at now without consuming it.
func (c *Cooldown) Ready(now time.Time) bool {
	if c.window <= 0 {
		return true
	}
	return c.limiter.TokensAt(now) >= 1
}

// Window returns the configured window.
func (c *Cooldown) Window() time.Duration {
	return c.window
}

// Reset reopens the gate.
func (c *Cooldown) Reset() {
	c.limiter = newLimiter(c.window)
}

// Cooldowns is a set of gates keyed by action kind.
type Cooldowns struct {
	gates map[Action]*Cooldown
}

// NewCooldowns builds one gate per entry of windows.
func NewCooldowns(windows map[Action]time.Duration) *Cooldowns {
	cs := &Cooldowns{gates: make(map[Action]*Cooldown, len(windows))}
	for a, w := range windows {
		cs.gates[a] = NewCooldown(w)
	}
	return cs
}

// Allow consumes the gate for a. Unknown actions are always allowed.
func (cs *Cooldowns) Allow(a Action, now time.Time) bool {
	g, ok := cs.gates[a]
	if !ok {
		return true
	}
	return g.Allow(now)
}

// Ready reports whether a could fire at now.
func (cs *Cooldowns) Ready(a Action, now time.Time) bool {
	g, ok := cs.gates[a]
	if !ok {
		return true
	}
	return g.Ready(now)
}

// Reset reopens every gate.
func (cs *Cooldowns) Reset() {
	for _, g := range cs.gates {
		g.Reset()
	}
}
