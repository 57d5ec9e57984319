package capture

import "time"

// Pacer picks the capture interval. It switches to the active rate as soon
// as a frame shows motion or a hand, and back to the idle rate once nothing
// was seen for the idle timeout.
type Pacer struct {
	idle, active time.Duration
	timeout      time.Duration

	activeNow bool
	lastSeen  time.Time
}

// NewPacer creates a pacer in the idle state.
func NewPacer(config Config) *Pacer {
	return &Pacer{
		idle:    interval(config.IdleFPS),
		active:  interval(config.ActiveFPS),
		timeout: config.IdleTimeout,
	}
}

func interval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}

// Observe records one frame and returns the interval before the next one.
func (p *Pacer) Observe(now time.Time, motion, hands bool) time.Duration {
	switch {
	case motion || hands:
		p.activeNow = true
		p.lastSeen = now
	case p.activeNow && now.Sub(p.lastSeen) >= p.timeout:
		p.activeNow = false
	}
	return p.Interval()
}

// Interval returns the current capture interval.
func (p *Pacer) Interval() time.Duration {
	if p.activeNow {
		return p.active
	}
	return p.idle
}

// Active reports whether the pacer runs at the active rate.
func (p *Pacer) Active() bool { return p.activeNow }

// FPS returns the current rate in frames per second.
func (p *Pacer) FPS() int {
	return int(time.Second / p.Interval())
}

// Reset returns to the idle rate.
func (p *Pacer) Reset() {
	p.activeNow = false
	p.lastSeen = time.Time{}
}
