package control

import "math"

// VelocityConfig tunes a VelocityFilter.
type VelocityConfig struct {
	// Sensitivity scales the raw per-second delta into a target velocity.
	Sensitivity float64 `mapstructure:"sensitivity" yaml:"sensitivity"`

	// Smoothing is the single-pole factor in (0,1). Higher is more responsive.
	Smoothing float64 `mapstructure:"smoothing" yaml:"smoothing"`

	// Gain converts velocity·dt into emitted ticks.
	Gain float64 `mapstructure:"gain" yaml:"gain"`

	// Invert flips the sign of the target velocity.
	Invert bool `mapstructure:"invert" yaml:"invert"`
}

// VelocityFilter turns successive measurements into a smoothed rate and
// emits whole ticks. Momentum survives a single missed frame.
type VelocityFilter struct {
	config VelocityConfig

	ref        float64
	primed     bool
	velocity   float64
	persistent float64
	misses     int
}

// NewVelocityFilter returns an unprimed filter.
func NewVelocityFilter(config VelocityConfig) *VelocityFilter {
	return &VelocityFilter{config: config}
}

// Update feeds a measurement taken dt seconds after the previous frame.
// It returns the tick amount and whether it should be emitted. A frame with
// no elapsed time carries no rate and leaves the filter unchanged.
func (f *VelocityFilter) Update(raw, dt float64) (int, bool) {
	if dt <= 0 || math.IsNaN(dt) {
		return 0, false
	}
	f.misses = 0

	if !f.primed {
		f.ref = raw
		f.primed = true
		f.velocity = f.persistent
		return 0, false
	}

	delta := raw - f.ref
	if f.config.Invert {
		delta = -delta
	}
	target := delta * f.config.Sensitivity / dt
	f.velocity += (target - f.velocity) * f.config.Smoothing
	f.persistent = f.velocity
	f.ref = raw

	amount := int(math.Round(f.velocity * dt * f.config.Gain))
	return amount, amount != 0
}

// Miss records a frame where the gesture was not recognized. The reference
// is dropped so the next frame re-primes; momentum is kept. A second
// consecutive miss resets the filter.
func (f *VelocityFilter) Miss() {
	f.misses++
	if f.misses >= 2 {
		f.Reset()
		return
	}
	f.primed = false
}

// Hold pauses the gesture on purpose: the reference is dropped and the live
// velocity zeroed, but momentum is kept for when the gesture resumes.
func (f *VelocityFilter) Hold() {
	f.misses = 0
	f.primed = false
	f.velocity = 0
}

// Interrupt drops the reference after a gap in the frame stream.
func (f *VelocityFilter) Interrupt() {
	f.primed = false
}

// Reset clears everything, including momentum.
func (f *VelocityFilter) Reset() {
	f.ref = 0
	f.primed = false
	f.velocity = 0
	f.persistent = 0
	f.misses = 0
}

// Primed reports whether a reference value is held.
func (f *VelocityFilter) Primed() bool { return f.primed }

// Reference returns the held reference value.
func (f *VelocityFilter) Reference() float64 { return f.ref }

// Velocity returns the current smoothed velocity.
func (f *VelocityFilter) Velocity() float64 { return f.velocity }

// Persistent returns the momentum carried across dropouts.
func (f *VelocityFilter) Persistent() float64 { return f.persistent }
