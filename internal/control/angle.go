package control

import (
	"math"
	"time"

	"github.com/ayusman/airinteract/internal/detector"
)

// AngleConfig tunes the volume angle mapper.
type AngleConfig struct {
	// Divisor is K in smoothed += (angle - smoothed) / K.
	Divisor float64 `mapstructure:"divisor" yaml:"divisor"`

	// Gain scales the smoothed tilt before clamping to ±90°.
	Gain float64 `mapstructure:"gain" yaml:"gain"`

	// Step is the quantization step of the emitted level.
	Step int `mapstructure:"step" yaml:"step"`

	// Interval is the minimum time between emissions.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// TiltAngle returns the forward tilt of the palm in degrees, zero when the
// wrist-to-knuckle vector points straight up in the image.
func TiltAngle(wrist, knuckle detector.Point) float64 {
	return math.Atan2(knuckle.X-wrist.X, -(knuckle.Y-wrist.Y)) * 180 / math.Pi
}

// LevelForAngle maps an angle to a level in [0,100]: 0° is 50, +90° is 0 and
// -90° is 100. The result is floored to step.
func LevelForAngle(angle float64, step int) int {
	a := math.Max(-90, math.Min(90, -angle))
	level := (a + 90) / 180 * 100
	if step <= 0 {
		return int(level)
	}
	return int(level/float64(step)) * step
}

// AngleMapper smooths a tilt angle into a quantized absolute level and
// decides when a new level should be emitted.
type AngleMapper struct {
	config   AngleConfig
	smoothed float64
	last     int
	gate     *Cooldown
}

// NewAngleMapper returns a mapper that has not emitted yet.
func NewAngleMapper(config AngleConfig) *AngleMapper {
	if config.Divisor < 1 {
		config.Divisor = 1
	}
	return &AngleMapper{
		config: config,
		last:   -1,
		gate:   NewCooldown(config.Interval),
	}
}

// Observe folds angle into the smoothed value and returns the candidate level.
func (m *AngleMapper) Observe(angle float64) int {
	m.smoothed += (angle - m.smoothed) / m.config.Divisor
	return LevelForAngle(m.smoothed*m.config.Gain, m.config.Step)
}

// Due reports whether level differs enough from the last emitted level and
// the emission interval has passed. It does not consume the interval.
func (m *AngleMapper) Due(level int, now time.Time) bool {
	if m.last >= 0 && abs(level-m.last) < max(m.config.Step, 1) {
		return false
	}
	return m.gate.Ready(now)
}

// Emitted records a level the audio collaborator accepted.
func (m *AngleMapper) Emitted(level int, now time.Time) {
	m.gate.Allow(now)
	m.last = level
}

// Attempted consumes the emission interval after a rejected level so the
// retry waits for the next slot.
func (m *AngleMapper) Attempted(now time.Time) {
	m.gate.Allow(now)
}

// Smoothed returns the smoothed angle.
func (m *AngleMapper) Smoothed() float64 { return m.smoothed }

// Last returns the last emitted level, or -1.
func (m *AngleMapper) Last() int { return m.last }

// Reset forgets the smoothed angle and the last emitted level.
func (m *AngleMapper) Reset() {
	m.smoothed = 0
	m.last = -1
	m.gate.Reset()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
