package control

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ayusman/airinteract/internal/detector"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestCooldown(t *testing.T) {
	t.Run("allows once per window", func(t *testing.T) {
		c := NewCooldown(300 * time.Millisecond)
		assert.True(t, c.Allow(at(0)))
		assert.False(t, c.Allow(at(10)))
		assert.False(t, c.Allow(at(200)))
		assert.True(t, c.Allow(at(320)))
		assert.False(t, c.Allow(at(330)))
	})

	t.Run("ready does not consume", func(t *testing.T) {
		c := NewCooldown(time.Second)
		assert.True(t, c.Ready(at(0)))
		assert.True(t, c.Ready(at(0)))
		assert.True(t, c.Allow(at(0)))
		assert.False(t, c.Ready(at(500)))
		assert.True(t, c.Ready(at(1100)))
	})

	t.Run("zero window never blocks", func(t *testing.T) {
		c := NewCooldown(0)
		for i := 0; i < 5; i++ {
			assert.True(t, c.Allow(at(0)))
		}
		assert.True(t, c.Ready(at(0)))
	})

	t.Run("reset reopens the gate", func(t *testing.T) {
		c := NewCooldown(time.Second)
		require.True(t, c.Allow(at(0)))
		require.False(t, c.Allow(at(1)))
		c.Reset()
		assert.True(t, c.Allow(at(2)))
	})

	t.Run("held action fires a bounded number of times", func(t *testing.T) {
		window := 600 * time.Millisecond
		duration := 3 * time.Second
		c := NewCooldown(window)

		fired := 0
		for ms := 0; ms < int(duration/time.Millisecond); ms += 33 {
			if c.Allow(at(ms)) {
				fired++
			}
		}

		lo := int(duration / window)
		assert.GreaterOrEqual(t, fired, lo)
		assert.LessOrEqual(t, fired, lo+1)
	})
}

func TestCooldowns(t *testing.T) {
	cs := NewCooldowns(map[Action]time.Duration{
		LeftClick:   300 * time.Millisecond,
		DoubleClick: 600 * time.Millisecond,
	})

	assert.True(t, cs.Allow(LeftClick, at(0)))
	assert.True(t, cs.Allow(DoubleClick, at(0)), "gates are independent")
	assert.False(t, cs.Allow(LeftClick, at(100)))
	assert.True(t, cs.Allow(LeftClick, at(400)))
	assert.False(t, cs.Ready(DoubleClick, at(400)))

	assert.True(t, cs.Allow(Nitro, at(0)), "unknown actions are not gated")
	assert.True(t, cs.Allow(Nitro, at(0)))

	cs.Reset()
	assert.True(t, cs.Allow(DoubleClick, at(401)))
}

func scrollConfig() VelocityConfig {
	return VelocityConfig{Sensitivity: 6.5, Smoothing: 0.34, Gain: 1}
}

func TestVelocityFilter_ScrollScenario(t *testing.T) {
	f := NewVelocityFilter(scrollConfig())

	amount, emit := f.Update(100, 0.1)
	assert.False(t, emit)
	assert.Zero(t, amount)
	require.True(t, f.Primed())

	amount, emit = f.Update(130, 0.1)
	assert.True(t, emit)
	// target = 30*6.5/0.1 = 1950, velocity = 1950*0.34 = 663
	assert.InDelta(t, 663, f.Velocity(), 1e-9)
	assert.Equal(t, 66, amount)
	assert.NotZero(t, f.Persistent())
	assert.Equal(t, 130.0, f.Reference())

	// One frame without the scroll hand.
	f.Miss()
	assert.False(t, f.Primed(), "reference must be cleared")
	assert.InDelta(t, 663, f.Persistent(), 1e-9)

	// Reacquired: re-primes at 150 instead of jumping by 150-130.
	amount, emit = f.Update(150, 0.1)
	assert.False(t, emit)
	assert.Zero(t, amount)
	assert.InDelta(t, 663, f.Velocity(), 1e-9, "momentum restored on re-prime")

	// The next delta is measured from the fresh reference.
	amount, emit = f.Update(152, 0.1)
	assert.True(t, emit)
	// target = 2*6.5/0.1 = 130, velocity = 663 + (130-663)*0.34 = 481.78
	assert.InDelta(t, 481.78, f.Velocity(), 1e-9)
	assert.Equal(t, 48, amount)
}

func TestVelocityFilter_ZeroDT(t *testing.T) {
	f := NewVelocityFilter(scrollConfig())
	f.Update(100, 0.1)
	f.Update(130, 0.1)
	require.InDelta(t, 663, f.Velocity(), 1e-9)

	for _, dt := range []float64{0, -0.1, math.NaN()} {
		amount, emit := f.Update(131, dt)
		assert.False(t, emit, "dt %v", dt)
		assert.Zero(t, amount, "dt %v", dt)
	}
	assert.InDelta(t, 663, f.Velocity(), 1e-9, "state is untouched")
	assert.InDelta(t, 663, f.Persistent(), 1e-9)
	assert.Equal(t, 130.0, f.Reference())

	// The next real frame is measured from the last good reference.
	amount, emit := f.Update(132, 0.1)
	assert.True(t, emit)
	assert.False(t, math.IsNaN(f.Velocity()))
	// target = 2*6.5/0.1 = 130, velocity = 663 + (130-663)*0.34 = 481.78
	assert.InDelta(t, 481.78, f.Velocity(), 1e-9)
	assert.Equal(t, 48, amount)
}

func TestVelocityFilter_DecaysWithoutInput(t *testing.T) {
	f := NewVelocityFilter(scrollConfig())
	f.Update(100, 0.05)
	f.Update(140, 0.05)
	require.Greater(t, f.Velocity(), 0.0)

	prev := f.Velocity()
	frames := 0
	for ; math.Abs(f.Velocity()) > 1e-3; frames++ {
		require.Less(t, frames, 100, "velocity did not converge")
		f.Update(140, 0.05)
		v := f.Velocity()
		assert.Less(t, math.Abs(v), math.Abs(prev))
		assert.GreaterOrEqual(t, v, 0.0, "decay must not overshoot")
		prev = v
	}
	assert.LessOrEqual(t, frames, 50)
}

func TestVelocityFilter_Withholds(t *testing.T) {
	f := NewVelocityFilter(scrollConfig())
	f.Update(100, 0.1)

	amount, emit := f.Update(100.1, 0.1)
	assert.False(t, emit)
	assert.Zero(t, amount)
	assert.Equal(t, 100.1, f.Reference(), "reference advances without emission")
	assert.Greater(t, f.Velocity(), 0.0)
}

func TestVelocityFilter_MissHoldReset(t *testing.T) {
	prime := func() *VelocityFilter {
		f := NewVelocityFilter(scrollConfig())
		f.Update(100, 0.1)
		f.Update(130, 0.1)
		return f
	}

	t.Run("two consecutive misses reset", func(t *testing.T) {
		f := prime()
		f.Miss()
		assert.NotZero(t, f.Persistent())
		f.Miss()
		assert.Zero(t, f.Persistent())
		assert.Zero(t, f.Velocity())
		assert.False(t, f.Primed())
	})

	t.Run("an update between misses keeps momentum", func(t *testing.T) {
		f := prime()
		f.Miss()
		f.Update(130, 0.1)
		f.Miss()
		assert.NotZero(t, f.Persistent())
	})

	t.Run("hold keeps momentum across repeated pauses", func(t *testing.T) {
		f := prime()
		p := f.Persistent()
		f.Hold()
		f.Hold()
		f.Hold()
		assert.Zero(t, f.Velocity())
		assert.Equal(t, p, f.Persistent())
		assert.False(t, f.Primed())

		f.Update(200, 0.1)
		assert.Equal(t, p, f.Velocity())
	})

	t.Run("interrupt only drops the reference", func(t *testing.T) {
		f := prime()
		v := f.Velocity()
		f.Interrupt()
		f.Interrupt()
		assert.False(t, f.Primed())
		assert.Equal(t, v, f.Persistent())
	})

	t.Run("reset clears everything", func(t *testing.T) {
		f := prime()
		f.Reset()
		assert.Zero(t, f.Velocity())
		assert.Zero(t, f.Persistent())
		assert.False(t, f.Primed())
	})
}

func TestVelocityFilter_Invert(t *testing.T) {
	f := NewVelocityFilter(VelocityConfig{Sensitivity: 0.032, Smoothing: 0.38, Gain: 140, Invert: true})
	f.Update(200, 0.05)
	amount, emit := f.Update(260, 0.05)

	// target = -60*0.032/0.05 = -38.4, velocity = -14.592, amount = round(-102.144)
	assert.True(t, emit)
	assert.Equal(t, -102, amount)
}

func TestTiltAngle(t *testing.T) {
	wrist := detector.Point{X: 320, Y: 380}

	assert.InDelta(t, 0, TiltAngle(wrist, detector.Point{X: 320, Y: 280}), 1e-9)
	assert.InDelta(t, 45, TiltAngle(wrist, detector.Point{X: 420, Y: 280}), 1e-9)
	assert.InDelta(t, -45, TiltAngle(wrist, detector.Point{X: 220, Y: 280}), 1e-9)
	assert.InDelta(t, 90, TiltAngle(wrist, detector.Point{X: 420, Y: 380}), 1e-9)
}

func TestLevelForAngle(t *testing.T) {
	tests := []struct {
		angle float64
		want  int
	}{
		{0, 50},
		{90, 0},
		{-90, 100},
		{180, 0},
		{-200, 100},
		{-9, 55},
		{9, 45},
		{-8, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForAngle(tt.angle, 5), "angle %v", tt.angle)
	}
	assert.Equal(t, 52, LevelForAngle(-4, 0))
}

func TestAngleMapper(t *testing.T) {
	cfg := AngleConfig{Divisor: 5, Gain: 3.3, Step: 5, Interval: 150 * time.Millisecond}

	t.Run("smooths toward the angle", func(t *testing.T) {
		m := NewAngleMapper(cfg)
		m.Observe(10)
		assert.InDelta(t, 2, m.Smoothed(), 1e-9)
		m.Observe(10)
		assert.InDelta(t, 3.6, m.Smoothed(), 1e-9)
	})

	t.Run("first level is always due", func(t *testing.T) {
		m := NewAngleMapper(cfg)
		level := m.Observe(0)
		assert.Equal(t, 50, level)
		assert.True(t, m.Due(level, at(0)))
	})

	t.Run("needs a full step and the interval", func(t *testing.T) {
		m := NewAngleMapper(cfg)
		m.Emitted(50, at(0))
		assert.False(t, m.Due(50, at(500)), "same level")
		assert.False(t, m.Due(55, at(100)), "interval not elapsed")
		assert.True(t, m.Due(55, at(200)))
		assert.True(t, m.Due(45, at(200)))
	})

	t.Run("rejected level is retried on the next slot", func(t *testing.T) {
		m := NewAngleMapper(cfg)
		m.Emitted(50, at(0))
		m.Attempted(at(200))
		assert.Equal(t, 50, m.Last())
		assert.False(t, m.Due(60, at(250)))
		assert.True(t, m.Due(60, at(400)))
	})

	t.Run("reset forgets the last level", func(t *testing.T) {
		m := NewAngleMapper(cfg)
		m.Observe(30)
		m.Emitted(30, at(0))
		m.Reset()
		assert.Equal(t, -1, m.Last())
		assert.Zero(t, m.Smoothed())
		assert.True(t, m.Due(30, at(1)))
	})
}

type fakeButton struct {
	downs, ups int
	downErr    error
	upErr      error
}

func (b *fakeButton) ButtonDown() error {
	if b.downErr != nil {
		return b.downErr
	}
	b.downs++
	return nil
}

func (b *fakeButton) ButtonUp() error {
	if b.upErr != nil {
		return b.upErr
	}
	b.ups++
	return nil
}

func TestDrag(t *testing.T) {
	t.Run("one press per episode", func(t *testing.T) {
		b := &fakeButton{}
		d := NewDrag(b, Invariant{Strict: true}, nil)

		for i := 0; i < 5; i++ {
			require.NoError(t, d.Press())
		}
		assert.True(t, d.Active())
		assert.Equal(t, 1, b.downs)

		require.NoError(t, d.Release())
		require.NoError(t, d.Release())
		assert.False(t, d.Active())
		assert.Equal(t, 1, b.ups)

		require.NoError(t, d.Press())
		d.Reset()
		downs, ups := d.Counts()
		assert.Equal(t, 2, downs)
		assert.Equal(t, 2, ups)
	})

	t.Run("failed press stays idle", func(t *testing.T) {
		b := &fakeButton{downErr: errors.New("no display")}
		d := NewDrag(b, Invariant{Strict: true}, nil)

		assert.Error(t, d.Press())
		assert.False(t, d.Active())
	})

	t.Run("failed release is retried", func(t *testing.T) {
		b := &fakeButton{}
		d := NewDrag(b, Invariant{Strict: true}, nil)
		require.NoError(t, d.Press())

		b.upErr = errors.New("busy")
		assert.Error(t, d.Release())
		assert.True(t, d.Active())

		b.upErr = nil
		require.NoError(t, d.Release())
		assert.False(t, d.Active())
		assert.Equal(t, 1, b.ups)
	})
}

func TestInvariant(t *testing.T) {
	t.Run("strict panics", func(t *testing.T) {
		iv := Invariant{Strict: true}
		assert.True(t, iv.Check(true, "fine"))
		assert.Panics(t, func() { iv.Check(false, "broken") })
	})

	t.Run("lenient logs", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		iv := Invariant{Log: zap.New(core)}

		assert.False(t, iv.Check(false, "broken", zap.Int("n", 2)))
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "invariant violated", entry.Message)
		assert.Equal(t, "broken", entry.ContextMap()["invariant"])
	})
}

func TestCursorMapper(t *testing.T) {
	general := CursorConfig{FrameReduction: 120, Padding: 0.2, Divisor: 8, EdgeInset: 1}

	t.Run("zone centre maps to screen centre", func(t *testing.T) {
		m := NewCursorMapper(CursorConfig{FrameReduction: 120, Padding: 0.2, Divisor: 1, EdgeInset: 1})
		x, y, ok := m.Map(detector.Point{X: 320, Y: 240}, 640, 480, 1920, 1080)
		require.True(t, ok)
		assert.Equal(t, 960, x)
		assert.Equal(t, 540, y)
	})

	t.Run("outside the zone is ignored", func(t *testing.T) {
		m := NewCursorMapper(general)
		_, _, ok := m.Map(detector.Point{X: 50, Y: 240}, 640, 480, 1920, 1080)
		assert.False(t, ok)
		_, _, ok = m.Map(detector.Point{X: 120, Y: 240}, 640, 480, 1920, 1080)
		assert.False(t, ok, "border is excluded unless inclusive")

		inclusive := general
		inclusive.Inclusive = true
		_, _, ok = NewCursorMapper(inclusive).Map(detector.Point{X: 120, Y: 240}, 640, 480, 1920, 1080)
		assert.True(t, ok)
	})

	t.Run("padding reaches and clamps to the edges", func(t *testing.T) {
		m := NewCursorMapper(CursorConfig{FrameReduction: 120, Padding: 0.2, Divisor: 1, EdgeInset: 1})
		x, y, ok := m.Map(detector.Point{X: 140, Y: 130}, 640, 480, 1920, 1080)
		require.True(t, ok)
		assert.Equal(t, 1, x)
		assert.Equal(t, 1, y)

		x, y, _ = m.Map(detector.Point{X: 500, Y: 355}, 640, 480, 1920, 1080)
		assert.Equal(t, 1919, x)
		assert.Equal(t, 1079, y)
	})

	t.Run("mirror flips x", func(t *testing.T) {
		cfg := CursorConfig{FrameReduction: 120, Divisor: 1, Mirror: true}
		x, _, ok := NewCursorMapper(cfg).Map(detector.Point{X: 200, Y: 240}, 640, 480, 1000, 1000)
		require.True(t, ok)
		// 640-200 = 440 of the 120..520 zone
		assert.Equal(t, 800, x)
	})

	t.Run("smoothing approaches the target", func(t *testing.T) {
		m := NewCursorMapper(general)
		tip := detector.Point{X: 420, Y: 240}
		prev := 960
		for i := 0; i < 60; i++ {
			x, _, ok := m.Map(tip, 640, 480, 1920, 1080)
			require.True(t, ok)
			assert.GreaterOrEqual(t, x, prev)
			prev = x
		}
		// target = -384 + 300/400*2688 = 1632
		assert.InDelta(t, 1632, prev, 1)

		m.Reset()
		x, _, _ := m.Map(tip, 640, 480, 1920, 1080)
		assert.InDelta(t, 960+(1632-960)/8.0, x, 1)
	})
}
