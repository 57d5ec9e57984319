package control

import (
	"math"

	"github.com/ayusman/airinteract/internal/detector"
)

// CursorConfig tunes the mapping from the active zone to the screen.
type CursorConfig struct {
	// FrameReduction is the margin (pixels) trimmed from every frame edge to
	// form the active zone.
	FrameReduction float64 `mapstructure:"frame_reduction" yaml:"frame_reduction"`

	// Padding extends the mapped range past the screen edges so corners are
	// reachable, as a fraction of the screen size.
	Padding float64 `mapstructure:"padding" yaml:"padding"`

	// Divisor is the smoothing divisor applied to each step toward the target.
	Divisor float64 `mapstructure:"divisor" yaml:"divisor"`

	// Mirror flips x inside the frame before mapping.
	Mirror bool `mapstructure:"mirror" yaml:"mirror"`

	// Inclusive accepts points on the zone border.
	Inclusive bool `mapstructure:"inclusive" yaml:"inclusive"`

	// EdgeInset keeps the pointer this many pixels inside the screen.
	EdgeInset float64 `mapstructure:"edge_inset" yaml:"edge_inset"`
}

// CursorMapper maps a fingertip in frame space to a smoothed screen position.
type CursorMapper struct {
	config CursorConfig
	x, y   float64
	placed bool
}

// NewCursorMapper returns a mapper with no previous position.
func NewCursorMapper(config CursorConfig) *CursorMapper {
	if config.Divisor < 1 {
		config.Divisor = 1
	}
	return &CursorMapper{config: config}
}

// Map returns the next pointer position for tip in a frame of the given
// size on a screen of the given size. ok is false when tip is outside the
// active zone; the previous position is then kept.
func (m *CursorMapper) Map(tip detector.Point, frameW, frameH, screenW, screenH float64) (x, y int, ok bool) {
	r := m.config.FrameReduction
	xMin, xMax := r, frameW-r
	yMin, yMax := r, frameH-r

	inside := tip.X > xMin && tip.X < xMax && tip.Y > yMin && tip.Y < yMax
	if m.config.Inclusive {
		inside = tip.X >= xMin && tip.X <= xMax && tip.Y >= yMin && tip.Y <= yMax
	}
	if !inside || xMax <= xMin || yMax <= yMin {
		return 0, 0, false
	}

	tx := tip.X
	if m.config.Mirror {
		tx = frameW - tx
	}

	pad := m.config.Padding
	inset := m.config.EdgeInset
	targetX := interp(tx, xMin, xMax, -screenW*pad, screenW*(1+pad))
	targetY := interp(tip.Y, yMin, yMax, -screenH*pad, screenH*(1+pad))
	targetX = clamp(targetX, inset, screenW-1)
	targetY = clamp(targetY, inset, screenH-1)

	if !m.placed {
		m.x, m.y = screenW/2, screenH/2
		m.placed = true
	}
	m.x += (targetX - m.x) / m.config.Divisor
	m.y += (targetY - m.y) / m.config.Divisor

	return int(math.Round(m.x)), int(math.Round(m.y)), true
}

// Reset forgets the previous position.
func (m *CursorMapper) Reset() {
	m.x, m.y = 0, 0
	m.placed = false
}

// interp maps v linearly from [inLo,inHi] onto [outLo,outHi], holding the
// output ends outside the input range.
func interp(v, inLo, inHi, outLo, outHi float64) float64 {
	if v <= inLo {
		return outLo
	}
	if v >= inHi {
		return outHi
	}
	return outLo + (v-inLo)/(inHi-inLo)*(outHi-outLo)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
