package gesture

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/audio"
	"github.com/ayusman/airinteract/internal/control"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/input"
	"github.com/ayusman/airinteract/internal/pose"
)

// GeneralPatterns are the pose patterns of the general profile, written as
// five characters (thumb..pinky) of '1' extended, '0' curled, '*' either.
type GeneralPatterns struct {
	Pointing    string `mapstructure:"pointing" yaml:"pointing"`
	Fist        string `mapstructure:"fist" yaml:"fist"`
	Pinch       string `mapstructure:"pinch" yaml:"pinch"`
	Open        string `mapstructure:"open" yaml:"open"`
	DoubleClick string `mapstructure:"double_click" yaml:"double_click"`
	RightClick  string `mapstructure:"right_click" yaml:"right_click"`
	LeftClick   string `mapstructure:"left_click" yaml:"left_click"`
}

// GeneralCooldowns are the windows of the general profile's discrete actions.
type GeneralCooldowns struct {
	LeftClick   time.Duration `mapstructure:"left_click" yaml:"left_click"`
	RightClick  time.Duration `mapstructure:"right_click" yaml:"right_click"`
	DoubleClick time.Duration `mapstructure:"double_click" yaml:"double_click"`
	DragToggle  time.Duration `mapstructure:"drag_toggle" yaml:"drag_toggle"`
	ModeEnter   time.Duration `mapstructure:"mode_enter" yaml:"mode_enter"`
}

// GeneralConfig tunes the general profile.
type GeneralConfig struct {
	// Dominant is the hand that points, clicks and sets the volume: "right"
	// or "left". The other hand is the secondary hand.
	Dominant string `mapstructure:"dominant" yaml:"dominant"`

	Patterns GeneralPatterns `mapstructure:"patterns" yaml:"patterns"`

	// PauseMaxDigits is how many digits the dominant hand may extend and
	// still count as the scroll-pause fist.
	PauseMaxDigits int `mapstructure:"pause_max_digits" yaml:"pause_max_digits"`

	Scroll    control.VelocityConfig `mapstructure:"scroll" yaml:"scroll"`
	Zoom      control.VelocityConfig `mapstructure:"zoom" yaml:"zoom"`
	Volume    control.AngleConfig    `mapstructure:"volume" yaml:"volume"`
	Cursor    control.CursorConfig   `mapstructure:"cursor" yaml:"cursor"`
	Cooldowns GeneralCooldowns       `mapstructure:"cooldowns" yaml:"cooldowns"`

	// ModifierKey is held while zoom ticks scroll.
	ModifierKey string `mapstructure:"modifier_key" yaml:"modifier_key"`

	// FingerMargin is how far (pixels) a fingertip must sit above its PIP joint.
	FingerMargin float64 `mapstructure:"finger_margin" yaml:"finger_margin"`

	// MaxFrameGap makes the velocity filters re-prime after a longer gap.
	MaxFrameGap time.Duration `mapstructure:"max_frame_gap" yaml:"max_frame_gap"`

	// MinDT is the floor of the per-frame time step.
	MinDT time.Duration `mapstructure:"min_dt" yaml:"min_dt"`

	// FrameWidth and FrameHeight are used when a frame does not carry its size.
	FrameWidth  int `mapstructure:"frame_width" yaml:"frame_width"`
	FrameHeight int `mapstructure:"frame_height" yaml:"frame_height"`
}

// DefaultGeneralConfig returns the general profile defaults.
func DefaultGeneralConfig() GeneralConfig {
	return GeneralConfig{
		Dominant: "right",
		Patterns: GeneralPatterns{
			Pointing:    "01000",
			Fist:        "00000",
			Pinch:       "11000",
			Open:        "11111",
			DoubleClick: "11100",
			RightClick:  "01100",
			LeftClick:   "11000",
		},
		PauseMaxDigits: 1,
		Scroll:         control.VelocityConfig{Sensitivity: 6.5, Smoothing: 0.34, Gain: 1},
		Zoom:           control.VelocityConfig{Sensitivity: 0.032, Smoothing: 0.38, Gain: 140, Invert: true},
		Volume:         control.AngleConfig{Divisor: 5, Gain: 3.3, Step: 5, Interval: 150 * time.Millisecond},
		Cursor:         control.CursorConfig{FrameReduction: 120, Padding: 0.2, Divisor: 8, EdgeInset: 1},
		Cooldowns: GeneralCooldowns{
			LeftClick:   300 * time.Millisecond,
			RightClick:  300 * time.Millisecond,
			DoubleClick: 600 * time.Millisecond,
			DragToggle:  150 * time.Millisecond,
			ModeEnter:   100 * time.Millisecond,
		},
		ModifierKey: "ctrl",
		MaxFrameGap: 500 * time.Millisecond,
		MinDT:       time.Millisecond,
		FrameWidth:  640,
		FrameHeight: 480,
	}
}

type generalPatterns struct {
	pointing, fist, pinch, open        pose.Pattern
	doubleClick, rightClick, leftClick pose.Pattern
}

func (p GeneralPatterns) compile() (generalPatterns, error) {
	var out generalPatterns
	var err error
	for _, f := range []struct {
		name string
		src  string
		dst  *pose.Pattern
	}{
		{"pointing", p.Pointing, &out.pointing},
		{"fist", p.Fist, &out.fist},
		{"pinch", p.Pinch, &out.pinch},
		{"open", p.Open, &out.open},
		{"double_click", p.DoubleClick, &out.doubleClick},
		{"right_click", p.RightClick, &out.rightClick},
		{"left_click", p.LeftClick, &out.leftClick},
	} {
		if *f.dst, err = pose.ParsePattern(f.src); err != nil {
			return out, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return out, nil
}

// Validate checks the pattern set, the dominant hand and the time step floor.
func (c GeneralConfig) Validate() error {
	if c.Dominant != "right" && c.Dominant != "left" {
		return fmt.Errorf("dominant hand %q: want right or left", c.Dominant)
	}
	if _, err := c.Patterns.compile(); err != nil {
		return fmt.Errorf("patterns: %w", err)
	}
	if c.MinDT <= 0 {
		return fmt.Errorf("min_dt %v: must be positive", c.MinDT)
	}
	return nil
}

// General is the general-purpose desktop profile: cursor, drag, pinch zoom,
// infinite scroll, volume and clicks.
type General struct {
	config     GeneralConfig
	patterns   generalPatterns
	classifier *pose.Classifier
	input      input.Injector
	mixer      audio.Mixer
	log        *zap.Logger

	clock     clock
	cooldowns *control.Cooldowns
	scroll    *control.VelocityFilter
	zoom      *control.VelocityFilter
	volume    *control.AngleMapper
	cursor    *control.CursorMapper
	drag      *control.Drag
	modifier  bool
	announcer announcer
}

// NewGeneral builds the general profile.
func NewGeneral(config GeneralConfig, opts Options) (*General, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	patterns, _ := config.Patterns.compile()

	log := opts.logger("general")
	mixer := opts.Mixer
	if mixer == nil {
		mixer = nopMixer{}
	}

	g := &General{
		config:   config,
		patterns: patterns,
		classifier: pose.NewClassifier(pose.Config{
			Rule:      pose.ThumbOrientation,
			ThumbBase: detector.ThumbMCP,
			Margin:    config.FingerMargin,
		}),
		input: opts.Input,
		mixer: mixer,
		log:   log,
		clock: clock{minDT: config.MinDT, maxGap: config.MaxFrameGap},
		cooldowns: control.NewCooldowns(map[control.Action]time.Duration{
			control.LeftClick:   config.Cooldowns.LeftClick,
			control.RightClick:  config.Cooldowns.RightClick,
			control.DoubleClick: config.Cooldowns.DoubleClick,
			control.DragToggle:  config.Cooldowns.DragToggle,
			control.ModeEnter:   config.Cooldowns.ModeEnter,
		}),
		scroll:    control.NewVelocityFilter(config.Scroll),
		zoom:      control.NewVelocityFilter(config.Zoom),
		volume:    control.NewAngleMapper(config.Volume),
		cursor:    control.NewCursorMapper(config.Cursor),
		announcer: announcer{log: log},
	}
	g.drag = control.NewDrag(
		pointerButton{in: opts.Input, button: input.ButtonLeft},
		control.Invariant{Strict: opts.Strict, Log: log},
		log,
	)
	return g, nil
}

// Process evaluates one frame.
func (g *General) Process(f Frame) Result {
	dt, gap := g.clock.tick(f.At)
	if gap {
		g.scroll.Interrupt()
		g.zoom.Interrupt()
	}

	leftHand, rightHand := byHandedness(f.Hands)
	left := g.classifier.Classify(leftHand)
	right := g.classifier.Classify(rightHand)

	domHand, secHand, dom, sec := rightHand, leftHand, right, left
	if g.config.Dominant == "left" {
		domHand, secHand, dom, sec = leftHand, rightHand, left, right
	}

	res := Result{
		At:    f.At,
		Mode:  g.selectMode(dom, sec),
		Left:  vectorOf(left),
		Right: vectorOf(right),
		Level: -1,
	}

	switch res.Mode {
	case ModeDrag, ModeCursor:
		res.Mode = g.point(res.Mode, domHand, f)
	case ModePinchZoom:
		res.ModifierHeld = g.pinchZoom(domHand, secHand, dt)
	case ModeScroll:
		g.scrollStep(domHand, dt)
	case ModeVolume:
		res.Level = g.setVolume(domHand, f.At)
	case ModeDoubleClick:
		g.fire(control.DoubleClick, f.At, g.input.DoubleClick)
	case ModeRightClick:
		g.fire(control.RightClick, f.At, func() error { return g.input.Click(input.ButtonRight) })
	case ModeLeftClick:
		g.fire(control.LeftClick, f.At, func() error { return g.input.Click(input.ButtonLeft) })
	}

	g.teardown(res.Mode)

	res.Status = res.Mode.Label()
	if res.Mode == ModeVolume && res.Level >= 0 {
		res.Status = fmt.Sprintf("VOLUME %d%%", res.Level)
	}
	if res.Level < 0 {
		res.Level = 0
	}
	res.Announced = g.announcer.announce(res.Mode, g.cooldowns, f.At)
	return res
}

// selectMode picks the mode for the dominant and secondary poses. The first
// matching rule wins:
//
//  1. drag: dominant pointing, secondary fist (pointing alone is cursor)
//  2. pinch zoom: both hands in the pinch pose
//  3. scroll: secondary open, dominant open (scroll) or near-fist (pause)
//  4. volume: dominant open, secondary not open
//  5. dominant clicks: double, right, left
func (g *General) selectMode(dom, sec pose.Pose) Mode {
	p := g.patterns

	if p.pointing.MatchPose(dom) {
		if p.fist.MatchPose(sec) {
			return ModeDrag
		}
		return ModeCursor
	}

	if p.pinch.MatchPose(dom) && p.pinch.MatchPose(sec) {
		return ModePinchZoom
	}

	if p.open.MatchPose(sec) && dom.Present {
		if p.open.MatchPose(dom) {
			return ModeScroll
		}
		if dom.Fingers.Count() <= g.config.PauseMaxDigits {
			return ModeScrollPause
		}
	}

	switch {
	case p.open.MatchPose(dom) && !p.open.MatchPose(sec):
		return ModeVolume
	case p.doubleClick.MatchPose(dom):
		return ModeDoubleClick
	case p.rightClick.MatchPose(dom):
		return ModeRightClick
	case p.leftClick.MatchPose(dom):
		return ModeLeftClick
	}
	return ModeNone
}

// point drives drag and cursor. A drag whose press is refused by the
// drag-toggle gate or by the injector degrades to cursor for this frame.
func (g *General) point(mode Mode, hand *detector.Hand, f Frame) Mode {
	if mode == ModeDrag && !g.drag.Active() {
		if !g.cooldowns.Allow(control.DragToggle, f.At) {
			mode = ModeCursor
		} else if err := g.drag.Press(); err != nil {
			g.log.Warn("drag press failed", zap.Error(err))
			mode = ModeCursor
		}
	}
	if mode == ModeCursor {
		g.releaseDrag()
	}

	fw, fh := frameSize(f, g.config.FrameWidth, g.config.FrameHeight)
	sw, sh := g.input.ScreenSize()
	x, y, ok := g.cursor.Map(hand.Points[detector.IndexTip], fw, fh, float64(sw), float64(sh))
	if ok {
		if err := g.input.MoveTo(x, y); err != nil {
			g.log.Warn("move pointer failed", zap.Error(err))
		}
	}
	return mode
}

func (g *General) pinchZoom(dom, sec *detector.Hand, dt float64) bool {
	dist := dom.Points[detector.IndexTip].Dist(sec.Points[detector.IndexTip])
	amount, emit := g.zoom.Update(dist, dt)
	if !emit {
		return false
	}

	if !g.modifier {
		if err := g.input.KeyDown(g.config.ModifierKey); err != nil {
			g.log.Warn("modifier down failed", zap.Error(err))
			return false
		}
		g.modifier = true
	}
	if err := g.input.Scroll(amount, input.Vertical); err != nil {
		g.log.Warn("zoom scroll failed", zap.Int("amount", amount), zap.Error(err))
	}
	return true
}

func (g *General) scrollStep(dom *detector.Hand, dt float64) {
	amount, emit := g.scroll.Update(dom.Points[detector.IndexTip].Y, dt)
	if !emit {
		return
	}
	if err := g.input.Scroll(amount, input.Vertical); err != nil {
		g.log.Warn("scroll failed", zap.Int("amount", amount), zap.Error(err))
	}
}

func (g *General) setVolume(hand *detector.Hand, now time.Time) int {
	angle := control.TiltAngle(hand.Points[detector.Wrist], hand.Points[detector.MiddleMCP])
	// A right hand tilts the mirror image of a left hand.
	if hand.Handedness == detector.Right {
		angle = -angle
	}

	level := g.volume.Observe(angle)
	if g.volume.Due(level, now) {
		if err := g.mixer.SetLevel(level); err != nil {
			g.log.Warn("set volume failed", zap.Int("level", level), zap.Error(err))
			g.volume.Attempted(now)
		} else {
			g.volume.Emitted(level, now)
		}
	}
	return g.volume.Last()
}

func (g *General) fire(action control.Action, now time.Time, fn func() error) {
	if !g.cooldowns.Allow(action, now) {
		return
	}
	if err := fn(); err != nil {
		g.log.Warn("action failed", zap.String("action", string(action)), zap.Error(err))
	}
}

// teardown clears the transient state of every mode other than mode.
func (g *General) teardown(mode Mode) {
	if mode != ModeDrag {
		g.releaseDrag()
	}

	switch mode {
	case ModePinchZoom:
	case ModeNone:
		g.zoom.Reset()
	default:
		g.zoom.Miss()
	}

	switch mode {
	case ModeScroll:
	case ModeScrollPause:
		g.scroll.Hold()
	default:
		g.scroll.Miss()
	}

	if mode != ModePinchZoom {
		g.ReleaseModifier()
	}
}

func (g *General) releaseDrag() {
	if err := g.drag.Release(); err != nil {
		g.log.Warn("drag release failed", zap.Error(err))
	}
}

// ReleaseModifier lifts the zoom modifier if it is held.
func (g *General) ReleaseModifier() {
	if err := g.releaseModifier(); err != nil {
		g.log.Warn("modifier release failed", zap.Error(err))
	}
}

func (g *General) releaseModifier() error {
	if !g.modifier {
		return nil
	}
	if err := g.input.KeyUp(g.config.ModifierKey); err != nil {
		return err
	}
	g.modifier = false
	return nil
}

// Dragging reports whether the drag button is held.
func (g *General) Dragging() bool { return g.drag.Active() }

// ModifierDown reports whether the zoom modifier is held.
func (g *General) ModifierDown() bool { return g.modifier }

// Reset releases everything held and returns to the initial state.
func (g *General) Reset() {
	g.releaseDrag()
	g.ReleaseModifier()
	g.scroll.Reset()
	g.zoom.Reset()
	g.volume.Reset()
	g.cursor.Reset()
	g.cooldowns.Reset()
	g.clock.reset()
	g.announcer.reset()
}

// Close force-releases the drag button and the modifier.
func (g *General) Close() error {
	return multierr.Combine(
		g.drag.Release(),
		g.releaseModifier(),
	)
}

type pointerButton struct {
	in     input.Injector
	button input.Button
}

func (p pointerButton) ButtonDown() error { return p.in.ButtonDown(p.button) }
func (p pointerButton) ButtonUp() error   { return p.in.ButtonUp(p.button) }

type nopMixer struct{}

func (nopMixer) SetLevel(int) error { return nil }
