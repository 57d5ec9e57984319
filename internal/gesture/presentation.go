package gesture

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/control"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/input"
	"github.com/ayusman/airinteract/internal/pose"
)

// PresentationConfig tunes the slide-deck profile.
type PresentationConfig struct {
	Prev    string `mapstructure:"prev" yaml:"prev"`
	Next    string `mapstructure:"next" yaml:"next"`
	Pointer string `mapstructure:"pointer" yaml:"pointer"`

	PrevKey string `mapstructure:"prev_key" yaml:"prev_key"`
	NextKey string `mapstructure:"next_key" yaml:"next_key"`

	SlideCooldown time.Duration `mapstructure:"slide_cooldown" yaml:"slide_cooldown"`
	ModeEnter     time.Duration `mapstructure:"mode_enter" yaml:"mode_enter"`

	FingerMargin float64              `mapstructure:"finger_margin" yaml:"finger_margin"`
	Cursor       control.CursorConfig `mapstructure:"cursor" yaml:"cursor"`

	FrameWidth  int `mapstructure:"frame_width" yaml:"frame_width"`
	FrameHeight int `mapstructure:"frame_height" yaml:"frame_height"`
}

// DefaultPresentationConfig returns the presentation profile defaults.
func DefaultPresentationConfig() PresentationConfig {
	return PresentationConfig{
		Prev:          "10000",
		Next:          "00000",
		Pointer:       "01000",
		PrevKey:       "left",
		NextKey:       "right",
		SlideCooldown: 1400 * time.Millisecond,
		ModeEnter:     100 * time.Millisecond,
		FingerMargin:  15,
		Cursor:        control.CursorConfig{FrameReduction: 120, Padding: 0.22, Divisor: 6, Inclusive: true},
		FrameWidth:    640,
		FrameHeight:   480,
	}
}

// Validate checks the pattern strings.
func (c PresentationConfig) Validate() error {
	for name, s := range map[string]string{"prev": c.Prev, "next": c.Next, "pointer": c.Pointer} {
		if _, err := pose.ParsePattern(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Presentation drives a slide deck with one hand: thumb back, fist forward,
// index finger points.
type Presentation struct {
	config     PresentationConfig
	prev       pose.Pattern
	next       pose.Pattern
	pointer    pose.Pattern
	classifier *pose.Classifier
	input      input.Injector
	log        *zap.Logger

	cooldowns *control.Cooldowns
	cursor    *control.CursorMapper
	announcer announcer
}

// NewPresentation builds the presentation profile.
func NewPresentation(config PresentationConfig, opts Options) (*Presentation, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger("presentation")
	return &Presentation{
		config:  config,
		prev:    pose.MustParsePattern(config.Prev),
		next:    pose.MustParsePattern(config.Next),
		pointer: pose.MustParsePattern(config.Pointer),
		classifier: pose.NewClassifier(pose.Config{
			Rule:      pose.ThumbFixed,
			ThumbBase: detector.ThumbIP,
			Margin:    config.FingerMargin,
		}),
		input: opts.Input,
		log:   log,
		cooldowns: control.NewCooldowns(map[control.Action]time.Duration{
			control.PrevSlide: config.SlideCooldown,
			control.NextSlide: config.SlideCooldown,
			control.ModeEnter: config.ModeEnter,
		}),
		cursor:    control.NewCursorMapper(config.Cursor),
		announcer: announcer{log: log},
	}, nil
}

// Process evaluates one frame. The right hand is used when present,
// otherwise the left.
func (p *Presentation) Process(f Frame) Result {
	leftHand, rightHand := byHandedness(f.Hands)
	left := p.classifier.Classify(leftHand)
	right := p.classifier.Classify(rightHand)

	res := Result{At: f.At, Left: vectorOf(left), Right: vectorOf(right)}

	hand, ps := rightHand, right
	if hand == nil {
		hand, ps = leftHand, left
	}

	switch {
	case hand == nil:
		res.Mode = ModeNoHand
	case p.prev.MatchPose(ps):
		res.Mode = ModePrevSlide
		p.tap(control.PrevSlide, p.config.PrevKey, f.At)
	case p.next.MatchPose(ps):
		res.Mode = ModeNextSlide
		p.tap(control.NextSlide, p.config.NextKey, f.At)
	case p.pointer.MatchPose(ps):
		res.Mode = ModePointer
		p.point(hand, f)
	default:
		res.Mode = ModeNone
	}

	res.Status = res.Mode.Label()
	res.Announced = p.announcer.announce(res.Mode, p.cooldowns, f.At)
	return res
}

func (p *Presentation) tap(action control.Action, key string, now time.Time) {
	if !p.cooldowns.Allow(action, now) {
		return
	}
	if err := p.input.KeyTap(key); err != nil {
		p.log.Warn("key tap failed", zap.String("key", key), zap.Error(err))
	}
}

func (p *Presentation) point(hand *detector.Hand, f Frame) {
	fw, fh := frameSize(f, p.config.FrameWidth, p.config.FrameHeight)
	sw, sh := p.input.ScreenSize()
	x, y, ok := p.cursor.Map(hand.Points[detector.IndexTip], fw, fh, float64(sw), float64(sh))
	if !ok {
		return
	}
	if err := p.input.MoveTo(x, y); err != nil {
		p.log.Warn("move pointer failed", zap.Error(err))
	}
}

// ReleaseModifier is a no-op; this profile never holds a modifier.
func (p *Presentation) ReleaseModifier() {}

// Reset reopens the slide gates and forgets the pointer position.
func (p *Presentation) Reset() {
	p.cooldowns.Reset()
	p.cursor.Reset()
	p.announcer.reset()
}

// Close is a no-op; nothing is held between frames.
func (p *Presentation) Close() error { return nil }
