package gesture

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/audio"
	"github.com/ayusman/airinteract/internal/control"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/input"
	"github.com/ayusman/airinteract/internal/pose"
)

// Frame is one tracker observation. Hands may be empty.
type Frame struct {
	At     time.Time
	Width  int
	Height int
	Hands  []detector.Hand
}

// Result is the outcome of processing one frame.
type Result struct {
	At     time.Time `json:"at"`
	Mode   Mode      `json:"mode"`
	Status string    `json:"status"`

	// ModifierHeld is true while a zoom tick holds the modifier key. When it
	// is false the caller must call ReleaseModifier.
	ModifierHeld bool `json:"modifier_held"`

	// Announced is set on the frame that entered Mode, after the mode-enter
	// debounce.
	Announced bool `json:"announced"`

	Left  *pose.Vector `json:"left,omitempty"`
	Right *pose.Vector `json:"right,omitempty"`

	Level    int     `json:"level,omitempty"`
	Steering float64 `json:"steering,omitempty"`
}

// Interpreter turns frames into actions. Implementations are single-writer:
// Process, ReleaseModifier, Reset and Close must not be called concurrently.
type Interpreter interface {
	control.Resettable

	// Process evaluates one frame. Frames must arrive in capture order.
	Process(f Frame) Result

	// ReleaseModifier lifts a held modifier key. It is idempotent.
	ReleaseModifier()

	// Close force-releases every held button, key and modifier.
	Close() error
}

// Options carries the collaborators shared by every profile.
type Options struct {
	Input  input.Injector
	Mixer  audio.Mixer
	Log    *zap.Logger
	Strict bool
}

func (o Options) logger(name string) *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log.Named(name)
}

// Profile names an interpreter.
type Profile string

const (
	ProfileGeneral      Profile = "general"
	ProfilePresentation Profile = "presentation"
	ProfileRacing       Profile = "racing"
)

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(s); p {
	case ProfileGeneral, ProfilePresentation, ProfileRacing:
		return p, nil
	default:
		return "", fmt.Errorf("unknown profile %q (want general, presentation or racing)", s)
	}
}

// Settings groups the tunables of every profile.
type Settings struct {
	General      GeneralConfig      `mapstructure:"general" yaml:"general"`
	Presentation PresentationConfig `mapstructure:"presentation" yaml:"presentation"`
	Racing       RacingConfig       `mapstructure:"racing" yaml:"racing"`
}

// DefaultSettings returns the default tunables of every profile.
func DefaultSettings() Settings {
	return Settings{
		General:      DefaultGeneralConfig(),
		Presentation: DefaultPresentationConfig(),
		Racing:       DefaultRacingConfig(),
	}
}

// New builds the interpreter for profile.
func New(profile Profile, s Settings, opts Options) (Interpreter, error) {
	if opts.Input == nil {
		return nil, fmt.Errorf("gesture: input injector is required")
	}
	var (
		in  Interpreter
		err error
	)
	switch profile {
	case ProfileGeneral:
		in, err = NewGeneral(s.General, opts)
	case ProfilePresentation:
		in, err = NewPresentation(s.Presentation, opts)
	case ProfileRacing:
		in, err = NewRacing(s.Racing, opts)
	default:
		return nil, fmt.Errorf("gesture: unknown profile %q", profile)
	}
	if err != nil {
		return nil, fmt.Errorf("gesture: %s profile: %w", profile, err)
	}
	return in, nil
}

// clock derives the per-frame dt and flags gaps in the frame stream.
type clock struct {
	last   time.Time
	minDT  time.Duration
	maxGap time.Duration
}

// tick returns dt in seconds and whether the gap since the previous frame
// exceeded maxGap.
func (c *clock) tick(now time.Time) (float64, bool) {
	if c.last.IsZero() {
		c.last = now
		return c.minDT.Seconds(), false
	}
	gap := now.Sub(c.last)
	c.last = now
	dt := max(gap, c.minDT)
	return dt.Seconds(), c.maxGap > 0 && gap > c.maxGap
}

func (c *clock) reset() {
	c.last = time.Time{}
}

// byHandedness returns the first left and first right hand. Hands without
// a handedness label count as right.
func byHandedness(hands []detector.Hand) (left, right *detector.Hand) {
	for i := range hands {
		h := &hands[i]
		if h.Handedness == detector.Left {
			if left == nil {
				left = h
			}
		} else if right == nil {
			right = h
		}
	}
	return left, right
}

func frameSize(f Frame, fallbackW, fallbackH int) (float64, float64) {
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		w, h = fallbackW, fallbackH
	}
	return float64(w), float64(h)
}

func vectorOf(p pose.Pose) *pose.Vector {
	if !p.Present {
		return nil
	}
	v := p.Fingers
	return &v
}

// announcer tracks the announced mode. A new mode is announced once the
// mode-enter gate is open.
type announcer struct {
	current Mode
	log     *zap.Logger
}

func (a *announcer) announce(mode Mode, gates *control.Cooldowns, now time.Time) bool {
	if mode == a.current || !gates.Ready(control.ModeEnter, now) {
		return false
	}
	gates.Allow(control.ModeEnter, now)
	a.log.Info("mode entered", zap.Stringer("mode", mode), zap.Stringer("from", a.current))
	a.current = mode
	return true
}

func (a *announcer) reset() {
	a.current = ModeNone
}
