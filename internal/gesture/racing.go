package gesture

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/control"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/input"
	"github.com/ayusman/airinteract/internal/pose"
)

// RacingKeys are the game keys driven by the racing profile.
type RacingKeys struct {
	Left  string `mapstructure:"left" yaml:"left"`
	Right string `mapstructure:"right" yaml:"right"`
	Gas   string `mapstructure:"gas" yaml:"gas"`
	Brake string `mapstructure:"brake" yaml:"brake"`
	Nitro string `mapstructure:"nitro" yaml:"nitro"`
}

// RacingConfig tunes the two-handed steering wheel profile.
type RacingConfig struct {
	// Smoothing is the weight kept from the previous steering angle.
	Smoothing float64 `mapstructure:"smoothing" yaml:"smoothing"`

	// SteerThreshold is the dead zone of the wheel, in degrees.
	SteerThreshold float64 `mapstructure:"steer_threshold" yaml:"steer_threshold"`

	// Fist is the relaxed-fist pattern of each hand.
	Fist string `mapstructure:"fist" yaml:"fist"`

	NitroCooldown time.Duration `mapstructure:"nitro_cooldown" yaml:"nitro_cooldown"`
	ModeEnter     time.Duration `mapstructure:"mode_enter" yaml:"mode_enter"`
	Keys          RacingKeys    `mapstructure:"keys" yaml:"keys"`
}

// DefaultRacingConfig returns the racing profile defaults.
func DefaultRacingConfig() RacingConfig {
	return RacingConfig{
		Smoothing:      0.75,
		SteerThreshold: 10,
		Fist:           "*00**",
		NitroCooldown:  1200 * time.Millisecond,
		ModeEnter:      100 * time.Millisecond,
		Keys: RacingKeys{
			Left:  "a",
			Right: "d",
			Gas:   "w",
			Brake: "s",
			Nitro: "space",
		},
	}
}

// Validate checks the smoothing weight and the fist pattern.
func (c RacingConfig) Validate() error {
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return fmt.Errorf("smoothing %v: want [0,1)", c.Smoothing)
	}
	if _, err := pose.ParsePattern(c.Fist); err != nil {
		return fmt.Errorf("fist: %w", err)
	}
	return nil
}

// Racing turns two hands into a steering wheel. The wrist-to-wrist line
// steers; thumbs and fists pick gas, brake, coast and nitro.
type Racing struct {
	config     RacingConfig
	fist       pose.Pattern
	classifier *pose.Classifier
	input      input.Injector
	log        *zap.Logger

	cooldowns *control.Cooldowns
	steering  float64
	held      map[string]bool
	announcer announcer
}

// NewRacing builds the racing profile.
func NewRacing(config RacingConfig, opts Options) (*Racing, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger("racing")
	return &Racing{
		config: config,
		fist:   pose.MustParsePattern(config.Fist),
		classifier: pose.NewClassifier(pose.Config{
			Rule:      pose.ThumbHandedness,
			ThumbBase: detector.ThumbIP,
		}),
		input: opts.Input,
		log:   log,
		cooldowns: control.NewCooldowns(map[control.Action]time.Duration{
			control.Nitro:     config.NitroCooldown,
			control.ModeEnter: config.ModeEnter,
		}),
		held:      make(map[string]bool),
		announcer: announcer{log: log},
	}, nil
}

// Process evaluates one frame. Fewer than two hands releases every key.
func (r *Racing) Process(f Frame) Result {
	res := Result{At: f.At}

	if len(f.Hands) < 2 {
		r.hold()
		res.Mode = ModeNoHand
		res.Status = "SHOW BOTH HANDS"
		res.Steering = r.steering
		res.Announced = r.announcer.announce(res.Mode, r.cooldowns, f.At)
		return res
	}

	// Hands are labelled by position: the one further left in the frame
	// holds the left of the wheel.
	leftHand, rightHand := f.Hands[0], f.Hands[1]
	if leftHand.Points[detector.Wrist].X > rightHand.Points[detector.Wrist].X {
		leftHand, rightHand = rightHand, leftHand
	}
	leftHand.Handedness = detector.Left
	rightHand.Handedness = detector.Right

	left := r.classifier.Classify(&leftHand)
	right := r.classifier.Classify(&rightHand)
	res.Left, res.Right = vectorOf(left), vectorOf(right)

	wl, wr := leftHand.Points[detector.Wrist], rightHand.Points[detector.Wrist]
	angle := math.Atan2(wr.Y-wl.Y, wr.X-wl.X) * 180 / math.Pi
	r.steering = r.config.Smoothing*r.steering + (1-r.config.Smoothing)*angle
	res.Steering = r.steering

	var keys []string
	switch {
	case r.steering < -r.config.SteerThreshold:
		keys = append(keys, r.config.Keys.Left)
	case r.steering > r.config.SteerThreshold:
		keys = append(keys, r.config.Keys.Right)
	}

	thumbL, thumbR := left.Fingers[pose.Thumb], right.Fingers[pose.Thumb]
	fistL, fistR := r.fist.MatchPose(left), r.fist.MatchPose(right)

	switch {
	case thumbL && thumbR:
		res.Mode = ModeNitro
		if r.cooldowns.Allow(control.Nitro, f.At) {
			if err := r.input.KeyTap(r.config.Keys.Nitro); err != nil {
				r.log.Warn("nitro tap failed", zap.Error(err))
			}
		}
	case thumbL && fistR:
		res.Mode = ModeBrake
		keys = append(keys, r.config.Keys.Brake)
	case thumbR && fistL:
		res.Mode = ModeCoast
	case fistL && fistR:
		res.Mode = ModeGas
		keys = append(keys, r.config.Keys.Gas)
	default:
		res.Mode = ModeSteer
	}

	r.hold(keys...)
	res.Status = res.Mode.Label()
	res.Announced = r.announcer.announce(res.Mode, r.cooldowns, f.At)
	return res
}

// hold makes keys the exact set of held keys, releasing the rest.
func (r *Racing) hold(keys ...string) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	for _, k := range sortedKeys(r.held) {
		if want[k] {
			continue
		}
		if err := r.input.KeyUp(k); err != nil {
			r.log.Warn("key release failed", zap.String("key", k), zap.Error(err))
			continue
		}
		delete(r.held, k)
	}
	for _, k := range keys {
		if r.held[k] {
			continue
		}
		if err := r.input.KeyDown(k); err != nil {
			r.log.Warn("key press failed", zap.String("key", k), zap.Error(err))
			continue
		}
		r.held[k] = true
	}
}

// Held returns the keys currently held down, sorted.
func (r *Racing) Held() []string {
	return sortedKeys(r.held)
}

// Steering returns the smoothed wheel angle in degrees.
func (r *Racing) Steering() float64 { return r.steering }

// ReleaseModifier is a no-op; racing keys are released by Process and Close.
func (r *Racing) ReleaseModifier() {}

// Reset releases every key and centres the wheel.
func (r *Racing) Reset() {
	r.hold()
	r.steering = 0
	r.cooldowns.Reset()
	r.announcer.reset()
}

// Close releases every held key.
func (r *Racing) Close() error {
	var err error
	for _, k := range sortedKeys(r.held) {
		if e := r.input.KeyUp(k); e != nil {
			err = multierr.Append(err, fmt.Errorf("release %s: %w", k, e))
			continue
		}
		delete(r.held, k)
	}
	return err
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
