package input

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Robot injects input through robotgo. It remembers held buttons and keys
// so Close can release anything left down.
type Robot struct {
	log *zap.Logger

	mu      sync.Mutex
	buttons map[Button]bool
	keys    map[string]bool
}

// NewRobot creates a Robot injector.
func NewRobot(log *zap.Logger) *Robot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Robot{
		log:     log,
		buttons: make(map[Button]bool),
		keys:    make(map[string]bool),
	}
}

func (r *Robot) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (r *Robot) ButtonDown(b Button) error {
	if err := robotgo.Toggle(string(b)); err != nil {
		return fmt.Errorf("%s button down: %w", b, err)
	}
	r.mu.Lock()
	r.buttons[b] = true
	r.mu.Unlock()
	return nil
}

func (r *Robot) ButtonUp(b Button) error {
	if err := robotgo.Toggle(string(b), "up"); err != nil {
		return fmt.Errorf("%s button up: %w", b, err)
	}
	r.mu.Lock()
	delete(r.buttons, b)
	r.mu.Unlock()
	return nil
}

func (r *Robot) Click(b Button) error {
	robotgo.Click(string(b))
	return nil
}

func (r *Robot) DoubleClick() error {
	robotgo.Click(string(ButtonLeft), true)
	return nil
}

func (r *Robot) Scroll(amount int, axis Axis) error {
	if amount == 0 {
		return nil
	}
	if axis == Horizontal {
		robotgo.Scroll(amount, 0)
	} else {
		robotgo.Scroll(0, amount)
	}
	return nil
}

func (r *Robot) KeyDown(key string) error {
	if err := robotgo.KeyToggle(key, "down"); err != nil {
		return fmt.Errorf("key %s down: %w", key, err)
	}
	r.mu.Lock()
	r.keys[key] = true
	r.mu.Unlock()
	return nil
}

func (r *Robot) KeyUp(key string) error {
	if err := robotgo.KeyToggle(key, "up"); err != nil {
		return fmt.Errorf("key %s up: %w", key, err)
	}
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
	return nil
}

func (r *Robot) KeyTap(key string) error {
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("key %s tap: %w", key, err)
	}
	return nil
}

func (r *Robot) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// Close releases every button and key still held.
func (r *Robot) Close() error {
	r.mu.Lock()
	buttons := make([]Button, 0, len(r.buttons))
	for b := range r.buttons {
		buttons = append(buttons, b)
	}
	keys := make([]string, 0, len(r.keys))
	for k := range r.keys {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	var err error
	for _, b := range buttons {
		r.log.Warn("releasing held button", zap.String("button", string(b)))
		err = multierr.Append(err, r.ButtonUp(b))
	}
	for _, k := range keys {
		r.log.Warn("releasing held key", zap.String("key", k))
		err = multierr.Append(err, r.KeyUp(k))
	}
	return err
}
