package control

import "go.uber.org/zap"

// Button is the subset of pointer control the drag machine needs.
type Button interface {
	ButtonDown() error
	ButtonUp() error
}

// Drag is the Idle/Dragging state machine. Every press it emits is matched
// by exactly one release before the next press.
type Drag struct {
	button    Button
	invariant Invariant
	log       *zap.Logger

	active bool
	downs  int
	ups    int
}

// NewDrag returns an idle drag machine driving button.
func NewDrag(button Button, invariant Invariant, log *zap.Logger) *Drag {
	if log == nil {
		log = zap.NewNop()
	}
	return &Drag{button: button, invariant: invariant, log: log}
}

// Active reports whether the button is held.
func (d *Drag) Active() bool { return d.active }

// Press moves Idle to Dragging, emitting one button-down. Pressing while
// already dragging is a no-op. A failed press leaves the machine idle.
func (d *Drag) Press() error {
	if d.active {
		return nil
	}
	if !d.invariant.Check(d.downs == d.ups, "button down while a press is unmatched",
		zap.Int("downs", d.downs), zap.Int("ups", d.ups)) {
		return nil
	}
	if err := d.button.ButtonDown(); err != nil {
		return err
	}
	d.downs++
	d.active = true
	d.log.Debug("drag started")
	return nil
}

// Release moves Dragging to Idle, emitting one button-up. A failed release
// keeps the machine in Dragging so the next call retries it.
func (d *Drag) Release() error {
	if !d.active {
		return nil
	}
	if err := d.button.ButtonUp(); err != nil {
		return err
	}
	d.ups++
	d.active = false
	d.log.Debug("drag released")
	return nil
}

// Counts returns how many presses and releases were emitted.
func (d *Drag) Counts() (downs, ups int) {
	return d.downs, d.ups
}

// Reset releases a held button. The release error is logged, not returned.
func (d *Drag) Reset() {
	if err := d.Release(); err != nil {
		d.log.Warn("drag release failed", zap.Error(err))
	}
}
