// Package input is the OS input-injection boundary: pointer, buttons,
// scroll wheel and keyboard.
package input

import "errors"

// ErrUnsupported is returned by injectors that cannot perform an operation
// on the current platform.
var ErrUnsupported = errors.New("input: operation not supported")

// Button identifies a pointer button.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Axis identifies a scroll axis.
type Axis int

const (
	Vertical Axis = iota
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Injector synthesizes input events. Positive scroll amounts scroll up
// (vertical) or right (horizontal).
type Injector interface {
	MoveTo(x, y int) error
	ButtonDown(b Button) error
	ButtonUp(b Button) error
	Click(b Button) error
	DoubleClick() error
	Scroll(amount int, axis Axis) error
	KeyDown(key string) error
	KeyUp(key string) error
	KeyTap(key string) error
	ScreenSize() (width, height int)
}
