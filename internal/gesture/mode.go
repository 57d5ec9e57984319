// Package gesture interprets classified hands frame by frame and drives the
// input and audio collaborators. Each control profile (general,
// presentation, racing) is an Interpreter.
package gesture

import "fmt"

// Mode is the single active interpretation of a frame.
type Mode int

// General profile modes, in priority order after ModeNone.
const (
	ModeNone Mode = iota
	ModeDrag
	ModeCursor
	ModePinchZoom
	ModeScroll
	ModeScrollPause
	ModeVolume
	ModeDoubleClick
	ModeRightClick
	ModeLeftClick

	// Presentation profile.
	ModeNoHand
	ModePrevSlide
	ModeNextSlide
	ModePointer

	// Racing profile.
	ModeSteer
	ModeNitro
	ModeBrake
	ModeCoast
	ModeGas

	numModes
)

var modeNames = [numModes]string{
	ModeNone:        "none",
	ModeDrag:        "drag",
	ModeCursor:      "cursor",
	ModePinchZoom:   "pinch_zoom",
	ModeScroll:      "scroll",
	ModeScrollPause: "scroll_pause",
	ModeVolume:      "volume",
	ModeDoubleClick: "double_click",
	ModeRightClick:  "right_click",
	ModeLeftClick:   "left_click",
	ModeNoHand:      "no_hand",
	ModePrevSlide:   "prev_slide",
	ModeNextSlide:   "next_slide",
	ModePointer:     "pointer",
	ModeSteer:       "steer",
	ModeNitro:       "nitro",
	ModeBrake:       "brake",
	ModeCoast:       "coast",
	ModeGas:         "gas",
}

// Status labels shown to the user.
var modeLabels = [numModes]string{
	ModeNone:        "SHOW HAND",
	ModeDrag:        "DRAG",
	ModeCursor:      "CURSOR",
	ModePinchZoom:   "PINCH ZOOM",
	ModeScroll:      "SCROLL",
	ModeScrollPause: "FIST → REPOSITION",
	ModeVolume:      "VOLUME",
	ModeDoubleClick: "DOUBLE CLICK",
	ModeRightClick:  "RIGHT CLICK",
	ModeLeftClick:   "LEFT CLICK",
	ModeNoHand:      "NO HAND",
	ModePrevSlide:   "PREV SLIDE",
	ModeNextSlide:   "NEXT SLIDE",
	ModePointer:     "CURSOR",
	ModeSteer:       "???",
	ModeNitro:       "NITRO",
	ModeBrake:       "BRAKE",
	ModeCoast:       "COASTING",
	ModeGas:         "GAS",
}

func (m Mode) String() string {
	if m < 0 || m >= numModes {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Label returns the user-facing status text for m.
func (m Mode) Label() string {
	if m < 0 || m >= numModes {
		return m.String()
	}
	return modeLabels[m]
}

// MarshalText encodes m by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	for i, name := range modeNames {
		if name == string(b) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", b)
}
