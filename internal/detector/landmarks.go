// Package detector provides the hand tracking boundary: landmark types, the
// Detector interface and the adapters that produce hands from camera frames.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness is the left/right label the tracker assigns to a hand.
type Handedness string

const (
	Left    Handedness = "Left"
	Right   Handedness = "Right"
	Unknown Handedness = "Unknown"
)

// ParseHandedness maps a tracker label to a Handedness, defaulting to Unknown.
func ParseHandedness(s string) Handedness {
	switch s {
	case "Left", "left":
		return Left
	case "Right", "right":
		return Right
	default:
		return Unknown
	}
}

// Point is a landmark position in pixel space of the captured frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Hand is one tracked hand for a single frame.
type Hand struct {
	Points     [NumLandmarks]Point `json:"points"`
	Handedness Handedness          `json:"handedness"`
	Score      float64             `json:"score"`
}

// Landmark returns the point at index i.
func (h *Hand) Landmark(i int) Point {
	return h.Points[i]
}
