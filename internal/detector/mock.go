package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []Hand
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands ...Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Hand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Hand, len(m.hands))
	copy(out, m.hands)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Canonical hand geometry in a 640x480 frame: an upright left hand with the
// palm toward the camera. Right hands are its mirror image.
var (
	baseWrist    = Point{X: 320, Y: 380}
	baseThumbCMC = Point{X: 300, Y: 355}
	baseThumbMCP = Point{X: 270, Y: 330}
	fingerMCPs   = [4]Point{
		{X: 290, Y: 285}, // index
		{X: 320, Y: 280}, // middle
		{X: 350, Y: 285}, // ring
		{X: 375, Y: 295}, // pinky
	}
)

// PoseHand builds a hand whose digits are extended according to fingers
// (thumb, index, middle, ring, pinky).
func PoseHand(handedness Handedness, fingers [5]bool) Hand {
	h := Hand{Handedness: handedness, Score: 0.95}

	h.Points[Wrist] = baseWrist
	h.Points[ThumbCMC] = baseThumbCMC
	h.Points[ThumbMCP] = baseThumbMCP
	if fingers[0] {
		h.Points[ThumbIP] = Point{X: 245, Y: 315}
		h.Points[ThumbTip] = Point{X: 220, Y: 300}
	} else {
		h.Points[ThumbIP] = Point{X: 285, Y: 315}
		h.Points[ThumbTip] = Point{X: 300, Y: 320}
	}

	for f, mcp := range fingerMCPs {
		base := IndexMCP + 4*f
		h.Points[base] = mcp
		if fingers[f+1] {
			h.Points[base+1] = Point{X: mcp.X, Y: mcp.Y - 45}
			h.Points[base+2] = Point{X: mcp.X, Y: mcp.Y - 70}
			h.Points[base+3] = Point{X: mcp.X, Y: mcp.Y - 95}
		} else {
			h.Points[base+1] = Point{X: mcp.X, Y: mcp.Y - 30}
			h.Points[base+2] = Point{X: mcp.X + 3, Y: mcp.Y - 10}
			h.Points[base+3] = Point{X: mcp.X + 5, Y: mcp.Y}
		}
	}

	if handedness == Right {
		h = h.Mirrored(640)
	}
	return h
}

// OpenPalmLandmarks returns a hand with all five digits extended.
func OpenPalmLandmarks(handedness Handedness) Hand {
	return PoseHand(handedness, [5]bool{true, true, true, true, true})
}

// FistLandmarks returns a hand with every digit curled.
func FistLandmarks(handedness Handedness) Hand {
	return PoseHand(handedness, [5]bool{})
}

// PointingLandmarks returns a hand with only the index finger extended.
func PointingLandmarks(handedness Handedness) Hand {
	return PoseHand(handedness, [5]bool{false, true, false, false, false})
}

// LShapeLandmarks returns a hand with thumb and index extended.
func LShapeLandmarks(handedness Handedness) Hand {
	return PoseHand(handedness, [5]bool{true, true, false, false, false})
}

// ThumbsUpLandmarks returns a hand with only the thumb extended.
func ThumbsUpLandmarks(handedness Handedness) Hand {
	return PoseHand(handedness, [5]bool{true, false, false, false, false})
}

// Translated returns a copy of h moved by (dx, dy).
func (h Hand) Translated(dx, dy float64) Hand {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// Rotated returns a copy of h rotated by deg degrees clockwise (in image
// coordinates) around the wrist.
func (h Hand) Rotated(deg float64) Hand {
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	origin := h.Points[Wrist]
	for i := range h.Points {
		v := h.Points[i].Sub(origin)
		h.Points[i] = Point{
			X: origin.X + v.X*cos - v.Y*sin,
			Y: origin.Y + v.X*sin + v.Y*cos,
		}
	}
	return h
}

// Mirrored returns a copy of h reflected horizontally in a frame of the
// given width.
func (h Hand) Mirrored(width float64) Hand {
	for i := range h.Points {
		h.Points[i].X = width - h.Points[i].X
	}
	return h
}

// WithIndexTip returns a copy of h translated so the index tip lands on p.
func (h Hand) WithIndexTip(p Point) Hand {
	tip := h.Points[IndexTip]
	return h.Translated(p.X-tip.X, p.Y-tip.Y)
}
