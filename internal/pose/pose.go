// Package pose turns one hand's landmarks into a digit extension vector.
package pose

import (
	"strings"

	"github.com/ayusman/airinteract/internal/detector"
)

// Digit indices into a Vector.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
	NumDigits
)

// Vector records which digits are extended: thumb, index, middle, ring, pinky.
type Vector [NumDigits]bool

// V builds a Vector from 0/1 flags, e.g. V(0, 1, 0, 0, 0).
func V(thumb, index, middle, ring, pinky int) Vector {
	return Vector{thumb != 0, index != 0, middle != 0, ring != 0, pinky != 0}
}

// Count returns the number of extended digits.
func (v Vector) Count() int {
	n := 0
	for _, up := range v {
		if up {
			n++
		}
	}
	return n
}

// String renders v as five 0/1 characters.
func (v Vector) String() string {
	var b strings.Builder
	for _, up := range v {
		if up {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Pose is the classifier output for one hand.
type Pose struct {
	Fingers Vector `json:"fingers"`

	// BackFacing is true when the back of the hand faces the camera.
	BackFacing bool `json:"back_facing"`

	// Present is false when there was no hand to classify. An absent hand
	// has an all-zero vector and must not be read as a fist.
	Present bool `json:"present"`
}

// ThumbRule selects how the thumb extension test picks its direction.
type ThumbRule int

const (
	// ThumbOrientation flips the x test by palm orientation and handedness.
	ThumbOrientation ThumbRule = iota

	// ThumbHandedness flips the x test by handedness only.
	ThumbHandedness

	// ThumbFixed always treats tip-left-of-base as extended.
	ThumbFixed
)

// Config tunes the classifier for a control profile.
type Config struct {
	Rule ThumbRule

	// ThumbBase is the landmark the thumb tip is compared against,
	// detector.ThumbMCP or detector.ThumbIP.
	ThumbBase int

	// Margin is how far (pixels) a fingertip must sit above its PIP joint.
	Margin float64
}

// Classifier converts landmarks into poses. It holds no per-frame state.
type Classifier struct {
	config Config
}

// NewClassifier returns a classifier for config. A zero ThumbBase means
// the thumb MCP.
func NewClassifier(config Config) *Classifier {
	if config.ThumbBase == 0 {
		config.ThumbBase = detector.ThumbMCP
	}
	return &Classifier{config: config}
}

// Classify returns the pose of hand. A nil hand yields an absent pose.
func (c *Classifier) Classify(hand *detector.Hand) Pose {
	if hand == nil {
		return Pose{}
	}

	right := hand.Handedness == detector.Right
	p := Pose{Present: true}

	// In raw image coordinates a right hand's cross product has the opposite
	// sign of a left hand's in the same physical orientation.
	wrist := hand.Points[detector.Wrist]
	middle := hand.Points[detector.MiddleMCP]
	index := hand.Points[detector.IndexMCP]
	p.BackFacing = (cross(middle.Sub(wrist), index.Sub(middle)) > 0) != right

	tip := hand.Points[detector.ThumbTip].X
	base := hand.Points[c.config.ThumbBase].X
	up := tip < base
	switch c.config.Rule {
	case ThumbOrientation:
		up = up != p.BackFacing != right
	case ThumbHandedness:
		up = up != right
	}
	p.Fingers[Thumb] = up

	for d := Index; d < NumDigits; d++ {
		tipIdx := detector.IndexTip + 4*(d-Index)
		p.Fingers[d] = hand.Points[tipIdx].Y < hand.Points[tipIdx-2].Y-c.config.Margin
	}

	return p
}

func cross(a, b detector.Point) float64 {
	return a.X*b.Y - a.Y*b.X
}
