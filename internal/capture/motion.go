package capture

import (
	"image"

	"gocv.io/x/gocv"
)

const (
	blurKernel = 21
	diffLevel  = 25
)

// MotionDetector compares consecutive frames. It decides whether the capture
// loop runs at the idle or the active rate; it never feeds the gesture engine.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a detector reporting motion when more than
// threshold percent of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect reports whether frame differs from the previous one, and by how
// many percent of its pixels. The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	defer gray.CopyTo(&m.prev)
	if !m.primed || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, diffLevel, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.primed = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() error {
	m.primed = false
	return m.prev.Close()
}
