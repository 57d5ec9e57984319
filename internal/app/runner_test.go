package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gocv.io/x/gocv"

	"github.com/ayusman/airinteract/internal/capture"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/gesture"
)

func fastCapture() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.IdleFPS = 200
	cfg.ActiveFPS = 400
	cfg.IdleTimeout = 50 * time.Millisecond
	cfg.Reconnect = 5 * time.Millisecond
	return cfg
}

type loop struct {
	cam    *capture.MockCamera
	det    *detector.MockDetector
	fake   *fakeInterpreter
	runner *Runner
	frame  gocv.Mat
}

func newLoop(t *testing.T) *loop {
	t.Helper()
	l := &loop{
		det:   detector.NewMockDetector(),
		fake:  &fakeInterpreter{},
		frame: gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3),
	}
	t.Cleanup(func() { l.frame.Close() })

	l.cam = capture.NewMockCamera([]*gocv.Mat{&l.frame}, true)
	l.runner = NewRunner(NewSession("s1", l.fake, nil), l.cam, nil, l.det, fastCapture(), nil)
	return l
}

// start runs the loop and returns a stop function that waits for it.
func (l *loop) start(t *testing.T) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.runner.Run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("runner did not stop")
			return nil
		}
	}
}

func (l *loop) processed() int {
	l.fake.mu.Lock()
	defer l.fake.mu.Unlock()
	return l.fake.processed
}

func TestRunner_StepsFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop(t)
	l.det.SetHands(handOf(detector.Right, "01000"))
	stop := l.start(t)

	require.Eventually(t, func() bool { return l.processed() >= 5 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	assert.GreaterOrEqual(t, l.det.Calls(), 5)
	assert.False(t, l.cam.IsOpen(), "the camera is closed on exit")
	assert.True(t, l.runner.pacer.Active(), "hands keep the loop active")
	assert.Equal(t, 400, l.cam.FPS())
}

func TestRunner_DetectorErrorIsEmptyFrame(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop(t)
	l.det.SetHands(handOf(detector.Right, "01000"))
	l.det.SetError(errors.New("service crashed"))
	l.fake.set(gesture.Result{Mode: gesture.ModeNone, Status: "SHOW HAND"})
	stop := l.start(t)

	require.Eventually(t, func() bool { return l.processed() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())
	assert.Equal(t, 0, l.fake.lastHands, "a failed detection steps an empty frame")
	assert.Equal(t, "SHOW HAND", l.runner.session.Latest().Status)
}

func TestRunner_Reconnects(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop(t)
	l.cam.FailReads(maxReadFailures, capture.ErrReadFailed)
	stop := l.start(t)

	require.Eventually(t, func() bool { return l.cam.Opens() >= 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return l.processed() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())
}

func TestRunner_OpenRetry(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop(t)
	l.cam.FailOpen(errors.New("no device"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := l.runner.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, l.processed())
}

func TestRunner_PausedSkipsFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop(t)
	l.runner.session.SetEnabled(false)
	stop := l.start(t)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, stop())
	assert.Equal(t, 0, l.det.Calls())
	assert.Equal(t, 0, l.processed())
}
