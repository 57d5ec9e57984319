package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airinteract/internal/capture"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/gesture"
)

// maxReadFailures is how many consecutive failed reads trigger a reconnect.
const maxReadFailures = 3

// Runner is the capture loop: it reads frames, detects hands and steps the
// session, pacing itself between the idle and active rates.
type Runner struct {
	session  *Session
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	pacer    *capture.Pacer
	config   capture.Config
	log      *zap.Logger
	now      func() time.Time

	failures int
}

// NewRunner creates the capture loop. motion may be nil, in which case only
// detected hands keep the loop at the active rate.
func NewRunner(session *Session, camera capture.Camera, motion *capture.MotionDetector,
	det detector.Detector, config capture.Config, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		session:  session,
		camera:   camera,
		motion:   motion,
		detector: det,
		pacer:    capture.NewPacer(config),
		config:   config,
		log:      log.Named("runner"),
		now:      time.Now,
	}
}

// Run captures frames until ctx is done. It returns ctx's error only when
// the camera never opened.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	defer r.camera.Close()

	interval := r.pacer.Interval()
	r.camera.SetFPS(r.pacer.FPS())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !r.session.Enabled() {
			continue
		}

		next, err := r.tick()
		if err != nil {
			r.log.Warn("camera lost, reconnecting", zap.Error(err))
			r.session.Step(gesture.Frame{At: r.now(), Width: r.config.Width, Height: r.config.Height})
			if err := r.reopen(ctx); err != nil {
				return nil
			}
			next = r.pacer.Interval()
		}

		if next != interval {
			interval = next
			ticker.Reset(interval)
			r.camera.SetFPS(r.pacer.FPS())
			r.log.Debug("capture rate changed", zap.Int("fps", r.pacer.FPS()), zap.Bool("active", r.pacer.Active()))
		}
	}
}

// tick processes one frame and returns the next interval. It returns an
// error when the camera needs to be reopened.
func (r *Runner) tick() (time.Duration, error) {
	frame, err := r.camera.ReadFrame()
	if err != nil {
		r.failures++
		if errors.Is(err, capture.ErrCameraNotOpen) || r.failures >= maxReadFailures {
			return 0, err
		}
		r.log.Debug("frame read failed", zap.Error(err), zap.Int("failures", r.failures))
		return r.pacer.Interval(), nil
	}
	r.failures = 0
	defer frame.Close()

	now := r.now()
	motion := r.detectMotion(frame)

	hands, err := r.detector.Detect(frame)
	if err != nil {
		// The engine treats a failed detection as an empty frame so that
		// held buttons and keys are released.
		r.log.Warn("hand detection failed", zap.Error(err))
		hands = nil
	}

	r.session.Step(gesture.Frame{
		At:     now,
		Width:  frame.Cols(),
		Height: frame.Rows(),
		Hands:  hands,
	})
	return r.pacer.Observe(now, motion, len(hands) > 0), nil
}

func (r *Runner) detectMotion(frame *gocv.Mat) bool {
	if r.motion == nil {
		return false
	}
	moved, _ := r.motion.Detect(frame)
	return moved
}

// open opens the camera, retrying every config.Reconnect until ctx is done.
func (r *Runner) open(ctx context.Context) error {
	for {
		err := r.camera.Open()
		if err == nil {
			r.failures = 0
			return nil
		}
		r.log.Warn("camera open failed", zap.Error(err), zap.Duration("retry_in", r.config.Reconnect))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.config.Reconnect):
		}
	}
}

func (r *Runner) reopen(ctx context.Context) error {
	if err := r.camera.Close(); err != nil {
		r.log.Debug("camera close failed", zap.Error(err))
	}
	if r.motion != nil {
		r.motion.Reset()
	}
	r.pacer.Reset()
	return r.open(ctx)
}
