// Package app wires the capture loop, the gesture session and the OS
// collaborators together.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/audio"
	"github.com/ayusman/airinteract/internal/capture"
	"github.com/ayusman/airinteract/internal/config"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/gesture"
	"github.com/ayusman/airinteract/internal/input"
	"github.com/ayusman/airinteract/internal/plugin"
)

// Deps overrides collaborators that New would otherwise build from the
// configuration. Zero fields are built.
type Deps struct {
	Camera   capture.Camera
	Detector detector.Detector
	Input    input.Injector
	Mixer    audio.Mixer
}

// App is one running AirInteract instance.
type App struct {
	config  *config.Config
	log     *zap.Logger
	session *Session
	runner  *Runner
	motion  *capture.MotionDetector
	plugins *plugin.Manager
	closers []io.Closer
}

// New builds an App for cfg.
func New(cfg *config.Config, log *zap.Logger, deps Deps) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	profile, err := gesture.ParseProfile(cfg.Mode)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log = log.With(zap.String("session_id", id))
	a := &App{config: cfg, log: log}

	in := deps.Input
	if in == nil {
		robot := input.NewRobot(log)
		a.closers = append(a.closers, robot)
		in = robot
	}

	mixer := deps.Mixer
	if mixer == nil {
		a.plugins = plugin.NewManager(cfg.Plugins.Dir, log)
		if err := a.plugins.Discover(); err != nil {
			log.Warn("plugin discovery failed", zap.Error(err))
		}
		mixer = audio.NewPluginMixer(a.plugins, plugin.NewExecutor(cfg.Plugins.Timeout, log), id, log)
	}

	interp, err := gesture.New(profile, cfg.Gesture, gesture.Options{
		Input:  in,
		Mixer:  mixer,
		Log:    log,
		Strict: cfg.Strict,
	})
	if err != nil {
		return nil, err
	}
	a.session = NewSession(id, interp, log)

	camera := deps.Camera
	if camera == nil {
		camera = capture.NewCamera(cfg.Camera, log)
	}

	det := deps.Detector
	if det == nil {
		if mp, err := detector.NewMediaPipeDetector(cfg.Detector, log); err == nil {
			det = mp
			log.Info("using MediaPipe hand detection")
		} else {
			log.Warn("MediaPipe not available, no hands will be detected", zap.Error(err))
			det = detector.NewMockDetector()
		}
	}
	a.closers = append(a.closers, det)

	a.motion = capture.NewMotionDetector(cfg.Camera.MotionThreshold)
	a.runner = NewRunner(a.session, camera, a.motion, det, cfg.Camera, log)

	log.Info("session created", zap.String("mode", string(profile)))
	return a, nil
}

// Session returns the gesture session.
func (a *App) Session() *Session { return a.session }

// Plugins returns the plugin manager, or nil when a mixer was injected.
func (a *App) Plugins() *plugin.Manager { return a.plugins }

// Run runs the capture loop until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.runner.Run(ctx); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	return nil
}

// Close force-releases every held input and frees the collaborators. It
// must run after Run has returned.
func (a *App) Close() error {
	err := a.session.Close()
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}
	return multierr.Append(err, a.motion.Close())
}
