// Package capture provides camera capture and frame pacing using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when reading from a closed camera.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrReadFailed is returned when the device yields no frame.
	ErrReadFailed = errors.New("failed to read frame from camera")

	// ErrEmptyFrame is returned when the device yields an empty frame.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Config configures the camera and the capture pacing.
type Config struct {
	// Index is the video device index.
	Index int `mapstructure:"index" yaml:"index"`

	// Width and Height are the frame size handed to the detector.
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`

	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool `mapstructure:"mirror" yaml:"mirror"`

	// IdleFPS is used while nothing moves, ActiveFPS while a hand or motion
	// was seen within IdleTimeout.
	IdleFPS     int           `mapstructure:"idle_fps" yaml:"idle_fps"`
	ActiveFPS   int           `mapstructure:"active_fps" yaml:"active_fps"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64 `mapstructure:"motion_threshold" yaml:"motion_threshold"`

	// Reconnect is the delay before reopening a failed camera.
	Reconnect time.Duration `mapstructure:"reconnect" yaml:"reconnect"`
}

// DefaultConfig returns the capture defaults: device 0 at 640x480, mirrored,
// 5 FPS idle and 15 FPS active.
func DefaultConfig() Config {
	return Config{
		Index:           0,
		Width:           640,
		Height:          480,
		Mirror:          true,
		IdleFPS:         5,
		ActiveFPS:       15,
		IdleTimeout:     2 * time.Second,
		MotionThreshold: 1.0,
		Reconnect:       time.Second,
	}
}

// Validate checks sizes and rates.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame size %dx%d: must be positive", c.Width, c.Height)
	}
	if c.IdleFPS <= 0 || c.ActiveFPS <= 0 {
		return fmt.Errorf("fps idle=%d active=%d: must be positive", c.IdleFPS, c.ActiveFPS)
	}
	if c.IdleTimeout <= 0 || c.Reconnect <= 0 {
		return fmt.Errorf("idle timeout and reconnect delay must be positive")
	}
	if c.MotionThreshold <= 0 {
		return fmt.Errorf("motion threshold %v: must be positive", c.MotionThreshold)
	}
	return nil
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error

	// ReadFrame returns the next frame. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)

	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

type cameraImpl struct {
	config  Config
	log     *zap.Logger
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a Camera for config.Index. It starts at the idle rate.
func NewCamera(config Config, log *zap.Logger) Camera {
	if log == nil {
		log = zap.NewNop()
	}
	return &cameraImpl{
		config: config,
		log:    log.Named("camera"),
		fps:    config.IdleFPS,
	}
}

func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.config.Index)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.Index, err)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true
	c.log.Info("camera opened", zap.Int("index", c.config.Index), zap.Int("fps", c.fps))
	return nil
}

func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame reads one frame, scaled to the configured size and mirrored
// when configured.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrReadFailed
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	prepare(&mat, c.config)
	return &mat, nil
}

// prepare resizes and mirrors mat in place.
func prepare(mat *gocv.Mat, config Config) {
	if mat.Cols() != config.Width || mat.Rows() != config.Height {
		gocv.Resize(*mat, mat, image.Pt(config.Width, config.Height), 0, 0, gocv.InterpolationLinear)
	}
	if config.Mirror {
		gocv.Flip(*mat, mat, 1)
	}
}

// SetFPS changes the capture rate. Values <= 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if fps == c.fps {
		return
	}
	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
