package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/gesture"
)

// PausedStatus is reported while processing is disabled.
const PausedStatus = "PAUSED"

// Observer receives announced results. It runs on the capture goroutine and
// must not block.
type Observer func(gesture.Result)

// Session owns one interpreter and is its only caller. Step runs on the
// capture goroutine; the other methods may be called from anywhere.
type Session struct {
	id     string
	interp gesture.Interpreter
	log    *zap.Logger

	mu        sync.Mutex
	enabled   bool
	closed    bool
	released  bool
	latest    gesture.Result
	observers []Observer
}

// NewSession wraps interp. The session starts enabled.
func NewSession(id string, interp gesture.Interpreter, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		id:      id,
		interp:  interp,
		log:     log.Named("session"),
		enabled: true,
		latest:  gesture.Result{Mode: gesture.ModeNone, Status: gesture.ModeNone.Label()},
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Step processes one frame. A disabled or closed session returns the paused
// result without touching the interpreter.
func (s *Session) Step(f gesture.Frame) gesture.Result {
	s.mu.Lock()
	if !s.enabled || s.closed {
		res := paused(f)
		s.mu.Unlock()
		return res
	}

	res := s.interp.Process(f)
	if !res.ModifierHeld {
		s.interp.ReleaseModifier()
	}
	s.latest = res
	observers := s.observers
	s.mu.Unlock()

	if res.Announced {
		notify(observers, res)
	}
	return res
}

func paused(f gesture.Frame) gesture.Result {
	return gesture.Result{At: f.At, Mode: gesture.ModeNone, Status: PausedStatus}
}

func notify(observers []Observer, res gesture.Result) {
	for _, fn := range observers {
		fn(res)
	}
}

// SetEnabled pauses or resumes processing. Pausing resets the interpreter,
// which releases everything it holds.
func (s *Session) SetEnabled(enabled bool) {
	s.mu.Lock()
	if s.enabled == enabled || s.closed {
		s.mu.Unlock()
		return
	}
	s.enabled = enabled

	var res gesture.Result
	if enabled {
		res = gesture.Result{Mode: gesture.ModeNone, Status: gesture.ModeNone.Label(), Announced: true}
	} else {
		s.interp.Reset()
		res = paused(gesture.Frame{})
		res.Announced = true
	}
	s.latest = res
	observers := s.observers
	s.mu.Unlock()

	s.log.Info("processing toggled", zap.Bool("enabled", enabled))
	notify(observers, res)
}

// Enabled reports whether frames are processed.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && !s.closed
}

// Latest returns the most recent result.
func (s *Session) Latest() gesture.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Subscribe registers fn for announced results.
func (s *Session) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers[:len(s.observers):len(s.observers)], fn)
}

// Close force-releases everything the interpreter holds and ignores later
// steps. After a failed release Close may be called again to retry.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.released {
		return nil
	}
	if err := s.interp.Close(); err != nil {
		return fmt.Errorf("session %s: release: %w", s.id, err)
	}
	s.released = true
	s.log.Info("session closed")
	return nil
}
