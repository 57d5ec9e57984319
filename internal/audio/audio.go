// Package audio is the system volume boundary.
package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/plugin"
)

// ErrLevelRange is returned for levels outside [0,100].
var ErrLevelRange = errors.New("audio: level out of range")

// Mixer sets the output volume. Implementations may reject or clamp; the
// caller retries on a later frame.
type Mixer interface {
	SetLevel(percent int) error
}

// Plugin and action names used by PluginMixer.
const (
	PluginName     = "system-control"
	ActionSetLevel = "volume-set"
)

// Invoker is the part of plugin.Executor that PluginMixer uses.
type Invoker interface {
	Call(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// Finder is the part of plugin.Manager that PluginMixer uses.
type Finder interface {
	Lookup(name, action string) (*plugin.Plugin, error)
}

// PluginMixer sets the volume through the system-control plugin.
type PluginMixer struct {
	plugins Finder
	exec    Invoker
	session string
	log     *zap.Logger
}

// NewPluginMixer creates a mixer backed by plugins.
func NewPluginMixer(plugins Finder, exec Invoker, session string, log *zap.Logger) *PluginMixer {
	if log == nil {
		log = zap.NewNop()
	}
	return &PluginMixer{plugins: plugins, exec: exec, session: session, log: log}
}

// SetLevel runs the volume-set action with {"level": percent}.
func (m *PluginMixer) SetLevel(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%d: %w", percent, ErrLevelRange)
	}

	p, err := m.plugins.Lookup(PluginName, ActionSetLevel)
	if err != nil {
		return err
	}

	params, err := json.Marshal(map[string]int{"level": percent})
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	if _, err := m.exec.Call(context.Background(), p, &plugin.Request{
		Action:  ActionSetLevel,
		Session: m.session,
		Params:  params,
	}); err != nil {
		return fmt.Errorf("set volume %d: %w", percent, err)
	}

	m.log.Debug("volume set", zap.Int("level", percent))
	return nil
}

// Recorder is a Mixer that records levels. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	levels []int
	err    error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetError makes SetLevel fail with err until cleared with nil.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) SetLevel(percent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%d: %w", percent, ErrLevelRange)
	}
	r.levels = append(r.levels, percent)
	return nil
}

// Levels returns every accepted level in order.
func (r *Recorder) Levels() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.levels))
	copy(out, r.levels)
	return out
}
