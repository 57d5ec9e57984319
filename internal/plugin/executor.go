package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTimeout is returned when a plugin does not answer in time.
	ErrTimeout = errors.New("plugin timed out")

	// ErrRejected wraps the error text of an unsuccessful response.
	ErrRejected = errors.New("plugin rejected request")
)

// waitDelay bounds how long a killed plugin's children may hold its pipes.
const waitDelay = 500 * time.Millisecond

// Executor runs one plugin process per request.
type Executor struct {
	timeout time.Duration
	log     *zap.Logger
}

// NewExecutor creates an Executor that kills plugins after timeout.
func NewExecutor(timeout time.Duration, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{timeout: timeout, log: log}
}

// Execute runs plugin with req on stdin and decodes its stdout.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Stdin = bytes.NewReader(reqJSON)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	e.log.Debug("plugin finished",
		zap.String("plugin", plugin.Manifest.Name),
		zap.String("action", req.Action),
		zap.Duration("took", time.Since(start)),
	)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s after %s: %w", plugin.Manifest.Name, e.timeout, ErrTimeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("run %s: %w, stderr: %s", plugin.Manifest.Name, err, s)
		}
		return nil, fmt.Errorf("run %s: %w", plugin.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w, stdout: %s", plugin.Manifest.Name, err, stdout.String())
	}
	return &resp, nil
}

// Call is Execute that also turns an unsuccessful response into an error.
func (e *Executor) Call(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	resp, err := e.Execute(ctx, plugin, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s %s: %w: %s", plugin.Manifest.Name, req.Action, ErrRejected, resp.Error)
	}
	return resp, nil
}
