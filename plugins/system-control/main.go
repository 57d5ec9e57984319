// Command system-control is the plugin behind audio.PluginMixer. It sets
// and mutes the system output volume with osascript on macOS and pactl on
// Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/ayusman/airinteract/internal/plugin"
)

// runFunc runs an external command.
type runFunc func(name string, args ...string) error

type levelParams struct {
	Level *int `json:"level"`
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		write(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}
	write(handle(runtime.GOOS, req, run))
}

func write(resp plugin.Response) {
	_ = json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, output)
	}
	return nil
}

// handle executes one request for goos.
func handle(goos string, req plugin.Request, run runFunc) plugin.Response {
	var err error
	switch req.Action {
	case "volume-set":
		var p levelParams
		if e := json.Unmarshal(req.Params, &p); e != nil || p.Level == nil {
			return plugin.Response{Error: `params must be {"level": 0..100}`}
		}
		if *p.Level < 0 || *p.Level > 100 {
			return plugin.Response{Error: fmt.Sprintf("level %d out of range", *p.Level)}
		}
		err = setVolume(goos, *p.Level, run)
	case "volume-mute":
		err = toggleMute(goos, run)
	default:
		return plugin.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}

	if err != nil {
		return plugin.Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}
	return plugin.Response{Success: true}
}

func setVolume(goos string, level int, run runFunc) error {
	switch goos {
	case "darwin":
		return run("osascript", "-e", fmt.Sprintf("set volume output volume %d", level))
	case "linux":
		return run("pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level))
	default:
		return fmt.Errorf("unsupported platform %s", goos)
	}
}

func toggleMute(goos string, run runFunc) error {
	switch goos {
	case "darwin":
		return run("osascript", "-e", "set volume output muted (not (output muted of (get volume settings)))")
	case "linux":
		return run("pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle")
	default:
		return fmt.Errorf("unsupported platform %s", goos)
	}
}
