package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/airinteract/internal/app"
	"github.com/ayusman/airinteract/internal/audio"
	"github.com/ayusman/airinteract/internal/capture"
	"github.com/ayusman/airinteract/internal/config"
	"github.com/ayusman/airinteract/internal/detector"
	"github.com/ayusman/airinteract/internal/input"
	"github.com/ayusman/airinteract/internal/server"
)

type statusBody struct {
	Session string `json:"session"`
	Enabled bool   `json:"enabled"`
	Result  struct {
		Mode   string `json:"mode"`
		Status string `json:"status"`
	} `json:"result"`
}

func getStatus(t *testing.T, client *http.Client, url string) statusBody {
	t.Helper()
	resp, err := client.Get(url + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()

	var body statusBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return body
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// wheel places two fists 300px apart, which drives the gas key in the racing
// profile.
func wheel() []detector.Hand {
	return []detector.Hand{
		detector.PoseHand(detector.Left, [5]bool{}).Translated(-150, 0),
		detector.PoseHand(detector.Right, [5]bool{}).Translated(150, 0),
	}
}

func TestE2E_RacingSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	cfg.Mode = "racing"
	cfg.Camera.IdleFPS = 200
	cfg.Camera.ActiveFPS = 400
	cfg.Camera.Reconnect = 5 * time.Millisecond

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	det.SetHands(wheel()...)
	keys := input.NewRecorder()

	a, err := app.New(&cfg, nil, app.Deps{
		Camera:   capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector: det,
		Input:    keys,
		Mixer:    audio.NewRecorder(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	session := a.Session()
	hub := server.NewHub(nil)
	session.Subscribe(hub.Publish)
	ts := httptest.NewServer(server.New(server.Config{Status: session, Hub: hub}))
	defer ts.Close()
	client := ts.Client()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	t.Run("DrivesGas", func(t *testing.T) {
		waitFor(t, "gas", func() bool {
			return getStatus(t, client, ts.URL).Result.Mode == "gas"
		})
		held := keys.HeldKeys()
		if len(held) != 1 || !held["w"] {
			t.Errorf("HeldKeys() = %v, want [w]", held)
		}

		body := getStatus(t, client, ts.URL)
		if body.Session != session.ID() {
			t.Errorf("session = %q, want %q", body.Session, session.ID())
		}
		if !body.Enabled {
			t.Error("expected the session to be enabled")
		}
	})

	t.Run("StreamsEvents", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg["mode"] != "gas" {
			t.Errorf("first event mode = %v, want gas", msg["mode"])
		}
	})

	t.Run("PauseReleasesKeys", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/enabled", strings.NewReader(`{"enabled":false}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/enabled: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		if held := keys.HeldKeys(); len(held) != 0 {
			t.Errorf("HeldKeys() = %v after pause, want none", held)
		}
		body := getStatus(t, client, ts.URL)
		if body.Enabled || body.Result.Status != app.PausedStatus {
			t.Errorf("status after pause = %+v", body)
		}
	})

	t.Run("ResumeAndClose", func(t *testing.T) {
		session.SetEnabled(true)
		waitFor(t, "gas again", func() bool {
			return len(keys.HeldKeys()) == 1
		})

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("capture loop did not stop")
		}

		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if held := keys.HeldKeys(); len(held) != 0 {
			t.Errorf("HeldKeys() = %v after close, want none", held)
		}
		hub.Close()
	})
}
