package detector

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-9

func TestParseHandedness(t *testing.T) {
	tests := []struct {
		in   string
		want Handedness
	}{
		{"Left", Left},
		{"left", Left},
		{"Right", Right},
		{"right", Right},
		{"", Unknown},
		{"both", Unknown},
	}

	for _, tt := range tests {
		if got := ParseHandedness(tt.in); got != tt.want {
			t.Errorf("ParseHandedness(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPoint_Dist(t *testing.T) {
	p := Point{X: 10, Y: 20}
	q := Point{X: 13, Y: 24}

	if d := p.Dist(q); math.Abs(d-5) > epsilon {
		t.Errorf("expected distance 5, got %f", d)
	}

	v := q.Sub(p)
	if v.X != 3 || v.Y != 4 {
		t.Errorf("expected (3,4), got (%f,%f)", v.X, v.Y)
	}
}

func makeResponse(t *testing.T, hands ...jsonHand) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"hands": hands})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return data
}

func uniformHand(label string, n int, x, y float64) jsonHand {
	jh := jsonHand{Handedness: label, Score: 0.9}
	for i := 0; i < n; i++ {
		jh.Points = append(jh.Points, jsonPoint{X: x, Y: y})
	}
	return jh
}

func TestDecodeResponse(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("scales normalized points to pixels", func(t *testing.T) {
		line := makeResponse(t, uniformHand("Left", NumLandmarks, 0.25, 0.5))

		hands, err := decodeResponse(line, 640, 480, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}

		h := hands[0]
		if h.Handedness != Left {
			t.Errorf("expected Left, got %q", h.Handedness)
		}
		if p := h.Landmark(IndexTip); p.X != 160 || p.Y != 240 {
			t.Errorf("expected (160,240), got (%f,%f)", p.X, p.Y)
		}
	})

	t.Run("truncates to whole pixels", func(t *testing.T) {
		line := makeResponse(t, uniformHand("Right", NumLandmarks, 0.3337, 0.9999))

		hands, err := decodeResponse(line, 640, 480, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p := hands[0].Landmark(Wrist)
		if p.X != 213 || p.Y != 479 {
			t.Errorf("expected (213,479), got (%f,%f)", p.X, p.Y)
		}
	})

	t.Run("drops incomplete hands", func(t *testing.T) {
		line := makeResponse(t,
			uniformHand("Left", 5, 0.1, 0.1),
			uniformHand("Right", NumLandmarks, 0.5, 0.5),
		)

		hands, err := decodeResponse(line, 640, 480, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 || hands[0].Handedness != Right {
			t.Fatalf("expected only the complete right hand, got %+v", hands)
		}
	})

	t.Run("caps at max hands", func(t *testing.T) {
		line := makeResponse(t,
			uniformHand("Left", NumLandmarks, 0.1, 0.1),
			uniformHand("Right", NumLandmarks, 0.5, 0.5),
			uniformHand("Right", NumLandmarks, 0.7, 0.7),
		)

		hands, err := decodeResponse(line, 640, 480, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != cfg.MaxHands {
			t.Errorf("expected %d hands, got %d", cfg.MaxHands, len(hands))
		}
	})

	t.Run("empty response is not an error", func(t *testing.T) {
		hands, err := decodeResponse([]byte(`{"hands":[]}`), 640, 480, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := decodeResponse([]byte(`{"error":"model not loaded"}`), 640, 480, cfg)
		if err == nil || !strings.Contains(err.Error(), "model not loaded") {
			t.Errorf("expected service error, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := decodeResponse([]byte(`{"hands":`), 640, 480, cfg); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	hands, err := m.Detect(nil)
	if err != nil || len(hands) != 0 {
		t.Fatalf("expected empty result, got %v, %v", hands, err)
	}

	m.SetHands(OpenPalmLandmarks(Left), FistLandmarks(Right))
	hands, err = m.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hands) != 2 {
		t.Fatalf("expected 2 hands, got %d", len(hands))
	}

	want := errors.New("camera unplugged")
	m.SetError(want)
	if _, err := m.Detect(nil); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}

	if m.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", m.Calls())
	}
}

func TestPoseHand(t *testing.T) {
	t.Run("extended fingers reach above their PIP joint", func(t *testing.T) {
		h := PointingLandmarks(Left)
		if h.Points[IndexTip].Y >= h.Points[IndexPIP].Y {
			t.Error("expected index tip above PIP")
		}
		if h.Points[MiddleTip].Y <= h.Points[MiddlePIP].Y {
			t.Error("expected middle tip below PIP")
		}
	})

	t.Run("right hands mirror left hands", func(t *testing.T) {
		l := OpenPalmLandmarks(Left)
		r := OpenPalmLandmarks(Right)
		for i := range l.Points {
			if math.Abs(l.Points[i].X+r.Points[i].X-640) > epsilon || l.Points[i].Y != r.Points[i].Y {
				t.Fatalf("landmark %d not mirrored: %+v vs %+v", i, l.Points[i], r.Points[i])
			}
		}
	})

	t.Run("rotation keeps the wrist fixed", func(t *testing.T) {
		h := OpenPalmLandmarks(Left)
		r := h.Rotated(30)
		if r.Points[Wrist] != h.Points[Wrist] {
			t.Errorf("wrist moved: %+v", r.Points[Wrist])
		}
		d0 := h.Points[Wrist].Dist(h.Points[MiddleMCP])
		d1 := r.Points[Wrist].Dist(r.Points[MiddleMCP])
		if math.Abs(d0-d1) > 1e-6 {
			t.Errorf("rotation changed length: %f vs %f", d0, d1)
		}
	})

	t.Run("index tip placement", func(t *testing.T) {
		h := PointingLandmarks(Right).WithIndexTip(Point{X: 100, Y: 50})
		if p := h.Points[IndexTip]; p.X != 100 || p.Y != 50 {
			t.Errorf("expected tip at (100,50), got %+v", p)
		}
	})
}
