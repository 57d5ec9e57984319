package input

import (
	"fmt"
	"sync"
)

// EventKind names a recorded injector call.
type EventKind string

const (
	EventMove        EventKind = "move"
	EventButtonDown  EventKind = "button_down"
	EventButtonUp    EventKind = "button_up"
	EventClick       EventKind = "click"
	EventDoubleClick EventKind = "double_click"
	EventScroll      EventKind = "scroll"
	EventKeyDown     EventKind = "key_down"
	EventKeyUp       EventKind = "key_up"
	EventKeyTap      EventKind = "key_tap"
)

// Event is one recorded injector call.
type Event struct {
	Kind   EventKind
	Button Button
	Key    string
	X, Y   int
	Amount int
	Axis   Axis
}

func (e Event) String() string {
	switch e.Kind {
	case EventMove:
		return fmt.Sprintf("move(%d,%d)", e.X, e.Y)
	case EventButtonDown, EventButtonUp, EventClick:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Button)
	case EventScroll:
		return fmt.Sprintf("scroll(%d,%s)", e.Amount, e.Axis)
	case EventKeyDown, EventKeyUp, EventKeyTap:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Key)
	default:
		return string(e.Kind)
	}
}

// Recorder is an Injector that records calls instead of performing them.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	errs   map[EventKind]error
	width  int
	height int
}

// NewRecorder returns a Recorder reporting a 1920x1080 screen.
func NewRecorder() *Recorder {
	return &Recorder{
		errs:   make(map[EventKind]error),
		width:  1920,
		height: 1080,
	}
}

// SetScreenSize changes the reported screen size.
func (r *Recorder) SetScreenSize(w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = w, h
}

// FailOn makes every call of kind return err (nil clears it). Failed calls
// are not recorded.
func (r *Recorder) FailOn(kind EventKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.errs, kind)
		return
	}
	r.errs[kind] = err
}

func (r *Recorder) record(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[e.Kind]; err != nil {
		return err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the recorded events of kind.
func (r *Recorder) Filter(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// HeldKeys returns keys pressed down and not yet released.
func (r *Recorder) HeldKeys() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	held := make(map[string]bool)
	for _, e := range r.events {
		switch e.Kind {
		case EventKeyDown:
			held[e.Key] = true
		case EventKeyUp:
			delete(held, e.Key)
		}
	}
	return held
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *Recorder) MoveTo(x, y int) error {
	return r.record(Event{Kind: EventMove, X: x, Y: y})
}

func (r *Recorder) ButtonDown(b Button) error {
	return r.record(Event{Kind: EventButtonDown, Button: b})
}

func (r *Recorder) ButtonUp(b Button) error {
	return r.record(Event{Kind: EventButtonUp, Button: b})
}

func (r *Recorder) Click(b Button) error {
	return r.record(Event{Kind: EventClick, Button: b})
}

func (r *Recorder) DoubleClick() error {
	return r.record(Event{Kind: EventDoubleClick, Button: ButtonLeft})
}

func (r *Recorder) Scroll(amount int, axis Axis) error {
	return r.record(Event{Kind: EventScroll, Amount: amount, Axis: axis})
}

func (r *Recorder) KeyDown(key string) error {
	return r.record(Event{Kind: EventKeyDown, Key: key})
}

func (r *Recorder) KeyUp(key string) error {
	return r.record(Event{Kind: EventKeyUp, Key: key})
}

func (r *Recorder) KeyTap(key string) error {
	return r.record(Event{Kind: EventKeyTap, Key: key})
}

func (r *Recorder) ScreenSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}
