// Package control holds the stateful signal shapers behind every gesture:
// cooldown gates, velocity filters, the volume angle mapper, the drag state
// machine and the cursor mapper. Nothing here talks to the OS directly.
package control

import (
	"fmt"

	"go.uber.org/zap"
)

// Resettable is implemented by every component that carries state across
// frames. Reset returns the component to its freshly constructed state.
type Resettable interface {
	Reset()
}

// Invariant guards conditions that only a logic bug can violate.
// In strict mode a violation panics, otherwise it is logged at error level.
type Invariant struct {
	Strict bool
	Log    *zap.Logger
}

// Check reports ok and handles a violation when ok is false.
func (iv Invariant) Check(ok bool, msg string, fields ...zap.Field) bool {
	if ok {
		return true
	}
	if iv.Strict {
		panic(fmt.Sprintf("invariant violated: %s", msg))
	}
	if iv.Log != nil {
		iv.Log.Error("invariant violated", append(fields, zap.String("invariant", msg))...)
	}
	return false
}
