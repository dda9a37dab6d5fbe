package game

import (
	"errors"
	"fmt"
)

var (
	ErrClientConnected    = errors.New("client slot already connected")
	ErrClientNotConnected = errors.New("client not connected")
	ErrBadFollowTarget    = errors.New("cannot follow that client")
	ErrNoWorldspawn       = errors.New("first entity definition must be worldspawn")
	ErrHalted             = errors.New("level halted")
)

// FatalError is a condition the level cannot continue after: capacity
// exhaustion, a strict slot collision or a programmer error caught at the
// frame boundary. The world stops running frames once one is recorded.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("fatal: %v", e.Err)
	}
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// fatal aborts the current frame. The panic is caught by the world's
// entry points and recorded as the level's halt reason.
func fatal(op string, err error) {
	panic(&FatalError{Op: op, Err: err})
}

func fatalf(op, format string, args ...any) {
	fatal(op, fmt.Errorf(format, args...))
}

// asFatal converts a recovered panic value into a FatalError.
func asFatal(r any) *FatalError {
	switch v := r.(type) {
	case *FatalError:
		return v
	case error:
		return &FatalError{Op: "panic", Err: v}
	default:
		return &FatalError{Op: "panic", Err: fmt.Errorf("%v", v)}
	}
}
