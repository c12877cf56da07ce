package ecoro

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicError is the failure result Resume returns when a coroutine body
// panics. It captures the original panic payload and the worker's stack
// at the point of capture, so the owner can decide how to react without
// the panic ever crossing the worker boundary as a crash.
//
// A body that panicked with an error is distinguishable from one that
// threw a plain value: Unwrap returns the error in the first case and
// nil in the second, while Value returns the payload unchanged either
// way.
type PanicError struct {
	value any
	stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{
		value: v,
		stack: debug.Stack(),
	}
}

// Value returns the original panic payload exactly as the body raised
// it.
func (p *PanicError) Value() any {
	return p.value
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("ecoro: coroutine body panicked: %v", p.value)
}

// ErrorWithStack returns the error message followed by the worker stack
// captured when the panic was recovered.
func (p *PanicError) ErrorWithStack() string {
	return fmt.Sprintf("%v\n\n%s", p.value, p.stack)
}

// Unwrap returns the panic payload when it is an error, nil otherwise.
func (p *PanicError) Unwrap() error {
	err, ok := p.value.(error)
	if !ok {
		return nil
	}
	return err
}

// DebugString renders the whole unwrap chain, including stacks of any
// nested PanicError values, with cycle protection.
func (p *PanicError) DebugString() string {
	var sb strings.Builder
	seen := make(map[error]bool)

	var unwrap func(error)
	unwrap = func(e error) {
		if e == nil || seen[e] {
			return
		}
		seen[e] = true

		if p, ok := e.(*PanicError); ok {
			sb.WriteString(p.ErrorWithStack())
		} else {
			sb.WriteString(e.Error())
		}

		if unwrapper, ok := e.(interface{ Unwrap() []error }); ok {
			for _, ue := range unwrapper.Unwrap() {
				unwrap(ue)
			}
		} else if ue := errors.Unwrap(e); ue != nil {
			unwrap(ue)
		}
	}

	unwrap(p)
	return sb.String()
}
