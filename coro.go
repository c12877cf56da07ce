package ecoro

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
)

var (
	// ErrDead is the panic value raised by Resume and Shutdown when the
	// coroutine has already reached a terminal state.
	ErrDead = errors.New("ecoro: coroutine is dead")

	// ErrNotOwner is the panic value raised by Resume and Shutdown when
	// they are called from a goroutine other than the one that created
	// the coroutine.
	ErrNotOwner = errors.New("ecoro: caller is not the coroutine owner")

	// ErrOutsideCoroutine is the panic value raised by Yielder methods
	// when they are called from any goroutine other than the worker the
	// Yielder belongs to.
	ErrOutsideCoroutine = errors.New("ecoro: yield outside the coroutine goroutine")
)

// Message vocabulary of the owner/worker rendezvous. Requests travel on
// the request channel, replies on the reply channel, with at most one
// message in flight per direction.
type kind uint8

const (
	kindResume kind = iota
	kindShutdown
	kindYielded
	kindCompleted
	kindFailed
	kindAck
)

type request[In any] struct {
	kind kind
	val  In
}

type reply[Out any] struct {
	kind kind
	val  Out
	err  error
}

// Handle identifies one coroutine instance. It records the goroutine
// that created the coroutine (the owner, the only goroutine allowed to
// call Resume and Shutdown) and the worker goroutine running the body.
// A Handle is read-only after creation and may be passed around freely;
// IsDead works from any goroutine.
type Handle[In, Out any] struct {
	owner  uint64
	worker uint64
	req    chan request[In]
	resp   chan reply[Out]
	done   chan struct{}
	dead   atomic.Bool
}

// Yielder is the worker-side rendezvous context handed to the body
// function. Its methods suspend the worker and exchange values with the
// owner; they are only meaningful on the worker goroutine they were
// created for.
type Yielder[In, Out any] struct {
	h         *Handle[In, Out]
	ownerDone <-chan struct{}
}

// Start creates a coroutine whose body receives the value carried by
// the first Resume call. The worker goroutine is spawned immediately and
// Start blocks until it has signaled readiness, so by the time Start
// returns the worker is parked at its initial wait point and a Resume
// cannot race the creation handshake.
//
// ctx is the owner's liveness token: when its Done channel closes while
// the worker is idle at a wait point, the worker terminates silently
// with no message to anyone. An owner that may exit early should derive
// a context with cancel and arrange "defer cancel()" so the coroutine is
// torn down with it. context.Background() means no liveness link.
func Start[In, Out any](ctx context.Context, body func(*Yielder[In, Out], In) Out) *Handle[In, Out] {
	h := &Handle[In, Out]{
		owner: goid(),
		req:   make(chan request[In]),
		resp:  make(chan reply[Out]),
		done:  make(chan struct{}),
	}

	ready := make(chan struct{})
	go h.run(ctx.Done(), ready, body)
	<-ready

	return h
}

// Start0 creates a coroutine from a body that takes no input value. The
// value carried by the first Resume is discarded. All other semantics
// match Start.
func Start0[In, Out any](ctx context.Context, body func(*Yielder[In, Out]) Out) *Handle[In, Out] {
	return Start(ctx, func(y *Yielder[In, Out], _ In) Out {
		return body(y)
	})
}

// Wrap creates a coroutine from body and returns a callable that
// performs Resume on the underlying handle each time it is invoked. It
// is a thin adapter over Start; the callable carries the same contract
// and preconditions as Resume.
func Wrap[In, Out any](ctx context.Context, body func(*Yielder[In, Out], In) Out) func(In) (Out, bool, error) {
	h := Start(ctx, body)
	return h.Resume
}

// Wrap0 is Wrap for a body that takes no input value; the returned
// callable takes no argument and resumes with the zero In.
func Wrap0[In, Out any](ctx context.Context, body func(*Yielder[In, Out]) Out) func() (Out, bool, error) {
	h := Start0(ctx, body)
	return func() (Out, bool, error) {
		var zero In
		return h.Resume(zero)
	}
}

// Resume sends v to the worker and blocks until it reacts. It returns
// (value, true, nil) when the body yields, (value, false, nil) when the
// body returns, and (zero, false, *PanicError) when the body panics; in
// the latter two cases the coroutine is dead before Resume returns.
//
// Resume panics with ErrDead on a terminal coroutine and with
// ErrNotOwner when called from a goroutine other than the creator. Those
// are caller bugs, not coroutine outcomes, so they are never represented
// in the return value.
func (h *Handle[In, Out]) Resume(v In) (out Out, alive bool, err error) {
	if h.IsDead() {
		panic(ErrDead)
	}
	if goid() != h.owner {
		panic(ErrNotOwner)
	}

	select {
	case h.req <- request[In]{kind: kindResume, val: v}:
	case <-h.done:
		panic(ErrDead)
	}

	var r reply[Out]
	select {
	case r = <-h.resp:
	case <-h.done:
		// The worker orphaned itself between accepting the resume and
		// replying; only possible when the owner context was canceled
		// while this Resume was in flight.
		panic(ErrDead)
	}

	switch r.kind {
	case kindYielded:
		return r.val, true, nil
	case kindCompleted:
		h.dead.Store(true)
		return r.val, false, nil
	default: // kindFailed
		h.dead.Store(true)
		return out, false, r.err
	}
}

// Shutdown terminates an idle coroutine and blocks until the worker
// acknowledges. The worker receives the shutdown at its wait point and
// ends without running any further body statement; deferred calls in
// the body still run. Shutdown has the same preconditions as Resume and
// panics with ErrDead rather than hanging when the coroutine is already
// terminal.
func (h *Handle[In, Out]) Shutdown() {
	if h.IsDead() {
		panic(ErrDead)
	}
	if goid() != h.owner {
		panic(ErrNotOwner)
	}

	select {
	case h.req <- request[In]{kind: kindShutdown}:
	case <-h.done:
		panic(ErrDead)
	}

	select {
	case <-h.resp: // ack
	case <-h.done:
	}
	h.dead.Store(true)
}

// IsDead reports whether the coroutine has reached any terminal state:
// completed, failed, shut down, or orphaned by owner death. It never
// blocks, has no side effects, and may be called from any goroutine.
func (h *Handle[In, Out]) IsDead() bool {
	if h.dead.Load() {
		return true
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Yield hands v to the owner's in-flight Resume and blocks until the
// owner resumes again, returning the value that resume carried. If a
// shutdown arrives instead, the worker acknowledges and terminates; if
// the owner's done channel fires, the worker terminates silently.
func (y *Yielder[In, Out]) Yield(v Out) In {
	h := y.h
	if goid() != h.worker {
		panic(ErrOutsideCoroutine)
	}

	select {
	case h.resp <- reply[Out]{kind: kindYielded, val: v}:
	case <-y.ownerDone:
		runtime.Goexit()
	}

	var req request[In]
	select {
	case req = <-h.req:
	case <-y.ownerDone:
		runtime.Goexit()
	}

	if req.kind == kindShutdown {
		h.resp <- reply[Out]{kind: kindAck}
		runtime.Goexit()
	}
	return req.val
}

// Suspend yields with no value, handing the owner the zero Out. The
// returned value is the one carried by the next resume.
func (y *Yielder[In, Out]) Suspend() In {
	var zero Out
	return y.Yield(zero)
}

// run is the worker goroutine. It signals readiness, parks at the
// initial wait point, executes the body between rendezvous, and turns a
// body panic into a failed reply instead of crashing the process. The
// done channel is closed on every terminal path.
func (h *Handle[In, Out]) run(ownerDone <-chan struct{}, ready chan<- struct{}, body func(*Yielder[In, Out], In) Out) {
	defer close(h.done)

	h.worker = goid()
	close(ready)

	var first In
	select {
	case req := <-h.req:
		if req.kind == kindShutdown {
			h.resp <- reply[Out]{kind: kindAck}
			return
		}
		first = req.val
	case <-ownerDone:
		return
	}

	var (
		out       Out
		completed bool
	)
	defer func() {
		if completed {
			select {
			case h.resp <- reply[Out]{kind: kindCompleted, val: out}:
			case <-ownerDone:
			}
			return
		}
		if p := recover(); p != nil {
			select {
			case h.resp <- reply[Out]{kind: kindFailed, err: newPanicError(p)}:
			case <-ownerDone:
			}
		}
		// Neither completed nor panicking: the worker is unwinding from
		// Goexit after a shutdown ack or an orphan, nothing to send.
	}()

	out = body(&Yielder[In, Out]{h: h, ownerDone: ownerDone}, first)
	completed = true
}
