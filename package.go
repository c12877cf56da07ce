// Package ecoro provides symmetric, two-value-passing coroutines in the
// Lua style, built on goroutines and a private channel pair per
// coroutine rather than on runtime internals.
//
// A coroutine is created with Start (body takes the first resumed
// value) or Start0 (body takes none); both block until the worker
// goroutine is parked and ready, so creation is race-free. The owning
// goroutine then drives it with Handle.Resume, which exchanges exactly
// one value in each direction per call: the body hands values back
// through the Yielder it receives, and the final return value of the
// body arrives through the Resume that ran it to completion. Wrap and
// Wrap0 package the same protocol as a single callable.
//
// Only the creating goroutine may call Resume or Shutdown; violations
// panic with ErrNotOwner, as do Resume or Shutdown on a terminal
// coroutine with ErrDead. A panic inside the body never crashes the
// owner: it is captured as a *PanicError and returned from the
// in-flight Resume. The owner's context acts as a liveness link; when
// it is canceled, an idle worker terminates silently, and IsDead
// reports any of these terminal states from any goroutine.
package ecoro
