package ecoro

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOwnerDeathOrphansSuspended(t *testing.T) {
	r := require.New(t)

	handles := make(chan *Handle[struct{}, int], 1)
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		h := Start0(ctx, func(y *Yielder[struct{}, int]) int {
			y.Suspend()
			t.Error("coroutine resumed after owner death")
			return 0
		})

		_, alive, err := h.Resume(struct{}{})
		if err != nil || !alive {
			t.Errorf("Expected suspended coroutine, got alive=%v err=%v", alive, err)
		}

		handles <- h
	}()

	h := <-handles
	r.Eventually(h.IsDead, time.Second, 5*time.Millisecond,
		"worker must self-terminate after its owner ends")
	r.True(h.IsDead())
}

func TestOwnerDeathOrphansAtInitialWait(t *testing.T) {
	r := require.New(t)

	handles := make(chan *Handle[struct{}, int], 1)
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		handles <- Start0(ctx, func(y *Yielder[struct{}, int]) int {
			t.Error("coroutine body ran without a resume")
			return 0
		})
	}()

	h := <-handles
	r.Eventually(h.IsDead, time.Second, 5*time.Millisecond)
}

func TestShutdownBeforeFirstResume(t *testing.T) {
	r := require.New(t)

	started := make(chan struct{}, 1)
	h := Start0(context.Background(), func(y *Yielder[struct{}, int]) int {
		started <- struct{}{}
		return 0
	})

	h.Shutdown()
	r.True(h.IsDead())

	select {
	case <-started:
		t.Fatal("body ran despite shutdown at the initial wait point")
	default:
	}

	requirePanicsIs(t, func() { h.Shutdown() }, ErrDead)
}

func TestShutdownAtYieldRunsDeferredCleanup(t *testing.T) {
	r := require.New(t)

	cleaned := make(chan struct{})
	h := Start0(context.Background(), func(y *Yielder[struct{}, int]) int {
		defer close(cleaned)
		y.Suspend()
		t.Error("body resumed past its wait point after shutdown")
		return 0
	})

	_, alive, err := h.Resume(struct{}{})
	r.NoError(err)
	r.True(alive)

	h.Shutdown()
	r.True(h.IsDead())

	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("deferred cleanup in the body did not run")
	}
}

func TestShutdownAfterCompletionPanicsDead(t *testing.T) {
	r := require.New(t)

	h := Start0(context.Background(), func(y *Yielder[struct{}, int]) int {
		return 1
	})

	out, alive, err := h.Resume(struct{}{})
	r.NoError(err)
	r.False(alive)
	r.Equal(1, out)

	requirePanicsIs(t, func() { h.Shutdown() }, ErrDead)
}

func TestIsDeadIdempotentAcrossTerminalStates(t *testing.T) {
	r := require.New(t)

	completed := Start0(context.Background(), func(y *Yielder[struct{}, int]) int { return 1 })
	completed.Resume(struct{}{})

	failed := Start0(context.Background(), func(y *Yielder[struct{}, int]) int { panic("down") })
	failed.Resume(struct{}{})

	shutDown := Start0(context.Background(), func(y *Yielder[struct{}, int]) int {
		y.Suspend()
		return 0
	})
	shutDown.Shutdown()

	for i := 0; i < 3; i++ {
		r.True(completed.IsDead())
		r.True(failed.IsDead())
		r.True(shutDown.IsDead())
	}
}
