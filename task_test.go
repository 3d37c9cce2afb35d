package aio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestBlockOnResult(t *testing.T) {
	rt := newTestRuntime(t)

	got, err := BlockOn(rt, func(*Task) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)

	wantErr := errors.New("boom")
	_, err = BlockOn(rt, func(*Task) (int, error) {
		return 0, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestSpawnAndAwait(t *testing.T) {
	rt := newTestRuntime(t)

	got, err := BlockOn(rt, func(root *Task) (string, error) {
		h := Spawn(root, func(*Task) (string, error) {
			return "child", nil
		})
		return h.Await(root)
	})
	require.NoError(t, err)
	require.Equal(t, "child", got)
}

// The joiner observes the result only after the child has returned.
func TestJoinOrdering(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := BlockOn(rt, func(root *Task) (struct{}, error) {
		finished := false
		h := Spawn(root, func(tt *Task) (int, error) {
			tt.Yield()
			tt.Yield()
			finished = true
			return 9, nil
		})
		require.False(t, h.Done())
		v, err := h.Await(root)
		require.NoError(t, err)
		require.Equal(t, 9, v)
		require.True(t, finished)
		require.True(t, h.Done())
		return struct{}{}, nil
	})
	require.NoError(t, err)
}

// Awaiting a task that already completed returns without suspending.
func TestAwaitCompleted(t *testing.T) {
	rt := newTestRuntime(t)

	got, err := BlockOn(rt, func(root *Task) (int, error) {
		h := Spawn(root, func(*Task) (int, error) {
			return 5, nil
		})
		root.Yield() // let the child run to completion
		require.True(t, h.Done())
		return h.Await(root)
	})
	require.NoError(t, err)
	require.Equal(t, 5, got)
}

// Spawned tasks run in FIFO spawn order.
func TestSpawnFIFO(t *testing.T) {
	rt := newTestRuntime(t)

	var order []int
	_, err := BlockOn(rt, func(root *Task) (struct{}, error) {
		for i := 0; i < 3; i++ {
			Spawn(root, func(*Task) (struct{}, error) {
				order = append(order, i)
				return struct{}{}, nil
			})
		}
		root.Yield()
		return struct{}{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, order)
}

// Waking an already scheduled task must not enqueue it twice; waking an
// idle task enqueues it exactly once.
func TestWakeIdempotence(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := BlockOn(rt, func(root *Task) (int, error) {
		var child *Task
		h := Spawn(root, func(tt *Task) (int, error) {
			child = tt
			tt.park() // suspend until woken below
			return 7, nil
		})

		// Freshly spawned: Scheduled and queued exactly once.
		require.Equal(t, taskScheduled, h.task.state)
		require.Len(t, rt.ready, 1)
		h.task.waker().Wake()
		require.Len(t, rt.ready, 1)

		root.Yield() // child runs and parks
		require.Equal(t, taskIdle, child.state)
		require.Empty(t, rt.ready)

		w := child.waker()
		w.Wake()
		require.Equal(t, taskScheduled, child.state)
		require.Len(t, rt.ready, 1)
		w.Wake()
		require.Len(t, rt.ready, 1)

		return h.Await(root)
	})
	require.NoError(t, err)
}

func TestPanicPropagatesToJoiner(t *testing.T) {
	rt := newTestRuntime(t)

	require.PanicsWithValue(t, "task exploded", func() {
		BlockOn(rt, func(root *Task) (struct{}, error) {
			h := Spawn(root, func(*Task) (struct{}, error) {
				panic("task exploded")
			})
			return h.Await(root)
		})
	})
	// The runtime guard is released even when the root panics.
	require.False(t, rt.running)
}

func TestPanicPropagatesFromRoot(t *testing.T) {
	rt := newTestRuntime(t)

	require.PanicsWithValue(t, "root exploded", func() {
		BlockOn(rt, func(*Task) (struct{}, error) {
			panic("root exploded")
		})
	})
	require.False(t, rt.running)

	// The runtime stays usable afterwards.
	got, err := BlockOn(rt, func(*Task) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestDoubleAwaitPanics(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := BlockOn(rt, func(root *Task) (struct{}, error) {
		var child *Task
		h := Spawn(root, func(tt *Task) (struct{}, error) {
			child = tt
			tt.park()
			return struct{}{}, nil
		})
		h2 := Spawn(root, func(tt *Task) (struct{}, error) {
			_, err := h.Await(tt)
			return struct{}{}, err
		})
		root.Yield() // first joiner suspends in Await
		require.Panics(t, func() { h.Await(root) })

		child.waker().Wake()
		_, err := h2.Await(root)
		return struct{}{}, err
	})
	require.NoError(t, err)
}

func TestAwaitOwnHandlePanics(t *testing.T) {
	rt := newTestRuntime(t)

	require.Panics(t, func() {
		BlockOn(rt, func(root *Task) (struct{}, error) {
			var self *JoinHandle[struct{}]
			h := Spawn(root, func(tt *Task) (struct{}, error) {
				self.Await(tt)
				return struct{}{}, nil
			})
			self = h
			return h.Await(root)
		})
	})
}

func TestBlockOnReentryPanics(t *testing.T) {
	rt := newTestRuntime(t)

	require.Panics(t, func() {
		BlockOn(rt, func(*Task) (struct{}, error) {
			return BlockOn(rt, func(*Task) (struct{}, error) {
				return struct{}{}, nil
			})
		})
	})
	require.False(t, rt.running)
}
