package aio

import (
	"github.com/behrlich/go-aio/internal/interfaces"
)

// taskState tracks a task through the scheduling state machine:
//
//	Idle --wake--> Scheduled --pop--> Running --park--> Idle
//	                                    |
//	                                    +--return--> Complete
type taskState int

const (
	taskIdle taskState = iota
	taskScheduled
	taskRunning
	taskComplete
)

// Task is the execution context of one cooperatively scheduled task. Every
// awaiting API takes the current task; a Task must only be used from the
// function the runtime invoked it with. A task executes only while it
// holds the scheduler's baton and yields it back at every suspension
// point, so at most one task runs at any moment.
type Task struct {
	rt     *Runtime
	state  taskState
	resume chan struct{}

	// join is the at-most-one waker of the task awaiting this task's
	// completion. It fires exactly once, on completion.
	join     interfaces.Waker
	awaited  bool
	panicVal any
}

func newTask(rt *Runtime) *Task {
	return &Task{
		rt:     rt,
		resume: make(chan struct{}),
	}
}

// Runtime returns the runtime this task runs on.
func (t *Task) Runtime() *Runtime { return t.rt }

// park yields the baton to the scheduler and blocks until a waker
// reschedules this task. The caller must have arranged for a wake before
// parking; a task with no installed waker never resumes.
func (t *Task) park() {
	t.rt.yield <- struct{}{}
	<-t.resume
}

// Yield moves the calling task to the back of the ready queue and hands
// the baton to the scheduler, giving every other runnable task a turn
// before this one resumes.
func (t *Task) Yield() {
	t.state = taskScheduled
	t.rt.pushReady(t)
	t.park()
}

// complete transitions the task to its terminal state, fires the join
// waker, and hands the baton back for the last time. Runs on the task
// goroutine, which exits right after.
func (t *Task) complete() {
	t.state = taskComplete
	t.rt.obs.ObserveComplete()
	if w := t.join; w != nil {
		t.join = nil
		w.Wake()
	}
	t.rt.yield <- struct{}{}
}

// waker returns the handle that re-enqueues this task.
func (t *Task) waker() interfaces.Waker {
	return waker{t: t}
}

// waker re-enqueues its task onto the runtime's ready queue.
type waker struct {
	t *Task
}

// Wake transitions Idle to Scheduled and pushes the task onto the ready
// queue. Waking an already scheduled or completed task is a no-op, so a
// task is in the ready queue at most once per round.
func (w waker) Wake() {
	t := w.t
	switch t.state {
	case taskScheduled, taskComplete:
	case taskIdle:
		t.state = taskScheduled
		t.rt.pushReady(t)
		t.rt.obs.ObserveWake()
	case taskRunning:
		panic("aio: wake of a running task")
	}
}

// JoinHandle is the awaitable completion handle of a spawned task. The
// handle and the scheduler share the task record, so the result stays
// alive until both are done with it.
type JoinHandle[T any] struct {
	task   *Task
	result T
	err    error
}

// Await suspends the calling task until the handle's task completes, then
// returns its result. If the task panicked, the panic is re-raised here.
// A handle may be awaited by at most one task while pending.
func (h *JoinHandle[T]) Await(t *Task) (T, error) {
	c := h.task
	if c.state != taskComplete {
		if c == t {
			panic("aio: task awaiting its own handle")
		}
		if c.awaited {
			panic("aio: JoinHandle awaited twice")
		}
		c.awaited = true
		c.join = t.waker()
		t.park()
		if c.state != taskComplete {
			panic("aio: joiner woken before task completion")
		}
	}
	if c.panicVal != nil {
		panic(c.panicVal)
	}
	return h.result, h.err
}

// Done reports whether the task has completed.
func (h *JoinHandle[T]) Done() bool {
	return h.task.state == taskComplete
}

// startTask creates the task record and its goroutine. The goroutine
// blocks on the resume channel before touching user code: a task does not
// run until scheduled and popped from the ready queue.
func startTask[T any](rt *Runtime, fn func(*Task) (T, error)) *JoinHandle[T] {
	t := newTask(rt)
	h := &JoinHandle[T]{task: t}
	go func() {
		<-t.resume
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.panicVal = r
				}
			}()
			h.result, h.err = fn(t)
		}()
		t.complete()
	}()
	return h
}

// Spawn schedules fn as a new task on the calling task's runtime and
// returns immediately with its JoinHandle.
func Spawn[T any](t *Task, fn func(*Task) (T, error)) *JoinHandle[T] {
	rt := t.rt
	h := startTask(rt, fn)
	rt.obs.ObserveSpawn()
	rt.schedule(h.task)
	return h
}
