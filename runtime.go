// Package aio provides a single-threaded, readiness-based asynchronous I/O
// runtime: a cooperative task scheduler parked on the kernel event
// multiplexer, with non-blocking TCP primitives expressed as awaitable
// operations.
package aio

import (
	"fmt"
	goruntime "runtime"

	"github.com/behrlich/go-aio/internal/constants"
	"github.com/behrlich/go-aio/internal/interfaces"
	"github.com/behrlich/go-aio/internal/logging"
	"github.com/behrlich/go-aio/internal/poll"
)

// Logger receives debug and diagnostic output from the runtime.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Config contains parameters for creating a runtime
type Config struct {
	// EventBufferSize bounds how many kernel events are decoded per park
	// (default: 1024)
	EventBufferSize int

	// Backlog is the listen(2) backlog for listeners created on this
	// runtime (default: 128)
	Backlog int

	// Logger receives debug output; nil uses the package default logger
	Logger Logger

	// Observer receives scheduling and I/O events in addition to the
	// runtime's own metrics (optional)
	Observer Observer
}

// DefaultConfig returns default runtime parameters
func DefaultConfig() Config {
	return Config{
		EventBufferSize: constants.DefaultEventBufferSize,
		Backlog:         constants.DefaultBacklog,
	}
}

// Runtime owns the ready queue of runnable tasks and the readiness
// driver. Each OS thread may run at most one runtime at a time. The
// scheduler loop is pinned to the thread that called BlockOn; each task
// runs on its own goroutine, which is not pinned, and tasks execute one at
// a time under the scheduler's baton.
type Runtime struct {
	cfg     Config
	driver  *poll.Driver
	ready   []*Task
	yield   chan struct{}
	metrics *Metrics
	obs     *observerChain
	logger  Logger
	running bool
	closed  bool
}

// New creates a runtime and its kernel mux descriptor.
func New(cfg *Config) (*Runtime, error) {
	config := DefaultConfig()
	if cfg != nil {
		config = *cfg
	}
	if config.EventBufferSize <= 0 {
		config.EventBufferSize = constants.DefaultEventBufferSize
	}
	if config.Backlog <= 0 {
		config.Backlog = constants.DefaultBacklog
	}
	if config.Logger == nil {
		config.Logger = logging.Default()
	}

	metrics := NewMetrics()
	obs := &observerChain{metrics: metrics, extra: config.Observer}

	driver, err := poll.New(poll.Config{
		EventBufferSize: config.EventBufferSize,
		Logger:          config.Logger,
		Observer:        obs,
	})
	if err != nil {
		return nil, WrapError("runtime_init", -1, err)
	}

	return &Runtime{
		cfg:     config,
		driver:  driver,
		ready:   make([]*Task, 0, constants.DefaultReadyQueueCapacity),
		yield:   make(chan struct{}),
		metrics: metrics,
		obs:     obs,
		logger:  config.Logger,
	}, nil
}

// Metrics returns the runtime's counters.
func (rt *Runtime) Metrics() *Metrics { return rt.metrics }

// Close releases the kernel mux descriptor. The runtime must not be
// running.
func (rt *Runtime) Close() error {
	if rt.running {
		panic("aio: Close of a running runtime")
	}
	if rt.closed {
		return nil
	}
	rt.closed = true
	return rt.driver.Close()
}

// BlockOn runs fn as the root task and drives the runtime until it
// completes, then returns its result. Tasks still in the ready queue when
// the root completes run until the queue is empty; tasks suspended after
// that are not resumed by this call. BlockOn must not be invoked
// on a runtime that is already running.
func BlockOn[T any](rt *Runtime, fn func(*Task) (T, error)) (T, error) {
	if rt.running {
		panic("aio: BlockOn on a running runtime")
	}
	if rt.closed {
		panic("aio: BlockOn on a closed runtime")
	}
	rt.running = true
	defer func() { rt.running = false }()

	root := startTask(rt, fn)
	rt.obs.ObserveSpawn()
	rt.schedule(root.task)
	rt.run(root.task)

	if root.task.panicVal != nil {
		panic(root.task.panicVal)
	}
	return root.result, root.err
}

// run is the scheduler loop: drain the ready queue in FIFO order, and
// when no task is runnable, park in the driver until a waker fires.
func (rt *Runtime) run(root *Task) {
	// Pinning keeps the scheduler loop and the mux wait on one OS thread.
	// Task goroutines, which issue the I/O syscalls, are not pinned.
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	for {
		for len(rt.ready) > 0 {
			t := rt.popReady()
			t.state = taskRunning
			t.resume <- struct{}{}
			<-rt.yield
			if t.state == taskRunning {
				t.state = taskIdle
			}
		}

		if root.state == taskComplete {
			return
		}

		if _, err := rt.driver.Park(constants.ParkIndefinite); err != nil {
			// A mux-level failure leaves suspended tasks unwakeable.
			panic(fmt.Sprintf("aio: driver park failed: %v", err))
		}
	}
}

// schedule transitions a task to Scheduled and enqueues it.
func (rt *Runtime) schedule(t *Task) {
	if t.state != taskIdle {
		panic("aio: schedule of a non-idle task")
	}
	t.state = taskScheduled
	rt.pushReady(t)
}

func (rt *Runtime) pushReady(t *Task) {
	rt.ready = append(rt.ready, t)
}

func (rt *Runtime) popReady() *Task {
	t := rt.ready[0]
	rt.ready[0] = nil
	rt.ready = rt.ready[1:]
	return t
}

// observerChain records every event into the runtime metrics and forwards
// it to the user-supplied observer when one is configured.
type observerChain struct {
	metrics *Metrics
	extra   Observer
}

var _ interfaces.Observer = (*observerChain)(nil)

func (o *observerChain) ObserveSpawn() {
	o.metrics.TasksSpawned.Add(1)
	if o.extra != nil {
		o.extra.ObserveSpawn()
	}
}

func (o *observerChain) ObserveComplete() {
	o.metrics.TasksCompleted.Add(1)
	if o.extra != nil {
		o.extra.ObserveComplete()
	}
}

func (o *observerChain) ObserveWake() {
	o.metrics.Wakes.Add(1)
	if o.extra != nil {
		o.extra.ObserveWake()
	}
}

func (o *observerChain) ObservePark(events int) {
	o.metrics.Parks.Add(1)
	o.metrics.ParkEvents.Add(uint64(events))
	if o.extra != nil {
		o.extra.ObservePark(events)
	}
}

func (o *observerChain) ObserveRegister() {
	o.metrics.Registrations.Add(1)
	if o.extra != nil {
		o.extra.ObserveRegister()
	}
}

func (o *observerChain) ObserveDeregister() {
	o.metrics.Deregistrations.Add(1)
	if o.extra != nil {
		o.extra.ObserveDeregister()
	}
}

func (o *observerChain) ObserveAccept(success bool) {
	o.metrics.RecordAccept(success)
	if o.extra != nil {
		o.extra.ObserveAccept(success)
	}
}

func (o *observerChain) ObserveConnect(success bool) {
	o.metrics.RecordConnect(success)
	if o.extra != nil {
		o.extra.ObserveConnect(success)
	}
}

func (o *observerChain) ObserveRead(bytes uint64, success bool) {
	o.metrics.RecordRead(bytes, success)
	if o.extra != nil {
		o.extra.ObserveRead(bytes, success)
	}
}

func (o *observerChain) ObserveWrite(bytes uint64, success bool) {
	o.metrics.RecordWrite(bytes, success)
	if o.extra != nil {
		o.extra.ObserveWrite(bytes, success)
	}
}

func (o *observerChain) ObserveWouldBlock() {
	o.metrics.WouldBlocks.Add(1)
	if o.extra != nil {
		o.extra.ObserveWouldBlock()
	}
}
