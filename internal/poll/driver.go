// Package poll implements the kernel readiness driver: fd registration,
// per-fd readiness tracking, and the park call that blocks in the mux and
// fires the wakers of suspended tasks. The mux is epoll on Linux and
// kqueue on the BSDs; an io_uring poller is selected by the giouring
// build tag.
package poll

import (
	"github.com/behrlich/go-aio/internal/constants"
	"github.com/behrlich/go-aio/internal/interfaces"
	"github.com/behrlich/go-aio/internal/slab"
)

// poller is the platform mux. add and del manage edge-triggered interest
// in both directions; wait blocks up to msec milliseconds (negative means
// indefinitely, zero means poll) and hands each decoded event to deliver.
type poller interface {
	add(fd int, token uint32) error
	del(fd int, token uint32) error
	wait(msec int, deliver func(token uint32, ready Ready)) (int, error)
	close() error
}

// Config holds driver configuration
type Config struct {
	// EventBufferSize bounds how many kernel events are decoded per park
	EventBufferSize int

	// Logger receives debug output (may be nil)
	Logger interfaces.Logger

	// Observer receives driver events (may be nil)
	Observer interfaces.Observer
}

// Driver owns the kernel mux descriptor and the token -> scheduledIO map.
// It is confined to the runtime thread; none of its methods are safe for
// concurrent use.
type Driver struct {
	poller   poller
	ios      *slab.Slab[*scheduledIO]
	logger   interfaces.Logger
	observer interfaces.Observer
}

// New creates a driver backed by the platform poller.
func New(config Config) (*Driver, error) {
	if config.EventBufferSize <= 0 {
		config.EventBufferSize = constants.DefaultEventBufferSize
	}
	p, err := newPoller(config.EventBufferSize)
	if err != nil {
		return nil, err
	}
	return &Driver{
		poller:   p,
		ios:      slab.New[*scheduledIO](constants.DefaultSlabCapacity),
		logger:   config.Logger,
		observer: config.Observer,
	}, nil
}

// Registration is the handle a consumer holds for a registered fd. It
// exposes the readiness contract to the op layer: consume-and-clear plus
// waker installation.
type Registration struct {
	driver *Driver
	io     *scheduledIO
	fd     int
	token  int
}

// Register adds fd to the mux with edge-triggered readable and writable
// interest and allocates its scheduledIO record.
func (d *Driver) Register(fd int) (*Registration, error) {
	io := &scheduledIO{}
	token := d.ios.Insert(io)
	if err := d.poller.add(fd, uint32(token)); err != nil {
		d.ios.Remove(token)
		return nil, err
	}
	if d.logger != nil {
		d.logger.Debugf("registered fd %d with token %d", fd, token)
	}
	if d.observer != nil {
		d.observer.ObserveRegister()
	}
	return &Registration{driver: d, io: io, fd: fd, token: token}, nil
}

// Deregister removes the fd from the mux and drops the scheduledIO record.
// Pending wakers are dropped without firing. Deregistering twice is a
// no-op.
func (d *Driver) Deregister(r *Registration) error {
	if r.io == nil {
		return nil
	}
	d.ios.Remove(r.token)
	r.io.reader = nil
	r.io.writer = nil
	r.io = nil
	err := d.poller.del(r.fd, uint32(r.token))
	if d.logger != nil {
		d.logger.Debugf("deregistered fd %d token %d", r.fd, r.token)
	}
	if d.observer != nil {
		d.observer.ObserveDeregister()
	}
	return err
}

// Park blocks in the mux for up to msec milliseconds (ParkIndefinite to
// wait for at least one event), then folds each reported event into the
// fd's readiness and fires the wakers of the directions that became
// ready. EINTR is retried internally; any other mux failure is returned
// and is fatal to the runtime.
func (d *Driver) Park(msec int) (int, error) {
	n, err := d.poller.wait(msec, func(token uint32, ready Ready) {
		io, ok := d.ios.Get(int(token))
		if !ok {
			// The fd was deregistered after the kernel queued this event.
			return
		}
		io.readiness |= ready
		io.wake(ready)
	})
	if err != nil {
		return 0, err
	}
	if d.observer != nil {
		d.observer.ObservePark(n)
	}
	return n, nil
}

// Close releases the mux descriptor. Registered fds are not closed; their
// owners remain responsible for them.
func (d *Driver) Close() error {
	return d.poller.close()
}

// Fd returns the registered file descriptor.
func (r *Registration) Fd() int { return r.fd }

// ConsumeReady reports whether dir is ready, clearing the plain readiness
// bit on consumption.
func (r *Registration) ConsumeReady(dir Direction) bool {
	return r.io.consumeReady(dir)
}

// SetWaker installs w as the at-most-one waker for dir. It panics if a
// waker is already installed: two tasks must not await the same fd and
// direction.
func (r *Registration) SetWaker(dir Direction, w interfaces.Waker) {
	r.io.setWaker(dir, w)
}

// Readiness returns the currently accumulated readiness.
func (r *Registration) Readiness() Ready {
	return r.io.readiness
}
