package aio

import (
	"fmt"

	"github.com/behrlich/go-aio/internal/poll"
	"github.com/behrlich/go-aio/internal/sock"
)

// Listener is a TCP listening socket registered with the runtime's driver.
// It is owned by the runtime's tasks and must only be used from them.
type Listener struct {
	rt   *Runtime
	fd   *sock.Fd
	reg  *poll.Registration
	port uint16
}

// Listen binds a non-blocking listening socket to INADDR_ANY:port with
// SO_REUSEADDR and registers it with the driver. Pass port 0 to bind an
// ephemeral port; Port reports the one the kernel chose.
func Listen(t *Task, port uint16) (*Listener, error) {
	rt := t.rt
	fd, bound, err := sock.ListenTCP(port, rt.cfg.Backlog)
	if err != nil {
		return nil, WrapError("bind", -1, err)
	}
	reg, err := rt.driver.Register(fd.Raw())
	if err != nil {
		fd.Close()
		return nil, WrapError("register", fd.Raw(), err)
	}
	rt.logger.Debugf("listening on port %d (fd %d)", bound, fd.Raw())
	return &Listener{rt: rt, fd: fd, reg: reg, port: bound}, nil
}

// Port returns the bound local port.
func (l *Listener) Port() uint16 { return l.port }

// Addr returns the listener's address in host:port form.
func (l *Listener) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", l.port)
}

// Accept suspends the calling task until a connection is available, then
// returns it as a Stream. The accepted fd is non-blocking, close-on-exec,
// and registered with the driver before Accept returns.
func (l *Listener) Accept(t *Task) (*Stream, error) {
	nfd, err := awaitIO(t, l.reg, poll.DirRead, "accept", func() (int, error) {
		return sock.Accept(l.fd.Raw())
	})
	l.rt.obs.ObserveAccept(err == nil)
	if err != nil {
		return nil, err
	}
	return newStream(l.rt, sock.NewFd(nfd))
}

// Close deregisters the listener from the driver and closes the socket.
// Closing twice is a no-op. Closing while a task is suspended in Accept
// is a contract violation.
func (l *Listener) Close() error {
	if l.reg == nil {
		return nil
	}
	err := l.rt.driver.Deregister(l.reg)
	l.reg = nil
	if cerr := l.fd.Close(); err == nil {
		err = cerr
	}
	return err
}
