package aio

import (
	"golang.org/x/sys/unix"

	"github.com/behrlich/go-aio/internal/poll"
	"github.com/behrlich/go-aio/internal/sock"
)

// Stream is a connected TCP (or stream socket) endpoint registered with
// the runtime's driver. Read and Write suspend the calling task instead
// of blocking the thread.
//
// At most one task may be suspended per direction: one reader and one
// writer concurrently is fine, two readers is a contract violation and
// panics.
type Stream struct {
	rt  *Runtime
	fd  *sock.Fd
	reg *poll.Registration
}

// newStream registers an owned connected fd with the driver. On failure
// the fd is closed.
func newStream(rt *Runtime, fd *sock.Fd) (*Stream, error) {
	reg, err := rt.driver.Register(fd.Raw())
	if err != nil {
		fd.Close()
		return nil, WrapError("register", fd.Raw(), err)
	}
	return &Stream{rt: rt, fd: fd, reg: reg}, nil
}

// Dial connects to the textual IPv4 address ip:port and suspends the
// calling task until the connection completes or fails.
func Dial(t *Task, ip string, port uint16) (*Stream, error) {
	rt := t.rt
	sa, err := sock.ResolveIPv4(ip, port)
	if err != nil {
		return nil, NewError("connect", ErrCodeInvalidAddress, err.Error())
	}
	fd, err := sock.NewTCP()
	if err != nil {
		return nil, WrapError("socket", -1, err)
	}
	s, err := newStream(rt, fd)
	if err != nil {
		return nil, err
	}

	err = sock.Connect(fd.Raw(), sa)
	if err == unix.EINPROGRESS {
		err = awaitConnect(t, s.reg, func() (unix.Errno, error) {
			return sock.SocketError(fd.Raw())
		})
	} else if err != nil {
		err = WrapError("connect", fd.Raw(), err)
	}
	rt.obs.ObserveConnect(err == nil)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Read fills buf with available bytes and returns the count. It suspends
// the calling task until the socket is readable. A return of (0, nil)
// means the peer closed the connection.
func (s *Stream) Read(t *Task, buf []byte) (int, error) {
	n, err := awaitIO(t, s.reg, poll.DirRead, "read", func() (int, error) {
		return sock.Read(s.fd.Raw(), buf)
	})
	if err != nil {
		s.rt.obs.ObserveRead(0, false)
		return 0, err
	}
	s.rt.obs.ObserveRead(uint64(n), true)
	return n, nil
}

// Write writes buf and returns the count actually written. Short writes
// are returned as-is; the caller loops. It suspends the calling task
// until the socket is writable.
func (s *Stream) Write(t *Task, buf []byte) (int, error) {
	n, err := awaitIO(t, s.reg, poll.DirWrite, "write", func() (int, error) {
		return sock.Write(s.fd.Raw(), buf)
	})
	if err != nil {
		s.rt.obs.ObserveWrite(0, false)
		return 0, err
	}
	s.rt.obs.ObserveWrite(uint64(n), true)
	return n, nil
}

// WriteAll writes all of buf, looping over short writes.
func (s *Stream) WriteAll(t *Task, buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		n, err := s.Write(t, buf[written:])
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Fd returns the stream's file descriptor without transferring ownership.
func (s *Stream) Fd() int { return s.fd.Raw() }

// Close deregisters the stream from the driver and closes the socket.
// Closing twice is a no-op. Closing while a task is suspended on the
// stream is a contract violation.
func (s *Stream) Close() error {
	if s.reg == nil {
		return nil
	}
	err := s.rt.driver.Deregister(s.reg)
	s.reg = nil
	if cerr := s.fd.Close(); err == nil {
		err = cerr
	}
	return err
}
