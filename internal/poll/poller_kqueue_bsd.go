//go:build darwin || dragonfly || freebsd

package poll

import (
	"os"

	"golang.org/x/sys/unix"
)

// kqueuePoller drives kqueue with paired read/write filters in EV_CLEAR
// (edge-triggered) mode. The kevent udata field is not portable across the
// BSDs, so tokens are kept in an fd-keyed map instead.
type kqueuePoller struct {
	fd     int
	events []unix.Kevent_t
	tokens map[int]uint32
}

func newPoller(eventBufferSize int) (poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(fd)
	return &kqueuePoller{
		fd:     fd,
		events: make([]unix.Kevent_t, eventBufferSize),
		tokens: make(map[int]uint32),
	}, nil
}

func (p *kqueuePoller) add(fd int, token uint32) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_CLEAR},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_CLEAR},
	}
	if _, err := unix.Kevent(p.fd, changes, nil, nil); err != nil {
		return os.NewSyscallError("kevent", err)
	}
	p.tokens[fd] = token
	return nil
}

func (p *kqueuePoller) del(fd int, token uint32) error {
	delete(p.tokens, fd)
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	if _, err := unix.Kevent(p.fd, changes, nil, nil); err != nil && err != unix.ENOENT {
		return os.NewSyscallError("kevent", err)
	}
	return nil
}

func (p *kqueuePoller) wait(msec int, deliver func(token uint32, ready Ready)) (int, error) {
	var ts *unix.Timespec
	if msec >= 0 {
		t := unix.NsecToTimespec(int64(msec) * 1e6)
		ts = &t
	}
	for {
		n, err := unix.Kevent(p.fd, nil, p.events, ts)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("kevent", err)
		}
		for i := 0; i < n; i++ {
			ev := &p.events[i]
			token, ok := p.tokens[int(ev.Ident)]
			if !ok {
				continue
			}
			deliver(token, readyFromKevent(ev))
		}
		return n, nil
	}
}

func (p *kqueuePoller) close() error {
	return os.NewSyscallError("close", unix.Close(p.fd))
}

// readyFromKevent translates one kevent to Ready. EV_EOF on a filter marks
// that side closed; EV_ERROR closes both so the next syscall attempt
// surfaces the error.
func readyFromKevent(ev *unix.Kevent_t) Ready {
	var r Ready
	switch ev.Filter {
	case unix.EVFILT_READ:
		r |= ReadyReadable
		if ev.Flags&unix.EV_EOF != 0 {
			r |= ReadyReadClosed
		}
	case unix.EVFILT_WRITE:
		r |= ReadyWritable
		if ev.Flags&unix.EV_EOF != 0 {
			r |= ReadyWriteClosed
		}
	}
	if ev.Flags&unix.EV_ERROR != 0 {
		r |= ReadyReadClosed | ReadyWriteClosed
	}
	return r
}
