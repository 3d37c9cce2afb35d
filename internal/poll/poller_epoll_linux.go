//go:build linux && !giouring

package poll

import (
	"os"

	"golang.org/x/sys/unix"
)

// epollPoller drives epoll with edge-triggered interest. The registration
// token rides in the epoll_event data field, so event decode is a direct
// token lookup.
type epollPoller struct {
	fd     int
	events []unix.EpollEvent
}

func newPoller(eventBufferSize int) (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &epollPoller{
		fd:     fd,
		events: make([]unix.EpollEvent, eventBufferSize),
	}, nil
}

func (p *epollPoller) add(fd int, token uint32) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(token),
	}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	return nil
}

func (p *epollPoller) del(fd int, token uint32) error {
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	return nil
}

func (p *epollPoller) wait(msec int, deliver func(token uint32, ready Ready)) (int, error) {
	for {
		n, err := unix.EpollWait(p.fd, p.events, msec)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("epoll_wait", err)
		}
		for i := 0; i < n; i++ {
			ev := &p.events[i]
			deliver(uint32(ev.Fd), readyFromEpoll(ev.Events))
		}
		return n, nil
	}
}

func (p *epollPoller) close() error {
	return os.NewSyscallError("close", unix.Close(p.fd))
}

// readyFromEpoll translates epoll event bits to Ready. The translation is
// deterministic: the same bits always produce the same readiness.
func readyFromEpoll(events uint32) Ready {
	var r Ready
	if events&unix.EPOLLIN != 0 {
		r |= ReadyReadable
	}
	if events&unix.EPOLLOUT != 0 {
		r |= ReadyWritable
	}
	if events&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
		r |= ReadyReadClosed
	}
	if events&unix.EPOLLERR != 0 {
		r |= ReadyReadClosed | ReadyWriteClosed
	}
	return r
}
