//go:build linux && giouring

package poll

import (
	"os"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

// uringPoller implements the poller contract on io_uring. Each registered
// fd gets a multishot POLL_ADD keyed by its token; completions carry the
// poll revents, which decode with the same table as epoll. When the
// kernel retires a multishot poll (no "more" flag on the completion) it
// is re-armed before the next wait.
//
// Positive park timeouts are not supported by this poller; only an
// indefinite wait or a zero-timeout poll is. The runtime only parks
// indefinitely.

const pollInterest = unix.POLLIN | unix.POLLOUT | unix.POLLRDHUP

// userdataDiscard marks completions, such as poll removals, whose result
// carries no readiness.
const userdataDiscard = ^uint64(0)

type uringPoller struct {
	ring *giouring.Ring
	cqes []*giouring.CompletionQueueEvent
	fds  map[uint32]int
}

func newPoller(eventBufferSize int) (poller, error) {
	ring, err := giouring.CreateRing(uint32(eventBufferSize))
	if err != nil {
		return nil, err
	}
	return &uringPoller{
		ring: ring,
		cqes: make([]*giouring.CompletionQueueEvent, eventBufferSize),
		fds:  make(map[uint32]int),
	}, nil
}

// getSQE fetches a free submission slot, flushing the queue once if full.
func (p *uringPoller) getSQE() (*giouring.SubmissionQueueEntry, error) {
	sqe := p.ring.GetSQE()
	if sqe == nil {
		if _, err := p.ring.Submit(); err != nil {
			return nil, os.NewSyscallError("io_uring_enter", err)
		}
		sqe = p.ring.GetSQE()
		if sqe == nil {
			return nil, unix.EBUSY
		}
	}
	return sqe, nil
}

func (p *uringPoller) arm(fd int, token uint32) error {
	sqe, err := p.getSQE()
	if err != nil {
		return err
	}
	sqe.PreparePollMultishot(fd, pollInterest)
	sqe.UserData = uint64(token)
	return nil
}

func (p *uringPoller) add(fd int, token uint32) error {
	if err := p.arm(fd, token); err != nil {
		return err
	}
	p.fds[token] = fd
	return nil
}

func (p *uringPoller) del(fd int, token uint32) error {
	delete(p.fds, token)
	sqe, err := p.getSQE()
	if err != nil {
		return err
	}
	sqe.PreparePollRemove(uint64(token))
	sqe.UserData = userdataDiscard
	return nil
}

func (p *uringPoller) wait(msec int, deliver func(token uint32, ready Ready)) (int, error) {
	if msec > 0 {
		return 0, unix.EOPNOTSUPP
	}
	for {
		var err error
		if msec < 0 {
			_, err = p.ring.SubmitAndWait(1)
		} else {
			_, err = p.ring.Submit()
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("io_uring_enter", err)
		}
		break
	}

	delivered := 0
	for {
		n := p.ring.PeekBatchCQE(p.cqes)
		if n == 0 {
			break
		}
		for _, cqe := range p.cqes[:n] {
			token := uint32(cqe.UserData)
			fd, ok := p.fds[token]
			if cqe.UserData == userdataDiscard || !ok {
				continue
			}
			if cqe.Res >= 0 {
				deliver(token, readyFromPollEvents(uint32(cqe.Res)))
				delivered++
			}
			if cqe.Flags&giouring.CQEFMore == 0 {
				if err := p.arm(fd, token); err != nil {
					p.ring.CQAdvance(n)
					return delivered, err
				}
			}
		}
		p.ring.CQAdvance(n)
	}
	return delivered, nil
}

func (p *uringPoller) close() error {
	p.ring.QueueExit()
	return nil
}

// readyFromPollEvents translates poll revents to Ready, mirroring the
// epoll table.
func readyFromPollEvents(revents uint32) Ready {
	var r Ready
	if revents&unix.POLLIN != 0 {
		r |= ReadyReadable
	}
	if revents&unix.POLLOUT != 0 {
		r |= ReadyWritable
	}
	if revents&(unix.POLLRDHUP|unix.POLLHUP) != 0 {
		r |= ReadyReadClosed
	}
	if revents&unix.POLLERR != 0 {
		r |= ReadyReadClosed | ReadyWriteClosed
	}
	return r
}
