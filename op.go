package aio

import (
	"golang.org/x/sys/unix"

	"github.com/behrlich/go-aio/internal/poll"
)

// awaitIO is the readiness loop shared by every I/O operation: attempt the
// non-blocking syscall; on would-block, consume a pending readiness edge
// and retry, or install the task's waker and park. Any other outcome —
// success, zero bytes, hard error — returns immediately.
func awaitIO(t *Task, reg *poll.Registration, dir poll.Direction, op string, try func() (int, error)) (int, error) {
	for {
		n, err := try()
		if err == nil {
			return n, nil
		}
		if !isWouldBlock(err) {
			return n, WrapError(op, reg.Fd(), err)
		}
		t.rt.obs.ObserveWouldBlock()
		if reg.ConsumeReady(dir) {
			// An edge arrived since the last would-block; the syscall is
			// worth another attempt before suspending.
			continue
		}
		reg.SetWaker(dir, t.waker())
		t.park()
	}
}

// awaitConnect waits for the connect issued on reg's fd to finish, then
// converts the SO_ERROR completion status into success or error.
func awaitConnect(t *Task, reg *poll.Registration, soError func() (unix.Errno, error)) error {
	for {
		if reg.ConsumeReady(poll.DirWrite) {
			errno, err := soError()
			if err != nil {
				return WrapError("connect", reg.Fd(), err)
			}
			switch errno {
			case 0, unix.EISCONN:
				return nil
			case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
				// Still in flight; wait for the next writable edge.
			default:
				return NewErrorWithErrno("connect", reg.Fd(), errno)
			}
			continue
		}
		reg.SetWaker(poll.DirWrite, t.waker())
		t.park()
	}
}

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
