package poll

import "github.com/behrlich/go-aio/internal/interfaces"

// scheduledIO is the per-fd record: accumulated readiness plus at most one
// suspended waker per direction.
type scheduledIO struct {
	readiness Ready
	reader    interfaces.Waker
	writer    interfaces.Waker
}

// wake fires the wakers whose direction intersects ready. A waker slot is
// emptied before the waker is invoked.
func (io *scheduledIO) wake(ready Ready) {
	if ready.IsReadable() && io.reader != nil {
		w := io.reader
		io.reader = nil
		w.Wake()
	}
	if ready.IsWritable() && io.writer != nil {
		w := io.writer
		io.writer = nil
		w.Wake()
	}
}

// consumeReady reports whether the direction is ready. The plain bit is
// cleared on consumption: the caller observed would-block and the kernel
// owes a fresh edge before the direction is ready again. Closed bits stay
// set so the next syscall attempt surfaces EOF or the pending error.
func (io *scheduledIO) consumeReady(dir Direction) bool {
	if dir == DirWrite {
		if io.readiness&ReadyWritable != 0 {
			io.readiness &^= ReadyWritable
			return true
		}
		return io.readiness&ReadyWriteClosed != 0
	}
	if io.readiness&ReadyReadable != 0 {
		io.readiness &^= ReadyReadable
		return true
	}
	return io.readiness&ReadyReadClosed != 0
}

// setWaker installs w on the given direction. Two tasks awaiting the same
// fd and direction is a contract violation; fail loudly instead of
// silently dropping the earlier waker.
func (io *scheduledIO) setWaker(dir Direction, w interfaces.Waker) {
	if dir == DirWrite {
		if io.writer != nil {
			panic("poll: writer waker already installed for fd")
		}
		io.writer = w
		return
	}
	if io.reader != nil {
		panic("poll: reader waker already installed for fd")
	}
	io.reader = w
}
