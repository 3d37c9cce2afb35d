//go:build darwin || dragonfly || freebsd

package sock

import "golang.org/x/sys/unix"

// The BSDs predate SOCK_NONBLOCK/SOCK_CLOEXEC socket flags on darwin, so
// the flags are applied after creation.

func setNonblockCloexec(fd int) error {
	unix.CloseOnExec(fd)
	return unix.SetNonblock(fd, true)
}

func newTCPSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err := setNonblockCloexec(fd); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// Accept accepts one connection, returning a non-blocking close-on-exec fd.
func Accept(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	if err := setNonblockCloexec(nfd); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}

func newStreamPair() ([2]int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fds, err
	}
	for _, fd := range fds {
		if err := setNonblockCloexec(fd); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return fds, err
		}
	}
	return fds, nil
}
