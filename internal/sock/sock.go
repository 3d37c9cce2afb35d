// Package sock wraps the raw IPv4 TCP socket syscalls used by the runtime.
// Every socket it creates is non-blocking and close-on-exec.
package sock

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Fd is an owning handle over an OS file descriptor. There is exactly one
// owner; the descriptor is closed exactly once.
type Fd struct {
	raw    int
	closed bool
}

// NewFd takes ownership of raw.
func NewFd(raw int) *Fd {
	return &Fd{raw: raw}
}

// Raw returns the underlying descriptor without transferring ownership.
func (f *Fd) Raw() int { return f.raw }

// Close closes the descriptor. Further calls are no-ops.
func (f *Fd) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return unix.Close(f.raw)
}

// ResolveIPv4 parses a textual IPv4 address into a sockaddr.
func ResolveIPv4(ip string, port uint16) (*unix.SockaddrInet4, error) {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %q", ip)
	}
	sa := &unix.SockaddrInet4{Port: int(port)}
	copy(sa.Addr[:], v4)
	return sa, nil
}

// ListenTCP creates a listening socket bound to INADDR_ANY:port with
// SO_REUSEADDR set. It returns the owned fd and the bound port, which
// differs from the requested one when port is 0.
func ListenTCP(port uint16, backlog int) (*Fd, uint16, error) {
	raw, err := newTCPSocket()
	if err != nil {
		return nil, 0, err
	}
	fd := NewFd(raw)
	if err := unix.SetsockoptInt(raw, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		fd.Close()
		return nil, 0, err
	}
	if err := unix.Bind(raw, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		fd.Close()
		return nil, 0, err
	}
	if err := unix.Listen(raw, backlog); err != nil {
		fd.Close()
		return nil, 0, err
	}
	bound, err := BoundPort(raw)
	if err != nil {
		fd.Close()
		return nil, 0, err
	}
	return fd, bound, nil
}

// NewTCP creates an unbound non-blocking TCP socket.
func NewTCP() (*Fd, error) {
	raw, err := newTCPSocket()
	if err != nil {
		return nil, err
	}
	return NewFd(raw), nil
}

// Connect issues the non-blocking connect. EINPROGRESS is returned as-is
// for the caller to await writability.
func Connect(fd int, sa unix.Sockaddr) error {
	return unix.Connect(fd, sa)
}

// SocketError reads and clears the pending SO_ERROR value.
func SocketError(fd int) (unix.Errno, error) {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return 0, err
	}
	return unix.Errno(v), nil
}

// BoundPort returns the local port the socket is bound to.
func BoundPort(fd int) (uint16, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, err
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("unexpected sockaddr family for fd %d", fd)
	}
	return uint16(sa4.Port), nil
}

// Read wraps the read syscall.
func Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

// Write wraps the write syscall.
func Write(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

// Pair creates a connected pair of non-blocking stream sockets.
func Pair() (*Fd, *Fd, error) {
	fds, err := newStreamPair()
	if err != nil {
		return nil, nil, err
	}
	return NewFd(fds[0]), NewFd(fds[1]), nil
}
