package sock

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestResolveIPv4(t *testing.T) {
	sa, err := ResolveIPv4("127.0.0.1", 8080)
	if err != nil {
		t.Fatalf("ResolveIPv4 failed: %v", err)
	}
	if sa.Port != 8080 {
		t.Errorf("Port = %d, want 8080", sa.Port)
	}
	if sa.Addr != [4]byte{127, 0, 0, 1} {
		t.Errorf("Addr = %v, want 127.0.0.1", sa.Addr)
	}

	for _, bad := range []string{"", "nonsense", "::1", "256.0.0.1"} {
		if _, err := ResolveIPv4(bad, 1); err == nil {
			t.Errorf("ResolveIPv4(%q) succeeded, want error", bad)
		}
	}
}

func TestListenTCPEphemeralPort(t *testing.T) {
	fd, port, err := ListenTCP(0, 8)
	if err != nil {
		t.Fatalf("ListenTCP failed: %v", err)
	}
	defer fd.Close()

	if port == 0 {
		t.Error("bound port is 0, want an ephemeral port")
	}

	// The socket must be non-blocking: accept with no pending connection
	// returns would-block instead of hanging.
	if _, err := Accept(fd.Raw()); err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		t.Errorf("Accept on idle listener = %v, want EAGAIN", err)
	}
}

func TestFdCloseOnce(t *testing.T) {
	a, b, err := Pair()
	if err != nil {
		t.Fatalf("Pair failed: %v", err)
	}
	defer b.Close()

	if err := a.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close = %v, want nil no-op", err)
	}
}

func TestPairIsConnected(t *testing.T) {
	a, b, err := Pair()
	if err != nil {
		t.Fatalf("Pair failed: %v", err)
	}
	defer a.Close()
	defer b.Close()

	if _, err := Write(a.Raw(), []byte("hi")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buf := make([]byte, 8)
	n, err := Read(b.Raw(), buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 2 || string(buf[:2]) != "hi" {
		t.Errorf("Read = %d %q, want 2 %q", n, buf[:n], "hi")
	}
}
