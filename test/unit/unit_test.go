//go:build !integration

package unit

import (
	"testing"

	aio "github.com/behrlich/go-aio"
)

// These tests exercise the public API surface only.

func TestDefaults(t *testing.T) {
	if aio.DefaultBacklog != 128 {
		t.Errorf("DefaultBacklog = %d, want 128", aio.DefaultBacklog)
	}
	if aio.DefaultEventBufferSize != 1024 {
		t.Errorf("DefaultEventBufferSize = %d, want 1024", aio.DefaultEventBufferSize)
	}

	cfg := aio.DefaultConfig()
	if cfg.Backlog != aio.DefaultBacklog {
		t.Errorf("DefaultConfig().Backlog = %d, want %d", cfg.Backlog, aio.DefaultBacklog)
	}
}

func TestObserverInterface(t *testing.T) {
	// MockObserver satisfies the Observer contract
	var _ aio.Observer = aio.NewMockObserver()
}

func TestRuntimeLifecycle(t *testing.T) {
	rt, err := aio.New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := aio.BlockOn(rt, func(task *aio.Task) (int, error) {
		h := aio.Spawn(task, func(*aio.Task) (int, error) {
			return 21, nil
		})
		v, err := h.Await(task)
		return v * 2, err
	})
	if err != nil {
		t.Fatalf("BlockOn failed: %v", err)
	}
	if got != 42 {
		t.Errorf("BlockOn = %d, want 42", got)
	}

	if err := rt.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestErrorCodes(t *testing.T) {
	err := aio.NewError("read", aio.ErrCodePeerClosed, "")
	if !aio.IsCode(err, aio.ErrCodePeerClosed) {
		t.Error("IsCode failed on a fresh error")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}

func TestSocketpairStreams(t *testing.T) {
	rt, err := aio.New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer rt.Close()

	msg, err := aio.BlockOn(rt, func(task *aio.Task) (string, error) {
		a, b, err := aio.Socketpair(task)
		if err != nil {
			return "", err
		}
		defer a.Close()
		defer b.Close()

		if _, err := a.WriteAll(task, []byte("hello")); err != nil {
			return "", err
		}
		buf := make([]byte, 5)
		n, err := b.Read(task, buf)
		if err != nil {
			return "", err
		}
		return string(buf[:n]), nil
	})
	if err != nil {
		t.Fatalf("BlockOn failed: %v", err)
	}
	if msg != "hello" {
		t.Errorf("read %q, want %q", msg, "hello")
	}
}
