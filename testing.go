package aio

import (
	"sync/atomic"

	"github.com/behrlich/go-aio/internal/sock"
)

// MockObserver counts every observer callback. It is useful for verifying
// scheduling behavior in tests of code built on the runtime.
type MockObserver struct {
	Spawns      atomic.Uint64
	Completes   atomic.Uint64
	Wakes       atomic.Uint64
	Parks       atomic.Uint64
	Registers   atomic.Uint64
	Deregisters atomic.Uint64
	Accepts     atomic.Uint64
	Connects    atomic.Uint64
	Reads       atomic.Uint64
	Writes      atomic.Uint64
	WouldBlocks atomic.Uint64
}

// NewMockObserver creates a new mock observer.
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (m *MockObserver) ObserveSpawn() { m.Spawns.Add(1) }
func (m *MockObserver) ObserveComplete() { m.Completes.Add(1) }
func (m *MockObserver) ObserveWake() { m.Wakes.Add(1) }
func (m *MockObserver) ObservePark(int) { m.Parks.Add(1) }
func (m *MockObserver) ObserveRegister() { m.Registers.Add(1) }
func (m *MockObserver) ObserveDeregister() { m.Deregisters.Add(1) }
func (m *MockObserver) ObserveAccept(bool) { m.Accepts.Add(1) }
func (m *MockObserver) ObserveConnect(bool) { m.Connects.Add(1) }
func (m *MockObserver) ObserveRead(uint64, bool) { m.Reads.Add(1) }
func (m *MockObserver) ObserveWrite(uint64, bool) { m.Writes.Add(1) }
func (m *MockObserver) ObserveWouldBlock() { m.WouldBlocks.Add(1) }

// Socketpair returns two connected Streams backed by a Unix stream
// socketpair, both registered with the calling task's runtime. Handy for
// loopback tests that must not depend on TCP port availability.
func Socketpair(t *Task) (*Stream, *Stream, error) {
	a, b, err := sock.Pair()
	if err != nil {
		return nil, nil, WrapError("socketpair", -1, err)
	}
	sa, err := newStream(t.rt, a)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	sb, err := newStream(t.rt, b)
	if err != nil {
		sa.Close()
		return nil, nil, err
	}
	return sa, sb, nil
}
