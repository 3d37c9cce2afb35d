package aio

import (
	"sync/atomic"
	"time"
)

// Observer receives scheduling and I/O events from a runtime.
// Implementations must be cheap; methods are called from the runtime
// thread on every event.
type Observer interface {
	ObserveSpawn()
	ObserveComplete()
	ObserveWake()
	ObservePark(events int)
	ObserveRegister()
	ObserveDeregister()
	ObserveAccept(success bool)
	ObserveConnect(success bool)
	ObserveRead(bytes uint64, success bool)
	ObserveWrite(bytes uint64, success bool)
	ObserveWouldBlock()
}

// Metrics tracks scheduling and I/O statistics for a runtime
type Metrics struct {
	// Task lifecycle counters
	TasksSpawned   atomic.Uint64 // Tasks handed to the scheduler (root included)
	TasksCompleted atomic.Uint64 // Tasks that ran to completion
	Wakes          atomic.Uint64 // Waker-driven Idle -> Scheduled transitions (spawns and Yield not counted)

	// Driver counters
	Parks           atomic.Uint64 // Times the runtime blocked in the kernel mux
	ParkEvents      atomic.Uint64 // Kernel events decoded across all parks
	Registrations   atomic.Uint64 // Fds registered with the driver
	Deregistrations atomic.Uint64 // Fds removed from the driver

	// I/O operation counters
	AcceptOps  atomic.Uint64 // Total accept operations
	ConnectOps atomic.Uint64 // Total connect operations
	ReadOps    atomic.Uint64 // Total read operations
	WriteOps   atomic.Uint64 // Total write operations

	// Byte counters
	ReadBytes  atomic.Uint64 // Total bytes read
	WriteBytes atomic.Uint64 // Total bytes written

	// Error counters
	AcceptErrors  atomic.Uint64 // Accept operation errors
	ConnectErrors atomic.Uint64 // Connect operation errors
	ReadErrors    atomic.Uint64 // Read operation errors
	WriteErrors   atomic.Uint64 // Write operation errors

	// WouldBlocks counts syscall attempts that observed EAGAIN
	WouldBlocks atomic.Uint64

	// Runtime lifecycle
	StartTime atomic.Int64 // Runtime creation timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordAccept records an accept operation
func (m *Metrics) RecordAccept(success bool) {
	m.AcceptOps.Add(1)
	if !success {
		m.AcceptErrors.Add(1)
	}
}

// RecordConnect records a connect operation
func (m *Metrics) RecordConnect(success bool) {
	m.ConnectOps.Add(1)
	if !success {
		m.ConnectErrors.Add(1)
	}
}

// RecordRead records a read operation
func (m *Metrics) RecordRead(bytes uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
}

// RecordWrite records a write operation
func (m *Metrics) RecordWrite(bytes uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of the counters
type MetricsSnapshot struct {
	TasksSpawned    uint64
	TasksCompleted  uint64
	Wakes           uint64
	Parks           uint64
	ParkEvents      uint64
	Registrations   uint64
	Deregistrations uint64
	AcceptOps       uint64
	ConnectOps      uint64
	ReadOps         uint64
	WriteOps        uint64
	ReadBytes       uint64
	WriteBytes      uint64
	AcceptErrors    uint64
	ConnectErrors   uint64
	ReadErrors      uint64
	WriteErrors     uint64
	WouldBlocks     uint64
	Uptime          time.Duration
}

// Snapshot returns a consistent-enough copy of all counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TasksSpawned:    m.TasksSpawned.Load(),
		TasksCompleted:  m.TasksCompleted.Load(),
		Wakes:           m.Wakes.Load(),
		Parks:           m.Parks.Load(),
		ParkEvents:      m.ParkEvents.Load(),
		Registrations:   m.Registrations.Load(),
		Deregistrations: m.Deregistrations.Load(),
		AcceptOps:       m.AcceptOps.Load(),
		ConnectOps:      m.ConnectOps.Load(),
		ReadOps:         m.ReadOps.Load(),
		WriteOps:        m.WriteOps.Load(),
		ReadBytes:       m.ReadBytes.Load(),
		WriteBytes:      m.WriteBytes.Load(),
		AcceptErrors:    m.AcceptErrors.Load(),
		ConnectErrors:   m.ConnectErrors.Load(),
		ReadErrors:      m.ReadErrors.Load(),
		WriteErrors:     m.WriteErrors.Load(),
		WouldBlocks:     m.WouldBlocks.Load(),
		Uptime:          time.Since(time.Unix(0, m.StartTime.Load())),
	}
}
