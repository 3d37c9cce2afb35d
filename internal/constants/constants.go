package constants

// Default configuration constants
const (
	// DefaultEventBufferSize is the number of kernel events decoded per park
	DefaultEventBufferSize = 1024

	// DefaultBacklog is the listen(2) backlog for new listeners
	DefaultBacklog = 128

	// DefaultReadyQueueCapacity is the initial capacity of the ready queue
	DefaultReadyQueueCapacity = 64

	// DefaultSlabCapacity is the initial capacity of the fd registration slab
	DefaultSlabCapacity = 64
)

// ParkIndefinite blocks the park call until at least one event arrives.
const ParkIndefinite = -1
