package remote

import (
	"time"
)

// DataSource selects where a read is served from.
type DataSource uint8

const (
	// SourceCache reads the server's cached value for the item.
	SourceCache DataSource = 1

	// SourceDevice forces a read from the underlying device.
	SourceDevice DataSource = 2
)

// String returns the data source name.
func (d DataSource) String() string {
	switch d {
	case SourceCache:
		return "CACHE"
	case SourceDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// ReadBatch holds the parallel per-item arrays returned by a synchronous
// read. All slices have the same length, indexed by the position of the
// corresponding server handle in the request.
type ReadBatch struct {
	Values     []any
	Errors     []int32
	Qualities  []uint16
	Timestamps []time.Time
}

// Callback is a completed asynchronous refresh delivered on the Source's
// callback channel. The parallel slices are indexed together.
type Callback struct {
	// TransactionID correlates the callback to the refresh that produced it.
	TransactionID uint16

	// Group is the sub-group the refresh was issued against.
	Group string

	// ClientHandles identifies the items; the session resolves them back to
	// tag names through its handle registry.
	ClientHandles []uint32

	Values     []any
	Qualities  []uint16
	Timestamps []time.Time
}

// Source is the remote OPC data source collaborator.
//
// Implementations are not required to be safe for concurrent use; the
// session serializes all calls. Per-item failures are reported through the
// returned error-code slices, while a non-nil error means the operation
// itself failed and the caller must treat the whole call as fatal.
type Source interface {
	// Connect establishes the connection to the named server on host.
	Connect(server, host string) error

	// Disconnect tears down the connection.
	Disconnect() error

	// AddGroup creates a subscription group. updateRate is the requested
	// group update rate; a negative value leaves the server default.
	AddGroup(name string, updateRate time.Duration) error

	// RemoveGroup removes a subscription group and all of its items.
	RemoveGroup(name string) error

	// Validate checks tag names against the server's address space and
	// returns one error code per tag (0 = valid).
	Validate(group string, tags []string) ([]int32, error)

	// AddItems adds tags to a group under the given client handles. It
	// returns a server handle and an error code per tag; items whose code
	// is non-zero were not added.
	AddItems(group string, tags []string, clientHandles []uint32) (serverHandles []uint32, errorCodes []int32, err error)

	// RemoveItems removes items from a group by server handle.
	RemoveItems(group string, serverHandles []uint32) ([]int32, error)

	// SyncRead reads the items synchronously from the given data source.
	SyncRead(group string, source DataSource, serverHandles []uint32) (*ReadBatch, error)

	// SyncWrite writes values to the items and returns an error code per item.
	SyncWrite(group string, serverHandles []uint32, values []any) ([]int32, error)

	// AsyncRefresh requests an asynchronous refresh of the whole group from
	// the given data source. Completion arrives on the Callbacks channel
	// tagged with transactionID.
	AsyncRefresh(group string, source DataSource, transactionID uint16) error

	// Callbacks returns the channel on which completed asynchronous
	// refreshes are delivered, in completion order.
	Callbacks() <-chan Callback

	// ErrorString returns the server's descriptive text for an error code.
	ErrorString(code int32) string
}
