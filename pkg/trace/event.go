package trace

import (
	"time"
)

// Event records one session operation against the remote data source.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the operation started (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the client session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Op is the operation performed.
	Op Op `cbor:"3,keyasint"`

	// Group is the sub-group the operation targeted, if any.
	Group string `cbor:"4,keyasint,omitempty"`

	// TagCount is the number of tags or items involved.
	TagCount int `cbor:"5,keyasint,omitempty"`

	// TransactionID is set for async refreshes and their callbacks.
	TransactionID uint16 `cbor:"6,keyasint,omitempty"`

	// Source is the data source used ("CACHE" or "DEVICE"), if relevant.
	Source string `cbor:"7,keyasint,omitempty"`

	// Duration is how long the operation took.
	Duration time.Duration `cbor:"8,keyasint,omitempty"`

	// Error is the failure text when the operation failed.
	Error string `cbor:"9,keyasint,omitempty"`
}

// Op identifies a session operation.
type Op uint8

const (
	// OpConnect is a connection to the remote server.
	OpConnect Op = 0
	// OpDisconnect is a disconnection from the remote server.
	OpDisconnect Op = 1
	// OpAddGroup creates a subscription group.
	OpAddGroup Op = 2
	// OpRemoveGroup removes a subscription group.
	OpRemoveGroup Op = 3
	// OpValidate validates tag names against the server.
	OpValidate Op = 4
	// OpAddItems adds items to a group.
	OpAddItems Op = 5
	// OpRemoveItems removes items from a group.
	OpRemoveItems Op = 6
	// OpSyncRead is a synchronous read.
	OpSyncRead Op = 7
	// OpSyncWrite is a synchronous write.
	OpSyncWrite Op = 8
	// OpAsyncRefresh is an asynchronous refresh request.
	OpAsyncRefresh Op = 9
	// OpCallback is a matched refresh callback.
	OpCallback Op = 10
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpConnect:
		return "CONNECT"
	case OpDisconnect:
		return "DISCONNECT"
	case OpAddGroup:
		return "ADD_GROUP"
	case OpRemoveGroup:
		return "REMOVE_GROUP"
	case OpValidate:
		return "VALIDATE"
	case OpAddItems:
		return "ADD_ITEMS"
	case OpRemoveItems:
		return "REMOVE_ITEMS"
	case OpSyncRead:
		return "SYNC_READ"
	case OpSyncWrite:
		return "SYNC_WRITE"
	case OpAsyncRefresh:
		return "ASYNC_REFRESH"
	case OpCallback:
		return "CALLBACK"
	default:
		return "UNKNOWN"
	}
}
