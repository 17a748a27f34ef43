package opc

import "time"

// Result status strings.
const (
	// StatusSuccess marks a write that validated, added, and wrote cleanly.
	StatusSuccess = "Success"

	// StatusError marks a write that failed at any stage.
	StatusError = "Error"

	// QualityError is the quality reported for a tag that produced no
	// usable value (failed validation, failed add, or a per-tag read error).
	QualityError = "Error"
)

// Reading is the per-tag result of a read.
type Reading struct {
	// Tag is the requested tag name.
	Tag string

	// Value is the observed value, or nil when Quality is "Error".
	Value any

	// Quality is the mapped OPC quality string ("Good", "Bad", ...), or
	// "Error" when no usable value was observed.
	Quality string

	// Timestamp is the server timestamp, stringified; empty on error.
	Timestamp string

	// Error carries the remote error text for this tag. Populated only
	// when the read requested error detail.
	Error string
}

// TagValue pairs a tag with the value to write.
type TagValue struct {
	Tag   string
	Value any
}

// WriteResult is the per-tag result of a write.
type WriteResult struct {
	// Tag is the requested tag name.
	Tag string

	// Status is StatusSuccess or StatusError.
	Status string

	// Error carries the first available remote error text for this tag.
	// Populated only when the write requested error detail.
	Error string
}

// SourceMode selects the read policy for the data source.
type SourceMode uint8

const (
	// SourceHybrid reads from cache when the group already existed
	// unmodified, and from the device otherwise. This is the default.
	SourceHybrid SourceMode = iota

	// SourceCache reads the server's cached values.
	SourceCache

	// SourceDevice forces reads from the underlying device.
	SourceDevice
)

// DefaultTimeout bounds the wait for an asynchronous refresh callback.
const DefaultTimeout = 5000 * time.Millisecond

// ReadOptions configures a read.
type ReadOptions struct {
	// Group binds the read to a persistent named group. Empty means an
	// anonymous single-use group, created and destroyed within the call.
	Group string

	// Size splits the tag set into sub-groups of at most Size tags.
	// Zero or negative means one sub-group.
	Size int

	// Pause is the delay inserted between sub-group reads, to throttle
	// load on the server.
	Pause time.Duration

	// Source selects the read policy. Zero value is SourceHybrid.
	Source SourceMode

	// UpdateRate is the requested group update rate when a group is
	// created. Zero leaves the server default.
	UpdateRate time.Duration

	// Timeout bounds the wait for the asynchronous refresh callback.
	// Zero means DefaultTimeout.
	Timeout time.Duration

	// Sync selects the synchronous read protocol.
	Sync bool

	// IncludeError requests per-tag error text in the results. Error
	// detail is only available synchronously, so this forces Sync.
	IncludeError bool

	// Rebuild reconciles an existing group's item set against the
	// requested tags before reading.
	Rebuild bool
}

// WriteOptions configures a write.
type WriteOptions struct {
	// Size splits the pairs into transient groups of at most Size tags.
	// Zero or negative means one group.
	Size int

	// Pause is the delay inserted between group writes.
	Pause time.Duration

	// IncludeError requests per-tag error text in the results.
	IncludeError bool
}
