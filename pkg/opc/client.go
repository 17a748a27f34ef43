package opc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openda-project/openda-go/pkg/remote"
	"github.com/openda-project/openda-go/pkg/trace"
)

// HealthReader serves @-prefixed system health pseudo-tags. Health tags
// never reach the remote source; Read routes them here.
type HealthReader interface {
	Read(tags []string) ([]Reading, error)
}

// Client is one logical session against a remote OPC data source.
//
// All group, tag, and handle bookkeeping is private to the session; there
// is no process-wide state. A Client is not safe for concurrent use.
type Client struct {
	src    remote.Source
	tracer trace.Logger
	health HealthReader

	guid       string
	clientName string

	server string
	host   string

	connected bool

	// txID is the wrapping transaction counter for asynchronous refreshes.
	txID uint16

	// anonSeq names the transient anonymous groups.
	anonSeq uint64

	handles *handleRegistry
	items   *itemManager
	groups  *groupManager
}

// Option configures a Client.
type Option func(*Client)

// WithTraceLogger records every remote operation on the given logger.
func WithTraceLogger(l trace.Logger) Option {
	return func(c *Client) { c.tracer = l }
}

// WithHealthReader routes @-prefixed health tags to h.
func WithHealthReader(h HealthReader) Option {
	return func(c *Client) { c.health = h }
}

// WithClientName sets the client name reported to peers (some servers use
// it for security).
func WithClientName(name string) Option {
	return func(c *Client) { c.clientName = name }
}

// NewClient creates a session over the given remote source. The session is
// not connected until Connect is called.
func NewClient(src remote.Source, opts ...Option) *Client {
	c := &Client{
		src:    src,
		tracer: trace.NoopLogger{},
		guid:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.handles = newHandleRegistry()
	c.items = &itemManager{src: src, handles: c.handles, emit: c.emit}
	c.groups = newGroupManager(src, c.items, c.handles, c.emit)
	return c
}

// GUID returns the session's unique identifier.
func (c *Client) GUID() string {
	return c.guid
}

// ClientName returns the configured client name.
func (c *Client) ClientName() string {
	return c.clientName
}

// ServerName returns the server the session is connected to.
func (c *Client) ServerName() string {
	return c.server
}

// Connect establishes the connection to the named server on host (empty
// host means localhost). Connecting, including reconnecting after a
// connection loss, invalidates every cached group and handle: the
// server-side groups from any previous connection no longer exist.
func (c *Client) Connect(server, host string) error {
	if host == "" {
		host = "localhost"
	}

	start := time.Now()
	err := c.src.Connect(server, host)
	c.emit(trace.Event{
		Op:       trace.OpConnect,
		Duration: time.Since(start),
		Error:    errString(err),
	})
	if err != nil {
		return &RemoteError{Op: "Connect", Err: err}
	}

	c.server = server
	c.host = host
	c.connected = true

	c.groups.invalidate()
	c.handles.reset()
	return nil
}

// Close removes all live groups and disconnects from the server. It is a
// no-op on an unconnected session.
func (c *Client) Close() error {
	if !c.connected {
		return nil
	}

	removeErr := c.groups.remove(c.groups.names()...)

	start := time.Now()
	err := c.src.Disconnect()
	c.emit(trace.Event{
		Op:       trace.OpDisconnect,
		Duration: time.Since(start),
		Error:    errString(err),
	})

	c.connected = false
	c.groups.invalidate()
	c.handles.reset()

	if removeErr != nil {
		return removeErr
	}
	if err != nil {
		return &RemoteError{Op: "Disconnect", Err: err}
	}
	return nil
}

// Groups returns the active named groups, sorted.
func (c *Client) Groups() []string {
	return c.groups.names()
}

// Remove tears down the named groups and purges all of their sub-groups
// and handle entries. Names not present are ignored.
func (c *Client) Remove(names ...string) error {
	if !c.connected {
		return ErrNotConnected
	}
	return c.groups.remove(names...)
}

// nextTransactionID mints the transaction ID for the next asynchronous
// refresh. The counter is 16 bits and wraps before exceeding 0xFFFF.
func (c *Client) nextTransactionID() uint16 {
	if c.txID >= 0xFFFF {
		c.txID = 0
	}
	c.txID++
	return c.txID
}

// nextAnonGroup names a transient anonymous sub-group.
func (c *Client) nextAnonGroup() string {
	c.anonSeq++
	return fmt.Sprintf("_anon.%d", c.anonSeq)
}

// emit fills in session identity and forwards the event to the tracer.
func (c *Client) emit(ev trace.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.SessionID = c.guid
	c.tracer.Log(ev)
}

// isHealthTag reports whether a tag is a system-health pseudo-tag.
func isHealthTag(tag string) bool {
	return strings.HasPrefix(tag, "@")
}

// checkTags validates the shape of a tags argument.
func checkTags(tags []string) error {
	if len(tags) == 0 {
		return &InputError{Reason: "tags must be a non-empty list of tag names"}
	}
	for _, tag := range tags {
		if tag == "" {
			return &InputError{Reason: "tags must not contain empty names"}
		}
	}
	return nil
}

// chunkTags splits tags into chunks of at most size tags, preserving
// order. A non-positive size yields a single chunk.
func chunkTags(tags []string, size int) [][]string {
	if size <= 0 || size >= len(tags) {
		return [][]string{tags}
	}
	chunks := make([][]string, 0, (len(tags)+size-1)/size)
	for start := 0; start < len(tags); start += size {
		end := start + size
		if end > len(tags) {
			end = len(tags)
		}
		chunks = append(chunks, tags[start:end])
	}
	return chunks
}
