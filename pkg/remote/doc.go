// Package remote defines the surface of the remote OPC data source as seen
// by the session core.
//
// The core never talks to a server directly. Everything it needs, from
// group management and item validation to synchronous reads, writes, and
// asynchronous refresh callbacks, is expressed as primitives on the Source
// interface. A production implementation would bridge these to the OPC
// automation wrapper on the machine hosting the server; pkg/sim provides an
// in-memory implementation for development and tests.
//
// # Callbacks
//
// Asynchronous refreshes complete out of band. A Source delivers completed
// refreshes, in completion order, on the channel returned by Callbacks().
// Each Callback carries the transaction ID of the refresh that produced it,
// so the session can correlate it to the request it issued. Only one refresh
// is outstanding per session at a time, so FIFO delivery suffices.
//
// # Error codes
//
// Per-item operations (validate, add, remove, read, write) report an OPC
// HRESULT per item. Zero means success; anything else excludes the item from
// further processing but never aborts the batch. ErrorString turns a code
// into the server's descriptive text.
package remote
