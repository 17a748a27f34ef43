// Package opc implements the client session core for an OPC-DA style tag
// data source: group lifecycle, item subscription bookkeeping, and the
// dual-mode (synchronous/asynchronous) read and write protocol.
//
// A Client is a single logical session against one remote data source.
// Callers read and write named process variables ("tags"), optionally bound
// to a persistent named group. Large tag sets are split into fixed-size
// sub-groups, which are the unit the server actually tracks.
//
// # Groups and handles
//
// Each sub-group carries three correlated identity spaces: the tag name, a
// session-assigned client handle, and a server-assigned server handle. The
// session keeps these maps consistent with the set of items actually live on
// the server; reads and writes only ever touch tags that passed validation
// and were successfully added.
//
// # Synchronous vs. asynchronous reads
//
// Synchronous reads block on the server and return per-tag error detail.
// Asynchronous reads issue a refresh tagged with a 16-bit transaction ID and
// block until the matching callback arrives on the source's callback
// channel, or until the timeout elapses. Stale callbacks from abandoned
// transactions are discarded. Only one refresh is outstanding per session at
// a time.
//
// # Concurrency
//
// A Client is not safe for concurrent use; callers must serialize calls
// into a session. The remote source is treated as a single exclusive
// connection, and reconnecting invalidates all cached group and handle
// state.
package opc
