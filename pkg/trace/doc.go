// Package trace provides structured capture of OPC session operations.
//
// Every primitive the session invokes on the remote data source (group
// add/remove, item validation, synchronous reads and writes, asynchronous
// refreshes and their callbacks) can be recorded as an Event. This replaces
// ad-hoc print tracing with a machine-readable operation log that can be
// replayed to diagnose handle-bookkeeping or correlation problems.
//
// # Basic Usage
//
// Sessions accept a Logger implementation:
//
//	// For development: log to console via slog
//	client := opc.NewClient(src, opc.WithTraceLogger(trace.NewSlogAdapter(slog.Default())))
//
//	// For production: write to binary file
//	fl, _ := trace.NewFileLogger("/var/log/openda/session.olog")
//	client := opc.NewClient(src, opc.WithTraceLogger(fl))
//
//	// Both: use MultiLogger
//	client := opc.NewClient(src, opc.WithTraceLogger(trace.NewMultiLogger(
//	    trace.NewSlogAdapter(slog.Default()), fl)))
//
// # File Format
//
// Log files are a stream of CBOR-encoded events (integer-keyed for
// compactness) with .olog extension. Reader iterates a file with optional
// filtering by session, operation, or time window.
package trace
