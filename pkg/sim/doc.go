// Package sim provides an in-memory simulated OPC data source.
//
// The simulator implements remote.Source entirely in process: tags are
// registered with a value and quality, groups and items are tracked the
// way a real server would track them, and asynchronous refreshes are
// served from a background goroutine after a configurable latency. It
// backs the -simulate mode of the CLI and doubles as a realistic source
// for integration-style tests.
package sim
