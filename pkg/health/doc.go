// Package health serves the @-prefixed system health pseudo-tags.
//
// Health tags report on the client process itself rather than the remote
// server: memory usage, goroutine count, uptime, and a sanity flag. They
// are read through the same call shapes as ordinary tags but never reach
// the remote source.
package health
