// Package timeouts defines shared timeout constants for the scripts service.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// DataFetch caps a single view-session fetch of the situations resource.
const DataFetch = 10 * time.Second

// SessionIdle is how long a view session may sit unused before it is
// unmounted.
const SessionIdle = 30 * time.Minute

// SessionSweep is the interval between idle view-session sweeps.
const SessionSweep = time.Minute
