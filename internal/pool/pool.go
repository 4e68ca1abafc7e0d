// Package pool provides per-node connection pools speaking the RESP wire
// protocol. A Pool owns the transport connections to exactly one node and
// exposes a single request/response primitive; everything above it (routing,
// redirects, topology) is the cluster package's problem.
package pool

import (
	"fmt"
	"time"
)

// Pool is the capability the cluster routing layer consumes: one pool per
// node address, executing commands and reporting failures as either a
// transport problem (ConnectionError) or a server-reported error
// (ResponseError).
type Pool interface {
	// Execute sends a command with its arguments to the node and returns
	// the parsed reply. Arguments may be strings, []byte, or integers;
	// anything else is rendered with fmt.Sprint.
	Execute(cmd string, args ...interface{}) (interface{}, error)

	// Disconnect closes all connections held by the pool. The pool is
	// unusable afterwards.
	Disconnect()

	// Addr returns the canonical "host:port" address of the node this
	// pool is bound to.
	Addr() string
}

// Options carries connection construction parameters. The cluster stores one
// Options value and forwards it verbatim to every pool it builds, so pools
// created lazily during redirects are configured identically to the seeds.
type Options struct {
	// DialTimeout bounds connection establishment. Zero means no timeout.
	DialTimeout time.Duration

	// ReadTimeout bounds each reply read. Zero means no timeout.
	ReadTimeout time.Duration

	// WriteTimeout bounds each command write. Zero means no timeout.
	WriteTimeout time.Duration

	// Password, when non-empty, is sent via AUTH on every new connection.
	Password string

	// DB, when non-zero, is selected via SELECT on every new connection.
	DB int

	// MaxIdle caps the number of idle connections retained per pool.
	// Zero means a small default (see defaultMaxIdle).
	MaxIdle int
}

const defaultMaxIdle = 4

// ConnectionError reports a transport-level failure talking to a node: the
// dial failed, the connection dropped mid-request, or the pool was already
// disconnected. The routing layer treats it as a topology signal.
type ConnectionError struct {
	Addr string // node the failure is attributed to
	Err  error  // underlying cause, may be nil for a closed pool
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection to %s unavailable", e.Addr)
	}
	return fmt.Sprintf("connection to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResponseError carries a server error reply. Error returns the server's
// text verbatim, because redirect handling depends on inspecting the leading
// token ("MOVED ...", "ASK ..."), so nothing is prefixed onto it.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string { return e.Message }
