package cluster

import "fmt"

// The dispatcher distinguishes four failure kinds of its own, all matchable
// with errors.As. Server errors that are not redirects, and connection
// errors that exhaust the retry ceiling, propagate in their original types
// from the pool package.

// TopologyError reports a topology query whose reply was not well-formed.
// The reply is unusable for routing decisions, so the current call fails.
type TopologyError struct {
	Reason string
}

func (e *TopologyError) Error() string {
	return "unable to locate cluster slots: " + e.Reason
}

// RoutingError reports a key whose slot has no known owner: the slot table
// is stale or was never initialized, and must be refreshed before the key
// can be routed.
type RoutingError struct {
	Key string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no slot owner for key %q", e.Key)
}

// RedirectError reports a server-issued redirect naming an address that a
// fresh topology refresh did not corroborate. Such a redirect is treated as
// untrustworthy input, not silently followed.
type RedirectError struct {
	Addr string // the uncorroborated address; empty for an unparseable message
}

func (e *RedirectError) Error() string {
	if e.Addr == "" {
		return "malformed redirect message"
	}
	return fmt.Sprintf("redirect to %s not corroborated by topology", e.Addr)
}

// RetryCeilingError reports a dispatch that exceeded the configured reset
// ceiling: the cluster is in persistent flux and the call is abandoned.
type RetryCeilingError struct {
	Resets int
}

func (e *RetryCeilingError) Error() string {
	return fmt.Sprintf("too many resets (%d)", e.Resets)
}
