// Package cluster implements the routing core of a client for a sharded,
// replicated key-value store whose keyspace is divided into 16384 hash slots
// distributed across cluster nodes.
//
// # Overview
//
// Given a command and an optional routing key, the package determines which
// node currently owns the key's slot, dispatches the command to that node's
// connection pool, and transparently recovers when the cluster's
// slot-to-node assignment changes (resharding, failover) by reacting to
// server-issued MOVED and ASK redirects.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                  Cluster                     │
//	├──────────────────────────────────────────────┤
//	│  slots:  [16384]addr   slot → owning node    │
//	│  pools:  map[addr]Pool lazy, one per node    │
//	├──────────────────────────────────────────────┤
//	│  Key → Slot → Addr → Pool → Execute          │
//	│  "user:1" → 8106 → "10.0.0.2:6379" → reply   │
//	└──────────────────────────────────────────────┘
//
// The slot table is rebuilt wholesale from a CLUSTER SLOTS query and
// published together with the refreshed pool registry as a single atomic
// swap: readers either see the old topology or the new one, never a mix of
// the two. Slot ownership in a queried snapshot is only valid as a whole, so
// the table is never patched incrementally.
//
// # Dispatch and recovery
//
// Execute runs a bounded retry loop:
//
//   - Success: the reply is returned.
//   - "ASK host:port": a slot migration is in progress. The target pool is
//     sent a bare ASKING command, then the original command, once.
//   - "MOVED host:port": slot ownership changed permanently. The topology is
//     refreshed and the command retried against the named node.
//   - Connection error: the failing node's pool is disconnected and evicted,
//     the topology refreshed, and the command re-routed from its key.
//   - Any other server error: propagated unchanged, never retried.
//
// Each recovery increments a per-call reset counter; once it exceeds the
// configured ceiling the call fails with RetryCeilingError. A redirect
// naming an address the refreshed topology does not corroborate fails with
// RedirectError rather than being dialed blindly.
//
// # Concurrency Model
//
// A single Cluster is safe for concurrent use:
//   - The slot table and pool registry are guarded by an RWMutex; refresh
//     builds the replacement off to the side and swaps under the write lock.
//   - No locks are held during network I/O.
//   - Concurrent recoveries may each trigger a refresh; this is wasteful but
//     safe, since every swap is self-consistent.
//   - Eviction is idempotent and pool construction is race-tolerant: pools
//     dial lazily, so a pool constructed and immediately superseded holds no
//     connections to leak.
//
// # Non-clustered strategies
//
// SingleDB and RoundRobinDB implement the same DB interface without any
// topology awareness, for single-node and fan-out deployments.
package cluster
