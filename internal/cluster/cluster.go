package cluster

import (
	"fmt"
	"math/rand"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dreamware/rcluster/internal/hashslot"
	"github.com/dreamware/rcluster/internal/pool"
)

// DefaultMaxResets bounds how many topology resets a single Execute call may
// perform before giving up with a RetryCeilingError.
const DefaultMaxResets = 2

// PoolFactory constructs the pool for a node address. The default factory
// dials plain TCP pools; tests inject fakes here.
type PoolFactory func(addr string, opts pool.Options) pool.Pool

// Options configures a Cluster.
type Options struct {
	// Pool is forwarded verbatim to every pool the cluster constructs,
	// including pools created lazily during redirects and refreshes.
	Pool pool.Options

	// MaxResets bounds per-call topology resets. Values <= 0 mean
	// DefaultMaxResets. Note the ceiling check is resets > MaxResets, so a
	// call makes at most MaxResets+1 send attempts.
	MaxResets int

	// PoolFactory overrides pool construction. Nil means TCP pools.
	PoolFactory PoolFactory

	// Rand is the randomness source for the no-key fallback and for
	// topology-query node selection. Nil means a time-seeded source.
	Rand *rand.Rand
}

// DB is the dispatch capability shared by Cluster and the non-clustered
// strategies: a command, optional positional arguments (the first one, when
// present, is the routing key), and the raw reply.
type DB interface {
	Execute(cmd string, args ...interface{}) (interface{}, error)
}

// Cluster tracks the cluster topology and dispatches commands to the node
// owning each key's slot. Safe for concurrent use. See the package
// documentation for the recovery state machine.
type Cluster struct {
	opts      Options
	maxResets int

	rndMu sync.Mutex
	rnd   *rand.Rand

	// mu guards slots and pools. Refresh replaces both under one Lock so
	// readers never observe a mix of two topology snapshots.
	mu    sync.RWMutex
	slots *[hashslot.NumSlots]string
	pools map[string]pool.Pool
}

var _ DB = (*Cluster)(nil)

// New constructs a Cluster seeded from hosts, then performs an initial
// topology refresh against one of them. At least one seed host is required.
func New(hosts []HostSpec, opts Options) (*Cluster, error) {
	if len(hosts) == 0 {
		return nil, errors.New("cluster needs at least one seed host")
	}

	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	maxResets := opts.MaxResets
	if maxResets <= 0 {
		maxResets = DefaultMaxResets
	}

	c := &Cluster{
		opts:      opts,
		maxResets: maxResets,
		rnd:       rnd,
		slots:     new([hashslot.NumSlots]string),
		pools:     make(map[string]pool.Pool, len(hosts)),
	}

	for _, h := range hosts {
		addr := h.addr()
		if addr == "" {
			return nil, errors.Errorf("seed host %+v has no usable address", h)
		}
		p, err := buildHostPool(h, c.opts)
		if err != nil {
			return nil, err
		}
		c.pools[addr] = p
	}

	if err := c.Refresh(); err != nil {
		return nil, errors.Wrap(err, "initial topology refresh")
	}
	return c, nil
}

// Execute routes cmd to the node owning its key's slot and returns the raw
// reply. The first element of args, when present, is the routing key;
// commands with no arguments go to an arbitrary node.
//
// MOVED and ASK redirects and connection errors are recovered transparently
// within the reset ceiling; every other error propagates unchanged.
func (c *Cluster) Execute(cmd string, args ...interface{}) (interface{}, error) {
	var key string
	if len(args) > 0 {
		key = routingKey(args[0])
	}

	var (
		target string // explicit address carried over from a redirect
		asking bool
		resets int
	)
	for {
		var p pool.Pool
		var err error
		if target == "" {
			p, err = c.poolForKey(key)
		} else {
			p, err = c.resolve(target)
		}
		if err != nil {
			return nil, err
		}

		if asking {
			// The target only honors one redirected command per ASKING.
			asking = false
			if _, err := p.Execute("ASKING"); err != nil {
				return nil, err
			}
		}

		reply, err := p.Execute(cmd, args...)
		if err == nil {
			return reply, nil
		}

		msg := err.Error()
		switch {
		case strings.HasPrefix(msg, "ASK "), strings.HasPrefix(msg, "MOVED "):
			addr := redirectAddr(msg)
			if addr == "" {
				return nil, &RedirectError{}
			}
			if target, err = c.recover(p, addr, &resets); err != nil {
				return nil, err
			}
			asking = strings.HasPrefix(msg, "ASK ")
		default:
			var respErr *pool.ResponseError
			if errors.As(err, &respErr) {
				// Command-level failure, not a topology problem.
				return nil, err
			}
			// Connection error: the topology is likely stale. Refresh and
			// re-route from the key on the next iteration.
			if target, err = c.recover(p, "", &resets); err != nil {
				return nil, err
			}
		}
	}
}

// recover runs the shared recovery step: bound the retry, drop the failing
// pool, refresh the topology, and when the failure was a redirect, check the
// named address against the refreshed topology.
func (c *Cluster) recover(failed pool.Pool, redirect string, resets *int) (string, error) {
	*resets++
	if *resets > c.maxResets {
		return "", &RetryCeilingError{Resets: *resets}
	}

	c.evict(failed.Addr())

	if err := c.Refresh(); err != nil {
		return "", err
	}

	if redirect == "" {
		return "", nil
	}
	c.mu.RLock()
	_, known := c.pools[redirect]
	c.mu.RUnlock()
	if !known {
		return "", &RedirectError{Addr: redirect}
	}
	return redirect, nil
}

// Refresh queries an arbitrary known node for the cluster's slot layout and
// atomically replaces the slot table and pool registry with the result.
// Pools for surviving addresses are reused; pools for departed addresses are
// dropped from the registry but left connected, since callers may still hold
// in-flight requests against them (evict handles those separately).
func (c *Cluster) Refresh() error {
	seed, err := c.randomPool()
	if err != nil {
		return err
	}

	reply, err := seed.Execute("CLUSTER", "SLOTS")
	if err != nil {
		return errors.Wrap(err, "topology query")
	}
	entries, ok := reply.([]interface{})
	if !ok {
		return &TopologyError{Reason: fmt.Sprintf("reply is %T, not an array", reply)}
	}

	// Build the replacement table fully off to the side before publishing.
	slots := new([hashslot.NumSlots]string)
	addrs := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		rng, ok := entry.([]interface{})
		if !ok || len(rng) < 3 {
			return &TopologyError{Reason: "malformed slot range entry"}
		}
		start, ok1 := respInt(rng[0])
		end, ok2 := respInt(rng[1])
		master, ok3 := rng[2].([]interface{})
		if !ok1 || !ok2 || !ok3 || len(master) < 2 {
			return &TopologyError{Reason: "malformed slot range entry"}
		}
		host, ok4 := respText(master[0])
		port, ok5 := respInt(master[1])
		if !ok4 || !ok5 {
			return &TopologyError{Reason: "malformed master address"}
		}
		if start < 0 || end >= hashslot.NumSlots || start > end {
			return &TopologyError{Reason: fmt.Sprintf("slot range [%d, %d] out of bounds", start, end)}
		}

		addr := joinAddr(host, port)
		for i := start; i <= end; i++ {
			slots[i] = addr
		}
		addrs[addr] = struct{}{}
	}

	// Pool construction performs no I/O, so building registry entries under
	// the lock is cheap and leaves no window for a duplicate pool to leak
	// live connections.
	c.mu.Lock()
	defer c.mu.Unlock()

	pools := make(map[string]pool.Pool, len(addrs))
	for addr := range addrs {
		if p, ok := c.pools[addr]; ok {
			pools[addr] = p
			continue
		}
		p, err := c.buildPool(addr)
		if err != nil {
			return err
		}
		pools[addr] = p
	}
	c.slots = slots
	c.pools = pools
	return nil
}

// Nodes returns the currently known node addresses, sorted. Diagnostic only;
// the listing may be stale the moment it is returned.
func (c *Cluster) Nodes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make([]string, 0, len(c.pools))
	for addr := range c.pools {
		nodes = append(nodes, addr)
	}
	sort.Strings(nodes)
	return nodes
}

// Close disconnects every pool. The cluster is unusable afterwards.
func (c *Cluster) Close() {
	c.mu.Lock()
	pools := c.pools
	c.pools = make(map[string]pool.Pool)
	c.slots = new([hashslot.NumSlots]string)
	c.mu.Unlock()

	for _, p := range pools {
		p.Disconnect()
	}
}

// poolForKey picks the pool for a routing key. An empty key goes to an
// arbitrary node; a key whose slot has no known owner is a RoutingError.
func (c *Cluster) poolForKey(key string) (pool.Pool, error) {
	if key == "" {
		return c.randomPool()
	}

	slot := hashslot.Slot(key)
	c.mu.RLock()
	addr := c.slots[slot]
	c.mu.RUnlock()

	if addr == "" {
		return nil, &RoutingError{Key: key}
	}
	return c.resolve(addr)
}

// resolve returns the pool for addr, constructing and registering one if
// none exists. Idempotent; under a construction race the first writer wins.
func (c *Cluster) resolve(addr string) (pool.Pool, error) {
	c.mu.RLock()
	p, ok := c.pools[addr]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pools[addr]; ok {
		return p, nil
	}
	p, err := c.buildPool(addr)
	if err != nil {
		return nil, err
	}
	c.pools[addr] = p
	return p, nil
}

// evict disconnects and removes the pool for addr. A no-op for unknown
// addresses, so concurrent recoveries against the same node are safe.
func (c *Cluster) evict(addr string) {
	c.mu.Lock()
	p, ok := c.pools[addr]
	if ok {
		delete(c.pools, addr)
	}
	c.mu.Unlock()

	if ok {
		p.Disconnect()
	}
}

// randomPool picks an arbitrary known pool, used for topology discovery and
// for unkeyed commands. Addresses are sorted before selection so an injected
// randomness source makes the choice fully deterministic.
func (c *Cluster) randomPool() (pool.Pool, error) {
	c.mu.RLock()
	addrs := make([]string, 0, len(c.pools))
	for addr := range c.pools {
		addrs = append(addrs, addr)
	}
	c.mu.RUnlock()

	if len(addrs) == 0 {
		return nil, errors.New("cluster has no known nodes")
	}
	sort.Strings(addrs)

	c.rndMu.Lock()
	addr := addrs[c.rnd.Intn(len(addrs))]
	c.rndMu.Unlock()

	return c.resolve(addr)
}

// buildPool constructs the pool for an address discovered at runtime, via
// the configured factory or a plain TCP pool.
func (c *Cluster) buildPool(addr string) (pool.Pool, error) {
	if c.opts.PoolFactory != nil {
		return c.opts.PoolFactory(addr, c.opts.Pool), nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "node address %q", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errors.Wrapf(err, "node address %q", addr)
	}
	return pool.New(host, port, c.opts.Pool), nil
}

// routingKey renders the first positional argument as the routing key.
func routingKey(arg interface{}) string {
	switch k := arg.(type) {
	case string:
		return k
	case []byte:
		return string(k)
	default:
		return fmt.Sprint(arg)
	}
}

// redirectAddr extracts the target address from a redirect message of the
// form "MOVED 3999 127.0.0.1:6381" or "ASK 3999 127.0.0.1:6381": the third
// whitespace-delimited token. Returns "" for anything shorter.
func redirectAddr(msg string) string {
	fields := strings.Fields(msg)
	if len(fields) < 3 {
		return ""
	}
	return fields[2]
}

// respInt coerces a topology reply element to an int.
func respInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// respText coerces a topology reply element to text; bulk strings arrive
// from the wire as raw bytes.
func respText(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
