package cluster

import (
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/dreamware/rcluster/internal/pool"
)

// Non-clustered routing strategies. Both are trivial pass-throughs with no
// topology awareness: no slot table, no redirect handling. They exist so a
// caller can swap deployments without changing the dispatch surface.

// SingleDB routes every command to one node: the first seed host.
type SingleDB struct {
	pool pool.Pool
}

var _ DB = (*SingleDB)(nil)

// NewSingleDB builds the single-node strategy from the first host in hosts.
func NewSingleDB(hosts []HostSpec, opts Options) (*SingleDB, error) {
	if len(hosts) == 0 {
		return nil, errors.New("single db needs a host")
	}
	p, err := buildHostPool(hosts[0], opts)
	if err != nil {
		return nil, err
	}
	return &SingleDB{pool: p}, nil
}

// Execute forwards the command to the node unchanged.
func (s *SingleDB) Execute(cmd string, args ...interface{}) (interface{}, error) {
	return s.pool.Execute(cmd, args...)
}

// Nodes returns the single node address.
func (s *SingleDB) Nodes() []string { return []string{s.pool.Addr()} }

// Close disconnects the pool.
func (s *SingleDB) Close() { s.pool.Disconnect() }

// RoundRobinDB rotates commands across the seed hosts in order, ignoring
// keys entirely.
type RoundRobinDB struct {
	pools []pool.Pool
	next  uint32
}

var _ DB = (*RoundRobinDB)(nil)

// NewRoundRobinDB builds the rotating strategy over all given hosts.
func NewRoundRobinDB(hosts []HostSpec, opts Options) (*RoundRobinDB, error) {
	if len(hosts) == 0 {
		return nil, errors.New("round robin db needs at least one host")
	}
	pools := make([]pool.Pool, 0, len(hosts))
	for _, h := range hosts {
		p, err := buildHostPool(h, opts)
		if err != nil {
			for _, built := range pools {
				built.Disconnect()
			}
			return nil, err
		}
		pools = append(pools, p)
	}
	return &RoundRobinDB{pools: pools}, nil
}

// Execute forwards the command to the next pool in rotation.
func (r *RoundRobinDB) Execute(cmd string, args ...interface{}) (interface{}, error) {
	n := atomic.AddUint32(&r.next, 1)
	p := r.pools[int(n-1)%len(r.pools)]
	return p.Execute(cmd, args...)
}

// Nodes returns all node addresses in the rotation, sorted.
func (r *RoundRobinDB) Nodes() []string {
	nodes := make([]string, 0, len(r.pools))
	for _, p := range r.pools {
		nodes = append(nodes, p.Addr())
	}
	sort.Strings(nodes)
	return nodes
}

// Close disconnects every pool.
func (r *RoundRobinDB) Close() {
	for _, p := range r.pools {
		p.Disconnect()
	}
}

// buildHostPool mirrors the cluster's seed pool construction for the
// non-clustered strategies.
func buildHostPool(h HostSpec, opts Options) (pool.Pool, error) {
	addr := h.addr()
	if addr == "" {
		return nil, errors.Errorf("host spec %+v has no usable address", h)
	}
	if opts.PoolFactory != nil {
		return opts.PoolFactory(addr, opts.Pool), nil
	}
	if h.URL != "" {
		return pool.FromURL(h.URL, opts.Pool)
	}
	popts := opts.Pool
	if h.DB != 0 {
		popts.DB = h.DB
	}
	return pool.New(h.Host, h.Port, popts), nil
}
