// Package main implements the rcluster command line client, which dispatches
// a single command to a redis deployment and prints the reply.
//
// The client is a thin shell around the routing core. It builds a dispatch
// strategy from the configured hosts, runs one command, and renders the raw
// reply the way redis-cli would:
//
//	┌─────────────────────────────────────────┐
//	│              rcluster                    │
//	├─────────────────────────────────────────┤
//	│  Strategies:                             │
//	│    cluster      - slot-table routing     │
//	│    single       - first host only        │
//	│    round-robin  - rotate across hosts    │
//	├─────────────────────────────────────────┤
//	│  Built-ins:                              │
//	│    nodes        - list known nodes       │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - RCLUSTER_HOSTS: Comma-separated host:port pairs or redis:// URLs (required)
//   - RCLUSTER_STRATEGY: cluster | single | round-robin (default: "cluster")
//   - RCLUSTER_MAX_RESETS: Redirect retry bound for the cluster strategy
//   - RCLUSTER_PASSWORD: AUTH password sent on every new connection
//
// Example usage:
//
//	# Route a command through the cluster
//	RCLUSTER_HOSTS=10.0.0.1:7000,10.0.0.2:7000 \
//	./rcluster SET user:123 alice
//
//	# Inspect the discovered topology
//	RCLUSTER_HOSTS=10.0.0.1:7000 ./rcluster nodes
//
//	# Talk to a single non-clustered server
//	RCLUSTER_HOSTS=redis://:secret@localhost:6379/2 \
//	RCLUSTER_STRATEGY=single \
//	./rcluster GET counter
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dreamware/rcluster/internal/cluster"
	"github.com/dreamware/rcluster/internal/pool"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
// This indirection enables test code to intercept fatal errors
// without actually terminating the test process.
var logFatal = log.Fatalf

// database is the capability the command loop needs from any strategy:
// dispatch plus the diagnostic surface.
type database interface {
	Execute(cmd string, args ...interface{}) (interface{}, error)
	Nodes() []string
	Close()
}

// main reads configuration from the environment, builds the requested
// strategy, runs the command given on the command line, and prints the reply.
//
// Exit codes:
//   - 0: Command executed, reply printed
//   - 1: Missing or invalid configuration
//   - 1: Command failed
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		logFatal("usage: rcluster COMMAND [ARG...]")
	}

	hosts, err := parseHosts(mustGetenv("RCLUSTER_HOSTS"))
	if err != nil {
		logFatal("RCLUSTER_HOSTS: %v", err)
	}

	opts := cluster.Options{
		Pool: pool.Options{Password: os.Getenv("RCLUSTER_PASSWORD")},
	}
	if v := os.Getenv("RCLUSTER_MAX_RESETS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logFatal("RCLUSTER_MAX_RESETS: %v", err)
		}
		opts.MaxResets = n
	}

	db, err := buildDB(getenv("RCLUSTER_STRATEGY", "cluster"), hosts, opts)
	if err != nil {
		logFatal("connect: %v", err)
	}
	defer db.Close()

	// Built-in: list the known nodes instead of dispatching a command.
	if strings.EqualFold(args[0], "nodes") && len(args) == 1 {
		for _, addr := range db.Nodes() {
			fmt.Println(addr)
		}
		return
	}

	cmdArgs := make([]interface{}, 0, len(args)-1)
	for _, a := range args[1:] {
		cmdArgs = append(cmdArgs, a)
	}

	reply, err := db.Execute(strings.ToUpper(args[0]), cmdArgs...)
	if err != nil {
		logFatal("%v", err)
	}
	fmt.Println(formatReply(reply))
}

// buildDB constructs the dispatch strategy named by name.
func buildDB(name string, hosts []cluster.HostSpec, opts cluster.Options) (database, error) {
	switch strings.ToLower(name) {
	case "cluster":
		return cluster.New(hosts, opts)
	case "single":
		return cluster.NewSingleDB(hosts, opts)
	case "round-robin", "roundrobin":
		return cluster.NewRoundRobinDB(hosts, opts)
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// parseHosts splits a comma-separated host list into host specs. Each entry
// is either a redis:// URL or a bare host:port pair.
func parseHosts(raw string) ([]cluster.HostSpec, error) {
	var hosts []cluster.HostSpec
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "://") {
			hosts = append(hosts, cluster.HostURL(entry))
			continue
		}
		colon := strings.LastIndex(entry, ":")
		if colon < 0 {
			return nil, fmt.Errorf("entry %q is not host:port", entry)
		}
		port, err := strconv.Atoi(entry[colon+1:])
		if err != nil {
			return nil, fmt.Errorf("entry %q has a bad port: %v", entry, err)
		}
		hosts = append(hosts, cluster.HostPort(entry[:colon], port))
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts in %q", raw)
	}
	return hosts, nil
}

// formatReply renders a raw reply the way redis-cli does: bulk strings
// verbatim, integers bare, nil as "(nil)", arrays as numbered lines.
func formatReply(reply interface{}) string {
	switch r := reply.(type) {
	case nil:
		return "(nil)"
	case []byte:
		return string(r)
	case string:
		return r
	case int64:
		return strconv.FormatInt(r, 10)
	case []interface{}:
		if len(r) == 0 {
			return "(empty array)"
		}
		lines := make([]string, 0, len(r))
		for i, item := range r {
			lines = append(lines, fmt.Sprintf("%d) %s", i+1, formatReply(item)))
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprint(r)
	}
}

// getenv retrieves an environment variable with a default fallback value.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustGetenv retrieves a required environment variable, terminating the
// program if it's not set.
func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	logFatal("missing env %s", k)
	return ""
}
