package fos

import (
	"fmt"
	"os"
	"time"
)

// Default tunables, mirroring the teacher's DefaultXxx constant style
// (config.go) but scoped to what spec.md §6 and §5 actually require.
const (
	// DefaultListen is the default bind address (spec §6: "Default bind port 8080").
	DefaultListen = ":8080"
	// DefaultRPCPath is the default mount point for the JSON-RPC endpoint.
	DefaultRPCPath = "/fos"
	// DefaultMaxBodyBytes is the request body cap spec §4.5 recommends.
	DefaultMaxBodyBytes = 32 << 20
	// DefaultLeaseTTL is the value Validate gives an unset Config.LeaseTTL.
	DefaultLeaseTTL = 30 * time.Second
	// DefaultCoordinatorDialTimeout bounds coordinator connection setup and
	// per-command round-trips (spec §5: "per-op timeout 2s").
	DefaultCoordinatorDialTimeout = 2 * time.Second
	// DefaultCoordinatorPoolSize is the recommended pool ceiling from spec §5
	// ("maxTotal ≈ 100"), trimmed to a sane default for a single process.
	DefaultCoordinatorPoolSize = 20
)

// Config is the fully resolved, validated configuration for a fos server.
// Field-by-field, it implements the precedence table in spec.md §6: every
// value here has already been reconciled from CLI arg, environment
// variable, and process property, in that order — reconciliation happens in
// cmd/fos, not here. Config.Validate only asserts the result is usable.
type Config struct {
	// RootDir is the filesystem root every caller path is resolved against
	// (spec §6 "root dir": "Must exist, be a directory").
	RootDir string
	// CoordinatorHost/Port/Password address the external lock coordinator
	// (spec §6 "coord host/port/secret").
	CoordinatorHost     string
	CoordinatorPort     int
	CoordinatorPassword string
	// CoordinatorBackend selects which internal/coordinator implementation
	// to construct. "redis" talks to CoordinatorHost/Port/Password; "disk"
	// and "memory" need neither and exist for single-host operation and
	// tests (spec.md is silent on this axis; it only mandates "a
	// Redis-compatible store" as the example, not the only option).
	CoordinatorBackend string

	// Listen is the HTTP bind address (spec §6 "Default bind port 8080").
	Listen string
	// RPCPath overrides the default RPC mount point (spec §4.5: "path
	// configurable, default /fos").
	RPCPath string
	// MaxBodyBytes caps request bodies (spec §4.5: "recommended: 32 MiB").
	MaxBodyBytes int64
	// LeaseTTL is defaulted by Validate but not passed on by NewServer:
	// appends always request fileops.DefaultLeaseTTL (30s).
	LeaseTTL time.Duration
	// TracingEnabled turns on otelhttp span instrumentation.
	TracingEnabled bool
	// MetricsListen, when non-empty, mounts Prometheus metrics at /metrics
	// on the main HTTP listener; its value is not used as an address or
	// path. Empty disables metrics.
	MetricsListen string
}

// Validate fills in defaults and fails fast on anything spec §6 requires but
// the caller omitted or supplied invalid, matching the teacher's
// fill-then-validate Config.Validate style.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("config: root dir is required")
	}
	info, err := os.Stat(c.RootDir)
	if err != nil {
		return fmt.Errorf("config: root dir %q: %w", c.RootDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("config: root dir %q is not a directory", c.RootDir)
	}

	switch c.CoordinatorBackend {
	case "", "redis":
		c.CoordinatorBackend = "redis"
		if c.CoordinatorHost == "" {
			return fmt.Errorf("config: coordinator host is required for the redis backend")
		}
		if c.CoordinatorPort <= 0 || c.CoordinatorPort > 65535 {
			return fmt.Errorf("config: coordinator port must be in [1, 65535], got %d", c.CoordinatorPort)
		}
		if c.CoordinatorPassword == "" {
			return fmt.Errorf("config: coordinator password is required for the redis backend")
		}
	case "disk", "memory":
		// Neither needs host/port/password; spec.md's coordinator keys are
		// specific to the redis-compatible wire backend it names explicitly.
	default:
		return fmt.Errorf("config: unknown coordinator backend %q (want redis, disk, or memory)", c.CoordinatorBackend)
	}

	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.RPCPath == "" {
		c.RPCPath = DefaultRPCPath
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	return nil
}
