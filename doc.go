// Package fos exposes the Go APIs behind the single-binary file-operation
// service: a JSON-RPC surface over a sandboxed filesystem root, backed by a
// distributed lease coordinator that serializes concurrent appends across a
// fleet of instances.
//
// # Running a server
//
// The server listens on Config.Listen (default ":8080") and mounts the RPC
// endpoint at Config.RPCPath (default "/fos") alongside GET /health.
//
//	cfg := fos.Config{
//	    RootDir:             "/srv/fos-data",
//	    CoordinatorHost:     "redis.internal",
//	    CoordinatorPort:     6379,
//	    CoordinatorPassword: "...",
//	}
//	srv, err := fos.NewServer(cfg)
//	if err != nil { log.Fatal(err) }
//	go func() {
//	    if err := srv.Start(); err != nil {
//	        log.Fatalf("fos: %v", err)
//	    }
//	}()
//	defer srv.Close()
//
// # Coordinator backends
//
// Config.CoordinatorBackend selects which internal/coordinator
// implementation guards append leases:
//
//   - "redis" (default) – a Redis-compatible store, addressed by
//     CoordinatorHost/Port/Password; the only backend safe across a fleet.
//   - "disk" – advisory-locked (fcntl) files under RootDir/.fos-locks; single host only.
//   - "memory" – in-process map; tests and single-instance development only.
//
// # File operations
//
// Every call is routed through internal/pathutil before it touches the
// filesystem, so no operation can read, write, or delete outside RootDir
// regardless of the caller-supplied path. The eight operations — stat,
// list, create (file or directory), delete, move, copy, read, append — are
// implemented in internal/fileops; append is the only one that acquires a
// coordinator lease, since it is the only operation whose outcome depends
// on interleaving with concurrent writers elsewhere in the fleet.
//
// # Observability
//
// Structured logging uses pkt.systems/pslog throughout. Setting
// Config.TracingEnabled wraps every HTTP request in an OpenTelemetry span.
// Setting Config.MetricsListen exposes Prometheus metrics (RPC request
// counts/latency, file-operation outcomes, lease acquire/retry counts) at
// /metrics.
package fos
