package fos

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pkt.systems/fos/internal/coordinator"
	"pkt.systems/fos/internal/coordinator/disk"
	"pkt.systems/fos/internal/coordinator/memory"
	"pkt.systems/fos/internal/coordinator/redis"
	"pkt.systems/fos/internal/fileops"
	"pkt.systems/fos/internal/httpserver"
	"pkt.systems/fos/internal/jsonrpc"
	"pkt.systems/fos/internal/metrics"
	"pkt.systems/pslog"
)

// Option configures a Server at construction time, mirroring the teacher's
// functional-options shape (server.go: WithLogger, WithBackend, WithClock).
type Option func(*options)

type options struct {
	logger pslog.Logger
	tracer trace.Tracer
	owner  string
}

// WithLogger overrides the logger used for every server component.
func WithLogger(logger pslog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer overrides the tracer used for HTTP span instrumentation. When
// unset and Config.TracingEnabled is true, otel.Tracer("pkt.systems/fos") is
// used.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithOwner overrides the owner identity embedded in lease tokens (spec
// §4.2); defaults to the process hostname.
func WithOwner(owner string) Option {
	return func(o *options) { o.owner = owner }
}

// Server wires Config's backend, coordinator, file operations, dispatcher
// and HTTP handler into one runnable unit, following the teacher's
// Server/NewServer/Start/Shutdown/Close lifecycle shape.
type Server struct {
	cfg    Config
	logger pslog.Logger

	backend     coordinator.Backend
	coordinator *coordinator.Client
	ops         *fileops.Operations
	dispatcher  *jsonrpc.Dispatcher
	metrics     *metrics.Registry
	handler     http.Handler

	httpSrv  *http.Server
	listener net.Listener

	mu       sync.Mutex
	shutdown bool
	serveErr error

	readyCh   chan struct{}
	readyOnce sync.Once
}

// NewServer validates cfg, constructs the configured coordinator backend,
// and wires the file-operations/dispatcher/HTTP-handler chain.
func NewServer(cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: pslog.NoopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	coordClient := coordinator.New(backend, o.owner)

	reg := metrics.New()
	coordClient.WithMetrics(reg)

	ops := fileops.New(cfg.RootDir, coordClient, logger.With("component", "fileops"))
	ops.WithMetrics(reg)

	dispatcher := jsonrpc.New(ops)
	dispatcher.WithMetrics(reg)

	var tracer trace.Tracer
	if cfg.TracingEnabled {
		tracer = o.tracer
		if tracer == nil {
			tracer = otel.Tracer("pkt.systems/fos")
		}
	}

	httpHandler := httpserver.New(httpserver.Config{
		RPCPath:        cfg.RPCPath,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Root:           cfg.RootDir,
		TracingEnabled: cfg.TracingEnabled,
	}, dispatcher, logger.With("component", "httpserver"), tracer)

	mux := http.NewServeMux()
	httpHandler.Register(mux)
	if cfg.MetricsListen != "" {
		mux.Handle("/metrics", reg.Handler())
	}

	httpSrv := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return context.Background()
		},
	}

	return &Server{
		cfg:         cfg,
		logger:      logger.With("component", "server"),
		backend:     backend,
		coordinator: coordClient,
		ops:         ops,
		dispatcher:  dispatcher,
		metrics:     reg,
		handler:     mux,
		httpSrv:     httpSrv,
		readyCh:     make(chan struct{}),
	}, nil
}

func newBackend(cfg Config) (coordinator.Backend, error) {
	switch cfg.CoordinatorBackend {
	case "redis":
		return redis.New(redis.Config{
			Host:        cfg.CoordinatorHost,
			Port:        cfg.CoordinatorPort,
			Password:    cfg.CoordinatorPassword,
			DialTimeout: DefaultCoordinatorDialTimeout,
			PoolSize:    DefaultCoordinatorPoolSize,
		})
	case "disk":
		return disk.New(cfg.RootDir + "/.fos-locks")
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("config: unknown coordinator backend %q", cfg.CoordinatorBackend)
	}
}

// Handler returns the underlying HTTP handler, for embedding fos inside
// another program's mux.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins serving requests and blocks until the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen (tcp %s): %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.signalReady()
	s.logger.Info("listening", "address", ln.Addr().String())

	serveErr := s.httpSrv.Serve(ln)
	s.recordServeErr(serveErr)
	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	if serveErr != nil {
		return fmt.Errorf("http serve: %w", serveErr)
	}
	return nil
}

// Shutdown gracefully stops the server and releases the coordinator
// backend. A second call is a no-op. A first call made before Start still
// shuts the HTTP server down and closes the backend.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.mu.Unlock()

	if err := s.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if l := s.listener; l != nil {
		_ = l.Close()
		s.listener = nil
	}
	if err := s.backend.Close(); err != nil {
		return err
	}
	if err := s.LastServeError(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts the server down using a background context.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}

func (s *Server) signalReady() {
	s.readyOnce.Do(func() { close(s.readyCh) })
}

// WaitUntilReady blocks until the server listener is initialized or ctx ends.
func (s *Server) WaitUntilReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListenerAddr returns the address the server is bound to, or nil if Start
// has not yet succeeded.
func (s *Server) ListenerAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) recordServeErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serveErr = err
}

// LastServeError returns the error Serve returned, if any.
func (s *Server) LastServeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}
