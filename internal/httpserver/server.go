// Package httpserver implements C5, the HTTP surface (spec §4.5): one POST
// endpoint that feeds request bodies to the JSON-RPC dispatcher (C4) and one
// GET endpoint reporting service health. Request handling, correlation-ID
// propagation, and error translation are grounded on the teacher's
// internal/httpapi.Handler (wrap/writeJSON/httpError/handleError), trimmed
// to the two routes this spec needs.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pkt.systems/fos/internal/correlation"
	"pkt.systems/fos/internal/jsonrpc"
	"pkt.systems/fos/internal/uuidv7"
	"pkt.systems/pslog"
)

const headerCorrelationID = "X-Correlation-Id"

// DefaultMaxBodyBytes is the request body cap spec §4.5 recommends (32 MiB).
const DefaultMaxBodyBytes = 32 << 20

// DefaultRPCPath is the default mount point for the JSON-RPC endpoint.
const DefaultRPCPath = "/fos"

// HealthPath is fixed by spec §6 ("Endpoints: POST /fos (RPC), GET /health").
const HealthPath = "/health"

// Config carries the tunables Handler needs beyond the dispatcher itself.
type Config struct {
	RPCPath        string
	MaxBodyBytes   int64
	Root           string
	TracingEnabled bool
}

// Handler serves the RPC and health endpoints over HTTP.
type Handler struct {
	dispatcher     *jsonrpc.Dispatcher
	logger         pslog.Logger
	rpcPath        string
	maxBodyBytes   int64
	root           string
	tracingEnabled bool
	tracer         trace.Tracer
}

// New constructs a Handler. logger may be nil, in which case pslog.NoopLogger()
// is used so downstream code never has to nil-check it.
func New(cfg Config, dispatcher *jsonrpc.Dispatcher, logger pslog.Logger, tracer trace.Tracer) *Handler {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	rpcPath := cfg.RPCPath
	if rpcPath == "" {
		rpcPath = DefaultRPCPath
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Handler{
		dispatcher:     dispatcher,
		logger:         logger,
		rpcPath:        rpcPath,
		maxBodyBytes:   maxBody,
		root:           cfg.Root,
		tracingEnabled: cfg.TracingEnabled,
		tracer:         tracer,
	}
}

// Register mounts the RPC and health routes on mux. Any other path falls
// through to mux's own 404 handling; a matched path with the wrong method
// is rejected with 405 inside the registered handler.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(h.rpcPath, h.wrap("rpc", h.handleRPC))
	mux.Handle(HealthPath, h.wrap("health", h.handleHealth))
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap centralizes span creation, correlation-ID propagation, structured
// logging and error translation around a raw handler, mirroring the
// teacher's Handler.wrap.
func (h *Handler) wrap(operation string, fn handlerFunc) http.Handler {
	spanName := "fos.http." + operation

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		var span trace.Span
		if h.tracingEnabled && h.tracer != nil {
			ctx, span = h.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(attribute.String("fos.operation", operation), attribute.String("fos.route", r.URL.Path))
			defer span.End()
		}

		ctx = correlation.Ensure(ctx)
		if corr := strings.TrimSpace(r.Header.Get(headerCorrelationID)); corr != "" {
			if normalized, ok := correlation.Normalize(corr); ok {
				ctx = correlation.Set(ctx, normalized)
			}
		}
		if !correlation.Has(ctx) {
			ctx = correlation.Set(ctx, correlation.Generate())
		}

		logger := h.logger.With("req_id", uuidv7.NewString(), "method", r.Method, "path", r.URL.Path)
		ctx = pslog.ContextWithLogger(ctx, logger)
		r = r.WithContext(ctx)

		logger.Trace("http.request.start", "remote_addr", r.RemoteAddr)

		if err := fn(w, r); err != nil {
			if span != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			if corr := correlation.ID(ctx); corr != "" {
				w.Header().Set(headerCorrelationID, corr)
			}
			logger.Debug("http.request.error", "elapsed", time.Since(start), "error", err)
			h.handleError(ctx, w, err)
			return
		}
		if span != nil {
			span.SetStatus(codes.Ok, "")
		}
		if corr := correlation.ID(ctx); corr != "" {
			w.Header().Set(headerCorrelationID, corr)
		}
		logger.Trace("http.request.complete", "elapsed", time.Since(start))
	})

	if !h.tracingEnabled {
		return handler
	}
	return otelhttp.NewHandler(handler, spanName, otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents))
}

// handleRPC implements POST <rpcPath>: body in, dispatcher result out.
func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "only POST is supported"}
	}
	if ct := contentTypeOf(r); ct != "" && ct != "application/json" && ct != "application/json-rpc" {
		return httpError{Status: http.StatusUnsupportedMediaType, Code: "unsupported_media_type", Detail: "expected application/json or application/json-rpc"}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return httpError{Status: http.StatusRequestEntityTooLarge, Code: "request_too_large", Detail: "request body exceeds the configured maximum"}
		}
		return httpError{Status: http.StatusBadRequest, Code: "body_read_error", Detail: err.Error()}
	}

	respBody, err := h.dispatcher.Handle(r.Context(), body)
	if err != nil {
		return httpError{Status: http.StatusInternalServerError, Code: "internal_error", Detail: err.Error()}
	}
	if respBody == nil {
		// Spec §4.4: a batch of only notifications produces no HTTP body.
		w.WriteHeader(http.StatusOK)
		return nil
	}
	h.writeJSON(w, http.StatusOK, json.RawMessage(respBody), nil)
	return nil
}

// handleHealth implements GET /health per spec §4.5.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "only GET is supported"}
	}
	report := buildHealthReport(h.root, correlation.ID(r.Context()))
	status := http.StatusOK
	if report.Status != "UP" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, report, map[string]string{
		"Cache-Control": "no-cache, no-store, must-revalidate",
	})
	return nil
}

func contentTypeOf(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any, headers map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}

// httpError carries everything handleError needs to emit a structured
// transport-level failure response; only used for failures the dispatcher
// itself never produces (wrong method, unsupported content type, oversized
// body) since every protocol-level error spec §7 defines is already encoded
// in-body by the dispatcher with HTTP 200, per spec §7's
// "HTTP status is 200 for any well-formed protocol exchange".
type httpError struct {
	Status int
	Code   string
	Detail string
}

func (e httpError) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

type errorResponse struct {
	ErrorCode string `json:"errorCode"`
	Detail    string `json:"detail,omitempty"`
}

func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := pslog.LoggerFromContext(ctx)
	if logger == nil {
		logger = h.logger
	}
	var httpErr httpError
	if errors.As(err, &httpErr) {
		logger.Debug("http.request.failure", "status", httpErr.Status, "code", httpErr.Code, "detail", httpErr.Detail)
		h.writeJSON(w, httpErr.Status, errorResponse{ErrorCode: httpErr.Code, Detail: httpErr.Detail}, nil)
		return
	}
	logger.Error("http.request.panic", "error", err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{ErrorCode: "internal_error", Detail: "internal server error"}, nil)
}
