package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pkt.systems/fos/internal/fileops"
	"pkt.systems/fos/internal/metrics"
	"pkt.systems/fos/internal/rpcerr"
)

// methodHandler executes one bound RPC call and returns the value to place
// in the response's result field.
type methodHandler func(ctx context.Context, ops *fileops.Operations, fields map[string]json.RawMessage) (interface{}, error)

var methodFields = map[string][]string{
	"getFileInfo":    {"path"},
	"listDirectory":  {"path"},
	"create":         {"path", "type"},
	"delete":         {"path", "recursive"},
	"move":           {"sourcePath", "targetPath"},
	"copy":           {"sourcePath", "targetPath"},
	"append":         {"path", "data"},
	"read":           {"path", "offset", "length"},
}

var methods = map[string]methodHandler{
	"getFileInfo":   handleGetFileInfo,
	"listDirectory": handleListDirectory,
	"create":        handleCreate,
	"delete":        handleDelete,
	"move":          handleMove,
	"copy":          handleCopy,
	"append":        handleAppend,
	"read":          handleRead,
}

// Dispatcher parses JSON-RPC envelopes and routes them to file operations.
type Dispatcher struct {
	Ops *fileops.Operations
	// Metrics is optional; when set, every call to a known method,
	// notifications included, is recorded against it (invalid envelopes and
	// unknown methods are not). A nil Metrics disables instrumentation rather
	// than panicking, so existing callers (and tests) need not supply one.
	Metrics *metrics.Registry
}

// New constructs a Dispatcher bound to ops.
func New(ops *fileops.Operations) *Dispatcher {
	return &Dispatcher{Ops: ops}
}

// WithMetrics attaches a metrics registry, returning the same Dispatcher for
// chaining at construction time.
func (d *Dispatcher) WithMetrics(m *metrics.Registry) *Dispatcher {
	d.Metrics = m
	return d
}

// Handle parses body as either a single JSON-RPC request object or a
// non-empty batch array, executes every non-notification request, and
// returns the marshaled response body. A nil return with a nil error means
// the batch contained only notifications: spec §4.4 requires an empty HTTP
// body in that case.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) ([]byte, error) {
	var probe interface{}
	if err := json.Unmarshal(body, &probe); err != nil {
		return json.Marshal(Response{
			JSONRPC: Version,
			Error:   protocolError(CodeParseError, err.Error()),
			ID:      json.RawMessage("null"),
		})
	}

	switch v := probe.(type) {
	case []interface{}:
		if len(v) == 0 {
			return json.Marshal(Response{
				JSONRPC: Version,
				Error:   protocolError(CodeInvalidRequest, "batch must not be empty"),
				ID:      json.RawMessage("null"),
			})
		}
		var raws []json.RawMessage
		if err := json.Unmarshal(body, &raws); err != nil {
			return json.Marshal(Response{
				JSONRPC: Version,
				Error:   protocolError(CodeParseError, err.Error()),
				ID:      json.RawMessage("null"),
			})
		}
		return d.handleBatch(ctx, raws)
	case map[string]interface{}:
		resp, notification := d.handleOne(ctx, body)
		if notification {
			return nil, nil
		}
		return json.Marshal(resp)
	default:
		return json.Marshal(Response{
			JSONRPC: Version,
			Error:   protocolError(CodeInvalidRequest, "request must be an object or a non-empty array"),
			ID:      json.RawMessage("null"),
		})
	}
}

func (d *Dispatcher) handleBatch(ctx context.Context, raws []json.RawMessage) ([]byte, error) {
	responses := make([]Response, 0, len(raws))
	for _, raw := range raws {
		resp, notification := d.handleOne(ctx, raw)
		if notification {
			continue
		}
		responses = append(responses, resp)
	}
	if len(responses) == 0 {
		return nil, nil
	}
	return json.Marshal(responses)
}

// handleOne parses and executes a single envelope. The second return value
// is true when the envelope was a notification, in which case resp is the
// zero value and must not be emitted.
func (d *Dispatcher) handleOne(ctx context.Context, raw json.RawMessage) (resp Response, notification bool) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Response{
			JSONRPC: Version,
			Error:   protocolError(CodeInvalidRequest, err.Error()),
			ID:      json.RawMessage("null"),
		}, false
	}
	if req.JSONRPC != Version || req.Method == "" {
		return Response{
			JSONRPC: Version,
			Error:   protocolError(CodeInvalidRequest, "jsonrpc must be \"2.0\" and method must be a non-empty string"),
			ID:      emptyIDOr(req.ID),
		}, req.IsNotification()
	}

	handler, fields, ok := lookupMethod(req.Method)
	if !ok {
		resp := Response{
			JSONRPC: Version,
			Error:   protocolError(CodeMethodNotFound, req.Method),
			ID:      emptyIDOr(req.ID),
		}
		return resp, req.IsNotification()
	}

	start := time.Now()
	defer func() {
		d.observe(req.Method, start, resp.Error == nil)
	}()

	bound, err := bindParams(req.Params, fields)
	if err != nil {
		return Response{
			JSONRPC: Version,
			Error:   protocolError(CodeInvalidParams, err.Error()),
			ID:      emptyIDOr(req.ID),
		}, req.IsNotification()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		// spec §5: exceeding the request-scoped deadline maps to -32603
		// regardless of which operation was in flight; side effects already
		// committed to the filesystem are not rolled back.
		return Response{
			JSONRPC: Version,
			Error:   protocolError(CodeInternalError, ctxErr.Error()),
			ID:      emptyIDOr(req.ID),
		}, req.IsNotification()
	}

	result, err := handler(ctx, d.Ops, bound)
	if err != nil {
		var errObj *ErrorObject
		if _, ok := err.(*rpcerr.Error); ok {
			errObj = errorObjectFor(err)
		} else {
			errObj = protocolError(CodeInvalidParams, err.Error())
		}
		return Response{
			JSONRPC: Version,
			Error:   errObj,
			ID:      emptyIDOr(req.ID),
		}, req.IsNotification()
	}

	return Response{
		JSONRPC: Version,
		Result:  result,
		ID:      emptyIDOr(req.ID),
	}, req.IsNotification()
}

func lookupMethod(name string) (methodHandler, []string, bool) {
	h, ok := methods[name]
	if !ok {
		return nil, nil, false
	}
	return h, methodFields[name], true
}

func emptyIDOr(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func invalidParam(name string, reason string) error {
	return fmt.Errorf("invalid param %q: %s", name, reason)
}

// observe records one method call's latency and outcome, a no-op when no
// metrics registry is attached.
func (d *Dispatcher) observe(method string, start time.Time, ok bool) {
	if d.Metrics == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	d.Metrics.RPCRequestsTotal.WithLabelValues(method, outcome).Inc()
	d.Metrics.RPCRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
