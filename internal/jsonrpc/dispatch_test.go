package jsonrpc

import (
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/fos/internal/coordinator"
	"pkt.systems/fos/internal/coordinator/memory"
	"pkt.systems/fos/internal/fileops"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	root := t.TempDir()
	client := coordinator.New(memory.New(), "test")
	return New(fileops.New(root, client, nil))
}

func mustUnmarshal(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
}

func TestDispatchMalformedJSON(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`{not json`))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestDispatchInvalidRequestShape(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`"just a string"`))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", resp.Error)
	}
}

func TestDispatchEmptyBatchIsInvalidRequest(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`[]`))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", resp.Error)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"bogus","id":1}`))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestDispatchSingleNotificationProducesNoBody(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getFileInfo","params":["missing.txt"]}`))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if body != nil {
		t.Fatalf("expected nil body for notification, got %s", body)
	}
}

func TestDispatchBatchOfAllNotificationsProducesNoBody(t *testing.T) {
	d := newTestDispatcher(t)
	batch := `[{"jsonrpc":"2.0","method":"getFileInfo","params":["a"]},{"jsonrpc":"2.0","method":"getFileInfo","params":["b"]}]`
	body, err := d.Handle(context.Background(), []byte(batch))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if body != nil {
		t.Fatalf("expected nil body, got %s", body)
	}
}

func TestDispatchBatchMixedNotificationsAndRequests(t *testing.T) {
	d := newTestDispatcher(t)
	batch := `[` +
		`{"jsonrpc":"2.0","method":"create","params":["a","FILE"],"id":1},` +
		`{"jsonrpc":"2.0","method":"delete","params":["a",true]}` +
		`]`
	body, err := d.Handle(context.Background(), []byte(batch))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	var responses []Response
	mustUnmarshal(t, body, &responses)
	if len(responses) != 1 {
		t.Fatalf("expected exactly 1 response, got %d", len(responses))
	}
	result, ok := responses[0].Result.(bool)
	if !ok {
		t.Fatalf("expected bool result, got %T", responses[0].Result)
	}
	if !result {
		t.Fatalf("expected create to succeed")
	}
}

func TestDispatchCreateStatDeleteScenario(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	body, err := d.Handle(ctx, []byte(`{"jsonrpc":"2.0","method":"create","params":["test.txt","FILE"],"id":1}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error != nil {
		t.Fatalf("create failed: %+v", resp.Error)
	}

	body, err = d.Handle(ctx, []byte(`{"jsonrpc":"2.0","method":"getFileInfo","params":["test.txt"],"id":2}`))
	if err != nil {
		t.Fatalf("getFileInfo: %v", err)
	}
	mustUnmarshal(t, body, &resp)
	if resp.Error != nil {
		t.Fatalf("getFileInfo failed: %+v", resp.Error)
	}
	var entry fileops.EntryDescriptor
	entryBytes, _ := json.Marshal(resp.Result)
	mustUnmarshal(t, entryBytes, &entry)
	if entry != (fileops.EntryDescriptor{Name: "test.txt", Path: "test.txt", Size: 0}) {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	body, err = d.Handle(ctx, []byte(`{"jsonrpc":"2.0","method":"delete","params":["test.txt",true],"id":3}`))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	mustUnmarshal(t, body, &resp)
	if resp.Error != nil {
		t.Fatalf("delete failed: %+v", resp.Error)
	}
}

func TestDispatchEscapeAttemptReturnsInvalidParams(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getFileInfo","params":["../../etc/passwd"],"id":1}`))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params for path escape, got %+v", resp.Error)
	}
	if resp.Error.Data == nil || resp.Error.Data.Kind != "path_escape" {
		t.Fatalf("expected path_escape kind, got %+v", resp.Error.Data)
	}
}

func TestDispatchNamedParams(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"create","params":{"path":"named.txt","type":"FILE"},"id":1}`))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error != nil {
		t.Fatalf("create with named params failed: %+v", resp.Error)
	}
}

func TestDispatchInvalidEnumValue(t *testing.T) {
	d := newTestDispatcher(t)
	body, err := d.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"create","params":["a.txt","BOGUS"],"id":1}`))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	var resp Response
	mustUnmarshal(t, body, &resp)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params for bogus type, got %+v", resp.Error)
	}
}

func TestDispatchReadRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	run := func(reqBody string) Response {
		body, err := d.Handle(ctx, []byte(reqBody))
		if err != nil {
			t.Fatalf("Handle error: %v", err)
		}
		var resp Response
		mustUnmarshal(t, body, &resp)
		if resp.Error != nil {
			t.Fatalf("request failed: %+v, body: %s", resp.Error, reqBody)
		}
		return resp
	}
	run(`{"jsonrpc":"2.0","method":"create","params":["t","DIRECTORY"],"id":0}`)
	run(`{"jsonrpc":"2.0","method":"create","params":["t/x.txt","FILE"],"id":1}`)
	run(`{"jsonrpc":"2.0","method":"append","params":["t/x.txt","Hello"],"id":2}`)
	run(`{"jsonrpc":"2.0","method":"append","params":["t/x.txt"," world!"],"id":3}`)
	resp := run(`{"jsonrpc":"2.0","method":"read","params":["t/x.txt",0,10000],"id":4}`)
	content, ok := resp.Result.(string)
	if !ok {
		t.Fatalf("expected string result, got %T: %v", resp.Result, resp.Result)
	}
	if content != "Hello world!" {
		t.Fatalf("unexpected content: %q", content)
	}
}
