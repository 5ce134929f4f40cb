package fos

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Fatal("expected error for missing root dir")
	}
}

func TestServerStartServeShutdown(t *testing.T) {
	cfg := Config{
		RootDir:            t.TempDir(),
		CoordinatorBackend: "memory",
		Listen:             "127.0.0.1:0",
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.WaitUntilReady(ctx); err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}

	addr := srv.ListenerAddr()
	if addr == nil {
		t.Fatal("expected non-nil listener address once ready")
	}

	reqBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "getFileInfo",
		"params":  map[string]any{"path": "/"},
		"id":      1,
	})
	resp, err := http.Post("http://"+addr.String()+DefaultRPCPath, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	// A second Shutdown must be a no-op.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
