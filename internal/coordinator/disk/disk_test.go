package disk

import (
	"context"
	"testing"
	"time"
)

func TestSetNXRejectsWhileLive(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	ok, err := s.SetNX(ctx, "file:a.txt", "token-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	ok, err = s.SetNX(ctx, "file:a.txt", "token-2", time.Minute)
	if err != nil {
		t.Fatalf("second SetNX error: %v", err)
	}
	if ok {
		t.Fatal("second SetNX should have been rejected")
	}
}

func TestSetNXAllowedAfterExpiry(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if ok, err := s.SetNX(ctx, "file:a.txt", "token-1", time.Millisecond); err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	time.Sleep(10 * time.Millisecond)
	if ok, err := s.SetNX(ctx, "file:a.txt", "token-2", time.Minute); err != nil || !ok {
		t.Fatalf("SetNX after expiry = %v, %v", ok, err)
	}
}

func TestCompareDeleteRequiresMatch(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if _, err := s.SetNX(ctx, "file:a.txt", "token-a", time.Minute); err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	if ok, err := s.CompareDelete(ctx, "file:a.txt", "token-b"); err != nil || ok {
		t.Fatalf("CompareDelete wrong token = %v, %v", ok, err)
	}
	if ok, err := s.CompareDelete(ctx, "file:a.txt", "token-a"); err != nil || !ok {
		t.Fatalf("CompareDelete correct token = %v, %v", ok, err)
	}
}

func TestCompareDeleteMissingKey(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ok, err := s.CompareDelete(context.Background(), "file:missing.txt", "token")
	if err != nil || ok {
		t.Fatalf("CompareDelete on missing key = %v, %v", ok, err)
	}
}
