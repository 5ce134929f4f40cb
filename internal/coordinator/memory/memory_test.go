package memory

import (
	"context"
	"testing"
	"time"
)

func TestSetNXRejectsWhileLive(t *testing.T) {
	s := New()
	ctx := context.Background()
	ok, err := s.SetNX(ctx, "k", "v1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	ok, err = s.SetNX(ctx, "k", "v2", time.Minute)
	if err != nil {
		t.Fatalf("second SetNX error: %v", err)
	}
	if ok {
		t.Fatal("second SetNX should have been rejected")
	}
}

func TestSetNXAllowedAfterExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()
	if ok, err := s.SetNX(ctx, "k", "v1", time.Millisecond); err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	time.Sleep(5 * time.Millisecond)
	if ok, err := s.SetNX(ctx, "k", "v2", time.Minute); err != nil || !ok {
		t.Fatalf("SetNX after expiry = %v, %v", ok, err)
	}
}

func TestCompareDeleteRequiresMatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.SetNX(ctx, "k", "token-a", time.Minute); err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	ok, err := s.CompareDelete(ctx, "k", "token-b")
	if err != nil || ok {
		t.Fatalf("CompareDelete with wrong token = %v, %v", ok, err)
	}
	ok, err = s.CompareDelete(ctx, "k", "token-a")
	if err != nil || !ok {
		t.Fatalf("CompareDelete with correct token = %v, %v", ok, err)
	}
	ok, err = s.CompareDelete(ctx, "k", "token-a")
	if err != nil || ok {
		t.Fatalf("second CompareDelete should be a no-op false, got %v, %v", ok, err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete of missing key returned error: %v", err)
	}
	if _, err := s.SetNX(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
}
