package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/fos/internal/clock"
	"pkt.systems/fos/internal/coordinator/memory"
	"pkt.systems/fos/internal/rpcerr"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	backend := memory.New()
	c := New(backend, "test-host")

	lease, err := c.Acquire(context.Background(), "file:a.txt", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lease.Key != "file:a.txt" {
		t.Fatalf("unexpected key %q", lease.Key)
	}
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	// A second release must be a no-op.
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("second Release returned error: %v", err)
	}
}

func TestAcquireContendedThenReleased(t *testing.T) {
	backend := memory.New()
	c := New(backend, "test-host")
	ctx := context.Background()

	first, err := c.Acquire(ctx, "file:b.txt", time.Minute)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	mc := clock.NewManual(time.Now())
	c2 := New(backend, "test-host-2").WithClock(mc)
	done := make(chan error, 1)
	go func() {
		_, err := c2.Acquire(ctx, "file:b.txt", time.Minute)
		done <- err
	}()

	// Let the contender observe contention and start its first backoff sleep.
	time.Sleep(20 * time.Millisecond)
	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	mc.Advance(RetryBase)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second Acquire after release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Acquire did not complete")
	}
}

func TestAcquireExhaustsRetriesWhenHeld(t *testing.T) {
	backend := memory.New()
	holder := New(backend, "holder")
	ctx := context.Background()
	if _, err := holder.Acquire(ctx, "file:c.txt", time.Minute); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}

	mc := clock.NewManual(time.Now())
	contender := New(backend, "contender").WithClock(mc)
	done := make(chan error, 1)
	go func() {
		_, err := contender.Acquire(ctx, "file:c.txt", time.Minute)
		done <- err
	}()

	for i := 0; i < MaxAttempts; i++ {
		time.Sleep(10 * time.Millisecond)
		mc.Advance(time.Duration(MaxAttempts) * RetryBase)
	}

	select {
	case err := <-done:
		if !rpcerr.Is(err, rpcerr.LockUnavailable) {
			t.Fatalf("expected LockUnavailable, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return")
	}
}

func TestAcquireCancellationDuringBackoff(t *testing.T) {
	backend := memory.New()
	holder := New(backend, "holder")
	ctx := context.Background()
	if _, err := holder.Acquire(ctx, "file:d.txt", time.Minute); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	contender := New(backend, "contender")
	done := make(chan error, 1)
	go func() {
		_, err := contender.Acquire(cctx, "file:d.txt", time.Minute)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !rpcerr.Is(err, rpcerr.LockUnavailable) {
			t.Fatalf("expected LockUnavailable on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestConcurrentAcquireOnlyOneWinnerAtATime(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	const workers = 20
	var wg sync.WaitGroup
	var successes int64
	var holders, maxHolders int
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := New(backend, "w")
			lease, err := c.Acquire(ctx, "file:e.txt", 50*time.Millisecond)
			if err != nil {
				return
			}
			mu.Lock()
			successes++
			holders++
			if holders > maxHolders {
				maxHolders = holders
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			holders--
			mu.Unlock()
			_ = lease.Release(ctx)
		}(i)
	}
	wg.Wait()
	if successes == 0 {
		t.Fatal("no worker acquired the lease")
	}
	if maxHolders > 1 {
		t.Fatalf("%d workers held the lease at the same time", maxHolders)
	}
}
