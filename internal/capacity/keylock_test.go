package capacity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyLocks_Acquire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	key := Key{ProductID: "tour", Date: "2026-07-01"}

	t.Run("serializes holders of the same key", func(t *testing.T) {
		locks := NewKeyLocks()
		release, err := locks.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}

		var mu sync.Mutex
		order := make([]string, 0, 2)

		done := make(chan struct{})
		go func() {
			defer close(done)
			release2, err := locks.Acquire(ctx, key)
			if err != nil {
				t.Errorf("second acquire: %v", err)
				return
			}
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			release2()
		}()

		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		release()
		<-done

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Fatalf("expected first holder to finish before second, got %v", order)
		}
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		locks := NewKeyLocks(WithAttemptTimeout(50*time.Millisecond), WithAttempts(1))
		release, err := locks.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		defer release()

		other := Key{ProductID: "tour", Date: "2026-07-02"}
		release2, err := locks.Acquire(ctx, other)
		if err != nil {
			t.Fatalf("acquire on a different key should not block: %v", err)
		}
		release2()
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		locks := NewKeyLocks(WithAttemptTimeout(10*time.Millisecond), WithAttempts(2))
		release, err := locks.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		defer release()

		if _, err := locks.Acquire(ctx, key); !errors.Is(err, ErrLockTimeout) {
			t.Fatalf("expected ErrLockTimeout, got %v", err)
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		locks := NewKeyLocks(WithAttemptTimeout(time.Second), WithAttempts(3))
		release, err := locks.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		defer release()

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		if _, err := locks.Acquire(cancelCtx, key); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("entry is dropped once unused", func(t *testing.T) {
		locks := NewKeyLocks()
		release, err := locks.Acquire(ctx, key)
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		release()

		locks.mu.Lock()
		defer locks.mu.Unlock()
		if len(locks.entries) != 0 {
			t.Fatalf("expected entry map emptied, got %d entries", len(locks.entries))
		}
	})
}
