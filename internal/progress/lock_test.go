package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), mr
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t, time.Second)

	unlock, err := locker.Lock(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists("progress:lock:p1") {
		t.Fatalf("expected lock key")
	}
	if ttl := mr.TTL("progress:lock:p1"); ttl <= 0 || ttl > time.Second {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	unlock()
	if mr.Exists("progress:lock:p1") {
		t.Fatalf("expected lock released")
	}
}

func TestRedisLockerContention(t *testing.T) {
	locker, _ := newTestLocker(t, time.Second)

	unlock, err := locker.Lock(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "p1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded got %v", err)
	}

	other, err := locker.Lock(context.Background(), "p2")
	if err != nil {
		t.Fatalf("expected independent key to lock: %v", err)
	}
	other()
}

func TestRedisLockerWaitsForRelease(t *testing.T) {
	locker, _ := newTestLocker(t, time.Second)

	unlock, err := locker.Lock(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		unlock()
	}()

	second, err := locker.Lock(context.Background(), "p1")
	if err != nil {
		t.Fatalf("expected lock after release: %v", err)
	}
	second()
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t, time.Second)

	unlock, err := locker.Lock(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mr.Set("progress:lock:p1", "outro-dono"); err != nil {
		t.Fatalf("set: %v", err)
	}

	unlock()
	if got, _ := mr.Get("progress:lock:p1"); got != "outro-dono" {
		t.Fatalf("expected foreign lock preserved got %q", got)
	}
}

func TestRedisLockerTimeout(t *testing.T) {
	locker, _ := newTestLocker(t, 40*time.Millisecond)

	if _, err := locker.Lock(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// miniredis só expira chaves com FastForward; o segundo Lock esgota a espera.
	if _, err := locker.Lock(context.Background(), "p1"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout got %v", err)
	}
}
