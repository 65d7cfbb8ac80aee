package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreAllowsUpToMax(t *testing.T) {
	s, _ := newRedisStore(t)

	for i := 1; i <= 3; i++ {
		ok, err := s.Take(context.Background(), "k1", time.Minute, 3)
		if err != nil {
			t.Fatalf("Take %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d denied, want allowed", i)
		}
	}

	ok, err := s.Take(context.Background(), "k1", time.Minute, 3)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if ok {
		t.Fatal("4th request in window allowed, want denied")
	}
}

func TestRedisStoreWindowExpiry(t *testing.T) {
	s, mr := newRedisStore(t)

	for i := 0; i < 4; i++ {
		s.Take(context.Background(), "k1", time.Minute, 3)
	}

	mr.FastForward(time.Minute + time.Second)

	ok, err := s.Take(context.Background(), "k1", time.Minute, 3)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if !ok {
		t.Fatal("request after window expiry denied, want allowed")
	}
}

func TestRedisStoreKeysAreIndependent(t *testing.T) {
	s, _ := newRedisStore(t)

	for i := 0; i < 3; i++ {
		s.Take(context.Background(), "k1", time.Minute, 3)
	}
	if ok, _ := s.Take(context.Background(), "k1", time.Minute, 3); ok {
		t.Fatal("k1 over quota but allowed")
	}
	if ok, _ := s.Take(context.Background(), "k2", time.Minute, 3); !ok {
		t.Fatal("fresh key k2 denied")
	}
}
