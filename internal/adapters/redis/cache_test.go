package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "trip_hotel/internal/adapters/redis"
	"trip_hotel/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetDel(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	var got domain.Listing
	if ok, err := c.Get(ctx, "listing:HTL-42", &got); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	in := domain.Listing{ID: 7, ExternalID: "HTL-42", Title: "Grand Plaza", City: "New York"}
	if err := c.Set(ctx, "listing:HTL-42", in, 60); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("hotel:listing:HTL-42") {
		t.Fatalf("expected namespaced key in redis, have %v", mr.Keys())
	}
	if ok, err := c.Get(ctx, "listing:HTL-42", &got); !ok || err != nil || got.ID != 7 || got.Title != "Grand Plaza" {
		t.Fatalf("expected hit, got ok=%v err=%v %+v", ok, err, got)
	}

	if err := c.Del(ctx, "listing:HTL-42"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if ok, _ := c.Get(ctx, "listing:HTL-42", &got); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestCache_TTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", map[string]int{"a": 1}, 30); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(31 * time.Second)

	var v map[string]int
	if ok, _ := c.Get(ctx, "k", &v); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCache_UndecodableValueIsMiss(t *testing.T) {
	c, mr := newCache(t)
	if err := mr.Set("hotel:k", "not-json"); err != nil {
		t.Fatal(err)
	}
	var v domain.Listing
	ok, err := c.Get(context.Background(), "k", &v)
	if ok || err == nil {
		t.Fatalf("expected miss with decode error, got ok=%v err=%v", ok, err)
	}
}
