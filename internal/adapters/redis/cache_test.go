package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "cofind/internal/adapters/redis"
	"cofind/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCache_SetGetDel(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var miss domain.Shop
	ok, err := c.Get(ctx, "shop:p1", &miss)
	if ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	rating := 4.5
	if err := c.Set(ctx, "shop:p1", domain.Shop{PlaceID: "p1", Name: "Kopi", Rating: &rating}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("cofind:shop:p1") {
		t.Fatalf("key not prefixed: %v", mr.Keys())
	}

	var got domain.Shop
	ok, err = c.Get(ctx, "shop:p1", &got)
	if !ok || err != nil || got.Name != "Kopi" || got.Rating == nil || *got.Rating != 4.5 {
		t.Fatalf("unexpected hit: ok=%v err=%v got=%+v", ok, err, got)
	}

	if err := c.Del(ctx, "shop:p1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "shop:p1", &got); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCache_TTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []string{"a"}, 10); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(11 * time.Second)

	var out []string
	if ok, _ := c.Get(ctx, "k", &out); ok {
		t.Fatal("expected expiry")
	}
}

func TestCache_CorruptValue(t *testing.T) {
	c, mr := newCache(t)
	if err := mr.Set("cofind:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	ok, err := c.Get(context.Background(), "bad", &out)
	if ok || err == nil {
		t.Fatalf("expected decode error, got ok=%v err=%v", ok, err)
	}
}

func TestCache_Ping(t *testing.T) {
	c, mr := newCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure after server close")
	}
}
