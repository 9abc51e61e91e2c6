package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	redisstore "github.com/BrandonDHaskell/Portico/internal/portico/store/redis"
	"github.com/BrandonDHaskell/Portico/internal/portico/store/storetest"
)

func newTestStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisstore.New(rdb), mr
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestStore_KeyLayout(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.PutOwner(ctx, "15551234567", "u1"); err != nil {
		t.Fatalf("PutOwner: %v", err)
	}
	if _, err := s.IncrementHistoricCalls(ctx, "u1"); err != nil {
		t.Fatalf("IncrementHistoricCalls: %v", err)
	}
	if err := s.SetActiveCheckIns(ctx, "u1", 2); err != nil {
		t.Fatalf("SetActiveCheckIns: %v", err)
	}

	if got := mr.HGet("portico:directory", "15551234567"); got != "u1" {
		t.Errorf("directory hash: expected u1, got %q", got)
	}
	if ok, _ := mr.SIsMember("portico:users", "u1"); !ok {
		t.Error("expected u1 in users set")
	}
	if got, _ := mr.Get("portico:user:u1:historic_calls"); got != "1" {
		t.Errorf("historic_calls: expected 1, got %q", got)
	}
	if got, _ := mr.Get("portico:user:u1:active_checkins"); got != "2" {
		t.Errorf("active_checkins: expected 2, got %q", got)
	}
}

func TestStore_ReadErrorIsReported(t *testing.T) {
	s, mr := newTestStore(t)
	mr.SetError("ERR simulated failure")

	if _, err := s.ListCheckIns(context.Background(), "u1"); err == nil {
		t.Error("expected error when redis rejects the read")
	}
}
