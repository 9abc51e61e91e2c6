// Package storetest holds the behavioural contract shared by every
// store.Store backend.  Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

// Factory returns an empty store.  Cleanup is the factory's responsibility.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("Directory", func(t *testing.T) { testDirectory(t, newStore(t)) })
	t.Run("CheckInsInsertionOrder", func(t *testing.T) { testCheckInOrder(t, newStore(t)) })
	t.Run("CheckInUpdateDelete", func(t *testing.T) { testCheckInUpdateDelete(t, newStore(t)) })
	t.Run("ActiveCheckIns", func(t *testing.T) { testActiveCheckIns(t, newStore(t)) })
	t.Run("ListUsers", func(t *testing.T) { testListUsers(t, newStore(t)) })
	t.Run("Properties", func(t *testing.T) { testProperties(t, newStore(t)) })
	t.Run("CallLogAppendOnly", func(t *testing.T) { testCallLog(t, newStore(t)) })
	t.Run("HistoricCallsConcurrent", func(t *testing.T) { testHistoricCalls(t, newStore(t)) })
}

func testDirectory(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, found, err := s.LookupOwner(ctx, "15551234567"); err != nil || found {
		t.Fatalf("expected miss on empty directory, found=%v err=%v", found, err)
	}

	if err := s.PutOwner(ctx, "15551234567", "u1"); err != nil {
		t.Fatalf("PutOwner: %v", err)
	}
	uid, found, err := s.LookupOwner(ctx, "15551234567")
	if err != nil || !found || uid != "u1" {
		t.Fatalf("LookupOwner = %q,%v,%v; want u1,true,nil", uid, found, err)
	}

	if err := s.PutOwner(ctx, "15551234567", "u2"); err != nil {
		t.Fatalf("PutOwner overwrite: %v", err)
	}
	if uid, _, _ := s.LookupOwner(ctx, "15551234567"); uid != "u2" {
		t.Errorf("expected owner u2 after overwrite, got %q", uid)
	}

	if err := s.DeleteOwner(ctx, "15551234567"); err != nil {
		t.Fatalf("DeleteOwner: %v", err)
	}
	if _, found, _ := s.LookupOwner(ctx, "15551234567"); found {
		t.Error("expected miss after delete")
	}
}

func testCheckInOrder(t *testing.T, s store.Store) {
	ctx := context.Background()

	var want []string
	for i := 0; i < 5; i++ {
		c, err := s.AddCheckIn(ctx, "u1", store.CheckIn{
			Property: "15551234567",
			TimeMs:   int64(1000 - i), // descending times: order must follow insertion, not time
			Name:     fmt.Sprintf("guest-%d", i),
		})
		if err != nil {
			t.Fatalf("AddCheckIn %d: %v", i, err)
		}
		if c.ID == "" {
			t.Fatalf("AddCheckIn %d: expected assigned id", i)
		}
		want = append(want, c.Name)
	}

	got, err := s.ListCheckIns(ctx, "u1")
	if err != nil {
		t.Fatalf("ListCheckIns: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d check-ins, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i].Name)
		}
	}

	if none, err := s.ListCheckIns(ctx, "nobody"); err != nil || len(none) != 0 {
		t.Errorf("expected no check-ins for unknown user, got %v (err=%v)", none, err)
	}
}

func testCheckInUpdateDelete(t *testing.T, s store.Store) {
	ctx := context.Background()

	c, err := s.AddCheckIn(ctx, "u1", store.CheckIn{Property: "1555", TimeMs: 10, Name: "a"})
	if err != nil {
		t.Fatalf("AddCheckIn: %v", err)
	}

	c.Name = "b"
	c.TimeMs = 20
	if err := s.UpdateCheckIn(ctx, "u1", c); err != nil {
		t.Fatalf("UpdateCheckIn: %v", err)
	}
	got, _ := s.ListCheckIns(ctx, "u1")
	if len(got) != 1 || got[0].Name != "b" || got[0].TimeMs != 20 {
		t.Errorf("unexpected check-ins after update: %+v", got)
	}

	err = s.UpdateCheckIn(ctx, "u1", store.CheckIn{ID: "missing", Property: "1555"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating missing check-in, got %v", err)
	}

	if err := s.DeleteCheckIn(ctx, "u1", c.ID); err != nil {
		t.Fatalf("DeleteCheckIn: %v", err)
	}
	if err := s.DeleteCheckIn(ctx, "u1", c.ID); err != nil {
		t.Errorf("second DeleteCheckIn should be a no-op, got %v", err)
	}
	if got, _ := s.ListCheckIns(ctx, "u1"); len(got) != 0 {
		t.Errorf("expected no check-ins after delete, got %d", len(got))
	}
}

func testActiveCheckIns(t *testing.T, s store.Store) {
	ctx := context.Background()

	if n, err := s.ActiveCheckIns(ctx, "u1"); err != nil || n != 0 {
		t.Fatalf("expected 0 for unknown user, got %d (err=%v)", n, err)
	}
	for _, v := range []int{3, 1, 0} {
		if err := s.SetActiveCheckIns(ctx, "u1", v); err != nil {
			t.Fatalf("SetActiveCheckIns(%d): %v", v, err)
		}
		if n, _ := s.ActiveCheckIns(ctx, "u1"); n != v {
			t.Errorf("expected %d, got %d", v, n)
		}
	}
}

func testListUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %v", users)
	}

	if err := s.PutOwner(ctx, "1555", "u-owner"); err != nil {
		t.Fatalf("PutOwner: %v", err)
	}
	if _, err := s.AddCheckIn(ctx, "u-guest", store.CheckIn{Property: "1555", TimeMs: 1}); err != nil {
		t.Fatalf("AddCheckIn: %v", err)
	}

	users, err = s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	sort.Strings(users)
	if len(users) != 2 || users[0] != "u-guest" || users[1] != "u-owner" {
		t.Errorf("unexpected users: %v", users)
	}
}

func testProperties(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, found, err := s.GetProperty(ctx, "u1", "15551234567"); err != nil || found {
		t.Fatalf("expected miss, found=%v err=%v", found, err)
	}

	p := store.Property{Number: "15551234567", Name: "Loft", Address: "1 Main St", DTMF: "9w9"}
	if err := s.PutProperty(ctx, "u1", p); err != nil {
		t.Fatalf("PutProperty: %v", err)
	}
	if err := s.PutProperty(ctx, "u1", store.Property{Number: "15550000000", Name: "Annex"}); err != nil {
		t.Fatalf("PutProperty: %v", err)
	}

	got, found, err := s.GetProperty(ctx, "u1", "15551234567")
	if err != nil || !found {
		t.Fatalf("GetProperty: found=%v err=%v", found, err)
	}
	if got != p {
		t.Errorf("GetProperty = %+v, want %+v", got, p)
	}

	p.DTMF = "1"
	if err := s.PutProperty(ctx, "u1", p); err != nil {
		t.Fatalf("PutProperty overwrite: %v", err)
	}
	if got, _, _ := s.GetProperty(ctx, "u1", p.Number); got.DTMF != "1" {
		t.Errorf("expected overwritten dtmf, got %q", got.DTMF)
	}

	list, err := s.ListProperties(ctx, "u1")
	if err != nil {
		t.Fatalf("ListProperties: %v", err)
	}
	if len(list) != 2 || list[0].Number != "15550000000" {
		t.Errorf("expected 2 properties ordered by number, got %+v", list)
	}

	if err := s.DeleteProperty(ctx, "u1", p.Number); err != nil {
		t.Fatalf("DeleteProperty: %v", err)
	}
	if _, found, _ := s.GetProperty(ctx, "u1", p.Number); found {
		t.Error("expected property gone after delete")
	}
}

func testCallLog(t *testing.T, s store.Store) {
	ctx := context.Background()

	entries := []store.CallLogEntry{
		{CalledAtMs: 1_700_000_000_000, Caller: "15551234567", Success: true},
		{CalledAtMs: 1_700_000_000_000, Caller: "15551234567", Success: false}, // same millisecond
		{CalledAtMs: 1_700_000_001_000, Caller: "15557654321", Success: false},
	}
	for _, e := range entries {
		if err := s.AppendCall(ctx, "u1", e); err != nil {
			t.Fatalf("AppendCall: %v", err)
		}
	}

	got, err := s.ListCalls(ctx, "u1")
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries (append-only), got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func testHistoricCalls(t *testing.T, s store.Store) {
	ctx := context.Background()

	n, err := s.IncrementHistoricCalls(ctx, "u1")
	if err != nil {
		t.Fatalf("IncrementHistoricCalls: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected first increment to yield 1, got %d", n)
	}

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementHistoricCalls(ctx, "u1"); err != nil {
				t.Errorf("IncrementHistoricCalls: %v", err)
			}
		}()
	}
	wg.Wait()

	total, err := s.HistoricCalls(ctx, "u1")
	if err != nil {
		t.Fatalf("HistoricCalls: %v", err)
	}
	if total != workers+1 {
		t.Errorf("expected %d, got %d (lost increments)", workers+1, total)
	}
}
