package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portico/internal/events"
	"github.com/BrandonDHaskell/Portico/internal/portico/service"
	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

const (
	testUser   = "u1"
	testNumber = "15551234567"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// newTestAccessService builds an AccessService over a faultyStore with the
// test number registered to testUser.
func newTestAccessService(t *testing.T) (*service.AccessService, *faultyStore, *events.Recorder) {
	t.Helper()
	st := newFaultyStore()
	if err := st.PutOwner(context.Background(), testNumber, testUser); err != nil {
		t.Fatalf("PutOwner: %v", err)
	}
	rec := events.NewRecorder()
	svc := service.NewAccessService(service.NewDirectory(st), st, service.AccessConfig{
		Now:       fixedClock(testNow),
		Publisher: rec,
	})
	return svc, st, rec
}

func addCheckIn(t *testing.T, st store.CheckInStore, property string, at time.Time, name string) store.CheckIn {
	t.Helper()
	c, err := st.AddCheckIn(context.Background(), testUser, store.CheckIn{
		Property: property,
		TimeMs:   at.UnixMilli(),
		Name:     name,
	})
	if err != nil {
		t.Fatalf("AddCheckIn: %v", err)
	}
	return c
}

// ── Normalization ────────────────────────────────────────────────────────────

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 123-4567": "15551234567",
		"15551234567":       "15551234567",
		"++15551234567":     "15551234567",
		"+":                 "",
		"":                  "",
		"abc":               "",
		"555.123.4567":      "5551234567",
	}
	for in, want := range cases {
		if got := service.NormalizeNumber(in); got != want {
			t.Errorf("NormalizeNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	if got := service.FormatPhone("15551234567"); got != "+1 (555) 123-4567" {
		t.Errorf("got %q", got)
	}
	if got := service.FormatPhone("12345"); got != "+12345" {
		t.Errorf("short number: got %q", got)
	}
}

// ── Decisions ────────────────────────────────────────────────────────────────

func TestDecide_EligibleCheckIn_GrantsAndLogs(t *testing.T) {
	svc, st, rec := newTestAccessService(t)
	ctx := context.Background()

	c := addCheckIn(t, st, testNumber, testNow.Add(-time.Minute), "Ada")
	if err := st.PutProperty(ctx, testUser, store.Property{Number: testNumber, DTMF: "9"}); err != nil {
		t.Fatalf("PutProperty: %v", err)
	}

	d, err := svc.Decide(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()

	if d.Outcome != types.OutcomeGranted {
		t.Fatalf("expected granted, got %s", d.Outcome)
	}
	if d.CheckInID != c.ID || d.GuestName != "Ada" || d.DTMF != "9" {
		t.Errorf("unexpected decision: %+v", d)
	}
	if d.DecidedAtMs != testNow.UnixMilli() {
		t.Errorf("decided_at_ms = %d", d.DecidedAtMs)
	}

	calls, _ := st.ListCalls(ctx, testUser)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call log entry, got %d", len(calls))
	}
	want := store.CallLogEntry{CalledAtMs: testNow.UnixMilli(), Caller: testNumber, Success: true}
	if calls[0] != want {
		t.Errorf("call log entry = %+v, want %+v", calls[0], want)
	}
	if n, _ := st.HistoricCalls(ctx, testUser); n != 1 {
		t.Errorf("historic calls = %d, want 1", n)
	}

	got := rec.Events()
	if len(got) != 1 || got[0].Subject != events.CallDecided {
		t.Fatalf("expected one %s event, got %+v", events.CallDecided, got)
	}
}

func TestDecide_NoCheckIns_DeniesAndLogs(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	ctx := context.Background()

	d, err := svc.Decide(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()

	if d.Outcome != types.OutcomeDenied {
		t.Fatalf("expected denied, got %s", d.Outcome)
	}
	if d.DTMF != "" || d.CheckInID != "" {
		t.Errorf("deny must not carry grant fields: %+v", d)
	}
	calls, _ := st.ListCalls(ctx, testUser)
	if len(calls) != 1 || calls[0].Success {
		t.Fatalf("expected one unsuccessful call entry, got %+v", calls)
	}
	if n, _ := st.HistoricCalls(ctx, testUser); n != 1 {
		t.Errorf("historic calls = %d, want 1", n)
	}
}

func TestDecide_UnknownCaller_NotPermittedNoWrites(t *testing.T) {
	svc, st, rec := newTestAccessService(t)
	ctx := context.Background()

	d, err := svc.Decide(ctx, "+15559999999")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()

	if d.Outcome != types.OutcomeNotPermitted {
		t.Fatalf("expected not_permitted, got %s", d.Outcome)
	}
	if d.UserID != "" {
		t.Errorf("expected no user, got %q", d.UserID)
	}
	if st.AppendAttempts() != 0 {
		t.Errorf("expected no call log writes, got %d", st.AppendAttempts())
	}
	if n, _ := st.HistoricCalls(ctx, testUser); n != 0 {
		t.Errorf("historic calls = %d, want 0", n)
	}
	if len(rec.Events()) != 1 {
		t.Errorf("not-permitted calls are still published")
	}
}

func TestDecide_EmptyIdentity_Rejected(t *testing.T) {
	svc, st, rec := newTestAccessService(t)

	for _, raw := range []string{"", "+", "anonymous"} {
		_, err := svc.Decide(context.Background(), raw)
		if !errors.Is(err, service.ErrInvalidCaller) {
			t.Errorf("Decide(%q): expected ErrInvalidCaller, got %v", raw, err)
		}
	}
	svc.Wait()

	if st.AppendAttempts() != 0 || len(rec.Events()) != 0 {
		t.Error("rejected identities must not write or publish")
	}
}

func TestDecide_GraceBoundaryIsExclusive(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	ctx := context.Background()

	addCheckIn(t, st, testNumber, testNow.Add(-service.DefaultGraceWindow), "")
	d, err := svc.Decide(ctx, testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Outcome != types.OutcomeDenied {
		t.Errorf("diff == grace: expected denied, got %s", d.Outcome)
	}

	inside := addCheckIn(t, st, testNumber, testNow.Add(-service.DefaultGraceWindow+time.Millisecond), "")
	d, err = svc.Decide(ctx, testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if d.Outcome != types.OutcomeGranted || d.CheckInID != inside.ID {
		t.Errorf("diff == grace-1ms: expected grant on %s, got %+v", inside.ID, d)
	}
}

func TestDecide_FutureCheckInIsEligible(t *testing.T) {
	svc, st, _ := newTestAccessService(t)

	addCheckIn(t, st, testNumber, testNow.Add(72*time.Hour), "")
	d, err := svc.Decide(context.Background(), testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if d.Outcome != types.OutcomeGranted {
		t.Errorf("expected granted, got %s", d.Outcome)
	}
}

func TestDecide_CheckInForOtherLine_Denied(t *testing.T) {
	svc, st, _ := newTestAccessService(t)

	addCheckIn(t, st, "15550000000", testNow, "")
	d, err := svc.Decide(context.Background(), testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if d.Outcome != types.OutcomeDenied {
		t.Errorf("expected denied, got %s", d.Outcome)
	}
}

func TestDecide_FirstEligibleInInsertionOrder(t *testing.T) {
	svc, st, _ := newTestAccessService(t)

	addCheckIn(t, st, testNumber, testNow.Add(-3*time.Hour), "expired")
	first := addCheckIn(t, st, testNumber, testNow.Add(time.Hour), "first")
	addCheckIn(t, st, testNumber, testNow.Add(-time.Minute), "second")

	d, err := svc.Decide(context.Background(), testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if d.CheckInID != first.ID {
		t.Errorf("expected first eligible check-in %s, got %s", first.ID, d.CheckInID)
	}
}

func TestDecide_GrantWithoutPropertyPlaysNoTone(t *testing.T) {
	svc, st, _ := newTestAccessService(t)

	addCheckIn(t, st, testNumber, testNow, "")
	d, err := svc.Decide(context.Background(), testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if !d.Granted() || d.DTMF != "" {
		t.Errorf("expected grant with no tone, got %+v", d)
	}
}

// ── Store failures ───────────────────────────────────────────────────────────

func TestDecide_DirectoryFailure_ReturnsStoreUnavailable(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	st.failLookup = true

	_, err := svc.Decide(context.Background(), testNumber)
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, errInjected) {
		t.Errorf("expected underlying cause to be wrapped, got %v", err)
	}
	svc.Wait()
	if st.AppendAttempts() != 0 {
		t.Error("directory failure must not write a call log entry")
	}
}

func TestDecide_CheckInReadFailure_FailsSafeToDeny(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	addCheckIn(t, st, testNumber, testNow, "")
	st.failList = true

	d, err := svc.Decide(context.Background(), testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if d.Outcome != types.OutcomeDenied {
		t.Errorf("expected denied, got %s", d.Outcome)
	}
}

func TestDecide_PropertyReadFailure_StillGrants(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	addCheckIn(t, st, testNumber, testNow, "")
	st.failProperty = true

	d, err := svc.Decide(context.Background(), testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if !d.Granted() || d.DTMF != "" {
		t.Errorf("expected grant with no tone, got %+v", d)
	}
}

func TestDecide_LogWriteFailure_DoesNotChangeDecision(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	addCheckIn(t, st, testNumber, testNow, "")
	st.failAppend = true
	st.failIncrement = true

	d, err := svc.Decide(context.Background(), testNumber)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	svc.Wait()
	if !d.Granted() {
		t.Errorf("expected grant, got %s", d.Outcome)
	}
	if st.AppendAttempts() != 1 {
		t.Errorf("expected exactly one append attempt, got %d", st.AppendAttempts())
	}
}

func TestDecide_CallerContextCancelledAfterDecision(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := svc.Decide(ctx, testNumber); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	cancel()
	svc.Wait()

	calls, _ := st.ListCalls(context.Background(), testUser)
	if len(calls) != 1 {
		t.Errorf("call log write must outlive the request, got %d entries", len(calls))
	}
}

// ── Concurrency ──────────────────────────────────────────────────────────────

func TestDecide_ConcurrentCallsCountEveryDecision(t *testing.T) {
	svc, st, _ := newTestAccessService(t)
	addCheckIn(t, st, testNumber, testNow, "")

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Decide(context.Background(), testNumber); err != nil {
				t.Errorf("Decide: %v", err)
			}
		}()
	}
	wg.Wait()
	svc.Wait()

	if got, _ := st.HistoricCalls(context.Background(), testUser); got != n {
		t.Errorf("historic calls = %d, want %d", got, n)
	}
	calls, _ := st.ListCalls(context.Background(), testUser)
	if len(calls) != n {
		t.Errorf("call log entries = %d, want %d", len(calls), n)
	}
}
