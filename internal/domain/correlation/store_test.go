package correlation

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tabpilot/bridge/internal/shared/id"
	"github.com/tabpilot/bridge/internal/shared/types"
)

func okOutcome(result string) types.Outcome {
	return types.Outcome{OK: true, Result: result, CompletedAt: time.Now()}
}

func TestCreateAndGet(t *testing.T) {
	s := New(time.Minute, nil)
	rid := id.NewRequestID()

	if _, status := s.Get(rid); status != StatusUnknown {
		t.Errorf("Get before Create = %v, want unknown", status)
	}

	if err := s.Create(rid, "1+1", time.Minute, true); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, status := s.Get(rid); status != StatusPending {
		t.Errorf("Get after Create = %v, want pending", status)
	}
}

func TestCreateDuplicateID(t *testing.T) {
	s := New(time.Minute, nil)
	rid := id.NewRequestID()

	if err := s.Create(rid, "a", time.Minute, true); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(rid, "b", time.Minute, true); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate Create = %v, want ErrDuplicateID", err)
	}

	// still duplicate after the entry completes
	s.Resolve(rid, okOutcome("2"))
	if err := s.Create(rid, "c", time.Minute, true); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Create over completed id = %v, want ErrDuplicateID", err)
	}
}

func TestFirstResolverWins(t *testing.T) {
	s := New(time.Minute, nil)
	rid := id.NewRequestID()
	if err := s.Create(rid, "code", time.Minute, true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !s.Resolve(rid, okOutcome("first")) {
		t.Fatal("first Resolve returned false")
	}
	if s.Resolve(rid, okOutcome("second")) {
		t.Error("second Resolve returned true")
	}

	outcome, status := s.Get(rid)
	if status != StatusDone {
		t.Fatalf("status = %v, want done", status)
	}
	if outcome.Result != "first" {
		t.Errorf("outcome.Result = %q, want the first reply", outcome.Result)
	}
}

func TestResolveUnknownIDIsNoop(t *testing.T) {
	s := New(time.Minute, nil)
	if s.Resolve(id.NewRequestID(), okOutcome("x")) {
		t.Error("Resolve of never-issued id returned true")
	}
}

func TestConcurrentResolveExactlyOneWins(t *testing.T) {
	s := New(time.Minute, nil)
	rid := id.NewRequestID()
	if err := s.Create(rid, "code", time.Minute, true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	var wins int64
	var mu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Resolve(rid, okOutcome("race")) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d resolvers won, want exactly 1", wins)
	}
}

func TestSweepExpiresOverduePending(t *testing.T) {
	s := New(time.Minute, nil)
	rid := id.NewRequestID()
	if err := s.Create(rid, "code", -time.Second, true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	expired, _ := s.SweepExpired()
	if expired != 1 {
		t.Fatalf("SweepExpired expired %d, want 1", expired)
	}

	outcome, status := s.Get(rid)
	if status != StatusDone {
		t.Fatalf("status after sweep = %v, want done", status)
	}
	if outcome.OK {
		t.Error("timeout outcome reported ok")
	}
	if !strings.HasPrefix(outcome.Error, "timed out") {
		t.Errorf("outcome.Error = %q, want timeout message", outcome.Error)
	}

	// expiry is terminal: a second sweep finds nothing
	if expired, _ := s.SweepExpired(); expired != 0 {
		t.Errorf("second sweep expired %d, want 0", expired)
	}
}

func TestSweepNoPeerMessage(t *testing.T) {
	s := New(time.Minute, nil)
	rid := id.NewRequestID()
	if err := s.Create(rid, "code", -time.Second, false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s.SweepExpired()
	outcome, _ := s.Get(rid)
	if !strings.HasPrefix(outcome.Error, "no peer connected") {
		t.Errorf("outcome.Error = %q, want no-peer message", outcome.Error)
	}
}

func TestLateReplyAfterSweepIsNoop(t *testing.T) {
	s := New(time.Nanosecond, nil)
	rid := id.NewRequestID()
	if err := s.Create(rid, "code", -time.Second, true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s.SweepExpired()
	time.Sleep(time.Millisecond)
	s.SweepExpired() // evicts the timed-out outcome past retention

	if _, status := s.Get(rid); status != StatusUnknown {
		t.Fatalf("status after retention = %v, want unknown", status)
	}
	if s.Resolve(rid, okOutcome("too late")) {
		t.Error("Resolve after eviction returned true")
	}
	if _, status := s.Get(rid); status != StatusUnknown {
		t.Errorf("late reply resurrected the id: status = %v", status)
	}
}

func TestPendingExecutesMarksPeerSeen(t *testing.T) {
	s := New(time.Minute, nil)
	rid := id.NewRequestID()
	if err := s.Create(rid, "document.title", -time.Second, false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	replay := s.PendingExecutes()
	if len(replay) != 1 {
		t.Fatalf("PendingExecutes returned %d entries, want 1", len(replay))
	}
	if replay[0].RequestID != rid || replay[0].Code != "document.title" {
		t.Errorf("replay entry = %+v", replay[0])
	}

	// once a peer has seen it, the eventual timeout is a real timeout
	s.SweepExpired()
	outcome, _ := s.Get(rid)
	if !strings.HasPrefix(outcome.Error, "timed out") {
		t.Errorf("outcome.Error = %q, want timeout message after replay", outcome.Error)
	}
}

func TestSweeperLifecycle(t *testing.T) {
	s := New(time.Minute, nil)

	var mu sync.Mutex
	totalExpired := 0
	s.StartSweeper(time.Millisecond, func(expired, _ int) {
		mu.Lock()
		totalExpired += expired
		mu.Unlock()
	})

	rid := id.NewRequestID()
	if err := s.Create(rid, "code", time.Millisecond, true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		done := totalExpired > 0
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweeper never expired the entry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, status := s.Get(rid); status != StatusDone {
		t.Errorf("status after sweep = %v, want done", status)
	}

	s.StopSweeper()
	s.StopSweeper() // idempotent
}

func TestStats(t *testing.T) {
	s := New(time.Minute, nil)
	a, b := id.NewRequestID(), id.NewRequestID()
	s.Create(a, "x", time.Minute, true)
	s.Create(b, "y", time.Minute, true)
	s.Resolve(a, okOutcome("done"))

	pending, completed := s.Stats()
	if pending != 1 || completed != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", pending, completed)
	}
}
