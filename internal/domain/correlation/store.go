package correlation

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/shared/id"
	"github.com/tabpilot/bridge/internal/shared/types"
)

// ErrDuplicateID is returned when Create sees an id that already exists.
// Ids are 128-bit random, so hitting this means a caller bug, not chance.
var ErrDuplicateID = errors.New("request id already exists")

// Status classifies a Get lookup
type Status int

const (
	// StatusUnknown means the id was never issued or has been garbage-collected
	StatusUnknown Status = iota
	// StatusPending means the request is awaiting a peer reply
	StatusPending
	// StatusDone means a terminal outcome is available
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

type pendingEntry struct {
	code      string
	createdAt time.Time
	timeoutAt time.Time
	hadPeer   bool
}

// PendingExecute is a not-yet-answered submission, re-deliverable to a
// peer that connects mid-wait.
type PendingExecute struct {
	RequestID id.RequestID
	Code      string
}

type completedEntry struct {
	outcome   types.Outcome
	expiresAt time.Time
}

// Store owns the id -> outcome state
type Store struct {
	mu        sync.Mutex
	pending   map[id.RequestID]*pendingEntry
	completed map[id.RequestID]*completedEntry

	retention time.Duration
	logger    *zap.Logger

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// DefaultRetention bounds how long completed outcomes stay pollable
const DefaultRetention = 5 * time.Minute

// New creates a store. retention <= 0 falls back to DefaultRetention.
func New(retention time.Duration, logger *zap.Logger) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pending:   make(map[id.RequestID]*pendingEntry),
		completed: make(map[id.RequestID]*completedEntry),
		retention: retention,
		logger:    logger,
		sweepStop: make(chan struct{}),
	}
}

// Create registers a pending entry. hadPeer records whether any peer was
// connected at submit time, so an eventual timeout can say "no peer" instead
// of a generic timeout. Never overwrites an existing id.
func (s *Store) Create(requestID id.RequestID, code string, timeout time.Duration, hadPeer bool) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[requestID]; ok {
		return ErrDuplicateID
	}
	if _, ok := s.completed[requestID]; ok {
		return ErrDuplicateID
	}

	s.pending[requestID] = &pendingEntry{
		code:      code,
		createdAt: now,
		timeoutAt: now.Add(timeout),
		hadPeer:   hadPeer,
	}
	return nil
}

// PendingExecutes marks every pending entry as having seen a peer and
// returns them for re-delivery. Called when a new peer registers so that
// submissions made while nothing was listening still reach it, and their
// eventual timeout reads as a real timeout rather than "no peer".
func (s *Store) PendingExecutes() []PendingExecute {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PendingExecute, 0, len(s.pending))
	for rid, entry := range s.pending {
		entry.hadPeer = true
		out = append(out, PendingExecute{RequestID: rid, Code: entry.code})
	}
	return out
}

// Resolve records the outcome for a pending id. The first call wins and
// returns true; every later call for the same id is a no-op returning false,
// including replies for ids that were already swept.
func (s *Store) Resolve(requestID id.RequestID, outcome types.Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[requestID]; !ok {
		return false
	}
	delete(s.pending, requestID)
	s.completed[requestID] = &completedEntry{
		outcome:   outcome,
		expiresAt: time.Now().Add(s.retention),
	}
	return true
}

// Get looks up an id. Unknown is distinct from Pending so callers can tell
// "still waiting" from "never issued / already collected".
func (s *Store) Get(requestID id.RequestID) (types.Outcome, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[requestID]; ok {
		return types.Outcome{}, StatusPending
	}
	if entry, ok := s.completed[requestID]; ok {
		return entry.outcome, StatusDone
	}
	return types.Outcome{}, StatusUnknown
}

// SweepExpired transitions overdue pending entries to a terminal timeout
// outcome and evicts completed entries past retention. Returns (expired,
// evicted) counts.
func (s *Store) SweepExpired() (int, int) {
	now := time.Now()

	s.mu.Lock()
	var expired, evicted int
	for rid, entry := range s.pending {
		if now.After(entry.timeoutAt) {
			delete(s.pending, rid)
			s.completed[rid] = &completedEntry{
				outcome:   types.TimeoutOutcome(entry.hadPeer),
				expiresAt: now.Add(s.retention),
			}
			expired++
		}
	}
	for rid, entry := range s.completed {
		if now.After(entry.expiresAt) {
			delete(s.completed, rid)
			evicted++
		}
	}
	s.mu.Unlock()

	if expired > 0 || evicted > 0 {
		s.logger.Debug("sweep complete",
			zap.Int("expired", expired),
			zap.Int("evicted", evicted),
		)
	}
	return expired, evicted
}

// StartSweeper runs SweepExpired on a timer until StopSweeper is called.
// onSweep, when non-nil, is called after each pass with its counts.
func (s *Store) StartSweeper(interval time.Duration, onSweep func(expired, evicted int)) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				expired, evicted := s.SweepExpired()
				if onSweep != nil {
					onSweep(expired, evicted)
				}
			case <-s.sweepStop:
				return
			}
		}
	}()
}

// StopSweeper terminates the background sweeper. Idempotent.
func (s *Store) StopSweeper() {
	s.sweepOnce.Do(func() { close(s.sweepStop) })
}

// Stats reports pending and completed entry counts
func (s *Store) Stats() (pending int, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), len(s.completed)
}
