package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/shared/id"
	"github.com/tabpilot/bridge/internal/shared/types"
)

// State of the control session
type State int

const (
	StateInactive State = iota
	StateActive
	StateReinitializing
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateReinitializing:
		return "reinitializing"
	default:
		return "inactive"
	}
}

var (
	// ErrAlreadyActive rejects a start while a session exists
	ErrAlreadyActive = errors.New("control session already active")
	// ErrNoSession rejects operations that need an active session
	ErrNoSession = errors.New("no active control session")
	// ErrEmptyDirective rejects directives with no name
	ErrEmptyDirective = errors.New("directive name required")
)

// Submitter is the slice of the gateway the manager needs. The manager
// chooses the request id itself so it can record the id before the execute
// is broadcast; a peer ack observed mid-dispatch must still match.
type Submitter interface {
	SubmitWithID(requestID id.RequestID, code string, timeout time.Duration) error
}

// sessionTimeout bounds the session-management executes (start, reinit,
// stop); directives carry their own caller timeouts.
const sessionTimeout = 10 * time.Second

// Manager drives the control session state machine
type Manager struct {
	submitter Submitter
	logger    *zap.Logger

	mu        sync.Mutex
	state     State
	sessionID id.SessionID
	config    types.ControlConfig
	target    *types.TargetLocator
	originURL string

	// request id of the in-flight start/reinit execute; its outcome
	// drives the REINITIALIZING -> ACTIVE transition
	inflight id.RequestID
}

// NewManager creates an inactive manager
func NewManager(submitter Submitter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		submitter: submitter,
		logger:    logger,
	}
}

// Start begins a session with the given configuration (nil for defaults)
// and issues the begin-session execute. The request id is recorded as
// inflight before the execute is dispatched; an ack arriving while the
// dispatch is still returning must not be lost.
func (m *Manager) Start(cfg *types.ControlConfig) (id.RequestID, error) {
	reqID := id.NewRequestID()

	m.mu.Lock()
	if m.state != StateInactive {
		m.mu.Unlock()
		return "", ErrAlreadyActive
	}
	config := types.DefaultControlConfig()
	if cfg != nil {
		config = *cfg
	}
	m.state = StateActive
	m.sessionID = id.NewSessionID()
	m.config = config
	m.target = nil
	m.originURL = ""
	m.inflight = reqID
	m.mu.Unlock()

	if err := m.submitter.SubmitWithID(reqID, beginSessionCode(config, nil), sessionTimeout); err != nil {
		m.mu.Lock()
		m.state = StateInactive
		m.inflight = ""
		m.mu.Unlock()
		return "", fmt.Errorf("start control session: %w", err)
	}

	m.logger.Info("control session started",
		zap.String("session_id", m.sessionID.String()),
		zap.String("request_id", reqID.String()),
	)
	return reqID, nil
}

// Stop ends the session. The end-session execute is best-effort: delivery
// failure is tolerated and not retried, the session is over locally either way.
func (m *Manager) Stop() (id.RequestID, error) {
	m.mu.Lock()
	if m.state == StateInactive {
		m.mu.Unlock()
		return "", ErrNoSession
	}
	sessionID := m.sessionID
	m.state = StateInactive
	m.inflight = ""
	m.target = nil
	m.mu.Unlock()

	reqID := id.NewRequestID()
	if err := m.submitter.SubmitWithID(reqID, endSessionCode(), sessionTimeout); err != nil {
		m.logger.Warn("end-session execute not delivered",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
		return "", nil
	}

	m.logger.Info("control session stopped",
		zap.String("session_id", sessionID.String()),
	)
	return reqID, nil
}

// HandleReinit processes the peer's restore handshake after a reload.
// The re-issued begin-session always carries the stored configuration;
// peerCfg is only logged when it disagrees.
func (m *Manager) HandleReinit(peerCfg *types.ControlConfig) (id.RequestID, error) {
	reqID := id.NewRequestID()

	m.mu.Lock()
	if m.state == StateInactive {
		m.mu.Unlock()
		return "", ErrNoSession
	}
	m.state = StateReinitializing
	m.inflight = reqID
	config := m.config
	target := m.target
	m.mu.Unlock()

	if peerCfg != nil && *peerCfg != config {
		m.logger.Debug("peer-reported config differs from stored, ignoring peer copy")
	}

	if err := m.submitter.SubmitWithID(reqID, beginSessionCode(config, target), sessionTimeout); err != nil {
		m.mu.Lock()
		if m.inflight == reqID {
			m.inflight = ""
		}
		m.mu.Unlock()
		return "", fmt.Errorf("reinit control session: %w", err)
	}

	m.logger.Info("control session reinitializing",
		zap.String("request_id", reqID.String()),
		zap.Bool("restoring_focus", target != nil),
	)
	return reqID, nil
}

// Directive issues a named session directive (advance focus, activate the
// current element) as an ordinary execute. Its outcome flows back through
// ObserveOutcome, where the last-known target is updated; a timed-out
// directive leaves the session state untouched.
func (m *Manager) Directive(name string, args map[string]interface{}, timeout time.Duration) (id.RequestID, error) {
	if name == "" {
		return "", ErrEmptyDirective
	}
	if timeout <= 0 {
		timeout = sessionTimeout
	}

	m.mu.Lock()
	if m.state == StateInactive {
		m.mu.Unlock()
		return "", ErrNoSession
	}
	m.mu.Unlock()

	reqID := id.NewRequestID()
	if err := m.submitter.SubmitWithID(reqID, directiveCode(name, args), timeout); err != nil {
		return "", fmt.Errorf("control directive %s: %w", name, err)
	}

	m.logger.Debug("directive dispatched",
		zap.String("directive", name),
		zap.String("request_id", reqID.String()),
	)
	return reqID, nil
}

// ObserveOutcome feeds resolved outcomes back into the state machine. The
// router calls this for every resolve so the manager can acknowledge its
// own start/reinit executes and track the last-known target from directive
// context. Unrelated outcomes while inactive are ignored.
func (m *Manager) ObserveOutcome(requestID id.RequestID, outcome types.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateInactive {
		return
	}

	if requestID == m.inflight {
		m.inflight = ""
		if outcome.OK {
			if m.state == StateReinitializing {
				m.logger.Info("control session restored")
			}
			m.state = StateActive
		} else if m.state == StateReinitializing {
			// Failed reinit ack: stay reinitializing, the peer will
			// retry the handshake on its next load.
			m.logger.Warn("reinit execute failed",
				zap.String("error", outcome.Error),
			)
		}
	}

	if !outcome.OK {
		return
	}
	if outcome.URL != "" {
		m.originURL = outcome.URL
	}
	if loc := locatorFromResult(outcome.Result); loc != nil {
		loc.URL = outcome.URL
		m.target = loc
	}
}

// State returns the current session state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the stored configuration and last-known target
func (m *Manager) Snapshot() (types.ControlConfig, *types.TargetLocator, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *types.TargetLocator
	if m.target != nil {
		copied := *m.target
		target = &copied
	}
	return m.config, target, m.originURL
}

// locatorFromResult extracts a target locator from a directive result
// shaped like {"target": {"selector": ..., "role": ..., "label": ...}}.
// Anything else returns nil; the executed payload's value has no schema.
func locatorFromResult(result interface{}) *types.TargetLocator {
	obj, ok := result.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := obj["target"]
	if !ok {
		return nil
	}
	data, err := sonic.Marshal(raw)
	if err != nil {
		return nil
	}
	var loc types.TargetLocator
	if err := sonic.Unmarshal(data, &loc); err != nil || loc.Selector == "" {
		return nil
	}
	return &loc
}
