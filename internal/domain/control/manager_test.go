package control

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tabpilot/bridge/internal/shared/id"
	"github.com/tabpilot/bridge/internal/shared/types"
)

type fakeSubmitter struct {
	codes []string
	err   error
}

func (f *fakeSubmitter) SubmitWithID(_ id.RequestID, code string, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeSubmitter) lastCode(t *testing.T) string {
	t.Helper()
	if len(f.codes) == 0 {
		t.Fatal("no code was submitted")
	}
	return f.codes[len(f.codes)-1]
}

func TestStartStop(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewManager(sub, nil)

	if m.State() != StateInactive {
		t.Fatalf("initial state = %v, want inactive", m.State())
	}

	reqID, err := m.Start(nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if m.State() != StateActive {
		t.Errorf("state after Start = %v, want active", m.State())
	}
	if !strings.Contains(sub.lastCode(t), "controlStart") {
		t.Errorf("start payload = %q", sub.lastCode(t))
	}

	if _, err := m.Start(nil); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Start err = %v, want ErrAlreadyActive", err)
	}

	m.ObserveOutcome(reqID, types.Outcome{OK: true, CompletedAt: time.Now()})
	if m.State() != StateActive {
		t.Errorf("state after start ack = %v, want active", m.State())
	}

	if _, err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.State() != StateInactive {
		t.Errorf("state after Stop = %v, want inactive", m.State())
	}
	if !strings.Contains(sub.lastCode(t), "controlStop") {
		t.Errorf("stop payload = %q", sub.lastCode(t))
	}

	if _, err := m.Stop(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop without session err = %v, want ErrNoSession", err)
	}
}

func TestStartRollsBackOnSubmitFailure(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("store full")}
	m := NewManager(sub, nil)

	if _, err := m.Start(nil); err == nil {
		t.Fatal("Start succeeded despite submit failure")
	}
	if m.State() != StateInactive {
		t.Errorf("state after failed Start = %v, want inactive", m.State())
	}
}

func TestStopIsBestEffort(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewManager(sub, nil)
	if _, err := m.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sub.err = errors.New("no peers")
	if _, err := m.Stop(); err != nil {
		t.Errorf("Stop with undeliverable execute = %v, want nil", err)
	}
	if m.State() != StateInactive {
		t.Errorf("state = %v, want inactive regardless of delivery", m.State())
	}
}

func TestReinitUsesStoredConfig(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewManager(sub, nil)

	cfg := types.DefaultControlConfig()
	cfg.Refocus = types.RefocusManual
	cfg.StepDelayMs = 250
	if _, err := m.Start(&cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// the peer reloads and reports a drifted config
	peerCfg := types.DefaultControlConfig()
	peerCfg.Refocus = types.RefocusOff
	reqID, err := m.HandleReinit(&peerCfg)
	if err != nil {
		t.Fatalf("HandleReinit: %v", err)
	}
	if m.State() != StateReinitializing {
		t.Errorf("state after reinit = %v, want reinitializing", m.State())
	}

	payload := sub.lastCode(t)
	if !strings.Contains(payload, `"manual"`) {
		t.Errorf("reinit payload %q does not carry the stored refocus policy", payload)
	}
	if strings.Contains(payload, `"off"`) {
		t.Errorf("reinit payload %q carries the peer's drifted config", payload)
	}

	m.ObserveOutcome(reqID, types.Outcome{OK: true, CompletedAt: time.Now()})
	if m.State() != StateActive {
		t.Errorf("state after reinit ack = %v, want active", m.State())
	}

	stored, _, _ := m.Snapshot()
	if stored.Refocus != types.RefocusManual || stored.StepDelayMs != 250 {
		t.Errorf("stored config mutated by reinit: %+v", stored)
	}
}

func TestReinitWithoutSession(t *testing.T) {
	m := NewManager(&fakeSubmitter{}, nil)
	if _, err := m.HandleReinit(nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("HandleReinit without session = %v, want ErrNoSession", err)
	}
}

func TestReinitRestoresLastKnownTarget(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewManager(sub, nil)
	if _, err := m.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// a directive reports where focus ended up
	m.ObserveOutcome(id.NewRequestID(), types.Outcome{
		OK:          true,
		Result:      map[string]interface{}{"target": map[string]interface{}{"selector": "#login", "role": "button"}},
		URL:         "https://example.com/form",
		CompletedAt: time.Now(),
	})

	if _, err := m.HandleReinit(nil); err != nil {
		t.Fatalf("HandleReinit: %v", err)
	}
	payload := sub.lastCode(t)
	if !strings.Contains(payload, "restoreFocus") {
		t.Errorf("reinit payload %q does not restore focus", payload)
	}
	if !strings.Contains(payload, "#login") {
		t.Errorf("reinit payload %q lost the target selector", payload)
	}
}

func TestDirectiveTimeoutKeepsSessionActive(t *testing.T) {
	m := NewManager(&fakeSubmitter{}, nil)
	reqID, err := m.Start(nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.ObserveOutcome(reqID, types.Outcome{OK: true, CompletedAt: time.Now()})

	// an unrelated directive times out
	m.ObserveOutcome(id.NewRequestID(), types.TimeoutOutcome(true))
	if m.State() != StateActive {
		t.Errorf("state after directive timeout = %v, want active", m.State())
	}
}

func TestFailedReinitAckStaysReinitializing(t *testing.T) {
	m := NewManager(&fakeSubmitter{}, nil)
	if _, err := m.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	reqID, err := m.HandleReinit(nil)
	if err != nil {
		t.Fatalf("HandleReinit: %v", err)
	}

	m.ObserveOutcome(reqID, types.Outcome{OK: false, Error: "page went away", CompletedAt: time.Now()})
	if m.State() != StateReinitializing {
		t.Errorf("state after failed ack = %v, want reinitializing", m.State())
	}
}

// ackingSubmitter delivers the ok ack synchronously, before SubmitWithID
// returns. A single-machine peer can answer this fast; the ack must match
// the already-recorded inflight id instead of falling into a gap.
type ackingSubmitter struct {
	m *Manager
}

func (s *ackingSubmitter) SubmitWithID(reqID id.RequestID, _ string, _ time.Duration) error {
	s.m.ObserveOutcome(reqID, types.Outcome{OK: true, CompletedAt: time.Now()})
	return nil
}

func TestAckDuringDispatchIsNotLost(t *testing.T) {
	sub := &ackingSubmitter{}
	m := NewManager(sub, nil)
	sub.m = m

	if _, err := m.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if m.State() != StateActive {
		t.Fatalf("state after instantly-acked Start = %v, want active", m.State())
	}

	if _, err := m.HandleReinit(nil); err != nil {
		t.Fatalf("HandleReinit: %v", err)
	}
	if m.State() != StateActive {
		t.Errorf("state after instantly-acked reinit = %v, want active", m.State())
	}
}

func TestDirective(t *testing.T) {
	sub := &fakeSubmitter{}
	m := NewManager(sub, nil)

	if _, err := m.Directive("next", nil, time.Second); !errors.Is(err, ErrNoSession) {
		t.Errorf("Directive without session = %v, want ErrNoSession", err)
	}

	if _, err := m.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := m.Directive("", nil, time.Second); !errors.Is(err, ErrEmptyDirective) {
		t.Errorf("unnamed directive = %v, want ErrEmptyDirective", err)
	}

	reqID, err := m.Directive("next", map[string]interface{}{"wrap": true}, time.Second)
	if err != nil {
		t.Fatalf("Directive: %v", err)
	}
	if reqID == "" {
		t.Error("Directive returned an empty request id")
	}
	payload := sub.lastCode(t)
	if !strings.Contains(payload, `directive("next"`) {
		t.Errorf("directive payload = %q", payload)
	}
	if !strings.Contains(payload, `"wrap":true`) {
		t.Errorf("directive payload %q lost its args", payload)
	}

	// the directive result feeds the last-known target
	m.ObserveOutcome(reqID, types.Outcome{
		OK:          true,
		Result:      map[string]interface{}{"target": map[string]interface{}{"selector": "#next-btn"}},
		URL:         "https://example.com",
		CompletedAt: time.Now(),
	})
	_, target, _ := m.Snapshot()
	if target == nil || target.Selector != "#next-btn" {
		t.Errorf("target after directive = %+v", target)
	}
}

func TestLocatorFromResult(t *testing.T) {
	if loc := locatorFromResult("a string"); loc != nil {
		t.Errorf("non-object result produced %+v", loc)
	}
	if loc := locatorFromResult(map[string]interface{}{"value": 1}); loc != nil {
		t.Errorf("object without target produced %+v", loc)
	}
	if loc := locatorFromResult(map[string]interface{}{"target": map[string]interface{}{"role": "button"}}); loc != nil {
		t.Errorf("target without selector produced %+v", loc)
	}

	loc := locatorFromResult(map[string]interface{}{
		"target": map[string]interface{}{"selector": "#next", "label": "Next page"},
	})
	if loc == nil || loc.Selector != "#next" || loc.Label != "Next page" {
		t.Errorf("locatorFromResult = %+v", loc)
	}
}
