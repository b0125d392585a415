package peersim

import (
	"testing"
	"time"

	"github.com/tabpilot/bridge/internal/shared/types"
)

func newTestPeer(t *testing.T) *Peer {
	t.Helper()
	p, err := New(Config{
		BridgeURL:   "ws://127.0.0.1:0/ws",
		PageURL:     "https://example.com",
		PageTitle:   "Example",
		ExecTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewRequiresBridgeURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New accepted an empty bridge url")
	}
}

func TestVMExposesPageGlobals(t *testing.T) {
	p := newTestPeer(t)

	val, err := p.vm.RunString("document.title + ' @ ' + location.href")
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	if got := val.Export(); got != "Example @ https://example.com" {
		t.Errorf("page globals = %v", got)
	}
}

func TestControlStartPersistsAcrossVMReplacement(t *testing.T) {
	p := newTestPeer(t)

	code := `window.__tabpilot__.controlStart({refocus:"manual",visual_feedback:true,wrap:false})`
	if _, err := p.vm.RunString(code); err != nil {
		t.Fatalf("controlStart: %v", err)
	}

	p.stateMu.Lock()
	persisted := p.controlCfg
	p.stateMu.Unlock()
	if persisted == nil {
		t.Fatal("controlStart did not persist the config")
	}
	if persisted.Refocus != types.RefocusManual || persisted.Wrap {
		t.Errorf("persisted config = %+v", persisted)
	}

	// the reload path swaps in a fresh VM; the persisted config survives
	p.vmMu.Lock()
	p.vm = p.newVM()
	p.vmMu.Unlock()

	p.stateMu.Lock()
	stillThere := p.controlCfg != nil
	p.stateMu.Unlock()
	if !stillThere {
		t.Error("config lost across VM replacement")
	}

	if _, err := p.vm.RunString("window.__tabpilot__.controlStop()"); err != nil {
		t.Fatalf("controlStop: %v", err)
	}
	p.stateMu.Lock()
	cleared := p.controlCfg == nil
	p.stateMu.Unlock()
	if !cleared {
		t.Error("controlStop did not clear the config")
	}
}

func TestExecuteTimeoutInterruptsScript(t *testing.T) {
	p := newTestPeer(t)

	timer := time.AfterFunc(p.cfg.ExecTimeout, func() {
		p.vm.Interrupt("execution timeout exceeded")
	})
	_, err := p.vm.RunString("while(true){}")
	timer.Stop()
	p.vm.ClearInterrupt()

	if err == nil {
		t.Fatal("infinite loop ran to completion")
	}
}
