package peersim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/shared/types"
)

// Config holds peer simulator options
type Config struct {
	BridgeURL   string // ws:// endpoint of the bridge
	PageURL     string // simulated page location
	PageTitle   string // simulated document title
	ExecTimeout time.Duration
	Logger      *zap.Logger
}

// Peer simulates a connected browser tab
type Peer struct {
	cfg    Config
	logger *zap.Logger

	vm   *goja.Runtime
	vmMu sync.Mutex

	conn    *websocket.Conn
	writeMu sync.Mutex

	// controlCfg survives Reload, mirroring the extension persisting the
	// session in page storage
	stateMu    sync.Mutex
	controlCfg *types.ControlConfig
}

// New creates a peer simulator
func New(cfg Config) (*Peer, error) {
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("bridge url required")
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 5 * time.Second
	}
	if cfg.PageURL == "" {
		cfg.PageURL = "about:blank"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Peer{
		cfg:    cfg,
		logger: cfg.Logger,
	}
	p.vm = p.newVM()
	return p, nil
}

// newVM builds a fresh runtime with the page globals and the control
// helpers the session payloads call.
func (p *Peer) newVM() *goja.Runtime {
	vm := goja.New()

	location := vm.NewObject()
	location.Set("href", p.cfg.PageURL)
	doc := vm.NewObject()
	doc.Set("title", p.cfg.PageTitle)
	vm.Set("location", location)
	vm.Set("document", doc)

	helpers := vm.NewObject()
	helpers.Set("controlStart", func(call goja.FunctionCall) goja.Value {
		var cfg types.ControlConfig
		if len(call.Arguments) > 0 {
			if raw, err := call.Arguments[0].ToObject(vm).MarshalJSON(); err == nil {
				_ = unmarshalConfig(raw, &cfg)
			}
		}
		p.stateMu.Lock()
		p.controlCfg = &cfg
		p.stateMu.Unlock()
		return vm.ToValue(map[string]interface{}{"started": true})
	})
	helpers.Set("controlStop", func(call goja.FunctionCall) goja.Value {
		p.stateMu.Lock()
		p.controlCfg = nil
		p.stateMu.Unlock()
		return vm.ToValue(map[string]interface{}{"stopped": true})
	})
	helpers.Set("restoreFocus", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(map[string]interface{}{"restored": true})
	})
	step := 0
	helpers.Set("directive", func(call goja.FunctionCall) goja.Value {
		step++
		return vm.ToValue(map[string]interface{}{
			"target": map[string]interface{}{
				"selector": fmt.Sprintf("[data-focus-step='%d']", step),
				"role":     "link",
			},
		})
	})

	window := vm.NewObject()
	window.Set("__tabpilot__", helpers)
	vm.Set("window", window)
	vm.Set("__tabpilot__", helpers)

	return vm
}

// Connect dials the bridge and, when a control session was active before
// the last disconnect, initiates the reinit handshake.
func (p *Peer) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.cfg.BridgeURL, nil)
	if err != nil {
		return fmt.Errorf("dial bridge: %w", err)
	}
	p.writeMu.Lock()
	p.conn = conn
	p.writeMu.Unlock()

	p.stateMu.Lock()
	persisted := p.controlCfg
	p.stateMu.Unlock()
	if persisted != nil {
		p.send(types.ReinitControl{Type: types.TypeReinitControl, Config: persisted})
	}
	return nil
}

// Run processes frames until the connection drops or ctx is cancelled
func (p *Peer) Run(ctx context.Context) error {
	if p.conn == nil {
		if err := p.Connect(ctx); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		p.conn.Close()
	}()

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		p.onFrame(raw)
	}
}

// Reload simulates a page navigation: the connection drops, the VM state
// is discarded, but the persisted control config survives.
func (p *Peer) Reload(ctx context.Context) error {
	p.writeMu.Lock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.writeMu.Unlock()

	p.vmMu.Lock()
	p.vm = p.newVM()
	p.vmMu.Unlock()

	return p.Connect(ctx)
}

func (p *Peer) onFrame(raw []byte) {
	frameType, err := types.DecodeEnvelope(raw)
	if err != nil {
		p.logger.Warn("peer dropping malformed frame", zap.Error(err))
		return
	}

	switch frameType {
	case types.TypeExecute:
		msg, err := types.DecodeExecute(raw)
		if err != nil {
			p.logger.Warn("peer dropping bad execute", zap.Error(err))
			return
		}
		p.execute(msg)
	case types.TypePing:
		p.send(types.NewPong())
	case types.TypePong:
		// keepalive answered, nothing to do
	default:
		p.logger.Debug("peer ignoring frame", zap.String("type", string(frameType)))
	}
}

// execute runs the payload with a timeout interrupt and replies with a
// result frame carrying the simulated page context.
func (p *Peer) execute(msg *types.Execute) {
	p.vmMu.Lock()
	vm := p.vm

	timer := time.AfterFunc(p.cfg.ExecTimeout, func() {
		vm.Interrupt("execution timeout exceeded")
	})

	val, err := vm.RunString(msg.Code)
	timer.Stop()
	vm.ClearInterrupt()
	p.vmMu.Unlock()

	reply := types.Result{
		Type:      types.TypeResult,
		RequestID: msg.RequestID,
		URL:       p.cfg.PageURL,
		Title:     p.cfg.PageTitle,
	}
	if err != nil {
		reply.OK = false
		reply.Error = err.Error()
	} else {
		reply.OK = true
		if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
			reply.Result = val.Export()
		}
	}
	p.send(reply)
}

func (p *Peer) send(msg interface{}) {
	frame, err := types.Encode(msg)
	if err != nil {
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.conn == nil {
		return
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		p.logger.Warn("peer write failed", zap.Error(err))
	}
}

func unmarshalConfig(raw []byte, cfg *types.ControlConfig) error {
	return sonic.Unmarshal(raw, cfg)
}
