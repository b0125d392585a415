// Package http exposes the caller-facing submit/poll surface.
//
// All responses share the {"ok": bool, ...} envelope. NoPeer, Timeout and
// UnknownRequestId come back as structured outcomes, never as 5xx crashes;
// "my code failed on the page" and "nothing was listening" stay
// distinguishable for the CLI.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/domain/control"
	"github.com/tabpilot/bridge/internal/domain/correlation"
	"github.com/tabpilot/bridge/internal/domain/gateway"
	"github.com/tabpilot/bridge/internal/domain/notify"
	"github.com/tabpilot/bridge/internal/domain/registry"
	"github.com/tabpilot/bridge/internal/shared/types"
)

// RunRequest is the submit payload
type RunRequest struct {
	Code      string `json:"code" binding:"required"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// ReinitRequest is the manual reinit payload
type ReinitRequest struct {
	Config *types.ControlConfig `json:"config,omitempty"`
}

// ControlStartRequest is the control session start payload
type ControlStartRequest struct {
	Config *types.ControlConfig `json:"config,omitempty"`
}

// DirectiveRequest is the control directive payload
type DirectiveRequest struct {
	Name      string                 `json:"name" binding:"required"`
	Args      map[string]interface{} `json:"args,omitempty"`
	TimeoutMs int                    `json:"timeout_ms,omitempty"`
}

// Handlers contains all HTTP handlers
type Handlers struct {
	gateway *gateway.Gateway
	peers   *registry.Registry
	store   *correlation.Store
	control *control.Manager
	notices *notify.Queue
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	gw *gateway.Gateway,
	peers *registry.Registry,
	store *correlation.Store,
	ctl *control.Manager,
	notices *notify.Queue,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		gateway: gw,
		peers:   peers,
		store:   store,
		control: ctl,
		notices: notices,
		logger:  logger,
	}
}

// Root handles the banner endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": "tabpilot-bridge",
		"version": "0.3.0",
	})
}

// Run accepts a code submission and returns its request id
func (h *Handlers) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if req.TimeoutMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": gateway.ErrInvalidTimeout.Error()})
		return
	}

	// Only here is an omitted timeout distinguishable from a bad one
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if req.TimeoutMs == 0 {
		timeout = h.gateway.DefaultTimeout()
	}

	requestID, err := h.gateway.Submit(req.Code, timeout)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	resp := gin.H{"ok": true, "request_id": requestID.String()}
	if !h.peers.IsAnyActive() {
		resp["warning"] = "no peer connected"
	}
	c.JSON(http.StatusOK, resp)
}

// Result polls the outcome of a submission
func (h *Handlers) Result(c *gin.Context) {
	requestID := c.Query("request_id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing request_id"})
		return
	}

	outcome, status, err := h.gateway.Poll(requestID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	switch status {
	case correlation.StatusPending:
		c.JSON(http.StatusOK, gin.H{"ok": false, "status": "pending"})
	case correlation.StatusDone:
		if outcome.OK {
			c.JSON(http.StatusOK, gin.H{
				"ok":     true,
				"result": outcome.Result,
				"url":    outcome.URL,
				"title":  outcome.Title,
			})
		} else {
			c.JSON(http.StatusOK, gin.H{"ok": false, "error": outcome.Error})
		}
	default:
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "unknown request id"})
	}
}

// Health reports bridge liveness and store counts
func (h *Handlers) Health(c *gin.Context) {
	pending, completed := h.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"connected_peers": h.peers.Count(),
		"pending":         pending,
		"completed":       completed,
		"control_session": h.control.State().String(),
		"notifications":   h.notices.Len(),
	})
}

// Notifications drains the caller notification queue
func (h *Handlers) Notifications(c *gin.Context) {
	drained := h.notices.Drain()
	if drained == nil {
		drained = []types.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "notifications": drained})
}

// ReinitControl manually triggers the control session restore
func (h *Handlers) ReinitControl(c *gin.Context) {
	var req ReinitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}

	requestID, err := h.control.HandleReinit(req.Config)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "request_id": requestID.String()})
}

// ControlStart begins a control session
func (h *Handlers) ControlStart(c *gin.Context) {
	var req ControlStartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}

	requestID, err := h.control.Start(req.Config)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "request_id": requestID.String()})
}

// ControlDirective issues a session directive and returns the request id
// for the caller to poll like any other submission.
func (h *Handlers) ControlDirective(c *gin.Context) {
	var req DirectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if req.TimeoutMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": gateway.ErrInvalidTimeout.Error()})
		return
	}

	requestID, err := h.control.Directive(req.Name, req.Args, time.Duration(req.TimeoutMs)*time.Millisecond)
	if err != nil {
		if errors.Is(err, control.ErrNoSession) {
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "request_id": requestID.String()})
}

// ControlStop ends the control session
func (h *Handlers) ControlStop(c *gin.Context) {
	requestID, err := h.control.Stop()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	}
	resp := gin.H{"ok": true}
	if requestID != "" {
		resp["request_id"] = requestID.String()
	}
	c.JSON(http.StatusOK, resp)
}
