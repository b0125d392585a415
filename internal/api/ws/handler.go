package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/domain/control"
	"github.com/tabpilot/bridge/internal/domain/correlation"
	"github.com/tabpilot/bridge/internal/domain/gateway"
	"github.com/tabpilot/bridge/internal/domain/notify"
	"github.com/tabpilot/bridge/internal/domain/registry"
	"github.com/tabpilot/bridge/internal/infrastructure/monitoring"
	"github.com/tabpilot/bridge/internal/shared/id"
	"github.com/tabpilot/bridge/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Single-machine trust boundary; the extension connects from an
		// arbitrary page origin.
		return true
	},
}

const writeTimeout = 10 * time.Second

// conn adapts a gorilla connection to the registry's writer surface
type conn struct {
	ws *websocket.Conn
}

func (c *conn) WriteText(data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) Close() error {
	return c.ws.Close()
}

// Handler routes inbound peer frames to the domain services
type Handler struct {
	peers   *registry.Registry
	store   *correlation.Store
	gateway *gateway.Gateway
	control *control.Manager
	notices *notify.Queue
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates the peer channel handler
func NewHandler(
	peers *registry.Registry,
	store *correlation.Store,
	gw *gateway.Gateway,
	ctl *control.Manager,
	notices *notify.Queue,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		peers:   peers,
		store:   store,
		gateway: gw,
		control: ctl,
		notices: notices,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleConnection upgrades the request and runs the read loop until the
// peer goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	peer := h.peers.Register(&conn{ws: wsConn})
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	defer func() {
		h.peers.Unregister(peer.ID)
		wsConn.Close()
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
	}()

	// A peer that connects mid-wait still gets the unanswered executes.
	for _, frame := range h.gateway.PendingFrames() {
		if err := peer.Send(frame); err != nil {
			h.logger.Warn("pending replay failed", zap.Error(err))
			return
		}
	}

	for {
		msgType, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		h.onMessage(peer, raw)
	}
}

// onMessage dispatches one inbound frame. Any frame counts as activity.
func (h *Handler) onMessage(peer *registry.Peer, raw []byte) {
	h.peers.Touch(peer.ID)

	frameType, err := types.DecodeEnvelope(raw)
	if err != nil {
		h.logger.Warn("dropping malformed frame",
			zap.String("conn_id", peer.ID.String()),
			zap.Error(err),
		)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("inbound", string(frameType))
	}

	switch frameType {
	case types.TypeResult:
		h.onResult(peer, raw)
	case types.TypePing:
		h.reply(peer, types.NewPong())
	case types.TypePong:
		// activity already recorded
	case types.TypeReinitControl:
		h.onReinitControl(peer, raw)
	case types.TypeRefocusNotification:
		h.onRefocusNotification(peer, raw)
	default:
		// Forward compatibility: never crash the connection on a type
		// this build does not know.
		h.logger.Info("dropping unknown frame type",
			zap.String("type", string(frameType)),
			zap.String("conn_id", peer.ID.String()),
		)
	}
}

func (h *Handler) onResult(peer *registry.Peer, raw []byte) {
	msg, err := types.DecodeResult(raw)
	if err != nil {
		h.logger.Warn("dropping bad result frame",
			zap.String("conn_id", peer.ID.String()),
			zap.Error(err),
		)
		return
	}

	requestID := id.RequestID(msg.RequestID)
	outcome := types.FromResult(msg)

	if !h.store.Resolve(requestID, outcome) {
		// Duplicate reply from a second tab, or a reply for an id that
		// already expired and was swept. Either way: a deliberate no-op.
		h.logger.Debug("discarding late or duplicate result",
			zap.String("request_id", msg.RequestID),
			zap.String("conn_id", peer.ID.String()),
		)
		return
	}

	if h.metrics != nil {
		if msg.OK {
			h.metrics.RecordSubmission("ok")
		} else {
			h.metrics.RecordSubmission("error")
		}
	}

	h.control.ObserveOutcome(requestID, outcome)
	h.logger.Debug("result correlated",
		zap.String("request_id", msg.RequestID),
		zap.Bool("ok", msg.OK),
	)
}

func (h *Handler) onReinitControl(peer *registry.Peer, raw []byte) {
	msg, err := types.DecodeReinitControl(raw)
	if err != nil {
		h.logger.Warn("dropping bad reinit frame",
			zap.String("conn_id", peer.ID.String()),
			zap.Error(err),
		)
		return
	}

	if _, err := h.control.HandleReinit(msg.Config); err != nil {
		h.logger.Info("reinit handshake ignored",
			zap.String("conn_id", peer.ID.String()),
			zap.Error(err),
		)
	}
}

func (h *Handler) onRefocusNotification(peer *registry.Peer, raw []byte) {
	msg, err := types.DecodeRefocusNotification(raw)
	if err != nil {
		h.logger.Warn("dropping bad notification frame",
			zap.String("conn_id", peer.ID.String()),
			zap.Error(err),
		)
		return
	}

	h.notices.Push(types.Notification{
		OK:         msg.OK,
		Message:    msg.Message,
		ReceivedAt: time.Now(),
	})
}

func (h *Handler) reply(peer *registry.Peer, msg interface{}) {
	frame, err := types.Encode(msg)
	if err != nil {
		return
	}
	if err := peer.Send(frame); err != nil {
		h.peers.Unregister(peer.ID)
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("outbound", string(types.TypePong))
	}
}
