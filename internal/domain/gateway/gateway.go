// Package gateway is the caller-facing entry point of the bridge.
//
// Submit creates the pending correlation entry first, then pushes an
// execute frame to every registered peer; Poll reads the entry back.
// Together with the store's first-wins Resolve this gives exactly-once
// outcome delivery to the caller that issued the id.
package gateway

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/domain/correlation"
	"github.com/tabpilot/bridge/internal/shared/id"
	"github.com/tabpilot/bridge/internal/shared/types"
)

var (
	// ErrEmptyCode rejects submissions with no payload
	ErrEmptyCode = errors.New("code must not be empty")
	// ErrInvalidTimeout rejects non-positive timeouts
	ErrInvalidTimeout = errors.New("timeout must be positive")
	// ErrInvalidRequestID rejects polls for ids that were never issued here
	ErrInvalidRequestID = errors.New("malformed request id")
)

// Broadcaster is the slice of the connection registry the gateway needs
type Broadcaster interface {
	Broadcast(data []byte) int
	IsAnyActive() bool
}

// Gateway accepts submissions and answers polls
type Gateway struct {
	store          *correlation.Store
	peers          Broadcaster
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// New creates a gateway. defaultTimeout applies when Submit gets zero.
func New(store *correlation.Store, peers Broadcaster, defaultTimeout time.Duration, logger *zap.Logger) *Gateway {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		store:          store,
		peers:          peers,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// Submit registers a unit of work under a fresh id and broadcasts it to
// the peers. The timeout must be positive; translating "caller omitted the
// timeout" into the default happens at the HTTP layer, where omission is
// actually distinguishable from an explicit zero.
func (g *Gateway) Submit(code string, timeout time.Duration) (id.RequestID, error) {
	requestID := id.NewRequestID()
	if err := g.SubmitWithID(requestID, code, timeout); err != nil {
		return "", err
	}
	return requestID, nil
}

// SubmitWithID registers a unit of work under a caller-chosen id. The
// control manager uses this to record the id in its own bookkeeping before
// the execute frame is broadcast, so a fast ack can never race it. The
// pending entry is created before the broadcast so a reply can never race
// a missing entry. A submission with no peer connected is still accepted;
// its eventual timeout says so.
func (g *Gateway) SubmitWithID(requestID id.RequestID, code string, timeout time.Duration) error {
	if code == "" {
		return ErrEmptyCode
	}
	if timeout <= 0 {
		return ErrInvalidTimeout
	}

	hadPeer := g.peers.IsAnyActive()

	if err := g.store.Create(requestID, code, timeout, hadPeer); err != nil {
		return err
	}

	frame, err := types.Encode(types.NewExecute(requestID.String(), code))
	if err != nil {
		return err
	}
	delivered := g.peers.Broadcast(frame)

	g.logger.Debug("submission dispatched",
		zap.String("request_id", requestID.String()),
		zap.Int("delivered", delivered),
		zap.Duration("timeout", timeout),
	)
	return nil
}

// DefaultTimeout is the timeout applied when a submission omits one
func (g *Gateway) DefaultTimeout() time.Duration {
	return g.defaultTimeout
}

// Poll returns the current state of a request id. Unknown is a distinct
// status, never an error that could be confused with "still pending".
func (g *Gateway) Poll(requestID string) (types.Outcome, correlation.Status, error) {
	if !id.IsValidRequestID(requestID) {
		return types.Outcome{}, correlation.StatusUnknown, ErrInvalidRequestID
	}
	outcome, status := g.store.Get(id.RequestID(requestID))
	return outcome, status, nil
}

// PendingFrames returns the encoded execute frames of all unanswered
// submissions, for replay to a peer that connected mid-wait.
func (g *Gateway) PendingFrames() [][]byte {
	pending := g.store.PendingExecutes()
	frames := make([][]byte, 0, len(pending))
	for _, p := range pending {
		frame, err := types.Encode(types.NewExecute(p.RequestID.String(), p.Code))
		if err != nil {
			continue
		}
		frames = append(frames, frame)
	}
	return frames
}
