package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/shared/id"
)

// Conn is the minimal surface the registry needs from a peer socket
type Conn interface {
	WriteText(data []byte) error
	Close() error
}

// Peer wraps a connection with its liveness bookkeeping. Writes are
// serialized per peer; gorilla connections do not allow concurrent writers.
type Peer struct {
	ID          id.ConnID
	ConnectedAt time.Time

	conn Conn

	mu           sync.Mutex // guards writes and lastActivity
	lastActivity time.Time
}

// LastActivity returns the time of the most recent inbound message
func (p *Peer) LastActivity() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActivity
}

func (p *Peer) touch() {
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()
}

// Send writes a text frame to this peer only
func (p *Peer) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteText(data)
}

// Registry is the set of currently-open peer connections
type Registry struct {
	mu     sync.Mutex
	peers  map[id.ConnID]*Peer
	logger *zap.Logger
}

// New creates an empty registry
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		peers:  make(map[id.ConnID]*Peer),
		logger: logger,
	}
}

// Register adds a connection and returns its peer handle
func (r *Registry) Register(conn Conn) *Peer {
	now := time.Now()
	peer := &Peer{
		ID:           id.NewConnID(),
		ConnectedAt:  now,
		conn:         conn,
		lastActivity: now,
	}

	r.mu.Lock()
	r.peers[peer.ID] = peer
	count := len(r.peers)
	r.mu.Unlock()

	r.logger.Info("peer connected",
		zap.String("conn_id", peer.ID.String()),
		zap.Int("connected_peers", count),
	)
	return peer
}

// Unregister removes a connection. Safe to call more than once; returns
// whether the peer was still registered.
func (r *Registry) Unregister(connID id.ConnID) bool {
	r.mu.Lock()
	_, ok := r.peers[connID]
	delete(r.peers, connID)
	count := len(r.peers)
	r.mu.Unlock()

	if ok {
		r.logger.Info("peer disconnected",
			zap.String("conn_id", connID.String()),
			zap.Int("connected_peers", count),
		)
	}
	return ok
}

// Touch records inbound activity for a connection
func (r *Registry) Touch(connID id.ConnID) {
	r.mu.Lock()
	peer, ok := r.peers[connID]
	r.mu.Unlock()
	if ok {
		peer.touch()
	}
}

// Broadcast delivers a text frame to every registered connection and returns
// the number of successful deliveries. A failed write evicts that connection
// but never fails the broadcast to the others.
func (r *Registry) Broadcast(data []byte) int {
	r.mu.Lock()
	snapshot := make([]*Peer, 0, len(r.peers))
	for _, peer := range r.peers {
		snapshot = append(snapshot, peer)
	}
	r.mu.Unlock()

	delivered := 0
	for _, peer := range snapshot {
		if err := peer.Send(data); err != nil {
			r.logger.Warn("broadcast write failed, evicting peer",
				zap.String("conn_id", peer.ID.String()),
				zap.Error(err),
			)
			r.Unregister(peer.ID)
			peer.conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// IsAnyActive reports whether at least one peer is registered. Used only to
// fail fast on submissions; a peer may still connect mid-wait.
func (r *Registry) IsAnyActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers) > 0
}

// Count returns the number of registered connections
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// ReapIdle evicts connections with no inbound activity for longer than
// maxIdle and returns how many were dropped.
func (r *Registry) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Peer
	for _, peer := range r.peers {
		if peer.LastActivity().Before(cutoff) {
			stale = append(stale, peer)
		}
	}
	r.mu.Unlock()

	for _, peer := range stale {
		r.logger.Info("reaping idle peer",
			zap.String("conn_id", peer.ID.String()),
			zap.Time("last_activity", peer.LastActivity()),
		)
		r.Unregister(peer.ID)
		peer.conn.Close()
	}
	return len(stale)
}
