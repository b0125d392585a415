// Package server wires the bridge's components into one HTTP process.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/tabpilot/bridge/internal/api/http"
	"github.com/tabpilot/bridge/internal/api/middleware"
	"github.com/tabpilot/bridge/internal/api/ws"
	"github.com/tabpilot/bridge/internal/domain/control"
	"github.com/tabpilot/bridge/internal/domain/correlation"
	"github.com/tabpilot/bridge/internal/domain/gateway"
	"github.com/tabpilot/bridge/internal/domain/notify"
	"github.com/tabpilot/bridge/internal/domain/registry"
	"github.com/tabpilot/bridge/internal/infrastructure/config"
	"github.com/tabpilot/bridge/internal/infrastructure/logging"
	"github.com/tabpilot/bridge/internal/infrastructure/monitoring"
	"github.com/tabpilot/bridge/internal/shared/types"
)

// Server wraps the HTTP server and its dependencies
type Server struct {
	router  *gin.Engine
	peers   *registry.Registry
	store   *correlation.Store
	control *control.Manager
	notices *notify.Queue
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics

	keepaliveStop chan struct{}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.ForLevel(cfg.Logging.Level, false)
	}

	logger.Info("Initializing bridge",
		zap.String("port", cfg.Server.Port),
		zap.Duration("default_timeout", cfg.Bridge.DefaultTimeout),
		zap.Duration("result_retention", cfg.Bridge.ResultRetention),
	)

	metrics := monitoring.NewMetrics()

	peers := registry.New(logger.Logger)
	store := correlation.New(cfg.Bridge.ResultRetention, logger.Logger)
	store.StartSweeper(cfg.Bridge.SweepInterval, func(expired, _ int) {
		if expired > 0 {
			metrics.AddRequestsExpired(expired)
		}
	})

	notices := notify.New(cfg.Bridge.NotificationBuffer, logger.Logger)
	gw := gateway.New(store, peers, cfg.Bridge.DefaultTimeout, logger.Logger)
	ctl := control.NewManager(gw, logger.Logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(gw, peers, store, ctl, notices, logger.Logger)
	wsHandler := ws.NewHandler(peers, store, gw, ctl, notices, metrics, logger.Logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Submission gateway
	router.POST("/run", handlers.Run)
	router.GET("/result", handlers.Result)

	// Caller side-channel
	router.GET("/notifications", handlers.Notifications)

	// Control session
	router.POST("/control/start", handlers.ControlStart)
	router.POST("/control/stop", handlers.ControlStop)
	router.POST("/control/directive", handlers.ControlDirective)
	router.POST("/reinit-control", handlers.ReinitControl)

	// Peer channel
	router.GET("/ws", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s := &Server{
		router:        router,
		peers:         peers,
		store:         store,
		control:       ctl,
		notices:       notices,
		logger:        logger,
		config:        cfg,
		metrics:       metrics,
		keepaliveStop: make(chan struct{}),
	}
	go s.keepalive()

	logger.Info("Server initialized")
	return s, nil
}

// Router exposes the gin engine, mainly for tests that mount it on a
// listener of their own.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down bridge...")

	// End an active control session locally; delivery is best-effort
	if s.control.State() != control.StateInactive {
		s.control.Stop()
	}

	close(s.keepaliveStop)
	s.store.StopSweeper()
	s.logger.Sync()
	return nil
}

// keepalive pings all peers and reaps connections that have gone silent.
// Pong replies count as activity through the router's touch path.
func (s *Server) keepalive() {
	interval := s.config.Bridge.PingInterval
	if interval <= 0 {
		return
	}
	pingFrame, err := types.Encode(types.Ping{Type: types.TypePing})
	if err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastDropped := 0
	for {
		select {
		case <-ticker.C:
			s.peers.Broadcast(pingFrame)
			if dropped := s.peers.ReapIdle(s.config.Bridge.IdleTimeout); dropped > 0 {
				s.logger.Info("reaped idle peers", zap.Int("count", dropped))
			}
			pending, _ := s.store.Stats()
			s.metrics.SetPendingRequests(pending)
			if dropped := s.notices.Dropped(); dropped > lastDropped {
				s.metrics.AddNotificationsDropped(dropped - lastDropped)
				lastDropped = dropped
			}
		case <-s.keepaliveStop:
			return
		}
	}
}
