package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/moodcast/internal/catalog"
	"github.com/nerrad567/moodcast/internal/history"
	"github.com/nerrad567/moodcast/internal/infrastructure/config"
	"github.com/nerrad567/moodcast/internal/infrastructure/logging"
	"github.com/nerrad567/moodcast/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// MoodReader exposes the gateway's mood store.
type MoodReader interface {
	Snapshot() map[catalog.City]catalog.Mood
}

// HistoryReader exposes served lookups.
type HistoryReader interface {
	Recent(ctx context.Context, city catalog.City, limit int) ([]history.Lookup, error)
	Count(ctx context.Context, city catalog.City) (int, error)
}

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatsProvider reports database pool statistics.
type StatsProvider interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Moods   MoodReader
	History HistoryReader    // Optional: history endpoint answers 503 without it
	Metrics *metrics.Metrics // Optional: /metrics is not mounted without it
	DB      StatsProvider    // Optional: database section of /status

	// Hub is the event feed behind /api/v1/ws. When nil the server builds
	// its own, which nothing broadcasts to.
	Hub *Hub

	// Checks are run by the health endpoint, keyed by component name.
	Checks map[string]HealthChecker

	Version string
}

// Server is the HTTP status API.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	moods     MoodReader
	history   HistoryReader
	metrics   *metrics.Metrics
	db        StatsProvider
	checks    map[string]HealthChecker
	hub       *Hub
	version   string
	startTime time.Time

	mu        sync.Mutex
	server    *http.Server
	listener  net.Listener
	hubCancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Moods == nil {
		return nil, fmt.Errorf("mood reader is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.Config.WebSocket, deps.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		moods:     deps.Moods,
		history:   deps.History,
		metrics:   deps.Metrics,
		db:        deps.DB,
		checks:    deps.Checks,
		hub:       hub,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves in a background goroutine. The
// server can be stopped with Close().
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	hubCtx, hubCancel := context.WithCancel(ctx)
	s.hubCancel = hubCancel
	go s.hub.Run(hubCtx)

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", ln.Addr().String())
	return nil
}

// Hub returns the WebSocket event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	hubCancel := s.hubCancel
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	// Hijacked WebSocket connections are not tracked by Shutdown.
	if hubCancel != nil {
		hubCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
