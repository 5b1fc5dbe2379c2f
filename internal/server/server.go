package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/muurk/garagectl/internal/discovery"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/version"
	"go.uber.org/zap"
)

const (
	DefaultPort       = 8080
	DefaultTravelTime = 15 * time.Second
	DefaultTick       = 100 * time.Millisecond
	DefaultKeepAlive  = time.Second
	DefaultInstance   = "garage-sim"

	shutdownTimeout = 5 * time.Second
)

// Config holds the simulator configuration
type Config struct {
	Host       string
	Port       int
	APIKey     string        // Bearer token; generated when empty
	TravelTime time.Duration // Full open/close travel
	Tick       time.Duration // Simulation step
	KeepAlive  time.Duration // SSE comment interval
	Advertise  bool          // Publish over mDNS
	Instance   string        // mDNS instance name
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.APIKey == "" {
		c.APIKey = uuid.NewString()
	}
	if c.TravelTime <= 0 {
		c.TravelTime = DefaultTravelTime
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = DefaultKeepAlive
	}
	if c.Instance == "" {
		c.Instance = DefaultInstance
	}
}

// Server is the simulated door controller
type Server struct {
	config     Config
	door       *Door
	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	advertiser *discovery.Advertiser

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	cancelDoor  context.CancelFunc
}

// New creates a new Server instance. Missing config values get defaults.
func New(config Config) (*Server, error) {
	config.applyDefaults()
	if config.Port < 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", config.Port)
	}

	s := &Server{
		config:      config,
		door:        NewDoor(config.TravelTime),
		activeConns: make(map[string]*websocket.Conn),
		done:        make(chan struct{}),
	}
	s.engine = s.routes()
	return s, nil
}

// APIKey returns the bearer token clients must present.
func (s *Server) APIKey() string {
	return s.config.APIKey
}

// Door returns the simulated door.
func (s *Server) Door() *Door {
	return s.door
}

// Handler returns the HTTP handler, for mounting under httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listening address once Listen has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen binds the TCP listener and starts the door simulation.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelDoor = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.door.Run(ctx, s.config.Tick)
	}()

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		ad, err := discovery.Advertise(discovery.Advertisement{
			Instance: s.config.Instance,
			Port:     port,
			Door:     "Simulated door",
			Version:  version.Get().Version,
		})
		if err != nil {
			// The simulator is still usable by address
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.advertiser = ad
		}
	}

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Info("Simulator listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("travel_time", s.config.TravelTime),
		zap.Bool("advertise", s.config.Advertise),
	)
	return nil
}

// Serve answers requests until Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start listens and blocks until ctx ends, SIGINT/SIGTERM arrives, or
// serving fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping simulator...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown stops streams, the door loop and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		logging.Info("Shutting down simulator...")
		close(s.done)

		s.advertiser.Shutdown()
		if s.cancelDoor != nil {
			s.cancelDoor()
		}

		// Hijacked websocket connections are not tracked by http.Server
		s.mu.Lock()
		for addr, conn := range s.activeConns {
			logging.Debug("Closing watch connection", zap.String("remote_addr", addr))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
		s.mu.Unlock()

		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			logging.Info("Simulator stopped")
		case <-ctx.Done():
			logging.Warn("Shutdown timeout, some streams may not have closed")
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}

func (s *Server) track(addr string, conn *websocket.Conn) {
	s.mu.Lock()
	s.activeConns[addr] = conn
	s.mu.Unlock()
}

func (s *Server) untrack(addr string) {
	s.mu.Lock()
	delete(s.activeConns, addr)
	s.mu.Unlock()
}
