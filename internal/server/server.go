package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/device"
	"github.com/muurk/remoterelay/internal/logging"
)

// DefaultShutdownTimeout bounds Shutdown when the caller's context has no
// deadline.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath  string

	// GenerateCert serves HTTPS with an in-memory self-signed certificate
	GenerateCert bool
	Hostname     string
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Loop runs functions on the goroutine that owns the device state.
type Loop interface {
	Do(ctx context.Context, fn func(*device.Context) error) error
}

// Server is the relay HTTP API. It implements device.Web: the orchestrator
// tells it which routes to serve.
type Server struct {
	config    *Config
	loop      Loop
	logger    *zap.Logger
	tlsConfig *tls.Config

	mode     atomic.Int32
	router   *mux.Router
	upgrader websocket.Upgrader

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	streams  map[*websocket.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server. It serves nothing but "/" until SetMode is called.
func New(config *Config, loop Loop, opts ...Option) (*Server, error) {
	s := &Server{
		config:  config,
		loop:    loop,
		logger:  logging.GetLogger(),
		streams: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.mode.Store(int32(device.WebRequested))
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case config.GenerateCert:
		s.logger.Info("Generating self-signed server certificate")
		certPEM, keyPEM, err := GenerateSelfSigned(DefaultCertParams(config.Hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to generate certificate: %w", err)
		}
		if s.tlsConfig, err = NewTLSConfigFromMemory(certPEM, keyPEM); err != nil {
			return nil, err
		}
	case config.CertPath != "" || config.KeyPath != "":
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	s.router = s.routes()
	return s, nil
}

// SetMode switches the served route set.
func (s *Server) SetMode(m device.WebMode) {
	prev := device.WebMode(s.mode.Swap(int32(m)))
	if prev != m {
		s.logger.Info("Web service mode changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", m),
		)
	}
	if m == device.WebDisabled {
		s.closeStreams()
	}
}

// Mode returns the current web mode.
func (s *Server) Mode() device.WebMode {
	return device.WebMode(s.mode.Load())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.config.Addr()

	var (
		listener net.Listener
		err      error
	)
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		listener, err = tls.Listen("tcp", addr, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	s.mu.Lock()
	s.http = srv
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("Relay API listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Port returns the bound port, or 0 before Serve.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down relay API...")

	s.closeStreams()

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = srv.Close()
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Event streams did not finish before shutdown deadline")
	}
	return err
}

// ActiveStreams returns the number of open /events connections.
func (s *Server) ActiveStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

func (s *Server) closeStreams() {
	s.mu.Lock()
	for conn := range s.streams {
		_ = conn.Close()
	}
	s.mu.Unlock()
}

var _ device.Web = (*Server)(nil)
