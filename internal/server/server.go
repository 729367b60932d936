package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"asthma_shield/internal/config"
)

const maxHeaderBytes = 1 << 20

// Server owns the API listener. The zero value is usable with default
// timeouts; Shutdown may be called before, during or after Run.
type Server struct {
	cfg config.HTTPConfig

	mu     sync.Mutex
	srv    *http.Server
	ln     net.Listener
	closed bool
}

func New(cfg config.HTTPConfig) *Server {
	return &Server{cfg: cfg}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// listenAddr accepts "8080", ":8080" or "host:8080".
func listenAddr(port string) string {
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// Run listens on port and serves handler until Shutdown. It returns nil
// after a graceful shutdown.
func (s *Server) Run(port string, handler http.Handler) error {
	ln, err := net.Listen("tcp", listenAddr(port))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: orDefault(s.cfg.ReadHeaderTimeout, 10*time.Second),
		WriteTimeout:      orDefault(s.cfg.WriteTimeout, 10*time.Second),
		IdleTimeout:       orDefault(s.cfg.IdleTimeout, 60*time.Second),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.srv, s.ln = srv, ln
	s.mu.Unlock()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr is the bound address, nil until Run has started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown drains in-flight requests and makes Run return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
