// Package httpx holds the HTTP plumbing behind the poller's API: a server
// bound to a context, JSON responses, a health endpoint built from dependency
// checks, and request middleware.
package httpx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds how long Run waits for in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// Server serves one handler until its context ends.
type Server struct {
	srv             *http.Server
	certFile        string
	keyFile         string
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithTLS serves HTTPS with cfg and the given key pair. A nil cfg leaves the
// server on plain HTTP.
func WithTLS(cfg *tls.Config, certFile, keyFile string) Option {
	return func(s *Server) {
		if cfg == nil {
			return
		}
		s.srv.TLSConfig = cfg
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer creates a server for handler on addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves until ctx is done and then shuts down gracefully. It returns
// early with an error when the listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.serve() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping HTTP server", "timeout", s.shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", s.srv.Addr, err)
	}
	if err := <-errCh; err != nil {
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) serve() error {
	var err error
	if s.srv.TLSConfig != nil {
		s.logger.Info("serving HTTPS", "addr", s.srv.Addr)
		err = s.srv.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		s.logger.Info("serving HTTP", "addr", s.srv.Addr)
		err = s.srv.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", s.srv.Addr, err)
	}
	return nil
}
