// Package server runs the HTTP listeners of the edge, the origin and the
// metrics endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// Listener timeouts.
const (
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 90 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
)

// Listener is a named HTTP listener.
type Listener struct {
	name         string
	address      string
	handler      http.Handler
	logger       observability.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	server  *http.Server
	bound   net.Addr
	running atomic.Bool
	done    chan struct{}
}

// Option is a functional option for configuring a listener.
type Option func(*Listener)

// WithLogger sets the logger for the listener.
func WithLogger(logger observability.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithWriteTimeout overrides the response write timeout. It must exceed
// the longest function or origin timeout served by the listener.
func WithWriteTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.writeTimeout = d
		}
	}
}

// NewListener creates a listener. Nothing is bound until Start.
func NewListener(name, address string, handler http.Handler, opts ...Option) *Listener {
	l := &Listener{
		name:         name,
		address:      address,
		handler:      handler,
		logger:       observability.NopLogger(),
		writeTimeout: DefaultWriteTimeout,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.name
}

// Addr returns the bound address once started and the configured one
// before.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bound != nil {
		return l.bound.String()
	}
	return l.address
}

// Start binds the address and serves in the background.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("listener %s is already running", l.name)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.address, err)
	}

	srv := &http.Server{
		Handler:           l.handler,
		ReadTimeout:       DefaultReadTimeout,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      l.writeTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}

	l.mu.Lock()
	l.server = srv
	l.bound = ln.Addr()
	l.done = make(chan struct{})
	l.mu.Unlock()

	l.running.Store(true)

	l.logger.Info("listener started",
		observability.String("name", l.name),
		observability.String("address", ln.Addr().String()),
	)

	go l.serve(srv, ln, l.done)

	return nil
}

func (l *Listener) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error",
			observability.String("name", l.name),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Stop shuts the listener down, waiting for in-flight requests until ctx
// expires.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	l.mu.Lock()
	srv, done := l.server, l.done
	l.mu.Unlock()

	l.logger.Info("stopping listener", observability.String("name", l.name))

	if err := srv.Shutdown(ctx); err != nil {
		if closeErr := srv.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}
	<-done

	l.logger.Info("listener stopped", observability.String("name", l.name))

	return nil
}

// IsRunning returns true if the listener is running.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}
