// Package server provides the runtime shared by every protocol server in the
// host: the lifecycle state machine, TCP and UDP listener wrappers, the
// connection limiter, access lists and the accept/receive dispatch loops.
//
// A protocol server owns a *Runtime and supplies the protocol-specific part
// through the Listening interface:
//
//	type DNSServer struct{ *server.Runtime; ... }
//
//	func (s *DNSServer) StartListening(ctx context.Context) error {
//		ln, err := s.CreateUDPListener(addr, port)
//		...
//		s.Go(func() { s.RunUDPReceiveLoop(ctx, ln, s.handle) })
//		return nil
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/metrics"
)

// ListenerTeardownTimeout bounds how long replacing a listener waits for the
// old one to close.
var ListenerTeardownTimeout = 5 * time.Second

// Server is implemented by every protocol server the host runs.
type Server interface {
	Name() string
	Kind() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() State
	Statistics() *Statistics
	CheckHealth(ctx context.Context) bool
}

// Listening is the protocol-specific part of a server.
//
// StartListening receives the server's cancellation scope: every loop and
// handler it starts must end when that context is done. StopListening runs
// after the scope has been cancelled.
type Listening interface {
	StartListening(ctx context.Context) error
	StopListening(ctx context.Context) error
}

// Options configures a Runtime.
type Options struct {
	Name string
	Kind string // protocol, e.g. "DNS"

	// MaxConnections bounds concurrent handlers. Zero disables the limiter.
	MaxConnections int

	// AllowedNetworks restricts clients to these CIDRs. Empty allows all.
	AllowedNetworks []string

	Registry *metrics.Registry // optional
	Logger   *slog.Logger      // optional
}

// Runtime implements the Server lifecycle around a Listening implementation.
type Runtime struct {
	name     string
	kind     string
	logger   *slog.Logger
	registry *metrics.Registry
	limiter  *Limiter
	acl      *AccessList
	impl     Listening

	state   atomic.Int32
	metrics atomic.Pointer[metrics.ServerMetrics]
	stats   Statistics

	// lifecycle serializes Start, Stop and Reset.
	lifecycle sync.Mutex
	cancel    context.CancelFunc

	listenersMu sync.Mutex
	tcp         *TCPListener
	udp         *UDPListener

	tasks     sync.WaitGroup
	loopPause *rate.Limiter
}

// NewRuntime creates a stopped runtime that drives impl.
func NewRuntime(opts Options, impl Listening) (*Runtime, error) {
	if opts.Name == "" {
		return nil, errs.New(errs.KindInvalidArgument, "server.NewRuntime", "server name is required")
	}
	if impl == nil {
		return nil, errs.New(errs.KindInvalidArgument, "server.NewRuntime", "server %s has no listening implementation", opts.Name)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("server", opts.Name)

	r := &Runtime{
		name:      opts.Name,
		kind:      opts.Kind,
		logger:    logger,
		registry:  opts.Registry,
		acl:       NewAccessList(opts.AllowedNetworks, logger),
		impl:      impl,
		loopPause: rate.NewLimiter(rate.Limit(10), 10),
	}
	if opts.MaxConnections != 0 {
		l, err := NewLimiter(opts.MaxConnections)
		if err != nil {
			return nil, err
		}
		r.limiter = l
	}
	return r, nil
}

// Name returns the server name.
func (r *Runtime) Name() string { return r.name }

// Kind returns the server protocol.
func (r *Runtime) Kind() string { return r.kind }

// Logger returns the server's logger.
func (r *Runtime) Logger() *slog.Logger { return r.logger }

// State returns the current lifecycle state.
func (r *Runtime) State() State { return State(r.state.Load()) }

func (r *Runtime) setState(s State) { r.state.Store(int32(s)) }

// Statistics returns the live statistics object.
func (r *Runtime) Statistics() *Statistics { return &r.stats }

// Metrics returns the metrics created by the last Start, or nil.
func (r *Runtime) Metrics() *metrics.ServerMetrics { return r.metrics.Load() }

// Limiter returns the connection limiter, or nil when none is configured.
func (r *Runtime) Limiter() *Limiter { return r.limiter }

// CheckHealth reports whether the server is running. It never blocks.
func (r *Runtime) CheckHealth(context.Context) bool {
	return r.State() == StateRunning
}

// Start moves a stopped server to Running.
//
// Start fails with an invalid-state error, and changes nothing, unless the
// server is stopped. Any other failure leaves the server in StateError.
func (r *Runtime) Start(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if st := r.State(); st != StateStopped {
		return errs.New(errs.KindInvalidState, "start", "server %s is %s", r.name, st)
	}
	r.setState(StateStarting)

	if r.cancel != nil {
		r.cancel()
	}
	scope, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	fail := func(err error) error {
		cancel()
		_ = r.closeListeners()
		r.setState(StateError)
		r.logger.Error("server failed to start", "kind", r.kind, "err", err)
		return fmt.Errorf("start %s: %w", r.name, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(errs.Wrap(errs.KindCancellation, "start", err))
	}
	m := metrics.NewServerMetrics(r.name, r.kind)
	r.metrics.Store(m)
	if err := r.impl.StartListening(scope); err != nil {
		return fail(err)
	}

	r.stats.markStarted(time.Now())
	if r.registry != nil && !r.registry.Register(m) {
		r.logger.Warn("metrics already registered under this name, keeping the existing entry")
	}
	r.setState(StateRunning)
	r.logger.Info("server started", "kind", r.kind)
	return nil
}

// Stop moves a running server to Stopped. Stopping a server in any other
// state only logs a warning. A failure leaves the server in StateError.
//
// Stop cancels the server scope but does not wait for in-flight handlers;
// use Drain for that.
func (r *Runtime) Stop(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if st := r.State(); st != StateRunning {
		r.logger.Warn("stop ignored, server not running", "state", st.String())
		return nil
	}
	r.setState(StateStopping)
	if r.cancel != nil {
		r.cancel()
	}

	err := errors.Join(r.impl.StopListening(ctx), r.closeListeners())
	if m := r.metrics.Load(); m != nil && r.registry != nil {
		r.registry.UnregisterMetrics(m)
	}
	if err != nil {
		r.setState(StateError)
		r.logger.Error("server failed to stop cleanly", "err", err)
		return fmt.Errorf("stop %s: %w", r.name, err)
	}
	r.setState(StateStopped)
	r.logger.Info("server stopped")
	return nil
}

// Reset returns a server in StateError to StateStopped so that it can be
// started again. It is the operator's way out of the error state; nothing
// calls it automatically.
func (r *Runtime) Reset() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if st := r.State(); st != StateError {
		return errs.New(errs.KindInvalidState, "reset", "server %s is %s, not error", r.name, st)
	}
	if r.cancel != nil {
		r.cancel()
	}
	if err := r.closeListeners(); err != nil {
		r.logger.Warn("closing listeners during reset", "err", err)
	}
	r.setState(StateStopped)
	r.logger.Info("server reset")
	return nil
}

// Go runs fn on a goroutine tracked by Drain.
func (r *Runtime) Go(fn func()) {
	r.tasks.Go(fn)
}

// Drain waits for every loop and handler goroutine to finish, at most timeout.
func (r *Runtime) Drain(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		r.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("server %s: timeout waiting for in-flight handlers", r.name)
	}
}

// CreateTCPListener binds a TCP listener, replacing and tearing down any
// listener created before.
func (r *Runtime) CreateTCPListener(addr netip.Addr, port int) (*TCPListener, error) {
	ln, err := NewTCPListener(addr, port)
	if err != nil {
		return nil, err
	}
	r.listenersMu.Lock()
	old := r.tcp
	r.tcp = nil
	r.listenersMu.Unlock()
	if old != nil {
		r.teardown("tcp", old.Stop)
	}

	if err := ln.Start(); err != nil {
		return nil, err
	}
	r.listenersMu.Lock()
	r.tcp = ln
	r.listenersMu.Unlock()
	r.logger.Info("tcp listener started", "addr", ln.Addr().String(), "backlog", TCPBacklog)
	return ln, nil
}

// CreateUDPListener binds a UDP listener, replacing and tearing down any
// listener created before.
func (r *Runtime) CreateUDPListener(addr netip.Addr, port int) (*UDPListener, error) {
	ln, err := NewUDPListener(addr, port)
	if err != nil {
		return nil, err
	}
	r.listenersMu.Lock()
	old := r.udp
	r.udp = nil
	r.listenersMu.Unlock()
	if old != nil {
		r.teardown("udp", old.Stop)
	}

	if err := ln.Start(); err != nil {
		return nil, err
	}
	r.listenersMu.Lock()
	r.udp = ln
	r.listenersMu.Unlock()
	r.logger.Info("udp listener started", "addr", ln.Addr().String())
	return ln, nil
}

// teardown stops a replaced listener, giving up after ListenerTeardownTimeout.
func (r *Runtime) teardown(transport string, stop func() error) {
	done := make(chan error, 1)
	go func() { done <- stop() }()
	select {
	case err := <-done:
		if err != nil {
			r.logger.Warn("closing replaced listener", "transport", transport, "err", err)
		}
	case <-time.After(ListenerTeardownTimeout):
		r.logger.Warn("replaced listener did not close in time, abandoning it",
			"transport", transport, "timeout", ListenerTeardownTimeout)
	}
}

// closeListeners stops the listeners created through the runtime.
func (r *Runtime) closeListeners() error {
	r.listenersMu.Lock()
	tcp, udp := r.tcp, r.udp
	r.tcp, r.udp = nil, nil
	r.listenersMu.Unlock()

	var err error
	if tcp != nil {
		err = errors.Join(err, tcp.Stop())
	}
	if udp != nil {
		err = errors.Join(err, udp.Stop())
	}
	return err
}
