// Package host wires the configured protocol servers, the metrics registry
// and the management API together and runs them until shutdown.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jroosing/hydrahost/internal/api"
	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/dnsserver"
	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/mailserver"
	"github.com/jroosing/hydrahost/internal/metrics"
	"github.com/jroosing/hydrahost/internal/server"
)

// DefaultDrainTimeout bounds how long shutdown waits for in-flight handlers.
const DefaultDrainTimeout = 5 * time.Second

// drainer is implemented by servers built on server.Runtime.
type drainer interface {
	Drain(timeout time.Duration) error
}

// Runner owns every server the host runs.
type Runner struct {
	logger       *slog.Logger
	registry     *metrics.Registry
	drainTimeout time.Duration

	mu      sync.RWMutex
	servers []server.Server

	dns *dnsserver.Server
	api *api.Server
}

// New builds the servers enabled in cfg. Nothing is started.
func New(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errs.New(errs.KindInvalidArgument, "host.New", "config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []metrics.Option{metrics.WithLogger(logger)}
	if cfg.Metrics.Runtime {
		opts = append(opts, metrics.WithRuntimeMetrics())
	}
	r := &Runner{
		logger:       logger,
		registry:     metrics.NewRegistry(cfg.Metrics.Namespace, opts...),
		drainTimeout: DefaultDrainTimeout,
	}

	if cfg.DNS.Enabled {
		s, err := dnsserver.New(cfg.DNS, r.registry, logger)
		if err != nil {
			return nil, fmt.Errorf("dns server: %w", err)
		}
		r.dns = s
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	if cfg.SMTP.Enabled {
		s, err := mailserver.NewSMTP(cfg.SMTP, r.registry, logger)
		if err != nil {
			return nil, fmt.Errorf("smtp server: %w", err)
		}
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	if cfg.POP3.Enabled {
		s, err := mailserver.NewPOP3(cfg.POP3, r.registry, logger)
		if err != nil {
			return nil, fmt.Errorf("pop3 server: %w", err)
		}
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}

	if cfg.API.Enabled {
		r.api = api.New(cfg.API, r, r.registry, logger)
		if r.dns != nil {
			r.api.Handler().SetDNS(r.dns)
		}
	}
	return r, nil
}

// Register adds a server. Names must be unique.
func (r *Runner) Register(s server.Server) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.servers {
		if existing.Name() == s.Name() {
			return errs.New(errs.KindInvalidArgument, "host.Register", "server name %q is already registered", s.Name())
		}
	}
	r.servers = append(r.servers, s)
	return nil
}

// Servers returns the registered servers in registration order.
func (r *Runner) Servers() []server.Server {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.servers)
}

// Server returns the server registered under name.
func (r *Runner) Server(name string) (server.Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.servers {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// DNS returns the DNS server, or nil when it is disabled.
func (r *Runner) DNS() *dnsserver.Server { return r.dns }

// Registry returns the metrics registry shared by all servers.
func (r *Runner) Registry() *metrics.Registry { return r.registry }

// API returns the management API, or nil when it is disabled.
func (r *Runner) API() *api.Server { return r.api }

// StartAll starts every registered server concurrently. A server that fails
// does not prevent the others from starting; all failures are returned.
func (r *Runner) StartAll(ctx context.Context) error {
	servers := r.Servers()
	failures := make([]error, len(servers))

	var g errgroup.Group
	for i, s := range servers {
		g.Go(func() error {
			failures[i] = s.Start(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(failures...)
}

// StopAll stops every running server concurrently and waits up to the
// drain timeout for their handlers.
func (r *Runner) StopAll(ctx context.Context) error {
	servers := r.Servers()
	failures := make([]error, len(servers))

	var g errgroup.Group
	for i, s := range servers {
		g.Go(func() error {
			if s.State() == server.StateRunning {
				failures[i] = s.Stop(ctx)
			}
			if d, ok := s.(drainer); ok {
				if err := d.Drain(r.drainTimeout); err != nil {
					r.logger.Warn("server did not drain in time", "server", s.Name(), "timeout", r.drainTimeout)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(failures...)
}

// Run blocks until SIGINT or SIGTERM, then shuts everything down.
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.RunWithContext(ctx)
}

// RunWithContext starts all servers and the API and blocks until ctx is
// cancelled or the API fails.
//
// Servers that fail to start are logged and left in the error state, where
// they can be reset and started through the API. Run fails only when no
// server could be started at all.
func (r *Runner) RunWithContext(ctx context.Context) error {
	if err := r.StartAll(ctx); err != nil {
		r.logger.Error("some servers failed to start", "err", err)
		if r.running() == 0 {
			return err
		}
	}
	r.logger.Info("host running", "servers", len(r.Servers()), "running", r.running())

	g, gctx := errgroup.WithContext(ctx)
	if r.api != nil {
		ln, err := net.Listen("tcp", r.api.Addr())
		if err != nil {
			return errors.Join(fmt.Errorf("api listen: %w", err), r.StopAll(context.Background()))
		}
		g.Go(func() error { return r.api.Serve(ln) })
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), r.drainTimeout)
			defer cancel()
			return r.api.Shutdown(sctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	r.logger.Info("shutting down", "drain_timeout", r.drainTimeout)
	return errors.Join(err, r.StopAll(context.Background()))
}

func (r *Runner) running() int {
	n := 0
	for _, s := range r.Servers() {
		if s.State() == server.StateRunning {
			n++
		}
	}
	return n
}
