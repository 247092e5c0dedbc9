// Package dnsserver is the authoritative DNS server: a UDP receive loop on
// the shared runtime answering A queries from a zone.Store.
package dnsserver

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/metrics"
	"github.com/jroosing/hydrahost/internal/server"
	"github.com/jroosing/hydrahost/internal/zone"
)

// Kind is the protocol name the server reports.
const Kind = "DNS"

// Custom counters, exported per server as <ns>_dns_<counter>_total.
const (
	CounterAnswers  = "answers"
	CounterNXDomain = "nxdomain"
	CounterFallback = "fallback"
	CounterDropped  = "dropped"
	CounterReloads  = "records_reloads"
)

// Server answers DNS queries over UDP.
type Server struct {
	*server.Runtime

	cfg   config.DNSConfig
	store *zone.Store
	ln    atomic.Pointer[server.UDPListener]

	// fileRecords holds the records last loaded from the records file, so
	// a reload can remove the ones that disappeared.
	fileMu      sync.Mutex
	fileRecords map[fileRecord]struct{}
}

// New creates a stopped DNS server from cfg. Configured zones and resources
// are loaded into the store immediately.
func New(cfg config.DNSConfig, registry *metrics.Registry, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "dns"
	}
	mode, ok := zone.ParseMode(cfg.Mode)
	if !ok {
		logger.Warn("unknown dns mode, using zone mode", "server", name, "mode", cfg.Mode)
	}

	s := &Server{cfg: cfg}
	rt, err := server.NewRuntime(server.Options{
		Name:            name,
		Kind:            Kind,
		MaxConnections:  cfg.MaxConnections,
		AllowedNetworks: cfg.AllowedNetworks,
		Registry:        registry,
		Logger:          logger,
	}, s)
	if err != nil {
		return nil, err
	}
	s.Runtime = rt
	s.store = zone.NewStore(mode, rt.Logger())

	for _, d := range cfg.Domains {
		s.store.AddZone(d.Name, d.Authority)
	}
	for _, r := range cfg.Resources {
		if err := s.store.AddRecord(r.Name, r.Address); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Store returns the zone store the server answers from.
func (s *Server) Store() *zone.Store { return s.store }

// AddRecord adds or replaces an address record at runtime. Invalid
// addresses are logged and rejected with an invalid-argument error.
func (s *Server) AddRecord(name, address string) error {
	return s.store.AddRecord(name, address)
}

// RemoveRecord removes every record of name and reports whether any existed.
func (s *Server) RemoveRecord(name string) bool {
	return s.store.RemoveRecord(name)
}

// Addr returns the bound UDP address while the server runs, or nil.
func (s *Server) Addr() net.Addr {
	if ln := s.ln.Load(); ln != nil {
		return ln.Addr()
	}
	return nil
}

// StartListening binds the UDP socket and starts the receive loop.
func (s *Server) StartListening(ctx context.Context) error {
	log := s.Logger()
	if s.cfg.UseRecursion {
		log.Warn("use_recursion is set but recursion is not supported, answering authoritatively only")
	}

	addr := server.ResolveBindAddress(s.cfg.BindAddress, log)
	ln, err := s.CreateUDPListener(addr, s.cfg.Port)
	if err != nil {
		return err
	}
	s.ln.Store(ln)

	if s.cfg.RecordsFile != "" {
		if err := s.loadRecordsFile(s.cfg.RecordsFile); err != nil {
			log.Error("loading records file", "path", s.cfg.RecordsFile, "err", err)
		}
		if s.cfg.WatchRecordsFile {
			if err := s.watchRecordsFile(ctx, s.cfg.RecordsFile); err != nil {
				log.Error("watching records file", "path", s.cfg.RecordsFile, "err", err)
			}
		}
	}

	s.Go(func() {
		s.RunUDPReceiveLoop(ctx, ln, func(ctx context.Context, d server.Datagram) error {
			return s.serve(ctx, ln, d)
		})
	})
	log.Info("dns server listening", "addr", ln.Addr().String(), "mode", string(s.store.Mode()),
		"zones", len(s.store.Zones()), "records", len(s.store.Records()))
	return nil
}

// StopListening forgets the listener; the runtime closes it.
func (s *Server) StopListening(context.Context) error {
	s.ln.Store(nil)
	return nil
}
