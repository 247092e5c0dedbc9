// Package mailserver runs minimal SMTP and POP3 servers on the shared TCP
// accept loop. Sessions greet the client, answer a handful of line
// commands and close on QUIT, idle timeout or shutdown.
package mailserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"os"
	"sync/atomic"
	"time"

	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/metrics"
	"github.com/jroosing/hydrahost/internal/server"
)

// Custom counters.
const (
	CounterUnknownCommands = "unknown_commands"
	CounterIdleTimeouts    = "idle_timeouts"
)

// farewellTimeout bounds the write of the final line to a departing client.
const farewellTimeout = time.Second

// Server is a line-protocol mail server.
type Server struct {
	*server.Runtime

	cfg   config.MailConfig
	proto Protocol
	idle  time.Duration
	ln    atomic.Pointer[server.TCPListener]
}

// NewSMTP creates a stopped SMTP server.
func NewSMTP(cfg config.MailConfig, registry *metrics.Registry, logger *slog.Logger) (*Server, error) {
	return New(SMTP, cfg, registry, logger)
}

// NewPOP3 creates a stopped POP3 server.
func NewPOP3(cfg config.MailConfig, registry *metrics.Registry, logger *slog.Logger) (*Server, error) {
	return New(POP3, cfg, registry, logger)
}

// New creates a stopped server speaking proto.
func New(proto Protocol, cfg config.MailConfig, registry *metrics.Registry, logger *slog.Logger) (*Server, error) {
	if cfg.Hostname == "" {
		cfg.Hostname = "localhost"
	}
	s := &Server{cfg: cfg, proto: proto, idle: cfg.IdleTimeoutDuration()}
	rt, err := server.NewRuntime(server.Options{
		Name:            cfg.Name,
		Kind:            proto.Kind,
		MaxConnections:  cfg.MaxConnections,
		AllowedNetworks: cfg.AllowedNetworks,
		Registry:        registry,
		Logger:          logger,
	}, s)
	if err != nil {
		return nil, err
	}
	s.Runtime = rt
	return s, nil
}

// Addr returns the bound TCP address while the server runs, or nil.
func (s *Server) Addr() net.Addr {
	if ln := s.ln.Load(); ln != nil {
		return ln.Addr()
	}
	return nil
}

// StartListening binds the TCP socket and starts the accept loop.
func (s *Server) StartListening(ctx context.Context) error {
	addr := server.ResolveBindAddress(s.cfg.BindAddress, s.Logger())
	ln, err := s.CreateTCPListener(addr, s.cfg.Port)
	if err != nil {
		return err
	}
	s.ln.Store(ln)
	s.Go(func() { s.RunTCPAcceptLoop(ctx, ln, s.session) })
	return nil
}

// StopListening forgets the listener; the runtime closes it.
func (s *Server) StopListening(context.Context) error {
	s.ln.Store(nil)
	return nil
}

// session serves one connection until QUIT, EOF, idle timeout or ctx ends.
func (s *Server) session(ctx context.Context, conn net.Conn) error {
	host := s.cfg.Hostname
	cc := &countingConn{Conn: conn, s: s}
	tp := textproto.NewConn(cc)

	// Unblock the pending read when the server stops.
	var stopping atomic.Bool
	stop := context.AfterFunc(ctx, func() {
		stopping.Store(true)
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := s.send(tp, s.proto.Greeting(host)); err != nil {
		return err
	}
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.idle))
		if stopping.Load() {
			return s.farewell(conn, tp, s.proto.Shutdown(host), ctx.Err())
		}
		line, err := tp.ReadLine()
		if err != nil {
			switch {
			case stopping.Load():
				return s.farewell(conn, tp, s.proto.Shutdown(host), ctx.Err())
			case errors.Is(err, os.ErrDeadlineExceeded):
				s.Count(CounterIdleTimeouts)
				return s.farewell(conn, tp, s.proto.IdleTimeout(host), nil)
			case errors.Is(err, io.EOF):
				return nil
			default:
				return errs.Wrap(errs.KindTransientIO, "mail.read", err)
			}
		}

		verb, arg := SplitCommand(line)
		reply, known, quit := s.proto.Handle(host, verb, arg)
		s.RequestHandled()
		if !known {
			s.Count(CounterUnknownCommands)
		}
		if err := s.send(tp, reply...); err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (s *Server) send(tp *textproto.Conn, lines ...string) error {
	for _, l := range lines {
		if err := tp.PrintfLine("%s", l); err != nil {
			return errs.Wrap(errs.KindTransientIO, "mail.write", err)
		}
	}
	return nil
}

// farewell writes a last line under a short deadline and returns cause.
func (s *Server) farewell(conn net.Conn, tp *textproto.Conn, line string, cause error) error {
	_ = conn.SetWriteDeadline(time.Now().Add(farewellTimeout))
	_ = s.send(tp, line)
	if cause != nil {
		return errs.Wrap(errs.KindCancellation, "mail.session", cause)
	}
	return nil
}

// countingConn feeds byte counts into the runtime statistics.
type countingConn struct {
	net.Conn
	s *Server
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.s.BytesReceived(n)
	return n, err
}

func (c *countingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.s.BytesSent(n)
	return n, err
}
