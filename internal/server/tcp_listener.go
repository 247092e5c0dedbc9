package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jroosing/hydrahost/internal/errs"
)

// TCPBacklog is the listen(2) backlog of every TCP listener.
const TCPBacklog = 100

// listenerState tracks a listener wrapper through Start and Stop.
type listenerState int

const (
	listenerNew listenerState = iota
	listenerStarted
	listenerStopped
)

// validatePort rejects ports outside [1, 65535].
func validatePort(op string, port int) error {
	if port < 1 || port > 65535 {
		return errs.New(errs.KindInvalidArgument, op, "port must be 1..65535, got %d", port)
	}
	return nil
}

// TCPListener wraps a stream socket bound with SO_REUSEADDR and a fixed
// backlog. Accept honours context cancellation.
//
// Accept is meant to be called from a single accept loop at a time.
type TCPListener struct {
	addr netip.AddrPort

	mu    sync.Mutex
	state listenerState
	ln    *net.TCPListener
}

// NewTCPListener validates the port and prepares a listener for addr:port.
// Nothing is bound until Start.
func NewTCPListener(addr netip.Addr, port int) (*TCPListener, error) {
	if err := validatePort("server.NewTCPListener", port); err != nil {
		return nil, err
	}
	return &TCPListener{addr: netip.AddrPortFrom(addr, uint16(port))}, nil
}

// Start binds and listens.
func (l *TCPListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != listenerNew {
		return errs.New(errs.KindInvalidState, "tcp listener start", "listener on %s already started or stopped", l.addr)
	}
	ln, err := listenTCP(l.addr)
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "tcp listener start", err)
	}
	l.ln = ln
	l.state = listenerStarted
	return nil
}

// listenTCP creates the socket by hand so that the backlog is exactly
// TCPBacklog; net.Listen always uses the system maximum.
func listenTCP(ap netip.AddrPort) (*net.TCPListener, error) {
	addr := ap.Addr().Unmap()
	family := unix.AF_INET
	var sa unix.Sockaddr = &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.As4()}
	if addr.Is6() {
		family = unix.AF_INET6
		sa = &unix.SockaddrInet6{Port: int(ap.Port()), Addr: addr.As16()}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", ap, err)
	}
	if err := unix.Listen(fd, TCPBacklog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", ap, err)
	}

	f := os.NewFile(uintptr(fd), "tcp:"+ap.String())
	defer f.Close() // FileListener dups the descriptor
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("file listener: %w", err)
	}
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("unexpected listener type %T", ln)
	}
	return tl, nil
}

func (l *TCPListener) listener(op string) (*net.TCPListener, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case listenerNew:
		return nil, errs.New(errs.KindInvalidState, op, "listener on %s not started", l.addr)
	case listenerStopped:
		return nil, errs.New(errs.KindInvalidState, op, "listener on %s stopped", l.addr)
	}
	return l.ln, nil
}

func (l *TCPListener) stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == listenerStopped
}

// Accept waits for the next connection. When ctx is done, or the listener is
// stopped underneath it, Accept fails with a cancellation error.
func (l *TCPListener) Accept(ctx context.Context) (net.Conn, error) {
	const op = "tcp accept"
	ln, err := l.listener(op)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.KindCancellation, op, err)
	}

	_ = ln.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = ln.SetDeadline(time.Now()) })
	defer stop()

	conn, err := ln.Accept()
	if err == nil {
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, errs.Wrap(errs.KindCancellation, op, ctx.Err())
	}
	if errors.Is(err, net.ErrClosed) && l.stopped() {
		return nil, errs.Wrap(errs.KindCancellation, op, err)
	}
	return nil, errs.Wrap(errs.KindTransientIO, op, err)
}

// Addr returns the bound address, or nil before Start.
func (l *TCPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stop closes the socket. Stopping twice, or stopping a listener that was
// never started, is safe.
func (l *TCPListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == listenerStopped {
		return nil
	}
	l.state = listenerStopped
	if l.ln == nil {
		return nil
	}
	if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errs.Wrap(errs.KindTransientIO, "tcp listener stop", err)
	}
	return nil
}
