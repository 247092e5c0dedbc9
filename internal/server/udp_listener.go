package server

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/pool"
)

// MaxDatagramSize is the receive buffer size of every UDP listener.
const MaxDatagramSize = 64 * 1024

// receiveBuffers reduces allocations for incoming datagrams.
var receiveBuffers = pool.NewBuffers(MaxDatagramSize)

// Datagram is one received packet. Payload is owned by the receiver.
type Datagram struct {
	Payload []byte
	Remote  netip.AddrPort
}

// UDPListener wraps a datagram socket. Receive honours context cancellation
// and Send writes to any remote without a prior connect.
type UDPListener struct {
	addr netip.AddrPort

	mu    sync.Mutex
	state listenerState
	conn  *net.UDPConn
}

// NewUDPListener validates the port and prepares a listener for addr:port.
// Nothing is bound until Start.
func NewUDPListener(addr netip.Addr, port int) (*UDPListener, error) {
	if err := validatePort("server.NewUDPListener", port); err != nil {
		return nil, err
	}
	return &UDPListener{addr: netip.AddrPortFrom(addr, uint16(port))}, nil
}

// Start binds the socket.
func (l *UDPListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != listenerNew {
		return errs.New(errs.KindInvalidState, "udp listener start", "listener on %s already started or stopped", l.addr)
	}
	network := "udp4"
	if l.addr.Addr().Unmap().Is6() {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, net.UDPAddrFromAddrPort(l.addr))
	if err != nil {
		return errs.Wrap(errs.KindTransientIO, "udp listener start", err)
	}
	l.conn = conn
	l.state = listenerStarted
	return nil
}

func (l *UDPListener) socket(op string) (*net.UDPConn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case listenerNew:
		return nil, errs.New(errs.KindInvalidState, op, "listener on %s not started", l.addr)
	case listenerStopped:
		return nil, errs.New(errs.KindInvalidState, op, "listener on %s stopped", l.addr)
	}
	return l.conn, nil
}

func (l *UDPListener) stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == listenerStopped
}

// Receive waits for the next datagram and returns a copy of its payload.
// When ctx is done, or the listener is stopped underneath it, Receive fails
// with a cancellation error.
func (l *UDPListener) Receive(ctx context.Context) (Datagram, error) {
	const op = "udp receive"
	conn, err := l.socket(op)
	if err != nil {
		return Datagram{}, err
	}
	if err := ctx.Err(); err != nil {
		return Datagram{}, errs.Wrap(errs.KindCancellation, op, err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	bufPtr := receiveBuffers.Get()
	defer receiveBuffers.Put(bufPtr)
	buf := *bufPtr

	n, remote, err := conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		if ctx.Err() != nil {
			return Datagram{}, errs.Wrap(errs.KindCancellation, op, ctx.Err())
		}
		if errors.Is(err, net.ErrClosed) && l.stopped() {
			return Datagram{}, errs.Wrap(errs.KindCancellation, op, err)
		}
		return Datagram{}, errs.Wrap(errs.KindTransientIO, op, err)
	}

	payload := make([]byte, n)
	copy(payload, buf[:n])
	return Datagram{
		Payload: payload,
		Remote:  netip.AddrPortFrom(remote.Addr().Unmap(), remote.Port()),
	}, nil
}

// Send writes payload to remote.
func (l *UDPListener) Send(payload []byte, remote netip.AddrPort) (int, error) {
	const op = "udp send"
	conn, err := l.socket(op)
	if err != nil {
		return 0, err
	}
	n, err := conn.WriteToUDPAddrPort(payload, remote)
	if err != nil {
		return n, errs.Wrap(errs.KindTransientIO, op, err)
	}
	return n, nil
}

// Addr returns the bound address, or nil before Start.
func (l *UDPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Stop closes the socket. Stopping twice, or stopping a listener that was
// never started, is safe.
func (l *UDPListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == listenerStopped {
		return nil
	}
	l.state = listenerStopped
	if l.conn == nil {
		return nil
	}
	if err := l.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errs.Wrap(errs.KindTransientIO, "udp listener stop", err)
	}
	return nil
}
