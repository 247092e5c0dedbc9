package server

import (
	"context"
	"log/slog"
	"net"
	"net/netip"

	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/metrics"
)

// ConnHandler serves one accepted TCP connection. The connection is closed
// by the runtime after the handler returns.
type ConnHandler func(ctx context.Context, conn net.Conn) error

// DatagramHandler serves one received datagram.
type DatagramHandler func(ctx context.Context, d Datagram) error

// Custom counter incremented for every client rejected by the access list.
const CounterACLDenied = "acl_denied"

// RunTCPAcceptLoop accepts connections until ctx is done and serves each on
// its own goroutine.
//
// A cancellation error from Accept ends the loop quietly. So does an
// invalid-state error, which means the listener was stopped or replaced.
// Any other accept error is logged and the loop goes on after a short,
// rate-limited pause.
func (r *Runtime) RunTCPAcceptLoop(ctx context.Context, ln *TCPListener, handle ConnHandler) {
	for ctx.Err() == nil {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if !r.loopError(ctx, "accept", err) {
				return
			}
			continue
		}

		remote := addrPortOf(conn.RemoteAddr())
		if !r.acl.Allowed(remote.Addr()) {
			r.denied("tcp", remote)
			_ = conn.Close()
			continue
		}
		r.spawn(ctx, "tcp", remote, func(ctx context.Context) error {
			defer conn.Close()
			return handle(ctx, conn)
		})
	}
}

// RunUDPReceiveLoop receives datagrams until ctx is done and serves each on
// its own goroutine. Errors are treated as in RunTCPAcceptLoop.
func (r *Runtime) RunUDPReceiveLoop(ctx context.Context, ln *UDPListener, handle DatagramHandler) {
	for ctx.Err() == nil {
		d, err := ln.Receive(ctx)
		if err != nil {
			if !r.loopError(ctx, "receive", err) {
				return
			}
			continue
		}

		if !r.acl.Allowed(d.Remote.Addr()) {
			r.denied("udp", d.Remote)
			continue
		}
		r.BytesReceived(len(d.Payload))
		r.spawn(ctx, "udp", d.Remote, func(ctx context.Context) error {
			return handle(ctx, d)
		})
	}
}

// loopError handles a failed accept or receive and reports whether the
// loop should keep going.
func (r *Runtime) loopError(ctx context.Context, op string, err error) bool {
	switch errs.Classify(err) {
	case errs.KindCancellation:
		return false
	case errs.KindInvalidState, errs.KindDisposed:
		r.logger.Debug("listener gone, leaving loop", "op", op, "err", err)
		return false
	}
	r.logger.Warn("listener error", "op", op, "err", err)
	if err := r.loopPause.Wait(ctx); err != nil {
		return false
	}
	return true
}

// spawn runs body on a tracked goroutine under a limiter permit. Panics and
// errors from body are classified and logged; nothing escapes to the loop.
func (r *Runtime) spawn(ctx context.Context, transport string, remote netip.AddrPort, body func(context.Context) error) {
	r.tasks.Go(func() {
		m := r.connectionOpened()
		defer r.connectionClosed(m)

		if r.limiter != nil {
			release, err := r.limiter.Acquire(ctx)
			if err != nil {
				r.handlerFailed(transport, remote, err)
				return
			}
			defer release()
		}

		defer func() {
			if p := recover(); p != nil {
				r.handlerFailed(transport, remote, errs.New(errs.KindUnexpected, "handler", "panic: %v", p))
			}
		}()
		if err := body(ctx); err != nil {
			r.handlerFailed(transport, remote, err)
		}
	})
}

// handlerFailed logs a handler failure at the severity its kind calls for.
func (r *Runtime) handlerFailed(transport string, remote netip.AddrPort, err error) {
	kind := errs.Classify(err)
	if kind == errs.KindCancellation {
		return
	}
	r.ErrorOccurred()
	switch kind {
	case errs.KindMalformedMessage, errs.KindTransientIO:
		if r.logger.Enabled(context.Background(), slog.LevelDebug) {
			r.logger.Debug("handler failed", "transport", transport, "remote", remote.String(), "kind", kind.String(), "err", err)
		}
	default:
		r.logger.Error("handler failed", "transport", transport, "remote", remote.String(), "kind", kind.String(), "err", err)
	}
}

func (r *Runtime) denied(transport string, remote netip.AddrPort) {
	r.Count(CounterACLDenied)
	r.logger.Debug("client denied by access list", "transport", transport, "remote", remote.String())
}

// addrPortOf extracts the address of a TCP or UDP endpoint.
func addrPortOf(a net.Addr) netip.AddrPort {
	var ap netip.AddrPort
	switch v := a.(type) {
	case *net.TCPAddr:
		ap = v.AddrPort()
	case *net.UDPAddr:
		ap = v.AddrPort()
	default:
		if a != nil {
			ap, _ = netip.ParseAddrPort(a.String())
		}
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// =============================================================================
// Counters
// =============================================================================

// The helpers below update both the live Statistics and the ServerMetrics
// registered at Start.

// connectionOpened returns the metrics it counted in, so that the matching
// connectionClosed hits the same object across a restart.
func (r *Runtime) connectionOpened() *metrics.ServerMetrics {
	r.stats.connectionOpened()
	m := r.metrics.Load()
	if m != nil {
		m.ConnectionOpened()
	}
	return m
}

func (r *Runtime) connectionClosed(m *metrics.ServerMetrics) {
	r.stats.connectionClosed()
	if m != nil {
		m.ConnectionClosed()
	}
}

// RequestHandled records one protocol request.
func (r *Runtime) RequestHandled() {
	r.stats.totalRequests.Add(1)
	if m := r.metrics.Load(); m != nil {
		m.RequestHandled()
	}
}

// BytesSent records n bytes written to a client.
func (r *Runtime) BytesSent(n int) {
	if n <= 0 {
		return
	}
	r.stats.bytesSent.Add(uint64(n))
	if m := r.metrics.Load(); m != nil {
		m.BytesSent(n)
	}
}

// BytesReceived records n bytes read from a client.
func (r *Runtime) BytesReceived(n int) {
	if n <= 0 {
		return
	}
	r.stats.bytesReceived.Add(uint64(n))
	if m := r.metrics.Load(); m != nil {
		m.BytesReceived(n)
	}
}

// ErrorOccurred records a handler failure.
func (r *Runtime) ErrorOccurred() {
	r.stats.totalErrors.Add(1)
	if m := r.metrics.Load(); m != nil {
		m.ErrorOccurred()
	}
}

// Count increments a protocol specific counter.
func (r *Runtime) Count(counter string) {
	if m := r.metrics.Load(); m != nil {
		m.Inc(counter)
	}
}
