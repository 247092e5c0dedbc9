package server_test

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/server"
)

var loopback = netip.MustParseAddr("127.0.0.1")

// ============================================================================
// Port validation
// ============================================================================

func TestListeners_RejectInvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536, 100000} {
		_, err := server.NewTCPListener(loopback, port)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, "tcp port %d", port)

		_, err = server.NewUDPListener(loopback, port)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, "udp port %d", port)
	}
}

// ============================================================================
// TCPListener
// ============================================================================

func TestTCPListener_AcceptBeforeStart(t *testing.T) {
	ln, err := server.NewTCPListener(loopback, freeTCPPort(t))
	require.NoError(t, err)

	_, err = ln.Accept(context.Background())
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	assert.Nil(t, ln.Addr())
}

func TestTCPListener_AcceptConnection(t *testing.T) {
	port := freeTCPPort(t)
	ln, err := server.NewTCPListener(loopback, port)
	require.NoError(t, err)
	require.NoError(t, ln.Start())
	defer ln.Stop()

	assert.Equal(t, port, ln.Addr().(*net.TCPAddr).Port)

	go func() {
		c, err := net.DialTimeout("tcp4", ln.Addr().String(), time.Second)
		if err == nil {
			_, _ = c.Write([]byte("hi"))
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ln.Accept(ctx)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 2)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf))
}

func TestTCPListener_AcceptCancelled(t *testing.T) {
	ln, err := server.NewTCPListener(loopback, freeTCPPort(t))
	require.NoError(t, err)
	require.NoError(t, ln.Start())
	defer ln.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err = ln.Accept(ctx)
	require.Error(t, err)
	assert.Equal(t, errs.KindCancellation, errs.Classify(err))

	// The listener stays usable with a fresh context.
	go func() {
		if c, err := net.DialTimeout("tcp4", ln.Addr().String(), time.Second); err == nil {
			c.Close()
		}
	}()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	conn, err := ln.Accept(ctx2)
	require.NoError(t, err)
	conn.Close()
}

func TestTCPListener_StopIsIdempotent(t *testing.T) {
	ln, err := server.NewTCPListener(loopback, freeTCPPort(t))
	require.NoError(t, err)
	require.NoError(t, ln.Start())

	require.NoError(t, ln.Stop())
	require.NoError(t, ln.Stop())

	_, err = ln.Accept(context.Background())
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	assert.ErrorIs(t, ln.Start(), errs.ErrInvalidState)
}

func TestTCPListener_StopNeverStarted(t *testing.T) {
	ln, err := server.NewTCPListener(loopback, freeTCPPort(t))
	require.NoError(t, err)
	assert.NoError(t, ln.Stop())
}

func TestTCPListener_PortReusableAfterStop(t *testing.T) {
	port := freeTCPPort(t)
	for range 2 {
		ln, err := server.NewTCPListener(loopback, port)
		require.NoError(t, err)
		require.NoError(t, ln.Start())
		require.NoError(t, ln.Stop())
	}
}

// ============================================================================
// UDPListener
// ============================================================================

func TestUDPListener_ReceiveAndSend(t *testing.T) {
	ln, err := server.NewUDPListener(loopback, freeUDPPort(t))
	require.NoError(t, err)
	require.NoError(t, ln.Start())
	defer ln.Stop()

	client, err := net.DialUDP("udp4", nil, ln.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d, err := ln.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), d.Payload)
	local := client.LocalAddr().(*net.UDPAddr).AddrPort()
	assert.Equal(t, netip.AddrPortFrom(local.Addr().Unmap(), local.Port()), d.Remote)

	n, err := ln.Send([]byte("pong"), d.Remote)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 16)
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestUDPListener_PayloadIsACopy(t *testing.T) {
	ln, err := server.NewUDPListener(loopback, freeUDPPort(t))
	require.NoError(t, err)
	require.NoError(t, ln.Start())
	defer ln.Stop()

	client, err := net.DialUDP("udp4", nil, ln.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _ = client.Write([]byte("first"))
	first, err := ln.Receive(ctx)
	require.NoError(t, err)
	_, _ = client.Write([]byte("SECOND"))
	_, err = ln.Receive(ctx)
	require.NoError(t, err)

	assert.Equal(t, "first", string(first.Payload))
}

func TestUDPListener_ReceiveCancelled(t *testing.T) {
	ln, err := server.NewUDPListener(loopback, freeUDPPort(t))
	require.NoError(t, err)
	require.NoError(t, ln.Start())
	defer ln.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err = ln.Receive(ctx)
	assert.Equal(t, errs.KindCancellation, errs.Classify(err))
}

func TestUDPListener_InvalidState(t *testing.T) {
	ln, err := server.NewUDPListener(loopback, freeUDPPort(t))
	require.NoError(t, err)

	_, err = ln.Receive(context.Background())
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = ln.Send([]byte("x"), netip.MustParseAddrPort("127.0.0.1:9"))
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	require.NoError(t, ln.Start())
	require.NoError(t, ln.Stop())
	require.NoError(t, ln.Stop())

	_, err = ln.Receive(context.Background())
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

// ============================================================================
// ResolveBindAddress
// ============================================================================

func TestResolveBindAddress(t *testing.T) {
	tests := []struct {
		in       string
		want     netip.Addr
		wantWarn bool
	}{
		{"", server.WildcardAddress, false},
		{"0.0.0.0", server.WildcardAddress, false},
		{"127.0.0.1", netip.MustParseAddr("127.0.0.1"), false},
		{"::1", netip.MustParseAddr("::1"), false},
		{" 10.1.2.3 ", netip.MustParseAddr("10.1.2.3"), false},
		{"localhost", server.WildcardAddress, true},
		{"999.1.1.1", server.WildcardAddress, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			logger, buf := captureLogger()
			got := server.ResolveBindAddress(tt.in, logger)
			assert.Equal(t, tt.want, got)
			if tt.wantWarn {
				assert.Contains(t, buf.String(), "level=WARN")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

// ============================================================================
// AccessList
// ============================================================================

func TestAccessList(t *testing.T) {
	logger, buf := captureLogger()
	acl := server.NewAccessList([]string{"10.0.0.0/8", "192.168.1.7", "not-a-cidr", "fd00::/8"}, logger)

	assert.Equal(t, 3, acl.Len())
	assert.Contains(t, buf.String(), "not-a-cidr")

	assert.True(t, acl.Allowed(netip.MustParseAddr("10.20.30.40")))
	assert.True(t, acl.Allowed(netip.MustParseAddr("192.168.1.7")))
	assert.True(t, acl.Allowed(netip.MustParseAddr("::ffff:10.0.0.1")))
	assert.True(t, acl.Allowed(netip.MustParseAddr("fd12::1")))
	assert.False(t, acl.Allowed(netip.MustParseAddr("192.168.1.8")))
	assert.False(t, acl.Allowed(netip.MustParseAddr("2001:db8::1")))
}

func TestAccessList_EmptyAllowsAll(t *testing.T) {
	acl := server.NewAccessList(nil, nil)
	assert.True(t, acl.Allowed(netip.MustParseAddr("203.0.113.9")))

	var nilList *server.AccessList
	assert.True(t, nilList.Allowed(netip.MustParseAddr("203.0.113.9")))
}
