package server

import (
	"log/slog"
	"net/netip"
	"strings"
)

// WildcardAddress is the IPv4 "any" address servers bind to by default.
var WildcardAddress = netip.IPv4Unspecified()

// ResolveBindAddress turns a configured bind address into an address.
//
// "" and "0.0.0.0" select WildcardAddress. A valid IPv4 or IPv6 literal is
// used as is. Anything else is logged and also falls back to WildcardAddress:
// a bad value never blocks startup.
func ResolveBindAddress(s string, logger *slog.Logger) netip.Addr {
	s = strings.TrimSpace(s)
	if s == "" || s == "0.0.0.0" {
		return WildcardAddress
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("invalid bind address, using wildcard", "bind_address", s, "fallback", WildcardAddress.String(), "err", err)
		return WildcardAddress
	}
	return addr
}
