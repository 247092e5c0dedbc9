package server

import (
	"log/slog"
	"net"
	"net/netip"
	"strings"

	"github.com/yl2chen/cidranger"
)

// AccessList decides which client addresses a server talks to.
// An empty list allows everyone.
type AccessList struct {
	ranger  cidranger.Ranger
	entries int
}

// NewAccessList builds an access list from CIDR strings. A bare address is
// treated as a single-host network. Entries that do not parse are logged and
// skipped.
func NewAccessList(networks []string, logger *slog.Logger) *AccessList {
	if logger == nil {
		logger = slog.Default()
	}
	a := &AccessList{ranger: cidranger.NewPCTrieRanger()}
	for _, cidr := range networks {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if !strings.Contains(cidr, "/") {
			if addr, err := netip.ParseAddr(cidr); err == nil {
				cidr = netip.PrefixFrom(addr, addr.BitLen()).String()
			}
		}
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Error("access list parse cidr failed", "cidr", cidr, "err", err)
			continue
		}
		if err := a.ranger.Insert(cidranger.NewBasicRangerEntry(*ipnet)); err != nil {
			logger.Error("access list insert failed", "cidr", cidr, "err", err)
			continue
		}
		a.entries++
	}
	return a
}

// Allowed reports whether addr may use the server.
func (a *AccessList) Allowed(addr netip.Addr) bool {
	if a == nil || a.entries == 0 {
		return true
	}
	allowed, err := a.ranger.Contains(net.IP(addr.Unmap().AsSlice()))
	return err == nil && allowed
}

// Len returns the number of networks in the list.
func (a *AccessList) Len() int {
	if a == nil {
		return 0
	}
	return a.entries
}
