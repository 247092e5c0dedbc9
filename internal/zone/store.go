// Package zone holds the zones and address records the DNS server answers
// from, and decides between an answer, NXDOMAIN and the fallback address.
package zone

import (
	"log/slog"
	"net/netip"
	"slices"
	"strings"
	"sync"

	"github.com/jroosing/hydrahost/internal/dns"
	"github.com/jroosing/hydrahost/internal/errs"
)

// Mode selects how a lookup miss is answered.
type Mode string

const (
	// ModeZone answers a miss under an authoritative zone with NXDOMAIN and
	// any other miss with FallbackAddress.
	ModeZone Mode = "zone"
	// ModeSimple answers every miss with FallbackAddress.
	ModeSimple Mode = "simple"
)

// ParseMode maps a configuration value to a Mode. Unknown values and the
// empty string select ModeZone.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSimple:
		return ModeSimple, true
	case ModeZone, "":
		return ModeZone, true
	default:
		return ModeZone, false
	}
}

// FallbackAddress is answered for names the store has no record for and
// no authority over.
const FallbackAddress = "0.0.0.0"

// Zone is a domain subtree, optionally claimed as authoritative.
type Zone struct {
	Name          string `json:"name"`
	Authoritative bool   `json:"authoritative"`
}

// Record maps a name to an address. Type is A or AAAA, derived from the
// address family.
type Record struct {
	Type    dns.RecordType `json:"-"`
	Name    string         `json:"name"`
	Address netip.Addr     `json:"address"`
}

type recordKey struct {
	name string
	typ  dns.RecordType
}

// Outcome is the kind of reply a lookup produces.
type Outcome int

const (
	OutcomeAnswer   Outcome = iota // a stored record matched
	OutcomeNXDomain                // no record, name under an authoritative zone
	OutcomeFallback                // no record, answered with FallbackAddress
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswer:
		return "answer"
	case OutcomeNXDomain:
		return "nxdomain"
	default:
		return "fallback"
	}
}

// Resolution is the result of Resolve.
type Resolution struct {
	Outcome Outcome
	Address string // empty for OutcomeNXDomain
	Zone    string // enclosing zone, if any
}

// Store is a concurrency-safe in-memory zone and record store.
type Store struct {
	mode   Mode
	logger *slog.Logger

	mu      sync.RWMutex
	zones   map[string]Zone
	records map[recordKey]netip.Addr
}

// NewStore creates an empty store answering misses according to mode.
func NewStore(mode Mode, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if mode != ModeSimple {
		mode = ModeZone
	}
	return &Store{
		mode:    mode,
		logger:  logger,
		zones:   make(map[string]Zone),
		records: make(map[recordKey]netip.Addr),
	}
}

// Mode returns the miss policy of the store.
func (s *Store) Mode() Mode { return s.mode }

// AddZone adds or replaces a zone.
func (s *Store) AddZone(name string, authoritative bool) {
	n := dns.NormalizeName(name)
	s.mu.Lock()
	s.zones[n] = Zone{Name: n, Authoritative: authoritative}
	s.mu.Unlock()
}

// Zones returns all zones sorted by name.
func (s *Store) Zones() []Zone {
	s.mu.RLock()
	out := make([]Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Zone) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// AddRecord stores name -> address, replacing an existing record of the
// same family. An address that is not an IPv4 or IPv6 literal is logged and
// rejected; the store is left unchanged.
func (s *Store) AddRecord(name, address string) error {
	n := dns.NormalizeName(name)
	addr, err := netip.ParseAddr(strings.TrimSpace(address))
	if err != nil || n == "" {
		s.logger.Warn("rejecting dns record", "name", name, "address", address, "err", err)
		return errs.New(errs.KindInvalidArgument, "zone.AddRecord", "invalid record %q -> %q", name, address)
	}
	addr = addr.Unmap()
	typ := dns.TypeA
	if addr.Is6() {
		typ = dns.TypeAAAA
	}

	s.mu.Lock()
	s.records[recordKey{name: n, typ: typ}] = addr
	s.mu.Unlock()
	s.logger.Info("dns record added", "name", n, "type", typ.String(), "address", addr.String())
	return nil
}

// RemoveRecord deletes every record of name. It reports whether anything
// was removed.
func (s *Store) RemoveRecord(name string) bool {
	n := dns.NormalizeName(name)
	s.mu.Lock()
	removed := false
	for _, typ := range []dns.RecordType{dns.TypeA, dns.TypeAAAA} {
		k := recordKey{name: n, typ: typ}
		if _, ok := s.records[k]; ok {
			delete(s.records, k)
			removed = true
		}
	}
	s.mu.Unlock()
	if removed {
		s.logger.Info("dns record removed", "name", n)
	}
	return removed
}

// RemoveRecordType deletes the record of name with the given type, leaving
// the other family in place. It reports whether a record was removed.
func (s *Store) RemoveRecordType(name string, typ dns.RecordType) bool {
	k := recordKey{name: dns.NormalizeName(name), typ: typ}
	s.mu.Lock()
	_, ok := s.records[k]
	delete(s.records, k)
	s.mu.Unlock()
	if ok {
		s.logger.Info("dns record removed", "name", k.name, "type", typ.String())
	}
	return ok
}

// Lookup returns the address stored for name and type.
func (s *Store) Lookup(name string, typ dns.RecordType) (netip.Addr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.records[recordKey{name: dns.NormalizeName(name), typ: typ}]
	return addr, ok
}

// Records returns all records sorted by name, A before AAAA.
func (s *Store) Records() []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for k, addr := range s.records {
		out = append(out, Record{Type: k.typ, Name: k.name, Address: addr})
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Record) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return int(a.Type) - int(b.Type)
	})
	return out
}

// EnclosingZone returns the closest zone containing name: the zone itself,
// or the one with the longest matching suffix.
func (s *Store) EnclosingZone(name string) (Zone, bool) {
	n := dns.NormalizeName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for {
		if z, ok := s.zones[n]; ok {
			return z, true
		}
		i := strings.IndexByte(n, '.')
		if i < 0 {
			return Zone{}, false
		}
		n = n[i+1:]
	}
}

// Resolve answers an A query for name.
//
// A stored A record is always answered. A name holding only an AAAA record
// exists, so it is answered with that address, which the encoder replaces
// by its IPv4 fallback. On a miss, ModeZone returns NXDOMAIN when the
// closest enclosing zone is authoritative and FallbackAddress otherwise;
// ModeSimple always returns FallbackAddress.
func (s *Store) Resolve(name string) Resolution {
	for _, typ := range []dns.RecordType{dns.TypeA, dns.TypeAAAA} {
		if addr, ok := s.Lookup(name, typ); ok {
			z, _ := s.EnclosingZone(name)
			return Resolution{Outcome: OutcomeAnswer, Address: addr.String(), Zone: z.Name}
		}
	}
	if s.mode == ModeZone {
		if z, ok := s.EnclosingZone(name); ok {
			if z.Authoritative {
				return Resolution{Outcome: OutcomeNXDomain, Zone: z.Name}
			}
			return Resolution{Outcome: OutcomeFallback, Address: FallbackAddress, Zone: z.Name}
		}
	}
	return Resolution{Outcome: OutcomeFallback, Address: FallbackAddress}
}
