package dns

import "strconv"

// DNS header flags and masks (RFC 1035 Section 4.1.1)
//
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|QR|   Opcode  |AA|TC|RD|RA| Z|AD|CD|   RCODE   |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	 15 14 13 12 11 10  9  8  7  6  5  4  3  2  1  0
const (
	QRFlag uint16 = 0x8000 // Query/Response: 1 = response, 0 = query
	RDFlag uint16 = 0x0100 // Recursion Desired
	RAFlag uint16 = 0x0080 // Recursion Available
)

// Flags written by the encoder. Responses always carry QR, RD and RA.
const (
	ResponseFlags = QRFlag | RDFlag | RAFlag              // 0x8180
	NXDomainFlags = ResponseFlags | uint16(RCodeNXDomain) // 0x8183
)

// RecordType represents DNS resource record types (RFC 1035, RFC 3596).
type RecordType uint16

const (
	TypeA    RecordType = 1  // IPv4 address
	TypeAAAA RecordType = 28 // IPv6 address (RFC 3596)
)

func (t RecordType) String() string {
	switch t {
	case TypeA:
		return "A"
	case TypeAAAA:
		return "AAAA"
	default:
		return "TYPE" + strconv.Itoa(int(t))
	}
}

// RecordClass represents DNS resource record classes (RFC 1035).
type RecordClass uint16

const (
	ClassIN RecordClass = 1 // Internet class
)

// RCode represents DNS response codes (RFC 1035).
type RCode uint16

const (
	RCodeNoError  RCode = 0 // No error
	RCodeNXDomain RCode = 3 // Non-existent domain
)

// AnswerTTL is the TTL, in seconds, of every answer record the encoder emits.
const AnswerTTL uint32 = 300

// FallbackAnswerAddress replaces answer addresses that are not dotted-quad IPv4.
const FallbackAnswerAddress = "127.0.0.1"
