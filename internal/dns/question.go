package dns

import (
	"encoding/binary"
)

// Question represents a DNS question section entry (RFC 1035 Section 4.1.2).
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// AppendTo appends the question in wire format to b.
func (q Question) AppendTo(b []byte) ([]byte, error) {
	b, err := appendName(b, q.Name)
	if err != nil {
		return nil, err
	}
	b = binary.BigEndian.AppendUint16(b, q.Type)
	return binary.BigEndian.AppendUint16(b, q.Class), nil
}

// IsA reports whether the question asks for an IPv4 address.
func (q Question) IsA() bool {
	return RecordType(q.Type) == TypeA
}
