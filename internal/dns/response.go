package dns

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// CreateResponse builds an A-record answer for the echoed question.
//
// The header carries id and ResponseFlags with one question and one answer.
// The answer repeats name as TYPE A, CLASS IN with AnswerTTL and the four
// octets of address. An address that is not four dot-separated decimal octets
// is answered as FallbackAnswerAddress.
func CreateResponse(name string, qtype, qclass, id uint16, address string) ([]byte, error) {
	q := Question{Name: name, Type: qtype, Class: qclass}
	b := make([]byte, 0, HeaderSize+2*(len(name)+2)+4+14)
	b = Header{ID: id, Flags: ResponseFlags, QDCount: 1, ANCount: 1}.AppendTo(b)

	b, err := q.AppendTo(b)
	if err != nil {
		return nil, err
	}

	b, err = appendName(b, name)
	if err != nil {
		return nil, err
	}
	b = binary.BigEndian.AppendUint16(b, uint16(TypeA))
	b = binary.BigEndian.AppendUint16(b, uint16(ClassIN))
	b = binary.BigEndian.AppendUint32(b, AnswerTTL)
	b = binary.BigEndian.AppendUint16(b, 4)
	octets, ok := ipv4Octets(address)
	if !ok {
		octets, _ = ipv4Octets(FallbackAnswerAddress)
	}
	return append(b, octets[:]...), nil
}

// CreateNXDomainResponse builds a name-error reply: NXDomainFlags, the echoed
// question and no answer section.
func CreateNXDomainResponse(name string, qtype, qclass, id uint16) ([]byte, error) {
	q := Question{Name: name, Type: qtype, Class: qclass}
	b := make([]byte, 0, HeaderSize+len(name)+6)
	b = Header{ID: id, Flags: NXDomainFlags, QDCount: 1}.AppendTo(b)
	return q.AppendTo(b)
}

// ipv4Octets splits a dotted-quad into its four octets.
func ipv4Octets(address string) ([4]byte, bool) {
	var out [4]byte
	parts := strings.Split(address, ".")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return out, false
		}
		out[i] = byte(v)
	}
	return out, true
}
