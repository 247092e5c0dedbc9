package dns

import (
	"encoding/binary"

	"github.com/jroosing/hydrahost/internal/errs"
)

// Query is the part of an incoming DNS message the server acts on.
type Query struct {
	ID         uint16
	IsResponse bool
	QDCount    uint16
	Question   Question

	// Truncated is set when the question name could not be read to its
	// terminator. Question.Name then holds the labels read so far and the
	// type and class are zero.
	Truncated bool
}

// HasQuestion reports whether the message declared at least one question.
func (q Query) HasQuestion() bool {
	return q.QDCount > 0
}

// ParseQuery decodes the header and first question of a query datagram.
//
// Messages shorter than a header fail with a malformed-message error. The
// question walk never fails: see readName. The question type and class are
// read only when 4 bytes remain after the name. Further questions are
// ignored.
func ParseQuery(msg []byte) (Query, error) {
	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Query{}, errs.Wrap(errs.KindMalformedMessage, "dns.ParseQuery", err)
	}

	q := Query{
		ID:         h.ID,
		IsResponse: h.IsResponse(),
		QDCount:    h.QDCount,
	}
	if q.QDCount == 0 {
		return q, nil
	}

	name, complete := readName(msg, &off)
	q.Question.Name = name
	q.Truncated = !complete
	if complete && off+4 <= len(msg) {
		q.Question.Type = binary.BigEndian.Uint16(msg[off : off+2])
		q.Question.Class = binary.BigEndian.Uint16(msg[off+2 : off+4])
	}
	return q, nil
}
