package dns

import (
	"encoding/binary"
	"testing"

	mdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateResponse(t *testing.T) {
	b, err := CreateResponse("www.test.local", uint16(TypeA), uint16(ClassIN), 0x4242, "192.168.1.100")
	require.NoError(t, err)

	assert.Equal(t, []byte{0x42, 0x42}, b[0:2])
	assert.Equal(t, []byte{0x81, 0x80}, b[2:4])
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(b[4:6]))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(b[6:8]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(b[8:10]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(b[10:12]))
	assert.Equal(t, []byte{192, 168, 1, 100}, b[len(b)-4:])

	// TTL and RDLENGTH precede the address.
	assert.Equal(t, AnswerTTL, binary.BigEndian.Uint32(b[len(b)-10:len(b)-6]))
	assert.Equal(t, uint16(4), binary.BigEndian.Uint16(b[len(b)-6:len(b)-4]))
}

func TestCreateResponse_DecodesWithMiekg(t *testing.T) {
	b, err := CreateResponse("www.test.local", uint16(TypeA), uint16(ClassIN), 7, "10.0.0.1")
	require.NoError(t, err)

	m := new(mdns.Msg)
	require.NoError(t, m.Unpack(b))
	assert.Equal(t, uint16(7), m.Id)
	assert.True(t, m.Response)
	assert.True(t, m.RecursionDesired)
	assert.True(t, m.RecursionAvailable)
	assert.Equal(t, mdns.RcodeSuccess, m.Rcode)
	require.Len(t, m.Question, 1)
	assert.Equal(t, "www.test.local.", m.Question[0].Name)
	require.Len(t, m.Answer, 1)

	a, ok := m.Answer[0].(*mdns.A)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", a.A.String())
	assert.Equal(t, uint32(300), a.Hdr.Ttl)
	assert.Equal(t, "www.test.local.", a.Hdr.Name)
}

func TestCreateResponse_FallbackAddress(t *testing.T) {
	for _, addr := range []string{"not-an-ip", "1.2.3", "1.2.3.4.5", "256.1.1.1", "::1", ""} {
		t.Run(addr, func(t *testing.T) {
			b, err := CreateResponse("x.example", uint16(TypeA), uint16(ClassIN), 1, addr)
			require.NoError(t, err)
			assert.Equal(t, []byte{127, 0, 0, 1}, b[len(b)-4:])
		})
	}
}

func TestCreateResponse_BadName(t *testing.T) {
	_, err := CreateResponse("a..b", uint16(TypeA), uint16(ClassIN), 1, "1.1.1.1")
	assert.ErrorIs(t, err, ErrDNSError)
}

func TestCreateNXDomainResponse(t *testing.T) {
	b, err := CreateNXDomainResponse("missing.test.local", uint16(TypeA), uint16(ClassIN), 0x0102)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x01, 0x02}, b[0:2])
	assert.NotZero(t, b[2]&0x80)
	assert.Equal(t, byte(3), b[3]&0x0F)
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(b[6:8]))

	m := new(mdns.Msg)
	require.NoError(t, m.Unpack(b))
	assert.Equal(t, mdns.RcodeNameError, m.Rcode)
	assert.Empty(t, m.Answer)
	require.Len(t, m.Question, 1)
	assert.Equal(t, "missing.test.local.", m.Question[0].Name)
}

func TestParseThenRespond_EchoesQuery(t *testing.T) {
	names := []string{"www.test.local", "A.B.C", "host-1.example.org"}
	for i, n := range names {
		t.Run(n, func(t *testing.T) {
			id := uint16(1000 + i)
			q, err := ParseQuery(packQuery(t, n, mdns.TypeA, id))
			require.NoError(t, err)

			ok, err := CreateResponse(q.Question.Name, q.Question.Type, q.Question.Class, q.ID, "1.2.3.4")
			require.NoError(t, err)
			nx, err := CreateNXDomainResponse(q.Question.Name, q.Question.Type, q.Question.Class, q.ID)
			require.NoError(t, err)

			for _, b := range [][]byte{ok, nx} {
				assert.Equal(t, id, binary.BigEndian.Uint16(b[0:2]))
				assert.NotZero(t, b[2]&0x80)

				echoed, err := ParseQuery(b)
				require.NoError(t, err)
				assert.Equal(t, q.Question, echoed.Question)
			}
		})
	}
}
