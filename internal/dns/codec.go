package dns

import (
	"fmt"
	"strings"
)

// MaxLabelLength is the largest label RFC 1035 allows.
const MaxLabelLength = 63

// maxEncodedName is the largest encoded name RFC 1035 allows.
const maxEncodedName = 255

// NormalizeName converts a domain name to lowercase without trailing dots.
// DNS domain names are case-insensitive per RFC 1035 Section 3.1.
func NormalizeName(name string) string {
	return strings.ToLower(trimDot(name))
}

// EncodeName encodes a domain name to DNS wire format (RFC 1035 Section 3.1).
//
// Each label is emitted as a length byte followed by its bytes and the name is
// terminated by a zero byte:
//
//	"www.example.com" -> [3]www[7]example[3]com[0]
//
// The empty name and "." encode as the root. No compression is applied.
func EncodeName(domain string) ([]byte, error) {
	return appendName(make([]byte, 0, len(domain)+2), domain)
}

func appendName(out []byte, domain string) ([]byte, error) {
	start := len(out)
	domain = trimDot(domain)
	if domain == "" {
		return append(out, 0), nil
	}

	labelStart := 0
	for i := 0; i <= len(domain); i++ {
		if i < len(domain) && domain[i] != '.' {
			continue
		}
		if i == labelStart {
			return nil, fmt.Errorf("%w: invalid domain name (empty label): %q", ErrDNSError, domain)
		}
		label := domain[labelStart:i]
		if len(label) > MaxLabelLength {
			return nil, fmt.Errorf("%w: DNS label too long (%d > %d): %q", ErrDNSError, len(label), MaxLabelLength, label)
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
		labelStart = i + 1
	}
	out = append(out, 0)

	if n := len(out) - start; n > maxEncodedName {
		return nil, fmt.Errorf("%w: encoded domain name too long (%d > %d)", ErrDNSError, n, maxEncodedName)
	}
	return out, nil
}

// readName walks an uncompressed label sequence starting at *off.
//
// The walk is lenient: a length byte above 63 (which includes compression
// pointers) or a label running past the end of msg stops it, and whatever was
// read so far is returned with complete=false. *off is left after the zero
// terminator when the name is complete.
func readName(msg []byte, off *int) (name string, complete bool) {
	labels := make([]string, 0, 6)
	for *off < len(msg) {
		n := int(msg[*off])
		if n == 0 {
			*off++
			return strings.Join(labels, "."), true
		}
		if n > MaxLabelLength || *off+1+n > len(msg) {
			break
		}
		labels = append(labels, string(msg[*off+1:*off+1+n]))
		*off += 1 + n
	}
	return strings.Join(labels, "."), false
}

// trimDot removes all trailing dots from a string.
func trimDot(s string) string {
	for len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
