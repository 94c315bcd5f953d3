package expr

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash/fnv"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for content-addressed expression identity.
// Version suffix enables future encoding migration.
const digestDomain = "tritium/expr/v1"

// Per-term type markers for the canonical byte encoding. Every variable
// length payload is length-prefixed, so no two term sequences share an
// encoding.
const (
	markString     = 's'
	markInt        = 'i'
	markBool       = 'b'
	markNull       = 'n'
	markTag        = 't'
	markFunc       = 'f'
	markAsyncFunc  = 'a'
	markDerivative = 'd'
)

// canonicalBytes produces the canonical encoding of a term sequence.
// CRITICAL: this is the ONLY serialization used for identity computation.
// Strings are NFC-normalized at the boundary; reference-identity terms
// encode their stable registration id.
func canonicalBytes(terms []Term) []byte {
	b := make([]byte, 0, 16*len(terms)+8)
	b = binary.BigEndian.AppendUint32(b, uint32(len(terms)))
	for _, t := range terms {
		b = appendTerm(b, t)
	}
	return b
}

func appendTerm(b []byte, t Term) []byte {
	switch tt := t.(type) {
	case String:
		normalized := norm.NFC.String(string(tt))
		b = append(b, markString)
		b = binary.BigEndian.AppendUint32(b, uint32(len(normalized)))
		return append(b, normalized...)
	case Int:
		b = append(b, markInt)
		return binary.BigEndian.AppendUint64(b, uint64(int64(tt)))
	case Bool:
		b = append(b, markBool)
		if tt {
			return append(b, 1)
		}
		return append(b, 0)
	case Null:
		return append(b, markNull)
	case *Tag:
		b = append(b, markTag)
		return binary.BigEndian.AppendUint64(b, tt.id)
	case *Func:
		b = append(b, markFunc)
		return binary.BigEndian.AppendUint64(b, tt.id)
	case *AsyncFunc:
		b = append(b, markAsyncFunc)
		return binary.BigEndian.AppendUint64(b, tt.id)
	case *DerivativeID:
		creator := tt.creator.data().canon
		b = append(b, markDerivative)
		b = binary.BigEndian.AppendUint32(b, uint32(len(creator)))
		b = append(b, creator...)
		return appendTerm(b, tt.key)
	default:
		// Unreachable: Term is sealed.
		panic("expr: unknown term type")
	}
}

// digestBytes computes the hex SHA-256 digest with domain separation.
// Format: SHA256(domain + 0x00 + canonical). The null separator prevents
// domain/data boundary ambiguity.
func digestBytes(canon []byte) string {
	h := sha256.New()
	h.Write([]byte(digestDomain))
	h.Write([]byte{0x00})
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil))
}

// hashBytes computes the 64-bit FNV-1a hash used by the persistent maps.
func hashBytes(canon []byte) uint64 {
	h := fnv.New64a()
	h.Write(canon)
	return h.Sum64()
}
