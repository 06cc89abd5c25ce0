// Package sha2 selects members of the SHA-2 family behind a single
// Variant type. SHA-256 uses the SIMD-accelerated implementation
// since it sits on the hot chain-step path; SHA-224 and the SHA-512
// family come from the standard library.
package sha2

import (
	stdsha256 "crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	sha256 "github.com/minio/sha256-simd"
)

// Variant identifies a member of the SHA-2 family.
type Variant int

const (
	SHA224 Variant = iota
	SHA256
	SHA384
	SHA512
	SHA512_224
	SHA512_256
)

// ParseVariant parses a variant name such as "sha256" or "sha-512/224".
// Matching is case-insensitive and ignores dashes.
func ParseVariant(s string) (Variant, error) {
	norm := strings.ToLower(strings.ReplaceAll(s, "-", ""))

	switch norm {
	case "sha224":
		return SHA224, nil
	case "sha256":
		return SHA256, nil
	case "sha384":
		return SHA384, nil
	case "sha512":
		return SHA512, nil
	case "sha512/224", "sha512_224":
		return SHA512_224, nil
	case "sha512/256", "sha512_256":
		return SHA512_256, nil
	}

	return 0, fmt.Errorf("unknown hash variant %q", s)
}

// String returns the canonical variant name.
func (v Variant) String() string {
	switch v {
	case SHA224:
		return "SHA-224"
	case SHA256:
		return "SHA-256"
	case SHA384:
		return "SHA-384"
	case SHA512:
		return "SHA-512"
	case SHA512_224:
		return "SHA-512/224"
	case SHA512_256:
		return "SHA-512/256"
	default:
		return fmt.Sprintf("SHA-2(%d)", int(v))
	}
}

// Size returns the digest size in bytes.
func (v Variant) Size() int {
	switch v {
	case SHA224:
		return stdsha256.Size224
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	case SHA512_224:
		return sha512.Size224
	case SHA512_256:
		return sha512.Size256
	default:
		return 0
	}
}

// New returns a fresh streaming hash instance. Callers create one
// instance per message; reset semantics are never relied on.
func (v Variant) New() hash.Hash {
	switch v {
	case SHA224:
		return stdsha256.New224()
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	case SHA512_224:
		return sha512.New512_224()
	case SHA512_256:
		return sha512.New512_256()
	default:
		panic(fmt.Sprintf("sha2: invalid variant %d", int(v)))
	}
}

// Sum writes the digest of data into dst, which must have room for
// Size() bytes, and returns dst[:Size()].
func (v Variant) Sum(data, dst []byte) []byte {
	h := v.New()
	h.Write(data)
	return h.Sum(dst[:0])
}
