// Package vow implements the van Oorschot–Wiener distinguished-point
// collision search primitives: the chain walker, the host-side DP
// table, and the two-chain convergence walk.
package vow

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"VowCollider/internal/sha2"
)

// Params configures a partial-collision search. A chain iterates
// f(x) = truncate_N(H(prefix ‖ x ‖ suffix)) where x is the first N
// bytes of the previous chain value. A chain value whose first K
// bytes are zero is a distinguished point.
type Params struct {
	// Variant selects the SHA-2 family member under attack.
	Variant sha2.Variant

	// N is the partial-collision length in bytes, 1 <= N <= digest size.
	N int

	// K is the number of leading zero bytes marking a distinguished
	// point, 1 <= K <= N.
	K int

	// Prefix and Suffix frame every hashed input.
	Prefix []byte
	Suffix []byte

	// Threads is the number of independent chain walkers.
	Threads int

	// BatchSize is the number of chain steps per walker per dispatch.
	BatchSize uint64

	// DPCap is the per-walker DP buffer capacity for one batch.
	// Walkers saturate (drop and count) beyond this.
	DPCap int

	// SeedSalt, when non-empty, derives walker seeds through blake3
	// instead of the plain little-endian walker index. A fresh salt
	// gives a fresh seed set after a failed convergence.
	SeedSalt string
}

// Validate checks parameter bounds before any allocation.
func (p *Params) Validate() error {
	size := p.Variant.Size()
	if size == 0 {
		return fmt.Errorf("invalid hash variant %d", int(p.Variant))
	}

	if p.N < 1 || p.N > size {
		return fmt.Errorf("N = %d out of range [1, %d] for %s", p.N, size, p.Variant)
	}

	if p.K < 1 || p.K > p.N {
		return fmt.Errorf("K = %d out of range [1, N=%d]", p.K, p.N)
	}

	if p.Threads < 1 {
		return fmt.Errorf("threads = %d, need at least 1", p.Threads)
	}

	if p.BatchSize < 1 {
		return fmt.Errorf("batch size = %d, need at least 1", p.BatchSize)
	}

	if p.DPCap < 1 {
		return fmt.Errorf("dp buffer capacity = %d, need at least 1", p.DPCap)
	}

	return nil
}

// FrameLen returns the fixed input-frame length |prefix| + N + |suffix|.
func (p *Params) FrameLen() int {
	return len(p.Prefix) + p.N + len(p.Suffix)
}

// FillFrame writes prefix ‖ chain[:N] ‖ suffix into dst.
// dst must have length FrameLen().
func (p *Params) FillFrame(dst, chain []byte) {
	n := copy(dst, p.Prefix)
	n += copy(dst[n:], chain[:p.N])
	copy(dst[n:], p.Suffix)
}

// Frame allocates and fills a new input frame from a chain value.
func (p *Params) Frame(chain []byte) []byte {
	dst := make([]byte, p.FrameLen())
	p.FillFrame(dst, chain)
	return dst
}

// IsDP reports whether a chain value is a distinguished point,
// i.e. its first K bytes are zero.
func (p *Params) IsDP(chain []byte) bool {
	for _, b := range chain[:p.K] {
		if b != 0 {
			return false
		}
	}
	return true
}

// SeedValue returns the initial chain value for a walker: the walker
// index written little-endian into a zeroed digest-sized buffer, or a
// blake3 derivation of it when a seed salt is set.
func (p *Params) SeedValue(worker uint32) []byte {
	chain := make([]byte, p.Variant.Size())

	if p.SeedSalt == "" {
		binary.LittleEndian.PutUint32(chain, worker)
		return chain
	}

	material := make([]byte, 0, len(p.SeedSalt)+4)
	material = append(material, p.SeedSalt...)
	material = binary.LittleEndian.AppendUint32(material, worker)

	sum := blake3.Sum256(material)
	copy(chain, sum[:])

	return chain
}

// SeedFrame returns the implicit predecessor frame of a walker's
// first chain step.
func (p *Params) SeedFrame(worker uint32) []byte {
	return p.Frame(p.SeedValue(worker))
}
