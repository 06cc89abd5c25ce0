package vow

import (
	"bytes"
	"testing"

	"VowCollider/internal/sha2"
)

// plantedChains finds, by exhaustive scan over one-byte middles, a
// quadruple (a, b, c, d) of distinct middles such that the chains
// seeded at frames c and d pass through frames a and b respectively
// and then merge: truncate_1(H(frame(a))) == truncate_1(H(frame(b))).
//
//	c → a ↘
//	        merge …
//	d → b ↗
//
// With N = 1 the chain value space has 256 elements, so the scan is
// cheap and the outcome is fixed by the hash function.
type planted struct {
	p          *Params
	a, b, c, d byte
}

func plantChains(t *testing.T) planted {
	t.Helper()

	p := testParams()
	p.N = 1
	p.K = 1

	// First byte of the chain value reached from each middle.
	var next [256]byte
	chain := make([]byte, p.Variant.Size())
	seed := make([]byte, p.Variant.Size())

	for m := 0; m < 256; m++ {
		seed[0] = byte(m)
		p.Variant.Sum(p.Frame(seed), chain)
		next[m] = chain[0]
	}

	// pred[v] is some middle hashing to a value starting with v.
	pred := make(map[byte]byte)
	for m := 255; m >= 0; m-- {
		pred[next[m]] = byte(m)
	}

	for a := 0; a < 256; a++ {
		for b := a + 1; b < 256; b++ {
			if next[a] != next[b] {
				continue
			}

			c, okC := pred[byte(a)]
			d, okD := pred[byte(b)]
			if !okC || !okD || c == d || next[c] == next[d] {
				continue
			}

			return planted{p: p, a: byte(a), b: byte(b), c: c, d: d}
		}
	}

	t.Skip("no planted configuration for this hash")
	return planted{}
}

// frameOf builds the input frame whose middle is the single byte m.
func (pl planted) frameOf(m byte) []byte {
	seed := make([]byte, pl.p.Variant.Size())
	seed[0] = m
	return pl.p.Frame(seed)
}

func TestLockstepRecoversPlantedPair(t *testing.T) {
	pl := plantChains(t)
	p := pl.p

	// Both sides are two steps from the merged chain value.
	x := NewSide(p, pl.frameOf(pl.c))
	y := NewSide(p, pl.frameOf(pl.d))
	xSteps, ySteps := uint64(2), uint64(2)

	if !Lockstep(x, y, &xSteps, &ySteps) {
		t.Fatal("lockstep should meet on planted chains")
	}

	if !bytes.Equal(x.Frame, pl.frameOf(pl.a)) || !bytes.Equal(y.Frame, pl.frameOf(pl.b)) {
		t.Errorf("met at (%x, %x), want the planted pre-merge frames", x.Frame, y.Frame)
	}

	if bytes.Equal(x.Frame, y.Frame) {
		t.Error("colliding frames must be distinct")
	}

	if !x.Equal(y) {
		t.Error("met sides must agree on the first N bytes")
	}

	// The recovered pair is a genuine partial collision of H.
	d1 := make([]byte, p.Variant.Size())
	d2 := make([]byte, p.Variant.Size())
	p.Variant.Sum(x.Frame, d1)
	p.Variant.Sum(y.Frame, d2)
	if !bytes.Equal(d1[:p.N], d2[:p.N]) {
		t.Error("recovered frames do not collide on the first N bytes")
	}
}

func TestEqualizeThenLockstep(t *testing.T) {
	pl := plantChains(t)
	p := pl.p

	// x starts one step further from the merge than y.
	x := NewSide(p, pl.frameOf(pl.c))
	y := NewSide(p, pl.frameOf(pl.b))
	xSteps, ySteps := uint64(2), uint64(1)

	Equalize(x, y, &xSteps, &ySteps)

	if xSteps != ySteps {
		t.Fatalf("after equalize: x_steps = %d, y_steps = %d", xSteps, ySteps)
	}
	if xSteps != 1 {
		t.Fatalf("after equalize: remaining steps = %d, want 1", xSteps)
	}

	// Equalizing walked x through frame(a), so the sides already
	// agree on the truncation.
	if !Lockstep(x, y, &xSteps, &ySteps) {
		t.Fatal("lockstep should meet after equalizing")
	}

	if !bytes.Equal(x.Frame, pl.frameOf(pl.a)) || !bytes.Equal(y.Frame, pl.frameOf(pl.b)) {
		t.Errorf("met at (%x, %x), want the planted pre-merge frames", x.Frame, y.Frame)
	}
}

func TestLockstepIdempotent(t *testing.T) {
	pl := plantChains(t)
	p := pl.p

	x := NewSide(p, pl.frameOf(pl.c))
	y := NewSide(p, pl.frameOf(pl.d))
	xSteps, ySteps := uint64(2), uint64(2)

	if !Lockstep(x, y, &xSteps, &ySteps) {
		t.Fatal("lockstep should meet on planted chains")
	}

	before := x.HashCount + y.HashCount

	// Rerunning on a met pair returns immediately.
	if !Lockstep(x, y, &xSteps, &ySteps) {
		t.Fatal("lockstep on a met pair should report success")
	}

	if x.HashCount+y.HashCount != before {
		t.Error("lockstep on a met pair should not step either side")
	}
}

func TestLockstepSpuriousExhaustsCounters(t *testing.T) {
	pl := plantChains(t)
	p := pl.p

	// The sides start on values differing in their first byte and
	// have no budget to walk.
	x := NewSide(p, pl.frameOf(pl.c))
	y := NewSide(p, pl.frameOf(pl.d))
	xSteps, ySteps := uint64(0), uint64(0)

	if Lockstep(x, y, &xSteps, &ySteps) {
		t.Fatal("lockstep with exhausted counters should fail")
	}
}

func TestSideConstruction(t *testing.T) {
	p := testParams()

	frame := p.SeedFrame(1)
	s := NewSide(p, frame)

	if s.HashCount != 1 {
		t.Errorf("hash count = %d, want 1 after construction", s.HashCount)
	}

	want := make([]byte, p.Variant.Size())
	p.Variant.Sum(frame, want)
	if !bytes.Equal(s.Chain, want) {
		t.Errorf("chain = %x, want H(frame) = %x", s.Chain, want)
	}

	// The side copies its frame; mutating the argument is harmless.
	frame[0] ^= 0xff
	if s.Frame[0] == frame[0] {
		t.Error("side frame aliases caller storage")
	}

	s.Step()
	if s.HashCount != 2 {
		t.Errorf("hash count = %d, want 2 after one step", s.HashCount)
	}
}

func TestSideEqualComparesTruncationOnly(t *testing.T) {
	p := &Params{
		Variant: sha2.SHA256,
		N:       2,
		K:       1,
		Threads: 1, BatchSize: 1, DPCap: 1,
	}

	x := &Side{Chain: []byte{1, 2, 0xaa, 0xbb}, params: p}
	y := &Side{Chain: []byte{1, 2, 0xcc, 0xdd}, params: p}

	if !x.Equal(y) {
		t.Error("sides agreeing on the first N bytes must compare equal")
	}

	y.Chain[1] = 3
	if x.Equal(y) {
		t.Error("sides differing within the first N bytes must compare unequal")
	}
}
