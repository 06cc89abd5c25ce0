package vow

import "bytes"

// Meet is the cross-chain DP hit found by the batch loop: two
// predecessor input frames X and Y whose chains both reach the chain
// value DP, after XSteps and YSteps iterations respectively.
type Meet struct {
	X      []byte
	XSteps uint64
	Y      []byte
	YSteps uint64
	DP     []byte
}

// Side is one side of the convergence walk. Constructing a side
// performs the first hash, so its counter is one step ahead of the
// stored predecessor distance.
type Side struct {
	Frame     []byte
	Chain     []byte
	HashCount uint64

	params *Params
}

// NewSide starts a convergence walk from a predecessor input frame.
func NewSide(p *Params, frame []byte) *Side {
	s := &Side{
		Frame:  append([]byte(nil), frame...),
		Chain:  make([]byte, p.Variant.Size()),
		params: p,
	}

	p.Variant.Sum(s.Frame, s.Chain)
	s.HashCount = 1

	return s
}

// Step advances the side by one chain iteration.
func (s *Side) Step() {
	p := s.params
	p.FillFrame(s.Frame, s.Chain)

	h := p.Variant.New()
	h.Write(s.Frame)
	s.Chain = h.Sum(s.Chain[:0])

	s.HashCount++
}

// Equal reports whether two sides' chain values agree on their first
// N bytes. Full-digest equality is deliberately not required; the
// search only ever promises N matching bytes.
func (s *Side) Equal(o *Side) bool {
	n := s.params.N
	return bytes.Equal(s.Chain[:n], o.Chain[:n])
}

// Equalize steps the side with the larger remaining distance until
// both sides are equally far from the collided DP.
func Equalize(x, y *Side, xSteps, ySteps *uint64) {
	for ; *xSteps > *ySteps; *xSteps-- {
		x.Step()
	}
	for ; *xSteps < *ySteps; *ySteps-- {
		y.Step()
	}
}

// Lockstep advances both sides together until their chain values
// agree on the first N bytes or either counter is exhausted. It
// returns true if the sides met. On a false return the DP hit was
// spurious (a symmetric cycle) and the search must be repeated with a
// fresh seed set.
//
// Calling Lockstep again on a met pair returns true immediately, so
// convergence is idempotent.
func Lockstep(x, y *Side, xSteps, ySteps *uint64) bool {
	for !x.Equal(y) {
		if *xSteps == 0 || *ySteps == 0 {
			return false
		}

		x.Step()
		y.Step()
		*xSteps--
		*ySteps--
	}

	return true
}
