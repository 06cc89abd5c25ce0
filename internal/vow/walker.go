package vow

// DPRecord is one distinguished point produced by a walker: the input
// frame that hashed to it, the full chain value, and the number of
// chain steps since the walker's previous recorded DP (or its seed).
type DPRecord struct {
	Frame []byte
	Chain []byte
	Steps uint64
}

// DPBuffer is a fixed-capacity buffer of DP records. Appends beyond
// capacity saturate: the record is dropped and counted. All record
// storage is preallocated so appends never allocate.
type DPBuffer struct {
	recs    []DPRecord
	count   int
	dropped uint64
}

// NewDPBuffer creates a buffer of cap records with the given frame
// and chain value lengths.
func NewDPBuffer(cap, frameLen, chainLen int) *DPBuffer {
	b := &DPBuffer{recs: make([]DPRecord, cap)}

	for i := range b.recs {
		b.recs[i].Frame = make([]byte, frameLen)
		b.recs[i].Chain = make([]byte, chainLen)
	}

	return b
}

// Append copies a DP record into the buffer. Returns false if the
// buffer is full and the record was dropped.
func (b *DPBuffer) Append(frame, chain []byte, steps uint64) bool {
	if b.count == len(b.recs) {
		b.dropped++
		return false
	}

	rec := &b.recs[b.count]
	copy(rec.Frame, frame)
	copy(rec.Chain, chain)
	rec.Steps = steps
	b.count++

	return true
}

// Records returns the appended records in append order. The returned
// slice aliases buffer storage and is invalidated by Reset.
func (b *DPBuffer) Records() []DPRecord {
	return b.recs[:b.count]
}

// Len returns the number of buffered records.
func (b *DPBuffer) Len() int {
	return b.count
}

// Dropped returns the number of records lost to saturation since the
// last Reset.
func (b *DPBuffer) Dropped() uint64 {
	return b.dropped
}

// Reset empties the buffer for the next batch.
func (b *DPBuffer) Reset() {
	b.count = 0
	b.dropped = 0
}

// CopyFrom copies another buffer's contents into this one. The two
// buffers must have been created with identical dimensions.
func (b *DPBuffer) CopyFrom(src *DPBuffer) {
	for i := 0; i < src.count; i++ {
		copy(b.recs[i].Frame, src.recs[i].Frame)
		copy(b.recs[i].Chain, src.recs[i].Chain)
		b.recs[i].Steps = src.recs[i].Steps
	}

	b.count = src.count
	b.dropped = src.dropped
}

// Walker is one chain-walking worker. It owns its chain value, its
// step counters, and a DP buffer; walkers never share mutable state.
type Walker struct {
	params *Params
	buf    *DPBuffer

	chain []byte // current chain value, digest-sized
	frame []byte // input frame scratch, reused every step

	hashCount    uint64
	stepsSinceDP uint64
}

// NewWalker creates a walker writing distinguished points into buf.
func NewWalker(p *Params, buf *DPBuffer) *Walker {
	return &Walker{
		params: p,
		buf:    buf,
		chain:  make([]byte, p.Variant.Size()),
		frame:  make([]byte, p.FrameLen()),
	}
}

// Seed initializes the chain value from the walker index and performs
// the first step. The seed frame is the implicit predecessor, so the
// step count starts at 1; the seed step itself may register a DP.
func (w *Walker) Seed(worker uint32) {
	copy(w.chain, w.params.SeedValue(worker))
	w.hashCount = 0
	w.stepsSinceDP = 0
	w.Step()
}

// Step advances the chain by one iteration: frame the first N bytes
// of the current chain value, hash the frame, and record a DP if the
// new value has K leading zero bytes.
func (w *Walker) Step() {
	p := w.params
	p.FillFrame(w.frame, w.chain)

	h := p.Variant.New()
	h.Write(w.frame)
	w.chain = h.Sum(w.chain[:0])

	w.hashCount++
	w.stepsSinceDP++

	// A dropped DP leaves the counter running, so the next recorded
	// DP's step count still starts at the last recorded one.
	if p.IsDP(w.chain) && w.buf.Append(w.frame, w.chain, w.stepsSinceDP) {
		w.stepsSinceDP = 0
	}
}

// HashCount returns the number of hash evaluations performed.
func (w *Walker) HashCount() uint64 {
	return w.hashCount
}

// Chain returns the current chain value. The slice aliases walker
// state and is only stable between steps.
func (w *Walker) Chain() []byte {
	return w.chain
}

// Buffer returns the walker's DP buffer.
func (w *Walker) Buffer() *DPBuffer {
	return w.buf
}
