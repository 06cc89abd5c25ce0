// Package trace records the DP buffers ingested by the batch loop
// into a zstd-compressed file and replays them later. A replayed
// trace drives table ingestion exactly as the live run did, which
// pins down the first-collision decision for offline diagnosis.
package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"VowCollider/internal/vow"
)

// magic identifies a trace file; version guards the record layout.
const (
	magic   = "VOWT"
	version = 1
)

// Header describes the geometry of the recorded run. Frame and chain
// lengths are fixed for a run, so records need no per-field framing.
type Header struct {
	Variant  uint8
	N        uint8
	K        uint8
	FrameLen uint16
	ChainLen uint16
	Threads  uint32
}

// headerFrom derives a trace header from search parameters.
func headerFrom(p *vow.Params) Header {
	return Header{
		Variant:  uint8(p.Variant),
		N:        uint8(p.N),
		K:        uint8(p.K),
		FrameLen: uint16(p.FrameLen()),
		ChainLen: uint16(p.Variant.Size()),
		Threads:  uint32(p.Threads),
	}
}

// Writer appends batches to a zstd-compressed trace file.
type Writer struct {
	f   *os.File
	enc *zstd.Encoder
}

// NewWriter creates a trace file and writes its header.
func NewWriter(path string, p *vow.Params) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file:\n%w", err)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}

	w := &Writer{f: f, enc: enc}

	if _, err := enc.Write([]byte(magic)); err != nil {
		w.Close()
		return nil, fmt.Errorf("write magic:\n%w", err)
	}
	if err := binary.Write(enc, binary.LittleEndian, uint8(version)); err != nil {
		w.Close()
		return nil, fmt.Errorf("write version:\n%w", err)
	}
	if err := binary.Write(enc, binary.LittleEndian, headerFrom(p)); err != nil {
		w.Close()
		return nil, fmt.Errorf("write header:\n%w", err)
	}

	return w, nil
}

// WriteBatch records one batch: the batch number and, per walker, its
// DP records in buffer order.
func (w *Writer) WriteBatch(batch uint64, bufs []*vow.DPBuffer) error {
	if err := binary.Write(w.enc, binary.LittleEndian, batch); err != nil {
		return fmt.Errorf("write batch number:\n%w", err)
	}

	for _, buf := range bufs {
		recs := buf.Records()

		if err := binary.Write(w.enc, binary.LittleEndian, uint32(len(recs))); err != nil {
			return fmt.Errorf("write record count:\n%w", err)
		}

		for _, rec := range recs {
			if _, err := w.enc.Write(rec.Frame); err != nil {
				return fmt.Errorf("write frame:\n%w", err)
			}
			if _, err := w.enc.Write(rec.Chain); err != nil {
				return fmt.Errorf("write chain value:\n%w", err)
			}
			if err := binary.Write(w.enc, binary.LittleEndian, rec.Steps); err != nil {
				return fmt.Errorf("write steps:\n%w", err)
			}
		}
	}

	return nil
}

// Close flushes and closes the trace file.
func (w *Writer) Close() error {
	encErr := w.enc.Close()
	fileErr := w.f.Close()

	if encErr != nil {
		return fmt.Errorf("close encoder:\n%w", encErr)
	}

	return fileErr
}

// Batch is one replayed batch: per-walker DP records in the order
// they were ingested.
type Batch struct {
	Number  uint64
	Buffers [][]vow.DPRecord
}

// Replay reads a trace file and invokes fn for every recorded batch,
// in recorded order. Replay stops early if fn returns an error.
func Replay(path string, fn func(Header, Batch) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open trace file:\n%w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("create decoder:\n%w", err)
	}
	defer dec.Close()

	var m [4]byte
	if _, err := io.ReadFull(dec, m[:]); err != nil {
		return fmt.Errorf("read magic:\n%w", err)
	}
	if string(m[:]) != magic {
		return fmt.Errorf("not a trace file (magic %q)", m)
	}

	var v uint8
	if err := binary.Read(dec, binary.LittleEndian, &v); err != nil {
		return fmt.Errorf("read version:\n%w", err)
	}
	if v != version {
		return fmt.Errorf("unsupported trace version %d", v)
	}

	var hdr Header
	if err := binary.Read(dec, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("read header:\n%w", err)
	}

	for {
		batch, err := readBatch(dec, hdr)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := fn(hdr, batch); err != nil {
			return err
		}
	}
}

// readBatch decodes one batch. A clean EOF before the batch number
// means the trace ended.
func readBatch(r io.Reader, hdr Header) (Batch, error) {
	var batch Batch

	if err := binary.Read(r, binary.LittleEndian, &batch.Number); err != nil {
		if errors.Is(err, io.EOF) {
			return batch, io.EOF
		}
		return batch, fmt.Errorf("read batch number:\n%w", err)
	}

	batch.Buffers = make([][]vow.DPRecord, hdr.Threads)

	for i := range batch.Buffers {
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return batch, fmt.Errorf("read record count:\n%w", err)
		}

		recs := make([]vow.DPRecord, count)
		for j := range recs {
			recs[j].Frame = make([]byte, hdr.FrameLen)
			recs[j].Chain = make([]byte, hdr.ChainLen)

			if _, err := io.ReadFull(r, recs[j].Frame); err != nil {
				return batch, fmt.Errorf("read frame:\n%w", err)
			}
			if _, err := io.ReadFull(r, recs[j].Chain); err != nil {
				return batch, fmt.Errorf("read chain value:\n%w", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &recs[j].Steps); err != nil {
				return batch, fmt.Errorf("read steps:\n%w", err)
			}
		}

		batch.Buffers[i] = recs
	}

	return batch, nil
}
