// Package search runs the two-stage partial-collision search: a
// batched distinguished-point walk across many parallel chain
// walkers, followed by a lockstep convergence walk that recovers the
// exact colliding input pair.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"VowCollider/internal/device"
	"VowCollider/internal/logger"
	"VowCollider/internal/trace"
	"VowCollider/internal/vow"
)

// ErrNoCollision is returned when the convergence walk exhausts its
// step counters before the two chains meet, or when they meet on
// identical input frames. The DP hit was spurious; rerun with a fresh
// seed salt.
var ErrNoCollision = errors.New("chains exhausted before meeting")

// Options configures engine plumbing.
type Options struct {
	// Pool is the executor to dispatch batches on. When nil the
	// engine creates one sized to GOMAXPROCS and owns it.
	Pool *device.Pool

	// TracePath, when non-empty, records every ingested DP batch to a
	// zstd-compressed trace file.
	TracePath string
}

// Collision is the final report of a successful search.
type Collision struct {
	Input1  []byte // first colliding input frame
	Input2  []byte // second colliding input frame
	Digest1 []byte // full digest of Input1
	Digest2 []byte // full digest of Input2

	// Matched is the number of leading digest bytes the two inputs
	// share; at least N on success.
	Matched int

	TotalHashes uint64 // hash evaluations across both stages
	Batches     uint64 // stage-one batches ingested
	TableSize   int    // DP table entries at termination
	Elapsed     time.Duration
}

// Engine owns one search run.
type Engine struct {
	params  *vow.Params
	pool    *device.Pool
	ownPool bool
	tracer  *trace.Writer

	stageOneHashes uint64
	batches        uint64
	tableSize      int
}

// New validates parameters and prepares an engine. Device memory is
// allocated when Run starts and released when stage one ends.
func New(p *vow.Params, opts Options) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters:\n%w", err)
	}

	e := &Engine{params: p, pool: opts.Pool}

	if e.pool == nil {
		e.pool = device.NewPool(0)
		e.ownPool = true
	}

	if opts.TracePath != "" {
		w, err := trace.NewWriter(opts.TracePath, p)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.tracer = w
	}

	return e, nil
}

// Close releases the engine's pool and trace writer.
func (e *Engine) Close() error {
	var err error

	if e.tracer != nil {
		err = e.tracer.Close()
		e.tracer = nil
	}

	if e.ownPool {
		e.pool.Close()
		e.ownPool = false
	}

	return err
}

// Run executes both stages and returns the collision. It returns
// ErrNoCollision on a spurious DP hit and the context error if the
// run is cancelled between batches.
func (e *Engine) Run(ctx context.Context) (*Collision, error) {
	p := e.params
	start := time.Now()

	logger.Info("starting partial-collision search",
		"hash", p.Variant,
		"n", p.N,
		"k", p.K,
		logger.Hex("prefix", p.Prefix),
		logger.Hex("suffix", p.Suffix),
		"threads", p.Threads,
		"batch_size", p.BatchSize,
	)

	meet, err := e.runStageOne(ctx)
	if err != nil {
		return nil, err
	}

	x, y, err := e.converge(meet)
	if err != nil {
		return nil, err
	}

	matched := matchedBytes(x.Chain, y.Chain)

	c := &Collision{
		Input1:      append([]byte(nil), x.Frame...),
		Input2:      append([]byte(nil), y.Frame...),
		Digest1:     append([]byte(nil), x.Chain...),
		Digest2:     append([]byte(nil), y.Chain...),
		Matched:     matched,
		TotalHashes: e.stageOneHashes + x.HashCount + y.HashCount,
		Batches:     e.batches,
		TableSize:   e.tableSize,
		Elapsed:     time.Since(start),
	}

	logger.Info("partial collision found",
		"matched_bytes", c.Matched,
		"total_hashes", c.TotalHashes,
		"dp_chains", c.TableSize,
		logger.Timed(start),
	)
	logger.Info("collision pair",
		logger.Hex("input1", c.Input1),
		logger.Hex("digest1", c.Digest1),
		logger.Hex("input2", c.Input2),
		logger.Hex("digest2", c.Digest2),
	)

	return c, nil
}

// runStageOne walks chains in batches until two independent chains
// land on the same distinguished point.
func (e *Engine) runStageOne(ctx context.Context) (*vow.Meet, error) {
	p := e.params
	start := time.Now()
	frameLen, chainLen := p.FrameLen(), p.Variant.Size()

	// Device memory: walker states, device DP buffers, and host-side
	// shadow buffers the ingest phase reads from.
	walkers := make([]*vow.Walker, p.Threads)
	deviceBufs := make([]*vow.DPBuffer, p.Threads)
	hostBufs := make([]*vow.DPBuffer, p.Threads)
	lastDP := make([][]byte, p.Threads)

	for i := range walkers {
		deviceBufs[i] = vow.NewDPBuffer(p.DPCap, frameLen, chainLen)
		hostBufs[i] = vow.NewDPBuffer(p.DPCap, frameLen, chainLen)
		walkers[i] = vow.NewWalker(p, deviceBufs[i])
		lastDP[i] = p.SeedFrame(uint32(i))
	}

	table := vow.NewTable(p.N)

	logger.Info("device memory allocated",
		"threads", p.Threads,
		"dp_cap", p.DPCap,
		"frame_len", frameLen,
	)

	// Initial batch: seed every walker, then run a full batch of
	// steps. The seed step is the +1 on top of every batch.
	initial := e.pool.Dispatch(p.Threads, func(i int) {
		deviceBufs[i].Reset()
		walkers[i].Seed(uint32(i))
		for s := uint64(0); s < p.BatchSize; s++ {
			walkers[i].Step()
		}
	})
	initial.Wait()

	logger.Info("initial batch complete", logger.Timed(start))

	batchCount := uint64(1)
	var meet *vow.Meet

	for meet == nil {
		// Copy DP buffers out and snapshot hash counts while the
		// device is idle.
		var total uint64
		for i := range hostBufs {
			hostBufs[i].CopyFrom(deviceBufs[i])
			total += walkers[i].HashCount()
		}
		e.stageOneHashes = total

		// Redispatch immediately; ingestion below overlaps the next
		// batch's compute.
		inflight := e.pool.Dispatch(p.Threads, func(i int) {
			deviceBufs[i].Reset()
			for s := uint64(0); s < p.BatchSize; s++ {
				walkers[i].Step()
			}
		})

		if e.tracer != nil {
			if err := e.tracer.WriteBatch(batchCount, hostBufs); err != nil {
				inflight.Wait()
				return nil, fmt.Errorf("record trace batch:\n%w", err)
			}
		}

		// Ingest in deterministic order: walker index, then buffer
		// sequence. The first cross-chain DP hit ends the stage.
		maxDP := 0
		var dropped uint64

		for i := 0; i < p.Threads && meet == nil; i++ {
			buf := hostBufs[i]
			if buf.Len() > maxDP {
				maxDP = buf.Len()
			}
			dropped += buf.Dropped()

			for _, rec := range buf.Records() {
				if frame, steps, ok := table.Lookup(rec.Chain); ok {
					meet = &vow.Meet{
						X:      append([]byte(nil), frame...),
						XSteps: steps,
						Y:      append([]byte(nil), lastDP[i]...),
						YSteps: rec.Steps,
						DP:     append([]byte(nil), rec.Chain...),
					}
					break
				}

				table.Insert(rec.Chain, lastDP[i], rec.Steps)
				lastDP[i] = p.Frame(rec.Chain)
			}
		}

		if dropped > 0 {
			logger.Warn("dp buffers saturated, records dropped",
				"batch", batchCount,
				"dropped", dropped,
			)
		}

		logger.Info("batch ingested",
			"batch", batchCount,
			"hashes", total,
			"dp_chains", table.Len(),
			"max_dp_count", maxDP,
		)

		batchCount++

		// Host-visible barrier before touching device buffers again.
		inflight.Wait()

		if meet == nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	// The last dispatched batch has completed too; count its hashes.
	var total uint64
	for _, w := range walkers {
		total += w.HashCount()
	}
	e.stageOneHashes = total

	e.batches = batchCount - 1
	e.tableSize = table.Len()

	logger.Info("stage one found a dp collision",
		logger.Hex("dp", meet.DP),
		logger.Hex("x", meet.X),
		"x_steps", meet.XSteps,
		logger.Hex("y", meet.Y),
		"y_steps", meet.YSteps,
		logger.Timed(start),
	)

	return meet, nil
}

// converge runs stage two: equalize the two sides' distances to the
// collided DP, then walk them in lockstep until their chain values
// agree on the first N bytes.
func (e *Engine) converge(meet *vow.Meet) (x, y *vow.Side, err error) {
	p := e.params
	start := time.Now()

	x = vow.NewSide(p, meet.X)
	y = vow.NewSide(p, meet.Y)
	xSteps, ySteps := meet.XSteps, meet.YSteps

	logger.Info("convergence start",
		"x_steps", xSteps,
		"y_steps", ySteps,
		logger.Hex("x_chain", x.Chain),
		logger.Hex("y_chain", y.Chain),
	)

	vow.Equalize(x, y, &xSteps, &ySteps)

	logger.Info("step counts equalized",
		"x_steps", xSteps,
		"y_steps", ySteps,
		logger.Hex("x_chain", x.Chain),
		logger.Hex("y_chain", y.Chain),
	)

	met := vow.Lockstep(x, y, &xSteps, &ySteps)

	logger.Info("convergence finished",
		"met", met,
		"x_steps", xSteps,
		"y_steps", ySteps,
		logger.Hex("x_chain", x.Chain),
		logger.Hex("y_chain", y.Chain),
		logger.Timed(start),
	)

	if !met || bytes.Equal(x.Frame, y.Frame) {
		return nil, nil, ErrNoCollision
	}

	return x, y, nil
}

// matchedBytes counts the leading bytes two digests share.
func matchedBytes(a, b []byte) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
