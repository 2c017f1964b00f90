package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/paydirt/paydirt/internal/ledger"
)

// DefaultQueueSize is the default capacity of the snapshot handoff
// queue between the worker and the emitter.
const DefaultQueueSize = 64

// Stats summarizes one processing run.
type Stats struct {
	Applied   int // operations that mutated the ledger
	Rejected  int // semantically invalid operations, skipped
	Malformed int // unparseable input records, skipped
	Emitted   int // accounts handed to the sink (exactly once each)
}

// Processor owns the ledger store and runs the single-writer pass.
type Processor struct {
	store     *ledger.Store
	applier   *ledger.Applier
	queueSize int
	strict    bool
	tokens    TokenGenerator
	log       *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithQueueSize sets the handoff queue capacity.
// Values below 1 fall back to DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(p *Processor) {
		if n >= 1 {
			p.queueSize = n
		}
	}
}

// WithStrict makes malformed input records fatal instead of skipped.
func WithStrict(strict bool) Option {
	return func(p *Processor) {
		p.strict = strict
	}
}

// WithTokenGenerator overrides run token generation (for testing).
func WithTokenGenerator(g TokenGenerator) Option {
	return func(p *Processor) {
		p.tokens = g
	}
}

// WithRunToken pins the run token. Used when the caller has already
// generated a token to share with other collaborators (e.g. the audit
// journal must tag rows with the same token the logs carry).
func WithRunToken(token string) Option {
	return func(p *Processor) {
		p.tokens = NewFixedGenerator(token)
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// New creates a Processor with a fresh, empty ledger.
func New(opts ...Option) *Processor {
	st := ledger.NewStore()
	p := &Processor{
		store:     st,
		applier:   ledger.NewApplier(st),
		queueSize: DefaultQueueSize,
		tokens:    UUIDv7Generator{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store exposes the ledger for post-run inspection (harness, tests).
// Must not be touched while Run is in flight.
func (p *Processor) Store() *ledger.Store {
	return p.store
}

// emitter is the dedicated emission task. It drains the queue into the
// sink and records the first failure. done is closed on exit so the
// worker can stop blocking on a push to a dead emitter.
type emitter struct {
	sink Sink
	done chan struct{}
	err  error
}

func (e *emitter) run(queue <-chan ledger.Snapshot) {
	defer close(e.done)
	for snap := range queue {
		if err := e.sink.Emit(snap); err != nil {
			e.err = fmt.Errorf("emit client %d: %w", snap.Client, err)
			return
		}
	}
}

// Run consumes src to exhaustion and emits every referenced account
// to sink exactly once: locked accounts early, in chargeback order,
// the rest at end of stream in ascending client order.
//
// Run must be called at most once per Processor; the source is not
// restartable and neither is the ledger. The calling goroutine is the
// single writer of the store for the duration of the run.
func (p *Processor) Run(ctx context.Context, src Source, sink Sink) (Stats, error) {
	run := p.tokens.Generate()
	log := p.log.With("run", run)
	log.Info("processing starting", "queue_size", p.queueSize, "strict", p.strict)

	queue := make(chan ledger.Snapshot, p.queueSize)
	em := &emitter{sink: sink, done: make(chan struct{})}
	go em.run(queue)

	stats, workErr := p.consume(ctx, log, src, queue, em)

	// End of input (or worker failure): close the queue so the
	// emitter drains and exits, then join it.
	close(queue)
	<-em.done

	if workErr != nil {
		return stats, workErr
	}
	if em.err != nil {
		return stats, em.err
	}

	log.Info("processing complete",
		"applied", stats.Applied,
		"rejected", stats.Rejected,
		"malformed", stats.Malformed,
		"accounts", stats.Emitted,
	)
	return stats, nil
}

// consume is the worker loop: read, apply, hand off locked accounts,
// then sweep the remainder. Runs entirely on the calling goroutine.
func (p *Processor) consume(ctx context.Context, log *slog.Logger, src Source, queue chan<- ledger.Snapshot, em *emitter) (Stats, error) {
	var stats Stats
	emitted := make(map[ledger.ClientID]bool)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		op, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrMalformedRecord) && !p.strict {
				stats.Malformed++
				log.Warn("skipping malformed record", "error", err)
				continue
			}
			return stats, fmt.Errorf("reading operation source: %w", err)
		}

		out := p.applier.Apply(op)
		if !out.Applied() {
			stats.Rejected++
			log.Warn("operation rejected",
				"code", string(out.Reject.Code),
				"op", op.Type.String(),
				"client", uint16(op.Client),
				"tx", uint32(op.Tx),
			)
			continue
		}
		stats.Applied++

		if out.LockedNow {
			// The account is terminal: emit it now, before the rest
			// of the input has been consumed, and reclaim its
			// dispute records.
			snap := p.store.GetOrCreate(op.Client).Snapshot()
			emitted[op.Client] = true
			p.store.ReclaimClient(op.Client)
			log.Debug("early emission", "client", uint16(op.Client))
			if err := p.push(ctx, queue, em, snap); err != nil {
				return stats, err
			}
			stats.Emitted++
		}
	}

	// Final sweep: everything not already emitted, ascending by
	// client id for deterministic output.
	for _, id := range p.store.Clients() {
		if emitted[id] {
			continue
		}
		snap := p.store.GetOrCreate(id).Snapshot()
		if err := p.push(ctx, queue, em, snap); err != nil {
			return stats, err
		}
		stats.Emitted++
	}

	return stats, nil
}

// push hands a snapshot to the emitter, blocking when the queue is
// full (backpressure). A dead emitter or cancelled context unblocks
// the worker so both tasks halt.
func (p *Processor) push(ctx context.Context, queue chan<- ledger.Snapshot, em *emitter, snap ledger.Snapshot) error {
	select {
	case queue <- snap:
		return nil
	case <-em.done:
		if em.err != nil {
			return em.err
		}
		return errors.New("emitter stopped unexpectedly")
	case <-ctx.Done():
		return ctx.Err()
	}
}
