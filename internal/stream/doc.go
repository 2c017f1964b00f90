// Package stream drives a single forward pass over an ordered
// operation source and coordinates early emission of locked accounts.
//
// There are exactly two tasks. The worker (the goroutine calling
// Processor.Run) reads the source and is the sole writer of the
// ledger store: an operation's legality depends on the full prior
// history of its client's account, so the pass cannot be parallelized.
// The emitter goroutine receives immutable account snapshots over a
// bounded channel and serializes them to the sink. Ownership moves
// once, at the handoff; no locks guard the store.
//
// A full channel blocks the worker (backpressure); a sink failure
// halts both tasks and surfaces as the run's error.
package stream
