// Package ledger implements the core account ledger: the in-memory
// store of per-client accounts and disputable deposits, and the
// applier that executes the per-operation state machine against it.
//
// The ledger has one structural invariant: an account's total balance
// is never stored, it is always derived as available + held, so the
// two can never disagree. A second, behavioral invariant is that
// locked is terminal: once a chargeback locks an account, no later
// operation mutates that account or any record it owns.
//
// The store is exclusively owned by a single writer (the stream
// worker). Nothing in this package is safe for concurrent use;
// concurrency lives one level up, in package stream, which hands out
// immutable snapshots.
package ledger
