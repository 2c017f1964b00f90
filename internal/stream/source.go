package stream

import (
	"errors"
	"io"

	"github.com/paydirt/paydirt/internal/ledger"
)

// ErrMalformedRecord is the sentinel wrapped by recoverable
// per-record input failures. A source reports a row it could not
// parse as an error satisfying errors.Is(err, ErrMalformedRecord);
// the processor logs a warning, counts it, and keeps reading. Any
// other source error is an I/O failure and fatal to the run.
var ErrMalformedRecord = errors.New("malformed input record")

// Source is a pull-based, finite, non-restartable sequence of
// operations. Next returns io.EOF once the source is exhausted;
// exhaustion is permanent.
type Source interface {
	Next() (ledger.Operation, error)
}

// Sink receives finalized account snapshots, one per client. The
// processor guarantees Emit never sees the same client twice. An
// Emit error is fatal to the whole run.
type Sink interface {
	Emit(ledger.Snapshot) error
}

// SliceSource serves operations from memory. Test helper and
// building block for the scenario harness.
type SliceSource struct {
	ops []ledger.Operation
	idx int
}

// NewSliceSource creates a source over ops.
func NewSliceSource(ops []ledger.Operation) *SliceSource {
	return &SliceSource{ops: ops}
}

// Next implements Source.
func (s *SliceSource) Next() (ledger.Operation, error) {
	if s.idx >= len(s.ops) {
		return ledger.Operation{}, io.EOF
	}
	op := s.ops[s.idx]
	s.idx++
	return op, nil
}
