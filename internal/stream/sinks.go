package stream

import "github.com/paydirt/paydirt/internal/ledger"

// MultiSink fans each snapshot out to every wrapped sink in order.
// The first failure aborts the emission and is returned as-is.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(snap ledger.Snapshot) error {
	for _, s := range m {
		if err := s.Emit(snap); err != nil {
			return err
		}
	}
	return nil
}
