package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/paydirt/paydirt/internal/ledger"
)

var outputHeader = []string{"client", "available", "held", "total", "locked"}

// Writer serializes account snapshots as CSV rows. Implements
// stream.Sink.
//
// Each row is flushed as it is written so a sink I/O failure surfaces
// on the emission that hit it, not at the end of the run.
type Writer struct {
	csv           *csv.Writer
	headerWritten bool
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Emit implements stream.Sink.
func (w *Writer) Emit(snap ledger.Snapshot) error {
	if err := w.writeHeader(); err != nil {
		return err
	}

	row := []string{
		strconv.FormatUint(uint64(snap.Client), 10),
		snap.Available.String(),
		snap.Held.String(),
		snap.Total.String(),
		strconv.FormatBool(snap.Locked),
	}
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Close flushes buffered output. An input that referenced no accounts
// still produces the header row.
func (w *Writer) Close() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

func (w *Writer) writeHeader() error {
	if w.headerWritten {
		return nil
	}
	w.headerWritten = true
	return w.csv.Write(outputHeader)
}
