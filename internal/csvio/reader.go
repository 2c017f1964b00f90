// Package csvio adapts the engine's input and output boundaries to
// CSV: a Reader decoding operation rows into ledger.Operation values
// and a Writer serializing emitted account snapshots.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paydirt/paydirt/internal/ledger"
	"github.com/paydirt/paydirt/internal/stream"
)

// ParseErrorKind categorizes input record failures.
type ParseErrorKind string

const (
	// ParseMalformedRow indicates the row could not be read as CSV or
	// has the wrong number of fields.
	ParseMalformedRow ParseErrorKind = "MALFORMED_ROW"
	// ParseUnknownType indicates an unrecognized operation type field.
	ParseUnknownType ParseErrorKind = "UNKNOWN_TYPE"
	// ParseMissingAmount indicates a deposit or withdrawal without an amount.
	ParseMissingAmount ParseErrorKind = "MISSING_AMOUNT"
	// ParseBadNumber indicates an unparseable client, tx, or amount field.
	ParseBadNumber ParseErrorKind = "BAD_NUMBER"
	// ParseNegativeAmount indicates a negative deposit or withdrawal amount.
	ParseNegativeAmount ParseErrorKind = "NEGATIVE_AMOUNT"
)

// ParseError describes one unusable input record. Parse errors are
// recoverable: the stream processor skips the record with a warning
// and keeps reading.
type ParseError struct {
	Kind    ParseErrorKind
	Record  int // 1-based data record number (header excluded)
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: record %d: %s", e.Kind, e.Record, e.Message)
}

// Unwrap marks every parse error as a recoverable malformed record
// for the stream processor.
func (e *ParseError) Unwrap() error {
	return stream.ErrMalformedRecord
}

// Reader decodes operations from CSV input. Implements stream.Source.
//
// Expected input shape, first row being a header:
//
//	type, client, tx, amount
//	deposit, 1, 1, 1.0
//	dispute, 1, 1
//
// Whitespace around fields is trimmed. Dispute-family rows may omit
// the amount field entirely or leave it empty. Amounts are normalized
// to the ledger scale (banker's rounding) at this boundary.
type Reader struct {
	csv        *csv.Reader
	headerRead bool
	record     int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	// Row width varies: dispute-family rows have no amount field.
	// Width is validated per row instead.
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr}
}

// Next implements stream.Source. It returns io.EOF at end of input
// and *ParseError for rows that cannot become operations.
func (r *Reader) Next() (ledger.Operation, error) {
	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			return ledger.Operation{}, io.EOF
		}

		if !r.headerRead {
			// First row is the header; nothing in it is data.
			r.headerRead = true
			if err == nil {
				continue
			}
		}
		r.record++

		if err != nil {
			return ledger.Operation{}, r.fail(ParseMalformedRow, err.Error())
		}

		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		return r.decode(row)
	}
}

func (r *Reader) decode(row []string) (ledger.Operation, error) {
	if len(row) < 3 || len(row) > 4 {
		return ledger.Operation{}, r.fail(ParseMalformedRow,
			fmt.Sprintf("expected 3 or 4 fields, got %d", len(row)))
	}

	client, err := strconv.ParseUint(row[1], 10, 16)
	if err != nil {
		return ledger.Operation{}, r.fail(ParseBadNumber, fmt.Sprintf("client %q", row[1]))
	}
	tx, err := strconv.ParseUint(row[2], 10, 32)
	if err != nil {
		return ledger.Operation{}, r.fail(ParseBadNumber, fmt.Sprintf("tx %q", row[2]))
	}

	op := ledger.Operation{
		Client: ledger.ClientID(client),
		Tx:     ledger.TxID(tx),
	}

	amount := ""
	if len(row) == 4 {
		amount = row[3]
	}

	switch row[0] {
	case "deposit", "withdrawal":
		if row[0] == "deposit" {
			op.Type = ledger.OpDeposit
		} else {
			op.Type = ledger.OpWithdrawal
		}
		if amount == "" {
			return ledger.Operation{}, r.fail(ParseMissingAmount,
				fmt.Sprintf("%s requires an amount", row[0]))
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return ledger.Operation{}, r.fail(ParseBadNumber, fmt.Sprintf("amount %q", amount))
		}
		if d.IsNegative() {
			return ledger.Operation{}, r.fail(ParseNegativeAmount,
				fmt.Sprintf("%s amount %s must be positive", row[0], amount))
		}
		op.Amount = ledger.Round(d)

	case "dispute":
		op.Type = ledger.OpDispute
	case "resolve":
		op.Type = ledger.OpResolve
	case "chargeback":
		op.Type = ledger.OpChargeback
	default:
		return ledger.Operation{}, r.fail(ParseUnknownType,
			fmt.Sprintf("operation type %q", row[0]))
	}

	return op, nil
}

func (r *Reader) fail(kind ParseErrorKind, msg string) *ParseError {
	return &ParseError{Kind: kind, Record: r.record, Message: msg}
}
