package ledger

import (
	"errors"
	"fmt"
)

// RejectionCode categorizes why an operation was not applied.
type RejectionCode string

const (
	// RejectAccountLocked indicates the target account is locked.
	// Every operation against a locked account is rejected uniformly
	// with this code, regardless of what else is wrong with it.
	RejectAccountLocked RejectionCode = "ACCOUNT_LOCKED"

	// RejectDuplicateTx indicates a deposit reused an existing transaction id.
	RejectDuplicateTx RejectionCode = "DUPLICATE_TX"

	// RejectNonPositiveAmount indicates a deposit or withdrawal amount <= 0.
	RejectNonPositiveAmount RejectionCode = "NON_POSITIVE_AMOUNT"

	// RejectInsufficientFunds indicates a withdrawal exceeding available funds.
	RejectInsufficientFunds RejectionCode = "INSUFFICIENT_FUNDS"

	// RejectUnknownTx indicates a dispute-family operation referencing
	// a transaction id with no disputable record.
	RejectUnknownTx RejectionCode = "UNKNOWN_TX"

	// RejectClientMismatch indicates the referenced deposit is owned by
	// a different client than the operation names.
	RejectClientMismatch RejectionCode = "CLIENT_MISMATCH"

	// RejectInvalidState indicates the referenced deposit is not in the
	// state the operation requires (e.g. disputing a resolved deposit).
	RejectInvalidState RejectionCode = "INVALID_STATE"
)

// RejectionError describes a semantically invalid operation.
//
// A rejection is local to a single input record: the store was not
// mutated and the stream continues. A later, corrected record for the
// same entities may still succeed.
type RejectionError struct {
	Code    RejectionCode
	Op      OpType
	Client  ClientID
	Tx      TxID
	Message string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s (op=%s client=%d tx=%d)", e.Code, e.Message, e.Op, e.Client, e.Tx)
}

// IsRejection reports whether err is a RejectionError.
// Uses errors.As to handle wrapped errors.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
