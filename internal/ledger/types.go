package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a transaction. IDs are globally unique across the
// whole input for identifier-introducing operation types.
type TxID uint32

// OpType distinguishes operation kinds.
type OpType int

const (
	// OpDeposit credits a client's available funds.
	OpDeposit OpType = iota + 1
	// OpWithdrawal debits a client's available funds.
	OpWithdrawal
	// OpDispute holds the funds of an earlier deposit.
	OpDispute
	// OpResolve releases held funds back to available.
	OpResolve
	// OpChargeback reverses a disputed deposit and locks the account.
	OpChargeback
)

// String returns the lowercase wire name of the operation type.
func (t OpType) String() string {
	switch t {
	case OpDeposit:
		return "deposit"
	case OpWithdrawal:
		return "withdrawal"
	case OpDispute:
		return "dispute"
	case OpResolve:
		return "resolve"
	case OpChargeback:
		return "chargeback"
	default:
		return fmt.Sprintf("OpType(%d)", int(t))
	}
}

// Operation is one client-funds instruction from the input stream.
//
// Amount is meaningful only for OpDeposit and OpWithdrawal. The
// dispute family (dispute, resolve, chargeback) references an earlier
// deposit by Tx and carries no amount of its own.
type Operation struct {
	Type   OpType
	Client ClientID
	Tx     TxID
	Amount decimal.Decimal
}

// DisputeState tracks the lifecycle of a disputable deposit.
//
// Legal transitions:
//
//	Posted → Disputed → Resolved
//	                  → ChargedBack
//
// Resolved and ChargedBack are terminal. Transitions are validated
// centrally by the Applier; no other code mutates TxRecord.State.
type DisputeState int

const (
	// StatePosted marks a deposit that has been applied and may be disputed.
	StatePosted DisputeState = iota + 1
	// StateDisputed marks a deposit whose funds are currently held.
	StateDisputed
	// StateResolved marks a dispute settled in the client's favor.
	StateResolved
	// StateChargedBack marks a reversed deposit; the owning account is locked.
	StateChargedBack
)

// String returns a human-readable state name for logs and errors.
func (s DisputeState) String() string {
	switch s {
	case StatePosted:
		return "posted"
	case StateDisputed:
		return "disputed"
	case StateResolved:
		return "resolved"
	case StateChargedBack:
		return "charged_back"
	default:
		return fmt.Sprintf("DisputeState(%d)", int(s))
	}
}

// TxRecord retains an accepted deposit so later dispute-family
// operations can reference it. Only deposits are disputable;
// withdrawals are never recorded.
type TxRecord struct {
	Tx     TxID
	Client ClientID
	Amount decimal.Decimal
	State  DisputeState
}
