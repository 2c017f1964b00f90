package ledger

import "fmt"

// Outcome is the result of applying one operation.
type Outcome struct {
	// Reject is non-nil when the operation was not applied.
	Reject *RejectionError

	// LockedNow is true when this operation locked the account (a
	// successful chargeback). The account is terminal and eligible
	// for early emission.
	LockedNow bool
}

// Applied reports whether the operation mutated the ledger.
func (o Outcome) Applied() bool {
	return o.Reject == nil
}

// Applier executes the per-operation state machine against a store.
//
// Apply is all-or-nothing: every rejection path returns before any
// balance or dispute-state mutation, so a rejected operation leaves
// the store exactly as it found it.
//
// Not safe for concurrent use; the store has a single writer.
type Applier struct {
	store *Store
}

// NewApplier creates an applier over store.
func NewApplier(store *Store) *Applier {
	return &Applier{store: store}
}

// Apply executes one operation. Rejections are reported in the
// returned Outcome, never as a process-level failure: all error
// conditions here are local and the stream continues.
func (ap *Applier) Apply(op Operation) Outcome {
	acct := ap.store.GetOrCreate(op.Client)

	// Locked is terminal and checked first: it wins over every other
	// rejection reason.
	if acct.Locked {
		return rejected(op, RejectAccountLocked, "account is locked")
	}

	switch op.Type {
	case OpDeposit:
		return ap.deposit(acct, op)
	case OpWithdrawal:
		return ap.withdraw(acct, op)
	case OpDispute:
		return ap.dispute(op)
	case OpResolve:
		return ap.resolve(op)
	case OpChargeback:
		return ap.chargeback(op)
	default:
		return rejected(op, RejectInvalidState, fmt.Sprintf("unknown operation type %d", int(op.Type)))
	}
}

func (ap *Applier) deposit(acct *Account, op Operation) Outcome {
	if !op.Amount.IsPositive() {
		return rejected(op, RejectNonPositiveAmount, "deposit amount must be positive")
	}
	if ap.store.LookupDisputable(op.Tx) != nil {
		return rejected(op, RejectDuplicateTx, "transaction id already exists")
	}

	acct.Available = acct.Available.Add(op.Amount)
	ap.store.RecordDeposit(op.Tx, op.Client, op.Amount)
	return Outcome{}
}

func (ap *Applier) withdraw(acct *Account, op Operation) Outcome {
	if !op.Amount.IsPositive() {
		return rejected(op, RejectNonPositiveAmount, "withdrawal amount must be positive")
	}
	if acct.Available.LessThan(op.Amount) {
		return rejected(op, RejectInsufficientFunds, "withdrawal exceeds available funds")
	}

	acct.Available = acct.Available.Sub(op.Amount)
	return Outcome{}
}

func (ap *Applier) dispute(op Operation) Outcome {
	rec, out := ap.referenced(op, StatePosted)
	if rec == nil {
		return out
	}

	acct := ap.store.GetOrCreate(rec.Client)
	// Available may legitimately go negative here if the deposited
	// funds were already withdrawn. Only withdrawals guard against a
	// negative available balance.
	acct.Available = acct.Available.Sub(rec.Amount)
	acct.Held = acct.Held.Add(rec.Amount)
	rec.State = StateDisputed
	return Outcome{}
}

func (ap *Applier) resolve(op Operation) Outcome {
	rec, out := ap.referenced(op, StateDisputed)
	if rec == nil {
		return out
	}

	acct := ap.store.GetOrCreate(rec.Client)
	acct.Held = acct.Held.Sub(rec.Amount)
	acct.Available = acct.Available.Add(rec.Amount)
	rec.State = StateResolved
	return Outcome{}
}

func (ap *Applier) chargeback(op Operation) Outcome {
	rec, out := ap.referenced(op, StateDisputed)
	if rec == nil {
		return out
	}

	acct := ap.store.GetOrCreate(rec.Client)
	acct.Held = acct.Held.Sub(rec.Amount)
	rec.State = StateChargedBack
	acct.Locked = true
	return Outcome{LockedNow: true}
}

// referenced resolves the deposit a dispute-family operation points
// at and validates ownership and the required dispute state. Returns
// (record, _) on success or (nil, rejection outcome) on failure.
func (ap *Applier) referenced(op Operation, want DisputeState) (*TxRecord, Outcome) {
	rec := ap.store.LookupDisputable(op.Tx)
	if rec == nil {
		return nil, rejected(op, RejectUnknownTx, "no disputable transaction with this id")
	}
	if rec.Client != op.Client {
		return nil, rejected(op, RejectClientMismatch, "transaction is owned by a different client")
	}
	if rec.State != want {
		return nil, rejected(op, RejectInvalidState,
			fmt.Sprintf("transaction is %s, %s requires %s", rec.State, op.Type, want))
	}
	return rec, Outcome{}
}

func rejected(op Operation, code RejectionCode, msg string) Outcome {
	return Outcome{Reject: &RejectionError{
		Code:    code,
		Op:      op.Type,
		Client:  op.Client,
		Tx:      op.Tx,
		Message: msg,
	}}
}
