package ledger

import "github.com/shopspring/decimal"

// Scale is the fixed-point scale for money: four fractional digits,
// rounded half-to-even at the input and output boundaries. Internal
// arithmetic runs at full precision.
const Scale = 4

// Round normalizes an amount to the ledger scale using banker's
// rounding (round half to even).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

// Account is the mutable per-client ledger state.
//
// Total is deliberately absent: it is derived as Available + Held via
// Total(), so the invariant total == available + held holds by
// construction after every operation.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

func newAccount(client ClientID) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total returns the derived total balance at full precision.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Snapshot is an immutable copy of an account taken at emission time.
// Snapshots are what crosses the handoff queue to the emitter; the
// emitter never sees the live account.
type Snapshot struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// Snapshot returns the emission-time view of the account. The
// snapshot is the output boundary, so amounts are rounded to the
// ledger scale here.
func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		Client:    a.Client,
		Available: Round(a.Available),
		Held:      Round(a.Held),
		Total:     Round(a.Total()),
		Locked:    a.Locked,
	}
}
