package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Store is the in-memory ledger: accounts keyed by client id and the
// disputable deposit index keyed by transaction id. Both lookups are
// O(1).
//
// The store is exclusively owned by the stream worker and is not safe
// for concurrent use.
type Store struct {
	accounts   map[ClientID]*Account
	disputable map[TxID]*TxRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:   make(map[ClientID]*Account),
		disputable: make(map[TxID]*TxRecord),
	}
}

// GetOrCreate returns the account for client, creating it lazily with
// zero balances on first reference.
func (s *Store) GetOrCreate(client ClientID) *Account {
	acct, ok := s.accounts[client]
	if !ok {
		acct = newAccount(client)
		s.accounts[client] = acct
	}
	return acct
}

// RecordDeposit indexes an accepted deposit for later dispute lookup.
// The record starts in StatePosted.
func (s *Store) RecordDeposit(tx TxID, client ClientID, amount decimal.Decimal) {
	s.disputable[tx] = &TxRecord{
		Tx:     tx,
		Client: client,
		Amount: amount,
		State:  StatePosted,
	}
}

// LookupDisputable returns the deposit record for tx, or nil if tx
// was never recorded (or has been reclaimed).
func (s *Store) LookupDisputable(tx TxID) *TxRecord {
	return s.disputable[tx]
}

// ReclaimClient drops the disputable records owned by client. Called
// once the account is locked: no later operation can legally touch
// them, so the memory can be returned. Linear in the number of live
// records, and runs at most once per client.
func (s *Store) ReclaimClient(client ClientID) {
	for tx, rec := range s.disputable {
		if rec.Client == client {
			delete(s.disputable, tx)
		}
	}
}

// Clients returns every referenced client id in ascending order. Used
// for the deterministic end-of-stream sweep.
func (s *Store) Clients() []ClientID {
	ids := make([]ClientID, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of accounts ever referenced.
func (s *Store) Len() int {
	return len(s.accounts)
}
