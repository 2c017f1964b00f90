package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetOrCreate_LazyZeroAccount(t *testing.T) {
	st := NewStore()

	acct := st.GetOrCreate(7)
	require.NotNil(t, acct)
	assert.Equal(t, ClientID(7), acct.Client)
	assert.True(t, acct.Available.IsZero())
	assert.True(t, acct.Held.IsZero())
	assert.False(t, acct.Locked)

	// Same pointer on second lookup: one mutable account per client.
	assert.Same(t, acct, st.GetOrCreate(7))
	assert.Equal(t, 1, st.Len())
}

func TestStore_RecordAndLookupDisputable(t *testing.T) {
	st := NewStore()
	st.RecordDeposit(42, 1, dec("9.99"))

	rec := st.LookupDisputable(42)
	require.NotNil(t, rec)
	assert.Equal(t, TxID(42), rec.Tx)
	assert.Equal(t, ClientID(1), rec.Client)
	assert.Equal(t, StatePosted, rec.State)
	assert.True(t, rec.Amount.Equal(dec("9.99")))

	assert.Nil(t, st.LookupDisputable(43))
}

func TestStore_ReclaimClient(t *testing.T) {
	st := NewStore()
	st.RecordDeposit(1, 1, dec("1"))
	st.RecordDeposit(2, 1, dec("2"))
	st.RecordDeposit(3, 2, dec("3"))

	st.ReclaimClient(1)

	assert.Nil(t, st.LookupDisputable(1))
	assert.Nil(t, st.LookupDisputable(2))
	require.NotNil(t, st.LookupDisputable(3), "other clients' records survive reclamation")
}

func TestStore_ClientsAscending(t *testing.T) {
	st := NewStore()
	for _, id := range []ClientID{9, 1, 500, 3} {
		st.GetOrCreate(id)
	}
	assert.Equal(t, []ClientID{1, 3, 9, 500}, st.Clients())
}
