package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydirt/paydirt/internal/ledger"
	"github.com/paydirt/paydirt/internal/stream"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestRecorder_JournalRoundTrip(t *testing.T) {
	st := openTestStore(t)
	rec := st.NewRecorder("run-1")

	snaps := []ledger.Snapshot{
		{Client: 2, Available: dec("0"), Held: dec("0"), Total: dec("0"), Locked: true},
		{Client: 1, Available: dec("1.5"), Held: dec("0"), Total: dec("1.5")},
	}
	for _, snap := range snaps {
		require.NoError(t, rec.Emit(snap))
	}

	got, err := st.Emissions(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Emission order is preserved via seq.
	assert.Equal(t, 1, got[0].Seq)
	assert.Equal(t, ledger.ClientID(2), got[0].Snapshot.Client)
	assert.True(t, got[0].Snapshot.Locked)
	assert.True(t, got[0].Snapshot.Total.Equal(dec("0")))

	assert.Equal(t, 2, got[1].Seq)
	assert.Equal(t, ledger.ClientID(1), got[1].Snapshot.Client)
	assert.True(t, got[1].Snapshot.Available.Equal(dec("1.5")))
	assert.False(t, got[1].Snapshot.Locked)
}

func TestRecorder_DuplicateClientInRunFails(t *testing.T) {
	st := openTestStore(t)
	rec := st.NewRecorder("run-1")

	snap := ledger.Snapshot{Client: 1, Available: dec("1"), Held: dec("0"), Total: dec("1")}
	require.NoError(t, rec.Emit(snap))

	err := rec.Emit(snap)
	require.Error(t, err, "a second emission for the same client must violate the unique constraint")
}

func TestRecorder_SeparateRunsDoNotCollide(t *testing.T) {
	st := openTestStore(t)
	snap := ledger.Snapshot{Client: 1, Available: dec("1"), Held: dec("0"), Total: dec("1")}

	require.NoError(t, st.NewRecorder("run-a").Emit(snap))
	require.NoError(t, st.NewRecorder("run-b").Emit(snap))

	gotA, err := st.Emissions(context.Background(), "run-a")
	require.NoError(t, err)
	gotB, err := st.Emissions(context.Background(), "run-b")
	require.NoError(t, err)
	assert.Len(t, gotA, 1)
	assert.Len(t, gotB, 1)
}

func TestRecorder_WiredThroughProcessor(t *testing.T) {
	st := openTestStore(t)

	ops := []ledger.Operation{
		{Type: ledger.OpDeposit, Client: 1, Tx: 1, Amount: dec("5.0")},
		{Type: ledger.OpDispute, Client: 1, Tx: 1},
		{Type: ledger.OpChargeback, Client: 1, Tx: 1},
		{Type: ledger.OpDeposit, Client: 2, Tx: 2, Amount: dec("1.0")},
	}
	p := stream.New(stream.WithTokenGenerator(stream.NewFixedGenerator("run-audit")))
	_, err := p.Run(context.Background(), stream.NewSliceSource(ops), st.NewRecorder("run-audit"))
	require.NoError(t, err)

	got, err := st.Emissions(context.Background(), "run-audit")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ledger.ClientID(1), got[0].Snapshot.Client, "locked account journaled first")
	assert.True(t, got[0].Snapshot.Locked)
	assert.Equal(t, ledger.ClientID(2), got[1].Snapshot.Client)
}
