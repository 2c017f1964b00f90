package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccount_SnapshotRoundsHalfToEven(t *testing.T) {
	// Banker's rounding at the output boundary: ties round to the
	// even neighbor, so .00015 and .00025 both land on .0002, while
	// .00035 and .00045 both land on .0004.
	cases := []struct {
		in   string
		want string
	}{
		{"0.00015", "0.0002"},
		{"0.00025", "0.0002"},
		{"0.00035", "0.0004"},
		{"0.00045", "0.0004"},
		{"1.5", "1.5"},
		{"2", "2"},
	}
	for _, tc := range cases {
		acct := newAccount(1)
		acct.Available = dec(tc.in)
		snap := acct.Snapshot()
		assert.True(t, snap.Available.Equal(dec(tc.want)),
			"snapshot(%s).Available = %s, want %s", tc.in, snap.Available, tc.want)
		assert.True(t, snap.Total.Equal(dec(tc.want)),
			"snapshot(%s).Total = %s, want %s", tc.in, snap.Total, tc.want)
	}
}

func TestAccount_SnapshotIsDetached(t *testing.T) {
	acct := newAccount(3)
	acct.Available = dec("1.5")
	acct.Held = dec("0.5")

	snap := acct.Snapshot()

	// Mutating the live account must not affect the snapshot.
	acct.Available = dec("99")
	acct.Locked = true

	assert.Equal(t, ClientID(3), snap.Client)
	assert.True(t, snap.Available.Equal(dec("1.5")))
	assert.True(t, snap.Held.Equal(dec("0.5")))
	assert.True(t, snap.Total.Equal(dec("2")))
	assert.False(t, snap.Locked)
}

func TestAccount_TotalDerived(t *testing.T) {
	acct := newAccount(1)
	acct.Available = dec("-4.0")
	acct.Held = dec("5.0")
	assert.True(t, acct.Total().Equal(dec("1.0")))
}
