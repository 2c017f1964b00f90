package csvio

import (
	"bytes"
	"context"
	"sort"
	"strings"
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

func TestWriter_RowFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Emit(ledger.Snapshot{
		Client:    1,
		Available: dec("1.5"),
		Held:      dec("0"),
		Total:     dec("1.5"),
		Locked:    false,
	}))
	require.NoError(t, w.Emit(ledger.Snapshot{
		Client:    2,
		Available: dec("0"),
		Held:      dec("0"),
		Total:     dec("0"),
		Locked:    true,
	}))
	require.NoError(t, w.Close())

	want := "client,available,held,total,locked\n" +
		"1,1.5,0,1.5,false\n" +
		"2,0,0,0,true\n"
	assert.Equal(t, want, buf.String())
}

func TestWriter_EmptyRunStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Close())
	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}

// failWriter fails after n successful writes.
type failWriter struct {
	n   int
	err error
}

func (w *failWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, w.err
	}
	w.n--
	return len(p), nil
}

func TestWriter_SurfacesUnderlyingWriteError(t *testing.T) {
	wantErr := assert.AnError
	w := NewWriter(&failWriter{n: 1, err: wantErr})

	snap := ledger.Snapshot{Client: 1, Available: dec("1"), Held: dec("0"), Total: dec("1")}
	require.NoError(t, w.Emit(snap), "header write fits the first allowance")

	err := w.Emit(ledger.Snapshot{Client: 2, Available: dec("2"), Held: dec("0"), Total: dec("2")})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

// End-to-end: CSV text in, processor pass, CSV text out.
func TestPipeline_CSVRoundTrip(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit, 1, 1, 1.0\n" +
		"deposit, 2, 2, 2.0\n" +
		"deposit, 1, 3, 2.0\n" +
		"withdrawal, 1, 4, 1.5\n" +
		"withdrawal, 2, 5, 3.0\n"

	var out bytes.Buffer
	w := NewWriter(&out)
	p := stream.New(stream.WithTokenGenerator(stream.NewFixedGenerator("run-csv")))

	stats, err := p.Run(context.Background(), NewReader(strings.NewReader(input)), w)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 1, stats.Rejected, "the overdrawn withdrawal is discarded")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "client,available,held,total,locked", lines[0])

	rows := lines[1:]
	sort.Strings(rows)
	assert.Equal(t, []string{"1,1.5,0,1.5,false", "2,2,0,2,false"}, rows)
}

func TestPipeline_DisputeLifecycle(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit, 1, 1, 5.0\n" +
		"dispute, 1, 1\n" +
		"chargeback, 1, 1\n" +
		"deposit, 1, 2, 10.0\n" + // rejected: account locked
		"deposit, 2, 3, 1.0\n"

	var out bytes.Buffer
	w := NewWriter(&out)
	p := stream.New(stream.WithTokenGenerator(stream.NewFixedGenerator("run-lock")))

	stats, err := p.Run(context.Background(), NewReader(strings.NewReader(input)), w)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 2, stats.Emitted)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	// Locked account is emitted early, so its row comes first.
	assert.Equal(t, "1,0,0,0,true", lines[1])
	assert.Equal(t, "2,1,0,1,false", lines[2])
}
