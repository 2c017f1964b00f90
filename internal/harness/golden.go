package harness

import (
	"bytes"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/paydirt/paydirt/internal/csvio"
	"github.com/paydirt/paydirt/internal/ledger"
)

// CanonicalCSV renders snapshots as the output CSV with rows sorted
// by client id. Emission order is deterministic for a given scenario
// but the golden files canonicalize anyway, so a reordering of the
// final sweep never shows up as a spurious diff.
func CanonicalCSV(snaps []ledger.Snapshot) ([]byte, error) {
	sorted := make([]ledger.Snapshot, len(snaps))
	copy(sorted, snaps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Client < sorted[j].Client })

	var buf bytes.Buffer
	w := csvio.NewWriter(&buf)
	for _, snap := range sorted {
		if err := w.Emit(snap); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario, requires every expectation to
// hold, and compares the canonical output CSV against the golden file
// testdata/golden/<scenario.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}
	if !result.Passed() {
		t.Fatalf("scenario %s expectations failed:\n%s", scenario.Name, result.FailureSummary())
	}

	output, err := CanonicalCSV(result.Snapshots)
	if err != nil {
		t.Fatalf("scenario %s: render output: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, output)

	return result
}
