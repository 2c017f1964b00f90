package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paydirt/paydirt/internal/ledger"
	"github.com/paydirt/paydirt/internal/stream"
)

// Result is the outcome of running one scenario.
type Result struct {
	Scenario  *Scenario
	Stats     stream.Stats
	Snapshots []ledger.Snapshot // in emission order
	Failures  []AssertionError
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// AssertionError records one failed expectation with both sides.
type AssertionError struct {
	Subject  string // what was checked, e.g. "client 1 available"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Subject, e.Expected, e.Actual)
}

// FailureSummary renders all failures, one per line, for test output.
func (r *Result) FailureSummary() string {
	msgs := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "\n")
}

type collectSink struct {
	snaps []ledger.Snapshot
}

func (s *collectSink) Emit(snap ledger.Snapshot) error {
	s.snaps = append(s.snaps, snap)
	return nil
}

// Run executes a scenario through the real pipeline: a fresh ledger,
// the single-writer processor, and an in-memory sink. The run token
// is fixed per scenario for deterministic logs.
func Run(scenario *Scenario) (*Result, error) {
	ops := make([]ledger.Operation, len(scenario.Ops))
	for i, step := range scenario.Ops {
		op, err := step.operation()
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i+1, err)
		}
		ops[i] = op
	}

	sink := &collectSink{}
	p := stream.New(stream.WithRunToken("scenario-" + scenario.Name))
	stats, err := p.Run(context.Background(), stream.NewSliceSource(ops), sink)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{
		Scenario:  scenario,
		Stats:     stats,
		Snapshots: sink.snaps,
	}
	result.evaluate()
	return result, nil
}

// evaluate checks the scenario's expectations against the emitted
// snapshots and the run stats.
func (r *Result) evaluate() {
	expect := r.Scenario.Expect

	byClient := make(map[ledger.ClientID]ledger.Snapshot, len(r.Snapshots))
	for _, snap := range r.Snapshots {
		byClient[snap.Client] = snap
	}

	if len(r.Snapshots) != len(expect.Accounts) {
		r.fail("emitted accounts",
			fmt.Sprintf("%d", len(expect.Accounts)),
			fmt.Sprintf("%d", len(r.Snapshots)))
	}

	for _, want := range expect.Accounts {
		snap, ok := byClient[ledger.ClientID(want.Client)]
		if !ok {
			r.fail(fmt.Sprintf("client %d", want.Client), "emitted", "missing")
			continue
		}
		r.checkAmount(want.Client, "available", want.Available, snap.Available)
		r.checkAmount(want.Client, "held", want.Held, snap.Held)
		r.checkAmount(want.Client, "total", want.Total, snap.Total)
		if snap.Locked != want.Locked {
			r.fail(fmt.Sprintf("client %d locked", want.Client),
				fmt.Sprintf("%t", want.Locked),
				fmt.Sprintf("%t", snap.Locked))
		}
	}

	if r.Stats.Rejected != expect.Rejections {
		r.fail("rejections",
			fmt.Sprintf("%d", expect.Rejections),
			fmt.Sprintf("%d", r.Stats.Rejected))
	}
}

func (r *Result) checkAmount(client uint16, field, want string, got decimal.Decimal) {
	wantDec, err := decimal.NewFromString(want)
	if err != nil {
		r.fail(fmt.Sprintf("client %d %s", client, field), "a valid decimal", want)
		return
	}
	if !got.Equal(wantDec) {
		r.fail(fmt.Sprintf("client %d %s", client, field), want, got.String())
	}
}

func (r *Result) fail(subject, expected, actual string) {
	r.Failures = append(r.Failures, AssertionError{
		Subject:  subject,
		Expected: expected,
		Actual:   actual,
	})
}
