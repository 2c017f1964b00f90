// Package harness provides a conformance harness for the settlement
// pipeline: YAML scenarios describing an operation sequence and the
// expected final account state, executed against the real processor
// and optionally compared against golden output files.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/paydirt/paydirt/internal/ledger"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Ops is the ordered operation sequence fed to the processor.
	Ops []OpStep `yaml:"ops"`

	// Expect describes the final state the run must produce.
	Expect Expectation `yaml:"expect"`
}

// OpStep is one operation row, in input (CSV) vocabulary.
type OpStep struct {
	Type   string `yaml:"type"`
	Client uint16 `yaml:"client"`
	Tx     uint32 `yaml:"tx"`
	Amount string `yaml:"amount,omitempty"`
}

// Expectation describes the required end state of a scenario run.
type Expectation struct {
	// Accounts lists every account that must be emitted, with its
	// final balances. The run must emit exactly these clients.
	Accounts []AccountExpect `yaml:"accounts"`

	// Rejections is the number of operations that must be rejected.
	Rejections int `yaml:"rejections,omitempty"`
}

// AccountExpect is the expected snapshot for one client.
type AccountExpect struct {
	Client    uint16 `yaml:"client"`
	Available string `yaml:"available"`
	Held      string `yaml:"held"`
	Total     string `yaml:"total"`
	Locked    bool   `yaml:"locked,omitempty"`
}

var opTypes = map[string]ledger.OpType{
	"deposit":    ledger.OpDeposit,
	"withdrawal": ledger.OpWithdrawal,
	"dispute":    ledger.OpDispute,
	"resolve":    ledger.OpResolve,
	"chargeback": ledger.OpChargeback,
}

// operation converts the step into a ledger operation.
func (s OpStep) operation() (ledger.Operation, error) {
	typ, ok := opTypes[s.Type]
	if !ok {
		return ledger.Operation{}, fmt.Errorf("unknown operation type %q", s.Type)
	}
	op := ledger.Operation{
		Type:   typ,
		Client: ledger.ClientID(s.Client),
		Tx:     ledger.TxID(s.Tx),
	}
	if s.Amount != "" {
		d, err := decimal.NewFromString(s.Amount)
		if err != nil {
			return ledger.Operation{}, fmt.Errorf("bad amount %q: %w", s.Amount, err)
		}
		op.Amount = ledger.Round(d)
	}
	return op, nil
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadScenarios reads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if len(s.Ops) == 0 {
		return fmt.Errorf("scenario has no ops")
	}
	for i, step := range s.Ops {
		if _, err := step.operation(); err != nil {
			return fmt.Errorf("op %d: %w", i+1, err)
		}
	}
	return nil
}
