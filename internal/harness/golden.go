package harness

import (
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/dmdqy/doranet/internal/ir"
	"github.com/dmdqy/doranet/internal/meta"
)

// Snapshot captures the final state of a scenario execution.
type Snapshot struct {
	ScenarioName string
	RunToken     string
	Molecules    []string
	Metadata     map[string]meta.Map
	Trace        []TraceEvent
}

// Canonical encodes the snapshot as one canonical ir value:
//
//	Tuple{
//	  Tuple{Str("scenario"), Str(name)},
//	  Tuple{Str("run_token"), Str(token)},
//	  Tuple{Str("molecules"), Tuple{Tuple{Str(smiles), Tuple{Tuple{Str(key), value}...}}...}},
//	  Tuple{Str("reactions"), Tuple{Tuple{Int(seq), Str(operator), Tuple(reactants...), Tuple(products...)}...}},
//	}
//
// Molecules and keys are sorted, reactions are in seq order.
func (s *Snapshot) Canonical() ([]byte, error) {
	mols := make(ir.Tuple, 0, len(s.Molecules))
	for _, smiles := range s.Molecules {
		m := s.Metadata[smiles]
		keys := make([]meta.Key, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		entries := make(ir.Tuple, 0, len(keys))
		for _, k := range keys {
			v, err := ir.FromGo(m[k])
			if err != nil {
				return nil, err
			}
			entries = append(entries, ir.Tuple{ir.Str(k), v})
		}
		mols = append(mols, ir.Tuple{ir.Str(smiles), entries})
	}

	rxns := make(ir.Tuple, 0, len(s.Trace))
	for _, e := range s.Trace {
		rxns = append(rxns, ir.Tuple{
			ir.Int(e.Seq),
			ir.Str(e.Operator),
			ir.Strings(e.Reactants...),
			ir.Strings(e.Products...),
		})
	}

	return ir.MarshalCanonical(ir.Tuple{
		ir.Tuple{ir.Str("scenario"), ir.Str(s.ScenarioName)},
		ir.Tuple{ir.Str("run_token"), ir.Str(s.RunToken)},
		ir.Tuple{ir.Str("molecules"), mols},
		ir.Tuple{ir.Str("reactions"), rxns},
	})
}

// RunWithGolden executes a scenario and compares the final state against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the state doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.RunToken, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName, runToken string, result *Result) error {
	t.Helper()

	if runToken == "" {
		runToken = "test-run-default"
	}
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		RunToken:     runToken,
		Molecules:    result.Molecules,
		Metadata:     result.Metadata,
		Trace:        result.Trace,
	}
	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
