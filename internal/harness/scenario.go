package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a propagation test scenario.
// A scenario builds a network, drives it through a sequence of reaction
// deliveries and asserts on the resulting metadata and trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Network is the CUE network definition, inline.
	Network string `yaml:"network"`

	// Steps are applied in order. Each step fires or observes one
	// operator of the network.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and trace.
	// Supported types: metadata, no_metadata, molecules, reaction_count,
	// trace_order
	Assertions []Assertion `yaml:"assertions"`

	// RunToken is an optional fixed run token for deterministic tests.
	// If empty, defaults to "test-run-default" for deterministic golden file comparison.
	RunToken string `yaml:"run_token,omitempty"`
}

// Step is one reaction delivery.
//
// A fire step applies the named operator to Reactants in slot order and
// observes every product tuple. An observe step hands the engine an
// already known reaction: the named operator, Reactants and Products.
// Observed molecules are not registered by the step; they must have been
// seeded or produced earlier.
type Step struct {
	// Fire names the operator to apply.
	Fire string `yaml:"fire,omitempty"`

	// Observe names the operator of an observed reaction.
	Observe string `yaml:"observe,omitempty"`

	// Reactants are SMILES, in slot order.
	Reactants []string `yaml:"reactants"`

	// Products are SMILES, for observe steps only.
	Products []string `yaml:"products,omitempty"`

	// ExpectError is the error class the step must fail with:
	// application or missing_unit.
	// If empty, the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Operator returns the operator name the step refers to.
func (s Step) Operator() string {
	if s.Fire != "" {
		return s.Fire
	}
	return s.Observe
}

// Step error classes.
const (
	ErrorApplication = "application"
	ErrorMissingUnit = "missing_unit"
)

// Assertion validates final state or trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "metadata": molecule's key holds value
	// - "no_metadata": molecule has no value for key
	// - "molecules": the registered molecules are exactly Molecules
	// - "reaction_count": exactly Count reactions were observed
	// - "trace_order": reactions of Operators were first observed in this order
	Type string `yaml:"type"`

	// Molecule is a SMILES (used by metadata, no_metadata).
	Molecule string `yaml:"molecule,omitempty"`

	// Key is the metadata key (used by metadata, no_metadata).
	Key string `yaml:"key,omitempty"`

	// Value is the expected metadata value (used by metadata).
	Value any `yaml:"value,omitempty"`

	// Molecules is the expected molecule set (used by molecules).
	Molecules []string `yaml:"molecules,omitempty"`

	// Count is the expected number of reactions (used by reaction_count).
	Count int `yaml:"count,omitempty"`

	// Operators is the expected operator order (used by trace_order).
	Operators []string `yaml:"operators,omitempty"`
}

// Assertion type constants.
const (
	AssertMetadata      = "metadata"
	AssertNoMetadata    = "no_metadata"
	AssertMolecules     = "molecules"
	AssertReactionCount = "reaction_count"
	AssertTraceOrder    = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Network == "" {
		return fmt.Errorf("network is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	switch {
	case s.Fire == "" && s.Observe == "":
		return fmt.Errorf("steps[%d]: one of fire or observe is required", index)
	case s.Fire != "" && s.Observe != "":
		return fmt.Errorf("steps[%d]: fire and observe are mutually exclusive", index)
	}

	if len(s.Reactants) == 0 {
		return fmt.Errorf("steps[%d]: reactants is required", index)
	}
	if s.Fire != "" && len(s.Products) > 0 {
		return fmt.Errorf("steps[%d]: products are computed by fire steps", index)
	}
	if s.Observe != "" && len(s.Products) == 0 {
		return fmt.Errorf("steps[%d]: products is required for observe", index)
	}

	switch s.ExpectError {
	case "", ErrorApplication, ErrorMissingUnit:
	default:
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, s.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMetadata:
		if a.Molecule == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: molecule and key are required for metadata", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for metadata (use no_metadata for absent keys)", index)
		}
	case AssertNoMetadata:
		if a.Molecule == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: molecule and key are required for no_metadata", index)
		}
	case AssertMolecules:
		if len(a.Molecules) == 0 {
			return fmt.Errorf("assertions[%d]: molecules list is required for molecules", index)
		}
	case AssertReactionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for reaction_count", index)
		}
	case AssertTraceOrder:
		if len(a.Operators) == 0 {
			return fmt.Errorf("assertions[%d]: operators list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
