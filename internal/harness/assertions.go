package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dmdqy/doranet/internal/meta"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %v\n", event.Seq, event.Operator, event.Reactants, event.Products)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns
// the failure messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertMetadata:
		return assertMetadata(result, a)
	case AssertNoMetadata:
		return assertNoMetadata(result, a)
	case AssertMolecules:
		return assertMolecules(result, a)
	case AssertReactionCount:
		return assertReactionCount(result, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertMetadata checks that a molecule holds the expected value under key.
func assertMetadata(result *Result, a Assertion) error {
	want, err := convertValue(a.Value)
	if err != nil {
		return fmt.Errorf("metadata assertion on %s.%s: %w", a.Molecule, a.Key, err)
	}

	got, ok := result.lookup(a.Molecule, meta.Key(a.Key))
	if !ok {
		return &AssertionError{
			Type:     AssertMetadata,
			Expected: fmt.Sprintf("%s.%s = %v", a.Molecule, a.Key, want),
			Actual:   "no value",
			Trace:    result.Trace,
		}
	}
	if !sameValue(got, want) {
		return &AssertionError{
			Type:     AssertMetadata,
			Expected: fmt.Sprintf("%s.%s = %v (type %T)", a.Molecule, a.Key, want, want),
			Actual:   fmt.Sprintf("%s.%s = %v (type %T)", a.Molecule, a.Key, got, got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertNoMetadata checks that a molecule holds no value under key.
func assertNoMetadata(result *Result, a Assertion) error {
	if got, ok := result.lookup(a.Molecule, meta.Key(a.Key)); ok {
		return &AssertionError{
			Type:     AssertNoMetadata,
			Expected: fmt.Sprintf("%s.%s unset", a.Molecule, a.Key),
			Actual:   fmt.Sprintf("%s.%s = %v", a.Molecule, a.Key, got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertMolecules checks the registered molecule set. Order is ignored.
func assertMolecules(result *Result, a Assertion) error {
	want := slices.Clone(a.Molecules)
	slices.Sort(want)
	want = slices.Compact(want)

	if !slices.Equal(want, result.Molecules) {
		return &AssertionError{
			Type:     AssertMolecules,
			Expected: fmt.Sprintf("molecules %v", want),
			Actual:   fmt.Sprintf("molecules %v", result.Molecules),
		}
	}
	return nil
}

// assertReactionCount checks how many distinct reactions were observed.
func assertReactionCount(result *Result, a Assertion) error {
	if len(result.Trace) != a.Count {
		return &AssertionError{
			Type:     AssertReactionCount,
			Expected: fmt.Sprintf("%d reactions", a.Count),
			Actual:   fmt.Sprintf("%d reactions", len(result.Trace)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceOrder checks if operators were first used in the specified order.
// Operators don't need to be consecutive (intervening reactions are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	// Step 1: Find first position of each expected operator
	positions := make(map[string]int)
	for i, event := range trace {
		if positions[event.Operator] == 0 {
			positions[event.Operator] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all operators found
	for _, op := range a.Operators {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all operators present: %v", a.Operators),
				Actual:   fmt.Sprintf("missing operator: %s", op),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(a.Operators); i++ {
		prev := a.Operators[i-1]
		curr := a.Operators[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("operators in order: %v", a.Operators),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// convertValue converts a YAML-parsed value to a storable metadata value.
// Returns an error for null values since they are forbidden in canonical
// encoding.
func convertValue(val any) (any, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are forbidden in metadata")
	}

	switch v := val.(type) {
	case string, int, int64, bool, []byte:
		return v, nil
	case float64:
		// Integral floats come from YAML like 1e3
		if v == float64(int64(v)) {
			return int(v), nil
		}
		return nil, fmt.Errorf("floats are forbidden in metadata: %v", v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			conv, err := convertValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
