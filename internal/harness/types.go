package harness

import (
	"github.com/dmdqy/doranet/internal/meta"
)

// TraceEvent is one observed reaction, in the participant order it was
// first observed with.
type TraceEvent struct {
	Seq       int64    `json:"seq"`
	Operator  string   `json:"operator"`
	Reactants []string `json:"reactants"`
	Products  []string `json:"products"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as expected and all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains all observed reactions in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Molecules lists the registered molecule SMILES, sorted.
	Molecules []string `json:"molecules"`

	// Metadata is the final metadata per molecule SMILES, as reloaded
	// from the store.
	Metadata map[string]meta.Map `json:"metadata"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Metadata: make(map[string]meta.Map),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
