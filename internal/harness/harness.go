package harness

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/dmdqy/doranet/internal/engine"
	"github.com/dmdqy/doranet/internal/ir"
	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/netspec"
	"github.com/dmdqy/doranet/internal/store"
	"github.com/dmdqy/doranet/internal/testutil"
	"github.com/dmdqy/doranet/internal/unit"
)

// Harness is the test execution engine.
// It runs scenarios with the toy chemistry engine and a fixed run token.
type Harness struct {
	chem   *testutil.ToyEngine
	prop   *engine.Propagator
	store  *store.Store
	built  *netspec.Built
	names  map[unit.Identifier]string // operator UID -> network name
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile and validate the inline network
// 2. Build it into a propagator recording to the database
// 3. Execute steps, checking expected errors
// 4. Reload the database and compare it with the propagator's state
// 5. Evaluate assertions against the reloaded state
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	n, err := netspec.CompileString(scenario.Network, scenario.Name+".cue")
	if err != nil {
		return nil, fmt.Errorf("failed to compile network: %w", err)
	}
	if verrs := netspec.Validate(n); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("invalid network: %w", errors.Join(errs...))
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	prop, err := engine.New(
		engine.WithCalculators(n.Calculators()...),
		engine.WithRecorder(st),
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator(scenario.RunToken)),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create propagator: %w", err)
	}

	h := &Harness{
		chem:   testutil.NewToyEngine(),
		prop:   prop,
		store:  st,
		logger: logger,
	}
	if h.built, err = n.Build(ctx, h.chem, prop); err != nil {
		return nil, fmt.Errorf("failed to build network: %w", err)
	}
	h.names = make(map[unit.Identifier]string, len(h.built.Names))
	for _, name := range h.built.Names {
		h.names[h.built.Operators[name].UID()] = name
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	if err := h.reload(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to reload store: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeSteps applies every step in order.
//
// A step failing the way it is expected to fail is a pass; any other
// outcome is recorded as a result error and execution continues. Only
// scenario problems the engine never sees, such as an unknown operator
// name, abort the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		op, ok := h.built.Operators[step.Operator()]
		if !ok {
			return fmt.Errorf("step %d: unknown operator %q", i, step.Operator())
		}

		var err error
		if step.Fire != "" {
			err = h.fire(ctx, op, step)
		} else {
			err = h.observe(ctx, op, step)
		}

		if msg := checkStepError(step, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, step.Operator(), msg))
		}

		h.logger.Info("step completed",
			"step", i,
			"operator", step.Operator(),
			"error", err,
		)
	}

	for _, r := range h.prop.Snapshot().Reactions {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:       r.Seq,
			Operator:  h.names[r.Reaction.Operator()],
			Reactants: identifierStrings(r.Reactants),
			Products:  identifierStrings(r.Products),
		})
	}
	slices.SortFunc(result.Trace, func(a, b TraceEvent) int { return cmp.Compare(a.Seq, b.Seq) })
	return nil
}

func (h *Harness) fire(ctx context.Context, op *unit.Operator, step Step) error {
	reactants := make([]unit.Molecule, len(step.Reactants))
	for i, smiles := range step.Reactants {
		m, err := unit.NewCachedMolecule(h.chem, smiles)
		if err != nil {
			return err
		}
		reactants[i] = m
	}
	_, err := h.prop.Fire(ctx, op, reactants)
	return err
}

func (h *Harness) observe(ctx context.Context, op *unit.Operator, step Step) error {
	reactants, err := h.identifiers(step.Reactants)
	if err != nil {
		return err
	}
	products, err := h.identifiers(step.Products)
	if err != nil {
		return err
	}
	rxn, err := unit.NewReaction(unit.ReactionArgs{
		Operator:  op.UID(),
		Reactants: reactants,
		Products:  products,
	})
	if err != nil {
		return err
	}
	return h.prop.Observe(ctx, engine.Observation{
		Reaction:  rxn,
		Reactants: reactants,
		Products:  products,
	})
}

// identifiers canonicalizes SMILES without registering them.
func (h *Harness) identifiers(smiles []string) ([]unit.Identifier, error) {
	out := make([]unit.Identifier, len(smiles))
	for i, s := range smiles {
		m, err := unit.NewMinimalMolecule(h.chem, s)
		if err != nil {
			return nil, err
		}
		out[i] = m.UID()
	}
	return out, nil
}

// checkStepError compares a step outcome with its expect_error clause.
// It returns a failure message, or "" if the outcome matches.
func checkStepError(step Step, err error) string {
	switch {
	case step.ExpectError == "" && err != nil:
		return fmt.Sprintf("unexpected error: %v", err)
	case step.ExpectError == "":
		return ""
	case err == nil:
		return fmt.Sprintf("expected %s error, step succeeded", step.ExpectError)
	}

	var matched bool
	switch step.ExpectError {
	case ErrorApplication:
		matched = unit.IsApplicationError(err)
	case ErrorMissingUnit:
		matched = engine.IsMissingUnit(err)
	}
	if !matched {
		return fmt.Sprintf("expected %s error, got: %v", step.ExpectError, err)
	}
	return ""
}

// reload reads the network back from the store into result and checks
// that it agrees with the propagator.
func (h *Harness) reload(ctx context.Context, result *Result) error {
	snap := h.prop.Snapshot()

	mols, err := h.store.Molecules(ctx, h.chem)
	if err != nil {
		return err
	}
	for _, m := range mols {
		result.Molecules = append(result.Molecules, string(m.UID()))
	}
	slices.Sort(result.Molecules)

	want := make([]string, len(snap.Molecules))
	for i, m := range snap.Molecules {
		want[i] = string(m.UID())
	}
	if !slices.Equal(want, result.Molecules) {
		result.AddError(fmt.Sprintf("store: molecules %v, propagator %v", result.Molecules, want))
	}

	ops, err := h.store.Operators(ctx, h.chem)
	if err != nil {
		return err
	}
	if len(ops) != len(snap.Operators) {
		result.AddError(fmt.Sprintf("store: %d operators, propagator %d", len(ops), len(snap.Operators)))
	}

	rxns, err := h.store.Reactions(ctx)
	if err != nil {
		return err
	}
	stored := make(map[unit.Identifier]int64, len(rxns))
	for _, r := range rxns {
		stored[r.Reaction.UID()] = r.Seq
	}
	for _, r := range snap.Reactions {
		seq, ok := stored[r.Reaction.UID()]
		switch {
		case !ok:
			result.AddError(fmt.Sprintf("store: reaction %s not persisted", r.Reaction))
		case seq != r.Seq:
			result.AddError(fmt.Sprintf("store: reaction %s has seq %d, propagator %d", r.Reaction, seq, r.Seq))
		}
	}
	if len(rxns) != len(snap.Reactions) {
		result.AddError(fmt.Sprintf("store: %d reactions, propagator %d", len(rxns), len(snap.Reactions)))
	}

	md, err := h.store.Metadata(ctx)
	if err != nil {
		return err
	}
	for id, m := range md {
		result.Metadata[string(id)] = m
	}
	for id, m := range snap.Metadata {
		got := md[id]
		if len(got) != len(m) {
			result.AddError(fmt.Sprintf("store: %s has %d metadata keys, propagator %d", id, len(got), len(m)))
			continue
		}
		for k, v := range m {
			if !sameValue(got[k], v) {
				result.AddError(fmt.Sprintf("store: %s %s = %v, propagator %v", id, k, got[k], v))
			}
		}
	}
	return nil
}

// sameValue compares two metadata values by their ir form.
func sameValue(a, b any) bool {
	av, err := ir.FromGo(a)
	if err != nil {
		return false
	}
	bv, err := ir.FromGo(b)
	if err != nil {
		return false
	}
	return ir.Equal(av, bv)
}

func identifierStrings(ids []unit.Identifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// lookup returns the reloaded metadata value of smiles under key.
func (r *Result) lookup(smiles string, key meta.Key) (any, bool) {
	v, ok := r.Metadata[smiles][key]
	return v, ok
}
