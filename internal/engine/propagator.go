package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmdqy/doranet/internal/ir"
	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/unit"
)

// Recorder persists what the propagator registers and derives.
// *store.Store implements it. Calls happen with the propagator's mutex
// held, in the order the changes are applied.
type Recorder interface {
	RecordMolecule(ctx context.Context, m unit.Molecule) error
	RecordOperator(ctx context.Context, op *unit.Operator) error
	RecordReaction(ctx context.Context, rxn *unit.Reaction, runToken string, seq int64) error
	RecordMetadata(ctx context.Context, id unit.Identifier, key meta.Key, value any) error
}

// Observation is one reaction handed to Observe.
type Observation struct {
	Reaction *unit.Reaction

	// Reactants is the order in which the operator consumed the
	// reactants, one entry per slot. Nil means the reaction's sorted
	// reactant set.
	Reactants []unit.Identifier

	// Products is the order the chemistry engine produced the products
	// in. Nil means the reaction's sorted product set.
	Products []unit.Identifier
}

type moleculeEntry struct {
	mol   unit.Molecule
	index int
}

type operatorEntry struct {
	op    *unit.Operator
	index int
}

type reactionEntry struct {
	rxn       *unit.Reaction
	reactants []unit.Identifier
	products  []unit.Identifier
	seq       int64
}

// Propagator is the single-writer metadata propagation engine.
//
// All exported methods are safe for concurrent use; they serialise on
// one mutex.
type Propagator struct {
	mu sync.Mutex

	clock         *Clock
	tokens        TokenGenerator
	logger        *slog.Logger
	metrics       *Metrics
	recorder      Recorder
	maxDeliveries int
	calcs         []meta.Calculator

	molecules map[unit.Identifier]*moleculeEntry
	operators map[unit.Identifier]*operatorEntry
	reactions map[unit.Identifier]*reactionEntry
	consumers map[unit.Identifier][]unit.Identifier
	metadata  map[unit.Identifier]meta.Map
	queue     *worklist
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *Propagator) {
		p.logger = l
	}
}

// WithMetrics sets the Prometheus collectors. See NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Propagator) {
		p.metrics = m
	}
}

// WithRecorder persists registrations, reactions and metadata changes.
func WithRecorder(r Recorder) Option {
	return func(p *Propagator) {
		p.recorder = r
	}
}

// WithMaxDeliveries sets the per-run delivery quota.
// Values below 1 keep DefaultMaxDeliveries.
func WithMaxDeliveries(n int) Option {
	return func(p *Propagator) {
		if n > 0 {
			p.maxDeliveries = n
		}
	}
}

// WithTokenGenerator sets the run token generator.
// The default is UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(p *Propagator) {
		p.tokens = g
	}
}

// WithClock sets the logical clock, e.g. NewClockAt to continue the
// numbering of a reloaded network.
func WithClock(c *Clock) Option {
	return func(p *Propagator) {
		p.clock = c
	}
}

// WithCalculators registers metadata calculators. New arranges them with
// meta.Order so writers run before readers.
func WithCalculators(calcs ...meta.Calculator) Option {
	return func(p *Propagator) {
		p.calcs = append(p.calcs, calcs...)
	}
}

// New creates a Propagator. It fails if the calculators cannot be
// ordered.
func New(opts ...Option) (*Propagator, error) {
	p := &Propagator{
		clock:         NewClock(),
		tokens:        UUIDv7Generator{},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDeliveries: DefaultMaxDeliveries,
		molecules:     make(map[unit.Identifier]*moleculeEntry),
		operators:     make(map[unit.Identifier]*operatorEntry),
		reactions:     make(map[unit.Identifier]*reactionEntry),
		consumers:     make(map[unit.Identifier][]unit.Identifier),
		metadata:      make(map[unit.Identifier]meta.Map),
		queue:         newWorklist(),
	}
	for _, opt := range opts {
		opt(p)
	}

	ordered, err := meta.Order(p.calcs)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	p.calcs = ordered
	return p, nil
}

// AddMolecule registers m. If a molecule with the same UID exists, the
// registered instance is returned and m is dropped.
func (p *Propagator) AddMolecule(ctx context.Context, m unit.Molecule) (unit.Molecule, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addMolecule(ctx, m)
}

func (p *Propagator) addMolecule(ctx context.Context, m unit.Molecule) (unit.Molecule, error) {
	if e, ok := p.molecules[m.UID()]; ok {
		return e.mol, nil
	}
	if p.recorder != nil {
		if err := p.recorder.RecordMolecule(ctx, m); err != nil {
			return nil, fmt.Errorf("engine: record molecule %s: %w", m.UID(), err)
		}
	}
	p.molecules[m.UID()] = &moleculeEntry{mol: m, index: len(p.molecules)}
	return m, nil
}

// AddOperator registers op. If an operator with the same UID exists, the
// registered instance is returned.
func (p *Propagator) AddOperator(ctx context.Context, op *unit.Operator) (*unit.Operator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addOperator(ctx, op)
}

func (p *Propagator) addOperator(ctx context.Context, op *unit.Operator) (*unit.Operator, error) {
	if e, ok := p.operators[op.UID()]; ok {
		return e.op, nil
	}
	if p.recorder != nil {
		if err := p.recorder.RecordOperator(ctx, op); err != nil {
			return nil, fmt.Errorf("engine: record operator %s: %w", op.UID(), err)
		}
	}
	p.operators[op.UID()] = &operatorEntry{op: op, index: len(p.operators)}
	return op, nil
}

func (p *Propagator) registeredOperator(id unit.Identifier) (*unit.Operator, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.operators[id]
	if !ok {
		return nil, false
	}
	return e.op, true
}

// Molecule returns the registered molecule with the given UID.
func (p *Propagator) Molecule(id unit.Identifier) (unit.Molecule, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.molecules[id]
	if !ok {
		return nil, false
	}
	return e.mol, true
}

// Metadata returns a copy of the metadata of the molecule id.
func (p *Propagator) Metadata(id unit.Identifier) meta.Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metadata[id].Clone()
}

// Seed sets a metadata value on a registered molecule, typically
// generation 0 on the seed set. When a calculator owns key, the value is
// merged with any stored one through its resolver. If the stored value
// changes, reactions consuming the molecule are queued for the next run.
func (p *Propagator) Seed(ctx context.Context, id unit.Identifier, key meta.Key, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.molecules[id]; !ok {
		return NewMissingUnitError(unit.KindMolecule, id)
	}

	merged := value
	prev, had := p.metadata[id][key]
	if calc := p.calculator(key); calc != nil && had {
		v, err := calc.Resolve(prev, value)
		if err != nil {
			return &RuntimeError{
				Code:     ErrCodeCalculatorFailed,
				Message:  "resolve seed value",
				Molecule: id,
				Key:      key,
				Err:      err,
			}
		}
		merged = v
	}

	changed, err := p.store(ctx, id, key, merged)
	if err != nil {
		return err
	}
	if changed {
		p.logger.Debug("seeded metadata", "molecule", id, "key", key, "value", merged)
	}
	return nil
}

// Observe records a reaction and runs propagation to a fixed point.
//
// The operator and every participant must already be registered. A
// reaction is recorded once; observing it again keeps the first reactant
// and product order and only resumes propagation.
func (p *Propagator) Observe(ctx context.Context, obs Observation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	token := p.tokens.Generate()
	if err := p.observe(ctx, token, obs); err != nil {
		return err
	}
	return p.drain(ctx, token)
}

// Run delivers every queued reaction, e.g. after Seed, or after a run
// stopped on its quota.
func (p *Propagator) Run(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drain(ctx, p.tokens.Generate())
}

// Fire applies op to the reactants in slot order and observes one
// reaction per distinct product tuple. Operator, reactants and products
// are registered as needed. A failing application returns the
// *unit.ApplicationError and registers nothing.
func (p *Propagator) Fire(ctx context.Context, op *unit.Operator, reactants []unit.Molecule) ([]*unit.Reaction, error) {
	if registered, ok := p.registeredOperator(op.UID()); ok {
		op = registered
	}
	outcomes, err := op.Apply(reactants)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if op, err = p.addOperator(ctx, op); err != nil {
		return nil, err
	}
	order := make([]unit.Identifier, len(reactants))
	for i, m := range reactants {
		if _, err := p.addMolecule(ctx, m); err != nil {
			return nil, err
		}
		order[i] = m.UID()
	}

	token := p.tokens.Generate()
	var out []*unit.Reaction
	seen := make(map[unit.Identifier]bool)
	for _, products := range outcomes {
		produced := make([]unit.Identifier, len(products))
		for i, m := range products {
			canon, err := p.addMolecule(ctx, m)
			if err != nil {
				return nil, err
			}
			produced[i] = canon.UID()
		}

		rxn, err := unit.NewReaction(unit.ReactionArgs{
			Operator:  op.UID(),
			Reactants: order,
			Products:  produced,
		})
		if err != nil {
			return nil, err
		}
		if seen[rxn.UID()] {
			continue
		}
		seen[rxn.UID()] = true

		obs := Observation{Reaction: rxn, Reactants: order, Products: produced}
		if err := p.observe(ctx, token, obs); err != nil {
			return nil, err
		}
		out = append(out, p.reactions[rxn.UID()].rxn)
	}

	if err := p.drain(ctx, token); err != nil {
		return out, err
	}
	return out, nil
}

func (p *Propagator) observe(ctx context.Context, token string, obs Observation) error {
	rxn := obs.Reaction
	if _, ok := p.reactions[rxn.UID()]; ok {
		return nil
	}

	if _, ok := p.operators[rxn.Operator()]; !ok {
		return NewMissingUnitError(unit.KindOperator, rxn.Operator())
	}
	reactants := obs.Reactants
	if reactants == nil {
		reactants = rxn.Reactants()
	}
	products := obs.Products
	if products == nil {
		products = rxn.Products()
	}
	if err := p.checkParticipants(token, rxn, "reactant", rxn.Reactants(), reactants); err != nil {
		return err
	}
	if err := p.checkParticipants(token, rxn, "product", rxn.Products(), products); err != nil {
		return err
	}

	seq := p.clock.Next()
	if p.recorder != nil {
		if err := p.recorder.RecordReaction(ctx, rxn, token, seq); err != nil {
			return fmt.Errorf("engine: record reaction %s: %w", rxn.UID(), err)
		}
	}

	p.reactions[rxn.UID()] = &reactionEntry{
		rxn:       rxn,
		reactants: slices.Clone(reactants),
		products:  slices.Clone(products),
		seq:       seq,
	}
	for _, id := range rxn.Reactants() {
		p.consumers[id] = append(p.consumers[id], rxn.UID())
	}
	p.queue.Push(rxn.UID())
	p.metrics.observed()
	p.metrics.setPending(p.queue.Len())

	p.logger.Debug("observed reaction",
		"run", token,
		"reaction", rxn.UID(),
		"seq", seq,
	)
	return nil
}

// checkParticipants verifies that order and the sorted set name the same
// molecules. order may repeat a molecule (A + A) but may not add or omit
// one, and every molecule must be registered.
func (p *Propagator) checkParticipants(token string, rxn *unit.Reaction, role string, set, order []unit.Identifier) error {
	invalid := func(format string, args ...any) error {
		return &RuntimeError{
			Code:     ErrCodeInvalidReaction,
			Message:  fmt.Sprintf(format, args...),
			RunToken: token,
			Reaction: rxn.UID(),
		}
	}

	for _, id := range order {
		if _, found := slices.BinarySearch(set, id); !found {
			return invalid("%s %q is not part of the reaction", role, id)
		}
	}
	for _, id := range set {
		if !slices.Contains(order, id) {
			return invalid("%s %q missing from %s order", role, id, role)
		}
		if _, ok := p.molecules[id]; !ok {
			return NewMissingUnitError(unit.KindMolecule, id)
		}
	}
	return nil
}

func (p *Propagator) drain(ctx context.Context, token string) error {
	quota := NewQuotaEnforcer(p.maxDeliveries)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, ok := p.queue.Pop()
		if !ok {
			break
		}
		if err := quota.Check(token); err != nil {
			// leave the reaction first in line for a later Run
			p.queue.PushFront(id)
			p.metrics.setPending(p.queue.Len())
			p.logger.Warn("delivery quota exceeded",
				"run", token,
				"limit", quota.Limit(),
				"pending", p.queue.Len(),
			)
			return err
		}
		if err := p.deliver(ctx, token, p.reactions[id]); err != nil {
			// a failed delivery is retried by the next Run
			p.queue.PushFront(id)
			p.metrics.setPending(p.queue.Len())
			return err
		}
		p.metrics.setPending(p.queue.Len())
	}

	if quota.Current() > 0 {
		p.logger.Info("propagation settled",
			"run", token,
			"deliveries", quota.Current(),
			"seq", p.clock.Current(),
		)
	}
	return nil
}

// deliver evaluates every calculator on every participant of one
// reaction. The packets are rebuilt per calculator so a later calculator
// sees what an earlier one accepted.
func (p *Propagator) deliver(ctx context.Context, token string, entry *reactionEntry) error {
	seq := p.clock.Next()
	p.metrics.delivered()
	p.logger.Debug("delivering reaction",
		"run", token,
		"reaction", entry.rxn.UID(),
		"seq", seq,
	)

	for _, calc := range p.calcs {
		key := calc.Key()
		explicit := p.explicit(entry)

		for _, data := range participants(explicit) {
			id := data.Item.UID()
			prev, had := p.metadata[id][key]

			fail := func(msg string, err error) error {
				return &RuntimeError{
					Code:     ErrCodeCalculatorFailed,
					Message:  msg,
					RunToken: token,
					Reaction: entry.rxn.UID(),
					Molecule: id,
					Key:      key,
					Err:      err,
				}
			}

			proposed, ok, err := calc.Propose(data, explicit, prev)
			if err != nil {
				return fail("propose", err)
			}
			if !ok {
				p.metrics.proposal(key, OutcomeNoUpdate)
				continue
			}

			merged := proposed
			if had {
				if merged, err = calc.Resolve(prev, proposed); err != nil {
					return fail("resolve", err)
				}
			}

			changed, err := p.store(ctx, id, key, merged)
			if err != nil {
				return err
			}
			if !changed {
				p.metrics.proposal(key, OutcomeRejected)
				continue
			}
			p.metrics.proposal(key, OutcomeAccepted)
			p.logger.Debug("accepted metadata",
				"run", token,
				"reaction", entry.rxn.UID(),
				"molecule", id,
				"key", key,
				"value", merged,
				"seq", seq,
			)
		}
	}
	return nil
}

// store sets metadata[id][key] = value unless it already holds an equal
// value, records the change and queues the molecule's consumers.
func (p *Propagator) store(ctx context.Context, id unit.Identifier, key meta.Key, value any) (bool, error) {
	enc, err := encodeValue(value)
	if err != nil {
		return false, &RuntimeError{
			Code:     ErrCodeInvalidMetadata,
			Message:  fmt.Sprintf("value of type %T cannot be stored", value),
			Molecule: id,
			Key:      key,
			Err:      err,
		}
	}
	if prev, had := p.metadata[id][key]; had {
		if prevEnc, err := encodeValue(prev); err == nil && bytes.Equal(prevEnc, enc) {
			return false, nil
		}
	}

	if p.recorder != nil {
		if err := p.recorder.RecordMetadata(ctx, id, key, value); err != nil {
			return false, fmt.Errorf("engine: record metadata %s/%s: %w", id, key, err)
		}
	}

	m := p.metadata[id].Clone()
	if m == nil {
		m = meta.Map{}
	}
	m[key] = value
	p.metadata[id] = m

	for _, rid := range p.consumers[id] {
		p.queue.Push(rid)
	}
	p.metrics.setPending(p.queue.Len())
	return true, nil
}

func (p *Propagator) calculator(key meta.Key) meta.Calculator {
	for _, c := range p.calcs {
		if c.Key() == key {
			return c
		}
	}
	return nil
}

func (p *Propagator) packet(id unit.Identifier) meta.DataPacket[unit.Molecule] {
	e := p.molecules[id]
	return meta.DataPacket[unit.Molecule]{
		Index: e.index,
		Item:  e.mol,
		Meta:  p.metadata[id].Clone(),
	}
}

func (p *Propagator) explicit(entry *reactionEntry) meta.ReactionExplicit {
	op := p.operators[entry.rxn.Operator()]
	out := meta.ReactionExplicit{
		Operator:  meta.DataPacket[*unit.Operator]{Index: op.index, Item: op.op},
		Reactants: make([]meta.DataPacket[unit.Molecule], len(entry.reactants)),
		Products:  make([]meta.DataPacket[unit.Molecule], len(entry.products)),
		Reaction:  entry.rxn,
	}
	for i, id := range entry.reactants {
		out.Reactants[i] = p.packet(id)
	}
	for i, id := range entry.products {
		out.Products[i] = p.packet(id)
	}
	return out
}

// participants lists each molecule of rxn once, reactants first.
func participants(rxn meta.ReactionExplicit) []meta.DataPacket[unit.Molecule] {
	seen := make(map[unit.Identifier]bool)
	var out []meta.DataPacket[unit.Molecule]
	for _, group := range [][]meta.DataPacket[unit.Molecule]{rxn.Reactants, rxn.Products} {
		for _, d := range group {
			if seen[d.Item.UID()] {
				continue
			}
			seen[d.Item.UID()] = true
			out = append(out, d)
		}
	}
	return out
}

// encodeValue is the canonical form used to compare stored values.
func encodeValue(v any) ([]byte, error) {
	iv, err := ir.FromGo(v)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(iv)
}
