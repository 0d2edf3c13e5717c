package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdqy/doranet/internal/engine"
	"github.com/dmdqy/doranet/internal/ir"
	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/testutil"
	"github.com/dmdqy/doranet/internal/unit"
)

var _ engine.Recorder = (*Store)(nil)

func mustMol(t *testing.T, eng *testutil.ToyEngine, smiles string) unit.Molecule {
	t.Helper()
	m, err := unit.NewMinimalMolecule(eng, smiles)
	require.NoError(t, err)
	return m
}

func mustOp(t *testing.T, eng *testutil.ToyEngine, smarts string, opts ...unit.OperatorOption) *unit.Operator {
	t.Helper()
	op, err := unit.NewOperator(eng, smarts, opts...)
	require.NoError(t, err)
	return op
}

func mustRxn(t *testing.T, op unit.Identifier, reactants, products []unit.Identifier) *unit.Reaction {
	t.Helper()
	r, err := unit.NewReaction(unit.ReactionArgs{Operator: op, Reactants: reactants, Products: products})
	require.NoError(t, err)
	return r
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestRecordAndReadUnits(t *testing.T) {
	s := createTestStore(t)
	eng := testutil.NewToyEngine()
	ctx := context.Background()

	// recorded out of order; read back in UID order
	for _, smiles := range []string{"C", "A", "B"} {
		require.NoError(t, s.RecordMolecule(ctx, mustMol(t, eng, smiles)))
	}
	require.NoError(t, s.RecordOperator(ctx, mustOp(t, eng, "A>>C", unit.WithKekulize(true))))
	require.NoError(t, s.RecordOperator(ctx, mustOp(t, eng, "A>>B")))

	mols, err := s.Molecules(ctx, eng)
	require.NoError(t, err)
	assert.Equal(t, []unit.Identifier{"A", "B", "C"}, unit.UIDs(mols))
	for _, m := range mols {
		_, cached := m.(*unit.CachedMolecule)
		assert.True(t, cached)
	}

	ops, err := s.Operators(ctx, eng)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, unit.Identifier("A>>B"), ops[0].UID())
	assert.False(t, ops[0].Kekulize())
	assert.Equal(t, unit.Identifier("A>>C"), ops[1].UID())
	assert.True(t, ops[1].Kekulize(), "kekulize flag survives the blob")

	ops, err = s.Operators(ctx, eng, unit.WithKekulize(false))
	require.NoError(t, err)
	assert.False(t, ops[1].Kekulize(), "option overrides the stored flag")
}

func TestRecord_Idempotent(t *testing.T) {
	s := createTestStore(t)
	eng := testutil.NewToyEngine()
	ctx := context.Background()

	op := mustOp(t, eng, "A>>B")
	rxn := mustRxn(t, op.UID(), []unit.Identifier{"A"}, []unit.Identifier{"B"})
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordMolecule(ctx, mustMol(t, eng, "A")))
		require.NoError(t, s.RecordOperator(ctx, op))
		require.NoError(t, s.RecordReaction(ctx, rxn, "run-1", int64(i+1)))
	}

	assert.Equal(t, 1, count(t, s, "molecules"))
	assert.Equal(t, 1, count(t, s, "operators"))
	assert.Equal(t, 1, count(t, s, "reactions"))

	got, err := s.Reactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Seq, "first record wins")
}

func TestRecordReaction_NeedsOperator(t *testing.T) {
	s := createTestStore(t)
	rxn := mustRxn(t, "Q>>R", []unit.Identifier{"A"}, []unit.Identifier{"B"})

	err := s.RecordReaction(context.Background(), rxn, "run-1", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREIGN KEY")
}

func TestReactions(t *testing.T) {
	s := createTestStore(t)
	eng := testutil.NewToyEngine()
	ctx := context.Background()

	op := mustOp(t, eng, "A>>B")
	require.NoError(t, s.RecordOperator(ctx, op))

	r1 := mustRxn(t, op.UID(), []unit.Identifier{"A"}, []unit.Identifier{"B"})
	r2 := mustRxn(t, op.UID(), []unit.Identifier{"A", "Z"}, []unit.Identifier{"B"})
	r3 := mustRxn(t, op.UID(), []unit.Identifier{"Q"}, []unit.Identifier{"B"})
	require.NoError(t, s.RecordReaction(ctx, r2, "run-1", 5))
	require.NoError(t, s.RecordReaction(ctx, r1, "run-1", 2))
	require.NoError(t, s.RecordReaction(ctx, r3, "run-2", 9))

	all, err := s.Reactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Reaction.UID(), all[i].Reaction.UID(), "UID order")
	}

	byRun, err := s.ReactionsByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, byRun, 2)
	assert.True(t, unit.Equal(r1, byRun[0].Reaction))
	assert.True(t, unit.Equal(r2, byRun[1].Reaction))
	assert.Equal(t, int64(2), byRun[0].Seq)
	assert.Equal(t, "run-1", byRun[1].RunToken)

	none, err := s.ReactionsByRun(ctx, "run-404")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), seq)
}

func TestLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)
	seq, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestMetadata(t *testing.T) {
	s := createTestStore(t)
	eng := testutil.NewToyEngine()
	ctx := context.Background()

	require.NoError(t, s.RecordMolecule(ctx, mustMol(t, eng, "A")))
	require.NoError(t, s.RecordMolecule(ctx, mustMol(t, eng, "B")))

	require.NoError(t, s.RecordMetadata(ctx, "A", "generation", 0))
	require.NoError(t, s.RecordMetadata(ctx, "B", "generation", 4))
	require.NoError(t, s.RecordMetadata(ctx, "B", "generation", 1))
	require.NoError(t, s.RecordMetadata(ctx, "B", "tags", []any{"x", true, []byte{1}}))

	got, err := s.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[unit.Identifier]meta.Map{
		"A": {"generation": 0},
		"B": {"generation": 1, "tags": []any{"x", true, []byte{1}}},
	}, got)

	t.Run("unknown molecule", func(t *testing.T) {
		err := s.RecordMetadata(ctx, "Q", "generation", 0)
		require.Error(t, err)
	})

	t.Run("unstorable value", func(t *testing.T) {
		err := s.RecordMetadata(ctx, "A", "weight", 1.5)
		require.Error(t, err)
		assert.True(t, ir.IsForbiddenType(err))
		assert.Contains(t, err.Error(), `type "float64" at $ is forbidden`)
	})
}

// TestRead_UntrustedRows plants rows that a well-behaved writer never
// produces and expects the read path to refuse them.
func TestRead_UntrustedRows(t *testing.T) {
	eng := testutil.NewToyEngine()
	ctx := context.Background()

	t.Run("forbidden operator payload", func(t *testing.T) {
		s := createTestStore(t)
		_, err := s.db.Exec(`INSERT INTO operators (uid, kekulize, blob) VALUES (?, 0, ?)`,
			"evil", []byte(`{"t":[{"builtins.eval":{"s":"x"}},{"b":true}]}`))
		require.NoError(t, err)

		_, err = s.Operators(ctx, eng)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCorrupt))
		assert.True(t, errors.Is(err, ir.ErrForbiddenType))

		var ce *CorruptError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "operators", ce.Table)
		assert.Equal(t, "evil", ce.UID)
	})

	t.Run("forbidden metadata value", func(t *testing.T) {
		s := createTestStore(t)
		require.NoError(t, s.RecordMolecule(ctx, mustMol(t, eng, "A")))
		_, err := s.db.Exec(`INSERT INTO metadata (uid, key, value) VALUES ('A', 'generation', ?)`,
			`{"pickle":"Y29zCnN5c3RlbQ=="}`)
		require.NoError(t, err)

		_, err = s.Metadata(ctx)
		assert.True(t, errors.Is(err, ErrCorrupt))
		assert.True(t, ir.IsForbiddenType(err))
	})

	t.Run("malformed reaction blob", func(t *testing.T) {
		s := createTestStore(t)
		require.NoError(t, s.RecordOperator(ctx, mustOp(t, eng, "A>>B")))
		_, err := s.db.Exec(`INSERT INTO reactions (uid, digest, operator, blob, run_token, seq) VALUES ('r', 'd', 'A>>B', ?, 'run', 1)`,
			[]byte(`{"t":[{"s":"A>>B"}]}`))
		require.NoError(t, err)

		_, err = s.Reactions(ctx)
		assert.True(t, errors.Is(err, ErrCorrupt))
		assert.True(t, errors.Is(err, unit.ErrMalformedConstruction))
	})

	t.Run("molecule blob under the wrong key", func(t *testing.T) {
		s := createTestStore(t)
		blob, err := mustMol(t, eng, "B").Blob()
		require.NoError(t, err)
		_, err = s.db.Exec(`INSERT INTO molecules (uid, smiles, blob) VALUES ('A', 'A', ?)`, blob)
		require.NoError(t, err)

		_, err = s.Molecules(ctx, eng)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCorrupt))
		assert.Contains(t, err.Error(), `blob decodes to "B"`)
	})

	t.Run("reaction digest mismatch", func(t *testing.T) {
		s := createTestStore(t)
		op := mustOp(t, eng, "A>>B")
		require.NoError(t, s.RecordOperator(ctx, op))
		rxn := mustRxn(t, op.UID(), []unit.Identifier{"A"}, []unit.Identifier{"B"})
		blob, err := rxn.Blob()
		require.NoError(t, err)
		_, err = s.db.Exec(`INSERT INTO reactions (uid, digest, operator, blob, run_token, seq) VALUES (?, 'forged', 'A>>B', ?, 'run', 1)`,
			string(rxn.UID()), blob)
		require.NoError(t, err)

		_, err = s.Reactions(ctx)
		assert.True(t, errors.Is(err, ErrCorrupt))
	})
}

// TestStore_AsRecorder persists a propagation and reads back the same
// network.
func TestStore_AsRecorder(t *testing.T) {
	s := createTestStore(t)
	eng := testutil.NewToyEngine()
	ctx := context.Background()
	const gen meta.Key = "generation"

	p, err := engine.New(
		engine.WithRecorder(s),
		engine.WithCalculators(meta.Erase[int](meta.GenerationCalculator{GenKey: gen})),
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator("run-store")),
	)
	require.NoError(t, err)

	a, err := p.AddMolecule(ctx, mustMol(t, eng, "A"))
	require.NoError(t, err)
	require.NoError(t, p.Seed(ctx, a.UID(), gen, 0))

	_, err = p.Fire(ctx, mustOp(t, eng, "A>>B"), []unit.Molecule{a})
	require.NoError(t, err)
	b, _ := p.Molecule("B")
	_, err = p.Fire(ctx, mustOp(t, eng, "B>>C"), []unit.Molecule{b})
	require.NoError(t, err)

	mols, err := s.Molecules(ctx, eng)
	require.NoError(t, err)
	assert.Equal(t, []unit.Identifier{"A", "B", "C"}, unit.UIDs(mols))

	md, err := s.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.Snapshot().Metadata, md)

	rxns, err := s.ReactionsByRun(ctx, "run-store")
	require.NoError(t, err)
	require.Len(t, rxns, 2)
	assert.True(t, rxns[0].Reaction.HasProduct("B"))
	assert.True(t, rxns[1].Reaction.HasProduct("C"))
}
