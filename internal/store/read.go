package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmdqy/doranet/internal/chem"
	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/unit"
)

// ErrCorrupt is matched by every CorruptError.
var ErrCorrupt = errors.New("store: corrupt record")

// CorruptError reports a stored row that does not decode to the unit its
// key names.
type CorruptError struct {
	Table string
	UID   string
	Err   error
}

// Error implements the error interface.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("store: corrupt %s row %q: %v", e.Table, e.UID, e.Err)
}

// Is makes errors.Is(err, ErrCorrupt) match.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// Unwrap returns the decoding error.
func (e *CorruptError) Unwrap() error {
	return e.Err
}

// StoredReaction is a reaction row.
type StoredReaction struct {
	Reaction *unit.Reaction
	RunToken string
	Seq      int64
}

// Molecules returns every stored molecule, rebuilt from its blob, in UID
// order.
func (s *Store) Molecules(ctx context.Context, codec chem.MolCodec) ([]unit.Molecule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, blob FROM molecules
		ORDER BY uid COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query molecules: %w", err)
	}
	defer rows.Close()

	mols := []unit.Molecule{}
	for rows.Next() {
		var (
			uid  string
			blob []byte
		)
		if err := rows.Scan(&uid, &blob); err != nil {
			return nil, fmt.Errorf("scan molecule: %w", err)
		}
		m, err := unit.NewCachedMolecule(codec, blob)
		if err != nil {
			return nil, &CorruptError{Table: "molecules", UID: uid, Err: err}
		}
		if string(m.UID()) != uid {
			return nil, &CorruptError{Table: "molecules", UID: uid, Err: fmt.Errorf("blob decodes to %q", m.UID())}
		}
		mols = append(mols, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate molecules: %w", err)
	}
	return mols, nil
}

// Operators returns every stored operator, rebuilt from its blob, in UID
// order. opts apply to every operator; WithKekulize overrides the stored
// flag.
func (s *Store) Operators(ctx context.Context, eng chem.Engine, opts ...unit.OperatorOption) ([]*unit.Operator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, blob FROM operators
		ORDER BY uid COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query operators: %w", err)
	}
	defer rows.Close()

	ops := []*unit.Operator{}
	for rows.Next() {
		var (
			uid  string
			blob []byte
		)
		if err := rows.Scan(&uid, &blob); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		op, err := unit.NewOperator(eng, blob, opts...)
		if err != nil {
			return nil, &CorruptError{Table: "operators", UID: uid, Err: err}
		}
		if string(op.UID()) != uid {
			return nil, &CorruptError{Table: "operators", UID: uid, Err: fmt.Errorf("blob decodes to %q", op.UID())}
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operators: %w", err)
	}
	return ops, nil
}

// Reactions returns every stored reaction in UID order.
func (s *Store) Reactions(ctx context.Context) ([]StoredReaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, digest, blob, run_token, seq FROM reactions
		ORDER BY uid COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()
	return scanReactions(rows)
}

// ReactionsByRun returns the reactions first observed by runToken, in
// seq order.
func (s *Store) ReactionsByRun(ctx context.Context, runToken string) ([]StoredReaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, digest, blob, run_token, seq FROM reactions
		WHERE run_token = ?
		ORDER BY seq ASC, uid COLLATE BINARY ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()
	return scanReactions(rows)
}

func scanReactions(rows *sql.Rows) ([]StoredReaction, error) {
	out := []StoredReaction{}
	for rows.Next() {
		var (
			uid, digest string
			blob        []byte
			sr          StoredReaction
		)
		if err := rows.Scan(&uid, &digest, &blob, &sr.RunToken, &sr.Seq); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		rxn, err := unit.NewReaction(unit.ReactionArgs{Blob: blob})
		if err != nil {
			return nil, &CorruptError{Table: "reactions", UID: digest, Err: err}
		}
		if string(rxn.UID()) != uid || rxn.Digest() != digest {
			return nil, &CorruptError{Table: "reactions", UID: digest, Err: fmt.Errorf("blob decodes to reaction %s", rxn.Digest())}
		}
		sr.Reaction = rxn
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}
	return out, nil
}

// Metadata returns all stored metadata keyed by molecule UID.
func (s *Store) Metadata(ctx context.Context) (map[unit.Identifier]meta.Map, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, key, value FROM metadata
		ORDER BY uid COLLATE BINARY ASC, key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[unit.Identifier]meta.Map)
	for rows.Next() {
		var uid, key, text string
		if err := rows.Scan(&uid, &key, &text); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		v, err := unmarshalValue(text)
		if err != nil {
			return nil, &CorruptError{Table: "metadata", UID: uid, Err: err}
		}
		id := unit.Identifier(uid)
		if out[id] == nil {
			out[id] = meta.Map{}
		}
		out[id][meta.Key(key)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata: %w", err)
	}
	return out, nil
}

// LastSeq returns the largest recorded reaction seq, or 0 for an empty
// store. Pass it to engine.NewClockAt when resuming.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM reactions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}
