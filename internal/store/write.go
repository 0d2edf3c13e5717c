package store

import (
	"context"
	"fmt"

	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/unit"
)

// RecordMolecule inserts a molecule. Recording the same UID again is a
// no-op.
func (s *Store) RecordMolecule(ctx context.Context, m unit.Molecule) error {
	blob, err := m.Blob()
	if err != nil {
		return fmt.Errorf("record molecule %s: %w", m.UID(), err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO molecules (uid, smiles, blob)
		VALUES (?, ?, ?)
		ON CONFLICT(uid) DO NOTHING
	`, string(m.UID()), m.Smiles(), blob)
	if err != nil {
		return fmt.Errorf("record molecule %s: %w", m.UID(), err)
	}
	return nil
}

// RecordOperator inserts an operator. The first recorded kekulize flag
// is kept.
func (s *Store) RecordOperator(ctx context.Context, op *unit.Operator) error {
	blob, err := op.Blob()
	if err != nil {
		return fmt.Errorf("record operator %s: %w", op.UID(), err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operators (uid, kekulize, blob)
		VALUES (?, ?, ?)
		ON CONFLICT(uid) DO NOTHING
	`, string(op.UID()), op.Kekulize(), blob)
	if err != nil {
		return fmt.Errorf("record operator %s: %w", op.UID(), err)
	}
	return nil
}

// RecordReaction inserts a reaction with the run that first observed it
// and its logical seq. The operator must already be recorded.
func (s *Store) RecordReaction(ctx context.Context, rxn *unit.Reaction, runToken string, seq int64) error {
	blob, err := rxn.Blob()
	if err != nil {
		return fmt.Errorf("record reaction %s: %w", rxn.Digest(), err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reactions (uid, digest, operator, blob, run_token, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO NOTHING
	`, string(rxn.UID()), rxn.Digest(), string(rxn.Operator()), blob, runToken, seq)
	if err != nil {
		return fmt.Errorf("record reaction %s: %w", rxn.Digest(), err)
	}
	return nil
}

// RecordMetadata upserts one metadata value. The molecule must already
// be recorded. Values must be convertible by ir.FromGo.
func (s *Store) RecordMetadata(ctx context.Context, id unit.Identifier, key meta.Key, value any) error {
	text, err := marshalValue(value)
	if err != nil {
		return fmt.Errorf("record metadata %s/%s: %w", id, key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO metadata (uid, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(uid, key) DO UPDATE SET value = excluded.value
	`, string(id), string(key), text)
	if err != nil {
		return fmt.Errorf("record metadata %s/%s: %w", id, key, err)
	}
	return nil
}
