// Package store provides SQLite-backed persistence for reaction networks.
//
// Tables:
//   - molecules: UID, SMILES and the chemistry engine's binary blob
//   - operators: UID, kekulize flag and the canonical operator blob
//   - reactions: UID, digest, canonical blob, run token and logical seq
//   - metadata: one canonical value per (molecule UID, key)
//
// # Writes
//
// Unit and reaction rows are immutable: inserts use ON CONFLICT DO
// NOTHING, so recording the same unit twice is a no-op. Metadata rows are
// upserted. *Store implements engine.Recorder.
//
// # Reads
//
// Stored bytes are untrusted. Operator and reaction blobs go through the
// unit constructors, which decode them with ir.Decode; metadata values go
// through ir.Decode and ir.ToGo. A row whose decoded UID differs from the
// stored one is reported as *CorruptError. All reads return rows in UID
// order (COLLATE BINARY), so two stores holding the same network read
// back identically.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: metadata needs its molecule, reactions their operator
package store
