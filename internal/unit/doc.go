// Package unit implements the doranet data unit model.
//
// Three kinds of data unit exist: molecules, operators and reactions.
// Every unit exposes a canonical identifier (UID) and a binary
// serialization (blob). Two units with the same kind and UID are the same
// logical entity, whichever caching profile or object produced them.
//
// IDENTITY:
//
//   - Molecule UID: canonical SMILES from the chemistry engine
//   - Operator UID: canonical reaction SMARTS (the kekulize flag is not
//     part of identity)
//   - Reaction UID: canonical encoding of (operator, sorted products,
//     sorted reactants)
//
// MOLECULE PROFILES:
//
// MinimalMolecule stores only the blob and SMILES and recomputes the
// structure and InChIKey on demand. CachedMolecule stores the structure
// and memoizes the blob and InChIKey on first use. Both produce the same
// UID, blob and derived values for the same structure.
//
// BLOBS:
//
// Operator and reaction blobs are canonical ir values and are always
// decoded through ir.Decode, so a blob from an untrusted store can only
// ever yield strings, integers, booleans, bytes, tuples and sets.
// Molecule blobs are the chemistry engine's own binary encoding.
//
// Lazy fields are first-writer-wins (sync.OnceValue/OnceValues) and safe
// to read from many goroutines. Units carry no metadata: drivers keep
// per-UID metadata themselves (see package meta).
package unit
