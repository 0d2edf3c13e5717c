// Package chem declares the capabilities doranet consumes from a
// chemistry engine.
//
// The engine itself is an external collaborator. Nothing in this module
// parses SMILES, perceives aromaticity or applies reaction templates; the
// data unit model and the operator application protocol call through the
// narrow interfaces declared here.
//
// CAPABILITIES:
//
//   - MolCodec: structure construction from SMILES or engine binary,
//     canonical SMILES, InChIKey and binary encoding
//   - Matcher: chirality-aware substructure containment
//   - Normalizer: structure copies and kekulization
//   - Reactor: SMARTS templates, per-slot reactant templates and
//     template application returning every product tuple
//
// ERRORS:
//
// Engines report structural failures as *StructureError with a Kind.
// Callers that need a domain error (unit.ApplicationError) wrap it; the
// engine cause stays reachable through errors.As.
//
// Structures (Mol, Rxn) are opaque to doranet. Implementations must treat
// them as immutable once returned: callers that need to mutate a structure
// ask the engine for a copy first.
package chem
