// Package meta implements the metadata calculator and resolver protocol.
//
// A calculator writes one metadata key on molecules. Given a newly
// observed reaction and the metadata snapshot of one molecule, it either
// proposes a new value or signals "no update". A resolver merges values
// proposed along different paths for the same (molecule, key).
//
// Calculators are pure proposal functions. Applying accepted values,
// persisting them and re-delivering reactions whose inputs were not yet
// known is the driver's job (see package engine). "No update" is a
// value, never an error: it is how a calculator asks to be retried later.
//
// KeyPacket declares which keys a calculator reads, partitioned by entity
// kind. Order uses the declarations to run writers before readers.
//
// The exemplar calculator is GenerationCalculator: the generation of a
// molecule is the minimum number of reaction steps separating it from
// the seed set.
package meta
