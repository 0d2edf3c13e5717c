// Package engine drives metadata propagation over a reaction network.
//
// The Propagator owns the registered molecules, operators and observed
// reactions together with the per-molecule metadata. Metadata calculators
// (package meta) only propose values; the propagator applies them.
//
// PROPAGATION:
//
//  1. Observe records a reaction, deduplicated by UID, and queues it.
//  2. Each delivery evaluates every calculator, in dependency order, on
//     every molecule taking part in the reaction.
//  3. An accepted proposal is merged with the stored value through the
//     calculator's resolver.
//  4. When a molecule's metadata changes, every reaction consuming that
//     molecule is queued again.
//
// Step 4 is how a reaction that was "not yet informative" (some reactant
// had no value) gets retried. The run ends when the worklist is empty.
// Resolvers only ever move values one way, so the fixed point does not
// depend on the order reactions were observed in.
//
// Single writer: every mutation happens under one mutex. Concurrent
// Observe calls serialise; reads through Snapshot see a settled state.
//
// Every delivery is stamped by the logical Clock. A run that needs more
// deliveries than the configured quota stops with StepsExceededError,
// leaving the remaining reactions queued.
package engine
