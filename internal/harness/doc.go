// Package harness runs propagation scenarios end to end.
//
// A scenario carries an inline CUE network, a list of reaction deliveries
// and assertions. The harness builds the network with the toy chemistry
// engine, drives the propagator, persists everything to an in-memory
// store, reloads the store and evaluates the assertions against what was
// reloaded. A disagreement between the store and the propagator fails
// the scenario.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	run_token: run-001
//	network: |
//	  seeds: [{smiles: "A"}]
//	  operators: grow: smarts: "A>>B"
//	steps:
//	  - fire: grow
//	    reactants: [A]
//	  - observe: grow
//	    reactants: [A]
//	    products: [B]
//	assertions:
//	  - type: metadata
//	    molecule: B
//	    key: generation
//	    value: 1
//	  - type: reaction_count
//	    count: 1
//
// # Golden Files
//
// RunWithGolden encodes the reloaded state canonically and compares it
// with testdata/golden/<name>.golden. Run with -update to regenerate.
package harness
