// Package netspec compiles declarative network definitions written in CUE.
//
// A definition names the seed molecules, the operators to expand with and
// the metadata key holding the generation:
//
//	generation_key: "generation"
//	seeds: [
//		{smiles: "CCO"},
//		{smiles: "O", meta: {label: "water"}},
//	]
//	operators: {
//		dehydrate: {smarts: "[C:1][O:2]>>[C:1]=[O:2]"}
//		aromatic:  {smarts: "c1ccccc1>>C1CCCCC1", kekulize: true}
//	}
//
// Compile turns a cue.Value into a Network; positions of malformed
// fields are kept in *CompileError. Validate runs the checks CUE cannot
// express and reports every problem at once. Build registers the network
// with an engine.Propagator: seeds get generation 0 plus their declared
// metadata.
//
// Metadata values are limited to the wire allow-list: strings, integers,
// booleans, bytes and lists of those. Floats are rejected.
package netspec
