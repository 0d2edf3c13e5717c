package testutil

// FixedTokenGenerator returns the same run token every time.
//
// Run tokens are stamped on every reaction a propagation run persists.
// A fixed token makes stored rows and golden snapshots byte-identical
// across test runs.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a fixed run token generator.
//
// The token is typically set in the scenario YAML:
//
//	run_token: "run-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-run-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
