package engine

import "github.com/google/uuid"

// TokenGenerator produces run tokens. Each Observe, Seed-triggered Run or
// explicit Run gets one; it tags log lines and recorded reactions.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens, so recorded
// reactions sort by the run that first observed them.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
