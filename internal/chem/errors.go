package chem

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes engine structural failures.
type ErrorKind string

const (
	// KindParse indicates an unparsable SMILES, SMARTS or binary input.
	KindParse ErrorKind = "PARSE"

	// KindSanitize indicates a structure that failed sanitization.
	KindSanitize ErrorKind = "SANITIZE"

	// KindValence indicates an atom with an impossible valence.
	KindValence ErrorKind = "VALENCE"

	// KindKekulize indicates an aromatic system with no Kekulé form.
	KindKekulize ErrorKind = "KEKULIZE"
)

// StructureError is returned by engines when a structure or template
// cannot be built, normalized or transformed.
type StructureError struct {
	// Kind identifies the failure category.
	Kind ErrorKind

	// Input is the offending SMILES, SMARTS or a short description.
	Input string

	// Message is the engine's diagnostic.
	Message string
}

// Error implements the error interface.
func (e *StructureError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("%s: %s (input=%q)", e.Kind, e.Message, e.Input)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind returns true if err is or wraps a StructureError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StructureError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
