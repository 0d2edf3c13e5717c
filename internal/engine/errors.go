package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmdqy/doranet/internal/meta"
	"github.com/dmdqy/doranet/internal/unit"
)

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMissingUnit indicates a referenced unit was never registered.
	ErrCodeMissingUnit RuntimeErrorCode = "MISSING_UNIT"

	// ErrCodeInvalidReaction indicates an observation whose participant
	// order does not match the reaction.
	ErrCodeInvalidReaction RuntimeErrorCode = "INVALID_REACTION"

	// ErrCodeInvalidMetadata indicates a value that cannot be stored.
	ErrCodeInvalidMetadata RuntimeErrorCode = "INVALID_METADATA"

	// ErrCodeCalculatorFailed indicates a calculator or resolver error.
	ErrCodeCalculatorFailed RuntimeErrorCode = "CALCULATOR_FAILED"
)

// RuntimeError is an error detected while registering units or
// propagating metadata. Only the fields relevant to the code are set.
type RuntimeError struct {
	Code     RuntimeErrorCode
	Message  string
	RunToken string
	Reaction unit.Identifier
	Molecule unit.Identifier
	Key      meta.Key
	Err      error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var attrs []string
	if e.RunToken != "" {
		attrs = append(attrs, "run="+e.RunToken)
	}
	if e.Reaction != "" {
		attrs = append(attrs, "reaction="+string(e.Reaction))
	}
	if e.Molecule != "" {
		attrs = append(attrs, "molecule="+string(e.Molecule))
	}
	if e.Key != "" {
		attrs = append(attrs, "key="+string(e.Key))
	}
	if len(attrs) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(attrs, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsMissingUnit reports whether err is a missing unit error.
func IsMissingUnit(err error) bool {
	return hasCode(err, ErrCodeMissingUnit)
}

// IsInvalidReaction reports whether err is an invalid reaction error.
func IsInvalidReaction(err error) bool {
	return hasCode(err, ErrCodeInvalidReaction)
}

// IsCalculatorError reports whether err came from a calculator or resolver.
func IsCalculatorError(err error) bool {
	return hasCode(err, ErrCodeCalculatorFailed)
}

// NewMissingUnitError creates a RuntimeError for an unregistered unit.
func NewMissingUnitError(kind unit.Kind, id unit.Identifier) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeMissingUnit,
		Message: fmt.Sprintf("%s %q is not registered", kind, id),
	}
	if kind == unit.KindMolecule {
		re.Molecule = id
	}
	return re
}
