package unit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedConstruction is matched by every ConstructionError.
	ErrMalformedConstruction = errors.New("malformed construction")

	// ErrInsufficientArguments indicates a reaction constructor received
	// neither a complete explicit triple nor a blob, or both.
	ErrInsufficientArguments = errors.New("insufficient arguments")

	// ErrIncomparable is matched by every IncomparableError.
	ErrIncomparable = errors.New("incomparable units")

	// ErrApplication is matched by every ApplicationError.
	ErrApplication = errors.New("operator application failed")
)

// ConstructionError is returned when a unit constructor receives an
// unsupported input type, an incomplete argument set, or a blob with the
// wrong shape.
type ConstructionError struct {
	// Kind is the unit kind being constructed.
	Kind Kind

	// Reason describes what was wrong with the input.
	Reason string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s construction: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s construction: %s", e.Kind, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedConstruction) match.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrMalformedConstruction
}

// Unwrap returns the underlying cause.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// IncomparableError is returned when ordering units of different kinds.
type IncomparableError struct {
	Left  Kind
	Right Kind
}

// Error implements the error interface.
func (e *IncomparableError) Error() string {
	return fmt.Sprintf("cannot compare %s with %s", e.Left, e.Right)
}

// Is makes errors.Is(err, ErrIncomparable) match.
func (e *IncomparableError) Is(target error) bool {
	return target == ErrIncomparable
}

// ApplicationError is the single error an operator application returns.
// It carries the operator and reactants for diagnostics; the chemistry
// engine's error (or recovered panic) is available through Unwrap.
type ApplicationError struct {
	// Operator is the UID of the operator being applied.
	Operator Identifier

	// Reactants are the UIDs of the reactants, in slot order.
	Reactants []Identifier

	// Err is the engine cause.
	Err error
}

// Error implements the error interface.
func (e *ApplicationError) Error() string {
	ids := make([]string, len(e.Reactants))
	for i, id := range e.Reactants {
		ids[i] = string(id)
	}
	return fmt.Sprintf("operator application failed (operator=%s, reactants=[%s]): %v",
		e.Operator, strings.Join(ids, ", "), e.Err)
}

// Is makes errors.Is(err, ErrApplication) match.
func (e *ApplicationError) Is(target error) bool {
	return target == ErrApplication
}

// Unwrap returns the engine cause.
func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// IsApplicationError returns true if err is or wraps an ApplicationError.
func IsApplicationError(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}
