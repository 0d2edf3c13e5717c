package meta

import (
	"errors"
	"fmt"

	"github.com/dmdqy/doranet/internal/unit"
)

// ResolverFunc merges two values proposed for the same (molecule, key).
// It must be associative and commutative.
type ResolverFunc[T any] func(a, b T) T

// PropertyCalc is a typed molecule property calculator.
type PropertyCalc[T any] interface {
	// Key returns the metadata key the calculator writes.
	Key() Key

	// Requires declares the keys read before a value can be produced.
	Requires() KeyPacket

	// Resolver returns the merge function for competing proposals.
	Resolver() ResolverFunc[T]

	// Propose evaluates one newly observed reaction for the molecule in
	// data. prev is the value previously accepted for this key, or nil.
	// It returns false for "no update".
	Propose(data DataPacket[unit.Molecule], rxn ReactionExplicit, prev *T) (T, bool)
}

// Calculator is the untyped calculator contract consumed by drivers.
// Adapt a PropertyCalc with Erase.
type Calculator interface {
	Key() Key
	Requires() KeyPacket

	// Resolve merges two stored values.
	Resolve(a, b any) (any, error)

	// Propose is PropertyCalc.Propose with prev passed as a plain value
	// (nil for none).
	Propose(data DataPacket[unit.Molecule], rxn ReactionExplicit, prev any) (any, bool, error)
}

// ErrValueType is matched by every ValueTypeError.
var ErrValueType = errors.New("metadata value has wrong type")

// ValueTypeError is returned when a stored value does not have the type
// its calculator works with.
type ValueTypeError struct {
	Key   Key
	Want  string
	Value any
}

// Error implements the error interface.
func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("metadata %q: want %s, got %T", e.Key, e.Want, e.Value)
}

// Is makes errors.Is(err, ErrValueType) match.
func (e *ValueTypeError) Is(target error) bool {
	return target == ErrValueType
}

// Erase adapts a typed calculator to the untyped Calculator contract.
func Erase[T any](c PropertyCalc[T]) Calculator {
	return erased[T]{calc: c}
}

type erased[T any] struct {
	calc PropertyCalc[T]
}

func (e erased[T]) Key() Key { return e.calc.Key() }
func (e erased[T]) Requires() KeyPacket { return e.calc.Requires() }

func (e erased[T]) value(v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		return t, &ValueTypeError{Key: e.calc.Key(), Want: fmt.Sprintf("%T", *new(T)), Value: v}
	}
	return t, nil
}

func (e erased[T]) Resolve(a, b any) (any, error) {
	ta, err := e.value(a)
	if err != nil {
		return nil, err
	}
	tb, err := e.value(b)
	if err != nil {
		return nil, err
	}
	return e.calc.Resolver()(ta, tb), nil
}

func (e erased[T]) Propose(data DataPacket[unit.Molecule], rxn ReactionExplicit, prev any) (any, bool, error) {
	var prevT *T
	if prev != nil {
		t, err := e.value(prev)
		if err != nil {
			return nil, false, err
		}
		prevT = &t
	}

	v, ok := e.calc.Propose(data, rxn, prevT)
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

// String names the calculator by key.
func (e erased[T]) String() string {
	return fmt.Sprintf("calculator(%s)", e.calc.Key())
}
