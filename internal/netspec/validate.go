package netspec

import (
	"fmt"
)

// Validation error codes (E200-E209)
const (
	ErrNoSeeds           = "E200" // at least one seed required
	ErrEmptySmiles       = "E201" // seed smiles is empty
	ErrDuplicateSeed     = "E202" // same smiles seeded twice
	ErrEmptySmarts       = "E203" // operator smarts is empty
	ErrDuplicateOperator = "E204" // two operators with the same smarts
	ErrReservedMetaKey   = "E205" // seed meta sets the generation key
)

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled network. It returns every error found.
//
// Duplicate detection works on the declared strings; two spellings of
// the same molecule are only merged later, when the chemistry engine
// canonicalizes them.
func Validate(n *Network) []ValidationError {
	var errs []ValidationError

	if len(n.Seeds) == 0 {
		errs = append(errs, ValidationError{
			Field:   "seeds",
			Message: "at least one seed is required",
			Code:    ErrNoSeeds,
		})
	}

	seen := make(map[string]int)
	for i, s := range n.Seeds {
		field := fmt.Sprintf("seeds[%d]", i)
		if s.Smiles == "" {
			errs = append(errs, ValidationError{Field: field, Message: "smiles is empty", Code: ErrEmptySmiles, Line: s.Pos.Line()})
			continue
		}
		if j, dup := seen[s.Smiles]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q already seeded at seeds[%d]", s.Smiles, j),
				Code:    ErrDuplicateSeed,
				Line:    s.Pos.Line(),
			})
		} else {
			seen[s.Smiles] = i
		}
		if _, ok := s.Meta[string(n.GenerationKey)]; ok {
			errs = append(errs, ValidationError{
				Field:   field + ".meta",
				Message: fmt.Sprintf("%q is set by the engine", n.GenerationKey),
				Code:    ErrReservedMetaKey,
				Line:    s.Pos.Line(),
			})
		}
	}

	smarts := make(map[string]string)
	for _, op := range n.Operators {
		field := "operators." + op.Name
		if op.Smarts == "" {
			errs = append(errs, ValidationError{Field: field, Message: "smarts is empty", Code: ErrEmptySmarts, Line: op.Pos.Line()})
			continue
		}
		if other, dup := smarts[op.Smarts]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("same smarts as operators.%s", other),
				Code:    ErrDuplicateOperator,
				Line:    op.Pos.Line(),
			})
			continue
		}
		smarts[op.Smarts] = op.Name
	}

	return errs
}
