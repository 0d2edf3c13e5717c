package netspec

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/dmdqy/doranet/internal/meta"
)

// DefaultGenerationKey is used when a definition omits generation_key.
const DefaultGenerationKey meta.Key = "generation"

// Seed is a starting molecule.
type Seed struct {
	Smiles string
	Meta   map[string]any
	Pos    token.Pos
}

// OperatorDef is a named reaction operator.
type OperatorDef struct {
	Name     string
	Smarts   string
	Kekulize bool
	Pos      token.Pos
}

// Network is a compiled network definition. Seeds and operators keep
// declaration order.
type Network struct {
	GenerationKey meta.Key
	Seeds         []Seed
	Operators     []OperatorDef
}

// CompileError is a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// CompileString compiles CUE source. filename is used in positions.
func CompileString(src, filename string) (*Network, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// LoadDir builds the CUE package in dir and compiles it.
func LoadDir(dir string) (*Network, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "load", Message: fmt.Sprintf("no CUE instances in %s", dir)}
	}
	if err := instances[0].Err; err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(cuecontext.New().BuildInstance(instances[0]))
}

// Compile converts a CUE value into a Network.
func Compile(v cue.Value) (*Network, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	n := &Network{GenerationKey: DefaultGenerationKey}

	if gk := v.LookupPath(cue.ParsePath("generation_key")); gk.Exists() {
		s, err := gk.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if s == "" {
			return nil, &CompileError{Field: "generation_key", Message: "must not be empty", Pos: gk.Pos()}
		}
		n.GenerationKey = meta.Key(s)
	}

	var err error
	if n.Seeds, err = compileSeeds(v); err != nil {
		return nil, err
	}
	if n.Operators, err = compileOperators(v); err != nil {
		return nil, err
	}
	return n, nil
}

func compileSeeds(v cue.Value) ([]Seed, error) {
	seedsVal := v.LookupPath(cue.ParsePath("seeds"))
	if !seedsVal.Exists() {
		return nil, &CompileError{Field: "seeds", Message: "seeds are required", Pos: v.Pos()}
	}
	iter, err := seedsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var seeds []Seed
	for iter.Next() {
		sv := iter.Value()
		smilesVal := sv.LookupPath(cue.ParsePath("smiles"))
		if !smilesVal.Exists() {
			return nil, &CompileError{Field: "seeds.smiles", Message: "smiles is required", Pos: sv.Pos()}
		}
		smiles, err := smilesVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		seed := Seed{Smiles: smiles, Pos: sv.Pos()}
		if mv := sv.LookupPath(cue.ParsePath("meta")); mv.Exists() {
			seed.Meta = map[string]any{}
			fields, err := mv.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for fields.Next() {
				val, err := metaValue(fields.Value())
				if err != nil {
					return nil, err
				}
				seed.Meta[fields.Label()] = val
			}
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func compileOperators(v cue.Value) ([]OperatorDef, error) {
	opsVal := v.LookupPath(cue.ParsePath("operators"))
	if !opsVal.Exists() {
		return nil, nil
	}
	fields, err := opsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ops []OperatorDef
	for fields.Next() {
		ov := fields.Value()
		def := OperatorDef{Name: fields.Label(), Pos: ov.Pos()}

		smartsVal := ov.LookupPath(cue.ParsePath("smarts"))
		if !smartsVal.Exists() {
			return nil, &CompileError{Field: "operators." + def.Name, Message: "smarts is required", Pos: ov.Pos()}
		}
		if def.Smarts, err = smartsVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		if kv := ov.LookupPath(cue.ParsePath("kekulize")); kv.Exists() {
			if def.Kekulize, err = kv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		ops = append(ops, def)
	}
	return ops, nil
}

// metaValue converts a concrete CUE value to a storable Go value.
func metaValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return int(i), nil
	case cue.BoolKind:
		return v.Bool()
	case cue.BytesKind:
		return v.Bytes()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			elem, err := metaValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "meta",
			Message: "float values are forbidden, use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "meta",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
