// Package sig defines the typed signature records produced for every
// generated function and the process-wide registry they are installed into.
//
// The registry is append-only: it is populated during an explicit
// initialization phase (typically from package init or main) and only read
// afterwards.
package sig

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/PsiACE/arrow-udf/types"
)

// ScalarFunc evaluates one input batch into one output batch. The output
// has a value column named after the function and, when the function can
// fail per row, a nullable "error" text column.
type ScalarFunc func(ctx context.Context, input arrow.RecordBatch) (arrow.RecordBatch, error)

// TableFunc evaluates one input batch into a stream of output batches.
// The returned reader is single-pass; callers must exhaust it once and
// release it.
type TableFunc func(ctx context.Context, input arrow.RecordBatch) (array.RecordReader, error)

// InferFunc resolves the return type of a function from the caller-supplied
// argument types at plan time.
type InferFunc func(args []arrow.DataType) (arrow.DataType, error)

// Kind distinguishes scalar from table (set-returning) functions.
type Kind int

const (
	Scalar Kind = iota
	Table
)

func (k Kind) String() string {
	if k == Table {
		return "table"
	}
	return "scalar"
}

// SigDataType is the type of one argument or return position in a
// signature: either an exact Arrow type or a wildcard class matched by
// shape.
type SigDataType struct {
	wildcard string // "", types.Any, types.AnyArray or types.AnyStruct
	logical  string // canonical logical name for exact types
	exact    arrow.DataType
}

// Exact builds a SigDataType for a concrete logical type.
func Exact(logical string, dt arrow.DataType) SigDataType {
	return SigDataType{logical: types.Canonical(logical), exact: dt}
}

// Wildcard class signature types.
var (
	Any       = SigDataType{wildcard: types.Any}
	AnyArray  = SigDataType{wildcard: types.AnyArray}
	AnyStruct = SigDataType{wildcard: types.AnyStruct}
)

// IsExact reports whether the position requires one concrete type.
func (t SigDataType) IsExact() bool { return t.wildcard == "" }

// DataType returns the exact Arrow type, or nil for wildcard classes.
func (t SigDataType) DataType() arrow.DataType { return t.exact }

// Matches reports whether an actual column type satisfies this position.
func (t SigDataType) Matches(dt arrow.DataType) bool {
	switch t.wildcard {
	case types.Any:
		return true
	case types.AnyArray:
		_, ok := dt.(*arrow.ListType)
		return ok
	case types.AnyStruct:
		_, ok := dt.(*arrow.StructType)
		return ok
	default:
		return arrow.TypeEqual(t.exact, dt)
	}
}

// String returns the canonical logical spelling used in signature strings.
func (t SigDataType) String() string {
	if t.wildcard != "" {
		return t.wildcard
	}
	return t.logical
}

// FunctionSignature describes one monomorphic function overload: its name,
// argument and return types, and the generated evaluation routine. Exactly
// one of ScalarFn and TableFn is set, according to Kind.
type FunctionSignature struct {
	Name       string
	ArgTypes   []SigDataType
	Variadic   bool
	ReturnType SigDataType
	Kind       Kind
	TypeInfer  InferFunc
	ScalarFn   ScalarFunc
	TableFn    TableFunc
}

// String returns the canonical signature string, e.g.
// "add(int4,int4)->int4". The export symbol is derived from it.
func (s *FunctionSignature) String() string {
	args := make([]string, 0, len(s.ArgTypes)+1)
	for _, t := range s.ArgTypes {
		args = append(args, t.String())
	}
	if s.Variadic {
		args = append(args, types.Variadic)
	}
	return fmt.Sprintf("%s(%s)->%s", s.Name, strings.Join(args, ","), s.ReturnType)
}

// ExportSymbol returns the linker-safe symbol name for this signature's
// entry point, scalar or table.
func (s *FunctionSignature) ExportSymbol() string {
	return ExportSymbol(s.String())
}

// Registry is an append-only table of function signatures.
type Registry struct {
	mu   sync.RWMutex
	sigs []*FunctionSignature
}

// DefaultRegistry receives signatures registered through udf.Register.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a signature. Overloads with identical types may coexist;
// Lookup returns the first match in registration order.
func (r *Registry) Register(s *FunctionSignature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sigs = append(r.sigs, s)
}

// Signatures returns a snapshot of all registered signatures in
// registration order.
func (r *Registry) Signatures() []*FunctionSignature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*FunctionSignature, len(r.sigs))
	copy(out, r.sigs)
	return out
}

// Lookup finds the first overload of name accepting the given argument
// types and resolves its return type through the signature's inference
// function. Repeated wildcard-class positions match independently; no
// unification across positions is performed.
func (r *Registry) Lookup(name string, args []arrow.DataType) (*FunctionSignature, arrow.DataType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sigs {
		if s.Name != name || !matches(s, args) {
			continue
		}
		ret, err := s.TypeInfer(args)
		if err != nil {
			return nil, nil, fmt.Errorf("infer return type of %s: %w", s, err)
		}
		return s, ret, nil
	}
	return nil, nil, fmt.Errorf("function not found: %s(%s)", name, joinTypes(args))
}

func matches(s *FunctionSignature, args []arrow.DataType) bool {
	if s.Variadic {
		if len(args) < len(s.ArgTypes) {
			return false
		}
	} else if len(args) != len(s.ArgTypes) {
		return false
	}
	for i, t := range s.ArgTypes {
		if !t.Matches(args[i]) {
			return false
		}
	}
	return true
}

func joinTypes(args []arrow.DataType) string {
	parts := make([]string, len(args))
	for i, dt := range args {
		parts[i] = dt.String()
	}
	return strings.Join(parts, ",")
}
