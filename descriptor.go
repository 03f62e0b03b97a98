package udf

import (
	"context"
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/PsiACE/arrow-udf/sig"
)

// Configuration errors are reported at build time to the descriptor author;
// no artifact is produced. Cast errors are fatal at call time and abort the
// whole batch.
var (
	ErrConfig = errors.New("invalid function descriptor")
	ErrCast   = errors.New("cast error")
)

// Kind of a described function.
type Kind int

const (
	// Scalar functions produce one value per input row.
	Scalar Kind = iota
	// Table functions produce zero or more output rows per input row.
	Table
)

// Shape classifies a function result along two orthogonal axes: may fail,
// and may be absent.
type Shape int

const (
	// Value results are always present and never fail.
	Value Shape = iota
	// Optional results may be absent (a nil value means null).
	Optional
	// Fallible results are present on success and carry an error on failure.
	Fallible
	// FallibleOptional results may fail, and on success may still be absent.
	FallibleOptional
)

// CanFail reports whether the shape carries a per-call error. Functions
// with a fallible shape get an "error" column in their output schema; the
// column is omitted entirely otherwise.
func (s Shape) CanFail() bool { return s == Fallible || s == FallibleOptional }

// CallMode is the policy for invoking a function when some argument is
// null.
//
// The generated evaluators implement a finer gate than CallMode: each
// argument the user function does not accept as null short-circuits its row
// to null, regardless of mode. The embedded scripting runtime (package js)
// has no per-argument nullability to reflect on, so it applies CallMode as
// a coarse whole-row gate instead. Both produce the same observable
// behavior for functions that accept no nulls at all.
type CallMode int

const (
	// CalledOnNullInput invokes the function normally on null arguments.
	CalledOnNullInput CallMode = iota
	// ReturnNullOnNullInput skips invocation and yields null whenever any
	// argument is null.
	ReturnNullOnNullInput
)

// BatchFunc is a user-supplied whole-batch implementation. It receives the
// already-downcast argument columns and returns the output column.
type BatchFunc func(ctx context.Context, cols []arrow.Array) (arrow.Array, error)

// RowFunc invokes the user function for one row. Arguments arrive as the
// domain values documented in package types; a nil argument is a null the
// function declared it accepts. A nil result is a null output (Optional
// shapes); a non-nil error is recorded per row (Fallible shapes).
type RowFunc func(ctx context.Context, args []any) (any, error)

// WriteRowFunc is the streaming-sink variant of RowFunc for functions that
// write their varchar or bytea output through a writer instead of returning
// it. Returning false without an error yields a null output.
type WriteRowFunc func(ctx context.Context, args []any, w io.Writer) (bool, error)

// RowIter pulls successive items from one row of a table function.
// It returns ok=false when the row is exhausted. An item-level error is
// returned with ok=true and recorded in the error column.
type RowIter func() (v any, err error, ok bool)

// TableRowFunc invokes a table function for one row, returning the iterator
// over its yielded items. A nil iterator skips the row entirely.
type TableRowFunc func(ctx context.Context, args []any) (RowIter, error)

// Descriptor declares one function to generate, using the logical type DSL
// of package types. Argument and return types may contain wildcard patterns
// ("*", "*int*", "*float*"), which Expand resolves into concrete overloads,
// and wildcard classes ("any", "anyarray", "struct"), which stay in the
// signature and are matched by shape at call time.
type Descriptor struct {
	// Name of the function in the catalog.
	Name string
	// Args are the argument logical types, optionally ending in "...".
	Args []string
	// Ret is the return logical type.
	Ret string
	// Kind selects scalar or table evaluation.
	Kind Kind
	// TypeInfer overrides the synthesized return-type inference function.
	// Leave nil to derive it from the declared types.
	TypeInfer sig.InferFunc
	// BatchFn is an optional whole-batch implementation that replaces the
	// per-row loop. Not supported for variadic or table functions.
	BatchFn BatchFunc
}

// Variadic reports whether the descriptor declares trailing variadic
// arguments.
func (d *Descriptor) Variadic() bool {
	return len(d.Args) > 0 && d.Args[len(d.Args)-1] == "..."
}

// fixedArgs returns the argument types excluding the variadic marker.
func (d *Descriptor) fixedArgs() []string {
	if d.Variadic() {
		return d.Args[:len(d.Args)-1]
	}
	return d.Args
}

// PanicTypeInfer is a TypeInfer value for descriptors that are never
// expected to need plan-time inference. Invoking it is a programming error.
func PanicTypeInfer(args []arrow.DataType) (arrow.DataType, error) {
	panic("type inference function is not implemented")
}

// UserFunction is the reflected shape of the user-supplied implementation,
// assumed already resolved by the host. Exactly one of Fn, WriteFn and
// TableFn is set, matching the descriptor kind and the Write flag.
type UserFunction struct {
	// ArgsOption flags, per argument, whether the function accepts a null
	// directly. Rows where a non-accepting argument is null short-circuit
	// to a null result without invoking the function.
	ArgsOption []bool
	// Context marks functions that consult their context argument, for
	// cancellation or deadlines. Every Fn receives a context either way;
	// the flag only keeps the function off the vectorized path, whose
	// tight loops assume the call is a pure computation.
	Context bool
	// Write marks functions that stream their output through a sink.
	// Only valid when the return type is varchar or bytea.
	Write bool
	// Async marks functions that may suspend; the evaluator awaits each
	// call before moving to the next row.
	Async bool
	// Return is the shape of the function result. For table functions it
	// is the shape of the per-row iterator construction.
	Return Shape
	// Item is the shape of the items a table function yields.
	Item Shape

	Fn      RowFunc
	WriteFn WriteRowFunc
	TableFn TableRowFunc
}

// pure reports whether the function body is a plain computation: no
// context use, no sink, no per-call failure, no suspension.
func (u *UserFunction) pure() bool {
	return !u.Context && !u.Write && !u.Async && u.Return == Value
}

// acceptsNull reports whether argument i may be passed as nil.
func (u *UserFunction) acceptsNull(i int) bool {
	return i < len(u.ArgsOption) && u.ArgsOption[i]
}
