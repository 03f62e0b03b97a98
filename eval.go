package udf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/PsiACE/arrow-udf/sig"
	"github.com/PsiACE/arrow-udf/types"
)

// Build generates the evaluation routine and signature record for one
// expanded descriptor. Wildcard patterns must be resolved with Expand
// first; wildcard classes may remain and are matched by shape at call time.
//
// Scalar descriptors produce a signature with ScalarFn set, table
// descriptors with TableFn set. Configuration problems (malformed
// descriptor, unsatisfiable inference, incompatible flags) fail here, at
// build time; nothing is registered.
func Build(d Descriptor, fn *UserFunction) (*sig.FunctionSignature, error) {
	if err := validate(&d, fn); err != nil {
		return nil, err
	}
	infer, err := typeInferFn(&d)
	if err != nil {
		return nil, err
	}

	args := d.fixedArgs()
	argTypes := make([]sig.SigDataType, len(args))
	for i, a := range args {
		argTypes[i], err = sigDataType(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %v", ErrConfig, d.Name, i, err)
		}
	}
	retType, err := sigDataType(d.Ret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s return: %v", ErrConfig, d.Name, err)
	}

	s := &sig.FunctionSignature{
		Name:       d.Name,
		ArgTypes:   argTypes,
		Variadic:   d.Variadic(),
		ReturnType: retType,
		TypeInfer:  infer,
	}
	switch d.Kind {
	case Table:
		s.Kind = sig.Table
		s.TableFn = generateTable(&d, fn, infer)
	default:
		s.Kind = sig.Scalar
		s.ScalarFn = generateScalar(&d, fn, infer)
	}
	return s, nil
}

func sigDataType(logical string) (sig.SigDataType, error) {
	switch types.Canonical(logical) {
	case types.Any:
		return sig.Any, nil
	case types.AnyArray:
		return sig.AnyArray, nil
	case types.AnyStruct:
		return sig.AnyStruct, nil
	}
	if types.IsWildcardPattern(logical) {
		return sig.SigDataType{}, fmt.Errorf("wildcard pattern %q must be expanded before generation", logical)
	}
	dt, err := types.DataTypeOf(logical)
	if err != nil {
		return sig.SigDataType{}, err
	}
	return sig.Exact(logical, dt), nil
}

func validate(d *Descriptor, fn *UserFunction) error {
	if d.Name == "" {
		return fmt.Errorf("%w: function name is required", ErrConfig)
	}
	for i, a := range d.Args {
		if a == types.Variadic && i != len(d.Args)-1 {
			return fmt.Errorf("%w: %s: %q is only allowed as the last argument", ErrConfig, d.Name, types.Variadic)
		}
	}
	if d.BatchFn != nil && d.Variadic() {
		return fmt.Errorf("%w: %s: customized batch function is not supported for variadic functions", ErrConfig, d.Name)
	}
	if d.BatchFn != nil && d.Kind == Table {
		return fmt.Errorf("%w: %s: customized batch function is not supported for table functions", ErrConfig, d.Name)
	}
	if fn.Write {
		if d.Kind == Table {
			return fmt.Errorf("%w: %s: a writer sink is not supported for table functions", ErrConfig, d.Name)
		}
		ret := types.Canonical(d.Ret)
		if ret != "varchar" && ret != "bytea" {
			return fmt.Errorf("%w: %s: a writer sink can only be used for functions that return varchar or bytea", ErrConfig, d.Name)
		}
		if fn.WriteFn == nil {
			return fmt.Errorf("%w: %s: Write is set but WriteFn is missing", ErrConfig, d.Name)
		}
	}
	switch d.Kind {
	case Table:
		if fn.TableFn == nil {
			return fmt.Errorf("%w: %s: table function requires TableFn", ErrConfig, d.Name)
		}
	default:
		if d.BatchFn == nil && fn.Fn == nil && fn.WriteFn == nil {
			return fmt.Errorf("%w: %s: scalar function requires Fn, WriteFn or BatchFn", ErrConfig, d.Name)
		}
	}
	return nil
}

// downcastArgs validates the argument columns of an input batch against the
// declared types and returns the fixed and variadic column slices.
func downcastArgs(d *Descriptor, input arrow.RecordBatch) (cols, varCols []arrow.Array, err error) {
	args := d.fixedArgs()
	if int(input.NumCols()) < len(args) {
		return nil, nil, fmt.Errorf("%w: expect at least %d columns, got %d", ErrCast, len(args), input.NumCols())
	}
	cols = make([]arrow.Array, len(args))
	for i, a := range args {
		col := input.Column(i)
		if err := checkColumn(a, i, col); err != nil {
			return nil, nil, err
		}
		cols[i] = col
	}
	if d.Variadic() {
		for i := len(args); i < int(input.NumCols()); i++ {
			varCols = append(varCols, input.Column(i))
		}
	}
	return cols, varCols, nil
}

// resolveRet resolves the output logical type and storage type, running the
// inference function against the actual column types when the declared
// return is a wildcard class.
func resolveRet(d *Descriptor, infer sig.InferFunc, cols []arrow.Array) (string, arrow.DataType, error) {
	if !types.IsWildcardClass(d.Ret) {
		dt, err := types.DataTypeOf(d.Ret)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		return types.Canonical(d.Ret), dt, nil
	}
	argTypes := make([]arrow.DataType, len(cols))
	for i, col := range cols {
		argTypes[i] = col.DataType()
	}
	dt, err := infer(argTypes)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrConfig, d.Name, err)
	}
	logical, err := types.LogicalOf(dt)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrConfig, d.Name, err)
	}
	return logical, dt, nil
}

// readRow reads the argument values of one row. gated is true when an
// argument the function does not accept as null is null: the row result is
// null and the function is not invoked at all. Variadic trailing values are
// appended after the fixed arguments.
func readRow(args []string, fn *UserFunction, cols, varCols []arrow.Array, i int) (row []any, gated bool, err error) {
	row = make([]any, 0, len(cols)+len(varCols))
	for j, col := range cols {
		if col.IsNull(i) {
			if !fn.acceptsNull(j) {
				return nil, true, nil
			}
			row = append(row, nil)
			continue
		}
		v, err := ReadValue(args[j], col, i)
		if err != nil {
			return nil, false, err
		}
		row = append(row, v)
	}
	for _, col := range varCols {
		if col.IsNull(i) {
			row = append(row, nil)
			continue
		}
		v, err := ReadValue(types.Any, col, i)
		if err != nil {
			return nil, false, err
		}
		row = append(row, v)
	}
	return row, false, nil
}

var errorField = arrow.Field{Name: "error", Type: arrow.BinaryTypes.String, Nullable: true}

// generateScalar emits the batch-evaluation routine for a scalar
// descriptor, selecting among the vectorized fast path, a user-supplied
// whole-batch implementation and the generic per-row loop.
func generateScalar(d *Descriptor, fn *UserFunction, infer sig.InferFunc) sig.ScalarFunc {
	desc := *d
	d = &desc
	args := d.fixedArgs()
	hasError := d.BatchFn == nil && fn.Return.CanFail()
	fast := fastPathEligible(d, fn)

	return func(ctx context.Context, input arrow.RecordBatch) (arrow.RecordBatch, error) {
		cols, varCols, err := downcastArgs(d, input)
		if err != nil {
			return nil, err
		}

		if d.BatchFn != nil {
			out, err := d.BatchFn(ctx, cols)
			if err != nil {
				return nil, err
			}
			defer out.Release()
			schema := arrow.NewSchema([]arrow.Field{
				{Name: d.Name, Type: out.DataType(), Nullable: true},
			}, nil)
			return array.NewRecordBatch(schema, []arrow.Array{out}, int64(out.Len())), nil
		}

		retLogical, retDT, err := resolveRet(d, infer, cols)
		if err != nil {
			return nil, err
		}
		plan, err := NewBuilderPlan(retLogical)
		if err != nil {
			return nil, err
		}

		if fast {
			return fastScalar(ctx, d, fn, cols, int(input.NumRows()), retDT, plan)
		}

		fields := []arrow.Field{{Name: d.Name, Type: retDT, Nullable: true}}
		if hasError {
			fields = append(fields, errorField)
		}
		schema := arrow.NewSchema(fields, nil)
		rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		defer rb.Release()
		valueB := rb.Field(0)
		var errB *array.StringBuilder
		if hasError {
			errB = rb.Field(1).(*array.StringBuilder)
		}

		nrows := int(input.NumRows())
		for i := 0; i < nrows; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			row, gated, err := readRow(args, fn, cols, varCols, i)
			if err != nil {
				return nil, err
			}
			if gated {
				plan.AppendNull(valueB)
				if hasError {
					errB.AppendNull()
				}
				continue
			}

			v, callErr := callRow(ctx, d, fn, row)
			if callErr != nil {
				if !hasError {
					// The shape declares the call infallible; treat a
					// failure as fatal for the whole batch.
					return nil, callErr
				}
				plan.AppendNull(valueB)
				errB.Append(callErr.Error())
				continue
			}
			if hasError {
				errB.AppendNull()
			}
			if v == nil {
				plan.AppendNull(valueB)
				continue
			}
			if err := plan.AppendValue(valueB, v); err != nil {
				return nil, fmt.Errorf("%s: %w", d.Name, err)
			}
		}
		return rb.NewRecordBatch(), nil
	}
}

// callRow invokes the user function for one row, going through the writer
// sink when the function streams its output.
func callRow(ctx context.Context, d *Descriptor, fn *UserFunction, row []any) (any, error) {
	if !fn.Write {
		return fn.Fn(ctx, row)
	}
	var buf bytes.Buffer
	ok, err := fn.WriteFn(ctx, row, &buf)
	if err != nil || !ok {
		return nil, err
	}
	if types.Canonical(d.Ret) == "bytea" {
		return bytes.Clone(buf.Bytes()), nil
	}
	return buf.String(), nil
}
