package udf

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/PsiACE/arrow-udf/types"
)

// fastPathEligible selects the vectorized scalar path: primitive return and
// argument types, at most two arguments, no variadic tail, no null-accepting
// arguments, and a pure user function. Only then is it safe to drop the null
// gate, the error column and the per-row branching of the generic loop.
func fastPathEligible(d *Descriptor, fn *UserFunction) bool {
	if d.Kind != Scalar || d.BatchFn != nil || d.Variadic() || !fn.pure() {
		return false
	}
	for _, opt := range fn.ArgsOption {
		// A null-accepting argument must reach the function as nil; the
		// fast loops short-circuit null rows and would never call it.
		if opt {
			return false
		}
	}
	args := d.fixedArgs()
	if len(args) > 2 || !types.IsPrimitive(d.Ret) {
		return false
	}
	for _, a := range args {
		if !types.IsPrimitive(a) {
			return false
		}
	}
	return true
}

// fastScalar evaluates 0, 1 or 2 primitive arguments in a tight loop with
// no error column. The nullary form replicates a single computed value
// across the row count; the unary form carries the input validity through;
// the binary form combines both validities. A failure under the binary form
// aborts the whole call rather than producing a per-row error cell, unlike
// the generic path.
func fastScalar(ctx context.Context, d *Descriptor, fn *UserFunction, cols []arrow.Array, nrows int, retDT arrow.DataType, plan *BuilderPlan) (arrow.RecordBatch, error) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: d.Name, Type: retDT, Nullable: true},
	}, nil)
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()
	b := rb.Field(0)
	args := d.fixedArgs()

	switch len(cols) {
	case 0:
		v, err := fn.Fn(ctx, nil)
		if err != nil {
			return nil, err
		}
		for i := 0; i < nrows; i++ {
			if err := plan.AppendValue(b, v); err != nil {
				return nil, fmt.Errorf("%s: %w", d.Name, err)
			}
		}
	case 1:
		a0 := cols[0]
		for i := 0; i < nrows; i++ {
			if a0.IsNull(i) {
				b.AppendNull()
				continue
			}
			v0, err := ReadValue(args[0], a0, i)
			if err != nil {
				return nil, err
			}
			v, err := fn.Fn(ctx, []any{v0})
			if err != nil {
				return nil, err
			}
			if err := plan.AppendValue(b, v); err != nil {
				return nil, fmt.Errorf("%s: %w", d.Name, err)
			}
		}
	case 2:
		a0, a1 := cols[0], cols[1]
		if a0.Len() != a1.Len() {
			return nil, fmt.Errorf("%s: argument lengths differ: %d != %d", d.Name, a0.Len(), a1.Len())
		}
		for i := 0; i < nrows; i++ {
			if a0.IsNull(i) || a1.IsNull(i) {
				b.AppendNull()
				continue
			}
			v0, err := ReadValue(args[0], a0, i)
			if err != nil {
				return nil, err
			}
			v1, err := ReadValue(args[1], a1, i)
			if err != nil {
				return nil, err
			}
			v, err := fn.Fn(ctx, []any{v0, v1})
			if err != nil {
				// Batch-level abort, not a per-row error cell.
				return nil, err
			}
			if err := plan.AppendValue(b, v); err != nil {
				return nil, fmt.Errorf("%s: %w", d.Name, err)
			}
		}
	}
	return rb.NewRecordBatch(), nil
}
