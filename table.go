package udf

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/PsiACE/arrow-udf/sig"
)

// batchSize is the row threshold at which a table function flushes an
// output batch.
const batchSize = 1024

// generateTable emits the evaluation routine for a set-returning function.
// The routine validates the input columns up front (cast errors abort the
// call) and returns a lazy single-pass reader over the output batches.
func generateTable(d *Descriptor, fn *UserFunction, infer sig.InferFunc) sig.TableFunc {
	desc := *d
	d = &desc
	hasError := fn.Return.CanFail() || fn.Item.CanFail()

	return func(ctx context.Context, input arrow.RecordBatch) (array.RecordReader, error) {
		cols, varCols, err := downcastArgs(d, input)
		if err != nil {
			return nil, err
		}
		retLogical, retDT, err := resolveRet(d, infer, cols)
		if err != nil {
			return nil, err
		}
		plan, err := NewBuilderPlan(retLogical)
		if err != nil {
			return nil, err
		}

		fields := []arrow.Field{
			{Name: "row", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
			{Name: d.Name, Type: retDT, Nullable: true},
		}
		if hasError {
			fields = append(fields, errorField)
		}
		schema := arrow.NewSchema(fields, nil)

		input.Retain()
		r := &tableReader{
			ctx:      ctx,
			d:        d,
			fn:       fn,
			plan:     plan,
			hasError: hasError,
			schema:   schema,
			input:    input,
			cols:     cols,
			varCols:  varCols,
			nrows:    int(input.NumRows()),
			rb:       array.NewRecordBuilder(memory.DefaultAllocator, schema),
		}
		r.refs.Store(1)
		return r, nil
	}
}

// tableReader streams the output of a table function as batches of at most
// batchSize rows. It is single-pass and not restartable: consuming it twice
// is undefined, callers must exhaust it once and release it.
type tableReader struct {
	refs atomic.Int64

	ctx      context.Context
	d        *Descriptor
	fn       *UserFunction
	plan     *BuilderPlan
	hasError bool

	schema  *arrow.Schema
	input   arrow.RecordBatch
	cols    []arrow.Array
	varCols []arrow.Array
	nrows   int

	rb  *array.RecordBuilder
	cur RowIter // iterator over the current row's items, nil between rows
	row int     // next input row to pull
	idx int     // input row the current iterator belongs to

	rec  arrow.RecordBatch
	err  error
	done bool
}

func (r *tableReader) Schema() *arrow.Schema { return r.schema }

func (r *tableReader) Retain() { r.refs.Add(1) }

func (r *tableReader) Release() {
	if r.refs.Add(-1) != 0 {
		return
	}
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
	r.rb.Release()
	r.input.Release()
}

func (r *tableReader) RecordBatch() arrow.RecordBatch { return r.rec }

func (r *tableReader) Record() arrow.RecordBatch { return r.rec }

func (r *tableReader) Err() error { return r.err }

func (r *tableReader) Next() bool {
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
	if r.err != nil || r.done {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return false
	}
	for {
		if r.cur == nil {
			if r.row >= r.nrows {
				// Input exhausted: flush the final partial batch if any
				// rows are pending.
				r.done = true
				if r.pending() > 0 {
					r.rec = r.rb.NewRecordBatch()
					return true
				}
				return false
			}
			i := r.row
			r.row++
			row, gated, err := readRow(r.d.fixedArgs(), r.fn, r.cols, r.varCols, i)
			if err != nil {
				r.err = err
				return false
			}
			if gated {
				continue
			}
			iter, err := r.fn.TableFn(r.ctx, row)
			if err != nil {
				// A row-level failure becomes one output item with a null
				// value and the error text.
				if !r.hasError {
					r.err = err
					return false
				}
				if flushed := r.append(i, nil, err); flushed {
					return true
				}
				continue
			}
			if iter == nil {
				continue
			}
			r.cur, r.idx = iter, i
			continue
		}

		v, itemErr, ok := r.cur()
		if !ok {
			r.cur = nil
			continue
		}
		if itemErr != nil && !r.hasError {
			r.err = itemErr
			return false
		}
		if flushed := r.append(r.idx, v, itemErr); flushed {
			return true
		}
		if r.err != nil {
			return false
		}
	}
}

func (r *tableReader) pending() int { return r.rb.Field(0).Len() }

// append writes one (row index, value, error) triple and flushes a batch
// into r.rec once the threshold is reached. Returns true when a batch was
// flushed.
func (r *tableReader) append(row int, v any, itemErr error) bool {
	r.rb.Field(0).(*array.Int32Builder).Append(int32(row))
	valueB := r.rb.Field(1)
	switch {
	case itemErr != nil:
		r.plan.AppendNull(valueB)
		r.rb.Field(2).(*array.StringBuilder).Append(itemErr.Error())
	case v == nil:
		r.plan.AppendNull(valueB)
		if r.hasError {
			r.rb.Field(2).(*array.StringBuilder).AppendNull()
		}
	default:
		if err := r.plan.AppendValue(valueB, v); err != nil {
			r.err = fmt.Errorf("%s: %w", r.d.Name, err)
			return false
		}
		if r.hasError {
			r.rb.Field(2).(*array.StringBuilder).AppendNull()
		}
	}
	if r.pending() >= batchSize {
		r.rec = r.rb.NewRecordBatch()
		return true
	}
	return false
}
