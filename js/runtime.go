// Package js embeds a JavaScript engine and evaluates user functions
// over arrow record batches row by row.
//
// A function is registered from source code that defines a top-level
// function with the registered name. Input cells are converted to
// JavaScript values, the function is called once per row, and the results
// are collected into a single nullable output column named after the
// function.
package js

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/dop251/goja"

	udf "github.com/PsiACE/arrow-udf"
	"github.com/PsiACE/arrow-udf/types"
)

// Runtime hosts registered JavaScript functions in a single engine
// instance. It is not safe for concurrent use: the underlying engine is
// single-threaded, so guard a shared Runtime with a mutex or give each
// goroutine its own.
type Runtime struct {
	vm        *goja.Runtime
	dateCtor  goja.Value
	functions map[string]*function
}

type function struct {
	fn      goja.Callable
	logical string
	ret     arrow.DataType
	mode    udf.CallMode
}

// New creates an empty runtime.
func New() *Runtime {
	vm := goja.New()
	return &Runtime{
		vm:        vm,
		dateCtor:  vm.Get("Date"),
		functions: make(map[string]*function),
	}
}

// AddFunction compiles code and registers the top-level function named
// name. The return type determines how results are coerced back into
// arrow values; mode controls whether the function runs on rows with
// null arguments.
func (r *Runtime) AddFunction(name string, returnType arrow.DataType, mode udf.CallMode, code string) error {
	if _, err := r.vm.RunString(code); err != nil {
		return fmt.Errorf("compile function %q: %w", name, err)
	}
	v := r.vm.Get(name)
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return fmt.Errorf("code does not define a function named %q", name)
	}
	logical, err := types.LogicalOf(returnType)
	if err != nil {
		return fmt.Errorf("unsupported return type for %q: %w", name, err)
	}
	r.functions[name] = &function{fn: fn, logical: logical, ret: returnType, mode: mode}
	return nil
}

// Call evaluates the named function once per input row and returns a
// batch with one nullable column named after the function. A thrown
// exception aborts the whole batch.
func (r *Runtime) Call(ctx context.Context, name string, input arrow.RecordBatch) (arrow.RecordBatch, error) {
	f, ok := r.functions[name]
	if !ok {
		return nil, fmt.Errorf("function %q not found", name)
	}
	plan, err := udf.NewBuilderPlan(f.logical)
	if err != nil {
		return nil, err
	}
	schema := arrow.NewSchema([]arrow.Field{
		{Name: name, Type: f.ret, Nullable: true},
	}, nil)
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()
	out := rb.Field(0)

	ncols := int(input.NumCols())
	args := make([]goja.Value, ncols)
	for i := 0; i < int(input.NumRows()); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hasNull := false
		for j := 0; j < ncols; j++ {
			col := input.Column(j)
			if col.IsNull(i) {
				args[j] = goja.Null()
				hasNull = true
				continue
			}
			v, err := udf.ReadValue(types.Any, col, i)
			if err != nil {
				return nil, err
			}
			args[j], err = r.jsValue(v)
			if err != nil {
				return nil, err
			}
		}
		if hasNull && f.mode == udf.ReturnNullOnNullInput {
			plan.AppendNull(out)
			continue
		}
		res, err := f.fn(goja.Undefined(), args...)
		if err != nil {
			return nil, fmt.Errorf("call function %q: %w", name, err)
		}
		v, err := r.coerce(f.logical, res)
		if err != nil {
			return nil, fmt.Errorf("convert result of %q: %w", name, err)
		}
		if v == nil {
			plan.AppendNull(out)
			continue
		}
		if err := plan.AppendValue(out, v); err != nil {
			return nil, fmt.Errorf("convert result of %q: %w", name, err)
		}
	}
	return rb.NewRecordBatch(), nil
}
