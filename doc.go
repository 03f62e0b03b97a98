// Package udf turns declarative function descriptors into batch evaluators
// over Apache Arrow record batches.
//
// A Descriptor names a function and declares its argument and return types
// in a logical type DSL (see package types). Build compiles one descriptor
// into a FunctionSignature whose evaluator reads input columns, invokes a
// user-supplied row or batch function, and assembles the output columns.
// Expand resolves wildcard type patterns into concrete overloads first, so
// one descriptor can produce a family of signatures.
//
// # Quick Start
//
// Register a two-argument scalar function and evaluate a batch:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/apache/arrow-go/v18/arrow"
//	    "github.com/apache/arrow-go/v18/arrow/array"
//	    "github.com/apache/arrow-go/v18/arrow/memory"
//
//	    udf "github.com/PsiACE/arrow-udf"
//	)
//
//	func main() {
//	    sig, err := udf.Build(udf.Descriptor{
//	        Name: "gcd",
//	        Args: []string{"int4", "int4"},
//	        Ret:  "int4",
//	    }, &udf.UserFunction{
//	        Fn: func(ctx context.Context, args []any) (any, error) {
//	            a, b := args[0].(int32), args[1].(int32)
//	            for b != 0 {
//	                a, b = b, a%b
//	            }
//	            return a, nil
//	        },
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    schema := arrow.NewSchema([]arrow.Field{
//	        {Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
//	        {Name: "b", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
//	    }, nil)
//	    rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
//	    defer rb.Release()
//	    rb.Field(0).(*array.Int32Builder).AppendValues([]int32{25, 300}, nil)
//	    rb.Field(1).(*array.Int32Builder).AppendValues([]int32{15, 175}, nil)
//	    input := rb.NewRecordBatch()
//	    defer input.Release()
//
//	    out, err := sig.ScalarFn(context.Background(), input)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer out.Release()
//	    log.Println(out.Column(0)) // [5 25]
//	}
//
// # Architecture
//
// Evaluation is split into small planned pieces:
//
//   - Expand: resolves wildcard patterns ("*", "*int*", "*float*") into a
//     cartesian product of concrete overloads
//   - Build: validates a descriptor and compiles its evaluator closure
//   - BuilderPlan / ReadValue: the per-type bridge between domain values
//     and arrow builders and arrays
//   - sig.Registry: name and type based lookup of built signatures
//   - ffi: a symbol table exposing evaluators over a serialized
//     batch-in, batch-out envelope
//
// Table functions return an array.RecordReader that streams output in
// batches of at most 1024 rows, with a row-index column pairing every item
// to the input row that produced it.
//
// # Null Handling
//
// Each argument independently declares whether the function accepts a null
// for it (UserFunction.ArgsOption). A row where a non-accepting argument is
// null short-circuits to a null result without invoking the function.
// Fallible functions record per-row errors in a trailing error column
// instead of failing the batch.
//
// # Context Cancellation
//
// All evaluators take a context.Context and stop between rows when it is
// cancelled. Table-function readers check the context on every pulled
// batch.
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// record batches returned by evaluators and on RecordReaders returned by
// table functions. Use defer out.Release() immediately after a successful
// call.
package udf
