package ffi

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func testBatch(t *testing.T, values []int32, valid []bool) arrow.RecordBatch {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "v", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	}, nil)
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()
	rb.Field(0).(*array.Int32Builder).AppendValues(values, valid)
	return rb.NewRecordBatch()
}

// TestEnvelopeRoundtrip tests that a batch survives encode/decode,
// including null slots.
func TestEnvelopeRoundtrip(t *testing.T) {
	in := testBatch(t, []int32{1, 0, 3}, []bool{true, false, true})
	defer in.Release()

	data, err := EncodeBatch(in)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}
	out, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}
	defer out.Release()

	if !out.Schema().Equal(in.Schema()) {
		t.Errorf("schema changed: %s", out.Schema())
	}
	col := out.Column(0).(*array.Int32)
	if col.Value(0) != 1 || !col.IsNull(1) || col.Value(2) != 3 {
		t.Errorf("values changed: %v", col)
	}
}

// TestStreamRoundtrip tests the multi-batch envelope used by table entry
// points, including the zero-batch case.
func TestStreamRoundtrip(t *testing.T) {
	a := testBatch(t, []int32{1, 2}, nil)
	defer a.Release()
	b := testBatch(t, []int32{3}, nil)
	defer b.Release()

	data, err := EncodeStream(a.Schema(), []arrow.RecordBatch{a, b})
	if err != nil {
		t.Fatalf("EncodeStream failed: %v", err)
	}
	out, err := DecodeStream(data)
	if err != nil {
		t.Fatalf("DecodeStream failed: %v", err)
	}
	defer func() {
		for _, batch := range out {
			batch.Release()
		}
	}()
	if len(out) != 2 || out[0].NumRows() != 2 || out[1].NumRows() != 1 {
		t.Fatalf("unexpected stream shape: %d batches", len(out))
	}
	if got := out[1].Column(0).(*array.Int32).Value(0); got != 3 {
		t.Errorf("second batch value = %d, want 3", got)
	}

	data, err = EncodeStream(a.Schema(), nil)
	if err != nil {
		t.Fatalf("EncodeStream of empty stream failed: %v", err)
	}
	out, err = DecodeStream(data)
	if err != nil {
		t.Fatalf("DecodeStream of empty stream failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no batches, got %d", len(out))
	}
}

// TestDecodeBadEnvelope tests rejection of garbage and unknown codecs.
func TestDecodeBadEnvelope(t *testing.T) {
	if _, err := DecodeBatch([]byte("not msgpack")); err == nil {
		t.Error("expected error for malformed envelope")
	}
}

// TestExportLookupCall tests the full symbol path: an exported wrapper is
// resolvable and evaluates through the envelope protocol.
func TestExportLookupCall(t *testing.T) {
	eval := func(ctx context.Context, input arrow.RecordBatch) (arrow.RecordBatch, error) {
		in := input.Column(0).(*array.Int32)
		schema := arrow.NewSchema([]arrow.Field{
			{Name: "neg", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		}, nil)
		rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		defer rb.Release()
		for i := 0; i < in.Len(); i++ {
			if in.IsNull(i) {
				rb.Field(0).(*array.Int32Builder).AppendNull()
				continue
			}
			rb.Field(0).(*array.Int32Builder).Append(-in.Value(i))
		}
		return rb.NewRecordBatch(), nil
	}

	const symbol = "arrowudf_test_neg"
	Export(symbol, ScalarWrapper(eval))

	if _, ok := Lookup(symbol); !ok {
		t.Fatal("exported symbol not found")
	}
	found := false
	for _, s := range Symbols() {
		if s == symbol {
			found = true
		}
	}
	if !found {
		t.Error("Symbols() does not list the exported symbol")
	}

	in := testBatch(t, []int32{5, 0}, []bool{true, false})
	defer in.Release()

	out, err := Call(symbol, in)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	defer out.Release()

	col := out.Column(0).(*array.Int32)
	if col.Value(0) != -5 || !col.IsNull(1) {
		t.Errorf("unexpected output: %v", col)
	}
}

// TestCallUnknownSymbol tests the error path for unresolved symbols.
func TestCallUnknownSymbol(t *testing.T) {
	in := testBatch(t, []int32{1}, nil)
	defer in.Release()
	if _, err := Call("arrowudf_no_such_symbol", in); err == nil {
		t.Error("expected error for unknown symbol")
	}
}

// TestCallPropagatesEvalError tests that an evaluation failure surfaces to
// the caller.
func TestCallPropagatesEvalError(t *testing.T) {
	boom := errors.New("boom")
	Export("arrowudf_test_fail", ScalarWrapper(func(ctx context.Context, input arrow.RecordBatch) (arrow.RecordBatch, error) {
		return nil, boom
	}))

	in := testBatch(t, []int32{1}, nil)
	defer in.Release()
	if _, err := Call("arrowudf_test_fail", in); !errors.Is(err, boom) {
		t.Errorf("expected the evaluation error, got %v", err)
	}
}
