package udf

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/PsiACE/arrow-udf/types"
)

// TestBuilderPlanScalars tests the text encodings of decimal and json
// output columns.
func TestBuilderPlanScalars(t *testing.T) {
	plan, err := NewBuilderPlan("decimal")
	if err != nil {
		t.Fatalf("NewBuilderPlan failed: %v", err)
	}
	db := array.NewBuilder(memory.DefaultAllocator, arrow.BinaryTypes.LargeBinary)
	defer db.Release()
	d, err := types.ParseDecimal([]byte("1.50"))
	if err != nil {
		t.Fatalf("ParseDecimal failed: %v", err)
	}
	if err := plan.AppendValue(db, d); err != nil {
		t.Fatalf("AppendValue failed: %v", err)
	}
	dec := db.NewArray().(*array.LargeBinary)
	defer dec.Release()
	if got := string(dec.Value(0)); got != "1.50" {
		t.Errorf("decimal cell = %q, want 1.50", got)
	}

	plan, err = NewBuilderPlan("json")
	if err != nil {
		t.Fatalf("NewBuilderPlan failed: %v", err)
	}
	jb := array.NewBuilder(memory.DefaultAllocator, arrow.BinaryTypes.LargeString)
	defer jb.Release()
	if err := plan.AppendValue(jb, map[string]any{"key": int64(1)}); err != nil {
		t.Fatalf("AppendValue failed: %v", err)
	}
	js := jb.NewArray().(*array.LargeString)
	defer js.Release()
	if got := js.Value(0); got != `{"key":1}` {
		t.Errorf("json cell = %q", got)
	}
}

// TestBuilderPlanList tests nested appends including null elements.
func TestBuilderPlanList(t *testing.T) {
	plan, err := NewBuilderPlan("int4[]")
	if err != nil {
		t.Fatalf("NewBuilderPlan failed: %v", err)
	}
	dt, err := types.DataTypeOf("int4[]")
	if err != nil {
		t.Fatalf("DataTypeOf failed: %v", err)
	}
	if !arrow.TypeEqual(plan.DataType(), dt) {
		t.Errorf("plan type = %s, want %s", plan.DataType(), dt)
	}
	b := array.NewBuilder(memory.DefaultAllocator, dt)
	defer b.Release()

	if err := plan.AppendValue(b, []any{int32(1), nil, int32(3)}); err != nil {
		t.Fatalf("AppendValue failed: %v", err)
	}
	plan.AppendNull(b)

	arr := b.NewArray().(*array.List)
	defer arr.Release()
	if arr.Len() != 2 || !arr.IsNull(1) {
		t.Fatalf("unexpected list array: %v", arr)
	}
	vals := arr.ListValues().(*array.Int32)
	if vals.Len() != 3 || vals.Value(0) != 1 || !vals.IsNull(1) || vals.Value(2) != 3 {
		t.Errorf("unexpected elements: %v", vals)
	}
}

// TestStructReturnWithErrors tests the struct output contract end to end
// through a fallible evaluator: a failed row appends null to every field
// builder and marks the composite slot absent, keeping all children
// row-synchronized with the error column.
func TestStructReturnWithErrors(t *testing.T) {
	s, err := Build(Descriptor{Name: "parse_point", Args: []string{"int4"}, Ret: "struct<x:int4,y:int4>"},
		&UserFunction{
			Return: Fallible,
			Fn: func(ctx context.Context, args []any) (any, error) {
				v := args[0].(int32)
				if v < 0 {
					return nil, errors.New("negative input")
				}
				return map[string]any{"x": v, "y": v + 1}, nil
			},
		})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	input := int32Batch(t, "v", []int32{10, -1}, nil)
	defer input.Release()

	out, err := s.ScalarFn(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	defer out.Release()

	st := out.Column(0).(*array.Struct)
	errs := out.Column(1).(*array.String)

	if st.IsNull(0) || !errs.IsNull(0) {
		t.Error("successful row must have a value and a null error")
	}
	x := st.Field(0).(*array.Int32)
	y := st.Field(1).(*array.Int32)
	if x.Value(0) != 10 || y.Value(0) != 11 {
		t.Errorf("struct fields = (%d, %d), want (10, 11)", x.Value(0), y.Value(0))
	}

	if !st.IsNull(1) {
		t.Error("failed row must have a null composite")
	}
	if !x.IsNull(1) || !y.IsNull(1) {
		t.Error("field builders must stay row-synchronized on a null composite")
	}
	if errs.IsNull(1) {
		t.Error("failed row must carry an error text")
	}
	if st.Len() != x.Len() || st.Len() != errs.Len() {
		t.Errorf("column lengths diverged: struct %d, field %d, error %d", st.Len(), x.Len(), errs.Len())
	}
}

// TestStructFieldAppendsMapValues tests that struct cells index fields by
// name and tolerate absent keys as nulls.
func TestStructFieldAppendsMapValues(t *testing.T) {
	plan, err := NewBuilderPlan("struct<a:int4,b:varchar>")
	if err != nil {
		t.Fatalf("NewBuilderPlan failed: %v", err)
	}
	dt, err := types.DataTypeOf("struct<a:int4,b:varchar>")
	if err != nil {
		t.Fatalf("DataTypeOf failed: %v", err)
	}
	b := array.NewBuilder(memory.DefaultAllocator, dt)
	defer b.Release()

	if err := plan.AppendValue(b, map[string]any{"a": int32(5)}); err != nil {
		t.Fatalf("AppendValue failed: %v", err)
	}
	arr := b.NewArray().(*array.Struct)
	defer arr.Release()

	if arr.Field(0).(*array.Int32).Value(0) != 5 {
		t.Errorf("field a = %d", arr.Field(0).(*array.Int32).Value(0))
	}
	if !arr.Field(1).(*array.String).IsNull(0) {
		t.Error("absent field b must be null")
	}
}

// TestReadValueRoundtrip tests ReadValue against columns produced by the
// matching builder plan.
func TestReadValueRoundtrip(t *testing.T) {
	plan, err := NewBuilderPlan("varchar[]")
	if err != nil {
		t.Fatalf("NewBuilderPlan failed: %v", err)
	}
	dt, err := types.DataTypeOf("varchar[]")
	if err != nil {
		t.Fatalf("DataTypeOf failed: %v", err)
	}
	b := array.NewBuilder(memory.DefaultAllocator, dt)
	defer b.Release()
	if err := plan.AppendValue(b, []any{"x", nil, "z"}); err != nil {
		t.Fatalf("AppendValue failed: %v", err)
	}
	arr := b.NewArray()
	defer arr.Release()

	v, err := ReadValue("varchar[]", arr, 0)
	if err != nil {
		t.Fatalf("ReadValue failed: %v", err)
	}
	got := v.([]any)
	if len(got) != 3 || got[0] != "x" || got[1] != nil || got[2] != "z" {
		t.Errorf("roundtrip = %v", got)
	}
}
