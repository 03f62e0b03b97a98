package udf

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

// TestInferConcreteReturn tests that a concrete return type infers as
// itself, ignoring the argument types.
func TestInferConcreteReturn(t *testing.T) {
	d := Descriptor{Name: "length", Args: []string{"varchar"}, Ret: "int4"}
	infer, err := typeInferFn(&d)
	if err != nil {
		t.Fatalf("typeInferFn failed: %v", err)
	}
	got, err := infer([]arrow.DataType{arrow.BinaryTypes.String})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if !arrow.TypeEqual(got, arrow.PrimitiveTypes.Int32) {
		t.Errorf("inferred %s, want int32", got)
	}
}

// TestInferAnyFromAnyArg tests that an "any" return takes exactly the type
// of the first "any" argument, unaffected by the other arguments' types.
func TestInferAnyFromAnyArg(t *testing.T) {
	d := Descriptor{Name: "coalesce2", Args: []string{"any", "any"}, Ret: "any"}
	infer, err := typeInferFn(&d)
	if err != nil {
		t.Fatalf("typeInferFn failed: %v", err)
	}
	got, err := infer([]arrow.DataType{arrow.PrimitiveTypes.Float64, arrow.BinaryTypes.String})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if !arrow.TypeEqual(got, arrow.PrimitiveTypes.Float64) {
		t.Errorf("inferred %s, want float64", got)
	}
}

// TestInferAnyFromArrayElem tests that an "any" return with no "any"
// argument falls back to the element type of the first "anyarray" argument.
func TestInferAnyFromArrayElem(t *testing.T) {
	d := Descriptor{Name: "array_max", Args: []string{"anyarray"}, Ret: "any"}
	infer, err := typeInferFn(&d)
	if err != nil {
		t.Fatalf("typeInferFn failed: %v", err)
	}
	got, err := infer([]arrow.DataType{arrow.ListOf(arrow.PrimitiveTypes.Int64)})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if !arrow.TypeEqual(got, arrow.PrimitiveTypes.Int64) {
		t.Errorf("inferred %s, want int64", got)
	}
}

// TestInferArrayFromElem tests that an "anyarray" return with only an "any"
// argument infers a list of that argument's type.
func TestInferArrayFromElem(t *testing.T) {
	d := Descriptor{Name: "array_fill", Args: []string{"any", "int4"}, Ret: "anyarray"}
	infer, err := typeInferFn(&d)
	if err != nil {
		t.Fatalf("typeInferFn failed: %v", err)
	}
	got, err := infer([]arrow.DataType{arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int32})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if !arrow.TypeEqual(got, arrow.ListOf(arrow.BinaryTypes.String)) {
		t.Errorf("inferred %s, want list<utf8>", got)
	}
}

// TestInferExplicitOverride tests that a descriptor-supplied inference
// function wins over the synthesized chain.
func TestInferExplicitOverride(t *testing.T) {
	d := Descriptor{
		Name: "custom",
		Args: []string{"any"},
		Ret:  "any",
		TypeInfer: func(args []arrow.DataType) (arrow.DataType, error) {
			return arrow.BinaryTypes.String, nil
		},
	}
	infer, err := typeInferFn(&d)
	if err != nil {
		t.Fatalf("typeInferFn failed: %v", err)
	}
	got, err := infer([]arrow.DataType{arrow.PrimitiveTypes.Int32})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if !arrow.TypeEqual(got, arrow.BinaryTypes.String) {
		t.Errorf("explicit inference ignored: got %s", got)
	}
}

// TestInferUnsatisfiable tests that a wildcard return with no argument to
// derive it from is a configuration error.
func TestInferUnsatisfiable(t *testing.T) {
	d := Descriptor{Name: "broken", Args: []string{"int4"}, Ret: "any"}
	if _, err := typeInferFn(&d); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}
