package udf

import (
	"testing"
)

// TestExpandConcrete tests that descriptors without patterns expand to
// themselves, unchanged.
func TestExpandConcrete(t *testing.T) {
	d := Descriptor{Name: "add", Args: []string{"int4", "int4"}, Ret: "int4"}
	out := Expand(d)
	if len(out) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(out))
	}
	if out[0].Name != "add" || out[0].Ret != "int4" || len(out[0].Args) != 2 {
		t.Errorf("expansion altered the descriptor: %+v", out[0])
	}
}

// TestExpandCartesian tests that patterns at different positions expand
// independently into the full cartesian product.
func TestExpandCartesian(t *testing.T) {
	d := Descriptor{Name: "cmp", Args: []string{"*int*", "*float*"}, Ret: "boolean"}
	out := Expand(d)
	if len(out) != 6 {
		t.Fatalf("expected 3*2 = 6 overloads, got %d", len(out))
	}
	seen := make(map[string]bool)
	for _, e := range out {
		seen[e.Args[0]+"/"+e.Args[1]] = true
	}
	for _, want := range []string{"int2/float4", "int8/float8", "int4/float4"} {
		if !seen[want] {
			t.Errorf("missing overload %s", want)
		}
	}
}

// TestExpandReturnPattern tests a pattern in the return position combined
// with argument patterns.
func TestExpandReturnPattern(t *testing.T) {
	d := Descriptor{Name: "widen", Args: []string{"*int*"}, Ret: "*float*"}
	out := Expand(d)
	if len(out) != 6 {
		t.Fatalf("expected 3*2 = 6 overloads, got %d", len(out))
	}
}

// TestExpandRepeatedPattern tests that a pattern used twice is NOT unified:
// mixed-type combinations like (int2, int8) are produced.
func TestExpandRepeatedPattern(t *testing.T) {
	d := Descriptor{Name: "pair", Args: []string{"*int*", "*int*"}, Ret: "boolean"}
	out := Expand(d)
	if len(out) != 9 {
		t.Fatalf("expected 9 overloads, got %d", len(out))
	}
	mixed := false
	for _, e := range out {
		if e.Args[0] != e.Args[1] {
			mixed = true
		}
	}
	if !mixed {
		t.Error("repeated patterns were unified; mixed combinations expected")
	}
}

// TestExpandZeroArgs tests that a zero-argument descriptor still yields one
// overload per return expansion instead of an empty product.
func TestExpandZeroArgs(t *testing.T) {
	d := Descriptor{Name: "now", Args: nil, Ret: "timestamp"}
	out := Expand(d)
	if len(out) != 1 {
		t.Fatalf("expected 1 overload, got %d", len(out))
	}
	if len(out[0].Args) != 0 {
		t.Errorf("expected no arguments, got %v", out[0].Args)
	}

	d = Descriptor{Name: "rand", Args: nil, Ret: "*float*"}
	out = Expand(d)
	if len(out) != 2 {
		t.Fatalf("expected 2 overloads for a return pattern, got %d", len(out))
	}
}

// TestExpandWildcardClassesPassThrough tests that "any", "anyarray" and
// "struct" survive expansion unchanged.
func TestExpandWildcardClassesPassThrough(t *testing.T) {
	d := Descriptor{Name: "identity", Args: []string{"any"}, Ret: "any"}
	out := Expand(d)
	if len(out) != 1 || out[0].Args[0] != "any" || out[0].Ret != "any" {
		t.Errorf("wildcard classes must not expand: %+v", out)
	}
}
