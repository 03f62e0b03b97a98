package udf

import "github.com/PsiACE/arrow-udf/types"

// Expand replaces every wildcard pattern in the descriptor's argument and
// return types with every concrete type it denotes, producing the cartesian
// product over all positions. Descriptors without patterns expand to
// themselves.
//
// Wildcard classes ("any", "anyarray", "struct") are not patterns; they
// pass through unchanged. Repeated patterns at different positions expand
// independently; no unification to a single concrete type is performed.
func Expand(d Descriptor) []Descriptor {
	choices := make([][]string, len(d.Args))
	for i, ty := range d.Args {
		choices[i] = types.ExpandWildcard(ty)
	}
	// A cartesian product over zero positions is conventionally empty;
	// a zero-argument descriptor must still yield one empty combination.
	combos := cartesian(choices)
	if len(d.Args) == 0 {
		combos = [][]string{{}}
	}
	rets := types.ExpandWildcard(d.Ret)

	out := make([]Descriptor, 0, len(combos)*len(rets))
	for _, args := range combos {
		for _, ret := range rets {
			expanded := d
			expanded.Args = args
			expanded.Ret = ret
			out = append(out, expanded)
		}
	}
	return out
}

func cartesian(choices [][]string) [][]string {
	if len(choices) == 0 {
		return nil
	}
	out := [][]string{{}}
	for _, candidates := range choices {
		next := make([][]string, 0, len(out)*len(candidates))
		for _, prefix := range out {
			for _, c := range candidates {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, c))
			}
		}
		out = next
	}
	return out
}
