package udf

import (
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/PsiACE/arrow-udf/sig"
	"github.com/PsiACE/arrow-udf/types"
)

// typeInferFn synthesizes the return-type inference function for a
// descriptor. Precedence:
//
//  1. an explicit TypeInfer on the descriptor is used as-is;
//  2. "any" return infers as the first "any" argument, else the element
//     type of the first "anyarray" argument;
//  3. "anyarray" return infers as the first "anyarray" argument, else a
//     list of the first "any" argument;
//  4. "struct" return infers as the first "struct" argument;
//  5. a concrete return type infers as itself.
//
// An unsatisfiable combination (for example an "any" return with no
// matching argument) is a configuration error: inference is a hard
// requirement of catalog registration, not best-effort.
func typeInferFn(d *Descriptor) (sig.InferFunc, error) {
	if d.TypeInfer != nil {
		return d.TypeInfer, nil
	}
	args := d.fixedArgs()
	switch types.Canonical(d.Ret) {
	case types.Any:
		if i := slices.Index(args, types.Any); i >= 0 {
			return nthArg(i), nil
		}
		if i := slices.Index(args, types.AnyArray); i >= 0 {
			return elemOfNthArg(i), nil
		}
	case types.AnyArray:
		if i := slices.Index(args, types.AnyArray); i >= 0 {
			return nthArg(i), nil
		}
		if i := slices.Index(args, types.Any); i >= 0 {
			return listOfNthArg(i), nil
		}
	case types.AnyStruct:
		if i := slices.Index(args, types.AnyStruct); i >= 0 {
			return nthArg(i), nil
		}
	default:
		dt, err := types.DataTypeOf(d.Ret)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfig, d.Name, err)
		}
		return func([]arrow.DataType) (arrow.DataType, error) {
			return dt, nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %s: type inference function is required", ErrConfig, d.Name)
}

func nthArg(i int) sig.InferFunc {
	return func(args []arrow.DataType) (arrow.DataType, error) {
		if i >= len(args) {
			return nil, fmt.Errorf("missing argument %d", i)
		}
		return args[i], nil
	}
}

func elemOfNthArg(i int) sig.InferFunc {
	return func(args []arrow.DataType) (arrow.DataType, error) {
		if i >= len(args) {
			return nil, fmt.Errorf("missing argument %d", i)
		}
		list, ok := args[i].(*arrow.ListType)
		if !ok {
			return nil, fmt.Errorf("argument %d is %s, expected a list", i, args[i])
		}
		return list.Elem(), nil
	}
}

func listOfNthArg(i int) sig.InferFunc {
	return func(args []arrow.DataType) (arrow.DataType, error) {
		if i >= len(args) {
			return nil, fmt.Errorf("missing argument %d", i)
		}
		return arrow.ListOf(args[i]), nil
	}
}
