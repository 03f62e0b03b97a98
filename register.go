package udf

import (
	"fmt"

	"github.com/PsiACE/arrow-udf/ffi"
	"github.com/PsiACE/arrow-udf/sig"
)

// Register expands the descriptor, builds an evaluation routine for every
// monomorphic overload and installs the resulting signatures into
// sig.DefaultRegistry. Every overload additionally gets a cross-boundary
// entry point exported under its derived symbol name: scalar responses
// carry one batch, table responses a stream of batches.
//
// Registration is expected to run during an explicit initialization phase,
// before any lookups. A configuration error aborts the whole descriptor;
// no partial artifact is registered.
func Register(d Descriptor, fn *UserFunction) error {
	sigs, err := BuildAll(d, fn)
	if err != nil {
		return err
	}
	for _, s := range sigs {
		sig.DefaultRegistry.Register(s)
		if s.Kind == sig.Scalar {
			ffi.Export(s.ExportSymbol(), ffi.ScalarWrapper(s.ScalarFn))
		} else {
			ffi.Export(s.ExportSymbol(), ffi.TableWrapper(s.TableFn))
		}
	}
	return nil
}

// BuildAll expands the descriptor and builds every monomorphic overload
// without registering anything.
func BuildAll(d Descriptor, fn *UserFunction) ([]*sig.FunctionSignature, error) {
	expanded := Expand(d)
	sigs := make([]*sig.FunctionSignature, 0, len(expanded))
	for _, mono := range expanded {
		s, err := Build(mono, fn)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", mono.Name, err)
		}
		sigs = append(sigs, s)
	}
	return sigs, nil
}
