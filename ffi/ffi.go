// Package ffi implements the cross-boundary call surface for generated
// functions: an export table mapping derived symbol names to entry points,
// and the request/response envelope those entry points speak.
//
// The envelope is a MessagePack frame around a zstd-compressed Arrow IPC
// stream. Scalar responses carry a single record batch; table responses
// carry a stream of batches. A host process that does not share the
// in-process type system locates an overload by its deterministic symbol
// name, encodes the input batch into a request, and decodes the output
// from the response.
package ffi

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/PsiACE/arrow-udf/sig"
)

// EntryPoint decodes a request envelope, evaluates the function and encodes
// the response envelope. A non-nil error corresponds to the non-zero return
// code of the C-level symbol.
type EntryPoint func(request []byte) (response []byte, err error)

var (
	exportsMu sync.RWMutex
	exports   = make(map[string]EntryPoint)
)

// Export installs an entry point under its symbol name. Later exports of
// the same symbol win, mirroring linker behavior for duplicate symbols.
func Export(symbol string, fn EntryPoint) {
	exportsMu.Lock()
	defer exportsMu.Unlock()
	exports[symbol] = fn
}

// Lookup resolves an exported entry point by symbol name.
func Lookup(symbol string) (EntryPoint, bool) {
	exportsMu.RLock()
	defer exportsMu.RUnlock()
	fn, ok := exports[symbol]
	return fn, ok
}

// Symbols returns every exported symbol name.
func Symbols() []string {
	exportsMu.RLock()
	defer exportsMu.RUnlock()
	out := make([]string, 0, len(exports))
	for s := range exports {
		out = append(out, s)
	}
	return out
}

// ScalarWrapper adapts a generated scalar evaluation routine into an entry
// point speaking the envelope protocol.
func ScalarWrapper(eval sig.ScalarFunc) EntryPoint {
	return func(request []byte) ([]byte, error) {
		input, err := DecodeBatch(request)
		if err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		defer input.Release()
		output, err := eval(context.Background(), input)
		if err != nil {
			return nil, err
		}
		defer output.Release()
		response, err := EncodeBatch(output)
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		return response, nil
	}
}

// TableWrapper adapts a generated table evaluation routine into an entry
// point. The output stream is drained eagerly and shipped as one IPC
// stream of batches; hosts decode it with DecodeStream.
func TableWrapper(eval sig.TableFunc) EntryPoint {
	return func(request []byte) ([]byte, error) {
		input, err := DecodeBatch(request)
		if err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		defer input.Release()
		reader, err := eval(context.Background(), input)
		if err != nil {
			return nil, err
		}
		defer reader.Release()
		var batches []arrow.RecordBatch
		defer func() {
			for _, b := range batches {
				b.Release()
			}
		}()
		for reader.Next() {
			b := reader.RecordBatch()
			b.Retain()
			batches = append(batches, b)
		}
		if err := reader.Err(); err != nil {
			return nil, err
		}
		response, err := EncodeStream(reader.Schema(), batches)
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		return response, nil
	}
}

// Call is the in-process equivalent of resolving a symbol in a loaded
// library and invoking it.
func Call(symbol string, input arrow.RecordBatch) (arrow.RecordBatch, error) {
	fn, ok := Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("symbol not exported: %s", symbol)
	}
	request, err := EncodeBatch(input)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	response, err := fn(request)
	if err != nil {
		return nil, err
	}
	return DecodeBatch(response)
}
