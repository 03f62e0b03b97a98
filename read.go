package udf

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/PsiACE/arrow-udf/types"
)

// bytesArray and stringArray abstract over the regular and large variants
// of the binary and string arrays.
type bytesArray interface{ Value(i int) []byte }
type stringArray interface{ Value(i int) string }

// checkColumn validates that an input column carries the physical type the
// declared logical type requires. Wildcard-class arguments are checked by
// shape only. A mismatch is a cast error that aborts the whole call before
// any row is processed.
func checkColumn(logical string, pos int, col arrow.Array) error {
	switch types.Canonical(logical) {
	case types.Any:
		return nil
	case types.AnyArray:
		if _, ok := col.DataType().(*arrow.ListType); !ok {
			return fmt.Errorf("%w: expect a list array for the %d-th argument, got %s", ErrCast, pos, col.DataType())
		}
		return nil
	case types.AnyStruct:
		if _, ok := col.DataType().(*arrow.StructType); !ok {
			return fmt.Errorf("%w: expect a struct array for the %d-th argument, got %s", ErrCast, pos, col.DataType())
		}
		return nil
	}
	want, err := types.DataTypeOf(logical)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if !arrow.TypeEqual(want, col.DataType()) {
		return fmt.Errorf("%w: expect %s for the %d-th argument, got %s", ErrCast, want, pos, col.DataType())
	}
	return nil
}

// ReadValue reads the domain value of one non-null cell. For wildcard-class
// arguments the logical type is resolved from the column's actual type.
func ReadValue(logical string, col arrow.Array, i int) (any, error) {
	logical = types.Canonical(logical)
	if types.IsWildcardClass(logical) {
		resolved, err := types.LogicalOf(col.DataType())
		if err != nil {
			return nil, err
		}
		logical = resolved
	}
	switch {
	case types.IsList(logical):
		return readList(logical, col.(*array.List), i)
	case types.IsStruct(logical):
		return readStruct(logical, col.(*array.Struct), i)
	}
	switch logical {
	case "void":
		return nil, nil
	case "boolean":
		return col.(*array.Boolean).Value(i), nil
	case "int2":
		return col.(*array.Int16).Value(i), nil
	case "int4":
		return col.(*array.Int32).Value(i), nil
	case "int8":
		return col.(*array.Int64).Value(i), nil
	case "float4":
		return col.(*array.Float32).Value(i), nil
	case "float8":
		return col.(*array.Float64).Value(i), nil
	case "varchar":
		return col.(stringArray).Value(i), nil
	case "bytea":
		return col.(bytesArray).Value(i), nil
	case "decimal":
		return types.ParseDecimal(col.(bytesArray).Value(i))
	case "json":
		return types.ParseJSON(col.(stringArray).Value(i))
	case "date":
		return types.DateToTime(col.(*array.Date32).Value(i)), nil
	case "time":
		return types.TimeToTime(col.(*array.Time64).Value(i)), nil
	case "timestamp":
		return types.TimestampToTime(col.(*array.Timestamp).Value(i)), nil
	case "interval":
		return col.(*array.MonthDayNanoInterval).Value(i), nil
	}
	return nil, fmt.Errorf("no reader for logical type %q", logical)
}

func readList(logical string, col *array.List, i int) (any, error) {
	start, end := col.ValueOffsets(i)
	values := col.ListValues()
	elemType := types.Elem(logical)
	out := make([]any, 0, end-start)
	for j := int(start); j < int(end); j++ {
		if values.IsNull(j) {
			out = append(out, nil)
			continue
		}
		v, err := ReadValue(elemType, values, j)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readStruct(logical string, col *array.Struct, i int) (any, error) {
	fields, err := types.IterFields(logical)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for fi, f := range fields {
		child := col.Field(fi)
		if child.IsNull(i) {
			out[f.Name] = nil
			continue
		}
		v, err := ReadValue(f.Type, child, i)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}
