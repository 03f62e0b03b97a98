package udf

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/PsiACE/arrow-udf/types"
)

// BuilderPlan appends domain values for one logical type into an arrow
// column builder, recursing into struct fields and list elements.
type BuilderPlan struct {
	logical string
	dt      arrow.DataType
}

func NewBuilderPlan(logical string) (*BuilderPlan, error) {
	dt, err := types.DataTypeOf(logical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return &BuilderPlan{logical: types.Canonical(logical), dt: dt}, nil
}

// DataType returns the storage type the plan appends into.
func (p *BuilderPlan) DataType() arrow.DataType { return p.dt }

// bytesAppender and stringAppender abstract over the regular and large
// variants of the binary and string builders.
type bytesAppender interface{ Append(v []byte) }
type stringAppender interface{ Append(v string) }

// AppendValue appends one non-nil domain value.
func (p *BuilderPlan) AppendValue(b array.Builder, v any) error {
	return appendValue(p.logical, b, v)
}

// AppendNull appends a null. A struct null appends null to every field
// builder before marking the composite slot absent, keeping all child
// columns row-synchronized.
func (p *BuilderPlan) AppendNull(b array.Builder) {
	b.AppendNull()
}

func appendValue(logical string, b array.Builder, v any) error {
	switch {
	case types.IsList(logical):
		return appendList(logical, b.(*array.ListBuilder), v)
	case types.IsStruct(logical):
		return appendStruct(logical, b.(*array.StructBuilder), v)
	}
	switch logical {
	case "void":
		// Valueless placeholder entry.
		b.AppendEmptyValue()
		return nil
	case "boolean":
		return appendAs(b.(*array.BooleanBuilder).Append, v)
	case "int2":
		return appendAs(b.(*array.Int16Builder).Append, v)
	case "int4":
		return appendAs(b.(*array.Int32Builder).Append, v)
	case "int8":
		return appendAs(b.(*array.Int64Builder).Append, v)
	case "float4":
		return appendAs(b.(*array.Float32Builder).Append, v)
	case "float8":
		return appendAs(b.(*array.Float64Builder).Append, v)
	case "varchar":
		return appendAs(b.(stringAppender).Append, v)
	case "bytea":
		return appendAs(b.(bytesAppender).Append, v)
	case "decimal":
		text, err := types.FormatDecimal(v)
		if err != nil {
			return err
		}
		b.(bytesAppender).Append(text)
		return nil
	case "json":
		text, err := types.FormatJSON(v)
		if err != nil {
			return err
		}
		b.(stringAppender).Append(text)
		return nil
	case "date":
		return appendTemporal(b.(*array.Date32Builder).Append, types.DateFromTime, v)
	case "time":
		return appendTemporal(b.(*array.Time64Builder).Append, types.TimeFromTime, v)
	case "timestamp":
		return appendTemporal(b.(*array.TimestampBuilder).Append, types.TimestampFromTime, v)
	case "interval":
		return appendAs(b.(*array.MonthDayNanoIntervalBuilder).Append, v)
	}
	return fmt.Errorf("no builder for logical type %q", logical)
}

func appendAs[T any](append func(T), v any) error {
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("expected %T value, got %T", t, v)
	}
	append(t)
	return nil
}

func appendTemporal[P any](append func(P), conv func(t time.Time) P, v any) error {
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("expected time.Time value, got %T", v)
	}
	append(conv(t))
	return nil
}

func appendList(logical string, b *array.ListBuilder, v any) error {
	elems, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected []any value for %s, got %T", logical, v)
	}
	b.Append(true)
	elemType := types.Elem(logical)
	vb := b.ValueBuilder()
	for _, elem := range elems {
		if elem == nil {
			vb.AppendNull()
			continue
		}
		if err := appendValue(elemType, vb, elem); err != nil {
			return err
		}
	}
	return nil
}

func appendStruct(logical string, b *array.StructBuilder, v any) error {
	values, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("expected map[string]any value for %s, got %T", logical, v)
	}
	fields, err := types.IterFields(logical)
	if err != nil {
		return err
	}
	for i, f := range fields {
		fb := b.FieldBuilder(i)
		fv, present := values[f.Name]
		if !present || fv == nil {
			fb.AppendNull()
			continue
		}
		if err := appendValue(f.Type, fb, fv); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	b.Append(true)
	return nil
}
