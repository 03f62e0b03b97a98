// Package types maps the logical type DSL used by function descriptors onto
// the physical Arrow storage types, and carries the value transforms between
// the two representations.
//
// Logical types are plain strings: concrete scalar names ("int4", "varchar",
// ...), list types ("int4[]"), struct types ("struct<x:int4,y:float8>"), the
// wildcard patterns "*", "*int*" and "*float*" consumed by descriptor
// expansion, and the wildcard classes "any", "anyarray" and "struct" that
// survive expansion and are resolved by type inference.
package types

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Wildcard classes. Unlike wildcard patterns, these are not expanded into
// concrete types; they stay in the signature and match by shape.
const (
	Any       = "any"
	AnyArray  = "anyarray"
	AnyStruct = "struct"
)

// Variadic marks trailing variadic arguments in a descriptor.
const Variadic = "..."

type entry struct {
	name      string
	storage   arrow.DataType
	primitive bool
}

// Scalar type table in expansion order. Canonical names follow the
// descriptor DSL; aliases are resolved by Canonical.
var scalars = []entry{
	{"void", arrow.Null, false},
	{"boolean", arrow.FixedWidthTypes.Boolean, false},
	{"int2", arrow.PrimitiveTypes.Int16, true},
	{"int4", arrow.PrimitiveTypes.Int32, true},
	{"int8", arrow.PrimitiveTypes.Int64, true},
	{"float4", arrow.PrimitiveTypes.Float32, true},
	{"float8", arrow.PrimitiveTypes.Float64, true},
	// decimal and json are stored as formatted text. The display
	// representation becomes the column value.
	{"decimal", arrow.BinaryTypes.LargeBinary, false},
	{"date", arrow.FixedWidthTypes.Date32, false},
	{"time", arrow.FixedWidthTypes.Time64us, false},
	{"timestamp", arrow.FixedWidthTypes.Timestamp_us, false},
	{"interval", arrow.FixedWidthTypes.MonthDayNanoInterval, false},
	{"varchar", arrow.BinaryTypes.String, false},
	{"bytea", arrow.BinaryTypes.Binary, false},
	{"json", arrow.BinaryTypes.LargeString, false},
}

var aliases = map[string]string{
	"null":     "void",
	"bool":     "boolean",
	"smallint": "int2",
	"int":      "int4",
	"integer":  "int4",
	"bigint":   "int8",
	"real":     "float4",
	"float":    "float8",
	"double":   "float8",
	"numeric":  "decimal",
	"string":   "varchar",
	"text":     "varchar",
}

var byName = func() map[string]entry {
	m := make(map[string]entry, len(scalars))
	for _, e := range scalars {
		m[e.name] = e
	}
	return m
}()

// Canonical resolves aliases to the canonical scalar name. Composite and
// wildcard types are canonicalized recursively.
func Canonical(ty string) string {
	if elem, ok := strings.CutSuffix(ty, "[]"); ok {
		return Canonical(elem) + "[]"
	}
	if IsStruct(ty) {
		fields, err := IterFields(ty)
		if err != nil {
			return ty
		}
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = f.Name + ":" + Canonical(f.Type)
		}
		return "struct<" + strings.Join(parts, ",") + ">"
	}
	if c, ok := aliases[strings.ToLower(strings.TrimSpace(ty))]; ok {
		return c
	}
	return strings.ToLower(strings.TrimSpace(ty))
}

// ExpandWildcard expands a wildcard pattern into the concrete types it
// denotes. Non-pattern types (including the wildcard classes "any",
// "anyarray" and "struct") expand to themselves.
func ExpandWildcard(ty string) []string {
	switch ty {
	case "*":
		out := make([]string, len(scalars))
		for i, e := range scalars {
			out[i] = e.name
		}
		return out
	case "*int*":
		return []string{"int2", "int4", "int8"}
	case "*float*":
		return []string{"float4", "float8"}
	default:
		return []string{ty}
	}
}

// IsWildcardPattern reports whether ty is expanded by ExpandWildcard.
func IsWildcardPattern(ty string) bool {
	switch ty {
	case "*", "*int*", "*float*":
		return true
	}
	return false
}

// IsWildcardClass reports whether ty is a shape-matching wildcard that
// survives expansion and requires type inference.
func IsWildcardClass(ty string) bool {
	switch Canonical(ty) {
	case Any, AnyArray, AnyStruct:
		return true
	}
	return false
}

// IsPrimitive reports whether ty is a fixed-width numeric type eligible for
// the vectorized fast path.
func IsPrimitive(ty string) bool {
	e, ok := byName[Canonical(ty)]
	return ok && e.primitive
}

// IsList reports whether ty is a list type.
func IsList(ty string) bool { return strings.HasSuffix(ty, "[]") }

// IsStruct reports whether ty is a concrete struct type with fields. The
// bare wildcard class "struct" is not a concrete struct.
func IsStruct(ty string) bool {
	return strings.HasPrefix(ty, "struct<") && strings.HasSuffix(ty, ">")
}

// Elem returns the element type of a list type.
func Elem(ty string) string { return strings.TrimSuffix(ty, "[]") }

// Field is one field of a struct logical type.
type Field struct {
	Name string
	Type string
}

// IterFields parses the field list of a struct type such as
// "struct<x:int4, y:struct<z:varchar>>". Commas and colons inside nested
// struct types are handled by depth counting.
func IterFields(ty string) ([]Field, error) {
	if !IsStruct(ty) {
		return nil, fmt.Errorf("not a struct type: %q", ty)
	}
	body := ty[len("struct<") : len(ty)-1]
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("struct type has no fields: %q", ty)
	}
	var fields []Field
	depth := 0
	start := 0
	flush := func(part string) error {
		name, fieldType, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("invalid struct field %q in %q", part, ty)
		}
		fields = append(fields, Field{
			Name: strings.TrimSpace(name),
			Type: strings.TrimSpace(fieldType),
		})
		return nil
	}
	for i, r := range body {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				if err := flush(body[start:i]); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if err := flush(body[start:]); err != nil {
		return nil, err
	}
	return fields, nil
}

// DataTypeOf maps a concrete logical type to its Arrow storage type.
// Wildcard patterns and wildcard classes have no storage type and produce an
// error.
func DataTypeOf(ty string) (arrow.DataType, error) {
	ty = Canonical(ty)
	if elem, ok := strings.CutSuffix(ty, "[]"); ok {
		inner, err := DataTypeOf(elem)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(inner), nil
	}
	if IsStruct(ty) {
		fields, err := IterFields(ty)
		if err != nil {
			return nil, err
		}
		arrowFields := make([]arrow.Field, len(fields))
		for i, f := range fields {
			fieldType, err := DataTypeOf(f.Type)
			if err != nil {
				return nil, err
			}
			arrowFields[i] = arrow.Field{Name: f.Name, Type: fieldType, Nullable: true}
		}
		return arrow.StructOf(arrowFields...), nil
	}
	if e, ok := byName[ty]; ok {
		return e.storage, nil
	}
	return nil, fmt.Errorf("unknown logical type: %q", ty)
}

// LogicalOf maps an Arrow storage type back to its canonical logical name.
// Used when a wildcard-class argument is resolved against an actual column.
func LogicalOf(dt arrow.DataType) (string, error) {
	switch dt := dt.(type) {
	case *arrow.ListType:
		elem, err := LogicalOf(dt.Elem())
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	case *arrow.StructType:
		parts := make([]string, dt.NumFields())
		for i, f := range dt.Fields() {
			fieldLogical, err := LogicalOf(f.Type)
			if err != nil {
				return "", err
			}
			parts[i] = f.Name + ":" + fieldLogical
		}
		return "struct<" + strings.Join(parts, ",") + ">", nil
	}
	for _, e := range scalars {
		if arrow.TypeEqual(e.storage, dt) {
			return e.name, nil
		}
	}
	return "", fmt.Errorf("no logical type for arrow type %s", dt)
}
