package js

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/apd/v3"
	"github.com/dop251/goja"

	"github.com/PsiACE/arrow-udf/types"
)

// jsValue converts a domain value read from an arrow column into a
// JavaScript value. Decimals are passed as strings, temporal values as
// Date objects, intervals as plain objects, byte arrays as ArrayBuffers.
func (r *Runtime) jsValue(v any) (goja.Value, error) {
	switch x := v.(type) {
	case nil:
		return goja.Null(), nil
	case *apd.Decimal:
		return r.vm.ToValue(x.Text('f')), nil
	case time.Time:
		ctor, ok := goja.AssertConstructor(r.dateCtor)
		if !ok {
			return nil, fmt.Errorf("Date constructor is not available")
		}
		d, err := ctor(nil, r.vm.ToValue(x.UnixMilli()))
		if err != nil {
			return nil, err
		}
		return d, nil
	case arrow.MonthDayNanoInterval:
		obj := r.vm.NewObject()
		if err := obj.Set("months", x.Months); err != nil {
			return nil, err
		}
		if err := obj.Set("days", x.Days); err != nil {
			return nil, err
		}
		if err := obj.Set("nanoseconds", x.Nanoseconds); err != nil {
			return nil, err
		}
		return obj, nil
	case []byte:
		return r.vm.ToValue(r.vm.NewArrayBuffer(x)), nil
	case []any:
		items := make([]any, len(x))
		for i, e := range x {
			ev, err := r.jsValue(e)
			if err != nil {
				return nil, err
			}
			items[i] = ev
		}
		return r.vm.NewArray(items...), nil
	case map[string]any:
		obj := r.vm.NewObject()
		for k, e := range x {
			ev, err := r.jsValue(e)
			if err != nil {
				return nil, err
			}
			if err := obj.Set(k, ev); err != nil {
				return nil, err
			}
		}
		return obj, nil
	default:
		return r.vm.ToValue(v), nil
	}
}

// coerce converts a JavaScript result into the domain value for the
// declared logical return type. A null or undefined result becomes a
// null output cell.
func (r *Runtime) coerce(logical string, res goja.Value) (any, error) {
	if res == nil || goja.IsNull(res) || goja.IsUndefined(res) {
		return nil, nil
	}
	return coerceExported(logical, res.Export())
}

func coerceExported(logical string, x any) (any, error) {
	if x == nil {
		return nil, nil
	}
	logical = types.Canonical(logical)
	switch {
	case types.IsList(logical):
		items, ok := x.([]any)
		if !ok {
			return nil, fmt.Errorf("expect an array for %s, got %T", logical, x)
		}
		elem := types.Elem(logical)
		out := make([]any, len(items))
		for i, e := range items {
			v, err := coerceExported(elem, e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case types.IsStruct(logical):
		obj, ok := x.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expect an object for %s, got %T", logical, x)
		}
		fields, err := types.IterFields(logical)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			v, err := coerceExported(f.Type, obj[f.Name])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			out[f.Name] = v
		}
		return out, nil
	}
	switch logical {
	case "void":
		return nil, nil
	case "boolean":
		b, ok := x.(bool)
		if !ok {
			return nil, fmt.Errorf("expect a boolean, got %T", x)
		}
		return b, nil
	case "int2":
		n, ok := toInt64(x)
		if !ok {
			return nil, fmt.Errorf("expect a number, got %T", x)
		}
		return int16(n), nil
	case "int4":
		n, ok := toInt64(x)
		if !ok {
			return nil, fmt.Errorf("expect a number, got %T", x)
		}
		return int32(n), nil
	case "int8":
		n, ok := toInt64(x)
		if !ok {
			return nil, fmt.Errorf("expect a number, got %T", x)
		}
		return n, nil
	case "float4":
		f, ok := toFloat64(x)
		if !ok {
			return nil, fmt.Errorf("expect a number, got %T", x)
		}
		return float32(f), nil
	case "float8":
		f, ok := toFloat64(x)
		if !ok {
			return nil, fmt.Errorf("expect a number, got %T", x)
		}
		return f, nil
	case "varchar":
		s, ok := x.(string)
		if !ok {
			return nil, fmt.Errorf("expect a string, got %T", x)
		}
		return s, nil
	case "bytea":
		switch b := x.(type) {
		case []byte:
			return b, nil
		case goja.ArrayBuffer:
			return b.Bytes(), nil
		case string:
			return []byte(b), nil
		}
		return nil, fmt.Errorf("expect an ArrayBuffer, got %T", x)
	case "decimal":
		switch d := x.(type) {
		case string:
			return types.ParseDecimal([]byte(d))
		case int64:
			return apd.New(d, 0), nil
		case float64:
			dec := new(apd.Decimal)
			if _, err := dec.SetFloat64(d); err != nil {
				return nil, err
			}
			return dec, nil
		}
		return nil, fmt.Errorf("expect a decimal string, got %T", x)
	case "json":
		return x, nil
	case "date", "time", "timestamp":
		switch t := x.(type) {
		case time.Time:
			return t, nil
		case int64:
			return time.UnixMilli(t).UTC(), nil
		case float64:
			return time.UnixMilli(int64(t)).UTC(), nil
		}
		return nil, fmt.Errorf("expect a Date, got %T", x)
	case "interval":
		obj, ok := x.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expect an interval object, got %T", x)
		}
		var iv arrow.MonthDayNanoInterval
		if n, ok := toInt64(obj["months"]); ok {
			iv.Months = int32(n)
		}
		if n, ok := toInt64(obj["days"]); ok {
			iv.Days = int32(n)
		}
		if n, ok := toInt64(obj["nanoseconds"]); ok {
			iv.Nanoseconds = n
		}
		return iv, nil
	}
	return nil, fmt.Errorf("no conversion for logical type %q", logical)
}

func toInt64(x any) (int64, bool) {
	switch n := x.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(x any) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
