package types

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/apd/v3"
	json "github.com/goccy/go-json"
)

// Domain value conversions between the physical column representation and
// the values seen by user functions:
//
//	logical    | column storage            | user value
//	-----------|---------------------------|---------------------------
//	decimal    | display text (LargeBinary)| *apd.Decimal
//	json       | serialized text (LargeUtf8)| any (decoded tree)
//	date       | days since epoch (Date32) | time.Time (midnight UTC)
//	time       | micros since midnight     | time.Time (epoch day)
//	timestamp  | micros since epoch        | time.Time (UTC)
//	interval   | month/day/nano triple     | arrow.MonthDayNanoInterval

// ParseDecimal decodes a decimal column cell.
func ParseDecimal(text []byte) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(string(text))
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", text, err)
	}
	return d, nil
}

// FormatDecimal renders a decimal value into its column text. Accepts
// *apd.Decimal, apd.Decimal or a plain string.
func FormatDecimal(v any) ([]byte, error) {
	switch v := v.(type) {
	case *apd.Decimal:
		return []byte(v.Text('f')), nil
	case apd.Decimal:
		return []byte(v.Text('f')), nil
	case string:
		if _, _, err := apd.NewFromString(v); err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", v, err)
		}
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot encode %T as decimal", v)
	}
}

// ParseJSON decodes a json column cell into a value tree.
func ParseJSON(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("invalid json %q: %w", text, err)
	}
	return v, nil
}

// FormatJSON renders a value into its json column text.
func FormatJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cannot encode %T as json: %w", v, err)
	}
	return string(data), nil
}

// DateToTime converts a Date32 cell to a midnight-UTC time.
func DateToTime(d arrow.Date32) time.Time { return d.ToTime() }

// DateFromTime converts a date value to its Date32 encoding.
func DateFromTime(t time.Time) arrow.Date32 { return arrow.Date32FromTime(t) }

// TimeToTime converts a Time64 microsecond cell to a time-of-day anchored at
// the unix epoch day.
func TimeToTime(v arrow.Time64) time.Time {
	return time.Unix(0, int64(v)*int64(time.Microsecond)).UTC()
}

// TimeFromTime converts a time-of-day value to microseconds since midnight.
func TimeFromTime(t time.Time) arrow.Time64 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return arrow.Time64(t.Sub(midnight) / time.Microsecond)
}

// TimestampToTime converts a microsecond timestamp cell to UTC time.
func TimestampToTime(v arrow.Timestamp) time.Time {
	return v.ToTime(arrow.Microsecond)
}

// TimestampFromTime converts a timestamp value to its microsecond encoding.
func TimestampFromTime(t time.Time) arrow.Timestamp {
	return arrow.Timestamp(t.UTC().UnixMicro())
}
