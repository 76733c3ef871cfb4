// Package dbval provides the tagged-union scalar value type and the row
// shape that every driver and query result in sqlkit is expressed in.
package dbval

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies which variant of a Value is active.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF64
	KindBytes
	KindText
	KindDate
	KindTimeOfDay
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindTimeOfDay:
		return "time_of_day"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ISOExtended renders the date as YYYY-MM-DD.
func (d Date) ISOExtended() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// TimeOfDay is a wall-clock time with no calendar component.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
	Nanos  int
}

// ISOExtended renders the time as HH:MM:SS[.nnnnnnnnn].
func (t TimeOfDay) ISOExtended() string {
	if t.Nanos == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%09d", t.Hour, t.Minute, t.Second, t.Nanos)
}

// TypeMismatch is returned by Get/GetAs when the requested conversion is not
// permitted by the documented coercion matrix.
type TypeMismatch struct {
	From Kind
	To   string
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("dbval: cannot convert %s to %s", e.From, e.To)
}

// Value is a tagged union over every SQL-relevant scalar variant, plus null.
// Exactly one variant is active at a time; the zero Value is KindNull.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	u     uint64
	f     float64
	bytes []byte
	text  string
	date  Date
	tod   TimeOfDay
	dt    time.Time
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

func Bool(v bool) Value   { return Value{kind: KindBool, b: v} }
func I8(v int8) Value     { return Value{kind: KindI8, i: int64(v)} }
func I16(v int16) Value   { return Value{kind: KindI16, i: int64(v)} }
func I32(v int32) Value   { return Value{kind: KindI32, i: int64(v)} }
func I64(v int64) Value   { return Value{kind: KindI64, i: v} }
func U8(v uint8) Value    { return Value{kind: KindU8, u: uint64(v)} }
func U16(v uint16) Value  { return Value{kind: KindU16, u: uint64(v)} }
func U32(v uint32) Value  { return Value{kind: KindU32, u: uint64(v)} }
func U64(v uint64) Value  { return Value{kind: KindU64, u: v} }
func F64(v float64) Value { return Value{kind: KindF64, f: v} }
func Bytes(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindBytes, bytes: cp}
}
func Text(v string) Value           { return Value{kind: KindText, text: v} }
func DateValue(v Date) Value        { return Value{kind: KindDate, date: v} }
func TimeOfDayValue(v TimeOfDay) Value { return Value{kind: KindTimeOfDay, tod: v} }
func DateTime(v time.Time) Value    { return Value{kind: KindDateTime, dt: v} }

// Kind reports the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Is reports whether the value's active variant matches k.
func (v Value) Is(k Kind) bool { return v.kind == k }

// --- strict extraction ---

func (v Value) GetBool() (bool, error) {
	if v.kind != KindBool {
		return false, &TypeMismatch{From: v.kind, To: "bool"}
	}
	return v.b, nil
}

func (v Value) GetI64() (int64, error) {
	switch v.kind {
	case KindI8, KindI16, KindI32, KindI64:
		return v.i, nil
	default:
		return 0, &TypeMismatch{From: v.kind, To: "i64"}
	}
}

func (v Value) GetU64() (uint64, error) {
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.u, nil
	default:
		return 0, &TypeMismatch{From: v.kind, To: "u64"}
	}
}

func (v Value) GetF64() (float64, error) {
	if v.kind != KindF64 {
		return 0, &TypeMismatch{From: v.kind, To: "f64"}
	}
	return v.f, nil
}

func (v Value) GetText() (string, error) {
	if v.kind != KindText {
		return "", &TypeMismatch{From: v.kind, To: "text"}
	}
	return v.text, nil
}

func (v Value) GetBytes() ([]byte, error) {
	if v.kind != KindBytes {
		return nil, &TypeMismatch{From: v.kind, To: "bytes"}
	}
	cp := make([]byte, len(v.bytes))
	copy(cp, v.bytes)
	return cp, nil
}

func (v Value) GetDate() (Date, error) {
	if v.kind != KindDate {
		return Date{}, &TypeMismatch{From: v.kind, To: "date"}
	}
	return v.date, nil
}

func (v Value) GetTimeOfDay() (TimeOfDay, error) {
	if v.kind != KindTimeOfDay {
		return TimeOfDay{}, &TypeMismatch{From: v.kind, To: "time_of_day"}
	}
	return v.tod, nil
}

func (v Value) GetDateTime() (time.Time, error) {
	if v.kind != KindDateTime {
		return time.Time{}, &TypeMismatch{From: v.kind, To: "datetime"}
	}
	return v.dt, nil
}

// --- coerced extraction ---

// GetAsI64 widens/narrows across integer variants and bool.
func (v Value) GetAsI64() (int64, error) {
	switch v.kind {
	case KindI8, KindI16, KindI32, KindI64:
		return v.i, nil
	case KindU8, KindU16, KindU32, KindU64:
		return int64(v.u), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindText:
		n, err := strconv.ParseInt(v.text, 10, 64)
		if err != nil {
			return 0, &TypeMismatch{From: v.kind, To: "i64"}
		}
		return n, nil
	default:
		return 0, &TypeMismatch{From: v.kind, To: "i64"}
	}
}

// GetAsU64 widens/narrows across integer variants and bool.
func (v Value) GetAsU64() (uint64, error) {
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.u, nil
	case KindI8, KindI16, KindI32, KindI64:
		if v.i < 0 {
			return 0, &TypeMismatch{From: v.kind, To: "u64"}
		}
		return uint64(v.i), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, &TypeMismatch{From: v.kind, To: "u64"}
	}
}

// GetAsBool coerces integer/bool variants to bool (nonzero is true).
func (v Value) GetAsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindI8, KindI16, KindI32, KindI64:
		return v.i != 0, nil
	case KindU8, KindU16, KindU32, KindU64:
		return v.u != 0, nil
	default:
		return false, &TypeMismatch{From: v.kind, To: "bool"}
	}
}

// GetAsText converts text/date/time/datetime/blob(as UTF-8) to a string.
func (v Value) GetAsText() (string, error) {
	switch v.kind {
	case KindText:
		return v.text, nil
	case KindBytes:
		return string(v.bytes), nil
	case KindDate:
		return v.date.ISOExtended(), nil
	case KindTimeOfDay:
		return v.tod.ISOExtended(), nil
	case KindDateTime:
		return v.dt.Format("2006-01-02 15:04:05.999999999"), nil
	case KindI8, KindI16, KindI32, KindI64:
		return strconv.FormatInt(v.i, 10), nil
	case KindU8, KindU16, KindU32, KindU64:
		return strconv.FormatUint(v.u, 10), nil
	default:
		return "", &TypeMismatch{From: v.kind, To: "text"}
	}
}

// GetAsBytes interprets text as UTF-8 bytes, or returns a blob unchanged.
func (v Value) GetAsBytes() ([]byte, error) {
	switch v.kind {
	case KindBytes:
		cp := make([]byte, len(v.bytes))
		copy(cp, v.bytes)
		return cp, nil
	case KindText:
		return []byte(v.text), nil
	default:
		return nil, &TypeMismatch{From: v.kind, To: "bytes"}
	}
}

// GetAsDate parses Date from an ISO-extended string, or returns it as-is.
func (v Value) GetAsDate() (Date, error) {
	switch v.kind {
	case KindDate:
		return v.date, nil
	case KindText:
		var d Date
		if _, err := fmt.Sscanf(v.text, "%04d-%02d-%02d", &d.Year, &d.Month, &d.Day); err != nil {
			return Date{}, &TypeMismatch{From: v.kind, To: "date"}
		}
		return d, nil
	default:
		return Date{}, &TypeMismatch{From: v.kind, To: "date"}
	}
}

// GetAsTimeOfDay parses TimeOfDay from an ISO-extended string, or returns it as-is.
func (v Value) GetAsTimeOfDay() (TimeOfDay, error) {
	switch v.kind {
	case KindTimeOfDay:
		return v.tod, nil
	case KindText:
		var t TimeOfDay
		if _, err := fmt.Sscanf(v.text, "%02d:%02d:%02d", &t.Hour, &t.Minute, &t.Second); err != nil {
			return TimeOfDay{}, &TypeMismatch{From: v.kind, To: "time_of_day"}
		}
		if len(v.text) > 9 && v.text[8] == '.' {
			n, err := strconv.Atoi((v.text[9:] + "000000000")[:9])
			if err != nil {
				return TimeOfDay{}, &TypeMismatch{From: v.kind, To: "time_of_day"}
			}
			t.Nanos = n
		}
		return t, nil
	default:
		return TimeOfDay{}, &TypeMismatch{From: v.kind, To: "time_of_day"}
	}
}

// GetAsDateTime parses time.Time from an ISO-extended string, or returns it as-is.
func (v Value) GetAsDateTime() (time.Time, error) {
	switch v.kind {
	case KindDateTime:
		return v.dt, nil
	case KindText:
		for _, layout := range []string{
			"2006-01-02 15:04:05.999999999",
			"2006-01-02T15:04:05.999999999",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
		} {
			if t, err := time.Parse(layout, v.text); err == nil {
				return t, nil
			}
		}
		return time.Time{}, &TypeMismatch{From: v.kind, To: "datetime"}
	default:
		return time.Time{}, &TypeMismatch{From: v.kind, To: "datetime"}
	}
}

// Equal reports value equality, comparing ISO-string encoding for
// date/time/datetime variants so that a value round-tripped through a
// text-based driver still compares equal to the original.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindI8, KindI16, KindI32, KindI64:
		return v.i == other.i
	case KindU8, KindU16, KindU32, KindU64:
		return v.u == other.u
	case KindF64:
		return v.f == other.f
	case KindBytes:
		if len(v.bytes) != len(other.bytes) {
			return false
		}
		for i := range v.bytes {
			if v.bytes[i] != other.bytes[i] {
				return false
			}
		}
		return true
	case KindText:
		return v.text == other.text
	case KindDate:
		return v.date.ISOExtended() == other.date.ISOExtended()
	case KindTimeOfDay:
		return v.tod.ISOExtended() == other.tod.ISOExtended()
	case KindDateTime:
		const layout = "2006-01-02 15:04:05.999999999"
		return v.dt.Format(layout) == other.dt.Format(layout)
	default:
		return false
	}
}

// Row is an ordered sequence of Values, indexed by result-column position.
// A Row never retains pointers into driver-internal buffers: callers of a
// driver must receive copies, not borrows.
type Row []Value

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r) }

// At returns the value at position i. Panics if i is out of range, mirroring
// slice indexing semantics since Row is a plain ordered sequence.
func (r Row) At(i int) Value { return r[i] }

// Clone returns a deep copy of the row (Bytes values are copied).
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	copy(cp, r)
	for i, v := range r {
		if v.kind == KindBytes {
			cp[i] = Bytes(v.bytes)
		}
	}
	return cp
}
