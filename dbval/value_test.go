package dbval_test

import (
	"testing"
	"time"

	"github.com/blackhowling/sqlkit/dbval"
)

func TestGetAsI64Coercion(t *testing.T) {
	tests := []struct {
		name string
		v    dbval.Value
		want int64
	}{
		{"i8", dbval.I8(-5), -5},
		{"u32", dbval.U32(9), 9},
		{"bool true", dbval.Bool(true), 1},
		{"bool false", dbval.Bool(false), 0},
		{"text", dbval.Text("42"), 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.GetAsI64()
			if err != nil {
				t.Fatalf("GetAsI64: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestGetAsI64RejectsUnconvertible(t *testing.T) {
	if _, err := dbval.Bytes([]byte("x")).GetAsI64(); err == nil {
		t.Fatalf("expected TypeMismatch for bytes -> i64")
	}
	if _, err := dbval.Text("not a number").GetAsI64(); err == nil {
		t.Fatalf("expected TypeMismatch for unparsable text -> i64")
	}
}

func TestGetAsU64RejectsNegative(t *testing.T) {
	if _, err := dbval.I64(-1).GetAsU64(); err == nil {
		t.Fatalf("expected TypeMismatch for negative i64 -> u64")
	}
}

func TestGetAsBoolCoercion(t *testing.T) {
	tests := []struct {
		name string
		v    dbval.Value
		want bool
	}{
		{"zero i64", dbval.I64(0), false},
		{"nonzero i64", dbval.I64(3), true},
		{"zero u64", dbval.U64(0), false},
		{"nonzero u64", dbval.U64(1), true},
		{"bool", dbval.Bool(true), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.GetAsBool()
			if err != nil {
				t.Fatalf("GetAsBool: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetAsTextCoercion(t *testing.T) {
	d := dbval.Date{Year: 2023, Month: 1, Day: 2}
	tod := dbval.TimeOfDay{Hour: 15, Minute: 4, Second: 5}
	tests := []struct {
		name string
		v    dbval.Value
		want string
	}{
		{"text", dbval.Text("hi"), "hi"},
		{"bytes", dbval.Bytes([]byte("hi")), "hi"},
		{"date", dbval.DateValue(d), "2023-01-02"},
		{"time of day", dbval.TimeOfDayValue(tod), "15:04:05"},
		{"i64", dbval.I64(7), "7"},
		{"u64", dbval.U64(7), "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.GetAsText()
			if err != nil {
				t.Fatalf("GetAsText: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetAsDateParsesISOText(t *testing.T) {
	want := dbval.Date{Year: 2023, Month: 1, Day: 2}
	got, err := dbval.Text("2023-01-02").GetAsDate()
	if err != nil {
		t.Fatalf("GetAsDate: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if _, err := dbval.Text("not a date").GetAsDate(); err == nil {
		t.Fatalf("expected TypeMismatch for unparsable date text")
	}
	if _, err := dbval.I64(1).GetAsDate(); err == nil {
		t.Fatalf("expected TypeMismatch for i64 -> date")
	}
}

func TestGetAsTimeOfDayParsesISOText(t *testing.T) {
	want := dbval.TimeOfDay{Hour: 15, Minute: 4, Second: 5}
	got, err := dbval.Text("15:04:05").GetAsTimeOfDay()
	if err != nil {
		t.Fatalf("GetAsTimeOfDay: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestGetAsDateTimeParsesMultipleLayouts(t *testing.T) {
	want := time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC)
	layouts := []string{
		"2023-01-02 15:04:05",
		"2023-01-02T15:04:05",
	}
	for _, s := range layouts {
		t.Run(s, func(t *testing.T) {
			got, err := dbval.Text(s).GetAsDateTime()
			if err != nil {
				t.Fatalf("GetAsDateTime: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
		})
	}
	if _, err := dbval.Text("garbage").GetAsDateTime(); err == nil {
		t.Fatalf("expected TypeMismatch for unparsable datetime text")
	}
}

func TestStrictGettersRejectWrongKind(t *testing.T) {
	if _, err := dbval.I64(1).GetBool(); err == nil {
		t.Fatalf("expected TypeMismatch: i64 -> bool via strict getter")
	}
	if _, err := dbval.Bool(true).GetI64(); err == nil {
		t.Fatalf("expected TypeMismatch: bool -> i64 via strict getter")
	}
	if _, err := dbval.Text("x").GetDate(); err == nil {
		t.Fatalf("expected TypeMismatch: text -> date via strict getter")
	}
}

func TestValueEqualComparesTemporalByISOEncoding(t *testing.T) {
	d1 := dbval.DateValue(dbval.Date{Year: 2023, Month: 1, Day: 2})
	d2 := dbval.DateValue(dbval.Date{Year: 2023, Month: 1, Day: 2})
	if !d1.Equal(d2) {
		t.Fatalf("expected equal dates to compare equal")
	}

	t1 := dbval.TimeOfDayValue(dbval.TimeOfDay{Hour: 1, Minute: 2, Second: 3})
	t2 := dbval.TimeOfDayValue(dbval.TimeOfDay{Hour: 1, Minute: 2, Second: 3})
	if !t1.Equal(t2) {
		t.Fatalf("expected equal times of day to compare equal")
	}

	dt1 := dbval.DateTime(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC))
	dt2 := dbval.DateTime(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC))
	if !dt1.Equal(dt2) {
		t.Fatalf("expected equal datetimes to compare equal")
	}

	if dbval.I64(1).Equal(dbval.U64(1)) {
		t.Fatalf("expected different kinds to never compare equal")
	}
	if dbval.Null().Equal(dbval.I64(0)) {
		t.Fatalf("expected null to only equal null")
	}
}

func TestRowCloneIsIndependent(t *testing.T) {
	r := dbval.Row{dbval.I64(1), dbval.Text("a")}
	cp := r.Clone()
	cp[0] = dbval.I64(2)
	if r.At(0).Equal(cp.At(0)) {
		t.Fatalf("expected Clone to be independent of the original row")
	}
}
