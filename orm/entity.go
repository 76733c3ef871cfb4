// Package orm implements the entity mapper of §4.8: a conventional
// table/column naming scheme over plain Go structs, an EntityManager
// exposing get/save/store/update/remove/find, a PreCollection query
// builder, and a handful of relation helpers. It is built entirely on top
// of the query and driver packages; it never depends on a particular
// driver package.
package orm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/blackhowling/sqlkit/dbval"
)

var byteSliceType = reflect.TypeOf([]byte(nil))
var timeType = reflect.TypeOf(time.Time{})

// fieldMeta describes one mapped column.
type fieldMeta struct {
	column string
	index  int // index into the struct's direct field list
	typ    reflect.Type
}

// entityMeta is the cached shape of an entity type T: its table name and
// its ordered, positional column list. Field 0 is always the id column.
type entityMeta struct {
	goType reflect.Type
	table  string
	fields []fieldMeta
}

func (m *entityMeta) columnNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.column
	}
	return names
}

func (m *entityMeta) idField() fieldMeta { return m.fields[0] }

var metaCache sync.Map // reflect.Type -> *entityMeta

// representable reports whether t maps onto a dbval.Value variant.
func representable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	case reflect.Slice:
		return t == byteSliceType
	case reflect.Struct:
		return t == timeType
	default:
		return false
	}
}

// metaFor builds (and caches) the entityMeta for T. T must be a struct
// whose first representable field is named "ID" and typed uint64.
func metaFor(t reflect.Type) (*entityMeta, error) {
	if cached, ok := metaCache.Load(t); ok {
		return cached.(*entityMeta), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("orm: %s is not a struct", t)
	}

	var fields []fieldMeta
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || !representable(sf.Type) {
			continue
		}
		fields = append(fields, fieldMeta{
			column: strings.ToLower(sf.Name),
			index:  i,
			typ:    sf.Type,
		})
	}
	if len(fields) == 0 || fields[0].column != "id" {
		return nil, fmt.Errorf("orm: %s must declare an exported ID field first", t)
	}
	if fields[0].typ.Kind() != reflect.Uint64 {
		return nil, fmt.Errorf("orm: %s.ID must be uint64", t)
	}

	meta := &entityMeta{goType: t, table: strings.ToLower(t.Name()), fields: fields}
	metaCache.Store(t, meta)
	return meta, nil
}

func fieldToValue(rv reflect.Value) (dbval.Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return dbval.Bool(rv.Bool()), nil
	case reflect.Int8:
		return dbval.I8(int8(rv.Int())), nil
	case reflect.Int16:
		return dbval.I16(int16(rv.Int())), nil
	case reflect.Int32:
		return dbval.I32(int32(rv.Int())), nil
	case reflect.Int, reflect.Int64:
		return dbval.I64(rv.Int()), nil
	case reflect.Uint8:
		return dbval.U8(uint8(rv.Uint())), nil
	case reflect.Uint16:
		return dbval.U16(uint16(rv.Uint())), nil
	case reflect.Uint32:
		return dbval.U32(uint32(rv.Uint())), nil
	case reflect.Uint, reflect.Uint64:
		return dbval.U64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return dbval.F64(rv.Float()), nil
	case reflect.String:
		return dbval.Text(rv.String()), nil
	case reflect.Slice:
		return dbval.Bytes(rv.Bytes()), nil
	case reflect.Struct:
		if rv.Type() == timeType {
			return dbval.DateTime(rv.Interface().(time.Time)), nil
		}
	}
	return dbval.Value{}, fmt.Errorf("orm: field of type %s is not representable", rv.Type())
}

func valueToField(rv reflect.Value, v dbval.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		b, err := v.GetAsBool()
		if err != nil {
			return err
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := v.GetAsI64()
		if err != nil {
			return err
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := v.GetAsU64()
		if err != nil {
			return err
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := v.GetF64()
		if err != nil {
			return err
		}
		rv.SetFloat(f)
	case reflect.String:
		s, err := v.GetAsText()
		if err != nil {
			return err
		}
		rv.SetString(s)
	case reflect.Slice:
		b, err := v.GetAsBytes()
		if err != nil {
			return err
		}
		rv.SetBytes(b)
	case reflect.Struct:
		if rv.Type() == timeType {
			dt, err := v.GetAsDateTime()
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(dt))
			return nil
		}
		return fmt.Errorf("orm: unsupported struct field type %s", rv.Type())
	default:
		return fmt.Errorf("orm: unsupported field kind %s", rv.Kind())
	}
	return nil
}

// rowFromEntity builds a positional dbval.Row from e's representable
// fields, in the same order as meta.fields (id included).
func rowFromEntity(meta *entityMeta, e reflect.Value) (dbval.Row, error) {
	row := make(dbval.Row, len(meta.fields))
	for i, f := range meta.fields {
		v, err := fieldToValue(e.Field(f.index))
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// applyRowToEntity writes row positionally onto e's representable fields.
func applyRowToEntity(meta *entityMeta, e reflect.Value, row dbval.Row) error {
	if row.Len() != len(meta.fields) {
		return fmt.Errorf("orm: expected %d columns, got %d", len(meta.fields), row.Len())
	}
	for i, f := range meta.fields {
		if err := valueToField(e.Field(f.index), row.At(i)); err != nil {
			return fmt.Errorf("orm: column %s: %w", f.column, err)
		}
	}
	return nil
}
