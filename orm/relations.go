package orm

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/blackhowling/sqlkit/dbval"
	"github.com/blackhowling/sqlkit/driver"
	"github.com/blackhowling/sqlkit/query"
)

// entityID extracts the id field from any entity value (struct or pointer
// to struct) via reflection, without requiring a type parameter.
func entityID(e any) (uint64, error) {
	v := reflect.ValueOf(e)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	meta, err := metaFor(v.Type())
	if err != nil {
		return 0, err
	}
	return v.Field(meta.idField().index).Uint(), nil
}

func entityTable(e any) (string, error) {
	v := reflect.ValueOf(e)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	meta, err := metaFor(v.Type())
	if err != nil {
		return "", err
	}
	return meta.table, nil
}

// foreignKeyColumn finds, on many's struct, the column named
// "<oneTable>_id" per §4.8's manyToOne convention.
func foreignKeyColumn(many any, oneTable string) (string, uint64, error) {
	v := reflect.ValueOf(many)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	meta, err := metaFor(v.Type())
	if err != nil {
		return "", 0, err
	}
	want := oneTable + "_id"
	for _, f := range meta.fields {
		if f.column == want {
			return want, v.Field(f.index).Uint(), nil
		}
	}
	return "", 0, fmt.Errorf("orm: %s has no %s field", meta.table, want)
}

// ManyToOne loads the "one" side referenced by many's "<one-table>_id"
// field. The ok result is false if the foreign key is zero or the row no
// longer exists.
func ManyToOne[One any](ctx context.Context, oneMgr *EntityManager[One], many any) (One, bool, error) {
	var zero One
	_, id, err := foreignKeyColumn(many, oneMgr.meta.table)
	if err != nil {
		return zero, false, err
	}
	if id == 0 {
		return zero, false, nil
	}
	one, ok, err := oneMgr.Get(ctx, id)
	if err != nil || !ok {
		return zero, ok, err
	}
	return *one, true, nil
}

// OneToOne is an alias of ManyToOne; the direction is the caller's choice.
func OneToOne[One any](ctx context.Context, oneMgr *EntityManager[One], many any) (One, bool, error) {
	return ManyToOne[One](ctx, oneMgr, many)
}

// OneToMany builds a PreCollection of the many-side rows referencing one.
func OneToMany[Many any](manyMgr *EntityManager[Many], one any) (*PreCollection[Many], error) {
	oneTable, err := entityTable(one)
	if err != nil {
		return nil, err
	}
	oneID, err := entityID(one)
	if err != nil {
		return nil, err
	}
	fk := oneTable + "_id"
	p := manyMgr.Find()
	return p.WherePreset(fk, query.OpEq, dbval.U64(oneID)), nil
}

func joinTableName(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return names[0] + "_" + names[1]
}

// ManyToMany builds a PreCollection over Target rows joined to source
// through the sorted-name join table described by §4.8.
func ManyToMany[Target any](targetMgr *EntityManager[Target], source any) (*PreCollection[Target], error) {
	sourceTable, err := entityTable(source)
	if err != nil {
		return nil, err
	}
	sourceID, err := entityID(source)
	if err != nil {
		return nil, err
	}
	targetTable := targetMgr.meta.table
	join := query.T(joinTableName(sourceTable, targetTable))

	q := query.From(join).
		Join(query.JoinInner, query.T(targetTable), query.C("id"), query.Col(join, targetTable+"_id")).
		WhereCondPreset(query.Col(join, sourceTable+"_id"), query.OpEq, dbval.U64(sourceID))

	return &PreCollection[Target]{manager: targetMgr, query: q, joined: true}, nil
}

func joinColumns(tableA, tableB string) (colA, colB string) {
	return tableA + "_id", tableB + "_id"
}

// ManyToManyAssign inserts the join-table row linking a and b.
func ManyToManyAssign(ctx context.Context, conn driver.Connection, compiler query.Compiler, a, b any) error {
	tableA, err := entityTable(a)
	if err != nil {
		return err
	}
	tableB, err := entityTable(b)
	if err != nil {
		return err
	}
	idA, err := entityID(a)
	if err != nil {
		return err
	}
	idB, err := entityID(b)
	if err != nil {
		return err
	}
	colA, colB := joinColumns(tableA, tableB)
	join := query.T(joinTableName(tableA, tableB))

	ins, err := query.NewInsert(join, []string{colA, colB}, 1)
	if err != nil {
		return err
	}
	bq, err := compiler.BuildInsert(ins)
	if err != nil {
		return err
	}
	stmt, err := conn.Prepare(ctx, bq.SQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.BindU64(0, idA); err != nil {
		return err
	}
	if err := stmt.BindU64(1, idB); err != nil {
		return err
	}
	return stmt.Execute(ctx)
}

// ManyToManyUnassign deletes the join-table row linking a and b.
func ManyToManyUnassign(ctx context.Context, conn driver.Connection, compiler query.Compiler, a, b any) error {
	tableA, err := entityTable(a)
	if err != nil {
		return err
	}
	tableB, err := entityTable(b)
	if err != nil {
		return err
	}
	idA, err := entityID(a)
	if err != nil {
		return err
	}
	idB, err := entityID(b)
	if err != nil {
		return err
	}
	colA, colB := joinColumns(tableA, tableB)
	join := query.T(joinTableName(tableA, tableB))

	q := query.From(join).
		WhereCondPreset(query.C(colA), query.OpEq, dbval.U64(idA)).
		WhereCondPreset(query.C(colB), query.OpEq, dbval.U64(idB))
	del, err := query.NewDelete(q)
	if err != nil {
		return err
	}
	bq, err := compiler.BuildDelete(del)
	if err != nil {
		return err
	}
	stmt, err := conn.Prepare(ctx, bq.SQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := query.ApplyPresets(stmt, bq); err != nil {
		return err
	}
	return stmt.Execute(ctx)
}
