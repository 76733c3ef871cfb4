package orm

import (
	"context"
	"reflect"

	"github.com/blackhowling/sqlkit/dbval"
	"github.com/blackhowling/sqlkit/driver"
	"github.com/blackhowling/sqlkit/query"
)

// PreCollection is a builder wrapping a Query with the terminal helpers
// named in §4.8: select/count/aggregate/delete, each with a *Via(conn)
// variant that prepares, binds presets and executes against a connection.
type PreCollection[T any] struct {
	manager *EntityManager[T]
	query   query.Query
	joined  bool
}

// Where appends an AND-joined condition.
func (p *PreCollection[T]) Where(column string, op query.ComparisonOperator) *PreCollection[T] {
	np := *p
	np.query = np.query.WhereCond(p.col(column), op)
	return &np
}

// WherePreset appends an AND-joined condition with a value bound at build time.
func (p *PreCollection[T]) WherePreset(column string, op query.ComparisonOperator, v dbval.Value) *PreCollection[T] {
	np := *p
	np.query = np.query.WhereCondPreset(p.col(column), op, v)
	return &np
}

// WhereParentheses groups a sub-clause in parentheses, per §4.3.
func (p *PreCollection[T]) WhereParentheses(inner func(query.Where) query.Where) *PreCollection[T] {
	np := *p
	np.query = np.query.WhereFn(func(w query.Where) query.Where { return w.WhereParentheses(inner) })
	return &np
}

// OrderBy appends an ORDER BY term.
func (p *PreCollection[T]) OrderBy(column string, dir query.Direction) *PreCollection[T] {
	np := *p
	np.query = np.query.OrderBy(p.col(column), dir)
	return &np
}

// Limit enables LIMIT with a preset value.
func (p *PreCollection[T]) Limit(n int64) *PreCollection[T] {
	np := *p
	np.query = np.query.WithLimit(&n)
	return &np
}

// Offset enables OFFSET with a preset value. Limit must already be set.
func (p *PreCollection[T]) Offset(n int64) *PreCollection[T] {
	np := *p
	np.query = np.query.WithOffset(&n)
	return &np
}

func (p *PreCollection[T]) col(name string) query.Column {
	if p.joined {
		return query.Col(query.T(p.manager.meta.table), name)
	}
	return query.C(name)
}

func (p *PreCollection[T]) selectTerminal() query.Select {
	return query.NewSelect(p.query, selectExprs(p.manager.meta, p.joined)...)
}

// Select builds the SELECT terminal for the current dialect compiler.
func (p *PreCollection[T]) Select() (query.BuiltQuery, error) {
	return p.manager.compiler.BuildSelect(p.selectTerminal())
}

// Count builds a SELECT COUNT(*) terminal.
func (p *PreCollection[T]) Count() (query.BuiltQuery, error) {
	sel := query.NewSelect(p.query, query.AggExpr(query.AggregateCount, query.Column{Name: "*"}, false))
	return p.manager.compiler.BuildSelect(sel)
}

// Aggregate builds a SELECT <fn>(<column>) terminal.
func (p *PreCollection[T]) Aggregate(fn query.Aggregate, column string) (query.BuiltQuery, error) {
	sel := query.NewSelect(p.query, query.AggExpr(fn, p.col(column), false))
	return p.manager.compiler.BuildSelect(sel)
}

// Delete builds the DELETE terminal.
func (p *PreCollection[T]) Delete() (query.BuiltQuery, error) {
	del, err := query.NewDelete(p.query)
	if err != nil {
		return query.BuiltQuery{}, err
	}
	return p.manager.compiler.BuildDelete(del)
}

func prepareAndRun(ctx context.Context, conn driver.Connection, bq query.BuiltQuery) (driver.Statement, error) {
	stmt, err := conn.Prepare(ctx, bq.SQL)
	if err != nil {
		return nil, err
	}
	if err := query.ApplyPresets(stmt, bq); err != nil {
		stmt.Close()
		return nil, err
	}
	if err := stmt.Execute(ctx); err != nil {
		stmt.Close()
		return nil, err
	}
	return stmt, nil
}

// SelectVia compiles, binds and executes the SELECT, materialising every
// matching row as a T.
func (p *PreCollection[T]) SelectVia(ctx context.Context, conn driver.Connection) ([]T, error) {
	var out []T
	err := p.SelectDo(ctx, conn, func(e *T) error {
		out = append(out, *e)
		return nil
	})
	return out, err
}

// SelectDo streams matching rows through fn without materialising the full
// result set, for large collections. Supplements §4.8.
func (p *PreCollection[T]) SelectDo(ctx context.Context, conn driver.Connection, fn func(*T) error) error {
	bq, err := p.Select()
	if err != nil {
		return err
	}
	stmt, err := prepareAndRun(ctx, conn, bq)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for !stmt.Empty() {
		row, err := stmt.Front()
		if err != nil {
			return err
		}
		var e T
		if err := applyRowToEntity(p.manager.meta, reflect.ValueOf(&e).Elem(), row); err != nil {
			return err
		}
		if err := fn(&e); err != nil {
			return err
		}
		if err := stmt.PopFront(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CountVia compiles, binds and executes the COUNT(*) terminal.
func (p *PreCollection[T]) CountVia(ctx context.Context, conn driver.Connection) (int64, error) {
	bq, err := p.Count()
	if err != nil {
		return 0, err
	}
	stmt, err := prepareAndRun(ctx, conn, bq)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	if stmt.Empty() {
		return 0, nil
	}
	row, err := stmt.Front()
	if err != nil {
		return 0, err
	}
	return row.At(0).GetAsI64()
}

// AggregateVia compiles, binds and executes an aggregate terminal.
func (p *PreCollection[T]) AggregateVia(ctx context.Context, conn driver.Connection, fn query.Aggregate, column string) (dbval.Value, error) {
	bq, err := p.Aggregate(fn, column)
	if err != nil {
		return dbval.Value{}, err
	}
	stmt, err := prepareAndRun(ctx, conn, bq)
	if err != nil {
		return dbval.Value{}, err
	}
	defer stmt.Close()
	if stmt.Empty() {
		return dbval.Null(), nil
	}
	row, err := stmt.Front()
	if err != nil {
		return dbval.Value{}, err
	}
	return row.At(0), nil
}

// DeleteVia compiles, binds and executes the DELETE terminal.
func (p *PreCollection[T]) DeleteVia(ctx context.Context, conn driver.Connection) error {
	bq, err := p.Delete()
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
