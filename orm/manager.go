package orm

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/blackhowling/sqlkit/dbval"
	"github.com/blackhowling/sqlkit/driver"
	"github.com/blackhowling/sqlkit/query"
)

// ManagerOption configures an EntityManager at construction time.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	partialUpdate bool
}

// WithPartialUpdate enables change tracking: entities loaded through Get
// carry a snapshot, and Save/Update against that same entity pointer write
// only the columns that differ from the snapshot instead of every column.
// Supplements §4.8; see DESIGN.md.
func WithPartialUpdate() ManagerOption {
	return func(c *managerConfig) { c.partialUpdate = true }
}

// EntityManager is the §4.8 entity manager for entity type T, bound to one
// driver connection and one dialect compiler.
type EntityManager[T any] struct {
	conn     driver.Connection
	compiler query.Compiler
	meta     *entityMeta
	cfg      managerConfig

	snapMu sync.Mutex
	snaps  map[any]dbval.Row
}

// NewEntityManager builds a manager for T. Returns an error if T's shape is
// invalid (see metaFor).
func NewEntityManager[T any](conn driver.Connection, compiler query.Compiler, opts ...ManagerOption) (*EntityManager[T], error) {
	var zero T
	meta, err := metaFor(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	var cfg managerConfig
	cfg.partialUpdate = optionsFor(reflect.TypeOf(zero)).PartialUpdate
	for _, opt := range opts {
		opt(&cfg)
	}
	return &EntityManager[T]{
		conn: conn, compiler: compiler, meta: meta, cfg: cfg,
		snaps: map[any]dbval.Row{},
	}, nil
}

func (m *EntityManager[T]) table() query.Table { return query.T(m.meta.table) }

func (m *EntityManager[T]) trackSnapshot(e *T, row dbval.Row) {
	if !m.cfg.partialUpdate {
		return
	}
	m.snapMu.Lock()
	m.snaps[e] = row.Clone()
	m.snapMu.Unlock()
}

func (m *EntityManager[T]) snapshotOf(e *T) (dbval.Row, bool) {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	row, ok := m.snaps[e]
	return row, ok
}

// Get loads the entity with the given id. The bool result is false if no
// row exists.
func (m *EntityManager[T]) Get(ctx context.Context, id uint64) (*T, bool, error) {
	q := query.From(m.table()).WhereCondPreset(query.C("id"), query.OpEq, dbval.U64(id))
	sel := query.NewSelect(q, selectExprs(m.meta, false)...)
	bq, err := m.compiler.BuildSelect(sel)
	if err != nil {
		return nil, false, err
	}
	stmt, err := m.conn.Prepare(ctx, bq.SQL)
	if err != nil {
		return nil, false, err
	}
	defer stmt.Close()
	if err := query.ApplyPresets(stmt, bq); err != nil {
		return nil, false, err
	}
	if err := stmt.Execute(ctx); err != nil {
		return nil, false, err
	}
	if stmt.Empty() {
		return nil, false, nil
	}
	row, err := stmt.Front()
	if err != nil {
		return nil, false, err
	}
	var e T
	ev := reflect.ValueOf(&e).Elem()
	if err := applyRowToEntity(m.meta, ev, row); err != nil {
		return nil, false, err
	}
	m.trackSnapshot(&e, row)
	return &e, true, nil
}

// Store always inserts e and returns the generated id; e.ID is untouched.
func (m *EntityManager[T]) Store(ctx context.Context, e *T) (uint64, error) {
	ev := reflect.ValueOf(e).Elem()
	cols := m.meta.columnNames()[1:] // skip id
	ins, err := query.NewInsert(m.table(), cols, 1)
	if err != nil {
		return 0, err
	}
	bq, err := m.compiler.BuildInsert(ins)
	if err != nil {
		return 0, err
	}
	stmt, err := m.conn.Prepare(ctx, bq.SQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i, f := range m.meta.fields[1:] {
		v, err := fieldToValue(ev.Field(f.index))
		if err != nil {
			return 0, err
		}
		if err := stmt.BindValue(i, v); err != nil {
			return 0, err
		}
	}
	if err := stmt.Execute(ctx); err != nil {
		return 0, err
	}
	idVal, err := m.conn.LastInsertID(ctx)
	if err != nil {
		return 0, err
	}
	id, err := idVal.GetAsU64()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update writes every column of e (or, with WithPartialUpdate, only the
// columns changed since its last Get) back to its row. Requires e.ID != 0.
func (m *EntityManager[T]) Update(ctx context.Context, e *T) error {
	ev := reflect.ValueOf(e).Elem()
	id := ev.Field(m.meta.idField().index).Uint()
	if id == 0 {
		return fmt.Errorf("orm: Update requires a non-zero id")
	}

	cols := m.meta.fields[1:]
	if snap, ok := m.snapshotOf(e); ok {
		cols = m.changedFields(ev, snap)
		if len(cols) == 0 {
			return nil
		}
	}

	colNames := make([]string, len(cols))
	for i, f := range cols {
		colNames[i] = f.column
	}
	wq := query.From(m.table()).WhereCondPreset(query.C("id"), query.OpEq, dbval.U64(id))
	upd, err := query.NewUpdate(wq, colNames)
	if err != nil {
		return err
	}
	bq, err := m.compiler.BuildUpdate(upd)
	if err != nil {
		return err
	}
	stmt, err := m.conn.Prepare(ctx, bq.SQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, f := range cols {
		v, err := fieldToValue(ev.Field(f.index))
		if err != nil {
			return err
		}
		if err := stmt.BindValue(i, v); err != nil {
			return err
		}
	}
	if err := query.ApplyPresets(stmt, bq); err != nil {
		return err
	}
	return stmt.Execute(ctx)
}

func (m *EntityManager[T]) changedFields(ev reflect.Value, snap dbval.Row) []fieldMeta {
	var changed []fieldMeta
	for i, f := range m.meta.fields[1:] {
		cur, err := fieldToValue(ev.Field(f.index))
		if err != nil {
			continue
		}
		if !cur.Equal(snap.At(i + 1)) {
			changed = append(changed, f)
		}
	}
	return changed
}

// Save inserts e if e.ID == 0 (setting e.ID from the generated id), or
// updates it otherwise.
func (m *EntityManager[T]) Save(ctx context.Context, e *T) error {
	ev := reflect.ValueOf(e).Elem()
	idField := ev.Field(m.meta.idField().index)
	if idField.Uint() == 0 {
		id, err := m.Store(ctx, e)
		if err != nil {
			return err
		}
		idField.SetUint(id)
		return nil
	}
	return m.Update(ctx, e)
}

// Remove deletes the row with the given id.
func (m *EntityManager[T]) Remove(ctx context.Context, id uint64) error {
	q := query.From(m.table()).WhereCondPreset(query.C("id"), query.OpEq, dbval.U64(id))
	del, err := query.NewDelete(q)
	if err != nil {
		return err
	}
	bq, err := m.compiler.BuildDelete(del)
	if err != nil {
		return err
	}
	stmt, err := m.conn.Prepare(ctx, bq.SQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := query.ApplyPresets(stmt, bq); err != nil {
		return err
	}
	return stmt.Execute(ctx)
}

// RemoveEntity deletes e's row by its id.
func (m *EntityManager[T]) RemoveEntity(ctx context.Context, e *T) error {
	ev := reflect.ValueOf(e).Elem()
	id := ev.Field(m.meta.idField().index).Uint()
	return m.Remove(ctx, id)
}

// Find starts a PreCollection over T's table.
func (m *EntityManager[T]) Find() *PreCollection[T] {
	return &PreCollection[T]{manager: m, query: query.From(m.table())}
}

func selectExprs(meta *entityMeta, qualified bool) []query.SelectExpression {
	exprs := make([]query.SelectExpression, len(meta.fields))
	for i, f := range meta.fields {
		col := query.C(f.column)
		if qualified {
			col = query.Col(query.T(meta.table), f.column)
		}
		exprs[i] = query.Expr(col)
	}
	return exprs
}
