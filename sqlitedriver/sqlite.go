// Package sqlitedriver implements the driver.Connection/driver.Statement
// contract over SQLite, via the cgo binding to the native C API provided by
// github.com/mattn/go-sqlite3. It never goes through database/sql: Connect
// opens a raw *sqlite3.SQLiteConn, and Prepare returns a *sqlite3.SQLiteStmt
// wrapped to satisfy driver.Statement directly, the way §4.6 describes.
package sqlitedriver

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	sqlkitdriver "github.com/blackhowling/sqlkit/driver"
	"github.com/blackhowling/sqlkit/dbval"
)

// Logger is the subset of sqlkit's ambient logging contract this package
// depends on, to avoid an import cycle with the root package.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

type noOpLogger struct{}

func (noOpLogger) Debug(string, ...any) {}
func (noOpLogger) Error(string, ...any) {}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger attaches a logger that receives Debug tracing of connection
// open/close and statement preparation. Execute and bind calls are not logged.
func WithLogger(l Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// Connection is a SQLite driver.Connection. Not safe for concurrent use by
// more than one goroutine, per §5.
type Connection struct {
	path   string
	mode   sqlkitdriver.SQLiteOpenMode
	logger Logger

	raw        *sqlite3.SQLiteConn
	inTx       bool
	autoCommit bool
}

// Open constructs a Connection for path (or ":memory:") with the given open
// mode flags. The connection is not established until Connect is called.
func Open(path string, mode sqlkitdriver.SQLiteOpenMode, opts ...Option) *Connection {
	c := &Connection{path: path, mode: mode, logger: noOpLogger{}, autoCommit: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) dsn() string {
	if c.mode&sqlkitdriver.SQLiteMemory != 0 || c.path == ":memory:" {
		return "file::memory:?cache=shared"
	}
	var params []string
	switch {
	case c.mode&sqlkitdriver.SQLiteReadOnly != 0:
		params = append(params, "mode=ro")
	case c.mode&sqlkitdriver.SQLiteCreate != 0:
		params = append(params, "mode=rwc")
	case c.mode&sqlkitdriver.SQLiteReadWrite != 0:
		params = append(params, "mode=rw")
	}
	if c.mode&sqlkitdriver.SQLiteNoMutex != 0 {
		params = append(params, "_mutex=no")
	} else if c.mode&sqlkitdriver.SQLiteFullMutex != 0 {
		params = append(params, "_mutex=full")
	}
	if c.mode&sqlkitdriver.SQLiteNoSymlink != 0 {
		params = append(params, "nofollow=1")
	}
	if len(params) == 0 {
		return c.path
	}
	return "file:" + c.path + "?" + strings.Join(params, "&")
}

// Connect opens the native connection and enables extended result codes.
func (c *Connection) Connect(ctx context.Context) error {
	if c.raw != nil {
		return nil // idempotent
	}
	c.logger.Debug("sqlite: opening connection", "dsn", c.dsn())
	d := &sqlite3.SQLiteDriver{}
	conn, err := d.Open(c.dsn())
	if err != nil {
		return wrapErr(sqlkitdriver.KindConnection, "open failed", err)
	}
	raw, ok := conn.(*sqlite3.SQLiteConn)
	if !ok {
		return &sqlkitdriver.Error{Kind: sqlkitdriver.KindConnection, Message: "unexpected connection type from mattn/go-sqlite3"}
	}
	c.raw = raw
	// Extended result codes are enabled by mattn/go-sqlite3 on every
	// connection it opens; nothing further to request here.
	return nil
}

// Connected reports whether Connect has succeeded and Close has not been called.
func (c *Connection) Connected() bool { return c.raw != nil }

// Close closes the native connection. Double-close is not an error.
func (c *Connection) Close() error {
	if c.raw == nil {
		return nil
	}
	c.logger.Debug("sqlite: closing connection")
	err := c.raw.Close()
	c.raw = nil
	if err != nil {
		return wrapErr(sqlkitdriver.KindConnection, "close failed", err)
	}
	return nil
}

// AutoCommit reports the driver's tracked auto-commit state.
func (c *Connection) AutoCommit() (bool, error) {
	return c.autoCommit, nil
}

// SetAutoCommit always fails: SQLite's engine manages auto-commit itself and
// this driver does not expose a way to override it, per §4.6/§4.9.
func (c *Connection) SetAutoCommit(enabled bool) error {
	return &sqlkitdriver.Error{
		Kind:    sqlkitdriver.KindInvalidQuery,
		Message: "sqlite: SetAutoCommit is not supported; the engine manages auto-commit",
	}
}

func (c *Connection) TransactionStart(ctx context.Context) error {
	if err := c.Execute(ctx, "BEGIN"); err != nil {
		return err
	}
	c.inTx = true
	c.autoCommit = false
	return nil
}

func (c *Connection) TransactionCommit(ctx context.Context) error {
	if err := c.Execute(ctx, "COMMIT"); err != nil {
		return err
	}
	c.inTx = false
	c.autoCommit = true
	return nil
}

func (c *Connection) TransactionRollback(ctx context.Context) error {
	if err := c.Execute(ctx, "ROLLBACK"); err != nil {
		return err
	}
	c.inTx = false
	c.autoCommit = true
	return nil
}

// Execute fires a statement and discards any rows.
func (c *Connection) Execute(ctx context.Context, sql string) error {
	stmt, err := c.Prepare(ctx, sql)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.Execute(ctx)
}

// Prepare compiles sql via sqlite3_prepare_v2.
func (c *Connection) Prepare(ctx context.Context, sql string) (sqlkitdriver.Statement, error) {
	if c.raw == nil {
		return nil, &sqlkitdriver.Error{Kind: sqlkitdriver.KindConnection, Message: "sqlite: not connected"}
	}
	c.logger.Debug("sqlite: preparing statement", "sql", sql)
	raw, err := c.raw.Prepare(sql)
	if err != nil {
		return nil, wrapErr(sqlkitdriver.KindPrepare, "prepare failed: "+sql, err)
	}
	return &Statement{stmt: raw, numInput: raw.NumInput(), logger: c.logger}, nil
}

// LastInsertID returns sqlite3_last_insert_rowid() for this connection.
func (c *Connection) LastInsertID(ctx context.Context) (dbval.Value, error) {
	if c.raw == nil {
		return dbval.Null(), &sqlkitdriver.Error{Kind: sqlkitdriver.KindConnection, Message: "sqlite: not connected"}
	}
	stmt, err := c.Prepare(ctx, "SELECT last_insert_rowid()")
	if err != nil {
		return dbval.Null(), err
	}
	defer stmt.Close()
	if err := stmt.Execute(ctx); err != nil {
		return dbval.Null(), err
	}
	row, err := stmt.Front()
	if err != nil {
		return dbval.Null(), err
	}
	return row.At(0), nil
}

// Statement is a SQLite driver.Statement backed by *sqlite3.SQLiteStmt.
type Statement struct {
	stmt     driver.Stmt
	numInput int
	args     []driver.Value

	logger Logger
	rows   driver.Rows
	cols   []string
	cur    []driver.Value
	done   bool
	ran    bool
}

func (s *Statement) ensureArgs(index int) {
	if index >= len(s.args) {
		grown := make([]driver.Value, index+1)
		copy(grown, s.args)
		s.args = grown
	}
}

func (s *Statement) BindBool(index int, v bool) error {
	n := int64(0)
	if v {
		n = 1
	}
	return s.BindI64(index, n)
}
func (s *Statement) BindI64(index int, v int64) error {
	s.ensureArgs(index)
	s.args[index] = v
	return nil
}
func (s *Statement) BindU64(index int, v uint64) error { return s.BindI64(index, int64(v)) }
func (s *Statement) BindF64(index int, v float64) error {
	s.ensureArgs(index)
	s.args[index] = v
	return nil
}
func (s *Statement) BindText(index int, v string) error {
	s.ensureArgs(index)
	s.args[index] = v
	return nil
}
func (s *Statement) BindBytes(index int, v []byte) error {
	s.ensureArgs(index)
	cp := make([]byte, len(v))
	copy(cp, v)
	s.args[index] = cp
	return nil
}
func (s *Statement) BindNull(index int) error {
	s.ensureArgs(index)
	s.args[index] = nil
	return nil
}

// BindValue dispatches over every dbval.Value variant, coercing bool/date/
// time/datetime to the representations SQLite natively stores, per §4.9.
func (s *Statement) BindValue(index int, v dbval.Value) error {
	switch v.Kind() {
	case dbval.KindNull:
		return s.BindNull(index)
	case dbval.KindBool:
		b, _ := v.GetBool()
		return s.BindBool(index, b)
	case dbval.KindI8, dbval.KindI16, dbval.KindI32, dbval.KindI64:
		n, _ := v.GetI64()
		return s.BindI64(index, n)
	case dbval.KindU8, dbval.KindU16, dbval.KindU32, dbval.KindU64:
		n, _ := v.GetU64()
		return s.BindU64(index, n)
	case dbval.KindF64:
		f, _ := v.GetF64()
		return s.BindF64(index, f)
	case dbval.KindText:
		t, _ := v.GetText()
		return s.BindText(index, t)
	case dbval.KindBytes:
		b, _ := v.GetBytes()
		return s.BindBytes(index, b)
	case dbval.KindDate:
		d, _ := v.GetDate()
		return s.BindText(index, d.ISOExtended())
	case dbval.KindTimeOfDay:
		t, _ := v.GetTimeOfDay()
		return s.BindText(index, t.ISOExtended())
	case dbval.KindDateTime:
		dt, _ := v.GetDateTime()
		return s.BindText(index, dt.Format("2006-01-02 15:04:05.999999999"))
	default:
		return &sqlkitdriver.Error{Kind: sqlkitdriver.KindBind, Message: fmt.Sprintf("unsupported value kind %s", v.Kind())}
	}
}

// Execute resets statement state if it had already run, then steps once.
func (s *Statement) Execute(ctx context.Context) error {
	if s.ran {
		if err := s.closeRows(); err != nil {
			return err
		}
	}
	s.ran = true
	s.done = false

	queryArgs := make([]driver.NamedValue, len(s.args))
	for i, v := range s.args {
		queryArgs[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}

	qc, ok := s.stmt.(driver.StmtQueryContext)
	if !ok {
		return &sqlkitdriver.Error{Kind: sqlkitdriver.KindExecute, Message: "sqlite statement does not support QueryContext"}
	}
	rows, err := qc.QueryContext(ctx, queryArgs)
	if err != nil {
		return wrapErr(sqlkitdriver.KindExecute, "execute failed", err)
	}
	s.rows = rows
	s.cols = rows.Columns()
	return s.PopFront(ctx)
}

func (s *Statement) closeRows() error {
	if s.rows != nil {
		err := s.rows.Close()
		s.rows = nil
		if err != nil {
			return wrapErr(sqlkitdriver.KindExecute, "failed to reset statement", err)
		}
	}
	return nil
}

func (s *Statement) Empty() bool { return s.done }

// Front materialises the buffered current row into a detached dbval.Row.
func (s *Statement) Front() (dbval.Row, error) {
	if s.done {
		return nil, &sqlkitdriver.Error{Kind: sqlkitdriver.KindExecute, Message: "Front called on empty statement"}
	}
	row := make(dbval.Row, len(s.cur))
	for i, cell := range s.cur {
		row[i] = toDBValue(cell)
	}
	return row, nil
}

// PopFront steps the native cursor; sqlite3_step's "done" code is a normal
// termination that sets Empty() to true, not an error.
func (s *Statement) PopFront(ctx context.Context) error {
	if s.rows == nil {
		s.done = true
		return nil
	}
	dest := make([]driver.Value, len(s.cols))
	err := s.rows.Next(dest)
	if err == io.EOF {
		s.done = true
		return nil
	}
	if err != nil {
		return wrapErr(sqlkitdriver.KindExecute, "step failed", err)
	}
	s.cur = dest
	s.done = false
	return nil
}

func (s *Statement) Close() error {
	_ = s.closeRows()
	return s.stmt.Close()
}

func toDBValue(v driver.Value) dbval.Value {
	switch x := v.(type) {
	case nil:
		return dbval.Null()
	case int64:
		return dbval.I64(x)
	case float64:
		return dbval.F64(x)
	case []byte:
		return dbval.Bytes(x)
	case string:
		return dbval.Text(x)
	case bool:
		return dbval.Bool(x)
	case time.Time:
		return dbval.DateTime(x)
	default:
		return dbval.Text(fmt.Sprintf("%v", x))
	}
}

func wrapErr(kind sqlkitdriver.Kind, msg string, cause error) *sqlkitdriver.Error {
	if sqliteErr, ok := cause.(sqlite3.Error); ok {
		return &sqlkitdriver.Error{Kind: kind, Message: msg, Code: int(sqliteErr.ExtendedCode), Cause: cause}
	}
	return &sqlkitdriver.Error{Kind: kind, Message: msg, Cause: cause}
}
