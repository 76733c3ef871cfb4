// Package mariadriver implements the driver.Connection/driver.Statement
// contract over MariaDB/MySQL, via the pure-Go binary-protocol client
// github.com/go-sql-driver/mysql. Like sqlitedriver, it drives the client's
// database/sql/driver.Conn directly rather than going through database/sql,
// so the abstraction's own Statement cursor (front/popFront) is the only
// cursor in play.
package mariadriver

import (
	"context"
	dsqldriver "database/sql/driver"
	"fmt"
	"io"

	"github.com/go-sql-driver/mysql"

	"github.com/blackhowling/sqlkit/dbval"
	sqlkitdriver "github.com/blackhowling/sqlkit/driver"
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

// Connection is a MariaDB driver.Connection. Not safe for concurrent use by
// more than one goroutine, per §5.
type Connection struct {
	cfg    sqlkitdriver.MariaDBConfig
	logger Logger

	raw dsqldriver.Conn
}

// Open constructs a Connection for cfg. The connection is not established
// until Connect is called.
func Open(cfg sqlkitdriver.MariaDBConfig, opts ...Option) *Connection {
	if cfg.Port == 0 {
		cfg.Port = 3306
	}
	c := &Connection{cfg: cfg, logger: noOpLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) dsn() string {
	mcfg := mysql.NewConfig()
	mcfg.Net = "tcp"
	mcfg.Addr = fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	mcfg.User = c.cfg.User
	mcfg.Passwd = c.cfg.Password
	mcfg.DBName = c.cfg.Database
	mcfg.ParseTime = false // dates/times stay as driver-native values; see §4.7
	return mcfg.FormatDSN()
}

// Connect opens the TCP connection to the server.
func (c *Connection) Connect(ctx context.Context) error {
	if c.raw != nil {
		return nil
	}
	c.logger.Debug("mariadb: connecting", "host", c.cfg.Host, "port", c.cfg.Port)
	d := mysql.MySQLDriver{}
	conn, err := d.Open(c.dsn())
	if err != nil {
		return wrapErr(sqlkitdriver.KindConnection, "open failed", err)
	}
	c.raw = conn
	return nil
}

func (c *Connection) Connected() bool { return c.raw != nil }

func (c *Connection) Close() error {
	if c.raw == nil {
		return nil
	}
	c.logger.Debug("mariadb: closing connection")
	err := c.raw.Close()
	c.raw = nil
	if err != nil {
		return wrapErr(sqlkitdriver.KindConnection, "close failed", err)
	}
	return nil
}

// AutoCommit reads the session's autocommit flag, per §4.7.
func (c *Connection) AutoCommit() (bool, error) {
	stmt, err := c.Prepare(context.Background(), "SELECT @@autocommit")
	if err != nil {
		return false, err
	}
	defer stmt.Close()
	if err := stmt.Execute(context.Background()); err != nil {
		return false, err
	}
	row, err := stmt.Front()
	if err != nil {
		return false, err
	}
	v, err := row.At(0).GetAsBool()
	if err != nil {
		return false, err
	}
	return v, nil
}

// SetAutoCommit issues SET autocommit=..., per §4.7.
func (c *Connection) SetAutoCommit(enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	return c.Execute(context.Background(), "SET autocommit="+val)
}

func (c *Connection) TransactionStart(ctx context.Context) error {
	return c.Execute(ctx, "START TRANSACTION")
}

func (c *Connection) TransactionCommit(ctx context.Context) error {
	return c.Execute(ctx, "COMMIT")
}

func (c *Connection) TransactionRollback(ctx context.Context) error {
	return c.Execute(ctx, "ROLLBACK")
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

// Prepare compiles sql against the server.
func (c *Connection) Prepare(ctx context.Context, sql string) (sqlkitdriver.Statement, error) {
	if c.raw == nil {
		return nil, &sqlkitdriver.Error{Kind: sqlkitdriver.KindConnection, Message: "mariadb: not connected"}
	}
	c.logger.Debug("mariadb: preparing statement", "sql", sql)
	raw, err := c.raw.Prepare(sql)
	if err != nil {
		return nil, wrapErr(sqlkitdriver.KindPrepare, "prepare failed: "+sql, err)
	}
	return &Statement{stmt: raw, logger: c.logger}, nil
}

// LastInsertID returns LAST_INSERT_ID() for this connection's session.
func (c *Connection) LastInsertID(ctx context.Context) (dbval.Value, error) {
	stmt, err := c.Prepare(ctx, "SELECT LAST_INSERT_ID()")
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

// Statement is a MariaDB driver.Statement backed by the client's driver.Stmt.
type Statement struct {
	stmt dsqldriver.Stmt
	args []dsqldriver.Value

	logger Logger
	rows   dsqldriver.Rows
	cols   []string
	cur    []dsqldriver.Value
	done   bool
	ran    bool
}

func (s *Statement) ensureArgs(index int) {
	if index >= len(s.args) {
		grown := make([]dsqldriver.Value, index+1)
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

// BindValue dispatches over every dbval.Value variant. Dates/times/
// datetimes are coerced to their MySQL textual representation; the client
// library takes care of wire-encoding from there.
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

// Execute runs the statement. If the server's response carries no result
// set (ordinary for DDL and writes), the statement transparently becomes an
// empty sequence instead of surfacing an error, per §4.7.
func (s *Statement) Execute(ctx context.Context) error {
	if s.ran {
		if err := s.closeRows(); err != nil {
			return err
		}
	}
	s.ran = true
	s.done = false

	qc, ok := s.stmt.(dsqldriver.StmtQueryContext)
	if !ok {
		return &sqlkitdriver.Error{Kind: sqlkitdriver.KindExecute, Message: "mariadb statement does not support QueryContext"}
	}
	namedArgs := make([]dsqldriver.NamedValue, len(s.args))
	for i, v := range s.args {
		namedArgs[i] = dsqldriver.NamedValue{Ordinal: i + 1, Value: v}
	}
	rows, err := qc.QueryContext(ctx, namedArgs)
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

func (s *Statement) PopFront(ctx context.Context) error {
	if s.rows == nil || len(s.cols) == 0 {
		s.done = true
		return nil
	}
	dest := make([]dsqldriver.Value, len(s.cols))
	err := s.rows.Next(dest)
	if err == io.EOF {
		s.done = true
		return nil
	}
	if err != nil {
		return wrapErr(sqlkitdriver.KindExecute, "fetch failed", err)
	}
	s.cur = dest
	s.done = false
	return nil
}

func (s *Statement) Close() error {
	_ = s.closeRows()
	return s.stmt.Close()
}

func toDBValue(v dsqldriver.Value) dbval.Value {
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
	default:
		return dbval.Text(fmt.Sprintf("%v", x))
	}
}

func wrapErr(kind sqlkitdriver.Kind, msg string, cause error) *sqlkitdriver.Error {
	if myErr, ok := cause.(*mysql.MySQLError); ok {
		return &sqlkitdriver.Error{Kind: kind, Message: msg, Code: int(myErr.Number), Cause: cause}
	}
	return &sqlkitdriver.Error{Kind: kind, Message: msg, Cause: cause}
}
