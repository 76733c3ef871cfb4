package mariadriver

import (
	"context"
	dsqldriver "database/sql/driver"
	"errors"
	"io"
)

// fakeConn, fakeStmt and fakeRows are hand-rolled stand-ins for the
// go-sql-driver/mysql client's database/sql/driver types, the way the
// teacher's insert_database_test.go fakes a client without a live server.
// This package opens a driver.Conn straight from go-sql-driver/mysql's
// MySQLDriver and drives driver.Conn/driver.Stmt directly (see mariadb.go's
// package doc), bypassing database/sql entirely, so a database/sql-level mock like
// DATA-DOG/go-sqlmock has nothing at this layer to attach to; a fake at the
// same raw-conn level the real client sits at is what actually exercises
// Connection and Statement here.
type fakeConn struct {
	prepareFn func(query string) (dsqldriver.Stmt, error)
	closed    bool
}

func (f *fakeConn) Prepare(query string) (dsqldriver.Stmt, error) { return f.prepareFn(query) }
func (f *fakeConn) Close() error                                  { f.closed = true; return nil }
func (f *fakeConn) Begin() (dsqldriver.Tx, error)                 { return nil, errors.New("fakeConn: Begin not used") }

type fakeStmt struct {
	queryFn  func(ctx context.Context, args []dsqldriver.NamedValue) (dsqldriver.Rows, error)
	closed   bool
	closeErr error
}

func (s *fakeStmt) Close() error                                  { s.closed = true; return s.closeErr }
func (s *fakeStmt) NumInput() int                                 { return -1 }
func (s *fakeStmt) Exec(args []dsqldriver.Value) (dsqldriver.Result, error) {
	return nil, errors.New("fakeStmt: Exec not used, QueryContext carries writes too")
}
func (s *fakeStmt) Query(args []dsqldriver.Value) (dsqldriver.Rows, error) {
	return nil, errors.New("fakeStmt: Query not used")
}
func (s *fakeStmt) QueryContext(ctx context.Context, args []dsqldriver.NamedValue) (dsqldriver.Rows, error) {
	return s.queryFn(ctx, args)
}

// fakeRows simulates both an ordinary result set and MariaDB's "no result
// set received" response to INSERT/UPDATE/DDL (zero columns, immediate EOF).
type fakeRows struct {
	cols []string
	data [][]dsqldriver.Value
	pos  int
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []dsqldriver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}
