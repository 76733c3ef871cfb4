// Package driver defines the capability contract every sqlkit driver must
// satisfy: connection lifecycle, prepared statements, value binding and row
// iteration. Application code and the query/orm packages depend only on
// this contract, never on a concrete engine package.
package driver

import (
	"context"

	"github.com/blackhowling/sqlkit/dbval"
)

// Kind classifies a driver error the way §7 of the design groups failures.
type Kind uint8

const (
	KindConnection Kind = iota
	KindPrepare
	KindBind
	KindExecute
	KindTypeMismatch
	KindInvalidQuery
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindPrepare:
		return "prepare"
	case KindBind:
		return "bind"
	case KindExecute:
		return "execute"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindInvalidQuery:
		return "invalid_query"
	default:
		return "unknown"
	}
}

// Error is the error type every driver operation fails with. It carries at
// minimum a message and a coded Kind; Code and Cause are driver-specific and
// may be absent.
type Error struct {
	Kind    Kind
	Message string
	Code    int  // driver-native code, e.g. a SQLite extended result code; 0 if not applicable
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "sqlkit: " + e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return "sqlkit: " + e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, driver.ErrKindPrepare) style matching on Kind.
func (e *Error) Is(target error) bool {
	kindErr, ok := target.(*kindSentinel)
	return ok && e.Kind == kindErr.kind
}

type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return "sqlkit: " + s.kind.String() }

var (
	ErrKindConnection    error = &kindSentinel{KindConnection}
	ErrKindPrepare       error = &kindSentinel{KindPrepare}
	ErrKindBind          error = &kindSentinel{KindBind}
	ErrKindExecute       error = &kindSentinel{KindExecute}
	ErrKindTypeMismatch  error = &kindSentinel{KindTypeMismatch}
	ErrKindInvalidQuery  error = &kindSentinel{KindInvalidQuery}
)

// SQLiteOpenMode is a bit-set of open flags mapped onto the native C API's
// open flags, per §6.
type SQLiteOpenMode uint16

const (
	SQLiteReadOnly SQLiteOpenMode = 1 << iota
	SQLiteReadWrite
	SQLiteCreate
	SQLiteMemory
	SQLiteNoMutex
	SQLiteFullMutex
	SQLiteNoSymlink
)

// MariaDBConfig configures a connection to a MariaDB/MySQL server, per §6.
type MariaDBConfig struct {
	Host     string
	Port     int // default 3306
	User     string
	Password string
	Database string // optional
}

// Statement is a driver-owned handle to a prepared query. Binding is valid
// only before the first Execute, or after an implicit reset; iteration is
// single-pass forward.
type Statement interface {
	// Bind* set the placeholder at the given 0-based index to a scalar value.
	BindBool(index int, v bool) error
	BindI64(index int, v int64) error
	BindU64(index int, v uint64) error
	BindF64(index int, v float64) error
	BindText(index int, v string) error
	BindBytes(index int, v []byte) error
	BindNull(index int) error
	// BindValue is a universal dispatch over every dbval.Value variant.
	BindValue(index int, v dbval.Value) error

	// Execute runs the statement with currently bound values and advances to
	// the first row, if any. Re-binding after Execute and calling Execute
	// again resets and re-runs the statement.
	Execute(ctx context.Context) error

	// Empty reports whether no (more) rows remain. Only meaningful after Execute.
	Empty() bool
	// Front returns the current row. Only defined when !Empty().
	Front() (dbval.Row, error)
	// PopFront advances to the next row. Only defined when !Empty().
	PopFront(ctx context.Context) error

	// Close finalises native resources. Safe to call at most once.
	Close() error
}

// Connection is a driver-owned socket/file handle. At most one active
// transaction is supported per connection.
type Connection interface {
	Connect(ctx context.Context) error
	Close() error
	Connected() bool

	AutoCommit() (bool, error)
	SetAutoCommit(enabled bool) error

	TransactionStart(ctx context.Context) error
	TransactionCommit(ctx context.Context) error
	TransactionRollback(ctx context.Context) error

	// Execute fires-and-forgets a statement; any rows produced are discarded.
	Execute(ctx context.Context, sql string) error

	// Prepare compiles sql and returns a handle.
	Prepare(ctx context.Context, sql string) (Statement, error)

	// LastInsertID returns the id of the last row inserted on this connection.
	LastInsertID(ctx context.Context) (dbval.Value, error)
}
