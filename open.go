// Package sqlkit ties together a dialect compiler and a driver connection
// behind the convenience constructors Open/OpenSQLite/OpenMariaDB, and
// carries the ambient logging contract, which it hands to each driver
// package through that package's own WithLogger option.
package sqlkit

import (
	"context"

	sqlkitdriver "github.com/blackhowling/sqlkit/driver"
	"github.com/blackhowling/sqlkit/mariadriver"
	"github.com/blackhowling/sqlkit/query"
	"github.com/blackhowling/sqlkit/query/mariasql"
	"github.com/blackhowling/sqlkit/query/sqlitesql"
	"github.com/blackhowling/sqlkit/sqlitedriver"
)

// Logger defines the interface for logging in sqlkit.
// Users can implement this interface to integrate with their preferred
// logging library.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...any)

	// Info logs an informational message with optional key-value pairs.
	Info(msg string, keyvals ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...any)
}

// noOpLogger discards everything. It is the default logger when none is set.
type noOpLogger struct{}

func (noOpLogger) Debug(string, ...any) {}
func (noOpLogger) Info(string, ...any)  {}
func (noOpLogger) Warn(string, ...any)  {}
func (noOpLogger) Error(string, ...any) {}

var defaultLogger Logger = noOpLogger{}

// SetLogger sets the package-level logger used by Open/OpenSQLite/
// OpenMariaDB when no per-call logger is supplied.
func SetLogger(logger Logger) {
	if logger == nil {
		defaultLogger = noOpLogger{}
		return
	}
	defaultLogger = logger
}

// GetLogger returns the current package-level logger.
func GetLogger() Logger {
	return defaultLogger
}

// DB pairs a driver connection with the dialect compiler that understands
// its SQL, the way orm.EntityManager and query.BuiltQuery expect. It adds no
// behaviour of its own beyond Connect/Close passthroughs; query and orm
// types are built directly from its Conn and Compiler fields.
type DB struct {
	Conn     sqlkitdriver.Connection
	Compiler query.Compiler

	dialect string
}

// Connect opens the underlying connection, logging the dialect it is about
// to speak and whether the attempt succeeded.
func (db *DB) Connect(ctx context.Context) error {
	defaultLogger.Debug("sqlkit: connecting", "dialect", db.dialect)
	if err := db.Conn.Connect(ctx); err != nil {
		defaultLogger.Error("sqlkit: connect failed", "dialect", db.dialect, "error", err)
		return err
	}
	return nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	defaultLogger.Debug("sqlkit: closing", "dialect", db.dialect)
	return db.Conn.Close()
}

// OpenSQLite opens a SQLite connection at path (or ":memory:") with mode and
// pairs it with the SQLite dialect compiler. The returned DB is not yet
// connected; call Connect before use.
func OpenSQLite(path string, mode sqlkitdriver.SQLiteOpenMode) *DB {
	defaultLogger.Debug("sqlkit: opening sqlite db", "path", path, "mode", mode)
	conn := sqlitedriver.Open(path, mode, sqlitedriver.WithLogger(defaultLogger))
	return &DB{Conn: conn, Compiler: sqlitesql.Compiler, dialect: "sqlite"}
}

// OpenMariaDB opens a MariaDB/MySQL connection per cfg and pairs it with the
// MariaDB dialect compiler. The returned DB is not yet connected; call
// Connect before use.
func OpenMariaDB(cfg sqlkitdriver.MariaDBConfig) *DB {
	defaultLogger.Debug("sqlkit: opening mariadb db", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	conn := mariadriver.Open(cfg, mariadriver.WithLogger(defaultLogger))
	return &DB{Conn: conn, Compiler: mariasql.Compiler, dialect: "mariadb"}
}

// Open dispatches to OpenSQLite or OpenMariaDB depending on which config is
// supplied. Exactly one of sqlitePath or mariaCfg should be non-empty/non-nil.
func Open(sqlitePath string, sqliteMode sqlkitdriver.SQLiteOpenMode, mariaCfg *sqlkitdriver.MariaDBConfig) *DB {
	if mariaCfg != nil {
		return OpenMariaDB(*mariaCfg)
	}
	return OpenSQLite(sqlitePath, sqliteMode)
}
