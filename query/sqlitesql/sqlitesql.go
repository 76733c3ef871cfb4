// Package sqlitesql is the SQLite dialect compiler: identifiers are quoted
// with double quotes and FULL OUTER JOIN is permitted, since SQLite (from
// 3.39) supports it directly.
package sqlitesql

import "github.com/blackhowling/sqlkit/query"

// Compiler is the shared SQLite Compiler instance. Compilers are pure
// functions over immutable AST values, so a single instance may be reused
// freely across goroutines and queries.
var Compiler = query.NewCompiler(query.Dialect{
	QuoteChar:          '"',
	AllowFullOuterJoin: true,
})
