// Package mariasql is the MariaDB/MySQL dialect compiler: identifiers are
// quoted with back-ticks and FULL OUTER JOIN is rejected at compile time,
// since the engine has no direct support for it.
package mariasql

import "github.com/blackhowling/sqlkit/query"

// Compiler is the shared MariaDB Compiler instance.
var Compiler = query.NewCompiler(query.Dialect{
	QuoteChar:          '`',
	AllowFullOuterJoin: false,
})
