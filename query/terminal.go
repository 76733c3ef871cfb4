package query

import "github.com/blackhowling/sqlkit/dbval"

// Aggregate enumerates the supported SELECT aggregate functions.
type Aggregate uint8

const (
	AggregateNone Aggregate = iota
	AggregateAvg
	AggregateCount
	AggregateMax
	AggregateMin
	AggregateSum
	AggregateGroupConcat
)

// SelectExpression is one entry in a SELECT's column list: either a plain
// column (Aggregate == AggregateNone) or an aggregate over a column.
type SelectExpression struct {
	Column   Column
	Star     bool // true for the bare "*" expression
	Aggregate Aggregate
	Distinct bool
}

// Expr builds a plain column select expression.
func Expr(col Column) SelectExpression { return SelectExpression{Column: col} }

// StarExpr builds the "*" select expression.
func StarExpr() SelectExpression { return SelectExpression{Star: true} }

// AggExpr builds an aggregate select expression.
func AggExpr(fn Aggregate, col Column, distinct bool) SelectExpression {
	return SelectExpression{Column: col, Aggregate: fn, Distinct: distinct}
}

// Select is a SELECT terminal over a Query. With no Columns it defaults to "*".
type Select struct {
	Query   Query
	Columns []SelectExpression
}

// NewSelect terminates q into a Select with the given column list.
func NewSelect(q Query, columns ...SelectExpression) Select {
	if len(columns) == 0 {
		columns = []SelectExpression{StarExpr()}
	}
	return Select{Query: q, Columns: columns}
}

// Update is an UPDATE terminal. columns lists the column names to SET, one
// placeholder per column in the order given. The query must carry no joins.
type Update struct {
	Query   Query
	Columns []string
}

// NewUpdate builds an Update terminal. Returns InvalidQueryError if columns
// is empty or q carries a join.
func NewUpdate(q Query, columns []string) (Update, error) {
	if len(columns) == 0 {
		return Update{}, &InvalidQueryError{Reason: "UPDATE requires at least one column"}
	}
	if len(q.Joins) > 0 {
		return Update{}, &InvalidQueryError{Reason: "UPDATE may not have joins"}
	}
	return Update{Query: q, Columns: columns}, nil
}

// Delete is a DELETE terminal. The query must carry no joins.
type Delete struct {
	Query Query
}

// NewDelete builds a Delete terminal. Returns InvalidQueryError if q carries a join.
func NewDelete(q Query) (Delete, error) {
	if len(q.Joins) > 0 {
		return Delete{}, &InvalidQueryError{Reason: "DELETE may not have joins"}
	}
	return Delete{Query: q}, nil
}

// Insert is an INSERT terminal: a bare table (no Query), the ordered column
// list, and the number of value-tuple rows the INSERT produces.
type Insert struct {
	Table    Table
	Columns  []string
	RowCount int
}

// NewInsert builds an Insert terminal. rowCount must be >= 1; if rowCount
// is not exactly 1 then columns must be non-empty (a multi-row DEFAULT
// VALUES insert is not expressible).
func NewInsert(t Table, columns []string, rowCount int) (Insert, error) {
	if rowCount < 1 {
		return Insert{}, &InvalidQueryError{Reason: "INSERT row count must be >= 1"}
	}
	if rowCount != 1 && len(columns) == 0 {
		return Insert{}, &InvalidQueryError{Reason: "multi-row INSERT requires a non-empty column list"}
	}
	return Insert{Table: t, Columns: columns, RowCount: rowCount}, nil
}

// InvalidQueryError reports an AST-level invariant violation (§7 InvalidQuery).
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string { return "sqlkit: invalid query: " + e.Reason }

// PlaceholderCounts records how many '?' the compiler wrote per segment.
// Where is the WHERE clause's own placeholder count per §8 invariant 1.
// Base is how many placeholders precede the WHERE clause in the compiled
// SQL (non-zero only for UPDATE, whose SET clause is written first); it is
// an implementation detail ApplyPresets needs to find the right global
// position for the LIMIT/OFFSET placeholders, not a user-facing count.
type PlaceholderCounts struct {
	Where int
	Base  int
}

// PreSets carries every value attached to the AST at build time, to be
// bound automatically when the BuiltQuery is prepared, per §4.5.
type PreSets struct {
	Where  map[int]dbval.Value
	Limit  *int64
	Offset *int64
}

// BuiltQuery is the result of compiling a terminal: SQL text plus
// placeholder metadata and the presets carried over from the AST. It is
// immutable and cheaply clonable.
type BuiltQuery struct {
	SQL          string
	Placeholders PlaceholderCounts
	PreSets      PreSets
}

// Compiler is the per-dialect capability that maps AST terminals to
// BuiltQuery values. Implementations are pure functions with no shared
// mutable state.
type Compiler interface {
	BuildSelect(Select) (BuiltQuery, error)
	BuildUpdate(Update) (BuiltQuery, error)
	BuildInsert(Insert) (BuiltQuery, error)
	BuildDelete(Delete) (BuiltQuery, error)
}
