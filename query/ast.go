// Package query implements the language-agnostic query AST described by the
// design: tables, columns, WHERE token streams, joins, ordering, limits,
// aggregates and the INSERT shapes, plus the per-dialect Compiler capability
// that turns a terminal into a BuiltQuery. Construction is pure: every
// combinator returns a new value rather than mutating its receiver in place,
// so a Query can be built once and compiled by more than one dialect.
package query

import "github.com/blackhowling/sqlkit/dbval"

// Table is a table identifier. Never used raw in SQL; always quoted by a
// Compiler.
type Table struct {
	Name string
}

// T is a short constructor for Table, mirroring the table(...) helper named
// in the design's examples.
func T(name string) Table { return Table{Name: name} }

// Column is a column reference, optionally qualified by a table.
type Column struct {
	Table string // empty if unqualified
	Name  string
}

// C builds an unqualified column reference.
func C(name string) Column { return Column{Name: name} }

// Col builds a table-qualified column reference.
func Col(t Table, name string) Column { return Column{Table: t.Name, Name: name} }

// JoinKind enumerates the supported JOIN kinds.
type JoinKind uint8

const (
	JoinInner JoinKind = iota
	JoinLeftOuter
	JoinRightOuter
	JoinFullOuter
	JoinCross
)

// Join describes one JOIN clause: ON TargetColumn = SourceColumn, where
// TargetColumn names a column on Target and SourceColumn names a column on
// one of the query's existing tables (optionally table-qualified). For
// Cross joins both may be the zero Column.
type Join struct {
	Kind         JoinKind
	Target       Table
	TargetColumn Column
	SourceColumn Column
}

// Direction is the sort direction of an ORDER BY term.
type Direction uint8

const (
	Asc Direction = iota
	Desc
)

// OrderingTerm is one ORDER BY entry.
type OrderingTerm struct {
	Column    Column
	Direction Direction
}

// Limit captures the four LIMIT/OFFSET forms described in §4.3: disabled,
// enabled with no preset, enabled with a preset, and enabled with a preset
// offset. Offset may only be enabled when Limit is enabled.
type Limit struct {
	Enabled bool
	Preset  *int64 // nil if not preset at build time

	OffsetEnabled bool
	OffsetPreset  *int64
}

// ComparisonOperator enumerates the comparison operators a WHERE token may carry.
type ComparisonOperator uint8

const (
	OpEq ComparisonOperator = iota
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpIn
	OpNotIn
	OpLike
	OpNotLike
	OpIsNull
	OpIsNotNull
)

// Nullary reports whether the operator takes no placeholder (IS NULL / IS NOT NULL).
func (op ComparisonOperator) Nullary() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// TokenKind enumerates the WHERE token-stream fragment kinds.
type TokenKind uint8

const (
	TokColumnTable TokenKind = iota
	TokColumn
	TokPlaceholder
	TokComparisonOperator
	TokAnd
	TokOr
	TokNot
	TokLeftParen
	TokRightParen
)

// Token is one fragment of a WHERE token stream.
type Token struct {
	Kind     TokenKind
	Column   Column             // for TokColumnTable / TokColumn
	Operator ComparisonOperator // for TokComparisonOperator
}

// Where is the WHERE clause token stream: a flat sequence of typed fragments
// together with a placeholder counter and a map of placeholder index to a
// preset value bound at build time rather than by the caller.
type Where struct {
	Tokens       []Token
	Placeholders int
	PreSet       map[int]dbval.Value
}

func emptyWhere() Where {
	return Where{PreSet: map[int]dbval.Value{}}
}

// needsJunctor reports whether appending a new condition/group must first
// emit an AND/OR keyword: true whenever the stream is non-empty and its last
// token isn't an opening parenthesis.
func (w Where) needsJunctor() bool {
	if len(w.Tokens) == 0 {
		return false
	}
	return w.Tokens[len(w.Tokens)-1].Kind != TokLeftParen
}

func junctorToken(or bool) Token {
	if or {
		return Token{Kind: TokOr}
	}
	return Token{Kind: TokAnd}
}

// appendJunctor emits the AND/OR a new condition or group needs, ahead of
// any trailing NOT tokens so that NOT stays directly before what it negates.
func (w *Where) appendJunctor(or bool) {
	n := len(w.Tokens)
	for n > 0 && w.Tokens[n-1].Kind == TokNot {
		n--
	}
	if (Where{Tokens: w.Tokens[:n]}).needsJunctor() {
		nots := append([]Token(nil), w.Tokens[n:]...)
		w.Tokens = append(append(w.Tokens[:n], junctorToken(or)), nots...)
	}
}

// where appends a single comparison. preset, if non-nil, is recorded against
// the new placeholder's index and the placeholder is still emitted into the
// token stream (a later compiler step still writes '?' for it).
func (w Where) where(col Column, op ComparisonOperator, preset *dbval.Value, or bool) Where {
	nw := w.cloneForAppend()
	nw.appendJunctor(or)
	if col.Table != "" {
		nw.Tokens = append(nw.Tokens, Token{Kind: TokColumnTable, Column: col})
	}
	nw.Tokens = append(nw.Tokens, Token{Kind: TokColumn, Column: col}, Token{Kind: TokComparisonOperator, Operator: op})
	if !op.Nullary() {
		idx := nw.Placeholders
		nw.Tokens = append(nw.Tokens, Token{Kind: TokPlaceholder})
		nw.Placeholders++
		if preset != nil {
			nw.PreSet[idx] = *preset
		}
	}
	return nw
}

// Where appends an AND-joined condition with no preset value.
func (w Where) Where(col Column, op ComparisonOperator) Where {
	return w.where(col, op, nil, false)
}

// WhereOr appends an OR-joined condition with no preset value.
func (w Where) WhereOr(col Column, op ComparisonOperator) Where {
	return w.where(col, op, nil, true)
}

// WherePreset appends an AND-joined condition whose value is supplied now
// and bound automatically when the BuiltQuery is prepared.
func (w Where) WherePreset(col Column, op ComparisonOperator, v dbval.Value) Where {
	return w.where(col, op, &v, false)
}

// WhereOrPreset appends an OR-joined condition whose value is supplied now.
func (w Where) WhereOrPreset(col Column, op ComparisonOperator, v dbval.Value) Where {
	return w.where(col, op, &v, true)
}

// WhereParentheses wraps a sub-query's conditions in parentheses. inner is
// applied to a fresh empty Where and its token stream (with placeholder
// indices continuing from w) is spliced between the emitted parens.
func (w Where) WhereParentheses(inner func(Where) Where) Where {
	return w.whereParentheses(inner, false)
}

// WhereOrParentheses is WhereParentheses joined by OR instead of AND.
func (w Where) WhereOrParentheses(inner func(Where) Where) Where {
	return w.whereParentheses(inner, true)
}

func (w Where) whereParentheses(inner func(Where) Where, or bool) Where {
	nw := w.cloneForAppend()
	nw.appendJunctor(or)
	nw.Tokens = append(nw.Tokens, Token{Kind: TokLeftParen})

	sub := Where{Placeholders: nw.Placeholders, PreSet: map[int]dbval.Value{}}
	sub = inner(sub)

	nw.Tokens = append(nw.Tokens, sub.Tokens...)
	nw.Placeholders = sub.Placeholders
	for idx, v := range sub.PreSet {
		nw.PreSet[idx] = v
	}

	nw.Tokens = append(nw.Tokens, Token{Kind: TokRightParen})
	return nw
}

// Not prefixes the next appended condition with NOT. Per construction rules
// it does not itself consume a junctor slot; it is inserted immediately
// before the condition it negates.
func (w Where) Not() Where {
	nw := w.cloneForAppend()
	nw.Tokens = append(nw.Tokens, Token{Kind: TokNot})
	return nw
}

func (w Where) cloneForAppend() Where {
	nw := Where{
		Tokens:       append([]Token(nil), w.Tokens...),
		Placeholders: w.Placeholders,
		PreSet:       make(map[int]dbval.Value, len(w.PreSet)),
	}
	for k, v := range w.PreSet {
		nw.PreSet[k] = v
	}
	return nw
}

// Query is the mutable-free query builder core: a table, a set of joins, a
// WHERE clause, ordering terms and a limit. Every combinator is a pure,
// value-returning method.
type Query struct {
	Table    Table
	Joins    []Join
	Where    Where
	Ordering []OrderingTerm
	Limit    Limit
}

// From starts a new query rooted at t.
func From(t Table) Query {
	return Query{Table: t, Where: emptyWhere()}
}

func (q Query) clone() Query {
	nq := q
	nq.Joins = append([]Join(nil), q.Joins...)
	nq.Ordering = append([]OrderingTerm(nil), q.Ordering...)
	return nq
}

// WhereFn replaces the query's WHERE clause with the result of applying fn to
// the current (possibly empty) one.
func (q Query) WhereFn(fn func(Where) Where) Query {
	nq := q.clone()
	nq.Where = fn(q.Where)
	return nq
}

// WhereCond is a convenience wrapper equivalent to WhereFn(func(w) { return w.Where(col, op) }).
func (q Query) WhereCond(col Column, op ComparisonOperator) Query {
	return q.WhereFn(func(w Where) Where { return w.Where(col, op) })
}

// WhereCondPreset is a convenience wrapper for a preset-valued AND condition.
func (q Query) WhereCondPreset(col Column, op ComparisonOperator, v dbval.Value) Query {
	return q.WhereFn(func(w Where) Where { return w.WherePreset(col, op, v) })
}

// Join appends a join: ON targetColumn = sourceColumn. Order-preserving:
// joins compile in insertion order.
func (q Query) Join(kind JoinKind, target Table, targetColumn, sourceColumn Column) Query {
	nq := q.clone()
	nq.Joins = append(nq.Joins, Join{Kind: kind, Target: target, TargetColumn: targetColumn, SourceColumn: sourceColumn})
	return nq
}

// OrderBy appends an ordering term.
func (q Query) OrderBy(col Column, dir Direction) Query {
	nq := q.clone()
	nq.Ordering = append(nq.Ordering, OrderingTerm{Column: col, Direction: dir})
	return nq
}

// WithLimit enables LIMIT, optionally with a preset value.
func (q Query) WithLimit(preset *int64) Query {
	nq := q
	nq.Limit.Enabled = true
	nq.Limit.Preset = preset
	return nq
}

// WithOffset enables OFFSET (requires Limit already enabled), optionally
// with a preset value.
func (q Query) WithOffset(preset *int64) Query {
	nq := q
	nq.Limit.OffsetEnabled = true
	nq.Limit.OffsetPreset = preset
	return nq
}
