package query

import (
	"strings"

	"github.com/blackhowling/sqlkit/dbval"
)

// Dialect captures the handful of ways SQLite and MariaDB compilers differ:
// identifier quoting and whether FULL OUTER JOIN is supported. Everything
// else in §4.4's shared contract (placeholder style, placeholder numbering,
// preset carry-over, SELECT/JOIN/WHERE emission) is identical across
// dialects and lives in this file once.
type Dialect struct {
	QuoteChar          byte
	AllowFullOuterJoin bool
}

// engine is the generic Compiler implementation parameterised by a Dialect.
// The sqlitesql and mariasql packages each expose a Compiler backed by one
// of these with their own quoting/join-support configuration.
type engine struct {
	dialect Dialect
}

// NewCompiler returns a Compiler for the given dialect configuration.
func NewCompiler(d Dialect) Compiler { return &engine{dialect: d} }

func (e *engine) quote(name string) string {
	q := string(e.dialect.QuoteChar)
	escaped := strings.ReplaceAll(name, q, q+q)
	return q + escaped + q
}

func operatorSpelling(op ComparisonOperator) string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLte:
		return "<="
	case OpGte:
		return ">="
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpLike:
		return "LIKE"
	case OpNotLike:
		return "NOT LIKE"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "?"
	}
}

func aggregateSpelling(a Aggregate) string {
	switch a {
	case AggregateAvg:
		return "AVG"
	case AggregateCount:
		return "COUNT"
	case AggregateMax:
		return "MAX"
	case AggregateMin:
		return "MIN"
	case AggregateSum:
		return "SUM"
	case AggregateGroupConcat:
		return "GROUP_CONCAT"
	default:
		return ""
	}
}

func joinKeyword(k JoinKind) string {
	switch k {
	case JoinInner:
		return " JOIN"
	case JoinLeftOuter:
		return " LEFT OUTER JOIN"
	case JoinRightOuter:
		return " RIGHT OUTER JOIN"
	case JoinFullOuter:
		return " FULL OUTER JOIN"
	case JoinCross:
		return " CROSS JOIN"
	default:
		return ""
	}
}

func (e *engine) column(col Column) string {
	if col.Name == "*" {
		return "*"
	}
	return e.quote(col.Name)
}

func (e *engine) qualifiedColumn(col Column) string {
	if col.Name == "*" {
		return "*"
	}
	if col.Table == "" {
		return e.column(col)
	}
	return e.quote(col.Table) + "." + e.column(col)
}

// writeWhere walks the WHERE token stream exactly per §4.4's token-by-token
// emission rules and returns the SQL fragment, leading with a space, e.g.
// ` "height" > ? AND ( "location" = ? OR "location" = ? )`. Returns "" for
// an empty clause.
func (e *engine) writeWhere(w Where) string {
	if len(w.Tokens) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, tok := range w.Tokens {
		switch tok.Kind {
		case TokColumnTable:
			sb.WriteByte(' ')
			sb.WriteString(e.quote(tok.Column.Table))
			sb.WriteByte('.')
		case TokColumn:
			prevIsColumnTable := i > 0 && w.Tokens[i-1].Kind == TokColumnTable
			if !prevIsColumnTable {
				sb.WriteByte(' ')
			}
			sb.WriteString(e.column(tok.Column))
		case TokComparisonOperator:
			sb.WriteByte(' ')
			sb.WriteString(operatorSpelling(tok.Operator))
		case TokPlaceholder:
			sb.WriteString(" ?")
		case TokAnd:
			sb.WriteString(" AND")
		case TokOr:
			sb.WriteString(" OR")
		case TokNot:
			sb.WriteString(" NOT")
		case TokLeftParen:
			sb.WriteString(" (")
		case TokRightParen:
			sb.WriteString(" )")
		}
	}
	return sb.String()
}

func (e *engine) writeJoins(joins []Join) (string, error) {
	var sb strings.Builder
	for _, j := range joins {
		if j.Kind == JoinFullOuter && !e.dialect.AllowFullOuterJoin {
			return "", &InvalidQueryError{Reason: "FULL OUTER JOIN is not supported by this dialect"}
		}
		sb.WriteString(joinKeyword(j.Kind))
		sb.WriteByte(' ')
		sb.WriteString(e.quote(j.Target.Name))
		if j.Kind != JoinCross {
			if j.TargetColumn.Name == "" || j.SourceColumn.Name == "" {
				return "", &InvalidQueryError{Reason: "non-cross joins require both a target and source column"}
			}
			sb.WriteString(" ON ")
			sb.WriteString(e.quote(j.Target.Name))
			sb.WriteByte('.')
			sb.WriteString(e.column(j.TargetColumn))
			sb.WriteString(" = ")
			sb.WriteString(e.qualifiedColumn(j.SourceColumn))
		}
	}
	return sb.String(), nil
}

func (e *engine) writeOrderBy(terms []OrderingTerm) string {
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		s := e.qualifiedColumn(t.Column)
		if t.Direction == Desc {
			s += " DESC"
		}
		parts[i] = s
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// writeLimit emits "LIMIT ?" and optionally " OFFSET ?", returning the
// fragment and the presets to carry into the BuiltQuery.
func (e *engine) writeLimit(l Limit) (sql string, preSets PreSets) {
	if !l.Enabled {
		return "", PreSets{}
	}
	sql = " LIMIT ?"
	preSets.Limit = l.Preset
	if l.OffsetEnabled {
		sql += " OFFSET ?"
		preSets.Offset = l.OffsetPreset
	}
	return sql, preSets
}

func (e *engine) selectColumnsSQL(cols []SelectExpression) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.Star {
			parts[i] = "*"
			continue
		}
		colSQL := e.qualifiedColumn(c.Column)
		if c.Aggregate == AggregateNone {
			parts[i] = colSQL
			continue
		}
		inner := colSQL
		if c.Distinct {
			inner = "DISTINCT " + inner
		}
		parts[i] = aggregateSpelling(c.Aggregate) + "(" + inner + ")"
	}
	return strings.Join(parts, ", ")
}

func (e *engine) BuildSelect(s Select) (BuiltQuery, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(e.selectColumnsSQL(s.Columns))
	sb.WriteString(" FROM ")
	sb.WriteString(e.quote(s.Query.Table.Name))

	joinsSQL, err := e.writeJoins(s.Query.Joins)
	if err != nil {
		return BuiltQuery{}, err
	}
	sb.WriteString(joinsSQL)

	whereSQL := e.writeWhere(s.Query.Where)
	if whereSQL != "" {
		sb.WriteString(" WHERE")
		sb.WriteString(whereSQL)
	}

	sb.WriteString(e.writeOrderBy(s.Query.Ordering))

	limitSQL, limitPresets := e.writeLimit(s.Query.Limit)
	sb.WriteString(limitSQL)

	return BuiltQuery{
		SQL:          sb.String(),
		Placeholders: PlaceholderCounts{Where: s.Query.Where.Placeholders},
		PreSets: PreSets{
			Where:  s.Query.Where.PreSet,
			Limit:  limitPresets.Limit,
			Offset: limitPresets.Offset,
		},
	}, nil
}

func (e *engine) BuildUpdate(u Update) (BuiltQuery, error) {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(e.quote(u.Query.Table.Name))
	sb.WriteString(" SET ")
	setClauses := make([]string, len(u.Columns))
	for i, col := range u.Columns {
		setClauses[i] = e.quote(col) + " = ?"
	}
	sb.WriteString(strings.Join(setClauses, ", "))

	whereSQL := e.writeWhere(u.Query.Where)
	if whereSQL != "" {
		sb.WriteString(" WHERE")
		sb.WriteString(whereSQL)
	}
	sb.WriteString(e.writeOrderBy(u.Query.Ordering))

	limitSQL, limitPresets := e.writeLimit(u.Query.Limit)
	sb.WriteString(limitSQL)

	// The SET clause writes len(u.Columns) placeholders ahead of the WHERE
	// clause's own, so WHERE's locally-numbered presets must be shifted by
	// that many positions to land on the right "?" in the compiled SQL.
	offset := len(u.Columns)
	shiftedWhere := make(map[int]dbval.Value, len(u.Query.Where.PreSet))
	for idx, v := range u.Query.Where.PreSet {
		shiftedWhere[idx+offset] = v
	}

	return BuiltQuery{
		SQL:          sb.String(),
		Placeholders: PlaceholderCounts{Where: u.Query.Where.Placeholders, Base: offset},
		PreSets: PreSets{
			Where:  shiftedWhere,
			Limit:  limitPresets.Limit,
			Offset: limitPresets.Offset,
		},
	}, nil
}

func (e *engine) BuildDelete(d Delete) (BuiltQuery, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(e.quote(d.Query.Table.Name))

	whereSQL := e.writeWhere(d.Query.Where)
	if whereSQL != "" {
		sb.WriteString(" WHERE")
		sb.WriteString(whereSQL)
	}
	sb.WriteString(e.writeOrderBy(d.Query.Ordering))

	limitSQL, limitPresets := e.writeLimit(d.Query.Limit)
	sb.WriteString(limitSQL)

	return BuiltQuery{
		SQL:          sb.String(),
		Placeholders: PlaceholderCounts{Where: d.Query.Where.Placeholders},
		PreSets: PreSets{
			Where:  d.Query.Where.PreSet,
			Limit:  limitPresets.Limit,
			Offset: limitPresets.Offset,
		},
	}, nil
}

func (e *engine) BuildInsert(ins Insert) (BuiltQuery, error) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(e.quote(ins.Table.Name))

	if len(ins.Columns) == 0 {
		sb.WriteString(" DEFAULT VALUES")
		return BuiltQuery{SQL: sb.String()}, nil
	}

	quotedCols := make([]string, len(ins.Columns))
	for i, c := range ins.Columns {
		quotedCols[i] = e.quote(c)
	}
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quotedCols, ", "))
	sb.WriteString(") VALUES ")

	placeholders := make([]string, len(ins.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	group := "(" + strings.Join(placeholders, ",") + ")"

	groups := make([]string, ins.RowCount)
	for i := range groups {
		groups[i] = group
	}
	sb.WriteString(strings.Join(groups, ", "))

	return BuiltQuery{SQL: sb.String()}, nil
}
