package query_test

import (
	"testing"

	"github.com/blackhowling/sqlkit/dbval"
	"github.com/blackhowling/sqlkit/query"
	"github.com/blackhowling/sqlkit/query/mariasql"
	"github.com/blackhowling/sqlkit/query/sqlitesql"
)

func TestScenario1_WhereWithParenthesizedOr(t *testing.T) {
	q := query.From(query.T("mountain")).
		WhereFn(func(w query.Where) query.Where {
			return w.Where(query.C("height"), query.OpGt).
				WhereParentheses(func(inner query.Where) query.Where {
					return inner.WherePreset(query.C("location"), query.OpEq, dbval.Text("US")).
						WhereOrPreset(query.C("location"), query.OpEq, dbval.Text("CA"))
				})
		})

	bq, err := sqlitesql.Compiler.BuildSelect(query.NewSelect(q, query.StarExpr()))
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}

	const want = `SELECT * FROM "mountain" WHERE "height" > ? AND ( "location" = ? OR "location" = ? )`
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
	if bq.Placeholders.Where != 3 {
		t.Fatalf("expected 3 where placeholders, got %d", bq.Placeholders.Where)
	}
	us, _ := bq.PreSets.Where[1].GetText()
	ca, _ := bq.PreSets.Where[2].GetText()
	if us != "US" || ca != "CA" {
		t.Fatalf("unexpected presets: %#v", bq.PreSets.Where)
	}
	if bq.PreSets.Limit != nil {
		t.Fatalf("expected no limit preset")
	}
}

func TestScenario2_OrderBy(t *testing.T) {
	q := query.From(query.T("mountain")).
		OrderBy(query.C("height"), query.Asc).
		OrderBy(query.C("name"), query.Desc).
		OrderBy(query.C("location"), query.Desc)

	bq, err := sqlitesql.Compiler.BuildSelect(query.NewSelect(q))
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}
	const want = `SELECT * FROM "mountain" ORDER BY "height", "name" DESC, "location" DESC`
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
}

func TestScenario3_MultiRowInsert(t *testing.T) {
	ins, err := query.NewInsert(query.T("mountain"), []string{"name", "location", "height"}, 2)
	if err != nil {
		t.Fatalf("NewInsert: %v", err)
	}
	bq, err := sqlitesql.Compiler.BuildInsert(ins)
	if err != nil {
		t.Fatalf("BuildInsert: %v", err)
	}
	const want = `INSERT INTO "mountain" ("name", "location", "height") VALUES (?,?,?), (?,?,?)`
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
}

func TestScenario4_LeftOuterJoin(t *testing.T) {
	q := query.From(query.T("book")).
		Join(query.JoinLeftOuter, query.T("author"), query.Col(query.T("author"), "id"), query.Col(query.T("book"), "author_id")).
		OrderBy(query.Col(query.T("book"), "name"), query.Asc)

	bq, err := sqlitesql.Compiler.BuildSelect(query.NewSelect(q))
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}
	const want = `SELECT * FROM "book" LEFT OUTER JOIN "author" ON "author"."id" = "book"."author_id" ORDER BY "book"."name"`
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
}

func TestMariaDBBacktickQuoting(t *testing.T) {
	q := query.From(query.T("mountain")).WhereCond(query.C("location"), query.OpNeq).
		OrderBy(query.C("height"), query.Asc).
		WithLimit(nil)

	bq, err := mariasql.Compiler.BuildSelect(query.NewSelect(q))
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}
	const want = "SELECT * FROM `mountain` WHERE `location` <> ? ORDER BY `height` LIMIT ?"
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
}

func TestMariaDBRejectsFullOuterJoin(t *testing.T) {
	q := query.From(query.T("book")).
		Join(query.JoinFullOuter, query.T("author"), query.Col(query.T("author"), "id"), query.Col(query.T("book"), "author_id"))

	if _, err := mariasql.Compiler.BuildSelect(query.NewSelect(q)); err == nil {
		t.Fatalf("expected FULL OUTER JOIN to be rejected for MariaDB")
	}
}

func TestIdentifierEscaping(t *testing.T) {
	q := query.From(query.T(`weird"table`))
	bq, err := sqlitesql.Compiler.BuildSelect(query.NewSelect(q))
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}
	const want = `SELECT * FROM "weird""table"`
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
}

func TestLimitOffsetPlaceholderOrdering(t *testing.T) {
	limit := int64(10)
	offset := int64(5)
	q := query.From(query.T("mountain")).
		WhereCond(query.C("height"), query.OpGt).
		WithLimit(&limit).
		WithOffset(&offset)

	bq, err := sqlitesql.Compiler.BuildSelect(query.NewSelect(q))
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}
	const want = `SELECT * FROM "mountain" WHERE "height" > ? LIMIT ? OFFSET ?`
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
	if *bq.PreSets.Limit != 10 || *bq.PreSets.Offset != 5 {
		t.Fatalf("unexpected limit/offset presets: %+v", bq.PreSets)
	}
}

func TestUpdateAndDeleteRequireNoJoins(t *testing.T) {
	joined := query.From(query.T("book")).
		Join(query.JoinInner, query.T("author"), query.Col(query.T("author"), "id"), query.Col(query.T("book"), "author_id"))

	if _, err := query.NewUpdate(joined, []string{"title"}); err == nil {
		t.Fatalf("expected NewUpdate to reject joined query")
	}
	if _, err := query.NewDelete(joined); err == nil {
		t.Fatalf("expected NewDelete to reject joined query")
	}
}

func TestUpdatePlaceholderShifting(t *testing.T) {
	q := query.From(query.T("mountain")).WhereCondPreset(query.C("id"), query.OpEq, dbval.U64(7))
	upd, err := query.NewUpdate(q, []string{"name", "height"})
	if err != nil {
		t.Fatalf("NewUpdate: %v", err)
	}
	built, err := sqlitesql.Compiler.BuildUpdate(upd)
	if err != nil {
		t.Fatalf("BuildUpdate: %v", err)
	}
	const want = `UPDATE "mountain" SET "name" = ?, "height" = ? WHERE "id" = ?`
	if built.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", built.SQL, want)
	}
	v, ok := built.PreSets.Where[2]
	if !ok {
		t.Fatalf("expected preset at global index 2, got %#v", built.PreSets.Where)
	}
	id, _ := v.GetAsU64()
	if id != 7 {
		t.Fatalf("expected preset value 7, got %d", id)
	}
}

func TestAggregateSelectExpression(t *testing.T) {
	q := query.From(query.T("mountain"))
	bq, err := sqlitesql.Compiler.BuildSelect(query.NewSelect(q, query.AggExpr(query.AggregateCount, query.Column{Name: "*"}, false)))
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}
	const want = `SELECT COUNT(*) FROM "mountain"`
	if bq.SQL != want {
		t.Fatalf("SQL mismatch:\n got: %s\nwant: %s", bq.SQL, want)
	}
}
