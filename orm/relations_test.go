package orm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	sqlkitdriver "github.com/blackhowling/sqlkit/driver"
	"github.com/blackhowling/sqlkit/orm"
	"github.com/blackhowling/sqlkit/query/sqlitesql"
	"github.com/blackhowling/sqlkit/sqlitedriver"
)

type Thing struct {
	ID   uint64
	Name string
}

type Tag struct {
	ID   uint64
	Name string
}

type Book struct {
	ID         uint64
	Name       string
	Author_id  uint64
}

type Author struct {
	ID   uint64
	Name string
}

func TestScenario6_ManyToManyAssignAndUnassign(t *testing.T) {
	ctx := context.Background()
	conn := sqlitedriver.Open(":memory:", sqlkitdriver.SQLiteMemory)
	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	for _, ddl := range []string{
		`CREATE TABLE thing (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE tag (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE tag_thing (tag_id INTEGER, thing_id INTEGER)`,
	} {
		if err := conn.Execute(ctx, ddl); err != nil {
			t.Fatalf("ddl %q: %v", ddl, err)
		}
	}

	thingMgr, err := orm.NewEntityManager[Thing](conn, sqlitesql.Compiler)
	if err != nil {
		t.Fatalf("NewEntityManager[Thing]: %v", err)
	}
	tagMgr, err := orm.NewEntityManager[Tag](conn, sqlitesql.Compiler)
	if err != nil {
		t.Fatalf("NewEntityManager[Tag]: %v", err)
	}

	apple := &Thing{Name: "apple"}
	if err := thingMgr.Save(ctx, apple); err != nil {
		t.Fatalf("store apple: %v", err)
	}
	fruit := &Tag{Name: "fruit"}
	if err := tagMgr.Save(ctx, fruit); err != nil {
		t.Fatalf("store fruit: %v", err)
	}
	red := &Tag{Name: "red"}
	if err := tagMgr.Save(ctx, red); err != nil {
		t.Fatalf("store red: %v", err)
	}

	if err := orm.ManyToManyAssign(ctx, conn, sqlitesql.Compiler, fruit, apple); err != nil {
		t.Fatalf("assign fruit/apple: %v", err)
	}
	if err := orm.ManyToManyAssign(ctx, conn, sqlitesql.Compiler, red, apple); err != nil {
		t.Fatalf("assign red/apple: %v", err)
	}

	tagsOfApple, err := orm.ManyToMany[Tag](tagMgr, apple)
	if err != nil {
		t.Fatalf("ManyToMany[Tag]: %v", err)
	}
	count, err := tagsOfApple.CountVia(ctx, conn)
	if err != nil {
		t.Fatalf("CountVia: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 tags linked to apple, got %d", count)
	}

	thingsOfFruit, err := orm.ManyToMany[Thing](thingMgr, fruit)
	if err != nil {
		t.Fatalf("ManyToMany[Thing]: %v", err)
	}
	count, err = thingsOfFruit.CountVia(ctx, conn)
	if err != nil {
		t.Fatalf("CountVia: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 thing linked to fruit, got %d", count)
	}

	results, err := tagsOfApple.SelectVia(ctx, conn)
	if err != nil {
		t.Fatalf("SelectVia: %v", err)
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	assert.ElementsMatch(t, []string{"fruit", "red"}, names)

	if err := orm.ManyToManyUnassign(ctx, conn, sqlitesql.Compiler, red, apple); err != nil {
		t.Fatalf("unassign red/apple: %v", err)
	}
	count, err = tagsOfApple.CountVia(ctx, conn)
	if err != nil {
		t.Fatalf("CountVia after unassign: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 tag linked to apple after unassign, got %d", count)
	}
}

func TestManyToOneAndOneToMany(t *testing.T) {
	ctx := context.Background()
	conn := sqlitedriver.Open(":memory:", sqlkitdriver.SQLiteMemory)
	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	for _, ddl := range []string{
		`CREATE TABLE author (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE book (id INTEGER PRIMARY KEY, name TEXT, author_id INTEGER)`,
	} {
		if err := conn.Execute(ctx, ddl); err != nil {
			t.Fatalf("ddl %q: %v", ddl, err)
		}
	}

	authorMgr, err := orm.NewEntityManager[Author](conn, sqlitesql.Compiler)
	if err != nil {
		t.Fatalf("NewEntityManager[Author]: %v", err)
	}
	bookMgr, err := orm.NewEntityManager[Book](conn, sqlitesql.Compiler)
	if err != nil {
		t.Fatalf("NewEntityManager[Book]: %v", err)
	}

	a := &Author{Name: "Le Guin"}
	if err := authorMgr.Save(ctx, a); err != nil {
		t.Fatalf("store author: %v", err)
	}
	b := &Book{Name: "The Dispossessed", Author_id: a.ID}
	if err := bookMgr.Save(ctx, b); err != nil {
		t.Fatalf("store book: %v", err)
	}

	got, ok, err := orm.ManyToOne[Author](ctx, authorMgr, b)
	if err != nil {
		t.Fatalf("ManyToOne: %v", err)
	}
	if !ok || got.Name != "Le Guin" {
		t.Fatalf("unexpected manyToOne result: ok=%v got=%+v", ok, got)
	}

	books, err := orm.OneToMany[Book](bookMgr, a)
	if err != nil {
		t.Fatalf("OneToMany: %v", err)
	}
	results, err := books.SelectVia(ctx, conn)
	if err != nil {
		t.Fatalf("SelectVia: %v", err)
	}
	if len(results) != 1 || results[0].Name != "The Dispossessed" {
		t.Fatalf("unexpected oneToMany result: %+v", results)
	}
}
