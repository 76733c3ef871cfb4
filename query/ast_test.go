package query

import (
	"testing"

	"github.com/blackhowling/sqlkit/dbval"
)

func TestWhereJunctorInsertion(t *testing.T) {
	w := emptyWhere().Where(C("height"), OpGt).WhereOrPreset(C("location"), OpEq, dbval.Text("US"))

	var junctors []TokenKind
	for _, tok := range w.Tokens {
		if tok.Kind == TokAnd || tok.Kind == TokOr {
			junctors = append(junctors, tok.Kind)
		}
	}
	if len(junctors) != 1 || junctors[0] != TokOr {
		t.Fatalf("expected a single OR junctor, got %v", junctors)
	}
}

func TestWherePlaceholderCountMatchesTokens(t *testing.T) {
	w := emptyWhere().
		Where(C("height"), OpGt).
		WhereParentheses(func(inner Where) Where {
			return inner.WherePreset(C("location"), OpEq, dbval.Text("US")).
				WhereOrPreset(C("location"), OpEq, dbval.Text("CA"))
		})

	placeholderTokens := 0
	for _, tok := range w.Tokens {
		if tok.Kind == TokPlaceholder {
			placeholderTokens++
		}
	}
	if placeholderTokens != w.Placeholders {
		t.Fatalf("placeholder token count %d != counter %d", placeholderTokens, w.Placeholders)
	}
	if w.Placeholders != 3 {
		t.Fatalf("expected 3 placeholders, got %d", w.Placeholders)
	}
	for idx := range w.PreSet {
		if idx >= w.Placeholders {
			t.Fatalf("preset index %d out of range (placeholders=%d)", idx, w.Placeholders)
		}
	}
}

func TestNullaryOperatorHasNoPlaceholder(t *testing.T) {
	w := emptyWhere().Where(C("deleted_at"), OpIsNull)
	for i, tok := range w.Tokens {
		if tok.Kind == TokComparisonOperator && tok.Operator.Nullary() {
			if i+1 < len(w.Tokens) && w.Tokens[i+1].Kind == TokPlaceholder {
				t.Fatalf("nullary operator must not be followed by a placeholder")
			}
		}
	}
	if w.Placeholders != 0 {
		t.Fatalf("expected 0 placeholders for IS NULL, got %d", w.Placeholders)
	}
}

func TestNewUpdateRejectsEmptyColumnsOrJoins(t *testing.T) {
	q := From(T("mountain"))
	if _, err := NewUpdate(q, nil); err == nil {
		t.Fatalf("expected error for empty column list")
	}
	joined := q.Join(JoinInner, T("range"), C("range_id"), C("id"))
	if _, err := NewUpdate(joined, []string{"height"}); err == nil {
		t.Fatalf("expected error for UPDATE with joins")
	}
}

func TestNewDeleteRejectsJoins(t *testing.T) {
	q := From(T("mountain")).Join(JoinInner, T("range"), C("range_id"), C("id"))
	if _, err := NewDelete(q); err == nil {
		t.Fatalf("expected error for DELETE with joins")
	}
}

func TestNewInsertRequiresColumnsForMultiRow(t *testing.T) {
	if _, err := NewInsert(T("mountain"), nil, 2); err == nil {
		t.Fatalf("expected error for multi-row insert with no columns")
	}
	if _, err := NewInsert(T("mountain"), nil, 1); err != nil {
		t.Fatalf("single-row DEFAULT VALUES insert should be allowed: %v", err)
	}
}
