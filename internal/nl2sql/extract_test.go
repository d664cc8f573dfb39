package nl2sql

import (
	"errors"
	"testing"
)

func TestExtractSQLFromFence(t *testing.T) {
	got, err := ExtractSQL("```sql\nSELECT * FROM t;\n```")
	if err != nil {
		t.Fatalf("ExtractSQL() error = %v", err)
	}
	if got != "SELECT * FROM t;" {
		t.Fatalf("ExtractSQL() = %q", got)
	}
}

func TestExtractSQLTakesFenceInteriorAndDropsComments(t *testing.T) {
	raw := "Here is your query:\n```SQL\n-- count delinquent clients\nSELECT COUNT(*)\n  -- filter\nFROM clients\nWHERE delinquent = 1;\n```\nHope it helps."
	got, err := ExtractSQL(raw)
	if err != nil {
		t.Fatalf("ExtractSQL() error = %v", err)
	}
	want := "SELECT COUNT(*)\nFROM clients\nWHERE delinquent = 1;"
	if got != want {
		t.Fatalf("ExtractSQL() = %q, want %q", got, want)
	}
}

func TestExtractSQLFallsBackToWholeText(t *testing.T) {
	got, err := ExtractSQL("  select name from products order by price desc  \n")
	if err != nil {
		t.Fatalf("ExtractSQL() error = %v", err)
	}
	if got != "select name from products order by price desc" {
		t.Fatalf("ExtractSQL() = %q", got)
	}
}

func TestExtractSQLUsesFirstFence(t *testing.T) {
	got, err := ExtractSQL("```sql\nSELECT 1\n```\n```sql\nSELECT 2\n```")
	if err != nil || got != "SELECT 1" {
		t.Fatalf("ExtractSQL() = %q, %v", got, err)
	}
}

func TestExtractSQLNoContext(t *testing.T) {
	for _, raw := range []string{"", "NO_CONTEXT", "Sorry: NO_CONTEXT.", "```sql\nNO_CONTEXT\n```"} {
		_, err := ExtractSQL(raw)
		if !errors.Is(err, ErrNoContext) {
			t.Fatalf("ExtractSQL(%q) error = %v, want ErrNoContext", raw, err)
		}
		if KindOf(err) != KindNoContext {
			t.Fatalf("KindOf() = %v", KindOf(err))
		}
	}
}

func TestExtractSQLRejectsNonSelect(t *testing.T) {
	inputs := []string{
		"DELETE FROM t;",
		"```sql\nUPDATE clients SET delinquent = 0;\n```",
		"```sql\nWITH x AS (SELECT 1) SELECT * FROM x\n```",
		"```sql\n-- only a comment\n```",
		"   ",
	}
	for _, raw := range inputs {
		_, err := ExtractSQL(raw)
		if !errors.Is(err, ErrNotSelect) {
			t.Fatalf("ExtractSQL(%q) error = %v, want ErrNotSelect", raw, err)
		}
		if KindOf(err) != KindNotSelect {
			t.Fatalf("KindOf() = %v", KindOf(err))
		}
	}
}

func TestExtractSQLRejectsStackedStatements(t *testing.T) {
	inputs := []string{
		"SELECT 1; DELETE FROM clients",
		"```sql\nSELECT 1) AS q; DELETE FROM clients; SELECT * FROM (SELECT 1\n```",
		"```sql\nSELECT * FROM clients;\nDROP TABLE clients;\n```",
	}
	for _, raw := range inputs {
		_, err := ExtractSQL(raw)
		if KindOf(err) != KindNotSelect {
			t.Fatalf("ExtractSQL(%q) error = %v, want KindNotSelect", raw, err)
		}
	}
}

func TestExtractSQLKeepsTrailingSemicolonsAndInlineComments(t *testing.T) {
	got, err := ExtractSQL("```sql\nSELECT COUNT(*) AS total FROM clients -- delinquent count;;\n```")
	if err != nil {
		t.Fatalf("ExtractSQL() error = %v", err)
	}
	if got != "SELECT COUNT(*) AS total FROM clients -- delinquent count;;" {
		t.Fatalf("ExtractSQL() = %q", got)
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindNone || KindOf(nil) != KindNone {
		t.Fatal("expected KindNone")
	}
}
