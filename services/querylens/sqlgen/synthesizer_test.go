// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sqlgen

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/chain"
	"github.com/AleutianAI/querylens/services/querylens/config"
	"github.com/AleutianAI/querylens/services/querylens/datasource"
	"github.com/AleutianAI/querylens/services/querylens/schema"
)

const testSchema = `
export const statusEnum = pgEnum('status', ['active', 'inactive']);

export const users = pgTable('users', {
  id: serial('id').primaryKey(),
  name: text('name').notNull(),
  email: varchar('email').notNull(),
  age: integer('age'),
  status: statusEnum('status').notNull(),
  createdAt: timestamp('created_at').defaultNow(),
});

export const orders = pgTable('orders', {
  id: serial('id').primaryKey(),
  userId: integer('user_id').notNull(),
  total: integer('total').notNull(),
});
`

// loadTestSchema loads the shared fixture schema.
func loadTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.ts")
	if err := os.WriteFile(path, []byte(testSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := schema.NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

// synthesize runs the full front half of the pipeline over source and
// renders the chain containing anchorMethod.
func synthesize(t *testing.T, s *schema.Schema, source, anchorMethod string) (*ExtractedQuery, []byte) {
	t.Helper()
	cfg := config.Default()
	file, err := ast.NewParser().Parse(context.Background(), []byte(source), "test.ts")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	t.Cleanup(file.Close)

	var call *sitter.Node
	ast.Walk(file.Root(), func(n *sitter.Node) bool {
		if call != nil {
			return false
		}
		if n.Type() != "call_expression" {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil || fn.Type() != "member_expression" {
			return true
		}
		prop := fn.ChildByFieldName("property")
		if prop != nil && ast.Text(prop, file.Source) == anchorMethod {
			call = n
			return false
		}
		return true
	})
	if call == nil {
		t.Fatalf("no call to %q in source", anchorMethod)
	}

	segments, ok := chain.Collect(call, file.Source, cfg)
	if !ok {
		t.Fatal("Collect() ok = false")
	}
	scope := datasource.BuildScope(file.Root(), file.Source, cfg)
	info := chain.NewAnalyzer(cfg).Analyze(segments, file.Source, scope)
	if info == nil {
		t.Fatal("Analyze() = nil")
	}
	aliases := chain.CollectAliases(file.Root(), file.Source)

	return NewSynthesizer(s).Synthesize(chain.Resolve(info, aliases), file.Source), file.Source
}

func TestSynthesize_SelectClauseOrder(t *testing.T) {
	s := loadTestSchema(t)

	// Clauses render in canonical order no matter the call order.
	query, _ := synthesize(t, s,
		"db.select().from(users).offset(5).orderBy(desc(orders.total)).groupBy(users.id).where(gt(orders.total, 100)).limit(10).innerJoin(orders, eq(users.id, orders.userId));",
		"select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT * FROM users INNER JOIN orders ON users.id = orders.user_id" +
		" WHERE orders.total > 100 GROUP BY users.id ORDER BY orders.total DESC LIMIT 10 OFFSET 5"
	if query.SQL != want {
		t.Errorf("SQL = %q\nwant %q", query.SQL, want)
	}
	if !reflect.DeepEqual(query.Tables, []string{"users", "orders"}) {
		t.Errorf("Tables = %v, want [users orders]", query.Tables)
	}
	if query.Type != "select" {
		t.Errorf("Type = %q, want %q", query.Type, "select")
	}
}

func TestSynthesize_SelectColumnsResolve(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s,
		"db.select({ id: users.id, createdAt: users.createdAt }).from(users);",
		"select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT id, created_at FROM users"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
}

func TestSynthesize_AliasedImport(t *testing.T) {
	s := loadTestSchema(t)

	source := `
import { users as usersTable } from './schema';
db.select().from(usersTable).where(eq(usersTable.id, 1));
`
	query, _ := synthesize(t, s, source, "select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT * FROM users WHERE users.id = 1"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
}

func TestSynthesize_InsertLiteralsAndParams(t *testing.T) {
	s := loadTestSchema(t)

	source := `
const formData = await request.formData();
await db.insert(users).values({ name: 'Ann', email: formData.get('email'), age: 30 });
`
	query, _ := synthesize(t, s, source, "insert")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "INSERT INTO users (name, email, age) VALUES ('Ann', $1, 30)"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}

	if len(query.Parameters) != 1 {
		t.Fatalf("len(Parameters) = %d, want 1", len(query.Parameters))
	}
	p := query.Parameters[0]
	if p.Position != 1 {
		t.Errorf("Position = %d, want 1", p.Position)
	}
	if p.Source != "formData.get('email')" {
		t.Errorf("Source = %q, want the originating expression text", p.Source)
	}
	if p.ColumnType != "varchar" {
		t.Errorf("ColumnType = %q, want %q", p.ColumnType, "varchar")
	}
}

func TestSynthesize_InsertWithoutPayloadIsNil(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s, "db.insert(users).values(buildRow());", "insert")
	if query != nil {
		t.Errorf("Synthesize() = %+v, want nil for an opaque payload", query)
	}
}

func TestSynthesize_UpdateQuotesStrings(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s,
		`db.update(users).set({ name: "O'Brien" }).where(eq(users.id, 7));`,
		"update")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "UPDATE users SET name = 'O''Brien' WHERE users.id = 7"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
}

func TestSynthesize_EscapedQuoteInSourceLiteral(t *testing.T) {
	s := loadTestSchema(t)

	// Single-quoted source strings escape an embedded quote; the full
	// literal must survive into the SQL, not just the leading fragment.
	query, _ := synthesize(t, s,
		`db.insert(users).values({ name: 'O\'Brien', email: 'ob@example.com' });`,
		"insert")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "INSERT INTO users (name, email) VALUES ('O''Brien', 'ob@example.com')"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
}

func TestSynthesize_Delete(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s, "db.delete(users).where(eq(users.id, 2));", "delete")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "DELETE FROM users WHERE users.id = 2"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
	if !reflect.DeepEqual(query.Tables, []string{"users"}) {
		t.Errorf("Tables = %v, want [users]", query.Tables)
	}
}

func TestSynthesize_InArrayLiteralList(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s,
		"db.select().from(users).where(inArray(users.status, ['active', 'inactive']));",
		"select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT * FROM users WHERE users.status IN ('active', 'inactive')"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
	if len(query.Parameters) != 0 {
		t.Errorf("Parameters = %v, want none for an all-literal list", query.Parameters)
	}
}

func TestSynthesize_MixedArrayBecomesParameter(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s,
		"db.select().from(users).where(inArray(users.id, [1, someId]));",
		"select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT * FROM users WHERE users.id IN $1"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
	if len(query.Parameters) != 1 {
		t.Errorf("len(Parameters) = %d, want 1", len(query.Parameters))
	}
}

func TestSynthesize_VariableOperandsAreParameters(t *testing.T) {
	s := loadTestSchema(t)

	source := `
const minAge = computeMin();
db.select().from(users).where(and(gt(users.age, minAge), eq(users.name, userName)));
`
	query, _ := synthesize(t, s, source, "select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT * FROM users WHERE users.age > $1 AND users.name = $2"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
	if len(query.Parameters) != 2 {
		t.Fatalf("len(Parameters) = %d, want 2", len(query.Parameters))
	}
	if query.Parameters[0].Source != "minAge" || query.Parameters[0].ColumnType != "integer" {
		t.Errorf("Parameters[0] = %+v, want minAge/integer", query.Parameters[0])
	}
	if query.Parameters[1].Position != 2 {
		t.Errorf("Parameters[1].Position = %d, want 2", query.Parameters[1].Position)
	}
}

func TestSynthesize_NullTest(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s,
		"db.select().from(users).where(isNull(users.age));",
		"select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT * FROM users WHERE users.age IS NULL"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
}

func TestSynthesize_UnknownTablePassesThrough(t *testing.T) {
	s := loadTestSchema(t)

	query, _ := synthesize(t, s, "db.select().from(audits).where(eq(audits.kind, 'x'));", "select")
	if query == nil {
		t.Fatal("Synthesize() = nil")
	}

	want := "SELECT * FROM audits WHERE audits.kind = 'x'"
	if query.SQL != want {
		t.Errorf("SQL = %q, want %q", query.SQL, want)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	s := loadTestSchema(t)
	source := "db.select().from(users).where(eq(users.id, 1)).limit(10);"

	a, _ := synthesize(t, s, source, "select")
	b, _ := synthesize(t, s, source, "select")
	if a == nil || b == nil {
		t.Fatal("Synthesize() = nil")
	}
	if a.SQL != b.SQL || !reflect.DeepEqual(a.Parameters, b.Parameters) {
		t.Error("repeated synthesis of identical input diverged")
	}
}

func TestSynthesize_NilInfo(t *testing.T) {
	if NewSynthesizer(loadTestSchema(t)).Synthesize(nil, nil) != nil {
		t.Error("Synthesize(nil) should be nil")
	}
}
