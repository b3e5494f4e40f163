// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const schemaSource = `
import { pgTable, pgEnum, serial, text, varchar, integer, boolean, timestamp } from 'drizzle-orm/pg-core';

export const users = pgTable('users', {
  id: serial('id').primaryKey(),
  name: text('name').notNull(),
  email: varchar('email', { length: 255 }).notNull(),
  age: integer('age'),
  status: statusEnum('status').notNull(),
  role: roleEnum('role').notNull().default('member'),
  isAdmin: boolean('is_admin').notNull().default(false),
  createdAt: timestamp('created_at').defaultNow(),
});

export const orders = pgTable('orders', {
  id: serial('id').primaryKey(),
  userId: integer('user_id').notNull(),
  total: integer('total').notNull(),
});

export const statusEnum = pgEnum('status', ['active', 'inactive', 'banned']);
export const roleEnum = pgEnum('role', ['admin', 'member']);
`

// loadSchema writes source to a temp file and loads it.
func loadSchema(t *testing.T, source string) *Schema {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.ts")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestLoad_Tables(t *testing.T) {
	s := loadSchema(t, schemaSource)

	if len(s.Tables) != 2 {
		t.Fatalf("len(Tables) = %d, want 2", len(s.Tables))
	}

	users, ok := s.Table("users")
	if !ok {
		t.Fatal("users table not found")
	}
	if users.SQLName != "users" {
		t.Errorf("users.SQLName = %q, want %q", users.SQLName, "users")
	}
	if len(users.Columns) != 8 {
		t.Errorf("len(users.Columns) = %d, want 8", len(users.Columns))
	}

	orders, ok := s.Table("orders")
	if !ok {
		t.Fatal("orders table not found")
	}
	if col, ok := orders.Column("userId"); !ok || col.SQLName != "user_id" {
		t.Errorf("orders.userId SQLName = %v, want user_id", col)
	}
}

func TestLoad_ColumnFlags(t *testing.T) {
	s := loadSchema(t, schemaSource)
	users, ok := s.Table("users")
	if !ok {
		t.Fatal("users table not found")
	}

	tests := []struct {
		column   string
		notNull  bool
		hasDef   bool
		autoGen  bool
		required bool
	}{
		{column: "id", notNull: false, hasDef: false, autoGen: true, required: false},
		{column: "name", notNull: true, hasDef: false, autoGen: false, required: true},
		{column: "email", notNull: true, hasDef: false, autoGen: false, required: true},
		{column: "age", notNull: false, hasDef: false, autoGen: false, required: false},
		{column: "status", notNull: true, hasDef: false, autoGen: false, required: true},
		{column: "role", notNull: true, hasDef: true, autoGen: false, required: false},
		{column: "isAdmin", notNull: true, hasDef: true, autoGen: false, required: false},
		{column: "createdAt", notNull: false, hasDef: true, autoGen: false, required: false},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			col, ok := users.Column(tt.column)
			if !ok {
				t.Fatalf("column %q not found", tt.column)
			}
			if col.NotNull != tt.notNull {
				t.Errorf("NotNull = %v, want %v", col.NotNull, tt.notNull)
			}
			if col.HasDefault != tt.hasDef {
				t.Errorf("HasDefault = %v, want %v", col.HasDefault, tt.hasDef)
			}
			if col.IsAutoGenerated != tt.autoGen {
				t.Errorf("IsAutoGenerated = %v, want %v", col.IsAutoGenerated, tt.autoGen)
			}
			if col.IsRequired != tt.required {
				t.Errorf("IsRequired = %v, want %v", col.IsRequired, tt.required)
			}
		})
	}
}

func TestLoad_EnumsForwardReference(t *testing.T) {
	// The enums are declared after the tables in schemaSource; the
	// two-pass load still binds them.
	s := loadSchema(t, schemaSource)

	if len(s.Enums) != 2 {
		t.Fatalf("len(Enums) = %d, want 2", len(s.Enums))
	}
	enum, ok := s.Enums["statusEnum"]
	if !ok {
		t.Fatal("statusEnum not found")
	}
	if enum.SQLName != "status" {
		t.Errorf("SQLName = %q, want %q", enum.SQLName, "status")
	}
	want := []string{"active", "inactive", "banned"}
	if len(enum.Values) != len(want) {
		t.Fatalf("Values = %v, want %v", enum.Values, want)
	}
	for i, v := range want {
		if enum.Values[i] != v {
			t.Errorf("Values[%d] = %q, want %q", i, enum.Values[i], v)
		}
	}

	users, _ := s.Table("users")
	status, ok := users.Column("status")
	if !ok {
		t.Fatal("status column not found")
	}
	if status.EnumRef == nil || status.EnumRef.Name != "statusEnum" {
		t.Errorf("status.EnumRef = %v, want statusEnum", status.EnumRef)
	}
	if status.Type != "enum" {
		t.Errorf("status.Type = %q, want %q", status.Type, "enum")
	}
}

func TestLoad_ScalarClass(t *testing.T) {
	s := loadSchema(t, schemaSource)
	users, _ := s.Table("users")

	tests := []struct {
		column string
		want   ScalarClass
	}{
		{column: "name", want: ClassString},
		{column: "email", want: ClassString},
		{column: "age", want: ClassNumber},
		{column: "isAdmin", want: ClassBoolean},
		{column: "createdAt", want: ClassTime},
		{column: "status", want: ClassEnum},
	}
	for _, tt := range tests {
		col, ok := users.Column(tt.column)
		if !ok {
			t.Fatalf("column %q not found", tt.column)
		}
		if got := col.ScalarClass(); got != tt.want {
			t.Errorf("%s.ScalarClass() = %v, want %v", tt.column, got, tt.want)
		}
	}
}

func TestLoad_SkipsMalformedDeclarations(t *testing.T) {
	source := `
export const notATable = somethingElse('users', {});
export const broken = pgTable(42, {});
export const ok = pgTable('ok', { id: serial('id').primaryKey() });
`
	s := loadSchema(t, source)

	if len(s.Tables) != 1 {
		t.Fatalf("len(Tables) = %d, want 1", len(s.Tables))
	}
	if _, ok := s.Table("ok"); !ok {
		t.Error("ok table should load despite sibling malformed declarations")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.ts"))
	if !errors.Is(err, ErrSchemaNotFound) {
		t.Errorf("Load() error = %v, want ErrSchemaNotFound", err)
	}
}
