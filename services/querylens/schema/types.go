// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema builds the normalized table/column/enum model from a
// query-builder schema declaration file.
//
// The model is constructed once per analysis run and is read-only
// afterward; it may be shared by reference across concurrent file
// analyses.
package schema

// ScalarClass is the coarse value class of a column type, used by the
// persistence validator's type-mismatch rule.
type ScalarClass string

const (
	ClassString  ScalarClass = "string"
	ClassNumber  ScalarClass = "number"
	ClassBoolean ScalarClass = "boolean"
	ClassTime    ScalarClass = "time"
	ClassJSON    ScalarClass = "json"
	ClassEnum    ScalarClass = "enum"
	ClassUnknown ScalarClass = "unknown"
)

// Schema is the normalized model of a schema declaration file.
//
// Tables and Enums are keyed by the exported variable name in the schema
// source (e.g. the `users` in `export const users = pgTable(...)`), which
// is the name application code references.
type Schema struct {
	Path   string
	Tables map[string]*Table
	Enums  map[string]*Enum
}

// Table is one declared table.
type Table struct {
	// Name is the exported variable name in the schema source.
	Name string
	// SQLName is the table name passed to the declaration call.
	SQLName string
	// Columns in declaration order.
	Columns []*Column

	byName map[string]*Column
}

// Column is one declared column.
type Column struct {
	// Name is the property key in the column map (the name application
	// code uses).
	Name string
	// SQLName is the column name passed to the type call, falling back
	// to Name when the call has no string argument.
	SQLName string
	// Type is the base type identifier from the declaration
	// (text, integer, serial, boolean, ...), or "enum" for enum columns.
	Type string
	// EnumRef is the referenced enum when Type is "enum".
	EnumRef *Enum

	NotNull         bool
	HasDefault      bool
	IsAutoGenerated bool
	// IsRequired is NotNull && !HasDefault && !IsAutoGenerated.
	IsRequired bool
}

// Enum is one declared enum type.
type Enum struct {
	Name    string
	SQLName string
	Values  []string
}

// Table looks up a table by its exported variable name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// Column looks up a column by its source-side property name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// ScalarClass maps the column's base type to its coarse value class.
func (c *Column) ScalarClass() ScalarClass {
	if c.EnumRef != nil {
		return ClassEnum
	}
	switch c.Type {
	case "text", "varchar", "char", "uuid":
		return ClassString
	case "integer", "int", "smallint", "bigint", "serial", "smallserial",
		"bigserial", "real", "doublePrecision", "numeric", "decimal":
		return ClassNumber
	case "boolean":
		return ClassBoolean
	case "timestamp", "date", "time", "interval":
		return ClassTime
	case "json", "jsonb":
		return ClassJSON
	default:
		return ClassUnknown
	}
}

// isSerialType reports whether a base type is database-generated.
func isSerialType(baseType string) bool {
	switch baseType {
	case "serial", "smallserial", "bigserial":
		return true
	}
	return false
}
