// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chain reconstructs fluent query-builder method chains into a
// structured intermediate representation.
//
// A chain like `db.select().from(users).where(eq(users.id, 1)).limit(10)`
// is first collected into an ordered segment list (innermost method
// first), then interpreted into a ChainInfo. The ChainInfo is built fresh
// per chain expression and discarded after synthesis or validation; it is
// never shared across files.
package chain

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/datasource"
)

// Operation is the database operation a chain performs.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// anchorOps are the methods that identify the operation and target table.
var anchorOps = map[string]Operation{
	"select": OpSelect,
	"insert": OpInsert,
	"update": OpUpdate,
	"delete": OpDelete,
}

// Segment is one `(receiver, methodName, args)` element of a collected
// chain. Recv is set only on the anchor segment, where the receiver is a
// plain identifier (the database handle).
type Segment struct {
	Recv   string
	Method string
	Args   []*sitter.Node
	Call   *sitter.Node
}

// ValueKind distinguishes how a value renders in synthesized SQL.
type ValueKind string

const (
	// ValueLiteral is a literal that renders inline.
	ValueLiteral ValueKind = "literal"
	// ValueVariable is a plain identifier reference.
	ValueVariable ValueKind = "variable"
	// ValueParameter is any other expression; renders as a positional
	// parameter.
	ValueParameter ValueKind = "parameter"
)

// ValueInfo describes one value written to a column or compared in a
// condition.
type ValueInfo struct {
	Kind ValueKind
	// Value is the literal content for ValueLiteral (unquoted for
	// strings).
	Value string
	// Raw is the source text of the value expression.
	Raw string
	// Source is the provenance classification of the expression.
	Source datasource.DataSource
	// Expr is the value expression node.
	Expr *sitter.Node
}

// ColumnValue is one column assignment in an insert or update payload.
// Payloads keep source order so re-extraction is byte-identical.
type ColumnValue struct {
	Column string
	Value  ValueInfo
}

// ColumnRef is a possibly table-qualified column reference.
type ColumnRef struct {
	Table  string
	Column string
}

// WhereCondition is one comparison in the AND-joined condition list.
// Value is nil for the null tests (IS NULL / IS NOT NULL).
type WhereCondition struct {
	Column   ColumnRef
	Operator string
	Value    *ValueInfo
}

// JoinKind is the SQL join variant.
type JoinKind string

const (
	JoinInner JoinKind = "INNER JOIN"
	JoinLeft  JoinKind = "LEFT JOIN"
	JoinRight JoinKind = "RIGHT JOIN"
	JoinFull  JoinKind = "FULL JOIN"
)

// JoinOn is one ON condition, restricted to two column references.
type JoinOn struct {
	Left     ColumnRef
	Operator string
	Right    ColumnRef
}

// JoinInfo is one join clause.
type JoinInfo struct {
	Kind  JoinKind
	Table string
	On    []JoinOn
}

// OrderByItem is one ORDER BY column with its direction.
type OrderByItem struct {
	Column ColumnRef
	Desc   bool
}

// ChainInfo is the intermediate representation of one interpreted chain.
type ChainInfo struct {
	Operation Operation
	TableName string

	// SelectColumns is nil when the select requests all columns.
	SelectColumns []string

	InsertValues []ColumnValue
	SetValues    []ColumnValue

	Where   []WhereCondition
	Joins   []JoinInfo
	GroupBy []ColumnRef
	OrderBy []OrderByItem

	Limit  *int
	Offset *int

	// Node is the outermost call expression of the chain.
	Node *sitter.Node
}

// HasWhere reports whether the chain carries any condition.
func (c *ChainInfo) HasWhere() bool {
	return len(c.Where) > 0
}

// Payload returns the column values written by an insert or update.
func (c *ChainInfo) Payload() []ColumnValue {
	switch c.Operation {
	case OpInsert:
		return c.InsertValues
	case OpUpdate:
		return c.SetValues
	default:
		return nil
	}
}
