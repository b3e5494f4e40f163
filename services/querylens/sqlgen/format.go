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
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/chain"
	"github.com/AleutianAI/querylens/services/querylens/datasource"
	"github.com/AleutianAI/querylens/services/querylens/schema"
)

// formatValue renders one value: literals inline, everything else as a
// positional parameter recorded with its source text and, when the
// target column is known, the column's schema type.
func (st *statement) formatValue(vi chain.ValueInfo, columnType string) string {
	if vi.Kind == chain.ValueLiteral {
		return formatLiteral(vi)
	}

	// An all-literal array operand (inArray/notInArray) renders as a
	// literal list rather than one opaque parameter.
	if vi.Expr != nil {
		if arr := ast.Unwrap(vi.Expr); arr != nil && arr.Type() == "array" {
			if list, ok := st.literalList(arr); ok {
				return list
			}
		}
	}

	return st.addParam(vi.Raw, columnType)
}

// addParam appends a positional parameter and returns its placeholder.
func (st *statement) addParam(source, columnType string) string {
	st.params = append(st.params, QueryParameter{
		Position:   len(st.params) + 1,
		Source:     source,
		ColumnType: columnType,
	})
	return fmt.Sprintf("$%d", len(st.params))
}

// literalList renders `['a', 'b']` as `('a', 'b')` when every element is
// a literal; mixed arrays fall back to a single parameter.
func (st *statement) literalList(arr *sitter.Node) (string, bool) {
	elems := ast.NamedChildren(arr)
	parts := make([]string, 0, len(elems))
	for _, el := range elems {
		el = ast.Unwrap(el)
		switch el.Type() {
		case "string":
			v, _ := ast.StringValue(el, st.src)
			parts = append(parts, quoteString(v))
		case "number", "true", "false":
			parts = append(parts, ast.Text(el, st.src))
		case "null":
			parts = append(parts, "NULL")
		default:
			return "", false
		}
	}
	return "(" + strings.Join(parts, ", ") + ")", true
}

// formatLiteral renders a literal per SQL conventions: strings quoted
// with embedded quotes doubled, null as NULL, numbers and booleans as
// their literal text.
func formatLiteral(vi chain.ValueInfo) string {
	switch vi.Source.ScalarType {
	case datasource.ScalarString:
		return quoteString(vi.Value)
	case datasource.ScalarNull:
		return "NULL"
	default:
		return vi.Value
	}
}

// quoteString single-quotes a string literal, doubling embedded quotes.
func quoteString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// tableSQL prefers the schema's declared table name, passing unresolved
// names through unchanged.
func (s *Synthesizer) tableSQL(name string) string {
	if t, ok := s.schema.Table(name); ok {
		return t.SQLName
	}
	return name
}

// columnName resolves a column through its table, passing unknown
// columns through unchanged.
func (s *Synthesizer) columnName(table *schema.Table, col string) string {
	if table != nil {
		if c, ok := table.Column(col); ok {
			return c.SQLName
		}
	}
	return col
}

// columnType returns the schema type of a column when known.
func (s *Synthesizer) columnType(table *schema.Table, col string) string {
	if table != nil {
		if c, ok := table.Column(col); ok {
			return c.Type
		}
	}
	return ""
}

// columnSQL renders a qualified column reference with both parts
// resolved through the schema.
func (s *Synthesizer) columnSQL(ref chain.ColumnRef) string {
	table, ok := s.schema.Table(ref.Table)
	if !ok {
		if ref.Table == "" {
			return ref.Column
		}
		return ref.Table + "." + ref.Column
	}
	return table.SQLName + "." + s.columnName(table, ref.Column)
}

// refType returns the schema type of a qualified column reference.
func (s *Synthesizer) refType(ref chain.ColumnRef) string {
	if table, ok := s.schema.Table(ref.Table); ok {
		if c, ok := table.Column(ref.Column); ok {
			return c.Type
		}
	}
	return ""
}
