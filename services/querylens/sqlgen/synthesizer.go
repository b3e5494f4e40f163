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

	"github.com/AleutianAI/querylens/services/querylens/chain"
	"github.com/AleutianAI/querylens/services/querylens/schema"
)

// Synthesizer renders chain IRs against a schema model.
//
// Description:
//
//	Clause order is deterministic regardless of the order the chain
//	methods were called in source:
//	SELECT -> JOIN -> WHERE -> GROUP BY -> ORDER BY -> LIMIT -> OFFSET.
//	Name resolution always prefers the schema's declared SQL name over
//	the source identifier; unresolvable names pass through unchanged.
//
// Thread Safety:
//
//	Synthesizer only reads the schema and is safe for concurrent use.
type Synthesizer struct {
	schema *schema.Schema
}

// NewSynthesizer creates a Synthesizer over a loaded schema.
func NewSynthesizer(s *schema.Schema) *Synthesizer {
	return &Synthesizer{schema: s}
}

// Synthesize renders one chain IR into an ExtractedQuery.
//
// Inputs:
//   - info: The resolved chain IR.
//   - src: The source file bytes, needed to render literal array
//     operands.
//
// Outputs:
//   - *ExtractedQuery: SQL, touched tables, and positional parameters.
//     Location and Code are left for the caller to fill.
//     Nil when an insert or update carries no extractable value payload.
func (s *Synthesizer) Synthesize(info *chain.ChainInfo, src []byte) *ExtractedQuery {
	if info == nil {
		return nil
	}

	st := &statement{syn: s, info: info, src: src}
	var sql string
	switch info.Operation {
	case chain.OpSelect:
		sql = st.selectSQL()
	case chain.OpInsert:
		sql = st.insertSQL()
	case chain.OpUpdate:
		sql = st.updateSQL()
	case chain.OpDelete:
		sql = st.deleteSQL()
	default:
		return nil
	}
	if sql == "" {
		return nil
	}

	return &ExtractedQuery{
		Type:       string(info.Operation),
		SQL:        sql,
		Tables:     st.tables(),
		Parameters: st.params,
	}
}

// statement accumulates parameter state while one SQL string is built.
// Parameter positions are 1-based and follow left-to-right appearance.
type statement struct {
	syn    *Synthesizer
	info   *chain.ChainInfo
	src    []byte
	params []QueryParameter
}

func (st *statement) selectSQL() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(st.selectColumns())
	b.WriteString(" FROM ")
	b.WriteString(st.syn.tableSQL(st.info.TableName))

	for _, join := range st.info.Joins {
		b.WriteString(" ")
		b.WriteString(string(join.Kind))
		b.WriteString(" ")
		b.WriteString(st.syn.tableSQL(join.Table))
		b.WriteString(" ON ")
		conds := make([]string, 0, len(join.On))
		for _, on := range join.On {
			conds = append(conds, fmt.Sprintf("%s %s %s",
				st.syn.columnSQL(on.Left), on.Operator, st.syn.columnSQL(on.Right)))
		}
		b.WriteString(strings.Join(conds, " AND "))
	}

	st.appendWhere(&b)

	if len(st.info.GroupBy) > 0 {
		refs := make([]string, 0, len(st.info.GroupBy))
		for _, ref := range st.info.GroupBy {
			refs = append(refs, st.syn.columnSQL(ref))
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(refs, ", "))
	}

	if len(st.info.OrderBy) > 0 {
		items := make([]string, 0, len(st.info.OrderBy))
		for _, item := range st.info.OrderBy {
			col := st.syn.columnSQL(item.Column)
			if item.Desc {
				col += " DESC"
			}
			items = append(items, col)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(items, ", "))
	}

	if st.info.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *st.info.Limit)
	}
	if st.info.Offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *st.info.Offset)
	}

	return b.String()
}

func (st *statement) insertSQL() string {
	if len(st.info.InsertValues) == 0 {
		return ""
	}
	table, _ := st.syn.schema.Table(st.info.TableName)

	cols := make([]string, 0, len(st.info.InsertValues))
	vals := make([]string, 0, len(st.info.InsertValues))
	for _, cv := range st.info.InsertValues {
		cols = append(cols, st.syn.columnName(table, cv.Column))
		vals = append(vals, st.formatValue(cv.Value, st.syn.columnType(table, cv.Column)))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		st.syn.tableSQL(st.info.TableName),
		strings.Join(cols, ", "),
		strings.Join(vals, ", "))
}

func (st *statement) updateSQL() string {
	if len(st.info.SetValues) == 0 {
		return ""
	}
	table, _ := st.syn.schema.Table(st.info.TableName)

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(st.syn.tableSQL(st.info.TableName))
	b.WriteString(" SET ")

	sets := make([]string, 0, len(st.info.SetValues))
	for _, cv := range st.info.SetValues {
		sets = append(sets, fmt.Sprintf("%s = %s",
			st.syn.columnName(table, cv.Column),
			st.formatValue(cv.Value, st.syn.columnType(table, cv.Column))))
	}
	b.WriteString(strings.Join(sets, ", "))

	st.appendWhere(&b)
	return b.String()
}

func (st *statement) deleteSQL() string {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(st.syn.tableSQL(st.info.TableName))
	st.appendWhere(&b)
	return b.String()
}

// appendWhere renders the AND-joined condition list.
func (st *statement) appendWhere(b *strings.Builder) {
	if len(st.info.Where) == 0 {
		return
	}
	conds := make([]string, 0, len(st.info.Where))
	for _, w := range st.info.Where {
		col := st.syn.columnSQL(w.Column)
		if w.Value == nil {
			conds = append(conds, fmt.Sprintf("%s %s", col, w.Operator))
			continue
		}
		colType := st.syn.refType(w.Column)
		conds = append(conds, fmt.Sprintf("%s %s %s",
			col, w.Operator, st.formatValue(*w.Value, colType)))
	}
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(conds, " AND "))
}

// tables returns the SQL names of every table the statement touches.
func (st *statement) tables() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 1+len(st.info.Joins))
	add := func(name string) {
		sqlName := st.syn.tableSQL(name)
		if sqlName != "" && !seen[sqlName] {
			seen[sqlName] = true
			out = append(out, sqlName)
		}
	}
	add(st.info.TableName)
	for _, join := range st.info.Joins {
		add(join.Table)
	}
	return out
}

// selectColumns renders the output column list; nil means all columns.
func (st *statement) selectColumns() string {
	if len(st.info.SelectColumns) == 0 {
		return "*"
	}
	table, _ := st.syn.schema.Table(st.info.TableName)
	cols := make([]string, 0, len(st.info.SelectColumns))
	for _, c := range st.info.SelectColumns {
		cols = append(cols, st.syn.columnName(table, c))
	}
	return strings.Join(cols, ", ")
}
