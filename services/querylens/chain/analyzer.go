// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/config"
	"github.com/AleutianAI/querylens/services/querylens/datasource"
)

// comparatorOps maps condition-builder calls to SQL operators.
var comparatorOps = map[string]string{
	"eq":         "=",
	"ne":         "!=",
	"lt":         "<",
	"lte":        "<=",
	"gt":         ">",
	"gte":        ">=",
	"like":       "LIKE",
	"ilike":      "ILIKE",
	"inArray":    "IN",
	"notInArray": "NOT IN",
}

// nullOps maps single-argument null tests to SQL operators.
var nullOps = map[string]string{
	"isNull":    "IS NULL",
	"isNotNull": "IS NOT NULL",
}

// joinKinds maps chain methods to join variants.
var joinKinds = map[string]JoinKind{
	"innerJoin": JoinInner,
	"leftJoin":  JoinLeft,
	"rightJoin": JoinRight,
	"fullJoin":  JoinFull,
}

// Analyzer interprets a collected segment list into a ChainInfo.
//
// Thread Safety:
//
//	Analyzer is stateless apart from its configuration and safe for
//	concurrent use.
type Analyzer struct {
	cfg *config.Config
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg *config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze dispatches on each segment's method name and accumulates
// clause data into a ChainInfo.
//
// Inputs:
//   - segments: Collector output; segment 0 must be the anchor.
//   - src: The file source.
//   - scope: File-scoped provenance maps, fully built before this call.
//
// Outputs:
//   - *ChainInfo: The accumulated IR, or nil when segments carry no
//     recognized anchor. Unrecognized methods are skipped silently; a
//     partially understood clause contributes nothing rather than a
//     wrong result.
func (a *Analyzer) Analyze(segments []Segment, src []byte, scope *datasource.Scope) *ChainInfo {
	if len(segments) == 0 {
		return nil
	}
	op, ok := anchorOps[segments[0].Method]
	if !ok {
		return nil
	}

	info := &ChainInfo{
		Operation: op,
		Node:      segments[len(segments)-1].Call,
	}

	for i, seg := range segments {
		switch {
		case i == 0:
			a.applyAnchor(info, seg, src, scope)
		case seg.Method == "from":
			if info.TableName == "" && len(seg.Args) > 0 {
				if name, ok := identifierName(seg.Args[0], src); ok {
					info.TableName = name
				}
			}
		case seg.Method == "values":
			info.InsertValues = append(info.InsertValues, a.extractPayload(seg.Args, src, scope)...)
		case seg.Method == "set":
			info.SetValues = append(info.SetValues, a.extractPayload(seg.Args, src, scope)...)
		case seg.Method == "where":
			for _, arg := range seg.Args {
				info.Where = append(info.Where, a.extractConditions(arg, src, scope)...)
			}
		case joinKinds[seg.Method] != "":
			if join := a.extractJoin(seg, src, scope); join != nil {
				info.Joins = append(info.Joins, *join)
			}
		case seg.Method == "groupBy":
			for _, arg := range seg.Args {
				if ref, ok := columnRef(arg, src); ok {
					info.GroupBy = append(info.GroupBy, ref)
				}
			}
		case seg.Method == "orderBy":
			for _, arg := range seg.Args {
				if item, ok := orderByItem(arg, src); ok {
					info.OrderBy = append(info.OrderBy, item)
				}
			}
		case seg.Method == "limit":
			info.Limit = numericLiteral(seg.Args, src)
		case seg.Method == "offset":
			info.Offset = numericLiteral(seg.Args, src)
		}
	}

	return info
}

// applyAnchor extracts the target table (insert/update/delete) or the
// requested output columns (select with an object-literal argument).
func (a *Analyzer) applyAnchor(info *ChainInfo, seg Segment, src []byte, scope *datasource.Scope) {
	if len(seg.Args) == 0 {
		return
	}
	arg := ast.Unwrap(seg.Args[0])

	if info.Operation == OpSelect {
		// select({ id: users.id, name: users.name }) restricts output
		// columns; select() means all columns.
		if arg.Type() != "object" {
			return
		}
		for _, prop := range ast.NamedChildren(arg) {
			switch prop.Type() {
			case "pair":
				if key := prop.ChildByFieldName("key"); key != nil {
					if name := propertyName(key, src); name != "" {
						info.SelectColumns = append(info.SelectColumns, name)
					}
				}
			case "shorthand_property_identifier":
				info.SelectColumns = append(info.SelectColumns, ast.Text(prop, src))
			}
		}
		return
	}

	if name, ok := identifierName(arg, src); ok {
		info.TableName = name
	}
}

// extractPayload turns a values()/set() object literal into ordered
// column assignments. Shorthand properties resolve through the scope's
// source map built in the prior pass.
func (a *Analyzer) extractPayload(args []*sitter.Node, src []byte, scope *datasource.Scope) []ColumnValue {
	if len(args) == 0 {
		return nil
	}
	obj := ast.Unwrap(args[0])
	if obj == nil || obj.Type() != "object" {
		return nil
	}

	var out []ColumnValue
	for _, prop := range ast.NamedChildren(obj) {
		switch prop.Type() {
		case "pair":
			key := prop.ChildByFieldName("key")
			value := prop.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			name := propertyName(key, src)
			if name == "" {
				continue
			}
			out = append(out, ColumnValue{
				Column: name,
				Value:  a.makeValueInfo(value, src, scope),
			})
		case "shorthand_property_identifier":
			out = append(out, ColumnValue{
				Column: ast.Text(prop, src),
				Value:  a.makeValueInfo(prop, src, scope),
			})
		}
	}
	return out
}

// extractConditions parses a boolean-combinator call tree into a flat
// condition list. Both and() and or() flatten into the same AND-joined
// list; OR semantics are not reconstructed.
func (a *Analyzer) extractConditions(expr *sitter.Node, src []byte, scope *datasource.Scope) []WhereCondition {
	expr = ast.Unwrap(expr)
	if expr == nil || expr.Type() != "call_expression" {
		return nil
	}
	fn := expr.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return nil
	}
	name := ast.Text(fn, src)
	args := namedArgs(expr)

	if name == "and" || name == "or" {
		var out []WhereCondition
		for _, arg := range args {
			out = append(out, a.extractConditions(arg, src, scope)...)
		}
		return out
	}

	if op, ok := nullOps[name]; ok {
		if len(args) < 1 {
			return nil
		}
		ref, ok := columnRef(args[0], src)
		if !ok {
			return nil
		}
		return []WhereCondition{{Column: ref, Operator: op}}
	}

	op, ok := comparatorOps[name]
	if !ok || len(args) < 2 {
		return nil
	}
	ref, ok := columnRef(args[0], src)
	if !ok {
		return nil
	}
	value := a.makeValueInfo(args[1], src, scope)
	return []WhereCondition{{Column: ref, Operator: op, Value: &value}}
}

// extractJoin parses `innerJoin(orders, eq(users.id, orders.userId))`.
// ON conditions are the WHERE comparator set restricted to two column
// references; anything else is skipped.
func (a *Analyzer) extractJoin(seg Segment, src []byte, scope *datasource.Scope) *JoinInfo {
	if len(seg.Args) < 2 {
		return nil
	}
	table, ok := identifierName(seg.Args[0], src)
	if !ok {
		return nil
	}

	join := &JoinInfo{Kind: joinKinds[seg.Method], Table: table}
	join.On = a.extractOnConditions(seg.Args[1], src)
	if len(join.On) == 0 {
		return nil
	}
	return join
}

// extractOnConditions flattens and()/or() trees of two-column
// comparisons.
func (a *Analyzer) extractOnConditions(expr *sitter.Node, src []byte) []JoinOn {
	expr = ast.Unwrap(expr)
	if expr == nil || expr.Type() != "call_expression" {
		return nil
	}
	fn := expr.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return nil
	}
	name := ast.Text(fn, src)
	args := namedArgs(expr)

	if name == "and" || name == "or" {
		var out []JoinOn
		for _, arg := range args {
			out = append(out, a.extractOnConditions(arg, src)...)
		}
		return out
	}

	op, ok := comparatorOps[name]
	if !ok || len(args) < 2 {
		return nil
	}
	left, okL := columnRef(args[0], src)
	right, okR := columnRef(args[1], src)
	if !okL || !okR {
		return nil
	}
	return []JoinOn{{Left: left, Operator: op, Right: right}}
}

// makeValueInfo classifies a value expression and decides how it will
// render in SQL.
func (a *Analyzer) makeValueInfo(expr *sitter.Node, src []byte, scope *datasource.Scope) ValueInfo {
	ds := datasource.Classify(expr, src, scope, a.cfg)
	vi := ValueInfo{
		Raw:    ast.Text(expr, src),
		Source: ds,
		Expr:   expr,
	}
	switch {
	case ds.Origin == datasource.OriginLiteral:
		vi.Kind = ValueLiteral
		vi.Value = ds.LiteralValue
	case ast.Unwrap(expr) != nil && ast.Unwrap(expr).Type() == "identifier":
		vi.Kind = ValueVariable
	default:
		vi.Kind = ValueParameter
	}
	return vi
}

// columnRef parses a `table.column` member expression.
func columnRef(expr *sitter.Node, src []byte) (ColumnRef, bool) {
	expr = ast.Unwrap(expr)
	if expr == nil || expr.Type() != "member_expression" {
		return ColumnRef{}, false
	}
	obj := expr.ChildByFieldName("object")
	prop := expr.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" {
		return ColumnRef{}, false
	}
	return ColumnRef{Table: ast.Text(obj, src), Column: ast.Text(prop, src)}, true
}

// orderByItem parses a column reference, optionally wrapped in an
// asc()/desc() direction marker. Default direction is ascending.
func orderByItem(expr *sitter.Node, src []byte) (OrderByItem, bool) {
	expr = ast.Unwrap(expr)
	if expr != nil && expr.Type() == "call_expression" {
		fn := expr.ChildByFieldName("function")
		if fn != nil && fn.Type() == "identifier" {
			dir := ast.Text(fn, src)
			if dir == "asc" || dir == "desc" {
				args := namedArgs(expr)
				if len(args) == 0 {
					return OrderByItem{}, false
				}
				ref, ok := columnRef(args[0], src)
				if !ok {
					return OrderByItem{}, false
				}
				return OrderByItem{Column: ref, Desc: dir == "desc"}, true
			}
		}
		return OrderByItem{}, false
	}
	ref, ok := columnRef(expr, src)
	if !ok {
		return OrderByItem{}, false
	}
	return OrderByItem{Column: ref}, true
}

// numericLiteral extracts an integer literal argument; non-literal
// limits and offsets are ignored.
func numericLiteral(args []*sitter.Node, src []byte) *int {
	if len(args) == 0 {
		return nil
	}
	arg := ast.Unwrap(args[0])
	if arg == nil || arg.Type() != "number" {
		return nil
	}
	n, err := strconv.Atoi(ast.Text(arg, src))
	if err != nil {
		return nil
	}
	return &n
}

// identifierName returns the text of an identifier expression.
func identifierName(expr *sitter.Node, src []byte) (string, bool) {
	expr = ast.Unwrap(expr)
	if expr == nil || expr.Type() != "identifier" {
		return "", false
	}
	return ast.Text(expr, src), true
}

// propertyName extracts an object-literal key name.
func propertyName(key *sitter.Node, src []byte) string {
	switch key.Type() {
	case "property_identifier", "identifier":
		return ast.Text(key, src)
	case "string":
		v, _ := ast.StringValue(key, src)
		return v
	default:
		return ""
	}
}
