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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
)

// CollectAliases builds the import-alias map for a file: local identifier
// to declared export name, from clauses like
// `import { users as usersTable } from './schema'`.
//
// Unaliased imports are not recorded; they already resolve to themselves.
func CollectAliases(root *sitter.Node, src []byte) map[string]string {
	aliases := make(map[string]string)

	for i := 0; i < int(root.ChildCount()); i++ {
		stmt := root.Child(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		ast.Walk(stmt, func(n *sitter.Node) bool {
			if n.Type() != "import_specifier" {
				return true
			}
			name := n.ChildByFieldName("name")
			alias := n.ChildByFieldName("alias")
			if name != nil && alias != nil {
				aliases[ast.Text(alias, src)] = ast.Text(name, src)
			}
			return false
		})
	}
	return aliases
}

// Resolve rewrites every table identifier in info through the
// import-alias map, so a locally renamed import resolves to its
// schema-declared name.
//
// Resolve is a pure transform: it returns a new ChainInfo and leaves the
// input unchanged, so the pre- and post-resolution IR can both be
// inspected.
func Resolve(info *ChainInfo, aliases map[string]string) *ChainInfo {
	if info == nil {
		return nil
	}
	out := *info
	out.TableName = resolveName(info.TableName, aliases)

	if len(info.Joins) > 0 {
		out.Joins = make([]JoinInfo, len(info.Joins))
		for i, j := range info.Joins {
			rj := j
			rj.Table = resolveName(j.Table, aliases)
			rj.On = make([]JoinOn, len(j.On))
			for k, on := range j.On {
				on.Left.Table = resolveName(on.Left.Table, aliases)
				on.Right.Table = resolveName(on.Right.Table, aliases)
				rj.On[k] = on
			}
			out.Joins[i] = rj
		}
	}

	if len(info.Where) > 0 {
		out.Where = make([]WhereCondition, len(info.Where))
		for i, w := range info.Where {
			w.Column.Table = resolveName(w.Column.Table, aliases)
			out.Where[i] = w
		}
	}

	if len(info.GroupBy) > 0 {
		out.GroupBy = make([]ColumnRef, len(info.GroupBy))
		for i, g := range info.GroupBy {
			g.Table = resolveName(g.Table, aliases)
			out.GroupBy[i] = g
		}
	}

	if len(info.OrderBy) > 0 {
		out.OrderBy = make([]OrderByItem, len(info.OrderBy))
		for i, o := range info.OrderBy {
			o.Column.Table = resolveName(o.Column.Table, aliases)
			out.OrderBy[i] = o
		}
	}

	return &out
}

// resolveName maps a local identifier through the alias map, passing
// unknown names through unchanged.
func resolveName(name string, aliases map[string]string) string {
	if resolved, ok := aliases[name]; ok {
		return resolved
	}
	return name
}
