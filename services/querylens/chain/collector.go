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
	"github.com/AleutianAI/querylens/services/querylens/config"
)

// Outermost climbs from a call expression to the outermost call of its
// chain. Starting from any segment — the terminal clause, the anchor, or
// a payload call in the middle — the same outermost node is reached, so
// overlapping matches of one chain deduplicate by this node's span.
func Outermost(call *sitter.Node) *sitter.Node {
	for {
		parent := call.Parent()
		if parent == nil || parent.Type() != "member_expression" {
			return call
		}
		obj := parent.ChildByFieldName("object")
		if obj == nil || !sameNode(obj, call) {
			return call
		}
		grand := parent.Parent()
		if grand == nil || grand.Type() != "call_expression" {
			return call
		}
		fn := grand.ChildByFieldName("function")
		if fn == nil || !sameNode(fn, parent) {
			return call
		}
		call = grand
	}
}

// Collect walks one call-chain expression into an ordered segment list.
//
// Description:
//
//	Collect first searches forward (via parent nodes) to the outermost
//	call of the chain, then unwraps backward through receivers,
//	prepending `(receiver, methodName, args)` until it reaches an
//	identifier receiver — the chain anchor. Both starting shapes resolve
//	to the same list: inspecting `.limit(10)` at the chain's end and
//	inspecting `db.insert(t).values({...})` at `.values` produce
//	identical segments.
//
// Inputs:
//   - call: Any call expression belonging to the chain.
//   - src: The file source.
//   - cfg: Tracked database-handle names.
//
// Outputs:
//   - []Segment: Segments ordered innermost-first; segment 0 is the
//     anchor (`select`/`insert`/`update`/`delete` on a tracked handle).
//   - bool: False when the shape is not a chain on a tracked handle with
//     a recognized anchor method; the segments are then meaningless.
func Collect(call *sitter.Node, src []byte, cfg *config.Config) ([]Segment, bool) {
	if call == nil || call.Type() != "call_expression" {
		return nil, false
	}

	node := Outermost(call)
	var segments []Segment

	for node != nil && node.Type() == "call_expression" {
		fn := node.ChildByFieldName("function")
		if fn == nil || fn.Type() != "member_expression" {
			return nil, false
		}
		prop := fn.ChildByFieldName("property")
		obj := fn.ChildByFieldName("object")
		if prop == nil || obj == nil {
			return nil, false
		}

		seg := Segment{
			Method: ast.Text(prop, src),
			Args:   namedArgs(node),
			Call:   node,
		}

		switch obj.Type() {
		case "call_expression":
			segments = append([]Segment{seg}, segments...)
			node = obj
		case "identifier":
			seg.Recv = ast.Text(obj, src)
			segments = append([]Segment{seg}, segments...)
			node = nil
		default:
			return nil, false
		}
	}

	if len(segments) == 0 {
		return nil, false
	}
	anchor := segments[0]
	if anchor.Recv == "" || !cfg.IsHandle(anchor.Recv) {
		return nil, false
	}
	if _, ok := anchorOps[anchor.Method]; !ok {
		return nil, false
	}
	return segments, true
}

// sameNode reports whether two nodes cover the same source range.
func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// namedArgs returns the named argument nodes of a call expression.
func namedArgs(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	return ast.NamedChildren(args)
}
