// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Walk visits node and its descendants depth-first, in source order.
//
// The visit function returns false to prune the subtree below the current
// node. Walk is a no-op for a nil node.
func Walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), visit)
	}
}

// NamedChildren returns the named children of a node in order.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// Unwrap strips transparent wrappers (await expressions, parentheses,
// non-null and type assertions) from an expression node.
func Unwrap(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "await_expression", "parenthesized_expression",
			"non_null_expression", "as_expression", "satisfies_expression":
			next := node.NamedChild(0)
			if next == nil {
				return node
			}
			node = next
		default:
			return node
		}
	}
	return node
}

// StringValue extracts the unquoted content of a string literal node.
// It returns the empty string and false when the node is not a string.
//
// The grammar splits a literal around escape sequences, so 'O\'Brien'
// parses as fragment, escape, fragment. All pieces are concatenated and
// escapes are decoded to preserve the literal's content.
func StringValue(node *sitter.Node, src []byte) (string, bool) {
	if node == nil || node.Type() != "string" {
		return "", false
	}
	var sb strings.Builder
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "string_fragment":
			sb.WriteString(Text(child, src))
		case "escape_sequence":
			sb.WriteString(decodeEscape(Text(child, src)))
		}
	}
	// An empty string literal has no fragment children.
	return sb.String(), true
}

// decodeEscape decodes a single JavaScript escape sequence, backslash
// included. Unrecognized sequences decode to their bare payload, matching
// runtime behavior for identity escapes like \q.
func decodeEscape(esc string) string {
	if len(esc) < 2 || esc[0] != '\\' {
		return esc
	}
	switch esc[1] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '0':
		return "\x00"
	case '\n':
		// Line continuation contributes nothing.
		return ""
	case 'x':
		if v, err := strconv.ParseUint(esc[2:], 16, 32); err == nil {
			return string(rune(v))
		}
	case 'u':
		hex := esc[2:]
		if strings.HasPrefix(hex, "{") && strings.HasSuffix(hex, "}") {
			hex = hex[1 : len(hex)-1]
		}
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return string(rune(v))
		}
	}
	return esc[1:]
}
