// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast provides tree-sitter parsing for TypeScript and JavaScript
// sources analyzed by querylens.
//
// The package wraps the tree-sitter grammars behind a small, language-aware
// surface: parse a file, walk its tree depth-first, and map nodes back to
// source text, line/column locations, and byte spans. It performs no
// extraction itself; the chain, schema, and datasource packages interpret
// the trees it produces.
//
// Design principles:
//   - One tree-sitter parser instance per Parse call (concurrency safety)
//   - Lines and columns are 1-based in reported locations
//   - Byte spans are half-open [Start, End) offsets into the source
package ast

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	// DefaultMaxFileSize is the default maximum file size (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold for logging a large-file warning (1MB).
	WarnFileSize = 1024 * 1024
)

// Location identifies a position in a source file. Line and Col are 1-based.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// String returns the location in file:line:col form.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Span is a half-open byte range [Start, End) within a source file.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// File holds a parsed source file together with its syntax tree.
//
// The tree borrows from Source; callers must not mutate Source while the
// tree is in use. Call Close when the tree is no longer needed.
type File struct {
	Path     string
	Source   []byte
	Language string

	tree *sitter.Tree
}

// Root returns the root node of the file's syntax tree.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Close releases the underlying tree-sitter tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Text returns the source text covered by a node.
func Text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// LocationOf maps a node to its 1-based line/column location in path.
func LocationOf(n *sitter.Node, path string) Location {
	if n == nil {
		return Location{File: path}
	}
	return Location{
		File: path,
		Line: int(n.StartPoint().Row + 1),
		Col:  int(n.StartPoint().Column + 1),
	}
}

// SpanOf returns the byte span covered by a node.
func SpanOf(n *sitter.Node) Span {
	if n == nil {
		return Span{}
	}
	return Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}
