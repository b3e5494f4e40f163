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
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ParserOption configures a Parser instance.
type ParserOption func(*Parser)

// WithMaxFileSize sets the maximum file size the parser will accept.
func WithMaxFileSize(bytes int64) ParserOption {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// Parser parses TypeScript, TSX, and JavaScript sources into syntax trees.
//
// Description:
//
//	Parser selects the tree-sitter grammar from the file extension:
//	.tsx and .jsx use the TSX grammar, .js/.mjs/.cjs use the JavaScript
//	grammar, and everything else uses the TypeScript grammar. The parser
//	is error-tolerant; syntactically invalid sources still produce a tree
//	and downstream analysis degrades to fewer results.
//
// Thread Safety:
//
//	Parser instances are safe for concurrent use. Each Parse call creates
//	its own tree-sitter parser internally.
//
// Example:
//
//	parser := NewParser()
//	file, err := parser.Parse(ctx, []byte("const x = db.select().from(users);"), "app.ts")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
type Parser struct {
	maxFileSize int64
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses the file at path.
//
// Outputs:
//   - *File: Parsed file with syntax tree. Caller must Close it.
//   - error: Non-nil when the file cannot be read or content is rejected
//     (ErrFileTooLarge, ErrInvalidContent) or the context is canceled.
func (p *Parser) ParseFile(ctx context.Context, path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Parse(ctx, content, path)
}

// Parse parses source content into a File.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing;
//     tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Path used for grammar selection and location reporting.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContent, filePath)
	}

	// New tree-sitter parser per call for thread safety.
	parser := sitter.NewParser()
	language := languageFor(filePath)
	switch language {
	case "tsx":
		parser.SetLanguage(tsx.GetLanguage())
	case "javascript":
		parser.SetLanguage(javascript.GetLanguage())
	default:
		parser.SetLanguage(typescript.GetLanguage())
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed for %s: %w", filePath, err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	if tree.RootNode() != nil && tree.RootNode().HasError() {
		slog.Debug("source contains syntax errors",
			slog.String("file", filePath))
	}

	return &File{
		Path:     filePath,
		Source:   content,
		Language: language,
		tree:     tree,
	}, nil
}

// languageFor selects the grammar name from a file extension.
func languageFor(filePath string) string {
	switch {
	case strings.HasSuffix(filePath, ".tsx"), strings.HasSuffix(filePath, ".jsx"):
		return "tsx"
	case strings.HasSuffix(filePath, ".js"),
		strings.HasSuffix(filePath, ".mjs"),
		strings.HasSuffix(filePath, ".cjs"):
		return "javascript"
	default:
		return "typescript"
	}
}

// SupportedExtensions lists the file extensions the parser handles.
func SupportedExtensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
}
