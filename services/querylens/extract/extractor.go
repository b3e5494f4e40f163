// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract orchestrates the per-file analysis passes: parse,
// import-alias collection, provenance scope construction, chain
// collection, and finally SQL synthesis or operation extraction.
//
// A file that fails to parse is excluded from results with a warning;
// extraction never propagates per-file errors. Output order is
// deterministic for deterministic input.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/chain"
	"github.com/AleutianAI/querylens/services/querylens/config"
	"github.com/AleutianAI/querylens/services/querylens/datasource"
	"github.com/AleutianAI/querylens/services/querylens/persist"
	"github.com/AleutianAI/querylens/services/querylens/schema"
	"github.com/AleutianAI/querylens/services/querylens/sqlgen"
)

// Extractor runs the analysis passes over source files.
//
// Description:
//
//	Within one file the passes are strictly ordered: the provenance
//	scope is fully built (accessor variables, validated variables,
//	declaration classification) before any chain value is classified.
//	Chains are deduplicated by the byte span of their outermost call,
//	so overlapping matches of one statement never double-count.
//
// Thread Safety:
//
//	Extractor is safe for concurrent use; the schema and configuration
//	are read-only and per-file state is local to each call.
type Extractor struct {
	schema   *schema.Schema
	cfg      *config.Config
	parser   *ast.Parser
	analyzer *chain.Analyzer
	syn      *sqlgen.Synthesizer

	// runID correlates log lines of one analysis run. It never appears
	// in extraction results, which stay deterministic.
	runID string
}

// NewExtractor creates an Extractor over a loaded schema.
func NewExtractor(s *schema.Schema, cfg *config.Config) *Extractor {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Extractor{
		schema:   s,
		cfg:      cfg,
		parser:   ast.NewParser(ast.WithMaxFileSize(cfg.MaxFileSizeBytes)),
		analyzer: chain.NewAnalyzer(cfg),
		syn:      sqlgen.NewSynthesizer(s),
		runID:    uuid.NewString(),
	}
}

// ExtractQueries reconstructs and synthesizes every query chain in one
// file.
//
// Outputs:
//   - []sqlgen.ExtractedQuery: One entry per resolved chain, in source
//     order. Empty (never nil) when the file cannot be parsed or no
//     chain resolves; per-file failures are logged, not returned.
func (e *Extractor) ExtractQueries(ctx context.Context, path string) []sqlgen.ExtractedQuery {
	start := time.Now()
	queries := make([]sqlgen.ExtractedQuery, 0)

	resolved := 0
	seen, ok := e.withChains(ctx, path, func(file *ast.File, info *chain.ChainInfo) {
		query := e.syn.Synthesize(info, file.Source)
		if query == nil {
			return
		}
		resolved++
		query.Location = ast.LocationOf(info.Node, path)
		query.Code = ast.Text(info.Node, file.Source)
		queries = append(queries, *query)
	})

	recordExtract(ctx, "queries", time.Since(start), seen, resolved, ok)
	return queries
}

// ExtractOperations derives the validator's view of every write chain
// (insert/update/delete) in one file.
func (e *Extractor) ExtractOperations(ctx context.Context, path string) []persist.DbOperation {
	start := time.Now()
	ops := make([]persist.DbOperation, 0)

	resolved := 0
	seen, ok := e.withChains(ctx, path, func(file *ast.File, info *chain.ChainInfo) {
		if info.Operation == chain.OpSelect {
			return
		}
		resolved++

		op := persist.DbOperation{
			Type:      info.Operation,
			TableName: info.TableName,
			HasWhere:  info.HasWhere(),
			Location:  ast.LocationOf(info.Node, path),
			Span:      ast.SpanOf(info.Node),
		}
		for _, cv := range info.Payload() {
			op.ColumnValues = append(op.ColumnValues, persist.ColumnValue{
				ColumnName: cv.Column,
				Source:     cv.Value.Source,
				Span:       ast.SpanOf(cv.Value.Expr),
			})
		}
		ops = append(ops, op)
	})

	recordExtract(ctx, "operations", time.Since(start), seen, resolved, ok)
	return ops
}

// withChains parses path and invokes fn for every resolved chain, in
// source order. It returns the number of candidate chains collected,
// including partial chains fn never sees, and whether the file parsed.
func (e *Extractor) withChains(ctx context.Context, path string, fn func(*ast.File, *chain.ChainInfo)) (int, bool) {
	file, err := e.parser.ParseFile(ctx, path)
	if err != nil {
		slog.Warn("skipping unparsable file",
			slog.String("run_id", e.runID),
			slog.String("file", path),
			slog.Any("error", err))
		return 0, false
	}
	defer file.Close()

	root := file.Root()
	if root == nil {
		return 0, false
	}

	aliases := chain.CollectAliases(root, file.Source)
	scope := datasource.BuildScope(root, file.Source, e.cfg)

	// Chains dedupe on the byte span of their outermost call: every
	// call expression of one chain climbs to the same node.
	candidates := 0
	visited := make(map[ast.Span]bool)
	ast.Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		outer := chain.Outermost(n)
		span := ast.SpanOf(outer)
		if visited[span] {
			return true
		}
		visited[span] = true

		segments, ok := chain.Collect(outer, file.Source, e.cfg)
		if !ok {
			return true
		}
		// Counted before analysis so the candidate and resolved tallies
		// diverge on partially understood chains.
		candidates++

		info := e.analyzer.Analyze(segments, file.Source, scope)
		if info == nil || info.TableName == "" {
			// A partially understood chain contributes nothing.
			return true
		}
		fn(file, chain.Resolve(info, aliases))
		return true
	})

	return candidates, true
}
