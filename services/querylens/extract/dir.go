// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/persist"
	"github.com/AleutianAI/querylens/services/querylens/sqlgen"
)

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
}

// ExtractQueriesDir runs ExtractQueries over every supported source file
// under root, in parallel, and returns the merged results sorted by
// file, line, and column.
//
// The analysis has no cross-file dependency; the schema model is shared
// read-only, so parallel per-file execution is safe.
func (e *Extractor) ExtractQueriesDir(ctx context.Context, root string) ([]sqlgen.ExtractedQuery, error) {
	var mu sync.Mutex
	all := make([]sqlgen.ExtractedQuery, 0)

	err := e.forEachFile(ctx, root, func(ctx context.Context, path string) error {
		queries := e.ExtractQueries(ctx, path)
		if len(queries) > 0 {
			mu.Lock()
			all = append(all, queries...)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return lessLocation(all[i].Location, all[j].Location)
	})
	return all, nil
}

// ExtractOperationsDir runs ExtractOperations over every supported
// source file under root, in parallel, sorted like ExtractQueriesDir.
func (e *Extractor) ExtractOperationsDir(ctx context.Context, root string) ([]persist.DbOperation, error) {
	var mu sync.Mutex
	all := make([]persist.DbOperation, 0)

	err := e.forEachFile(ctx, root, func(ctx context.Context, path string) error {
		ops := e.ExtractOperations(ctx, path)
		if len(ops) > 0 {
			mu.Lock()
			all = append(all, ops...)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return lessLocation(all[i].Location, all[j].Location)
	})
	return all, nil
}

// forEachFile walks root and invokes fn for every supported source file
// with bounded parallelism.
func (e *Extractor) forEachFile(ctx context.Context, root string, fn func(context.Context, string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !supportedFile(path) {
			return nil
		}
		g.Go(func() error {
			return fn(ctx, path)
		})
		return nil
	})
	// Drain spawned workers even when the walk itself failed, so no
	// goroutine appends to a result slice the caller already discarded.
	waitErr := g.Wait()
	if walkErr != nil {
		return walkErr
	}
	return waitErr
}

// supportedFile reports whether path has an analyzable extension.
func supportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range ast.SupportedExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}

// lessLocation orders locations by file, then line, then column.
func lessLocation(a, b ast.Location) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Col < b.Col
}
