// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/querylens/services/querylens/extract"
	"github.com/AleutianAI/querylens/services/querylens/report"
	"github.com/AleutianAI/querylens/services/querylens/schema"
	"github.com/AleutianAI/querylens/services/querylens/sqlgen"
)

var queriesFormat string

var queriesCmd = &cobra.Command{
	Use:   "queries [paths...]",
	Short: "Reconstruct query chains and print their SQL",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQueries,
}

func init() {
	queriesCmd.Flags().StringVarP(&queriesFormat, "format", "f", "text", "Output format: text or json")
}

func runQueries(cmd *cobra.Command, args []string) error {
	if schemaPath == "" {
		return fmt.Errorf("--schema is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	model, err := schema.NewLoader().Load(ctx, schemaPath)
	if err != nil {
		return err
	}

	extractor := extract.NewExtractor(model, cfg)
	all := make([]sqlgen.ExtractedQuery, 0)
	for _, path := range args {
		queries, err := extractForPath(ctx, extractor, path)
		if err != nil {
			return err
		}
		all = append(all, queries...)
	}

	switch queriesFormat {
	case "json":
		return report.FormatQueriesJSON(os.Stdout, all)
	case "text":
		return report.FormatQueriesText(os.Stdout, all)
	default:
		return fmt.Errorf("unknown format %q (want text or json)", queriesFormat)
	}
}

// extractForPath handles both file and directory arguments.
func extractForPath(ctx context.Context, extractor *extract.Extractor, path string) ([]sqlgen.ExtractedQuery, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return extractor.ExtractQueriesDir(ctx, path)
	}
	return extractor.ExtractQueries(ctx, path), nil
}
