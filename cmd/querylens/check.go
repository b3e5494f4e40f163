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
	"github.com/AleutianAI/querylens/services/querylens/persist"
	"github.com/AleutianAI/querylens/services/querylens/report"
	"github.com/AleutianAI/querylens/services/querylens/schema"
)

var checkFormat string

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Validate write operations against the schema",
	Long:  "check extracts every insert/update/delete chain, classifies the provenance of written values, and reports missing required columns, unvalidated enum writes, and type mismatches.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format: text or json")
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	ops := make([]persist.DbOperation, 0)
	for _, path := range args {
		extracted, err := operationsForPath(ctx, extractor, path)
		if err != nil {
			return err
		}
		ops = append(ops, extracted...)
	}

	issues := persist.Validate(ops, model)

	switch checkFormat {
	case "json":
		err = report.FormatIssuesJSON(os.Stdout, issues)
	case "text":
		err = report.FormatIssuesText(os.Stdout, issues)
	default:
		return fmt.Errorf("unknown format %q (want text or json)", checkFormat)
	}
	if err != nil {
		return err
	}

	for _, issue := range issues {
		if issue.Severity == persist.SeverityError {
			exitCode = 1
			break
		}
	}
	return nil
}

// operationsForPath handles both file and directory arguments.
func operationsForPath(ctx context.Context, extractor *extract.Extractor, path string) ([]persist.DbOperation, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return extractor.ExtractOperationsDir(ctx, path)
	}
	return extractor.ExtractOperations(ctx, path), nil
}
