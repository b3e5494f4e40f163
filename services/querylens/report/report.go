// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders extraction and validation results for the
// command line. All functions are pure formatting over their inputs;
// the only side effect is writing to the supplied writer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/AleutianAI/querylens/services/querylens/persist"
	"github.com/AleutianAI/querylens/services/querylens/sqlgen"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	sqlColor     = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

// FormatQueriesText writes a human-readable report of synthesized
// queries. Color degrades automatically when the writer is not a
// terminal.
func FormatQueriesText(w io.Writer, queries []sqlgen.ExtractedQuery) error {
	for i, q := range queries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		headerColor.Fprintf(w, "%s %s\n", strings.ToUpper(q.Type), q.Location)
		sqlColor.Fprintf(w, "  %s\n", q.SQL)
		if len(q.Tables) > 0 {
			dimColor.Fprintf(w, "  tables: %s\n", strings.Join(q.Tables, ", "))
		}
		for _, p := range q.Parameters {
			dimColor.Fprintf(w, "  $%d <- %s", p.Position, p.Source)
			if p.ColumnType != "" {
				dimColor.Fprintf(w, " (%s)", p.ColumnType)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "\n%d queries\n", len(queries))
	return nil
}

// FormatQueriesJSON writes the queries as indented JSON with stable
// field order.
func FormatQueriesJSON(w io.Writer, queries []sqlgen.ExtractedQuery) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(queries)
}

// FormatIssuesText writes a human-readable report of validation issues.
func FormatIssuesText(w io.Writer, issues []persist.Issue) error {
	for _, issue := range issues {
		c := warningColor
		if issue.Severity == persist.SeverityError {
			c = errorColor
		}
		c.Fprintf(w, "%s", issue.Severity)
		fmt.Fprintf(w, " [%s] %s: %s\n", issue.Code, issue.Location, issue.Message)
		if issue.Suggestion != "" {
			dimColor.Fprintf(w, "  suggestion: %s\n", issue.Suggestion)
		}
	}
	fmt.Fprintf(w, "\n%d issues\n", len(issues))
	return nil
}

// FormatIssuesJSON writes the issues as indented JSON.
func FormatIssuesJSON(w io.Writer, issues []persist.Issue) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(issues)
}
