// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sqlgen renders a chain IR and schema model into canonical SQL
// text with positional parameters, for audit and inspection tooling.
package sqlgen

import (
	"github.com/AleutianAI/querylens/services/querylens/ast"
)

// QueryParameter is one positional parameter of a synthesized statement.
type QueryParameter struct {
	// Position is the 1-based parameter index within the statement.
	Position int `json:"position"`
	// Source is the source text of the expression the parameter stands
	// for.
	Source string `json:"source"`
	// ColumnType is the schema type of the target column when known.
	ColumnType string `json:"column_type,omitempty"`
}

// ExtractedQuery is the synthesized form of one query chain.
//
// ExtractedQuery values are pure outputs: produced once, never mutated.
type ExtractedQuery struct {
	// Type is the operation: select, insert, update, or delete.
	Type string `json:"type"`
	// SQL is the canonical statement text.
	SQL string `json:"sql"`
	// Tables lists the schema-declared SQL names of every table the
	// statement touches, source order, deduplicated.
	Tables []string `json:"tables"`
	// Location is where the chain starts in the source file.
	Location ast.Location `json:"location"`
	// Code is the chain's source text.
	Code string `json:"code"`
	// Parameters in left-to-right order of appearance in SQL.
	Parameters []QueryParameter `json:"parameters,omitempty"`
}
