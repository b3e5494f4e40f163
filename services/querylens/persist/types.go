// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package persist cross-checks write operations against the schema model
// and the provenance of the values they write.
package persist

import (
	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/chain"
	"github.com/AleutianAI/querylens/services/querylens/datasource"
)

// CategoryPersistence tags every issue this package emits.
const CategoryPersistence = "persistence"

// Severity is the issue severity level.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes emitted by the validator.
const (
	CodeMissingRequiredColumn = "missing-required-column"
	CodeUnvalidatedEnumWrite  = "unvalidated-enum-write"
	CodeColumnTypeMismatch    = "column-type-mismatch"
)

// ColumnValue is one column written by an operation, with the provenance
// of its value.
type ColumnValue struct {
	ColumnName string                `json:"column_name"`
	Source     datasource.DataSource `json:"source"`
	Span       ast.Span              `json:"span"`
}

// DbOperation is the validator's view of one insert/update/delete chain.
//
// DbOperation values are pure outputs of extraction: produced once,
// never mutated.
type DbOperation struct {
	Type         chain.Operation `json:"type"`
	TableName    string          `json:"table_name"`
	ColumnValues []ColumnValue   `json:"column_values,omitempty"`
	HasWhere     bool            `json:"has_where"`
	Location     ast.Location    `json:"location"`
	Span         ast.Span        `json:"span"`
}

// Issue is one validation finding.
//
// No persistence issue is auto-fixable: fixing requires adding business
// logic, not a mechanical text edit, so Suggestion is advisory only.
type Issue struct {
	Category   string       `json:"category"`
	Code       string       `json:"code"`
	Severity   Severity     `json:"severity"`
	Message    string       `json:"message"`
	Location   ast.Location `json:"location"`
	Suggestion string       `json:"suggestion,omitempty"`
}
