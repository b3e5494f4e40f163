// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package persist

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/querylens/services/querylens/chain"
	"github.com/AleutianAI/querylens/services/querylens/datasource"
	"github.com/AleutianAI/querylens/services/querylens/schema"
)

// Validate cross-checks operations against the schema model.
//
// Description:
//
//	Rules are evaluated independently per operation:
//
//	  - missing required column (inserts only): every schema column that
//	    is notNull without a default or generator must appear in the
//	    payload; each absence is one issue.
//	  - unknown column: a payload column absent from the schema is
//	    skipped silently — it usually indicates dynamic or computed data
//	    the analyzer cannot see.
//	  - unvalidated enum write: external input written to an enum column
//	    without a validating call.
//	  - type mismatch: a string-typed request value written to a numeric
//	    or boolean column without a coercion wrapper.
//
//	An operation on a table the schema does not declare contributes no
//	issues; unresolved tables are "no signal," not errors.
func Validate(ops []DbOperation, s *schema.Schema) []Issue {
	issues := make([]Issue, 0)
	for _, op := range ops {
		table, ok := s.Table(op.TableName)
		if !ok {
			continue
		}
		if op.Type == chain.OpInsert {
			issues = append(issues, checkRequiredColumns(op, table)...)
		}
		for _, cv := range op.ColumnValues {
			col, ok := table.Column(cv.ColumnName)
			if !ok {
				// Unknown column: treated as dynamic/computed.
				continue
			}
			if issue := checkEnumWrite(op, table, col, cv); issue != nil {
				issues = append(issues, *issue)
			}
			if issue := checkTypeMismatch(op, table, col, cv); issue != nil {
				issues = append(issues, *issue)
			}
		}
	}
	return issues
}

// checkRequiredColumns reports one issue per required schema column the
// insert omits.
func checkRequiredColumns(op DbOperation, table *schema.Table) []Issue {
	present := make(map[string]bool, len(op.ColumnValues))
	for _, cv := range op.ColumnValues {
		present[cv.ColumnName] = true
	}

	var issues []Issue
	for _, col := range table.Columns {
		if !col.IsRequired || present[col.Name] {
			continue
		}
		issues = append(issues, Issue{
			Category: CategoryPersistence,
			Code:     CodeMissingRequiredColumn,
			Severity: SeverityError,
			Message: fmt.Sprintf("insert into %q is missing required column %q",
				table.Name, col.Name),
			Location:   op.Location,
			Suggestion: fmt.Sprintf("provide a value for %q or give the column a default", col.Name),
		})
	}
	return issues
}

// checkEnumWrite flags unvalidated external input written to an enum
// column. Literal and already-validated values are exempt, as is input
// of unknown origin.
func checkEnumWrite(op DbOperation, table *schema.Table, col *schema.Column, cv ColumnValue) *Issue {
	if col.EnumRef == nil || cv.Source.Validated || !cv.Source.Origin.External() {
		return nil
	}
	return &Issue{
		Category: CategoryPersistence,
		Code:     CodeUnvalidatedEnumWrite,
		Severity: SeverityError,
		Message: fmt.Sprintf("column %q of %q only allows [%s] but receives unvalidated external input",
			col.Name, table.Name, strings.Join(col.EnumRef.Values, ", ")),
		Location:   op.Location,
		Suggestion: fmt.Sprintf("validate the value against the %q enum before writing it", col.EnumRef.SQLName),
	}
}

// checkTypeMismatch flags a request-sourced string written to a numeric
// or boolean column; request accessors always produce strings, so a
// missing coercion wrapper means the column receives the wrong type.
func checkTypeMismatch(op DbOperation, table *schema.Table, col *schema.Column, cv ColumnValue) *Issue {
	class := col.ScalarClass()
	if class != schema.ClassNumber && class != schema.ClassBoolean {
		return nil
	}
	if cv.Source.ScalarType != datasource.ScalarString {
		return nil
	}
	if cv.Source.Origin != datasource.OriginExternalField && cv.Source.Origin != datasource.OriginRouteParam {
		return nil
	}

	wrapper := "Number(...)"
	if class == schema.ClassBoolean {
		wrapper = "Boolean(...)"
	}
	return &Issue{
		Category: CategoryPersistence,
		Code:     CodeColumnTypeMismatch,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("column %q of %q expects %s but receives a string from request input",
			col.Name, table.Name, class),
		Location:   op.Location,
		Suggestion: fmt.Sprintf("wrap the value in %s before writing it", wrapper),
	}
}
