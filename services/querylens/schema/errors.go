// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import "errors"

// Sentinel errors for schema loading.
var (
	// ErrSchemaNotFound is returned when the schema file does not exist
	// or cannot be read. Checks that depend on the schema cannot run.
	ErrSchemaNotFound = errors.New("schema file not found")

	// ErrSchemaInvalid is returned when the schema file cannot be parsed
	// at all. Individual malformed declarations are skipped, not fatal.
	ErrSchemaInvalid = errors.New("schema file could not be parsed")
)
