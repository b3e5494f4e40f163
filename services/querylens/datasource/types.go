// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datasource classifies the provenance of value expressions:
// where a runtime value originated and whether it has passed a validating
// transform.
//
// Classification is intra-procedural per source file. A Scope carries the
// file-local variable knowledge and is built by three explicit, ordered
// passes (request-accessor variables, validated variables, classified
// declarations) before any value is classified; later values reference
// earlier declarations, so the ordering is a correctness requirement.
package datasource

// Origin identifies where a value originated.
type Origin string

const (
	OriginLiteral       Origin = "literal"
	OriginExternalField Origin = "external_field"
	OriginRouteParam    Origin = "route_param"
	OriginRequestBody   Origin = "request_body"
	OriginVariable      Origin = "variable"
	OriginUnknown       Origin = "unknown"
)

// External reports whether the origin is externally supplied input.
func (o Origin) External() bool {
	switch o {
	case OriginExternalField, OriginRouteParam, OriginRequestBody:
		return true
	}
	return false
}

// ScalarType is the value type as far as literal or coercion syntax
// makes it explicit.
type ScalarType string

const (
	ScalarString  ScalarType = "string"
	ScalarNumber  ScalarType = "number"
	ScalarBoolean ScalarType = "boolean"
	ScalarNull    ScalarType = "null"
	ScalarUnknown ScalarType = "unknown"
)

// DataSource is the classification of one value expression.
type DataSource struct {
	Origin     Origin     `json:"origin"`
	ScalarType ScalarType `json:"scalar_type"`

	// LiteralValue is the source text of the literal, set only for
	// OriginLiteral.
	LiteralValue string `json:"literal_value,omitempty"`

	// FieldName is the accessed field or parameter name for external
	// origins.
	FieldName string `json:"field_name,omitempty"`

	// Validated is true when the value comes from a schema-validation
	// call, directly or through destructuring.
	Validated bool `json:"validated"`
}

// Scope holds the file-local variable knowledge used by Classify.
//
// Scopes are built once per file by BuildScope and are read-only
// afterward.
type Scope struct {
	sources   map[string]DataSource
	validated map[string]struct{}
	formVars  map[string]struct{}
	bodyVars  map[string]struct{}
}

// Source returns the previously classified DataSource for a variable.
func (s *Scope) Source(name string) (DataSource, bool) {
	ds, ok := s.sources[name]
	return ds, ok
}

// IsValidated reports whether a variable is proven validated.
func (s *Scope) IsValidated(name string) bool {
	_, ok := s.validated[name]
	return ok
}

// isFormVar reports whether a variable is bound to a form-data accessor.
func (s *Scope) isFormVar(name string) bool {
	_, ok := s.formVars[name]
	return ok
}

// isBodyVar reports whether a variable is bound to a parsed request body.
func (s *Scope) isBodyVar(name string) bool {
	_, ok := s.bodyVars[name]
	return ok
}
