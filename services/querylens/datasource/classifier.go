// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datasource

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/config"
)

// routeParamsVar is the conventional identifier bound to route parameters.
const routeParamsVar = "params"

// coercionTargets maps numeric/boolean coercion wrappers to the scalar
// type they produce.
var coercionTargets = map[string]ScalarType{
	"Number":     ScalarNumber,
	"parseInt":   ScalarNumber,
	"parseFloat": ScalarNumber,
	"Boolean":    ScalarBoolean,
}

// Classify infers the provenance of a value expression.
//
// Description:
//
//	Classification applies the first matching rule:
//
//	 1. `.get`/`.getAll` on a tracked form accessor -> external field
//	 2. property, `.get(...)`, or index access on `params` -> route param
//	 3. literal -> literal with its scalar type
//	 4. coercion wrapper (Number/parseInt/parseFloat/Boolean) -> inner
//	    classification with the scalar type overridden
//	 5. identifier -> validated set, then source map, then plain variable
//	 6. property access on a validated or body-accessor variable
//
// Outputs:
//   - DataSource: Never an error; unrecognized shapes classify as
//     OriginUnknown, which downstream rules treat as "no signal."
func Classify(expr *sitter.Node, src []byte, scope *Scope, cfg *config.Config) DataSource {
	expr = ast.Unwrap(expr)
	if expr == nil {
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
	}

	switch expr.Type() {
	case "call_expression":
		return classifyCall(expr, src, scope, cfg)

	case "string":
		v, _ := ast.StringValue(expr, src)
		return DataSource{Origin: OriginLiteral, ScalarType: ScalarString, LiteralValue: v}

	case "template_string":
		// A substitution-free template is as good as a string literal.
		if !hasSubstitution(expr) {
			return DataSource{Origin: OriginLiteral, ScalarType: ScalarString, LiteralValue: templateText(expr, src)}
		}
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarString}

	case "number":
		return DataSource{Origin: OriginLiteral, ScalarType: ScalarNumber, LiteralValue: ast.Text(expr, src)}

	case "true", "false":
		return DataSource{Origin: OriginLiteral, ScalarType: ScalarBoolean, LiteralValue: expr.Type()}

	case "null", "undefined":
		return DataSource{Origin: OriginLiteral, ScalarType: ScalarNull, LiteralValue: "null"}

	case "identifier", "shorthand_property_identifier":
		name := ast.Text(expr, src)
		if scope.IsValidated(name) {
			return DataSource{Origin: OriginVariable, ScalarType: ScalarUnknown, Validated: true}
		}
		if ds, ok := scope.Source(name); ok {
			return ds
		}
		return DataSource{Origin: OriginVariable, ScalarType: ScalarUnknown}

	case "member_expression":
		return classifyMember(expr, src, scope)

	case "subscript_expression":
		obj := expr.ChildByFieldName("object")
		index := expr.ChildByFieldName("index")
		if obj != nil && obj.Type() == "identifier" && ast.Text(obj, src) == routeParamsVar {
			field, _ := ast.StringValue(index, src)
			return DataSource{Origin: OriginRouteParam, ScalarType: ScalarString, FieldName: field}
		}
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}

	default:
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
	}
}

// classifyCall handles accessor reads and coercion wrappers.
func classifyCall(expr *sitter.Node, src []byte, scope *Scope, cfg *config.Config) DataSource {
	fn := expr.ChildByFieldName("function")
	if fn == nil {
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
	}

	switch fn.Type() {
	case "member_expression":
		obj := fn.ChildByFieldName("object")
		prop := fn.ChildByFieldName("property")
		if obj == nil || prop == nil || obj.Type() != "identifier" {
			return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
		}
		objName := ast.Text(obj, src)
		method := ast.Text(prop, src)

		if method == "get" || method == "getAll" {
			field := firstStringArg(expr, src)
			if scope.isFormVar(objName) {
				return DataSource{Origin: OriginExternalField, ScalarType: ScalarString, FieldName: field}
			}
			if objName == routeParamsVar {
				return DataSource{Origin: OriginRouteParam, ScalarType: ScalarString, FieldName: field}
			}
		}
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}

	case "identifier":
		name := ast.Text(fn, src)
		target, ok := coercionTargets[name]
		if !ok {
			return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
		}
		args := expr.ChildByFieldName("arguments")
		if args == nil || args.NamedChildCount() == 0 {
			return DataSource{Origin: OriginUnknown, ScalarType: target}
		}
		inner := Classify(args.NamedChild(0), src, scope, cfg)
		inner.ScalarType = target
		return inner

	default:
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
	}
}

// classifyMember handles property access on params, body accessors, and
// validated objects.
func classifyMember(expr *sitter.Node, src []byte, scope *Scope) DataSource {
	obj := expr.ChildByFieldName("object")
	prop := expr.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" {
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
	}
	objName := ast.Text(obj, src)
	field := ast.Text(prop, src)

	switch {
	case objName == routeParamsVar:
		return DataSource{Origin: OriginRouteParam, ScalarType: ScalarString, FieldName: field}
	case scope.isBodyVar(objName):
		return DataSource{Origin: OriginRequestBody, ScalarType: ScalarUnknown, FieldName: field}
	case scope.IsValidated(objName):
		// Validation propagates through fields of a validated object.
		return DataSource{Origin: OriginVariable, ScalarType: ScalarUnknown, FieldName: field, Validated: true}
	default:
		return DataSource{Origin: OriginUnknown, ScalarType: ScalarUnknown}
	}
}

// firstStringArg returns the first string-literal argument of a call.
func firstStringArg(call *sitter.Node, src []byte) string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if v, ok := ast.StringValue(args.NamedChild(i), src); ok {
			return v
		}
	}
	return ""
}

// hasSubstitution reports whether a template string interpolates values.
func hasSubstitution(tmpl *sitter.Node) bool {
	for i := 0; i < int(tmpl.NamedChildCount()); i++ {
		if tmpl.NamedChild(i).Type() == "template_substitution" {
			return true
		}
	}
	return false
}

// templateText returns the raw template content without backticks.
func templateText(tmpl *sitter.Node, src []byte) string {
	raw := ast.Text(tmpl, src)
	if len(raw) >= 2 {
		return raw[1 : len(raw)-1]
	}
	return raw
}
