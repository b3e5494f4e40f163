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

// BuildScope builds the file-local Scope for root by composing three
// ordered passes, each a pure function over the tree:
//
//  1. request-accessor variables (form data, parsed bodies)
//  2. validated variables (schema-validation calls, incl. destructuring)
//  3. classified variable declarations, in source order
//
// The ordering is a contract: pass 3 classifies initializers against the
// maps produced by passes 1 and 2, and against earlier declarations in
// the same pass.
func BuildScope(root *sitter.Node, src []byte, cfg *config.Config) *Scope {
	formVars, bodyVars := collectAccessorVars(root, src, cfg)
	scope := &Scope{
		sources:   make(map[string]DataSource),
		validated: collectValidatedVars(root, src, cfg),
		formVars:  formVars,
		bodyVars:  bodyVars,
	}
	collectSources(root, src, cfg, scope)
	return scope
}

// collectAccessorVars finds declarations whose initializer calls a
// request accessor, e.g. `const form = await request.formData()` or
// `const body = await request.json()`.
func collectAccessorVars(root *sitter.Node, src []byte, cfg *config.Config) (form, body map[string]struct{}) {
	form = make(map[string]struct{})
	body = make(map[string]struct{})

	forEachDeclarator(root, func(name, value *sitter.Node) {
		if name.Type() != "identifier" {
			return
		}
		method := calledMethodName(ast.Unwrap(value), src)
		switch {
		case cfg.IsFormAccessor(method):
			form[ast.Text(name, src)] = struct{}{}
		case cfg.IsBodyAccessor(method):
			body[ast.Text(name, src)] = struct{}{}
		}
	})
	return form, body
}

// collectValidatedVars finds declarations whose initializer is a
// schema-validation call. Both plain bindings and object-destructuring
// patterns are recorded:
//
//	const input = schema.parse(raw)        // input validated
//	const { name, email } = schema.parse(raw) // name, email validated
func collectValidatedVars(root *sitter.Node, src []byte, cfg *config.Config) map[string]struct{} {
	validated := make(map[string]struct{})

	forEachDeclarator(root, func(name, value *sitter.Node) {
		if !cfg.IsValidatorMethod(calledMethodName(ast.Unwrap(value), src)) {
			return
		}
		switch name.Type() {
		case "identifier":
			validated[ast.Text(name, src)] = struct{}{}
		case "object_pattern":
			for _, el := range ast.NamedChildren(name) {
				switch el.Type() {
				case "shorthand_property_identifier_pattern":
					validated[ast.Text(el, src)] = struct{}{}
				case "pair_pattern":
					if v := el.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
						validated[ast.Text(v, src)] = struct{}{}
					}
				}
			}
		}
	})
	return validated
}

// collectSources classifies every plain `const x = <expr>` declaration in
// source order, memoizing the result per variable name. Later
// declarations see the classifications of earlier ones.
func collectSources(root *sitter.Node, src []byte, cfg *config.Config, scope *Scope) {
	forEachDeclarator(root, func(name, value *sitter.Node) {
		if name.Type() != "identifier" {
			return
		}
		varName := ast.Text(name, src)
		if scope.IsValidated(varName) || scope.isFormVar(varName) || scope.isBodyVar(varName) {
			return
		}
		scope.sources[varName] = Classify(value, src, scope, cfg)
	})
}

// forEachDeclarator visits every variable_declarator with an initializer,
// depth-first in source order.
func forEachDeclarator(root *sitter.Node, fn func(name, value *sitter.Node)) {
	ast.Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "variable_declarator" {
			return true
		}
		name := n.ChildByFieldName("name")
		value := n.ChildByFieldName("value")
		if name != nil && value != nil {
			fn(name, value)
		}
		return true
	})
}

// calledMethodName returns the method name when expr is a call through a
// property access (`recv.method(...)`), or "" otherwise.
func calledMethodName(expr *sitter.Node, src []byte) string {
	if expr == nil || expr.Type() != "call_expression" {
		return ""
	}
	fn := expr.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return ""
	}
	prop := fn.ChildByFieldName("property")
	if prop == nil {
		return ""
	}
	return ast.Text(prop, src)
}
