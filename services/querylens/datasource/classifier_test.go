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
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
	"github.com/AleutianAI/querylens/services/querylens/config"
)

// parseScoped parses source and builds its Scope.
func parseScoped(t *testing.T, source string) (*ast.File, *Scope, *config.Config) {
	t.Helper()
	cfg := config.Default()
	file, err := ast.NewParser().Parse(context.Background(), []byte(source), "test.ts")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	t.Cleanup(file.Close)
	return file, BuildScope(file.Root(), file.Source, cfg), cfg
}

// initializerOf finds the initializer expression of `const <name> = ...`.
func initializerOf(t *testing.T, file *ast.File, name string) *sitter.Node {
	t.Helper()
	var value *sitter.Node
	ast.Walk(file.Root(), func(n *sitter.Node) bool {
		if n.Type() != "variable_declarator" {
			return true
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode != nil && ast.Text(nameNode, file.Source) == name {
			value = n.ChildByFieldName("value")
			return false
		}
		return true
	})
	if value == nil {
		t.Fatalf("no declaration of %q in source", name)
	}
	return value
}

func TestClassify_Literals(t *testing.T) {
	source := `
const a = 'hello';
const b = 42;
const c = true;
const d = null;
const e = ` + "`plain`" + `;
const f = ` + "`v=${x}`" + `;
`
	file, scope, cfg := parseScoped(t, source)

	tests := []struct {
		name   string
		origin Origin
		scalar ScalarType
		value  string
	}{
		{name: "a", origin: OriginLiteral, scalar: ScalarString, value: "hello"},
		{name: "b", origin: OriginLiteral, scalar: ScalarNumber, value: "42"},
		{name: "c", origin: OriginLiteral, scalar: ScalarBoolean, value: "true"},
		{name: "d", origin: OriginLiteral, scalar: ScalarNull, value: "null"},
		{name: "e", origin: OriginLiteral, scalar: ScalarString, value: "plain"},
		// A template with substitutions is not a literal.
		{name: "f", origin: OriginUnknown, scalar: ScalarString, value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Classify(initializerOf(t, file, tt.name), file.Source, scope, cfg)
			if ds.Origin != tt.origin {
				t.Errorf("Origin = %v, want %v", ds.Origin, tt.origin)
			}
			if ds.ScalarType != tt.scalar {
				t.Errorf("ScalarType = %v, want %v", ds.ScalarType, tt.scalar)
			}
			if ds.LiteralValue != tt.value {
				t.Errorf("LiteralValue = %q, want %q", ds.LiteralValue, tt.value)
			}
		})
	}
}

func TestClassify_FormAccess(t *testing.T) {
	source := `
const formData = await request.formData();
const name = formData.get('name');
const tags = formData.getAll('tag');
`
	file, scope, cfg := parseScoped(t, source)

	ds := Classify(initializerOf(t, file, "name"), file.Source, scope, cfg)
	if ds.Origin != OriginExternalField {
		t.Errorf("Origin = %v, want %v", ds.Origin, OriginExternalField)
	}
	if ds.ScalarType != ScalarString {
		t.Errorf("ScalarType = %v, want %v", ds.ScalarType, ScalarString)
	}
	if ds.FieldName != "name" {
		t.Errorf("FieldName = %q, want %q", ds.FieldName, "name")
	}

	ds = Classify(initializerOf(t, file, "tags"), file.Source, scope, cfg)
	if ds.Origin != OriginExternalField || ds.FieldName != "tag" {
		t.Errorf("getAll = %+v, want external field tag", ds)
	}
}

func TestClassify_RouteParams(t *testing.T) {
	source := `
const a = params.id;
const b = params.get('slug');
const c = params['key'];
`
	file, scope, cfg := parseScoped(t, source)

	tests := []struct {
		name  string
		field string
	}{
		{name: "a", field: "id"},
		{name: "b", field: "slug"},
		{name: "c", field: "key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Classify(initializerOf(t, file, tt.name), file.Source, scope, cfg)
			if ds.Origin != OriginRouteParam {
				t.Errorf("Origin = %v, want %v", ds.Origin, OriginRouteParam)
			}
			if ds.FieldName != tt.field {
				t.Errorf("FieldName = %q, want %q", ds.FieldName, tt.field)
			}
		})
	}
}

func TestClassify_RequestBody(t *testing.T) {
	source := `
const body = await request.json();
const title = body.title;
`
	file, scope, cfg := parseScoped(t, source)

	ds := Classify(initializerOf(t, file, "title"), file.Source, scope, cfg)
	if ds.Origin != OriginRequestBody {
		t.Errorf("Origin = %v, want %v", ds.Origin, OriginRequestBody)
	}
	if ds.FieldName != "title" {
		t.Errorf("FieldName = %q, want %q", ds.FieldName, "title")
	}
}

func TestClassify_CoercionWrappers(t *testing.T) {
	source := `
const formData = await request.formData();
const age = Number(formData.get('age'));
const count = parseInt(formData.get('count'));
const flag = Boolean(formData.get('flag'));
`
	file, scope, cfg := parseScoped(t, source)

	tests := []struct {
		name   string
		scalar ScalarType
	}{
		{name: "age", scalar: ScalarNumber},
		{name: "count", scalar: ScalarNumber},
		{name: "flag", scalar: ScalarBoolean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Classify(initializerOf(t, file, tt.name), file.Source, scope, cfg)
			// The coercion keeps the external origin but fixes the type.
			if ds.Origin != OriginExternalField {
				t.Errorf("Origin = %v, want %v", ds.Origin, OriginExternalField)
			}
			if ds.ScalarType != tt.scalar {
				t.Errorf("ScalarType = %v, want %v", ds.ScalarType, tt.scalar)
			}
		})
	}
}

func TestClassify_ValidatedVariables(t *testing.T) {
	source := `
const input = userSchema.parse(raw);
const { name, email } = userSchema.safeParse(raw);
const other = somewhere();
const use1 = input;
const use2 = name;
const use3 = other;
`
	file, scope, cfg := parseScoped(t, source)

	for _, varName := range []string{"use1", "use2"} {
		ds := Classify(initializerOf(t, file, varName), file.Source, scope, cfg)
		if !ds.Validated {
			t.Errorf("%s: Validated = false, want true", varName)
		}
		if ds.Origin != OriginVariable {
			t.Errorf("%s: Origin = %v, want %v", varName, ds.Origin, OriginVariable)
		}
	}

	ds := Classify(initializerOf(t, file, "use3"), file.Source, scope, cfg)
	if ds.Validated {
		t.Error("use3: Validated = true for an unvalidated variable")
	}
}

func TestClassify_ValidatedMemberAccess(t *testing.T) {
	source := `
const input = userSchema.parse(raw);
const v = input.email;
`
	file, scope, cfg := parseScoped(t, source)

	ds := Classify(initializerOf(t, file, "v"), file.Source, scope, cfg)
	if !ds.Validated {
		t.Error("field access on a validated object should stay validated")
	}
	if ds.FieldName != "email" {
		t.Errorf("FieldName = %q, want %q", ds.FieldName, "email")
	}
}

func TestClassify_VariablePropagation(t *testing.T) {
	// An intermediate variable carries its initializer's classification.
	source := `
const formData = await request.formData();
const name = formData.get('name');
const alias = name;
`
	file, scope, cfg := parseScoped(t, source)

	ds := Classify(initializerOf(t, file, "alias"), file.Source, scope, cfg)
	if ds.Origin != OriginExternalField {
		t.Errorf("Origin = %v, want %v propagated through the variable", ds.Origin, OriginExternalField)
	}
}

func TestClassify_AwaitAndParensTransparent(t *testing.T) {
	source := `
const formData = await request.formData();
const name = (formData.get('name'));
`
	file, scope, cfg := parseScoped(t, source)

	ds := Classify(initializerOf(t, file, "name"), file.Source, scope, cfg)
	if ds.Origin != OriginExternalField {
		t.Errorf("Origin = %v, want %v through parentheses", ds.Origin, OriginExternalField)
	}
}

func TestClassify_UnknownShapes(t *testing.T) {
	source := `
const a = compute(1, 2);
const b = x + y;
`
	file, scope, cfg := parseScoped(t, source)

	for _, varName := range []string{"a", "b"} {
		ds := Classify(initializerOf(t, file, varName), file.Source, scope, cfg)
		if ds.Origin != OriginUnknown {
			t.Errorf("%s: Origin = %v, want %v", varName, ds.Origin, OriginUnknown)
		}
	}
}

func TestOrigin_External(t *testing.T) {
	tests := []struct {
		origin Origin
		want   bool
	}{
		{origin: OriginExternalField, want: true},
		{origin: OriginRouteParam, want: true},
		{origin: OriginRequestBody, want: true},
		{origin: OriginLiteral, want: false},
		{origin: OriginVariable, want: false},
		{origin: OriginUnknown, want: false},
	}
	for _, tt := range tests {
		if got := tt.origin.External(); got != tt.want {
			t.Errorf("%v.External() = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
