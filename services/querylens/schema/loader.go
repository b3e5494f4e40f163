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

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/querylens/services/querylens/ast"
)

// tableDeclFuncs are the recognized table declaration calls.
var tableDeclFuncs = map[string]bool{
	"pgTable":     true,
	"mysqlTable":  true,
	"sqliteTable": true,
}

// enumDeclFuncs are the recognized enum declaration calls.
var enumDeclFuncs = map[string]bool{
	"pgEnum":    true,
	"mysqlEnum": true,
}

// Loader parses a schema declaration file into a Schema.
//
// Description:
//
//	Loader walks the top-level declarations of the schema source looking
//	for table-declaration calls (name plus column-map literal) and
//	enum-declaration calls (name plus value-list literal). Enums are
//	collected in a first pass over the whole file so that a table may
//	reference an enum declared after it.
//
// Thread Safety:
//
//	Loader is safe for concurrent use; each Load call is independent.
type Loader struct {
	parser *ast.Parser
}

// NewLoader creates a Loader with a default parser.
func NewLoader() *Loader {
	return &Loader{parser: ast.NewParser()}
}

// Load parses the schema file at path.
//
// Outputs:
//   - *Schema: The normalized model. Read-only after return.
//   - error: ErrSchemaNotFound when the file is missing or unreadable,
//     ErrSchemaInvalid when the source cannot be parsed at all.
//     A single malformed table/column/enum declaration is skipped with a
//     debug log, never fatal.
func (l *Loader) Load(ctx context.Context, path string) (*Schema, error) {
	file, err := l.parser.ParseFile(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaInvalid, path, err)
	}
	defer file.Close()

	s := &Schema{
		Path:   path,
		Tables: make(map[string]*Table),
		Enums:  make(map[string]*Enum),
	}

	// Pass 1: enums. Collected across the whole file before tables so a
	// table can reference an enum declared later in the source.
	forEachDeclaration(file.Root(), file.Source, func(name string, value *sitter.Node) {
		if enum := l.parseEnumDecl(name, value, file.Source); enum != nil {
			s.Enums[name] = enum
		}
	})

	// Pass 2: tables.
	forEachDeclaration(file.Root(), file.Source, func(name string, value *sitter.Node) {
		if table := l.parseTableDecl(name, value, file.Source, s.Enums); table != nil {
			s.Tables[name] = table
		}
	})

	slog.Debug("schema loaded",
		slog.String("path", path),
		slog.Int("tables", len(s.Tables)),
		slog.Int("enums", len(s.Enums)))

	return s, nil
}

// forEachDeclaration invokes fn for every top-level `const name = <value>`
// declaration, including exported ones.
func forEachDeclaration(root *sitter.Node, src []byte, fn func(name string, value *sitter.Node)) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		decl := child
		if child.Type() == "export_statement" {
			decl = nil
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == "lexical_declaration" || gc.Type() == "variable_declaration" {
					decl = gc
					break
				}
			}
			if decl == nil {
				continue
			}
		}
		if decl.Type() != "lexical_declaration" && decl.Type() != "variable_declaration" {
			continue
		}
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			declarator := decl.NamedChild(j)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			nameNode := declarator.ChildByFieldName("name")
			valueNode := declarator.ChildByFieldName("value")
			if nameNode == nil || valueNode == nil || nameNode.Type() != "identifier" {
				continue
			}
			fn(ast.Text(nameNode, src), valueNode)
		}
	}
}

// parseEnumDecl parses `pgEnum('status', ['active', 'inactive'])`.
// Returns nil when the value is not an enum declaration or is malformed.
func (l *Loader) parseEnumDecl(name string, value *sitter.Node, src []byte) *Enum {
	value = ast.Unwrap(value)
	fnName, args := callParts(value, src)
	if !enumDeclFuncs[fnName] || len(args) < 2 {
		return nil
	}

	sqlName, ok := ast.StringValue(args[0], src)
	if !ok {
		slog.Debug("skipping malformed enum declaration", slog.String("enum", name))
		return nil
	}

	if args[1].Type() != "array" {
		slog.Debug("skipping malformed enum declaration", slog.String("enum", name))
		return nil
	}
	values := make([]string, 0, args[1].NamedChildCount())
	for _, el := range ast.NamedChildren(args[1]) {
		if v, ok := ast.StringValue(el, src); ok {
			values = append(values, v)
		}
	}

	return &Enum{Name: name, SQLName: sqlName, Values: values}
}

// parseTableDecl parses `pgTable('users', { id: serial('id').primaryKey(), ... })`.
// Returns nil when the value is not a table declaration or is malformed.
func (l *Loader) parseTableDecl(name string, value *sitter.Node, src []byte, enums map[string]*Enum) *Table {
	value = ast.Unwrap(value)
	fnName, args := callParts(value, src)
	if !tableDeclFuncs[fnName] || len(args) < 2 {
		return nil
	}

	sqlName, ok := ast.StringValue(args[0], src)
	if !ok {
		slog.Debug("skipping malformed table declaration", slog.String("table", name))
		return nil
	}
	if args[1].Type() != "object" {
		slog.Debug("skipping malformed table declaration", slog.String("table", name))
		return nil
	}

	table := &Table{
		Name:    name,
		SQLName: sqlName,
		byName:  make(map[string]*Column),
	}

	for _, prop := range ast.NamedChildren(args[1]) {
		if prop.Type() != "pair" {
			continue
		}
		keyNode := prop.ChildByFieldName("key")
		valNode := prop.ChildByFieldName("value")
		if keyNode == nil || valNode == nil {
			continue
		}
		colName := propertyKeyName(keyNode, src)
		if colName == "" {
			continue
		}
		col := l.parseColumn(colName, valNode, src, enums)
		if col == nil {
			slog.Debug("skipping malformed column declaration",
				slog.String("table", name),
				slog.String("column", colName))
			continue
		}
		table.Columns = append(table.Columns, col)
		table.byName[col.Name] = col
	}

	return table
}

// parseColumn walks a column declaration as a modifier chain, e.g.
// `varchar('email').notNull().default('')`, collecting the base type name
// and the set of modifier names present.
func (l *Loader) parseColumn(name string, value *sitter.Node, src []byte, enums map[string]*Enum) *Column {
	value = ast.Unwrap(value)

	baseType := ""
	sqlName := name
	modifiers := make(map[string]bool)

	node := value
	for node != nil && node.Type() == "call_expression" {
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return nil
		}
		switch fn.Type() {
		case "member_expression":
			prop := fn.ChildByFieldName("property")
			if prop != nil {
				modifiers[ast.Text(prop, src)] = true
			}
			node = fn.ChildByFieldName("object")
		case "identifier":
			baseType = ast.Text(fn, src)
			if args := callArgs(node); len(args) > 0 {
				if v, ok := ast.StringValue(args[0], src); ok {
					sqlName = v
				}
			}
			node = nil
		default:
			return nil
		}
	}

	if baseType == "" {
		return nil
	}

	col := &Column{
		Name:    name,
		SQLName: sqlName,
		Type:    baseType,
	}

	// Enum-typed columns are declared through the enum variable itself:
	// `status: statusEnum('status')`.
	if enum, ok := enums[baseType]; ok {
		col.EnumRef = enum
		col.Type = "enum"
	}

	col.NotNull = modifiers["notNull"]
	col.HasDefault = modifiers["default"] || modifiers["defaultNow"] ||
		modifiers["$default"] || modifiers["$defaultFn"]
	col.IsAutoGenerated = isSerialType(baseType) ||
		modifiers["generatedAlwaysAsIdentity"] ||
		modifiers["generatedByDefaultAsIdentity"] ||
		modifiers["$onUpdate"]
	col.IsRequired = col.NotNull && !col.HasDefault && !col.IsAutoGenerated

	return col
}

// callParts splits a call expression into its callee name and arguments.
// The callee name is empty when the node is not a simple identifier call.
func callParts(node *sitter.Node, src []byte) (string, []*sitter.Node) {
	if node == nil || node.Type() != "call_expression" {
		return "", nil
	}
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return "", nil
	}
	return ast.Text(fn, src), callArgs(node)
}

// callArgs returns the named argument nodes of a call expression.
func callArgs(node *sitter.Node) []*sitter.Node {
	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}
	return ast.NamedChildren(argsNode)
}

// propertyKeyName extracts an object-literal key name.
func propertyKeyName(key *sitter.Node, src []byte) string {
	switch key.Type() {
	case "property_identifier", "identifier":
		return ast.Text(key, src)
	case "string":
		v, _ := ast.StringValue(key, src)
		return v
	default:
		return ""
	}
}
