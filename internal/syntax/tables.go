package syntax

import "codeir/internal/lang"

var goTable = Table{
	"source_file":          TagModule,
	"function_declaration": TagFunctionDecl,
	"method_declaration":   TagFunctionDecl,
	"func_literal":         TagFunctionDecl,
	"type_spec":            TagClassDecl,
	"type_alias":           TagClassDecl,
	"var_spec":             TagVarDecl,
	"const_spec":           TagVarDecl,
	"import_declaration":   TagImportStmt,
	"call_expression":      TagCallExpr,
	"identifier":           TagIdentifierRef,
	"field_identifier":     TagIdentifierRef,
	"type_identifier":      TagIdentifierRef,
	"package_identifier":   TagIdentifierRef,
}

var pythonTable = Table{
	"module":                  TagModule,
	"function_definition":     TagFunctionDecl,
	"lambda":                  TagFunctionDecl,
	"class_definition":        TagClassDecl,
	"assignment":              TagVarDecl,
	"import_statement":        TagImportStmt,
	"import_from_statement":   TagImportStmt,
	"future_import_statement": TagImportStmt,
	"call":                    TagCallExpr,
	"identifier":              TagIdentifierRef,
}

var rustTable = Table{
	"source_file":               TagModule,
	"mod_item":                  TagModule,
	"function_item":             TagFunctionDecl,
	"function_signature_item":   TagFunctionDecl,
	"closure_expression":        TagFunctionDecl,
	"struct_item":               TagClassDecl,
	"enum_item":                 TagClassDecl,
	"union_item":                TagClassDecl,
	"trait_item":                TagClassDecl,
	"type_item":                 TagClassDecl,
	"const_item":                TagVarDecl,
	"static_item":               TagVarDecl,
	"use_declaration":           TagImportStmt,
	"extern_crate_declaration":  TagImportStmt,
	"call_expression":           TagCallExpr,
	"macro_invocation":          TagCallExpr,
	"identifier":                TagIdentifierRef,
	"type_identifier":           TagIdentifierRef,
	"field_identifier":          TagIdentifierRef,
}

var javascriptTable = Table{
	"program":                        TagModule,
	"function_declaration":           TagFunctionDecl,
	"generator_function_declaration": TagFunctionDecl,
	"function_expression":            TagFunctionDecl,
	"function":                       TagFunctionDecl,
	"generator_function":             TagFunctionDecl,
	"arrow_function":                 TagFunctionDecl,
	"method_definition":              TagFunctionDecl,
	"class_declaration":              TagClassDecl,
	"class":                          TagClassDecl,
	"variable_declarator":            TagVarDecl,
	"import_statement":               TagImportStmt,
	"call_expression":                TagCallExpr,
	"new_expression":                 TagCallExpr,
	"identifier":                     TagIdentifierRef,
	"property_identifier":            TagIdentifierRef,
}

var typescriptTable = javascriptTable.With(map[string]Tag{
	"function_signature":          TagFunctionDecl,
	"method_signature":            TagFunctionDecl,
	"abstract_method_signature":   TagFunctionDecl,
	"abstract_class_declaration":  TagClassDecl,
	"interface_declaration":       TagClassDecl,
	"type_alias_declaration":      TagClassDecl,
	"enum_declaration":            TagClassDecl,
	"type_identifier":             TagIdentifierRef,
})

var javaTable = Table{
	"program":                     TagModule,
	"method_declaration":          TagFunctionDecl,
	"constructor_declaration":     TagFunctionDecl,
	"lambda_expression":           TagFunctionDecl,
	"class_declaration":           TagClassDecl,
	"record_declaration":          TagClassDecl,
	"enum_declaration":            TagClassDecl,
	"interface_declaration":       TagClassDecl,
	"annotation_type_declaration": TagClassDecl,
	"variable_declarator":         TagVarDecl,
	"import_declaration":          TagImportStmt,
	"method_invocation":           TagCallExpr,
	"object_creation_expression":  TagCallExpr,
	"identifier":                  TagIdentifierRef,
	"type_identifier":             TagIdentifierRef,
}

var tables = map[lang.Language]Table{
	lang.Go:         goTable,
	lang.Python:     pythonTable,
	lang.Rust:       rustTable,
	lang.JavaScript: javascriptTable,
	lang.TypeScript: typescriptTable,
	lang.TSX:        typescriptTable,
	lang.Java:       javaTable,
}

// TableFor returns a copy of the built-in table for a language.
func TableFor(l lang.Language) (Table, bool) {
	t, ok := tables[l]
	if !ok {
		return nil, false
	}
	return t.With(nil), true
}
