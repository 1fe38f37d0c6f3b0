package extractor

import "strings"

// JavaScript and TypeScript share one grammar family and one rule set.
var javascriptRules = &rules{
	anonymous: map[string]bool{
		"arrow_function":      true,
		"function_expression": true,
		"function":            true,
		"generator_function":  true,
		"class":               true,
	},
	imports:       scriptImports,
	callee:        scriptCallee,
	qualifiedRefs: map[string]bool{"member_expression": true, "nested_type_identifier": true},
	refContext:    scriptRefContext,
	visibility:    scriptVisibility,
	modulePath:    scriptModulePath,
}

var typescriptRules = func() *rules {
	r := *javascriptRules
	r.declKinds = map[string]Kind{
		"interface_declaration":  KindType,
		"type_alias_declaration": KindType,
	}
	r.refKinds = map[string]bool{"type_identifier": true}
	return &r
}()

func scriptCallee(t *eventTree, i int) string {
	field := "function"
	if t.kind(i) == "new_expression" {
		field = "constructor"
	}
	return normalizeCallee(t.text(t.field(i, field)))
}

func scriptImports(t *eventTree, i int, f fileInfo) []importSpec {
	src := t.field(i, "source")
	if src < 0 {
		return nil
	}
	p := scriptImportPath(f.Path, unquote(t.text(src)))
	if p == "" {
		return nil
	}

	var out []importSpec
	if clause := t.childOfKind(i, "import_clause"); clause >= 0 {
		for _, c := range t.children[clause] {
			switch t.kind(c) {
			case "identifier":
				out = append(out, importSpec{Path: p, Binding: t.text(c), Node: c})
			case "namespace_import":
				if id := t.childOfKind(c, "identifier"); id >= 0 {
					out = append(out, importSpec{Path: p, Binding: t.text(id), Node: c})
				}
			case "named_imports":
				for _, s := range t.children[c] {
					if t.kind(s) != "import_specifier" {
						continue
					}
					binding := t.text(t.field(s, "name"))
					if a := t.field(s, "alias"); a >= 0 {
						binding = t.text(a)
					}
					out = append(out, importSpec{Path: p, Binding: binding, Node: s})
				}
			}
		}
	}
	if len(out) == 0 {
		out = append(out, importSpec{Path: p, Binding: lastSegment(p), Node: i})
	}
	return out
}

func scriptRefContext(t *eventTree, span int) bool {
	return t.ancestorOfKind(span, 2, "class_heritage", "extends_clause", "implements_clause", "extends_type_clause") >= 0
}

func scriptVisibility(t *eventTree, i int, name string) Visibility {
	if m := t.childOfKind(i, "accessibility_modifier"); m >= 0 {
		switch strings.TrimSpace(t.text(m)) {
		case "private":
			return VisibilityPrivate
		case "protected":
			return VisibilityProtected
		case "public":
			return VisibilityPublic
		}
	}
	if strings.HasPrefix(name, "#") {
		return VisibilityPrivate
	}
	p := t.parent(i)
	if t.kind(p) == "export_statement" {
		return VisibilityPublic
	}
	if t.kind(i) == "variable_declarator" && t.kind(t.parent(p)) == "export_statement" {
		return VisibilityPublic
	}
	return VisibilityUnknown
}
