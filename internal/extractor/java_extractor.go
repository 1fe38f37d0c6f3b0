package extractor

import "strings"

var javaRules = &rules{
	anonymous: map[string]bool{"lambda_expression": true},
	declKinds: map[string]Kind{
		"interface_declaration":       KindType,
		"annotation_type_declaration": KindType,
	},
	imports:       javaImports,
	callee:        javaCallee,
	refKinds:      map[string]bool{"type_identifier": true},
	qualifiedRefs: map[string]bool{"scoped_type_identifier": true},
	visibility:    javaVisibility,
	modulePath:    javaModulePath,
}

func javaImports(t *eventTree, i int, _ fileInfo) []importSpec {
	n := t.childOfKind(i, "scoped_identifier", "identifier")
	if n < 0 {
		return nil
	}
	p := t.text(n)
	binding := lastSegment(p)
	if t.childOfKind(i, "asterisk") >= 0 {
		binding = "*"
	}
	return []importSpec{{Path: p, Binding: binding, Node: n}}
}

func javaCallee(t *eventTree, i int) string {
	if t.kind(i) == "object_creation_expression" {
		return stripGenerics(normalizeCallee(t.text(t.field(i, "type"))))
	}
	name := t.text(t.field(i, "name"))
	if name == "" {
		return ""
	}
	return joinQualified(normalizeCallee(t.text(t.field(i, "object"))), name)
}

func javaVisibility(t *eventTree, i int, _ string) Visibility {
	m := t.childOfKind(i, "modifiers")
	if m < 0 && t.kind(i) == "variable_declarator" {
		m = t.childOfKind(t.parent(i), "modifiers")
	}
	if m < 0 {
		return VisibilityUnknown
	}
	for _, word := range strings.Fields(t.text(m)) {
		switch word {
		case "public":
			return VisibilityPublic
		case "private":
			return VisibilityPrivate
		case "protected":
			return VisibilityProtected
		}
	}
	return VisibilityUnknown
}
