package extractor

import "strings"

var rustRules = &rules{
	anonymous: map[string]bool{"closure_expression": true},
	declKinds: map[string]Kind{
		"trait_item": KindType,
		"type_item":  KindType,
	},
	scopes: map[string]func(t *eventTree, i int) string{
		"impl_item": func(t *eventTree, i int) string {
			return stripGenerics(lastSegment(rustPath(t.text(t.field(i, "type")))))
		},
	},
	imports:       rustImports,
	callee:        rustCallee,
	refKinds:      map[string]bool{"type_identifier": true},
	qualifiedRefs: map[string]bool{"scoped_type_identifier": true},
	visibility:    rustVisibility,
	modulePath:    rustModulePath,
}

func rustPath(s string) string {
	return strings.TrimPrefix(normalizeCallee(s), "crate.")
}

func rustCallee(t *eventTree, i int) string {
	field := "function"
	if t.kind(i) == "macro_invocation" {
		field = "macro"
	}
	s := normalizeCallee(t.text(t.field(i, field)))
	if j := strings.IndexByte(s, '<'); j > 0 {
		s = strings.TrimSuffix(s[:j], ".")
	}
	return s
}

func rustImports(t *eventTree, i int, _ fileInfo) []importSpec {
	if t.kind(i) == "extern_crate_declaration" {
		name := t.text(t.field(i, "name"))
		if name == "" {
			return nil
		}
		binding := name
		if a := t.field(i, "alias"); a >= 0 {
			binding = t.text(a)
		}
		return []importSpec{{Path: name, Binding: binding, Node: i}}
	}

	var out []importSpec
	rustUseTree(t, t.field(i, "argument"), "", &out)
	return out
}

// rustUseTree flattens a use tree such as a::{b, c as d, e::*}.
func rustUseTree(t *eventTree, n int, prefix string, out *[]importSpec) {
	if n < 0 {
		return
	}
	switch t.kind(n) {
	case "identifier", "scoped_identifier", "crate", "self", "super", "metavariable":
		p := joinQualified(prefix, rustPath(t.text(n)))
		if strings.HasSuffix(p, ".self") || p == "self" {
			p = strings.TrimSuffix(strings.TrimSuffix(p, "self"), ".")
		}
		if p == "" {
			return
		}
		*out = append(*out, importSpec{Path: p, Binding: lastSegment(p), Node: n})
	case "use_as_clause":
		p := joinQualified(prefix, rustPath(t.text(t.field(n, "path"))))
		*out = append(*out, importSpec{Path: p, Binding: t.text(t.field(n, "alias")), Node: n})
	case "scoped_use_list":
		next := prefix
		if p := t.field(n, "path"); p >= 0 {
			next = joinQualified(prefix, rustPath(t.text(p)))
		}
		rustUseTree(t, t.field(n, "list"), next, out)
	case "use_list":
		for _, c := range t.children[n] {
			rustUseTree(t, c, prefix, out)
		}
	case "use_wildcard":
		p := prefix
		if len(t.children[n]) > 0 {
			p = joinQualified(prefix, rustPath(t.text(t.children[n][0])))
		}
		*out = append(*out, importSpec{Path: p, Binding: "*", Node: n})
	}
}

func rustVisibility(t *eventTree, i int, _ string) Visibility {
	if m := t.childOfKind(i, "visibility_modifier"); m >= 0 && strings.HasPrefix(t.text(m), "pub") {
		return VisibilityPublic
	}
	return VisibilityPrivate
}
