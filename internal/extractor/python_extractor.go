package extractor

import "strings"

var pythonRules = &rules{
	nameFields:    map[string]string{"assignment": "left"},
	anonymous:     map[string]bool{"lambda": true},
	imports:       pythonImports,
	qualifiedRefs: map[string]bool{"attribute": true},
	refContext:    pythonRefContext,
	visibility:    pythonVisibility,
	modulePath:    pythonModulePath,
	docstring:     pythonDocstring,
}

func pythonImports(t *eventTree, i int, f fileInfo) []importSpec {
	var out []importSpec
	switch t.kind(i) {
	case "import_statement":
		for _, c := range t.fieldAll(i, "name") {
			switch t.kind(c) {
			case "dotted_name":
				p := t.text(c)
				out = append(out, importSpec{Path: p, Binding: firstSegment(p), Node: c})
			case "aliased_import":
				p := t.text(t.field(c, "name"))
				out = append(out, importSpec{Path: p, Binding: t.text(t.field(c, "alias")), Node: c})
			}
		}

	case "import_from_statement", "future_import_statement":
		module := "__future__"
		if m := t.field(i, "module_name"); m >= 0 {
			module = pythonRelative(f.Path, f.Module, t.text(m))
		}
		if w := t.childOfKind(i, "wildcard_import"); w >= 0 {
			out = append(out, importSpec{Path: module, Binding: "*", Node: w})
		}
		for _, c := range t.fieldAll(i, "name") {
			switch t.kind(c) {
			case "dotted_name":
				n := t.text(c)
				out = append(out, importSpec{Path: joinQualified(module, n), Binding: lastSegment(n), Node: c})
			case "aliased_import":
				n := t.text(t.field(c, "name"))
				out = append(out, importSpec{Path: joinQualified(module, n), Binding: t.text(t.field(c, "alias")), Node: c})
			}
		}
	}
	return out
}

// pythonRefContext accepts annotations and superclass lists.
func pythonRefContext(t *eventTree, span int) bool {
	if t.ancestorOfKind(span, 4, "type") >= 0 {
		return true
	}
	p := t.parent(span)
	return t.kind(p) == "argument_list" && t.events[p].Field == "superclasses"
}

func pythonVisibility(_ *eventTree, _ int, name string) Visibility {
	switch {
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return VisibilityPublic
	case strings.HasPrefix(name, "_"):
		return VisibilityPrivate
	default:
		return VisibilityPublic
	}
}

// pythonDocstring returns the string literal opening a function or class body.
func pythonDocstring(t *eventTree, i int) string {
	body := t.field(i, "body")
	if body < 0 {
		return ""
	}
	stmt := firstNonComment(t, t.children[body])
	if stmt < 0 || t.kind(stmt) != "expression_statement" || len(t.children[stmt]) != 1 {
		return ""
	}
	lit := t.children[stmt][0]
	if t.kind(lit) != "string" {
		return ""
	}
	text := strings.TrimLeft(t.text(lit), "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(text) >= 2*len(q) && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			text = text[len(q) : len(text)-len(q)]
			break
		}
	}
	lines := strings.Split(text, "\n")
	for k := range lines {
		lines[k] = strings.TrimSpace(lines[k])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
