package extractor

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

var goRules = &rules{
	anonymous: map[string]bool{"func_literal": true},
	declKind: func(t *eventTree, i int) (Kind, bool) {
		switch t.kind(i) {
		case "type_spec", "type_alias":
			if t.kind(t.field(i, "type")) == "struct_type" {
				return KindClass, true
			}
			return KindType, true
		}
		return "", false
	},
	qualifier:     goReceiver,
	imports:       goImports,
	refKinds:      map[string]bool{"type_identifier": true},
	qualifiedRefs: map[string]bool{"qualified_type": true},
	visibility:    goVisibility,
	modulePath:    goModulePath,
}

// goReceiver qualifies methods with their receiver type: (s *Server) -> Server.
func goReceiver(t *eventTree, i int) string {
	if t.kind(i) != "method_declaration" {
		return ""
	}
	recv := t.field(i, "receiver")
	if recv < 0 {
		return ""
	}
	param := t.childOfKind(recv, "parameter_declaration")
	typ := strings.TrimLeft(t.text(t.field(param, "type")), "*")
	return stripGenerics(typ)
}

func goImports(t *eventTree, i int, _ fileInfo) []importSpec {
	var specs []int
	for _, c := range t.children[i] {
		switch t.kind(c) {
		case "import_spec":
			specs = append(specs, c)
		case "import_spec_list":
			for _, cc := range t.children[c] {
				if t.kind(cc) == "import_spec" {
					specs = append(specs, cc)
				}
			}
		}
	}

	var out []importSpec
	for _, s := range specs {
		p := unquote(t.text(t.field(s, "path")))
		if p == "" {
			continue
		}
		binding := path.Base(p)
		if n := t.field(s, "name"); n >= 0 {
			binding = t.text(n)
		}
		out = append(out, importSpec{Path: strings.ReplaceAll(p, "/", "."), Binding: binding, Node: s})
	}
	return out
}

func goVisibility(_ *eventTree, _ int, name string) Visibility {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return VisibilityPublic
	}
	return VisibilityPrivate
}
