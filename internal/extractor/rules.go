package extractor

import (
	"strings"

	"codeir/internal/lang"
	"codeir/internal/syntax"
)

// importSpec is one imported module path and the local name it binds.
type importSpec struct {
	Path    string
	Binding string
	Node    int
}

// fileInfo is what rules may know about the file being extracted.
type fileInfo struct {
	Path   string
	Module string
}

// rules holds the per-language extraction tables. Zero values fall back to
// the generic behavior in builder.
type rules struct {
	// nameFields maps a declaration kind to the field holding its name. Default "name".
	nameFields map[string]string
	// anonymous kinds never borrow a child identifier as their name.
	anonymous map[string]bool
	// declKinds refines the kind derived from the tag.
	declKinds map[string]Kind
	declKind  func(t *eventTree, i int) (Kind, bool)
	// qualifier adds a segment between the scope and the declaration name.
	qualifier func(t *eventTree, i int) string
	// scopes are kinds that qualify nested names without producing an entity.
	scopes map[string]func(t *eventTree, i int) string

	imports func(t *eventTree, i int, f fileInfo) []importSpec
	callee  func(t *eventTree, i int) string

	refKinds      map[string]bool
	qualifiedRefs map[string]bool
	refContext    func(t *eventTree, span int) bool

	visibility func(t *eventTree, i int, name string) Visibility
	modulePath func(path string) (qualified, name string)
	// docstring reads documentation stored inside the declaration body.
	docstring func(t *eventTree, i int) string
}

var languageRules = map[lang.Language]*rules{
	lang.Go:         goRules,
	lang.Python:     pythonRules,
	lang.Rust:       rustRules,
	lang.JavaScript: javascriptRules,
	lang.TypeScript: typescriptRules,
	lang.TSX:        typescriptRules,
	lang.Java:       javaRules,
}

func (r *rules) kindOf(t *eventTree, i int, tag syntax.Tag) Kind {
	if r.declKind != nil {
		if k, ok := r.declKind(t, i); ok {
			return k
		}
	}
	if k, ok := r.declKinds[t.kind(i)]; ok {
		return k
	}
	switch tag {
	case syntax.TagFunctionDecl:
		return KindFunction
	case syntax.TagClassDecl:
		return KindClass
	default:
		return KindVariable
	}
}

// nameNode finds the event holding the declaration name, or -1.
func (r *rules) nameNode(t *eventTree, i int) int {
	field := "name"
	if f, ok := r.nameFields[t.kind(i)]; ok {
		field = f
	}
	if n := t.field(i, field); n >= 0 {
		return n
	}
	if r.anonymous[t.kind(i)] {
		return -1
	}
	return t.childOfTag(i, syntax.TagIdentifierRef)
}

// docOf prefers an in-body docstring over the comments above i.
func (r *rules) docOf(t *eventTree, i int) string {
	if r.docstring != nil {
		if doc := r.docstring(t, i); doc != "" {
			return truncate(doc, maxDocLen)
		}
	}
	return docComment(t, i)
}

func (r *rules) calleeText(t *eventTree, i int) string {
	if r.callee != nil {
		return r.callee(t, i)
	}
	return normalizeCallee(t.text(t.field(i, "function")))
}

func (r *rules) visibilityOf(t *eventTree, i int, name string) Visibility {
	if r.visibility == nil || isAnonymous(name) {
		return VisibilityUnknown
	}
	return r.visibility(t, i, name)
}

const maxCalleeLen = 256

// normalizeCallee strips whitespace and unifies path separators to '.'.
func normalizeCallee(s string) string {
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, "::", ".")
	s = strings.ReplaceAll(s, "?.", ".")
	s = strings.ReplaceAll(s, "->", ".")
	s = strings.TrimSuffix(s, "!")
	return truncate(s, maxCalleeLen)
}

// lastSegment returns the part after the final '.'.
func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// firstSegment returns the part before the first '.'.
func firstSegment(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

func joinQualified(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// stripGenerics drops a trailing type argument list such as Foo<T> or Foo[T].
func stripGenerics(s string) string {
	if i := strings.IndexAny(s, "<["); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func isAnonymous(name string) bool {
	return strings.HasPrefix(name, "<anonymous@")
}

func isIdentifierText(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n(){}[];,")
}
