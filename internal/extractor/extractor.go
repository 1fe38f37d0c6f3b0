package extractor

import (
	"context"
	"fmt"
	"strings"

	"codeir/internal/diag"
	"codeir/internal/grammar"
	"codeir/internal/source"
	"codeir/internal/syntax"
)

// Extractor turns source files into per-file entity lists.
// It is safe for concurrent use; all mutable state lives in the registry pool.
type Extractor struct {
	registry *grammar.Registry
}

// NewExtractor creates an extractor backed by registry.
func NewExtractor(registry *grammar.Registry) (*Extractor, error) {
	if registry == nil {
		return nil, diag.Configf("extractor requires a grammar registry")
	}
	return &Extractor{registry: registry}, nil
}

// ExtractFile parses one file and extracts its entities and pending edges.
// It fails with grammar.ErrUnsupportedLanguage or syntax.ErrMalformedSyntaxTree
// for files that must be skipped; everything finer is reported in the result.
func (e *Extractor) ExtractFile(ctx context.Context, f source.File) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := languageRules[f.Language]
	if !ok || !e.registry.Supports(f.Language) {
		return nil, fmt.Errorf("%w: %s", grammar.ErrUnsupportedLanguage, f.Language)
	}
	table, err := e.registry.Table(f.Language)
	if err != nil {
		return nil, err
	}

	tree, err := e.registry.Parse(ctx, f.Language, f.Content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	stream, err := syntax.Normalize(tree, f.Content, table)
	if err != nil {
		return nil, err
	}
	b := newBuilder(f, r, collect(stream, f.Content))
	b.build()
	return b.res, nil
}

type scope struct {
	entity     int
	qual       string
	inFunction bool
}

type refKey struct {
	scope int
	name  string
}

type builder struct {
	file   source.File
	r      *rules
	t      *eventTree
	info   fileInfo
	res    *FileResult
	scopes []scope
	noRef  []bool
	refs   map[refKey]bool
}

func newBuilder(f source.File, r *rules, t *eventTree) *builder {
	return &builder{
		file:   f,
		r:      r,
		t:      t,
		res:    &FileResult{Path: f.Path, Hash: f.Hash, Language: f.Language},
		scopes: make([]scope, len(t.events)),
		noRef:  make([]bool, len(t.events)),
		refs:   make(map[refKey]bool),
	}
}

func (b *builder) build() {
	qualified, name := b.r.modulePath(b.file.Path)
	b.info = fileInfo{Path: b.file.Path, Module: qualified}
	b.add(Entity{
		Kind:          KindModule,
		Name:          name,
		QualifiedName: qualified,
		End:           uint32(len(b.file.Content)),
		Parent:        -1,
	})

	root := scope{entity: 0}
	for i, ev := range b.t.events {
		sc := root
		if ev.Parent >= 0 {
			sc = b.scopes[ev.Parent]
		}
		b.scopes[i] = sc
		if i == 0 || ev.Error {
			continue
		}

		switch {
		case ev.Tag == syntax.TagModule:
			b.nestedModule(i, sc)
		case ev.Tag.IsDeclaration():
			b.declaration(i, sc)
		case ev.Tag == syntax.TagImportStmt:
			b.importStmt(i, sc)
		case ev.Tag == syntax.TagCallExpr:
			b.call(i, sc)
		case ev.Tag == syntax.TagIdentifierRef:
			b.reference(i)
		default:
			if fn := b.r.scopes[ev.Kind]; fn != nil {
				if q := fn(b.t, i); q != "" {
					b.scopes[i] = scope{entity: sc.entity, qual: joinQualified(sc.qual, q), inFunction: sc.inFunction}
				}
			}
		}
	}

	for i := range b.res.Entities {
		b.res.Entities[i].Confidence = CalibrateEntityConfidence(b.res.Entities[i])
	}
}

func (b *builder) add(e Entity) int {
	e.Path = b.file.Path
	e.Language = b.file.Language
	b.res.Entities = append(b.res.Entities, e)
	return len(b.res.Entities) - 1
}

func (b *builder) pending(from int, target string, kind EdgeKind) {
	b.res.Pending = append(b.res.Pending, PendingEdge{From: from, Target: target, Kind: kind})
}

func (b *builder) declares(from, to int) {
	b.res.Edges = append(b.res.Edges, LocalEdge{From: from, To: to, Kind: EdgeDeclares})
}

func (b *builder) warn(offset uint32, format string, args ...any) {
	b.res.Diagnostics = append(b.res.Diagnostics, diag.New(diag.KindExtractionWarning, b.file.Path, offset, format, args...))
}

func (b *builder) skipRefs(i int) {
	if i < 0 {
		return
	}
	for j := i; j <= b.t.last[i]; j++ {
		b.noRef[j] = true
	}
}

func (b *builder) nestedModule(i int, sc scope) {
	ev := b.t.events[i]
	n := b.t.field(i, "name")
	if n < 0 || b.t.events[n].Error {
		b.warn(ev.Start, "%s without a name", ev.Kind)
		return
	}
	b.skipRefs(n)
	name := b.t.text(n)
	local := joinQualified(sc.qual, name)
	idx := b.add(Entity{
		Kind:          KindModule,
		Name:          name,
		QualifiedName: joinQualified(b.info.Module, local),
		Start:         ev.Start,
		End:           ev.End,
		Parent:        sc.entity,
		Visibility:    b.r.visibilityOf(b.t, i, name),
	})
	b.declares(sc.entity, idx)
	b.scopes[i] = scope{entity: idx, qual: local, inFunction: sc.inFunction}
}

func (b *builder) declaration(i int, sc scope) {
	ev := b.t.events[i]
	kind := b.r.kindOf(b.t, i, ev.Tag)
	if kind == KindVariable && sc.inFunction {
		return
	}

	var name string
	n := b.r.nameNode(b.t, i)
	switch {
	case n >= 0 && b.t.events[n].Error:
		b.warn(ev.Start, "%s has a malformed name", ev.Kind)
		return
	case n >= 0 && b.t.events[n].Tag == syntax.TagIdentifierRef:
		name = b.t.text(n)
	case n >= 0 && kind != KindVariable && isIdentifierText(strings.TrimSpace(b.t.text(n))):
		name = strings.TrimSpace(b.t.text(n))
	case kind == KindVariable:
		return
	default:
		name = fmt.Sprintf("<anonymous@%d>", ev.Start)
	}
	b.skipRefs(n)

	var qualifier string
	if b.r.qualifier != nil {
		qualifier = b.r.qualifier(b.t, i)
	}
	qual := joinQualified(sc.qual, qualifier, name)
	e := Entity{
		Kind:          kind,
		Name:          name,
		QualifiedName: qual,
		Start:         ev.Start,
		End:           ev.End,
		Parent:        sc.entity,
		Visibility:    b.r.visibilityOf(b.t, i, name),
		Doc:           b.r.docOf(b.t, i),
	}
	if kind == KindFunction || kind == KindClass {
		e.Signature = signature(b.t, i)
	}
	idx := b.add(e)
	b.declares(sc.entity, idx)
	b.scopes[i] = scope{entity: idx, qual: qual, inFunction: sc.inFunction || kind == KindFunction}
}

func (b *builder) importStmt(i int, sc scope) {
	ev := b.t.events[i]
	b.skipRefs(i)
	var specs []importSpec
	if b.r.imports != nil {
		specs = b.r.imports(b.t, i, b.info)
	}

	added := 0
	for _, s := range specs {
		if s.Path == "" || s.Binding == "" {
			continue
		}
		node := b.t.events[s.Node]
		idx := b.add(Entity{
			Kind:          KindImport,
			Name:          s.Binding,
			QualifiedName: s.Path,
			Target:        s.Path,
			Start:         node.Start,
			End:           node.End,
			Parent:        sc.entity,
		})
		b.pending(idx, s.Path, EdgeImports)
		added++
	}
	if added == 0 {
		b.warn(ev.Start, "%s without a module path", ev.Kind)
	}
}

var calleeFields = []string{"function", "constructor", "macro", "object", "name", "type"}

func (b *builder) call(i int, sc scope) {
	ev := b.t.events[i]
	for _, f := range calleeFields {
		b.skipRefs(b.t.field(i, f))
	}
	callee := b.r.calleeText(b.t, i)
	if callee == "" {
		b.warn(ev.Start, "%s without a callee", ev.Kind)
		return
	}
	idx := b.add(Entity{
		Kind:          KindCall,
		Name:          lastSegment(callee),
		QualifiedName: callee,
		Target:        callee,
		Start:         ev.Start,
		End:           ev.End,
		Parent:        sc.entity,
	})
	b.pending(idx, callee, EdgeCalls)
}

func (b *builder) reference(i int) {
	if b.noRef[i] {
		return
	}
	span := i
	for p := b.t.parent(span); p >= 0 && b.r.qualifiedRefs[b.t.kind(p)]; p = b.t.parent(p) {
		span = p
	}
	if !b.isReference(span) {
		return
	}
	b.skipRefs(span)

	name := normalizeCallee(b.t.text(span))
	if name == "" || b.t.hasError(span) {
		return
	}
	sc := b.scopes[span]
	key := refKey{scope: sc.entity, name: name}
	if b.refs[key] {
		return
	}
	b.refs[key] = true

	ev := b.t.events[span]
	idx := b.add(Entity{
		Kind:          KindReference,
		Name:          lastSegment(name),
		QualifiedName: name,
		Target:        name,
		Start:         ev.Start,
		End:           ev.End,
		Parent:        sc.entity,
	})
	b.pending(idx, name, EdgeReferences)
}

func (b *builder) isReference(span int) bool {
	if b.r.refContext != nil && b.r.refContext(b.t, span) {
		return true
	}
	for j := span; j <= b.t.last[span]; j++ {
		if b.t.events[j].Tag == syntax.TagIdentifierRef && b.r.refKinds[b.t.events[j].Kind] {
			return true
		}
	}
	return false
}
