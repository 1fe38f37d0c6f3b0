package grammar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"codeir/internal/lang"
	"codeir/internal/syntax"
)

// ErrUnsupportedLanguage is returned for languages without a registered grammar.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Capability describes what the registry can do for one language.
type Capability struct {
	Language lang.Language
	Kinds    map[syntax.Tag][]string
}

type entry struct {
	language *sitter.Language
	table    syntax.Table

	mu   sync.Mutex
	free []*sitter.Parser
	all  []*sitter.Parser
}

// Registry maps languages to grammars and pools parsers per language.
// It is safe for concurrent use.
type Registry struct {
	entries map[lang.Language]*entry
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	overrides map[lang.Language]map[string]syntax.Tag
	disabled  map[lang.Language]bool
}

// WithTagOverrides remaps raw node kinds for one language.
func WithTagOverrides(l lang.Language, overrides map[string]syntax.Tag) Option {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = make(map[lang.Language]map[string]syntax.Tag)
		}
		o.overrides[l] = overrides
	}
}

// WithDisabled removes a language from the registry.
func WithDisabled(l lang.Language) Option {
	return func(o *options) {
		if o.disabled == nil {
			o.disabled = make(map[lang.Language]bool)
		}
		o.disabled[l] = true
	}
}

func builtin() map[lang.Language]*sitter.Language {
	return map[lang.Language]*sitter.Language{
		lang.Go:         golang.GetLanguage(),
		lang.Python:     python.GetLanguage(),
		lang.Rust:       rust.GetLanguage(),
		lang.JavaScript: javascript.GetLanguage(),
		lang.TypeScript: typescript.GetLanguage(),
		lang.TSX:        tsx.GetLanguage(),
		lang.Java:       java.GetLanguage(),
	}
}

// NewRegistry registers every built-in grammar not disabled by opts.
func NewRegistry(opts ...Option) (*Registry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{entries: make(map[lang.Language]*entry)}
	for l, sl := range builtin() {
		if o.disabled[l] {
			continue
		}
		table, ok := syntax.TableFor(l)
		if !ok {
			return nil, fmt.Errorf("no tag table for %s", l)
		}
		if ov := o.overrides[l]; len(ov) > 0 {
			table = table.With(ov)
		}
		r.entries[l] = &entry{language: sl, table: table}
	}
	for l := range o.overrides {
		if _, ok := r.entries[l]; !ok && !o.disabled[l] {
			return nil, fmt.Errorf("%w: override for %s", ErrUnsupportedLanguage, l)
		}
	}
	log.Debug().Int("languages", len(r.entries)).Int("disabled", len(o.disabled)).Msg("grammar: registry ready")
	return r, nil
}

// Supports reports whether l has a grammar.
func (r *Registry) Supports(l lang.Language) bool {
	_, ok := r.entries[l]
	return ok
}

// Languages lists registered languages in sorted order.
func (r *Registry) Languages() []lang.Language {
	out := make([]lang.Language, 0, len(r.entries))
	for l := range r.entries {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table returns the tag table in effect for l.
func (r *Registry) Table(l lang.Language) (syntax.Table, error) {
	e, err := r.lookup(l)
	if err != nil {
		return nil, err
	}
	return e.table, nil
}

// Capabilities lists the node kinds mapped to each tag for l.
func (r *Registry) Capabilities(l lang.Language) (Capability, error) {
	e, err := r.lookup(l)
	if err != nil {
		return Capability{}, err
	}
	c := Capability{Language: l, Kinds: make(map[syntax.Tag][]string)}
	for tag := syntax.TagModule; tag <= syntax.TagIdentifierRef; tag++ {
		if kinds := e.table.Kinds(tag); len(kinds) > 0 {
			c.Kinds[tag] = kinds
		}
	}
	return c, nil
}

// Parse parses src with a pooled parser for l. The returned tree is owned by
// the caller and must be closed.
func (r *Registry) Parse(ctx context.Context, l lang.Language, src []byte) (*sitter.Tree, error) {
	e, err := r.lookup(l)
	if err != nil {
		return nil, err
	}

	p := e.checkout()
	defer e.release(p)

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("parse %s: %w", l, err)
	}
	return tree, nil
}

// PoolSize returns the number of parsers created for l.
func (r *Registry) PoolSize(l lang.Language) int {
	e, ok := r.entries[l]
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.all)
}

// Close releases every pooled parser.
func (r *Registry) Close() {
	for _, e := range r.entries {
		e.mu.Lock()
		for _, p := range e.all {
			p.Close()
		}
		e.all = nil
		e.free = nil
		e.mu.Unlock()
	}
}

func (r *Registry) lookup(l lang.Language) (*entry, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s (no registry)", ErrUnsupportedLanguage, l)
	}
	e, ok := r.entries[l]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, l)
	}
	return e, nil
}

func (e *entry) checkout() *sitter.Parser {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.free); n > 0 {
		p := e.free[n-1]
		e.free = e.free[:n-1]
		return p
	}
	p := sitter.NewParser()
	p.SetLanguage(e.language)
	e.all = append(e.all, p)
	return p
}

func (e *entry) release(p *sitter.Parser) {
	p.Reset()
	e.mu.Lock()
	e.free = append(e.free, p)
	e.mu.Unlock()
}
