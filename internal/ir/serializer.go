package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"codeir/internal/diag"
	"codeir/internal/extractor"
	"codeir/internal/graph"
	"codeir/internal/metadata"
)

// ErrNotFinalized is returned when serializing a graph that still has pending edges.
var ErrNotFinalized = errors.New("graph is not finalized")

// Budget bounds the serialized document. Zero fields are unlimited.
type Budget struct {
	MaxEntities int `json:"max_entities" yaml:"max_entities"`
	MaxBytes    int `json:"max_bytes" yaml:"max_bytes"`
	MaxTokens   int `json:"max_tokens" yaml:"max_tokens"`
}

// MinBytes is the smallest byte budget accepted; an empty document must fit.
const MinBytes = 256

// Validate rejects negative limits and byte or token limits too small to hold
// an empty document.
func (b Budget) Validate() error {
	if b.MaxEntities < 0 || b.MaxBytes < 0 || b.MaxTokens < 0 {
		return diag.Configf("budget limits must not be negative: %+v", b)
	}
	if b.MaxBytes > 0 && b.MaxBytes < MinBytes {
		return diag.Configf("budget.max_bytes must be 0 or at least %d, got %d", MinBytes, b.MaxBytes)
	}
	if b.MaxTokens > 0 && b.MaxTokens < EstimateTokens(MinBytes) {
		return diag.Configf("budget.max_tokens must be 0 or at least %d, got %d", EstimateTokens(MinBytes), b.MaxTokens)
	}
	return nil
}

// Unlimited reports whether no limit is set.
func (b Budget) Unlimited() bool {
	return b.MaxEntities == 0 && b.MaxBytes == 0 && b.MaxTokens == 0
}

func (b Budget) fits(entities int, size int) bool {
	if b.MaxEntities > 0 && entities > b.MaxEntities {
		return false
	}
	if b.MaxBytes > 0 && size > b.MaxBytes {
		return false
	}
	if b.MaxTokens > 0 && EstimateTokens(size) > b.MaxTokens {
		return false
	}
	return true
}

// EstimateTokens approximates the token count of n bytes of JSON.
func EstimateTokens(n int) int {
	return (n + 3) / 4
}

type Option func(*serializer)

// WithProject attaches manifest metadata to the document.
func WithProject(p *metadata.Project) Option {
	return func(s *serializer) { s.project = p }
}

// WithFormat measures the byte and token budget against the given output
// format ("json" or "yaml") instead of canonical JSON.
func WithFormat(format string) Option {
	return func(s *serializer) { s.format = format }
}

type serializer struct {
	g       *graph.Graph
	budget  Budget
	project *metadata.Project
	format  string

	order    []int // arena indices in document order
	removal  []int // arena indices in removal order
	edges    []graph.Edge
	unres    []graph.UnresolvedRelation
	position []int // arena index -> position in order
}

// Serialize renders a finalized graph into a document and its canonical JSON.
//
// When the full document exceeds the budget, entities are removed tier by
// tier (references, calls, imports, nested modules, file modules,
// declarations) until it fits. The same graph and budget always produce the
// same bytes.
func Serialize(g *graph.Graph, budget Budget, opts ...Option) (*Document, []byte, error) {
	if g == nil || !g.Finalized() {
		return nil, nil, ErrNotFinalized
	}
	if err := budget.Validate(); err != nil {
		return nil, nil, err
	}
	s := &serializer{g: g, budget: budget}
	for _, opt := range opts {
		opt(s)
	}
	s.prepare()

	doc, data, size, err := s.render(0, true)
	if err != nil {
		return nil, nil, err
	}
	if budget.fits(len(doc.Entities), size) {
		return doc, data, nil
	}
	total, fullSize := len(doc.Entities), size

	// Smallest removal prefix that fits; fit is monotone in the prefix length.
	n := len(s.removal)
	k := sort.Search(n+1, func(k int) bool {
		if k == 0 {
			return false
		}
		d, _, size, err := s.render(k, true)
		return err == nil && budget.fits(len(d.Entities), size)
	})

	withProject := true
	if k > n {
		k, withProject = n, false
	}
	doc, data, size, err = s.render(k, withProject)
	if err != nil {
		return nil, nil, err
	}

	msg := "document of %d entities (%d bytes) exceeds budget; removed %d entities"
	args := []any{total, fullSize, k}
	if !withProject && s.project != nil {
		msg += " and project metadata"
	}
	if !budget.fits(len(doc.Entities), size) {
		msg += "; budget is below the size of an empty document"
	}
	doc.Diagnostics = append(doc.Diagnostics, diag.New(diag.KindBudgetExceeded, "", 0, msg, args...))
	return doc, data, nil
}

func (s *serializer) prepare() {
	g := s.g
	s.order = make([]int, len(g.Entities))
	for i := range s.order {
		s.order[i] = i
	}
	sort.SliceStable(s.order, func(a, b int) bool {
		ea, eb := g.Entities[s.order[a]], g.Entities[s.order[b]]
		switch {
		case ea.Path != eb.Path:
			return ea.Path < eb.Path
		case ea.Start != eb.Start:
			return ea.Start < eb.Start
		case ea.End != eb.End:
			return ea.End < eb.End
		case ea.Kind != eb.Kind:
			return ea.Kind < eb.Kind
		default:
			return ea.ID < eb.ID
		}
	})
	s.position = make([]int, len(g.Entities))
	for pos, i := range s.order {
		s.position[i] = pos
	}

	s.removal = append([]int(nil), s.order...)
	sort.SliceStable(s.removal, func(a, b int) bool {
		ia, ib := s.removal[a], s.removal[b]
		ta, tb := tier(g.Entities[ia]), tier(g.Entities[ib])
		if ta != tb {
			return ta < tb
		}
		ca, cb := g.Entities[ia].Confidence, g.Entities[ib].Confidence
		if ca != cb {
			return ca < cb
		}
		return s.position[ia] > s.position[ib]
	})

	s.edges = append([]graph.Edge(nil), g.Edges...)
	sort.SliceStable(s.edges, func(a, b int) bool {
		ea, eb := s.edges[a], s.edges[b]
		fa, fb := g.Entities[ea.From].ID, g.Entities[eb.From].ID
		if fa != fb {
			return fa < fb
		}
		ta, tb := g.Entities[ea.To].ID, g.Entities[eb.To].ID
		if ta != tb {
			return ta < tb
		}
		return ea.Kind < eb.Kind
	})

	s.unres = append([]graph.UnresolvedRelation(nil), g.Unresolved...)
	sort.SliceStable(s.unres, func(a, b int) bool {
		ua, ub := s.unres[a], s.unres[b]
		fa, fb := g.Entities[ua.From].ID, g.Entities[ub.From].ID
		switch {
		case fa != fb:
			return fa < fb
		case ua.Kind != ub.Kind:
			return ua.Kind < ub.Kind
		case ua.Target != ub.Target:
			return ua.Target < ub.Target
		default:
			return ua.Reason < ub.Reason
		}
	})
}

// tier ranks entities by how early they are removed under budget pressure.
func tier(e graph.Entity) int {
	switch e.Kind {
	case extractor.KindReference:
		return 0
	case extractor.KindCall:
		return 1
	case extractor.KindImport:
		return 2
	case extractor.KindModule:
		if e.Parent >= 0 {
			return 3
		}
		return 4
	default:
		return 5
	}
}

// render builds the document with the first k removal candidates dropped.
// It returns the canonical JSON and the size the budget is checked against.
func (s *serializer) render(k int, withProject bool) (*Document, []byte, int, error) {
	g := s.g
	removed := make([]bool, len(g.Entities))
	for _, i := range s.removal[:k] {
		removed[i] = true
	}

	doc := &Document{
		Version:    Version,
		Entities:   make([]Entity, 0, len(s.order)-k),
		Edges:      []Edge{},
		Unresolved: []Unresolved{},
		Truncated:  k > 0 || (!withProject && s.project != nil),
	}
	if withProject {
		doc.Project = s.project
	}

	for _, i := range s.order {
		if removed[i] {
			continue
		}
		e := g.Entities[i]
		parent := e.Parent
		for parent >= 0 && removed[parent] {
			parent = g.Entities[parent].Parent
		}
		out := Entity{
			ID:         e.ID,
			Kind:       string(e.Kind),
			Name:       e.Name,
			File:       e.Path,
			Range:      [2]uint32{e.Start, e.End},
			Visibility: string(e.Visibility),
			Signature:  e.Signature,
			Doc:        e.Doc,
		}
		if parent >= 0 {
			out.ParentID = g.Entities[parent].ID
		}
		doc.Entities = append(doc.Entities, out)
	}
	for _, e := range s.edges {
		if removed[e.From] || removed[e.To] {
			continue
		}
		doc.Edges = append(doc.Edges, Edge{
			FromID: g.Entities[e.From].ID,
			ToID:   g.Entities[e.To].ID,
			Kind:   string(e.Kind),
		})
	}
	for _, u := range s.unres {
		if removed[u.From] {
			continue
		}
		doc.Unresolved = append(doc.Unresolved, Unresolved{
			FromID: g.Entities[u.From].ID,
			Target: u.Target,
			Kind:   string(u.Kind),
			Reason: string(u.Reason),
		})
	}

	data, err := EncodeJSON(doc)
	if err != nil {
		return nil, nil, 0, err
	}
	if s.format != "yaml" {
		return doc, data, len(data), nil
	}
	alt, err := EncodeYAML(doc)
	if err != nil {
		return nil, nil, 0, err
	}
	return doc, data, len(alt), nil
}

// EncodeJSON renders the canonical compact JSON form of a document.
func EncodeJSON(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode IR document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeJSON parses a JSON document.
func DecodeJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode IR document: %w", err)
	}
	return &doc, nil
}
