package extractor

import (
	"codeir/internal/diag"
	"codeir/internal/lang"
)

// Kind is the entity kind as it appears in the IR.
type Kind string

const (
	KindModule    Kind = "module"
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindVariable  Kind = "variable"
	KindType      Kind = "type"
	KindImport    Kind = "import"
	KindCall      Kind = "call"
	KindReference Kind = "reference"
)

// IsDeclaration reports whether k is one of the declaration kinds.
func (k Kind) IsDeclaration() bool {
	switch k {
	case KindFunction, KindClass, KindVariable, KindType:
		return true
	}
	return false
}

// Visibility is only set when the source states it syntactically.
type Visibility string

const (
	VisibilityUnknown   Visibility = ""
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

// EdgeKind classifies a relationship between two entities.
type EdgeKind string

const (
	EdgeImports    EdgeKind = "imports"
	EdgeCalls      EdgeKind = "calls"
	EdgeReferences EdgeKind = "references"
	EdgeDeclares   EdgeKind = "declares"
)

// Entity is a semantic unit extracted from one file.
type Entity struct {
	Kind          Kind          `json:"kind"`
	Name          string        `json:"name"`           // Simple name (binding name for imports)
	QualifiedName string        `json:"qualified_name"` // File-local dotted name, module path for modules and imports
	Path          string        `json:"path"`
	Language      lang.Language `json:"language"`
	Start         uint32        `json:"start"`
	End           uint32        `json:"end"`
	Parent        int           `json:"parent"` // Index of the enclosing entity, -1 for the file module
	Visibility    Visibility    `json:"visibility,omitempty"`
	Confidence    float64       `json:"confidence"`
	Target        string        `json:"target,omitempty"`    // Import path, callee expression or referenced name
	Signature     string        `json:"signature,omitempty"` // Header up to the body, functions and classes only
	Doc           string        `json:"doc,omitempty"`
}

// LocalEdge links two entities of the same file by index.
type LocalEdge struct {
	From int
	To   int
	Kind EdgeKind
}

// PendingEdge is an edge whose target is only known by name.
type PendingEdge struct {
	From   int
	Target string
	Kind   EdgeKind
}

// FileResult is everything extracted from one file.
type FileResult struct {
	Path        string
	Hash        string
	Language    lang.Language
	Entities    []Entity
	Edges       []LocalEdge
	Pending     []PendingEdge
	Diagnostics []diag.Diagnostic
}

// Module returns the file module entity, which is always first.
func (r *FileResult) Module() *Entity {
	if r == nil || len(r.Entities) == 0 {
		return nil
	}
	return &r.Entities[0]
}

// Declarations returns the declaration entities in extraction order.
func (r *FileResult) Declarations() []Entity {
	var out []Entity
	for _, e := range r.Entities {
		if e.Kind.IsDeclaration() {
			out = append(out, e)
		}
	}
	return out
}
