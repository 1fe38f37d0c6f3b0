package ir

import (
	"codeir/internal/diag"
	"codeir/internal/metadata"
)

// Version is the IR schema version.
const Version = "1.1.0"

// Document is the serialized projection of a finalized symbol graph.
type Document struct {
	Version    string            `json:"version" yaml:"version"`
	Project    *metadata.Project `json:"project,omitempty" yaml:"project,omitempty"`
	Entities   []Entity          `json:"entities" yaml:"entities"`
	Edges      []Edge            `json:"edges" yaml:"edges"`
	Unresolved []Unresolved      `json:"unresolved" yaml:"unresolved"`
	Truncated  bool              `json:"truncated" yaml:"truncated"`

	// Diagnostics raised while serializing. Not part of the document body.
	Diagnostics []diag.Diagnostic `json:"-" yaml:"-"`
}

type Entity struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       string    `json:"kind" yaml:"kind"`
	Name       string    `json:"name" yaml:"name"`
	File       string    `json:"file" yaml:"file"`
	Range      [2]uint32 `json:"range" yaml:"range,flow"`
	ParentID   string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Visibility string    `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Signature  string    `json:"signature,omitempty" yaml:"signature,omitempty"`
	Doc        string    `json:"doc,omitempty" yaml:"doc,omitempty"`
}

type Edge struct {
	FromID string `json:"from_id" yaml:"from_id"`
	ToID   string `json:"to_id" yaml:"to_id"`
	Kind   string `json:"kind" yaml:"kind"`
}

type Unresolved struct {
	FromID string `json:"from_id" yaml:"from_id"`
	Target string `json:"target" yaml:"target"`
	Kind   string `json:"kind" yaml:"kind"`
	Reason string `json:"reason" yaml:"reason"`
}

// Counts summarizes a document.
func (d *Document) Counts() (entities, edges, unresolved int) {
	if d == nil {
		return 0, 0, 0
	}
	return len(d.Entities), len(d.Edges), len(d.Unresolved)
}
