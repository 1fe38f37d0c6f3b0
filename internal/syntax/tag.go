package syntax

import (
	"fmt"
	"sort"
)

// Tag is the language-agnostic classification of a syntax node.
type Tag uint8

const (
	TagOther Tag = iota
	TagModule
	TagFunctionDecl
	TagClassDecl
	TagVarDecl
	TagImportStmt
	TagCallExpr
	TagIdentifierRef
)

var tagNames = [...]string{
	TagOther:         "other",
	TagModule:        "module",
	TagFunctionDecl:  "function_decl",
	TagClassDecl:     "class_decl",
	TagVarDecl:       "var_decl",
	TagImportStmt:    "import_stmt",
	TagCallExpr:      "call_expr",
	TagIdentifierRef: "identifier_ref",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// ParseTag maps a tag name back to its Tag.
func ParseTag(name string) (Tag, bool) {
	for i, n := range tagNames {
		if n == name {
			return Tag(i), true
		}
	}
	return TagOther, false
}

// IsDeclaration reports whether the tag opens a declaration.
func (t Tag) IsDeclaration() bool {
	return t == TagFunctionDecl || t == TagClassDecl || t == TagVarDecl
}

// Table maps raw grammar node kinds to tags. Kinds not present map to TagOther.
type Table map[string]Tag

// Lookup returns the tag for a raw node kind.
func (t Table) Lookup(kind string) Tag {
	if tag, ok := t[kind]; ok {
		return tag
	}
	return TagOther
}

// With returns a copy of the table with overrides applied.
func (t Table) With(overrides map[string]Tag) Table {
	out := make(Table, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		if v == TagOther {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Kinds lists the raw kinds mapped to tag, sorted.
func (t Table) Kinds(tag Tag) []string {
	var kinds []string
	for k, v := range t {
		if v == tag {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return kinds
}
