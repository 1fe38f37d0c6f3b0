package graph

import "codeir/internal/extractor"

type RelationKind = extractor.EdgeKind

const (
	RelationImports    = extractor.EdgeImports
	RelationCalls      = extractor.EdgeCalls
	RelationReferences = extractor.EdgeReferences
	RelationDeclares   = extractor.EdgeDeclares
)

type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
)

// Entity is an extracted entity placed in the repository arena.
// Parent holds an arena index, -1 for file modules.
type Entity struct {
	ID string `json:"id"`
	extractor.Entity
}

// Edge links two arena indices.
type Edge struct {
	From       int          `json:"from"`
	To         int          `json:"to"`
	Kind       RelationKind `json:"kind"`
	Resolver   string       `json:"resolver,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
}

// Pending is an edge waiting for its target to be resolved by name.
type Pending struct {
	From   int          `json:"from"`
	Target string       `json:"target"`
	Kind   RelationKind `json:"kind"`
}

// UnresolvedRelation is a pending edge that resolution gave up on.
type UnresolvedRelation struct {
	From       int              `json:"from"`
	Target     string           `json:"target"`
	Kind       RelationKind     `json:"kind"`
	Reason     UnresolvedReason `json:"reason"`
	Candidates int              `json:"candidates,omitempty"`
}

// Match is a resolver's verdict for one pending edge.
// Candidates == 0 leaves the edge for the next stage.
type Match struct {
	Target     int
	Candidates int
}

// NoMatch passes a pending edge on to the next stage.
var NoMatch = Match{Target: -1}

// Unique returns a match for exactly one candidate.
func Unique(target int) Match {
	return Match{Target: target, Candidates: 1}
}

// Ambiguous returns a match that stops resolution for the edge.
func Ambiguous(n int) Match {
	return Match{Target: -1, Candidates: n}
}

// FromCandidates turns a candidate list into a verdict.
func FromCandidates(c []int) Match {
	switch len(c) {
	case 0:
		return NoMatch
	case 1:
		return Unique(c[0])
	default:
		return Ambiguous(len(c))
	}
}
