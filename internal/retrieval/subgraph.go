package retrieval

import (
	"sort"

	"codeir/internal/ir"
)

// Direction selects which edges a slice follows.
type Direction int

const (
	// Both follows edges in either direction.
	Both Direction = iota
	// Dependents follows edges backwards only: who imports, calls or
	// references the seeds.
	Dependents
)

const declares = "declares"

// Config controls how slices are extracted.
type Config struct {
	MaxHops      int
	Direction    Direction
	AllowedKinds map[string]bool // nil allows every edge kind
}

func DefaultConfig() Config {
	return Config{MaxHops: 2}
}

// Seed selects entities in one file. With no offsets every entity of the
// file is a seed; otherwise only entities whose range covers an offset.
type Seed struct {
	Path    string
	Offsets []uint32
}

// Slice is a sub-document around a set of seeds.
type Slice struct {
	SeedIDs  []string
	Depth    map[string]int // hop distance from the nearest seed
	Document *ir.Document
}

// Extract returns the part of doc within cfg.MaxHops of the seeds.
//
// Ancestors of every reached entity are included so parent ids stay valid,
// but they are not expanded further. Entities, edges and unresolved
// relations keep their document order.
func Extract(doc *ir.Document, seeds []Seed, cfg Config) *Slice {
	if doc == nil {
		return &Slice{Depth: map[string]int{}, Document: &ir.Document{Version: ir.Version}}
	}
	if cfg.MaxHops < 0 {
		cfg.MaxHops = 0
	}

	seedSet := findSeedIDs(doc, seeds)
	seedIDs := sortedKeys(seedSet)

	adj := make(map[string][]string)
	for _, e := range doc.Edges {
		if !edgeAllowed(e, cfg) {
			continue
		}
		if cfg.Direction == Both {
			adj[e.FromID] = append(adj[e.FromID], e.ToID)
		} else if e.Kind == declares {
			continue
		}
		adj[e.ToID] = append(adj[e.ToID], e.FromID)
	}

	depth := make(map[string]int, len(seedIDs))
	queue := make([]queueItem, 0, len(seedIDs))
	for _, id := range seedIDs {
		depth[id] = 0
		queue = append(queue, queueItem{id: id, depth: 0})
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= cfg.MaxHops {
			continue
		}
		for _, next := range adj[cur.id] {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = cur.depth + 1
			queue = append(queue, queueItem{id: next, depth: cur.depth + 1})
		}
	}

	return &Slice{
		SeedIDs:  seedIDs,
		Depth:    depth,
		Document: project(doc, depth, cfg),
	}
}

// Affected splits the reached entities into the seeds themselves and the
// entities pulled in through edges, both sorted by id.
func (s *Slice) Affected() (direct, indirect []string) {
	for _, id := range sortedKeys(s.Depth) {
		if s.Depth[id] == 0 {
			direct = append(direct, id)
		} else {
			indirect = append(indirect, id)
		}
	}
	return direct, indirect
}

type queueItem struct {
	id    string
	depth int
}

func project(doc *ir.Document, reached map[string]int, cfg Config) *ir.Document {
	parents := make(map[string]string, len(doc.Entities))
	for _, e := range doc.Entities {
		parents[e.ID] = e.ParentID
	}
	keep := make(map[string]bool, len(reached))
	for id := range reached {
		for cur := id; cur != "" && !keep[cur]; cur = parents[cur] {
			keep[cur] = true
		}
	}

	out := &ir.Document{
		Version:    doc.Version,
		Project:    doc.Project,
		Entities:   []ir.Entity{},
		Edges:      []ir.Edge{},
		Unresolved: []ir.Unresolved{},
		Truncated:  doc.Truncated,
	}
	for _, e := range doc.Entities {
		if keep[e.ID] {
			out.Entities = append(out.Entities, e)
		}
	}
	for _, e := range doc.Edges {
		if keep[e.FromID] && keep[e.ToID] && edgeAllowed(e, cfg) {
			out.Edges = append(out.Edges, e)
		}
	}
	for _, u := range doc.Unresolved {
		if keep[u.FromID] {
			out.Unresolved = append(out.Unresolved, u)
		}
	}
	return out
}

func findSeedIDs(doc *ir.Document, seeds []Seed) map[string]bool {
	out := make(map[string]bool)
	for _, s := range seeds {
		for _, e := range doc.Entities {
			if e.File != s.Path {
				continue
			}
			if !rangeCovers(e.Range, s.Offsets) {
				continue
			}
			out[e.ID] = true
		}
	}
	return out
}

func rangeCovers(r [2]uint32, offsets []uint32) bool {
	if len(offsets) == 0 {
		return true
	}
	for _, off := range offsets {
		if off >= r[0] && off < r[1] {
			return true
		}
	}
	return false
}

func edgeAllowed(e ir.Edge, cfg Config) bool {
	if len(cfg.AllowedKinds) == 0 {
		return true
	}
	return cfg.AllowedKinds[e.Kind]
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
