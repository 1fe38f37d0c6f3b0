package graph

import "codeir/internal/extractor"

// fromExtracted moves a file-local entity into the arena, rebasing its parent.
func fromExtracted(e extractor.Entity, base int) Entity {
	if e.Parent >= 0 {
		e.Parent += base
	}
	return Entity{Entity: e}
}

// rebaseEdge moves a file-local edge into the arena.
func rebaseEdge(le extractor.LocalEdge, base int) Edge {
	return Edge{
		From:       le.From + base,
		To:         le.To + base,
		Kind:       le.Kind,
		Resolver:   "syntax",
		Confidence: extractor.CalibrateRelationConfidence(le.Kind, "syntax"),
	}
}

func rebasePending(p extractor.PendingEdge, base int) Pending {
	return Pending{From: p.From + base, Target: p.Target, Kind: p.Kind}
}
