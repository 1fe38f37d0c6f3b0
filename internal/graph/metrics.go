package graph

func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		reason := u.Reason
		if reason == "" {
			reason = ReasonNoCandidate
		}
		counts[reason]++
	}
	return counts
}

func (g *Graph) EdgeKindCounts() map[RelationKind]int {
	counts := make(map[RelationKind]int)
	if g == nil {
		return counts
	}
	for _, e := range g.Edges {
		counts[e.Kind]++
	}
	return counts
}

// ResolvedBy counts edges per resolver stage.
func (g *Graph) ResolvedBy() map[string]int {
	counts := make(map[string]int)
	if g == nil {
		return counts
	}
	for _, e := range g.Edges {
		counts[e.Resolver]++
	}
	return counts
}
