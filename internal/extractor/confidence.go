package extractor

import "strings"

// CalibrateEntityConfidence scores how reliable an extracted entity is.
// The IR budget drops low scores first.
func CalibrateEntityConfidence(e Entity) float64 {
	base := baseConfidence(e.Kind)

	if isAnonymous(e.Name) {
		base -= 0.15
	}
	if e.End <= e.Start && e.Kind != KindModule {
		base -= 0.05
	}
	if e.Kind == KindCall && strings.ContainsAny(e.Target, "()[]") {
		base -= 0.1
	}
	if e.Visibility == VisibilityPublic {
		base += 0.02
	}

	return clamp(base, 0.1, 0.99)
}

// CalibrateRelationConfidence scores a resolved edge by the stage that resolved it.
func CalibrateRelationConfidence(kind EdgeKind, resolver string) float64 {
	base := 0.55
	switch kind {
	case EdgeDeclares:
		return 0.99
	case EdgeImports:
		base = 0.8
	case EdgeCalls:
		base = 0.7
	case EdgeReferences:
		base = 0.65
	}

	switch resolver {
	case "same_file":
		base += 0.2
	case "import_binding", "module_path":
		base += 0.15
	case "fuzzy":
		// no-op
	default:
		base -= 0.03
	}
	return clamp(base, 0.1, 0.99)
}

func baseConfidence(kind Kind) float64 {
	switch kind {
	case KindFunction, KindClass, KindType:
		return 0.95
	case KindVariable:
		return 0.9
	case KindModule:
		return 0.9
	case KindImport:
		return 0.85
	case KindCall:
		return 0.7
	case KindReference:
		return 0.55
	default:
		return 0.5
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
