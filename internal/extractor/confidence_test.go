package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrateEntityConfidence(t *testing.T) {
	entity := func(kind Kind, name string) Entity {
		return Entity{Kind: kind, Name: name, Start: 0, End: 10}
	}

	t.Run("Bounds", func(t *testing.T) {
		for _, k := range []Kind{KindModule, KindFunction, KindClass, KindType, KindVariable, KindImport, KindCall, KindReference, Kind("other")} {
			c := CalibrateEntityConfidence(entity(k, "x"))
			assert.Greater(t, c, 0.0, "kind %s", k)
			assert.Less(t, c, 1.0, "kind %s", k)
		}
	})

	t.Run("Tier ordering", func(t *testing.T) {
		decl := CalibrateEntityConfidence(entity(KindFunction, "f"))
		variable := CalibrateEntityConfidence(entity(KindVariable, "v"))
		imp := CalibrateEntityConfidence(entity(KindImport, "os"))
		call := CalibrateEntityConfidence(entity(KindCall, "f"))
		ref := CalibrateEntityConfidence(entity(KindReference, "T"))

		assert.Greater(t, decl, variable)
		assert.Greater(t, variable, imp)
		assert.Greater(t, imp, call)
		assert.Greater(t, call, ref)
	})

	t.Run("Anonymous penalty", func(t *testing.T) {
		named := CalibrateEntityConfidence(entity(KindFunction, "handler"))
		anon := CalibrateEntityConfidence(entity(KindFunction, "<anonymous@42>"))
		assert.InDelta(t, 0.15, named-anon, 1e-9)
	})

	t.Run("Empty range penalty", func(t *testing.T) {
		full := CalibrateEntityConfidence(entity(KindVariable, "v"))
		empty := CalibrateEntityConfidence(Entity{Kind: KindVariable, Name: "v", Start: 5, End: 5})
		assert.InDelta(t, 0.05, full-empty, 1e-9)

		mod := CalibrateEntityConfidence(Entity{Kind: KindModule, Name: "m"})
		assert.Equal(t, CalibrateEntityConfidence(entity(KindModule, "m")), mod, "empty modules are not penalized")
	})

	t.Run("Complex callee penalty", func(t *testing.T) {
		plain := CalibrateEntityConfidence(Entity{Kind: KindCall, Name: "f", Target: "a.f", End: 3})
		indexed := CalibrateEntityConfidence(Entity{Kind: KindCall, Name: "f", Target: "a()[0].f", End: 3})
		assert.Greater(t, plain, indexed)
	})

	t.Run("Public visibility bonus", func(t *testing.T) {
		e := entity(KindVariable, "V")
		base := CalibrateEntityConfidence(e)
		e.Visibility = VisibilityPublic
		assert.Greater(t, CalibrateEntityConfidence(e), base)
	})
}

func TestCalibrateRelationConfidence(t *testing.T) {
	t.Run("Declares is fixed", func(t *testing.T) {
		for _, r := range []string{"same_file", "fuzzy", ""} {
			assert.Equal(t, 0.99, CalibrateRelationConfidence(EdgeDeclares, r))
		}
	})

	t.Run("Resolver ordering", func(t *testing.T) {
		for _, k := range []EdgeKind{EdgeCalls, EdgeReferences} {
			sameFile := CalibrateRelationConfidence(k, "same_file")
			binding := CalibrateRelationConfidence(k, "import_binding")
			fuzzy := CalibrateRelationConfidence(k, "fuzzy")
			unknown := CalibrateRelationConfidence(k, "guess")

			assert.Greater(t, sameFile, binding, "kind %s", k)
			assert.Greater(t, binding, fuzzy, "kind %s", k)
			assert.Greater(t, fuzzy, unknown, "kind %s", k)
		}
	})

	t.Run("Module path matches import binding", func(t *testing.T) {
		assert.Equal(t,
			CalibrateRelationConfidence(EdgeImports, "import_binding"),
			CalibrateRelationConfidence(EdgeImports, "module_path"))
	})

	t.Run("Bounds", func(t *testing.T) {
		for _, k := range []EdgeKind{EdgeImports, EdgeCalls, EdgeReferences, EdgeKind("other")} {
			for _, r := range []string{"same_file", "import_binding", "fuzzy", "x"} {
				c := CalibrateRelationConfidence(k, r)
				assert.GreaterOrEqual(t, c, 0.1)
				assert.LessOrEqual(t, c, 0.99)
			}
		}
	})
}
