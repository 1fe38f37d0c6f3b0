package extractor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestModulePaths(t *testing.T) {
	cases := []struct {
		name      string
		fn        func(string) (string, string)
		path      string
		qualified string
		short     string
	}{
		{"python module", pythonModulePath, "pkg/util.py", "pkg.util", "util"},
		{"python package", pythonModulePath, "pkg/sub/__init__.py", "pkg.sub", "sub"},
		{"rust lib", rustModulePath, "src/lib.rs", "crate", "crate"},
		{"rust mod", rustModulePath, "src/net/mod.rs", "net", "net"},
		{"rust file", rustModulePath, "src/net/client.rs", "net.client", "client"},
		{"script index", scriptModulePath, "src/util/index.ts", "src.util", "util"},
		{"script file", scriptModulePath, "src/app.js", "src.app", "app"},
		{"go package", goModulePath, "internal/server/a.go", "internal.server", "server"},
		{"go root", goModulePath, "main.go", "main", "main"},
		{"java class", javaModulePath, "src/com/acme/Service.java", "src.com.acme.Service", "Service"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, n := tc.fn(tc.path)
			assert.Equal(t, tc.qualified, q)
			assert.Equal(t, tc.short, n)
		})
	}
}

func TestRelativeImports(t *testing.T) {
	t.Run("Python", func(t *testing.T) {
		assert.Equal(t, "pkg.sub.x", pythonRelative("pkg/sub/mod.py", "pkg.sub.mod", ".x"))
		assert.Equal(t, "pkg.x", pythonRelative("pkg/sub/mod.py", "pkg.sub.mod", "..x"))
		assert.Equal(t, "pkg.sub.x", pythonRelative("pkg/sub/__init__.py", "pkg.sub", ".x"))
		assert.Equal(t, "os", pythonRelative("a.py", "a", "os"))
	})

	t.Run("Script", func(t *testing.T) {
		assert.Equal(t, "src.util", scriptImportPath("src/app.ts", "./util"))
		assert.Equal(t, "lib", scriptImportPath("src/app.ts", "../lib/index.js"))
		assert.Equal(t, "@scope.pkg", scriptImportPath("src/app.ts", "@scope/pkg"))
	})
}

func TestNormalizeCallee(t *testing.T) {
	assert.Equal(t, "a.b.c", normalizeCallee("a::b::c"))
	assert.Equal(t, "obj.method", normalizeCallee("obj\n  .method"))
	assert.Equal(t, "a.b", normalizeCallee("a?.b"))
	assert.Equal(t, "println", normalizeCallee("println!"))

	t.Run("Truncation", func(t *testing.T) {
		long := normalizeCallee(strings.Repeat("a", maxCalleeLen+10))
		assert.Len(t, long, maxCalleeLen)

		// The two-byte rune straddles the limit and must not be split.
		split := normalizeCallee(strings.Repeat("a", maxCalleeLen-1) + "é" + "b")
		assert.True(t, utf8.ValidString(split))
		assert.Equal(t, strings.Repeat("a", maxCalleeLen-1), split)
	})

	assert.Equal(t, "c", lastSegment("a.b.c"))
	assert.Equal(t, "a", firstSegment("a.b.c"))
	assert.Equal(t, "a.b", joinQualified("", "a", "", "b"))
}

func TestIdentityKey(t *testing.T) {
	decl := Entity{Kind: KindFunction, QualifiedName: "util", Path: "pkg/a.py", Language: "python"}
	other := decl
	other.Path = "pkg/b.py"
	assert.Equal(t, IdentityKey(decl), IdentityKey(other), "declarations share a package scope")

	elsewhere := decl
	elsewhere.Path = "lib/a.py"
	assert.NotEqual(t, IdentityKey(decl), IdentityKey(elsewhere))

	call := Entity{Kind: KindCall, QualifiedName: "f", Path: "a.py", Start: 3}
	call2 := call
	call2.Start = 9
	assert.NotEqual(t, IdentityKey(call), IdentityKey(call2))

	id := BuildStableSymbolID(KindFunction, IdentityKey(decl))
	assert.Regexp(t, `^function:[0-9a-f]{12}$`, id)
	assert.Equal(t, id, BuildStableSymbolID(KindFunction, IdentityKey(decl)))
	assert.Regexp(t, `^~[0-9a-f]{6}$`, DisambiguationSuffix("pkg/b.py", 0, false))
	assert.NotEqual(t, DisambiguationSuffix("pkg/b.py", 1, true), DisambiguationSuffix("pkg/b.py", 2, true))
}
