package extractor

import (
	"path"
	"strings"
)

func trimExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

func dotted(parts []string) string {
	var out []string
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// pythonModulePath maps pkg/mod.py to pkg.mod and pkg/__init__.py to pkg.
func pythonModulePath(p string) (string, string) {
	parts := strings.Split(trimExt(p), "/")
	if len(parts) > 1 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return dotted(parts), parts[len(parts)-1]
}

// rustModulePath maps src/net/mod.rs to net and src/lib.rs to crate.
func rustModulePath(p string) (string, string) {
	parts := strings.Split(trimExt(p), "/")
	if len(parts) > 1 && parts[0] == "src" {
		parts = parts[1:]
	}
	switch parts[len(parts)-1] {
	case "mod", "lib", "main":
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return "crate", "crate"
	}
	return dotted(parts), parts[len(parts)-1]
}

// scriptModulePath maps src/util/index.ts to src.util.
func scriptModulePath(p string) (string, string) {
	parts := strings.Split(trimExt(p), "/")
	if len(parts) > 1 && parts[len(parts)-1] == "index" {
		parts = parts[:len(parts)-1]
	}
	return dotted(parts), parts[len(parts)-1]
}

// goModulePath uses the package directory; files at the root use their stem.
func goModulePath(p string) (string, string) {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		stem := path.Base(trimExt(p))
		return stem, stem
	}
	return dotted(strings.Split(dir, "/")), path.Base(dir)
}

// javaModulePath maps src/main/java/com/x/Foo.java to src.main.java.com.x.Foo.
func javaModulePath(p string) (string, string) {
	parts := strings.Split(trimExt(p), "/")
	return dotted(parts), parts[len(parts)-1]
}

// pythonRelative resolves a relative import such as ..util against the importing module.
func pythonRelative(filePath, module, rel string) string {
	dots := 0
	for dots < len(rel) && rel[dots] == '.' {
		dots++
	}
	if dots == 0 {
		return rel
	}
	pkg := strings.Split(module, ".")
	if module == "" {
		pkg = nil
	}
	if path.Base(trimExt(filePath)) != "__init__" && len(pkg) > 0 {
		pkg = pkg[:len(pkg)-1]
	}
	for up := dots - 1; up > 0 && len(pkg) > 0; up-- {
		pkg = pkg[:len(pkg)-1]
	}
	return joinQualified(strings.Join(pkg, "."), rel[dots:])
}

// scriptImportPath resolves ./ and ../ specifiers against the importing file.
func scriptImportPath(filePath, spec string) string {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		joined := path.Join(path.Dir(filePath), spec)
		q, _ := scriptModulePath(joined)
		return q
	}
	return strings.ReplaceAll(strings.TrimSuffix(spec, "/"), "/", ".")
}
