package lang

import (
	"path"
	"strings"
)

// Language is a language classification as assigned during discovery.
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	Rust       Language = "rust"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Java       Language = "java"
	Unknown    Language = ""
)

var byExtension = map[string]Language{
	".go":   Go,
	".py":   Python,
	".pyi":  Python,
	".rs":   Rust,
	".js":   JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".jsx":  JavaScript,
	".ts":   TypeScript,
	".mts":  TypeScript,
	".cts":  TypeScript,
	".tsx":  TSX,
	".java": Java,
}

// FromPath classifies a file by its extension.
func FromPath(p string) Language {
	ext := strings.ToLower(path.Ext(p))
	if ext == ".ts" && strings.HasSuffix(strings.ToLower(p), ".d.ts") {
		return TypeScript
	}
	return byExtension[ext]
}

// Parse maps a user supplied name to a Language.
func Parse(name string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "go", "golang":
		return Go, true
	case "python", "py":
		return Python, true
	case "rust", "rs":
		return Rust, true
	case "javascript", "js":
		return JavaScript, true
	case "typescript", "ts":
		return TypeScript, true
	case "tsx":
		return TSX, true
	case "java":
		return Java, true
	}
	return Unknown, false
}

func (l Language) String() string {
	if l == Unknown {
		return "unknown"
	}
	return string(l)
}
