package extractor

import (
	"strings"
	"unicode/utf8"

	"codeir/internal/syntax"
)

const (
	maxSignatureLen = 256
	maxDocLen       = 1024
)

var commentKinds = map[string]bool{
	"comment":       true,
	"line_comment":  true,
	"block_comment": true,
}

// signature returns the declaration header up to its body with whitespace
// collapsed, or "" for declarations without a body field.
func signature(t *eventTree, i int) string {
	body := t.field(i, "body")
	if body < 0 {
		return ""
	}
	start, end := t.events[i].Start, t.events[body].Start
	if end <= start || int(end) > len(t.src) {
		return ""
	}
	s := strings.Join(strings.Fields(string(t.src[start:end])), " ")
	s = strings.TrimSuffix(s, ":")
	return truncate(strings.TrimSpace(s), maxSignatureLen)
}

// docComment collects the comment lines directly above i. When i opens its
// parent, such as a class wrapped in an export statement, the parent's
// comments are used.
func docComment(t *eventTree, i int) string {
	for cur := i; cur > 0; {
		p := t.parent(cur)
		if p < 0 {
			break
		}
		siblings := t.children[p]
		pos := indexOf(siblings, cur)
		if pos < 0 {
			break
		}

		var lines []string
		next := cur
		for k := pos - 1; k >= 0; k-- {
			c := siblings[k]
			kind := t.kind(c)
			if kind == "attribute_item" {
				next = c
				continue
			}
			if !commentKinds[kind] || !adjacent(t, c, next) {
				break
			}
			lines = append(cleanComment(t.text(c)), lines...)
			next = c
		}
		if doc := strings.TrimSpace(strings.Join(lines, "\n")); doc != "" {
			return truncate(doc, maxDocLen)
		}

		if p == 0 || t.events[p].Tag.IsDeclaration() || t.events[p].Tag == syntax.TagModule {
			break
		}
		if first := firstNonComment(t, siblings); first != cur {
			break
		}
		cur = p
	}
	return ""
}

// adjacent reports whether comment c starts its own line and ends on the
// line right above next.
func adjacent(t *eventTree, c, next int) bool {
	start, end, nextStart := t.events[c].Start, t.events[c].End, t.events[next].Start
	if end > nextStart || int(nextStart) > len(t.src) {
		return false
	}
	gap := t.src[end:nextStart]
	if strings.TrimSpace(string(gap)) != "" || strings.Count(string(gap), "\n") > 1 {
		return false
	}
	for k := int(start) - 1; k >= 0 && t.src[k] != '\n'; k-- {
		if !isSpaceByte(t.src[k]) {
			return false
		}
	}
	return true
}

func cleanComment(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"///", "//!", "//", "/**", "/*", "#"} {
			if strings.HasPrefix(line, prefix) {
				line = line[len(prefix):]
				break
			}
		}
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimPrefix(strings.TrimSpace(line), "*")
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

func firstNonComment(t *eventTree, siblings []int) int {
	for _, c := range siblings {
		if !commentKinds[t.kind(c)] {
			return c
		}
	}
	return -1
}

func indexOf(xs []int, x int) int {
	for k, v := range xs {
		if v == x {
			return k
		}
	}
	return -1
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
