package extractor

import (
	"strings"

	"codeir/internal/syntax"
)

// eventTree indexes the events of one file so rules can look at children.
type eventTree struct {
	src      []byte
	events   []syntax.Event
	children [][]int
	last     []int // index of the last event in each subtree
}

func collect(stream *syntax.Stream, src []byte) *eventTree {
	t := &eventTree{src: src}
	for ev := range stream.All() {
		t.events = append(t.events, ev)
	}
	n := len(t.events)
	t.children = make([][]int, n)
	t.last = make([]int, n)
	for i, ev := range t.events {
		t.last[i] = i
		if ev.Parent >= 0 {
			t.children[ev.Parent] = append(t.children[ev.Parent], i)
		}
	}
	for i := n - 1; i > 0; i-- {
		if p := t.events[i].Parent; p >= 0 && t.last[i] > t.last[p] {
			t.last[p] = t.last[i]
		}
	}
	return t
}

func (t *eventTree) kind(i int) string {
	if i < 0 {
		return ""
	}
	return t.events[i].Kind
}

func (t *eventTree) parent(i int) int {
	if i < 0 {
		return -1
	}
	return t.events[i].Parent
}

func (t *eventTree) text(i int) string {
	if i < 0 {
		return ""
	}
	ev := t.events[i]
	if int(ev.End) > len(t.src) || ev.Start > ev.End {
		return ""
	}
	return string(t.src[ev.Start:ev.End])
}

// field returns the first child of i in the named field, or -1.
func (t *eventTree) field(i int, name string) int {
	if i < 0 {
		return -1
	}
	for _, c := range t.children[i] {
		if t.events[c].Field == name {
			return c
		}
	}
	return -1
}

// fieldAll returns every child of i in the named field.
func (t *eventTree) fieldAll(i int, name string) []int {
	var out []int
	for _, c := range t.children[i] {
		if t.events[c].Field == name {
			out = append(out, c)
		}
	}
	return out
}

// childOfKind returns the first child of i with one of the given kinds, or -1.
func (t *eventTree) childOfKind(i int, kinds ...string) int {
	if i < 0 {
		return -1
	}
	for _, c := range t.children[i] {
		for _, k := range kinds {
			if t.events[c].Kind == k {
				return c
			}
		}
	}
	return -1
}

// childOfTag returns the first child of i tagged tag, or -1.
func (t *eventTree) childOfTag(i int, tag syntax.Tag) int {
	for _, c := range t.children[i] {
		if t.events[c].Tag == tag {
			return c
		}
	}
	return -1
}

func (t *eventTree) hasError(i int) bool {
	for j := i; j <= t.last[i]; j++ {
		if t.events[j].Error {
			return true
		}
	}
	return false
}

// ancestorOfKind walks at most depth parents looking for kind.
func (t *eventTree) ancestorOfKind(i int, depth int, kinds ...string) int {
	for p := t.parent(i); p >= 0 && depth > 0; p, depth = t.parent(p), depth-1 {
		for _, k := range kinds {
			if t.events[p].Kind == k {
				return p
			}
		}
	}
	return -1
}

// unquote strips one layer of matching quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
