package syntax

import (
	"errors"
	"fmt"
	"iter"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrMalformedSyntaxTree reports a parse that failed for the whole file.
var ErrMalformedSyntaxTree = errors.New("malformed syntax tree")

const errorKind = "ERROR"

// Event is one normalized syntax node. Parent is the index of the nearest
// enclosing event, or -1 for the root.
type Event struct {
	Index  int
	Parent int
	Depth  int
	Tag    Tag
	Kind   string
	Field  string
	Start  uint32
	End    uint32
	Error  bool
}

// Stream yields the events of one tree in pre-order. It can be consumed once.
type Stream struct {
	cursor     *sitter.TreeCursor
	table      Table
	started    bool
	done       bool
	depth      int
	path       []int
	errDepth   int // depth of the enclosing ERROR node, -1 outside one
	cleanDepth int // depth of a complete subtree inside an error region
	next       int
}

// Normalize prepares a lazy event stream over tree. The caller keeps ownership
// of the tree and must not close it before the stream is drained or closed.
func Normalize(tree *sitter.Tree, src []byte, table Table) (*Stream, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: parser returned no tree", ErrMalformedSyntaxTree)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: empty root", ErrMalformedSyntaxTree)
	}
	if wholeFileError(root, src) {
		return nil, fmt.Errorf("%w: parse error spans the entire file", ErrMalformedSyntaxTree)
	}
	if table == nil {
		table = Table{}
	}
	return &Stream{
		cursor:     sitter.NewTreeCursor(root),
		table:      table,
		errDepth:   -1,
		cleanDepth: -1,
	}, nil
}

// wholeFileError reports an ERROR node covering the whole file that kept
// nothing the parser could complete. An ERROR root that still wraps
// well-formed declarations is a partial parse, not a failure.
func wholeFileError(root *sitter.Node, src []byte) bool {
	first, last := contentBounds(src)
	if first >= last {
		return false
	}
	errNode := root
	if root.Type() != errorKind {
		if root.NamedChildCount() != 1 {
			return false
		}
		errNode = root.NamedChild(0)
		if errNode.Type() != errorKind || errNode.StartByte() > first || errNode.EndByte() < last {
			return false
		}
	}
	return !hasCompleteDescendant(errNode)
}

func hasCompleteDescendant(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		if isComplete(child) || hasCompleteDescendant(child) {
			return true
		}
	}
	return false
}

// isComplete reports a named interior node the parser built without errors.
func isComplete(n *sitter.Node) bool {
	return n.IsNamed() && !n.IsMissing() && !n.HasError() &&
		n.Type() != errorKind && n.NamedChildCount() > 0
}

// contentBounds returns the byte range between the first and last non-space bytes.
func contentBounds(src []byte) (uint32, uint32) {
	start, end := 0, len(src)
	for start < end && isSpace(src[start]) {
		start++
	}
	for end > start && isSpace(src[end-1]) {
		end--
	}
	return uint32(start), uint32(end)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// Next returns the next event in pre-order.
func (s *Stream) Next() (Event, bool) {
	for !s.done {
		if !s.started {
			s.started = true
		} else if !s.advance() {
			s.Close()
			break
		}
		if s.errDepth >= s.depth {
			s.errDepth = -1
		}
		if s.cleanDepth >= s.depth {
			s.cleanDepth = -1
		}

		node := s.cursor.CurrentNode()
		kind := node.Type()
		if kind == errorKind && s.errDepth < 0 {
			s.errDepth = s.depth
		}
		if s.errDepth >= 0 && s.cleanDepth < 0 && isComplete(node) {
			s.cleanDepth = s.depth
		}

		parent := -1
		if s.depth > 0 {
			parent = s.path[s.depth-1]
		}
		s.path = s.path[:s.depth]

		if !node.IsNamed() && !node.IsMissing() {
			s.path = append(s.path, parent)
			continue
		}

		ev := Event{
			Index:  s.next,
			Parent: parent,
			Depth:  s.depth,
			Kind:   kind,
			Field:  s.cursor.CurrentFieldName(),
			Start:  node.StartByte(),
			End:    node.EndByte(),
		}
		if (s.errDepth >= 0 && s.cleanDepth < 0) || node.IsMissing() {
			ev.Tag = TagOther
			ev.Error = true
		} else {
			ev.Tag = s.table.Lookup(kind)
		}
		s.path = append(s.path, ev.Index)
		s.next++
		return ev, true
	}
	return Event{}, false
}

func (s *Stream) advance() bool {
	if s.cursor.GoToFirstChild() {
		s.depth++
		return true
	}
	for {
		if s.cursor.GoToNextSibling() {
			return true
		}
		if !s.cursor.GoToParent() {
			return false
		}
		s.depth--
	}
}

// All adapts the stream to a range-over-func sequence.
func (s *Stream) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			ev, ok := s.Next()
			if !ok {
				return
			}
			if !yield(ev) {
				s.Close()
				return
			}
		}
	}
}

// Close releases the cursor. Further calls to Next return false.
func (s *Stream) Close() {
	if s.done {
		return
	}
	s.done = true
	if s.cursor != nil {
		s.cursor.Close()
		s.cursor = nil
	}
}

// Emitted returns how many events the stream has produced so far.
func (s *Stream) Emitted() int {
	return s.next
}
