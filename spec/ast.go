package spec

import (
	"fmt"
	"strings"
)

// GrammarType tells whether a grammar declares lexer rules, parser rules,
// or both.
type GrammarType int

const (
	GrammarTypeCombined GrammarType = iota
	GrammarTypeLexer
	GrammarTypeParser
)

func (t GrammarType) String() string {
	switch t {
	case GrammarTypeLexer:
		return "lexer"
	case GrammarTypeParser:
		return "parser"
	}
	return "combined"
}

// NodeKind tags a grammar AST node.
type NodeKind int

const (
	KindGrammar NodeKind = iota
	KindOptions
	KindOption
	KindTokens
	KindChannels
	KindImport
	KindGrammarRef
	KindNamedAction
	KindMode
	KindRule
	KindBlock
	KindAlt
	KindTerminal
	KindStringLiteral
	KindRuleRef
	KindCharSet
	KindRange
	KindSet
	KindNot
	KindWildcard
	KindOptional
	KindClosure
	KindPositiveClosure
	KindAction
	KindPredicate
	KindPrecPredicate
	KindLexerCommands
	KindLexerCommand
)

var kindNames = map[NodeKind]string{
	KindGrammar:         "grammar",
	KindOptions:         "options",
	KindOption:          "option",
	KindTokens:          "tokens",
	KindChannels:        "channels",
	KindImport:          "import",
	KindGrammarRef:      "grammar-ref",
	KindNamedAction:     "named-action",
	KindMode:            "mode",
	KindRule:            "rule",
	KindBlock:           "block",
	KindAlt:             "alt",
	KindTerminal:        "terminal",
	KindStringLiteral:   "string",
	KindRuleRef:         "rule-ref",
	KindCharSet:         "charset",
	KindRange:           "range",
	KindSet:             "set",
	KindNot:             "not",
	KindWildcard:        "wildcard",
	KindOptional:        "optional",
	KindClosure:         "closure",
	KindPositiveClosure: "positive-closure",
	KindAction:          "action",
	KindPredicate:       "predicate",
	KindPrecPredicate:   "precedence-predicate",
	KindLexerCommands:   "lexer-commands",
	KindLexerCommand:    "lexer-command",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%v)", int(k))
}

// Position locates a node in its source file. Row and Col are 1-based.
type Position struct {
	Row int
	Col int
}

func newPosition(row, col int) Position {
	return Position{
		Row: row,
		Col: col,
	}
}

// Node is a grammar AST node. One struct covers every kind; the fields past
// Children are payload and only meaningful for the kinds noted on each.
type Node struct {
	Kind NodeKind
	Pos  Position

	// Text is the node's principal text: the grammar/rule/mode/token name,
	// the decoded string-literal value, the raw charset/action body, or the
	// lexer command name.
	Text string

	// Value is the secondary text where a node carries a pair: an option's
	// value (KindOption) or a lexer command's argument (KindLexerCommand).
	Value string

	Children []*Node

	// Parent and ChildIndex are maintained by the tree-edit helpers and can
	// be re-established with SanityCheckParentAndChildIndexes.
	Parent     *Node
	ChildIndex int

	// Origin names the grammar whose source file produced the node. After
	// import merging, nodes from delegates keep their origin so redefinition
	// checks can tell the owners apart.
	Origin string

	// Opts holds grammar options (KindOptions), rule options (KindRule), or
	// element options (references).
	Opts map[string]string

	// Label and ListLabel record x=e / x+=e element labels.
	Label     string
	ListLabel bool
	LabelPos  Position

	// AltLabel records a # Name alternative label (KindAlt).
	AltLabel string

	// Scope is the named-action scope (KindNamedAction), empty for the
	// default scope.
	Scope string

	// GrammarType is set on KindGrammar roots.
	GrammarType GrammarType

	// Rule payload (KindRule).
	Fragment   bool
	ArgAction  string
	RetAction  string
	LocAction  string

	// Greedy is true for ?, *, + and false for ??, *?, +?.
	Greedy bool

	// Lo and Hi are the bounds of a KindRange.
	Lo rune
	Hi rune

	// Precedence is the climbing level of a KindPrecPredicate.
	Precedence int

	// StateNum associates the node with the ATN state built from it;
	// -1 when no state has been assigned.
	StateNum int
}

func NewNode(kind NodeKind, pos Position) *Node {
	return &Node{
		Kind:     kind,
		Pos:      pos,
		Greedy:   true,
		StateNum: -1,
	}
}

func NewTextNode(kind NodeKind, pos Position, text string) *Node {
	n := NewNode(kind, pos)
	n.Text = text
	return n
}

// AddChild appends c and fixes its back-references.
func (n *Node) AddChild(c *Node) *Node {
	c.Parent = n
	c.ChildIndex = len(n.Children)
	n.Children = append(n.Children, c)
	return c
}

// InsertChild places c at index i, shifting later children.
func (n *Node) InsertChild(i int, c *Node) {
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = c
	for j := i; j < len(n.Children); j++ {
		n.Children[j].Parent = n
		n.Children[j].ChildIndex = j
	}
}

// RemoveChild deletes the child at index i, renumbering the rest.
func (n *Node) RemoveChild(i int) {
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	for j := i; j < len(n.Children); j++ {
		n.Children[j].ChildIndex = j
	}
}

// ReplaceChild swaps the child at index i for c in place.
func (n *Node) ReplaceChild(i int, c *Node) {
	c.Parent = n
	c.ChildIndex = i
	n.Children[i] = c
}

// FirstChildOfKind returns the first direct child of the given kind.
func (n *Node) FirstChildOfKind(kind NodeKind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns all direct children of the given kind.
func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var found []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			found = append(found, c)
		}
	}
	return found
}

// Option returns the node's option value for key, if any.
func (n *Node) Option(key string) (string, bool) {
	if n.Opts == nil {
		return "", false
	}
	v, ok := n.Opts[key]
	return v, ok
}

func (n *Node) SetOption(key, value string) {
	if n.Opts == nil {
		n.Opts = map[string]string{}
	}
	n.Opts[key] = value
}

// Walk visits n and every node below it in depth-first pre-order. The walk
// stops descending below a node when visit returns false.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// SanityCheckParentAndChildIndexes re-establishes Parent and ChildIndex for
// the whole subtree. Structural edits that bypass the helpers call this
// before handing the tree to the next stage.
func (n *Node) SanityCheckParentAndChildIndexes() {
	for i, c := range n.Children {
		c.Parent = n
		c.ChildIndex = i
		c.SanityCheckParentAndChildIndexes()
	}
}

// SetOrigin stamps the subtree as belonging to the named grammar.
func (n *Node) SetOrigin(name string) {
	Walk(n, func(c *Node) bool {
		c.Origin = name
		return true
	})
}

// Dup deep-copies the subtree. Parent links inside the copy are rebuilt;
// the copy's own parent is nil.
func (n *Node) Dup() *Node {
	d := &Node{}
	*d = *n
	d.Parent = nil
	d.ChildIndex = 0
	if n.Opts != nil {
		d.Opts = make(map[string]string, len(n.Opts))
		for k, v := range n.Opts {
			d.Opts[k] = v
		}
	}
	d.Children = make([]*Node, len(n.Children))
	for i, c := range n.Children {
		cc := c.Dup()
		cc.Parent = d
		cc.ChildIndex = i
		d.Children[i] = cc
	}
	return d
}

// String renders the subtree in a LISP-ish single-line form, which the
// tests compare against.
func (n *Node) String() string {
	var b strings.Builder
	writeTree(&b, n)
	return b.String()
}

func writeTree(b *strings.Builder, n *Node) {
	if len(n.Children) == 0 {
		writeLeaf(b, n)
		return
	}
	fmt.Fprintf(b, "(%v", nodeHead(n))
	for _, c := range n.Children {
		b.WriteString(" ")
		writeTree(b, c)
	}
	b.WriteString(")")
}

func writeLeaf(b *strings.Builder, n *Node) {
	fmt.Fprintf(b, "%v", nodeHead(n))
}

func nodeHead(n *Node) string {
	if n.Text == "" {
		return n.Kind.String()
	}
	return fmt.Sprintf("%v:%v", n.Kind, n.Text)
}
