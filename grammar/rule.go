package grammar

import (
	"strings"

	"github.com/ternbird/tern/spec"
)

// LabelType classifies element labels. A name must keep one type across a
// label space.
type LabelType int

const (
	TokenLabel LabelType = iota
	TokenListLabel
	RuleLabel
	RuleListLabel
)

func (t LabelType) String() string {
	switch t {
	case TokenLabel:
		return "token label"
	case TokenListLabel:
		return "token list label"
	case RuleLabel:
		return "rule label"
	case RuleListLabel:
		return "rule list label"
	}
	return "label"
}

// LabelPair is one x=e occurrence.
type LabelPair struct {
	Name string
	Type LabelType
	Node *spec.Node
}

// Attribute is one declared argument, return value, or local.
type Attribute struct {
	Name string
	Decl string
}

// AttributeDict is an ordered attribute dictionary.
type AttributeDict struct {
	attrs map[string]*Attribute
	order []string
}

func newAttributeDict() *AttributeDict {
	return &AttributeDict{
		attrs: map[string]*Attribute{},
	}
}

func (d *AttributeDict) add(a *Attribute) {
	if _, ok := d.attrs[a.Name]; ok {
		return
	}
	d.attrs[a.Name] = a
	d.order = append(d.order, a.Name)
}

func (d *AttributeDict) Get(name string) *Attribute {
	if d == nil {
		return nil
	}
	return d.attrs[name]
}

func (d *AttributeDict) Has(name string) bool {
	return d.Get(name) != nil
}

func (d *AttributeDict) Names() []string {
	if d == nil {
		return nil
	}
	return d.order
}

func (d *AttributeDict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// parseAttributeDecl splits "[int x, Type y]" bodies. The attribute name is
// the last identifier of each comma-separated declaration, matching the
// common "type name" and bare "name" forms.
func parseAttributeDecl(decl string) *AttributeDict {
	d := newAttributeDict()
	if strings.TrimSpace(decl) == "" {
		return d
	}
	for _, part := range strings.Split(decl, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// Strip initializers: "int x = 0" declares x.
		if eq := strings.Index(part, "="); eq >= 0 {
			part = strings.TrimSpace(part[:eq])
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		// Pointer/reference decoration sticks to the type, not the name.
		name = strings.TrimLeft(name, "*&")
		d.add(&Attribute{
			Name: name,
			Decl: part,
		})
	}
	return d
}

// Rule is one grammar rule and its per-rule symbol information.
type Rule struct {
	Name  string
	Index int
	AST   *spec.Node
	G     *Grammar

	// Mode is the lexer mode the rule was declared in, empty for parser
	// rules.
	Mode string

	IsFragment  bool
	IsStartRule bool

	Args    *AttributeDict
	Retvals *AttributeDict
	Locals  *AttributeDict

	// Labels holds every x=e pair, keyed by label name; the slice keeps
	// all occurrences for list labels.
	Labels map[string][]*LabelPair

	// AltLabels maps a # Name label to the alternatives carrying it.
	AltLabels map[string][]*spec.Node

	NumAlts int

	// TokenType is the lexer rule's emitted type once assigned.
	TokenType int

	// LeftRecursive carries the precedence-climbing shape after the
	// left-recursion transform rewired the rule.
	LeftRecursive *LeftRecursiveInfo
}

func newRule(g *Grammar, ast *spec.Node, mode string) *Rule {
	r := &Rule{
		Name:      ast.Text,
		AST:       ast,
		G:         g,
		Mode:      mode,
		IsFragment: ast.Fragment,
		Args:      parseAttributeDecl(ast.ArgAction),
		Retvals:   parseAttributeDecl(ast.RetAction),
		Locals:    parseAttributeDecl(ast.LocAction),
		Labels:    map[string][]*LabelPair{},
		AltLabels: map[string][]*spec.Node{},
	}
	if block := ast.FirstChildOfKind(spec.KindBlock); block != nil {
		r.NumAlts = len(block.ChildrenOfKind(spec.KindAlt))
	}
	return r
}

// Block returns the rule's body block.
func (r *Rule) Block() *spec.Node {
	return r.AST.FirstChildOfKind(spec.KindBlock)
}

// Alt returns the 1-indexed alternative.
func (r *Rule) Alt(i int) *spec.Node {
	alts := r.Block().ChildrenOfKind(spec.KindAlt)
	return alts[i-1]
}

// IsLexerRule reports whether the rule belongs to the lexer half.
func (r *Rule) IsLexerRule() bool {
	return isLexerRuleName(r.Name)
}

// CaseInsensitive resolves the rule-level caseInsensitive option against
// the grammar default.
func (r *Rule) CaseInsensitive() bool {
	if v, ok := r.AST.Option("caseInsensitive"); ok {
		return v == "true"
	}
	return r.G.caseInsensitive
}

// HasAltLabels reports whether any alternative carries a # label; label
// spaces are then scoped per alt label instead of per rule.
func (r *Rule) HasAltLabels() bool {
	return len(r.AltLabels) > 0
}

// OpAltAssoc is an operator alternative's associativity.
type OpAltAssoc string

const (
	AssocLeft  = OpAltAssoc("left")
	AssocRight = OpAltAssoc("right")
)

// OpAltInfo describes one operator alternative of a left-recursive rule.
type OpAltInfo struct {
	AltNum      int
	Precedence  int
	Assoc       OpAltAssoc
	AltLabel    string
	IsListLabel bool

	// SelfRefLabel is the label that sat on the removed leading
	// self-reference, reattached by the code generator.
	SelfRefLabel string
}

// PrimaryAltInfo describes one non-recursive alternative.
type PrimaryAltInfo struct {
	AltNum   int
	AltLabel string
}

// LeftRecursiveInfo is the outcome of rewriting a directly left-recursive
// rule into precedence-climbing form.
type LeftRecursiveInfo struct {
	PrimaryAlts []*PrimaryAltInfo
	OpAlts      []*OpAltInfo
}
