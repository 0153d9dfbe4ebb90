package grammar

import (
	"fmt"

	"github.com/ternbird/tern/spec"
)

// lexerOptionBlacklist lists grammar options that do not propagate into the
// lexer extracted from a combined grammar.
var lexerOptionBlacklist = map[string]struct{}{
	"superClass":     {},
	"TokenLabelType": {},
	"tokenVocab":     {},
}

// ExtractImplicitLexer splits a combined grammar: lexer rules and
// lexer-scoped actions move into a synthesized <Name>Lexer grammar, and
// every string literal the parser rules reference gets a generated lexer
// rule unless an existing rule already aliases it. Returns nil when the
// resulting lexer would have no rules.
func ExtractImplicitLexer(g *Grammar) *spec.Node {
	if g.Type != spec.GrammarTypeCombined {
		return nil
	}
	root := g.AST

	lexerName := g.Name + "Lexer"
	lexerRoot := spec.NewTextNode(spec.KindGrammar, root.Pos, lexerName)
	lexerRoot.GrammarType = spec.GrammarTypeLexer

	// Propagate the eligible grammar options.
	for _, opts := range root.ChildrenOfKind(spec.KindOptions) {
		var kept *spec.Node
		for _, opt := range opts.ChildrenOfKind(spec.KindOption) {
			if _, banned := lexerOptionBlacklist[opt.Text]; banned {
				continue
			}
			if kept == nil {
				kept = spec.NewNode(spec.KindOptions, opts.Pos)
			}
			dup := opt.Dup()
			kept.AddChild(dup)
			kept.SetOption(opt.Text, opt.Value)
		}
		if kept != nil {
			lexerRoot.AddChild(kept)
		}
	}

	// Channels belong to the lexer half.
	for _, ch := range root.ChildrenOfKind(spec.KindChannels) {
		lexerRoot.AddChild(ch.Dup())
	}

	// Copy all named actions; move the lexer-scoped ones.
	var keep []*spec.Node
	for _, c := range root.Children {
		if c.Kind != spec.KindNamedAction {
			keep = append(keep, c)
			continue
		}
		lexerRoot.AddChild(c.Dup())
		if c.Scope == "lexer" {
			continue
		}
		keep = append(keep, c)
	}

	// Move the lexer rules.
	var moved []*spec.Node
	out := keep[:0]
	for _, c := range keep {
		if c.Kind == spec.KindRule && isLexerRuleName(c.Text) {
			moved = append(moved, c)
			continue
		}
		out = append(out, c)
	}
	root.Children = out
	root.SanityCheckParentAndChildIndexes()

	// Literal aliases already provided by a moved rule (X : 'lit' ;).
	aliased := map[string]struct{}{}
	for _, r := range moved {
		if lit, ok := literalAliasOf(r); ok {
			aliased[lit] = struct{}{}
		}
	}

	// Generate a rule per literal the parser half references, first so
	// generated literals win tokenization priority.
	var generated []*spec.Node
	seen := map[string]struct{}{}
	for _, c := range root.ChildrenOfKind(spec.KindRule) {
		spec.Walk(c, func(n *spec.Node) bool {
			if n.Kind != spec.KindStringLiteral {
				return true
			}
			lit := n.Text
			if _, ok := seen[lit]; ok {
				return true
			}
			seen[lit] = struct{}{}
			if _, ok := aliased[lit]; ok {
				return true
			}
			g.implicitTokenNum++
			name := fmt.Sprintf("T__%v", g.implicitTokenNum-1)
			rule := spec.NewTextNode(spec.KindRule, n.Pos, name)
			block := spec.NewNode(spec.KindBlock, n.Pos)
			alt := spec.NewNode(spec.KindAlt, n.Pos)
			alt.AddChild(spec.NewTextNode(spec.KindStringLiteral, n.Pos, lit))
			block.AddChild(alt)
			rule.AddChild(block)
			generated = append(generated, rule)
			return true
		})
	}

	if len(generated)+len(moved) == 0 {
		return nil
	}
	for _, r := range generated {
		lexerRoot.AddChild(r)
	}
	for _, r := range moved {
		lexerRoot.AddChild(r)
	}

	// Modes only hold lexer rules; in a well-formed combined grammar the
	// parser keeps none.
	var modes []*spec.Node
	outTop := root.Children[:0]
	for _, c := range root.Children {
		if c.Kind == spec.KindMode {
			modes = append(modes, c)
			continue
		}
		outTop = append(outTop, c)
	}
	root.Children = outTop
	root.SanityCheckParentAndChildIndexes()
	for _, m := range modes {
		lexerRoot.AddChild(m)
	}

	lexerRoot.SetOrigin(lexerName)
	lexerRoot.SanityCheckParentAndChildIndexes()
	return lexerRoot
}

// literalAliasOf recognizes the X : 'literal' ; shape.
func literalAliasOf(rule *spec.Node) (string, bool) {
	if rule.Fragment {
		return "", false
	}
	block := rule.FirstChildOfKind(spec.KindBlock)
	if block == nil {
		return "", false
	}
	alts := block.ChildrenOfKind(spec.KindAlt)
	if len(alts) != 1 || len(alts[0].Children) != 1 {
		return "", false
	}
	elem := alts[0].Children[0]
	if elem.Kind != spec.KindStringLiteral {
		return "", false
	}
	return elem.Text, true
}
