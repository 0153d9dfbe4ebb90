package grammar

import (
	"github.com/ternbird/tern/spec"
)

// ruleRefSite is one rule reference and the alternative label scope it
// occurred under.
type ruleRefSite struct {
	node     *spec.Node
	rule     *Rule
	altLabel string
}

// collection is the outcome of the symbol-collection pass, consumed by the
// symbol checks and the token-type assignment.
type collection struct {
	tokenRefs  []*spec.Node
	stringRefs []*spec.Node
	ruleRefs   []ruleRefSite
}

// CollectSymbols walks every rule and records token refs, string refs,
// rule refs, labels, alternative labels, predicates, and actions. Sempred
// and action indices are assigned here, in walk order, so the ATN factory
// sees a stable numbering.
func CollectSymbols(g *Grammar) *collection {
	col := &collection{}
	for _, r := range g.Rules() {
		block := r.Block()
		if block == nil {
			continue
		}
		for _, alt := range block.ChildrenOfKind(spec.KindAlt) {
			if alt.AltLabel != "" {
				r.AltLabels[alt.AltLabel] = append(r.AltLabels[alt.AltLabel], alt)
			}
			g.collectInAlt(col, r, alt, alt.AltLabel)
		}
	}
	return col
}

func (g *Grammar) collectInAlt(col *collection, r *Rule, n *spec.Node, altLabel string) {
	spec.Walk(n, func(c *spec.Node) bool {
		if c.Label != "" {
			r.Labels[c.Label] = append(r.Labels[c.Label], &LabelPair{
				Name: c.Label,
				Type: labelTypeOf(c),
				Node: c,
			})
		}
		switch c.Kind {
		case spec.KindTerminal:
			col.tokenRefs = append(col.tokenRefs, c)
		case spec.KindStringLiteral:
			col.stringRefs = append(col.stringRefs, c)
		case spec.KindRuleRef:
			col.ruleRefs = append(col.ruleRefs, ruleRefSite{
				node:     c,
				rule:     r,
				altLabel: altLabel,
			})
		case spec.KindPredicate:
			if _, ok := g.sempreds[c]; !ok {
				g.sempreds[c] = len(g.sempredList)
				g.sempredList = append(g.sempredList, c)
			}
		case spec.KindAction, spec.KindLexerCommands:
			if _, ok := g.actions[c]; !ok {
				g.actions[c] = len(g.actionList)
				g.actionList = append(g.actionList, c)
			}
		}
		return true
	})
}

func labelTypeOf(n *spec.Node) LabelType {
	isRule := false
	switch n.Kind {
	case spec.KindRuleRef, spec.KindBlock:
		isRule = true
	case spec.KindOptional, spec.KindClosure, spec.KindPositiveClosure:
		// A quantified sub-rule labels its context.
		isRule = true
	}
	switch {
	case isRule && n.ListLabel:
		return RuleListLabel
	case isRule:
		return RuleLabel
	case n.ListLabel:
		return TokenListLabel
	}
	return TokenLabel
}

// Sempreds returns every predicate node with its assigned index.
func (g *Grammar) Sempreds() []*spec.Node {
	return g.sempredList
}

// Actions returns every action and lexer-command node with its assigned
// index.
func (g *Grammar) Actions() []*spec.Node {
	return g.actionList
}
