package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// ReduceBlocksToSets rewrites every (a | b | c) block whose alternatives
// are all single set-able elements into one set node, so the ATN gets a
// single set transition instead of a decision. A labeled block that cannot
// be reduced is an error: a label needs a single token or a set to bind to.
func ReduceBlocksToSets(g *Grammar) {
	for _, r := range g.Rules() {
		block := r.Block()
		if block == nil {
			continue
		}
		reduceInSubtree(g, block, r)
	}
}

func reduceInSubtree(g *Grammar, n *spec.Node, r *Rule) {
	for i, c := range n.Children {
		reduceInSubtree(g, c, r)
		if c.Kind != spec.KindBlock {
			continue
		}
		// The rule body itself stays a block; only nested blocks reduce.
		if set, ok := blockAsSet(g, c, r); ok {
			n.ReplaceChild(i, set)
		} else if c.Label != "" {
			g.mgr.Emit(issue.CodeLabelBlockNotASet, g.fileName, labelPos(c), c.Label)
		}
	}
}

// blockAsSet decides whether a block is a plain alternation of single
// set-able elements and, if so, builds the replacement set node.
func blockAsSet(g *Grammar, block *spec.Node, r *Rule) (*spec.Node, bool) {
	alts := block.ChildrenOfKind(spec.KindAlt)
	if len(alts) == 0 || len(alts) != len(block.Children) {
		return nil, false
	}
	var leaves []*spec.Node
	for _, alt := range alts {
		if alt.AltLabel != "" || len(alt.Children) != 1 {
			return nil, false
		}
		elem := alt.Children[0]
		if elem.Label != "" || len(elem.Opts) > 0 {
			return nil, false
		}
		switch elem.Kind {
		case spec.KindStringLiteral:
			// A lexer set holds single code points; longer literals need
			// their transition chain.
			if g.Type == spec.GrammarTypeLexer || r.IsLexerRule() {
				if len([]rune(elem.Text)) != 1 {
					return nil, false
				}
			}
		case spec.KindTerminal:
			if g.Type == spec.GrammarTypeLexer {
				// In a lexer a token ref is a rule call, not a symbol.
				return nil, false
			}
		case spec.KindRange, spec.KindCharSet:
			if g.Type != spec.GrammarTypeLexer && !r.IsLexerRule() {
				return nil, false
			}
		default:
			return nil, false
		}
		leaves = append(leaves, elem)
	}

	// A single-alternative block of one element is the element itself,
	// labeled or not.
	if len(leaves) == 1 {
		elem := leaves[0].Dup()
		elem.Label = block.Label
		elem.ListLabel = block.ListLabel
		elem.LabelPos = block.LabelPos
		return elem, true
	}

	set := spec.NewNode(spec.KindSet, block.Pos)
	set.Label = block.Label
	set.ListLabel = block.ListLabel
	set.LabelPos = block.LabelPos
	set.Origin = block.Origin
	for _, leaf := range leaves {
		set.AddChild(leaf.Dup())
	}
	return set, true
}
