package grammar

import (
	"strconv"

	"github.com/ternbird/tern/spec"
)

// EliminateLeftRecursion rewrites every directly left-recursive parser rule
// into precedence-climbing form: the primary alternatives followed by a
// loop over the operator alternatives, each guarded by a precedence
// predicate. Indirect cycles are left for the analysis pipeline to report.
func EliminateLeftRecursion(g *Grammar) {
	if g.Type == spec.GrammarTypeLexer {
		return
	}
	for _, r := range g.Rules() {
		if r.IsLexerRule() {
			continue
		}
		if isDirectlyLeftRecursive(r) {
			rewriteLeftRecursiveRule(r)
		}
	}
}

func isDirectlyLeftRecursive(r *Rule) bool {
	block := r.Block()
	if block == nil {
		return false
	}
	for _, alt := range block.ChildrenOfKind(spec.KindAlt) {
		if lead := leadingElement(alt); lead != nil &&
			lead.Kind == spec.KindRuleRef && lead.Text == r.Name {
			return true
		}
	}
	return false
}

// leadingElement skips actions and predicates, which consume no input.
func leadingElement(alt *spec.Node) *spec.Node {
	for _, c := range alt.Children {
		switch c.Kind {
		case spec.KindAction, spec.KindPredicate, spec.KindLexerCommands:
			continue
		}
		return c
	}
	return nil
}

// rewriteLeftRecursiveRule replaces the rule body with
//
//	primaryBlock ( {p}? opTail | {p}? opTail | ... )*
//
// where each opTail is the operator alternative minus its leading
// self-reference, and trailing self-references carry the climbing
// precedence for the rule transition.
func rewriteLeftRecursiveRule(r *Rule) {
	block := r.Block()
	alts := block.ChildrenOfKind(spec.KindAlt)
	numAlts := len(alts)

	info := &LeftRecursiveInfo{}
	var primaries []*spec.Node
	var opTails []*spec.Node

	for i, alt := range alts {
		altNum := i + 1
		lead := leadingElement(alt)
		recursive := lead != nil && lead.Kind == spec.KindRuleRef && lead.Text == r.Name
		if !recursive {
			info.PrimaryAlts = append(info.PrimaryAlts, &PrimaryAltInfo{
				AltNum:   altNum,
				AltLabel: alt.AltLabel,
			})
			primaries = append(primaries, alt.Dup())
			continue
		}

		// Alternative i of n gets precedence n-i: earlier alternatives
		// bind tighter.
		prec := numAlts - altNum + 1
		assoc := AssocLeft
		if v, ok := lead.Option("assoc"); ok && v == string(AssocRight) {
			assoc = AssocRight
		}
		// The assoc option historically sits on the operator token too.
		for _, c := range alt.Children {
			if v, ok := c.Option("assoc"); ok && v == string(AssocRight) {
				assoc = AssocRight
			}
		}

		op := &OpAltInfo{
			AltNum:       altNum,
			Precedence:   prec,
			Assoc:        assoc,
			AltLabel:     alt.AltLabel,
			IsListLabel:  lead.ListLabel,
			SelfRefLabel: lead.Label,
		}
		info.OpAlts = append(info.OpAlts, op)

		tail := spec.NewNode(spec.KindAlt, alt.Pos)
		tail.AltLabel = alt.AltLabel
		pred := spec.NewNode(spec.KindPrecPredicate, alt.Pos)
		pred.Precedence = prec
		tail.AddChild(pred)
		dropped := false
		for _, c := range alt.Children {
			if !dropped && c == lead {
				dropped = true
				continue
			}
			cc := c.Dup()
			decorateClimbingRefs(cc, r.Name, prec, assoc)
			tail.AddChild(cc)
		}
		opTails = append(opTails, tail)
	}

	r.LeftRecursive = info

	newBlock := spec.NewNode(spec.KindBlock, block.Pos)
	topAlt := spec.NewNode(spec.KindAlt, block.Pos)
	newBlock.AddChild(topAlt)

	primaryBlock := spec.NewNode(spec.KindBlock, block.Pos)
	for _, p := range primaries {
		primaryBlock.AddChild(p)
	}
	topAlt.AddChild(primaryBlock)

	if len(opTails) > 0 {
		loop := spec.NewNode(spec.KindClosure, block.Pos)
		opBlock := spec.NewNode(spec.KindBlock, block.Pos)
		for _, t := range opTails {
			opBlock.AddChild(t)
		}
		loop.AddChild(opBlock)
		topAlt.AddChild(loop)
	}

	r.AST.ReplaceChild(block.ChildIndex, newBlock)
	r.AST.SanityCheckParentAndChildIndexes()
	r.NumAlts = 1
}

// decorateClimbingRefs stamps recursive references in an operator tail with
// the precedence their rule call must climb with: prec+1 for left
// association, prec for right.
func decorateClimbingRefs(n *spec.Node, ruleName string, prec int, assoc OpAltAssoc) {
	spec.Walk(n, func(c *spec.Node) bool {
		if c.Kind == spec.KindRuleRef && c.Text == ruleName {
			climb := prec + 1
			if assoc == AssocRight {
				climb = prec
			}
			c.SetOption("prec", strconv.Itoa(climb))
		}
		return true
	})
}
