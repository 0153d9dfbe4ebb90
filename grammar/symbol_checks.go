package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// SymbolChecks is pass 5: every name that could collide with another name
// is checked here, plus rule-reference resolution and call-site argument
// arity.
func SymbolChecks(g *Grammar, col *collection) {
	g.checkReservedRuleNames()
	g.checkAttributeConflicts()
	g.checkLabelConflicts()
	g.checkRuleRefs(col)
}

// checkAttributeConflicts compares each rule's args, returns, and locals
// against rule names and against each other.
func (g *Grammar) checkAttributeConflicts() {
	for _, r := range g.Rules() {
		p := pos(r.AST)
		for _, name := range r.Args.Names() {
			if g.Rule(name) != nil {
				g.mgr.Emit(issue.CodeArgConflictsWithRule, g.fileName, p, name)
			}
		}
		for _, name := range r.Retvals.Names() {
			if g.Rule(name) != nil {
				g.mgr.Emit(issue.CodeRetvalConflictsWithRule, g.fileName, p, name)
			}
			if r.Args.Has(name) {
				g.mgr.Emit(issue.CodeRetvalConflictsWithArg, g.fileName, p, name)
			}
		}
		for _, name := range r.Locals.Names() {
			if g.Rule(name) != nil {
				g.mgr.Emit(issue.CodeLocalConflictsWithRule, g.fileName, p, name)
			}
			if r.Args.Has(name) {
				g.mgr.Emit(issue.CodeLocalConflictsWithArg, g.fileName, p, name)
			}
			if r.Retvals.Has(name) {
				g.mgr.Emit(issue.CodeLocalConflictsWithRetval, g.fileName, p, name)
			}
		}
	}
}

// checkLabelConflicts validates every x=e pair against rules, tokens,
// attributes, and earlier pairs of a different label type. For rules with
// alternative labels the label space is per alt label; otherwise it spans
// the whole rule.
func (g *Grammar) checkLabelConflicts() {
	declaredTokens := g.declaredTokenNames()

	for _, r := range g.Rules() {
		scoped := map[string]map[string]LabelType{}
		block := r.Block()
		if block == nil {
			continue
		}
		for _, alt := range block.ChildrenOfKind(spec.KindAlt) {
			scope := ""
			if r.HasAltLabels() {
				scope = alt.AltLabel
			}
			space := scoped[scope]
			if space == nil {
				space = map[string]LabelType{}
				scoped[scope] = space
			}
			spec.Walk(alt, func(n *spec.Node) bool {
				if n.Label == "" {
					return true
				}
				name := n.Label
				lp := labelPos(n)
				lt := labelTypeOf(n)

				if g.Rule(name) != nil {
					g.mgr.Emit(issue.CodeLabelConflictsWithRule, g.fileName, lp, name)
				}
				if _, ok := declaredTokens[name]; ok {
					g.mgr.Emit(issue.CodeLabelConflictsWithToken, g.fileName, lp, name)
				}
				if r.Args.Has(name) {
					g.mgr.Emit(issue.CodeLabelConflictsWithArg, g.fileName, lp, name)
				}
				if r.Retvals.Has(name) {
					g.mgr.Emit(issue.CodeLabelConflictsWithRetval, g.fileName, lp, name)
				}
				if r.Locals.Has(name) {
					g.mgr.Emit(issue.CodeLabelConflictsWithLocal, g.fileName, lp, name)
				}
				if prev, ok := space[name]; ok && prev != lt {
					g.mgr.Emit(issue.CodeLabelTypeConflict, g.fileName, lp, name, prev)
				} else {
					space[name] = lt
				}
				return true
			})
		}
	}
}

// declaredTokenNames gathers the token names known before type assignment:
// tokens{} entries and lexer rule names.
func (g *Grammar) declaredTokenNames() map[string]struct{} {
	names := map[string]struct{}{}
	for _, blk := range g.AST.ChildrenOfKind(spec.KindTokens) {
		for _, tok := range blk.Children {
			names[tok.Text] = struct{}{}
		}
	}
	for _, r := range g.Rules() {
		if r.IsLexerRule() {
			names[r.Name] = struct{}{}
		}
	}
	if g.implicitLexer != nil {
		for _, r := range g.implicitLexer.Rules() {
			names[r.Name] = struct{}{}
		}
	}
	return names
}

// checkRuleRefs resolves every rule reference and validates call-site
// arguments against the callee's parameters.
func (g *Grammar) checkRuleRefs(col *collection) {
	if g.Type == spec.GrammarTypeLexer {
		declared := g.declaredTokenNames()
		for _, ref := range col.tokenRefs {
			if ref.Text == "EOF" {
				continue
			}
			if _, ok := declared[ref.Text]; !ok {
				g.mgr.Emit(issue.CodeUndefinedRuleRef, g.fileName, pos(ref), ref.Text)
			}
		}
	}
	for _, site := range col.ruleRefs {
		callee := g.Rule(site.node.Text)
		if callee == nil {
			g.mgr.Emit(issue.CodeUndefinedRuleRef, g.fileName, pos(site.node), site.node.Text)
			continue
		}
		if site.rule.IsLexerRule() && !callee.IsLexerRule() {
			g.mgr.Emit(issue.CodeRuleRefInLexerRule, g.fileName, pos(site.node),
				callee.Name, site.rule.Name)
			continue
		}
		hasArgs := site.node.ArgAction != ""
		if hasArgs && callee.Args.Len() == 0 {
			g.mgr.Emit(issue.CodeRuleHasNoArgs, g.fileName, pos(site.node), callee.Name)
		}
		if !hasArgs && callee.Args.Len() > 0 {
			g.mgr.Emit(issue.CodeMissingRuleArgs, g.fileName, pos(site.node), callee.Name)
		}
	}
}
