package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// LexerChecks bundles passes 8, 9 and 11: mode conflicts, empty modes,
// unreachable literal tokens, command references, ranges that probably
// don't mean what they say, and the epsilon-token warning.
func LexerChecks(g *Grammar) {
	if g.Type != spec.GrammarTypeLexer {
		return
	}
	g.checkModeConflicts()
	g.checkModesNotEmpty()
	g.checkUnreachableTokens()
	g.checkLexerCommandRefs()
	g.checkRanges()
	g.checkEpsilonTokens()
}

func (g *Grammar) checkModeConflicts() {
	tokens := g.declaredTokenNames()
	for _, m := range g.AST.ChildrenOfKind(spec.KindMode) {
		if _, reserved := commonConstants[m.Text]; reserved {
			g.mgr.Emit(issue.CodeModeConflictsWithCommonConstants, g.fileName, pos(m), m.Text)
			continue
		}
		if _, isToken := tokens[m.Text]; isToken {
			g.mgr.Emit(issue.CodeModeConflictsWithToken, g.fileName, pos(m), m.Text)
		}
	}
}

// checkModesNotEmpty flags declared modes containing no non-fragment rule;
// a lexer can never leave useful tokens in them.
func (g *Grammar) checkModesNotEmpty() {
	for _, m := range g.AST.ChildrenOfKind(spec.KindMode) {
		empty := true
		for _, r := range m.ChildrenOfKind(spec.KindRule) {
			if !r.Fragment {
				empty = false
				break
			}
		}
		if empty {
			g.mgr.Emit(issue.CodeModeWithoutRules, g.fileName, pos(m), m.Text)
		}
	}
}

// checkUnreachableTokens collects, per mode, the constant strings each
// non-fragment rule matches; a string repeated by a later rule (or a later
// alternative of the same rule) can never be tokenized as that rule.
func (g *Grammar) checkUnreachableTokens() {
	type literalDef struct {
		rule *Rule
		node *spec.Node
	}
	perMode := map[string]map[string]literalDef{}

	for _, r := range g.Rules() {
		if r.IsFragment {
			continue
		}
		defs := perMode[r.Mode]
		if defs == nil {
			defs = map[string]literalDef{}
			perMode[r.Mode] = defs
		}
		seenInRule := map[string]struct{}{}
		block := r.Block()
		if block == nil {
			continue
		}
		for _, alt := range block.ChildrenOfKind(spec.KindAlt) {
			lit, ok := constantAltString(alt)
			if !ok {
				continue
			}
			if prev, shadowed := defs[lit]; shadowed {
				g.mgr.Emit(issue.CodeTokenUnreachable, g.fileName, pos(alt),
					r.Name, r.Name+"."+lit, prev.rule.Name)
				continue
			}
			if _, dup := seenInRule[lit]; dup {
				g.mgr.Emit(issue.CodeTokenUnreachable, g.fileName, pos(alt),
					r.Name, r.Name+"."+lit, r.Name)
				continue
			}
			seenInRule[lit] = struct{}{}
			defs[lit] = literalDef{rule: r, node: alt}
		}
	}
}

// constantAltString concatenates an alternative made purely of string
// literals. Alternatives containing anything else are skipped.
func constantAltString(alt *spec.Node) (string, bool) {
	s := ""
	for _, c := range alt.Children {
		switch c.Kind {
		case spec.KindStringLiteral:
			s += c.Text
		case spec.KindLexerCommands:
		default:
			return "", false
		}
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// checkLexerCommandRefs resolves type(X), channel(X), mode(X), and
// pushMode(X) arguments against the symbol tables built by the earlier
// passes.
func (g *Grammar) checkLexerCommandRefs() {
	for _, r := range g.Rules() {
		spec.Walk(r.AST, func(n *spec.Node) bool {
			if n.Kind != spec.KindLexerCommand || n.Value == "" {
				return true
			}
			arg := n.Value
			switch n.Text {
			case "type":
				if _, ok := g.tokenNameToType[arg]; !ok {
					g.mgr.Emit(issue.CodeUndefinedTokenInCommand, g.fileName, pos(n), arg)
				}
			case "channel":
				if g.ChannelValue(arg) < 0 {
					g.mgr.Emit(issue.CodeUndefinedChannelInCommand, g.fileName, pos(n), arg)
				}
			case "mode", "pushMode":
				if !g.HasMode(arg) {
					g.mgr.Emit(issue.CodeUndefinedModeInCommand, g.fileName, pos(n), arg)
				}
			}
			return true
		})
	}
}

// checkRanges warns about bounds straddling letter case classes, the usual
// sign that A..g meant A..G or a..g.
func (g *Grammar) checkRanges() {
	for _, r := range g.Rules() {
		spec.Walk(r.AST, func(n *spec.Node) bool {
			if n.Kind != spec.KindRange {
				return true
			}
			lo, hi := n.Lo, n.Hi
			loLower := lo >= 'a' && lo <= 'z'
			loUpper := lo >= 'A' && lo <= 'Z'
			hiLower := hi >= 'a' && hi <= 'z'
			hiUpper := hi >= 'A' && hi <= 'Z'
			if (loLower && hiUpper) || (loUpper && hiLower) {
				g.mgr.Emit(issue.CodeRangeProbablyContainsNotImpliedCharacters,
					g.fileName, pos(n), string(lo), string(hi))
			}
			return true
		})
	}
}

// checkEpsilonTokens warns about non-fragment rules that can match the
// empty string; the lexer would loop on them.
func (g *Grammar) checkEpsilonTokens() {
	for _, r := range g.Rules() {
		if r.IsFragment {
			continue
		}
		block := r.Block()
		if block == nil {
			continue
		}
		if g.blockCanMatchEmpty(block, map[string]struct{}{r.Name: {}}) {
			g.mgr.Emit(issue.CodeEpsilonToken, g.fileName, pos(r.AST), r.Name)
		}
	}
}

func (g *Grammar) blockCanMatchEmpty(block *spec.Node, busy map[string]struct{}) bool {
	for _, alt := range block.ChildrenOfKind(spec.KindAlt) {
		if g.altCanMatchEmpty(alt, busy) {
			return true
		}
	}
	return false
}

func (g *Grammar) altCanMatchEmpty(alt *spec.Node, busy map[string]struct{}) bool {
	for _, c := range alt.Children {
		if !g.elementCanMatchEmpty(c, busy) {
			return false
		}
	}
	return true
}

func (g *Grammar) elementCanMatchEmpty(n *spec.Node, busy map[string]struct{}) bool {
	switch n.Kind {
	case spec.KindOptional, spec.KindClosure:
		return true
	case spec.KindAction, spec.KindPredicate, spec.KindLexerCommands:
		return true
	case spec.KindPositiveClosure:
		return g.elementCanMatchEmpty(n.Children[0], busy)
	case spec.KindBlock:
		return g.blockCanMatchEmpty(n, busy)
	case spec.KindTerminal:
		callee := g.Rule(n.Text)
		if callee == nil {
			return false
		}
		if _, cyclic := busy[callee.Name]; cyclic {
			return false
		}
		busy[callee.Name] = struct{}{}
		defer delete(busy, callee.Name)
		block := callee.Block()
		return block != nil && g.blockCanMatchEmpty(block, busy)
	}
	return false
}

// CheckCaseInsensitiveOptions is pass 10 and runs for every grammar type:
// the option's value must be boolean, a rule-level value equal to the
// global one is redundant, and the rule-level form only means something on
// lexer rules.
func CheckCaseInsensitiveOptions(g *Grammar) {
	if v, ok := g.grammarOption("caseInsensitive"); ok {
		if v != "true" && v != "false" {
			g.mgr.Emit(issue.CodeIllegalOptionValue, g.fileName,
				pos(g.AST), "caseInsensitive", v)
		}
	}
	for _, r := range g.Rules() {
		v, ok := r.AST.Option("caseInsensitive")
		if !ok {
			continue
		}
		if !r.IsLexerRule() {
			g.mgr.Emit(issue.CodeCaseInsensitiveOptionOnParserRule, g.fileName,
				pos(r.AST), r.Name)
			continue
		}
		if v != "true" && v != "false" {
			g.mgr.Emit(issue.CodeIllegalOptionValue, g.fileName,
				pos(r.AST), "caseInsensitive", v)
			continue
		}
		if (v == "true") == g.caseInsensitive {
			g.mgr.Emit(issue.CodeRedundantCaseInsensitiveLexerRuleOption,
				g.fileName, pos(r.AST), v)
		}
	}
}
