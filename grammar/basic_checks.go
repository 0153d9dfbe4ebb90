package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// legalGrammarOptions is the closed set of grammar-level options.
var legalGrammarOptions = map[string]struct{}{
	"language":          {},
	"tokenVocab":        {},
	"superClass":        {},
	"TokenLabelType":    {},
	"contextSuperClass": {},
	"caseInsensitive":   {},
	"exportMacro":       {},
	"accessLevel":       {},
}

// legalRuleOptions is the closed set of rule-level options.
var legalRuleOptions = map[string]struct{}{
	"caseInsensitive": {},
}

var lexerCommands = map[string]struct {
	needsArg bool
}{
	"skip":     {needsArg: false},
	"more":     {needsArg: false},
	"popMode":  {needsArg: false},
	"type":     {needsArg: true},
	"channel":  {needsArg: true},
	"mode":     {needsArg: true},
	"pushMode": {needsArg: true},
}

// incompatibleCommands pairs commands that cannot apply to one token.
var incompatibleCommands = map[string][]string{
	"skip": {"more", "type", "channel"},
	"more": {"skip", "type", "channel"},
}

// BasicChecks is pass 2: prequel shape, option legality, naming rules, and
// lexer-command sanity. It needs nothing but the AST and the rule table.
func BasicChecks(g *Grammar) {
	g.checkRepeatedPrequels()
	g.checkGrammarOptions()
	g.checkTokensBlockNames()
	g.checkChannelsBlockPlacement()
	g.checkRuleOptions()
	g.checkLexerCommands()
	g.checkModePlacement()
}

func (g *Grammar) checkRepeatedPrequels() {
	counts := map[spec.NodeKind][]*spec.Node{}
	for _, c := range g.AST.Children {
		switch c.Kind {
		case spec.KindOptions, spec.KindTokens, spec.KindChannels, spec.KindImport:
			counts[c.Kind] = append(counts[c.Kind], c)
		}
	}
	for kind, nodes := range counts {
		if len(nodes) < 2 {
			continue
		}
		for _, n := range nodes {
			g.mgr.Emit(issue.CodeRepeatedPrequel, g.fileName, pos(n), kind)
		}
	}
}

func (g *Grammar) checkGrammarOptions() {
	for _, opts := range g.AST.ChildrenOfKind(spec.KindOptions) {
		for _, opt := range opts.ChildrenOfKind(spec.KindOption) {
			if _, ok := legalGrammarOptions[opt.Text]; !ok {
				g.mgr.Emit(issue.CodeIllegalOption, g.fileName, pos(opt), opt.Text)
			}
		}
	}
}

func (g *Grammar) checkTokensBlockNames() {
	for _, blk := range g.AST.ChildrenOfKind(spec.KindTokens) {
		for _, tok := range blk.Children {
			if !isLexerRuleName(tok.Text) {
				g.mgr.Emit(issue.CodeTokenNamesMustStartUpper, g.fileName, pos(tok), tok.Text)
			}
		}
	}
}

func (g *Grammar) checkChannelsBlockPlacement() {
	if g.Type == spec.GrammarTypeLexer {
		return
	}
	for _, blk := range g.AST.ChildrenOfKind(spec.KindChannels) {
		g.mgr.Emit(issue.CodeChannelsOnlyInLexer, g.fileName, pos(blk))
	}
}

func (g *Grammar) checkReservedRuleNames() {
	for _, r := range g.Rules() {
		if _, reserved := commonConstants[r.Name]; reserved {
			g.mgr.Emit(issue.CodeReservedRuleName, g.fileName, pos(r.AST), r.Name)
		}
	}
}

func (g *Grammar) checkRuleOptions() {
	for _, r := range g.Rules() {
		for key := range r.AST.Opts {
			if _, ok := legalRuleOptions[key]; !ok {
				g.mgr.Emit(issue.CodeIllegalOption, g.fileName, pos(r.AST), key)
			}
		}
	}
}

func (g *Grammar) checkLexerCommands() {
	for _, r := range g.Rules() {
		if !r.IsLexerRule() {
			continue
		}
		spec.Walk(r.AST, func(n *spec.Node) bool {
			if n.Kind != spec.KindLexerCommands {
				return true
			}
			if r.IsFragment {
				g.mgr.Emit(issue.CodeFragmentActionIgnored, g.fileName, pos(n), r.Name)
			}
			seen := map[string]struct{}{}
			for _, cmd := range n.Children {
				def, known := lexerCommands[cmd.Text]
				if !known {
					g.mgr.Emit(issue.CodeInvalidLexerCommand, g.fileName, pos(cmd), cmd.Text)
					continue
				}
				if def.needsArg && cmd.Value == "" {
					g.mgr.Emit(issue.CodeMissingLexerCommandArgument, g.fileName, pos(cmd), cmd.Text)
				}
				if !def.needsArg && cmd.Value != "" {
					g.mgr.Emit(issue.CodeUnwantedLexerCommandArgument, g.fileName, pos(cmd), cmd.Text)
				}
				if _, dup := seen[cmd.Text]; dup {
					g.mgr.Emit(issue.CodeDuplicatedCommand, g.fileName, pos(cmd), cmd.Text)
				}
				for _, other := range incompatibleCommands[cmd.Text] {
					if _, ok := seen[other]; ok {
						g.mgr.Emit(issue.CodeIncompatibleCommands, g.fileName, pos(cmd), cmd.Text, other)
					}
				}
				seen[cmd.Text] = struct{}{}
			}
			return false
		})
	}
}

func (g *Grammar) checkModePlacement() {
	if g.Type == spec.GrammarTypeLexer {
		return
	}
	for _, m := range g.AST.ChildrenOfKind(spec.KindMode) {
		if g.Type == spec.GrammarTypeParser {
			g.mgr.Emit(issue.CodeModeNotInLexer, g.fileName, pos(m), m.Text)
		}
	}
}
