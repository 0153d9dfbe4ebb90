package grammar

import (
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// AssignTokenTypes is pass 6. Lexers number their non-fragment rules and
// alias single-literal rules; parsers number their tokens{} declarations
// and whatever the rules reference, warning about names that were never
// declared.
func AssignTokenTypes(g *Grammar, col *collection) {
	g.defineTokensBlocks()
	if g.Type == spec.GrammarTypeLexer {
		g.defineLexerRuleTokens()
		return
	}
	g.defineParserTokenRefs(col)
}

func (g *Grammar) defineTokensBlocks() {
	for _, blk := range g.AST.ChildrenOfKind(spec.KindTokens) {
		for _, tok := range blk.Children {
			if !isLexerRuleName(tok.Text) {
				// Already reported by the basic checks.
				continue
			}
			if _, exists := g.tokenNameToType[tok.Text]; exists {
				g.mgr.Emit(issue.CodeTokenNameReassignment, g.fileName, pos(tok), tok.Text)
				continue
			}
			g.DefineTokenName(tok.Text)
		}
	}
}

func (g *Grammar) defineLexerRuleTokens() {
	for _, r := range g.Rules() {
		if r.IsFragment {
			continue
		}
		switch ruleCommand(r) {
		case "more", "type":
			// The rule emits some other rule's type; it needs none of
			// its own.
			continue
		}
		r.TokenType = g.DefineTokenName(r.Name)

		if lit, ok := literalAliasOf(r.AST); ok {
			if _, taken := g.stringLiteralRules[lit]; taken {
				// Two rules alias one literal: the alias is ambiguous and
				// is dropped; both keep their symbolic types.
				g.UndefineStringLiteral(lit)
				continue
			}
			g.stringLiteralRules[lit] = r.Name
			g.DefineTokenAlias(r.Name, lit)
		}
	}
}

// ruleCommand returns the first lexer command of the rule's first
// commands group, "" when there is none.
func ruleCommand(r *Rule) string {
	var found string
	spec.Walk(r.AST, func(n *spec.Node) bool {
		if found != "" {
			return false
		}
		if n.Kind == spec.KindLexerCommands && len(n.Children) > 0 {
			found = n.Children[0].Text
			return false
		}
		return true
	})
	return found
}

func (g *Grammar) defineParserTokenRefs(col *collection) {
	for _, ref := range col.tokenRefs {
		if ref.Text == "EOF" {
			continue
		}
		if _, ok := g.tokenNameToType[ref.Text]; ok {
			continue
		}
		g.mgr.Emit(issue.CodeImplicitTokenDefinition, g.fileName, pos(ref), ref.Text)
		g.DefineTokenName(ref.Text)
	}

	for _, ref := range col.stringRefs {
		if _, ok := g.stringLiteralToType[ref.Text]; ok {
			continue
		}
		if g.Type == spec.GrammarTypeParser {
			// A pure parser grammar has no lexer to synthesize the token.
			g.mgr.Emit(issue.CodeImplicitStringDefinition, g.fileName, pos(ref),
				"'"+ref.Text+"'")
			continue
		}
		// Combined grammars get their literal types from the implicit
		// lexer; a missing one means extraction was skipped, so define it
		// here to keep the tables consistent.
		g.DefineStringLiteral(ref.Text)
	}
}
