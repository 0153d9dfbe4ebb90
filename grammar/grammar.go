package grammar

import (
	"fmt"
	"strings"

	"github.com/ternbird/tern/atn"
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// Predefined channels. User channels are numbered from ChannelMinUser.
const (
	ChannelDefault = 0
	ChannelHidden  = 1
	ChannelMinUser = 2
)

// commonConstants are runtime names a grammar must not repurpose for its
// own channels, modes, or rules.
var commonConstants = map[string]struct{}{
	"HIDDEN":                {},
	"SKIP":                  {},
	"MORE":                  {},
	"EOF":                   {},
	"DEFAULT_TOKEN_CHANNEL": {},
	"DEFAULT_MODE":          {},
	"MAX_CHAR_VALUE":        {},
	"MIN_CHAR_VALUE":        {},
}

// DefaultModeName is the implicit first lexer mode.
const DefaultModeName = "DEFAULT_MODE"

// Grammar is one grammar's full compile-time model: its AST, rule table,
// token/channel/mode symbol tables, imported grammars, and, once built,
// its ATN and decision lookahead.
type Grammar struct {
	Name     string
	Type     spec.GrammarType
	AST      *spec.Node
	fileName string

	mgr *issue.Manager

	rules    map[string]*Rule
	ruleList []*Rule

	tokenNameToType     map[string]int
	stringLiteralToType map[string]int
	typeToTokenName     []string
	typeToStringLiteral []string
	maxTokenType        int

	channelNameToValue map[string]int
	channelValueToName []string

	modes []string

	// namedActions maps scope then action name to its body node. The
	// default scope is the grammar type's target scope.
	namedActions map[string]map[string]*spec.Node

	sempreds      map[*spec.Node]int
	sempredList   []*spec.Node
	actions       map[*spec.Node]int
	actionList    []*spec.Node

	// stringLiteralRules maps an aliased literal to the lexer rule that
	// defines it (X : 'literal' ;).
	stringLiteralRules map[string]string

	implicitLexer    *Grammar
	importedGrammars []*Grammar
	parent           *Grammar

	ATN               *atn.ATN
	DecisionLookahead [][]*atn.IntervalSet
	LL1               []bool

	caseInsensitive bool
	implicitTokenNum int
}

// New builds the grammar object for a parsed AST and collects its rules.
// This is pass 1 of the semantic pipeline; everything else happens in
// Compile.
func New(root *spec.Node, fileName string, mgr *issue.Manager) *Grammar {
	g := &Grammar{
		Name:     root.Text,
		Type:     root.GrammarType,
		AST:      root,
		fileName: fileName,
		mgr:      mgr,

		rules: map[string]*Rule{},

		tokenNameToType:     map[string]int{},
		stringLiteralToType: map[string]int{},
		typeToTokenName:     []string{""},
		typeToStringLiteral: []string{""},

		channelNameToValue: map[string]int{},
		channelValueToName: make([]string, ChannelMinUser),

		namedActions: map[string]map[string]*spec.Node{},

		sempreds: map[*spec.Node]int{},
		actions:  map[*spec.Node]int{},

		stringLiteralRules: map[string]string{},
	}
	g.tokenNameToType["EOF"] = atn.TokenEOF
	g.channelValueToName[ChannelDefault] = "DEFAULT_TOKEN_CHANNEL"
	g.channelValueToName[ChannelHidden] = "HIDDEN"

	if v, ok := g.grammarOption("caseInsensitive"); ok {
		g.caseInsensitive = v == "true"
	}

	g.collectRules()
	g.collectNamedActions()
	return g
}

func (g *Grammar) grammarOption(key string) (string, bool) {
	for _, opts := range g.AST.ChildrenOfKind(spec.KindOptions) {
		if v, ok := opts.Option(key); ok {
			return v, true
		}
	}
	return "", false
}

// collectRules numbers every rule in declaration order, keeping the mode a
// lexer rule was declared in.
func (g *Grammar) collectRules() {
	define := func(ruleNode *spec.Node, mode string) {
		name := ruleNode.Text
		if prev, ok := g.rules[name]; ok {
			g.mgr.Emit(issue.CodeRuleRedefinition, g.fileName,
				pos(ruleNode), name, prev.AST.Pos.Row)
			return
		}
		r := newRule(g, ruleNode, mode)
		r.Index = len(g.ruleList)
		g.rules[name] = r
		g.ruleList = append(g.ruleList, r)
	}

	g.modes = nil
	if g.Type != spec.GrammarTypeParser {
		g.modes = append(g.modes, DefaultModeName)
	}
	for _, c := range g.AST.Children {
		switch c.Kind {
		case spec.KindRule:
			mode := ""
			if isLexerRuleName(c.Text) {
				mode = DefaultModeName
			}
			define(c, mode)
		case spec.KindMode:
			g.defineMode(c.Text)
			for _, rc := range c.ChildrenOfKind(spec.KindRule) {
				define(rc, c.Text)
			}
		}
	}
	if len(g.ruleList) > 0 {
		g.ruleList[0].IsStartRule = true
	}
}

func (g *Grammar) defineMode(name string) {
	for _, m := range g.modes {
		if m == name {
			return
		}
	}
	g.modes = append(g.modes, name)
}

func (g *Grammar) collectNamedActions() {
	for _, act := range g.AST.ChildrenOfKind(spec.KindNamedAction) {
		scope := act.Scope
		if scope == "" {
			scope = g.defaultActionScope()
		}
		byName := g.namedActions[scope]
		if byName == nil {
			byName = map[string]*spec.Node{}
			g.namedActions[scope] = byName
		}
		if prev, ok := byName[act.Text]; ok {
			if prev.Origin == act.Origin {
				g.mgr.Emit(issue.CodeActionRedefinition, g.fileName, pos(act), act.Text)
				continue
			}
			// Same action contributed by a different grammar: concatenate
			// the bodies inside one block.
			prevBody := prev.FirstChildOfKind(spec.KindAction)
			body := act.FirstChildOfKind(spec.KindAction)
			if prevBody != nil && body != nil {
				prevBody.Text = prevBody.Text + "\n" + body.Text
			}
			continue
		}
		byName[act.Text] = act
	}
}

func (g *Grammar) defaultActionScope() string {
	if g.Type == spec.GrammarTypeLexer {
		return "lexer"
	}
	return "parser"
}

// NamedAction returns the body of a named action, or nil.
func (g *Grammar) NamedAction(scope, name string) *spec.Node {
	if scope == "" {
		scope = g.defaultActionScope()
	}
	return g.namedActions[scope][name]
}

func isLexerRuleName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// Rules returns the rule list in index order.
func (g *Grammar) Rules() []*Rule {
	return g.ruleList
}

// Rule looks a rule up by name.
func (g *Grammar) Rule(name string) *Rule {
	return g.rules[name]
}

// RemoveRule deletes a rule and renumbers the ones after it.
func (g *Grammar) RemoveRule(r *Rule) {
	delete(g.rules, r.Name)
	out := g.ruleList[:0]
	for _, x := range g.ruleList {
		if x == r {
			continue
		}
		x.Index = len(out)
		out = append(out, x)
	}
	g.ruleList = out
}

// DefineTokenName assigns the next token type to name, or returns the
// existing assignment.
func (g *Grammar) DefineTokenName(name string) int {
	if t, ok := g.tokenNameToType[name]; ok {
		return t
	}
	g.maxTokenType++
	t := g.maxTokenType
	g.tokenNameToType[name] = t
	g.growTypeTables()
	g.typeToTokenName[t] = name
	return t
}

// DefineStringLiteral assigns the next token type to a literal, or returns
// the existing assignment.
func (g *Grammar) DefineStringLiteral(lit string) int {
	if t, ok := g.stringLiteralToType[lit]; ok {
		return t
	}
	g.maxTokenType++
	t := g.maxTokenType
	g.stringLiteralToType[lit] = t
	g.growTypeTables()
	g.typeToStringLiteral[t] = lit
	return t
}

// DefineTokenAlias ties a literal to an already- or newly-defined token
// name so both resolve to one type.
func (g *Grammar) DefineTokenAlias(name, lit string) int {
	t := g.DefineTokenName(name)
	g.stringLiteralToType[lit] = t
	g.growTypeTables()
	g.typeToStringLiteral[t] = lit
	return t
}

// UndefineStringLiteral drops a literal's alias after an ambiguity was
// detected; the token name keeps the type.
func (g *Grammar) UndefineStringLiteral(lit string) {
	t, ok := g.stringLiteralToType[lit]
	if !ok {
		return
	}
	delete(g.stringLiteralToType, lit)
	if t < len(g.typeToStringLiteral) {
		g.typeToStringLiteral[t] = ""
	}
}

func (g *Grammar) growTypeTables() {
	for len(g.typeToTokenName) <= g.maxTokenType {
		g.typeToTokenName = append(g.typeToTokenName, "")
	}
	for len(g.typeToStringLiteral) <= g.maxTokenType {
		g.typeToStringLiteral = append(g.typeToStringLiteral, "")
	}
}

// ImportTokenTypes copies another grammar's token assignments, used to feed
// the implicit lexer's vocabulary back into the parser half of a combined
// grammar.
func (g *Grammar) ImportTokenTypes(from *Grammar) {
	for name, t := range from.tokenNameToType {
		if name == "EOF" {
			continue
		}
		g.tokenNameToType[name] = t
	}
	for lit, t := range from.stringLiteralToType {
		g.stringLiteralToType[lit] = t
	}
	if from.maxTokenType > g.maxTokenType {
		g.maxTokenType = from.maxTokenType
	}
	g.growTypeTables()
	for t := 1; t <= from.maxTokenType; t++ {
		if from.typeToTokenName[t] != "" {
			g.typeToTokenName[t] = from.typeToTokenName[t]
		}
		if from.typeToStringLiteral[t] != "" {
			g.typeToStringLiteral[t] = from.typeToStringLiteral[t]
		}
	}
}

// ApplyTokenVocab seeds the token tables from a parsed .tokens file.
func (g *Grammar) ApplyTokenVocab(vocab map[string]int) {
	for name, t := range vocab {
		if strings.HasPrefix(name, "'") {
			g.stringLiteralToType[strings.Trim(name, "'")] = t
		} else {
			g.tokenNameToType[name] = t
		}
		if t > g.maxTokenType {
			g.maxTokenType = t
		}
	}
	g.growTypeTables()
	for name, t := range vocab {
		if strings.HasPrefix(name, "'") {
			g.typeToStringLiteral[t] = strings.Trim(name, "'")
		} else {
			g.typeToTokenName[t] = name
		}
	}
}

// GetTokenType resolves a token name, atn.TokenInvalid when undefined.
func (g *Grammar) GetTokenType(name string) int {
	if t, ok := g.tokenNameToType[name]; ok {
		return t
	}
	return atn.TokenInvalid
}

// GetStringLiteralType resolves a literal, atn.TokenInvalid when undefined.
func (g *Grammar) GetStringLiteralType(lit string) int {
	if t, ok := g.stringLiteralToType[lit]; ok {
		return t
	}
	return atn.TokenInvalid
}

// TokenDisplayName renders a token type for reports: symbolic name first,
// then literal, then the raw number.
func (g *Grammar) TokenDisplayName(ttype int) string {
	if ttype == atn.TokenEOF {
		return "EOF"
	}
	if ttype >= 1 && ttype <= g.maxTokenType {
		if g.typeToTokenName[ttype] != "" {
			return g.typeToTokenName[ttype]
		}
		if g.typeToStringLiteral[ttype] != "" {
			return fmt.Sprintf("'%v'", g.typeToStringLiteral[ttype])
		}
	}
	return fmt.Sprintf("%v", ttype)
}

// DefineChannel assigns the next channel number, or returns the existing
// one.
func (g *Grammar) DefineChannel(name string) int {
	if v, ok := g.channelNameToValue[name]; ok {
		return v
	}
	v := len(g.channelValueToName)
	g.channelNameToValue[name] = v
	g.channelValueToName = append(g.channelValueToName, name)
	return v
}

// ChannelValue resolves a channel name, including the predefined ones;
// -1 when unknown.
func (g *Grammar) ChannelValue(name string) int {
	switch name {
	case "DEFAULT_TOKEN_CHANNEL":
		return ChannelDefault
	case "HIDDEN":
		return ChannelHidden
	}
	if v, ok := g.channelNameToValue[name]; ok {
		return v
	}
	return -1
}

// ModeNames lists the grammar's lexer modes in declaration order.
func (g *Grammar) ModeNames() []string {
	return g.modes
}

func (g *Grammar) HasMode(name string) bool {
	for _, m := range g.modes {
		if m == name {
			return true
		}
	}
	return false
}

// MaxTokenType returns the highest assigned token type.
func (g *Grammar) MaxTokenType() int {
	return g.maxTokenType
}

// FileName returns the source file the grammar came from.
func (g *Grammar) FileName() string {
	return g.fileName
}

// RecollectRules rebuilds the rule table after a transform moved rules in
// or out of the AST.
func (g *Grammar) RecollectRules() {
	g.rules = map[string]*Rule{}
	g.ruleList = nil
	g.collectRules()
}

// TokenNames returns typeToTokenName; index 0 is the reserved invalid
// entry.
func (g *Grammar) TokenNames() []string {
	return g.typeToTokenName
}

// StringLiterals returns typeToStringLiteral.
func (g *Grammar) StringLiterals() []string {
	return g.typeToStringLiteral
}

// ChannelNames returns channelValueToName.
func (g *Grammar) ChannelNames() []string {
	return g.channelValueToName
}

// ImplicitLexer returns the lexer extracted from a combined grammar, nil
// otherwise.
func (g *Grammar) ImplicitLexer() *Grammar {
	return g.implicitLexer
}

// ImportedGrammars returns the delegates merged into this grammar.
func (g *Grammar) ImportedGrammars() []*Grammar {
	return g.importedGrammars
}

func (g *Grammar) Issues() *issue.Manager {
	return g.mgr
}

func pos(n *spec.Node) issue.Position {
	return issue.NewPosition(n.Pos.Row, n.Pos.Col)
}

func labelPos(n *spec.Node) issue.Position {
	return issue.NewPosition(n.LabelPos.Row, n.LabelPos.Col)
}
