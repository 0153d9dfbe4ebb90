package grammar

import (
	"path/filepath"
	"strings"

	"github.com/ternbird/tern/analysis"
	"github.com/ternbird/tern/atn"
	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// Resolver loads the collaborators a grammar pulls in by name: imported
// grammars and token-vocabulary files.
type Resolver interface {
	LoadGrammar(name string) (*spec.Node, string, error)
	LoadTokenVocab(name string) (map[string]int, error)
}

// Process runs the full pipeline for a parsed grammar: import merging,
// implicit-lexer extraction for combined grammars (the lexer half is
// compiled first so its vocabulary feeds the parser half), then Compile.
// The resolver may be nil when the grammar stands alone.
func Process(root *spec.Node, fileName string, mgr *issue.Manager, res Resolver) *Grammar {
	if base := grammarBaseName(fileName); base != "" && base != root.Text {
		mgr.Emit(issue.CodeGrammarNameMismatch, fileName,
			issue.NewPosition(root.Pos.Row, root.Pos.Col), root.Text, base)
	}

	delegates := loadImports(root, fileName, mgr, res, map[string]struct{}{root.Text: {}})
	if len(delegates) > 0 {
		MergeImports(root, delegates, fileName, mgr)
	}

	g := New(root, fileName, mgr)
	for _, d := range delegates {
		// Delegates keep their own grammar objects for name-resolution
		// walks; their diagnostics were already reported against the
		// merged root.
		dg := New(d, fileName, issue.NewManager())
		dg.parent = g
		g.importedGrammars = append(g.importedGrammars, dg)
	}

	if res != nil {
		if vocabName, ok := g.grammarOption("tokenVocab"); ok {
			vocab, err := res.LoadTokenVocab(vocabName)
			if err != nil {
				mgr.Emit(issue.CodeCannotReadFile, fileName,
					issue.NewPosition(root.Pos.Row, root.Pos.Col), vocabName, err)
			} else {
				g.ApplyTokenVocab(vocab)
			}
		}
	}

	if g.Type == spec.GrammarTypeCombined {
		if lexAST := ExtractImplicitLexer(g); lexAST != nil {
			g.RecollectRules()
			lg := New(lexAST, fileName, mgr)
			lg.parent = g
			g.implicitLexer = lg
			Compile(lg)
			g.ImportTokenTypes(lg)
		}
	}

	Compile(g)
	return g
}

func grammarBaseName(fileName string) string {
	if fileName == "" {
		return ""
	}
	base := filepath.Base(fileName)
	for _, ext := range []string{".g4", ".g"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return ""
}

// loadImports loads every imported grammar depth-first; a delegate's own
// imports are merged into it before it is handed back. The visiting set
// breaks cycles.
func loadImports(root *spec.Node, fileName string, mgr *issue.Manager, res Resolver, visiting map[string]struct{}) []*spec.Node {
	var delegates []*spec.Node
	for _, imp := range root.ChildrenOfKind(spec.KindImport) {
		for _, ref := range imp.ChildrenOfKind(spec.KindGrammarRef) {
			if _, busy := visiting[ref.Text]; busy {
				continue
			}
			if res == nil {
				mgr.Emit(issue.CodeNoSuchGrammar, fileName, pos(ref), ref.Text)
				continue
			}
			ast, delFile, err := res.LoadGrammar(ref.Text)
			if err != nil {
				mgr.Emit(issue.CodeNoSuchGrammar, fileName, pos(ref), ref.Text)
				continue
			}
			visiting[ref.Text] = struct{}{}
			sub := loadImports(ast, delFile, mgr, res, visiting)
			if len(sub) > 0 {
				MergeImports(ast, sub, delFile, mgr)
			}
			delete(visiting, ref.Text)
			delegates = append(delegates, ast)
		}
	}
	return delegates
}

// Compile runs the fixed-order pipeline on one grammar. Each stage only
// starts when the previous stage added no errors, so a broken early pass
// cannot cascade into spurious later diagnostics.
func Compile(g *Grammar) {
	mgr := g.mgr
	before := mgr.ErrorCount()

	BasicChecks(g)
	if mgr.ErrorCount() > before {
		return
	}

	ReduceBlocksToSets(g)
	EliminateLeftRecursion(g)
	if mgr.ErrorCount() > before {
		return
	}

	col := CollectSymbols(g)
	SymbolChecks(g, col)
	AssignTokenTypes(g, col)
	AssignChannels(g)
	LexerChecks(g)
	CheckCaseInsensitiveOptions(g)
	AttributeChecks(g)
	if mgr.ErrorCount() > before {
		return
	}

	g.ATN = atn.Build(g, mgr)

	g.DecisionLookahead = analysis.DecisionLookahead(g.ATN)
	g.LL1 = make([]bool, len(g.DecisionLookahead))
	for d, altLook := range g.DecisionLookahead {
		g.LL1[d] = analysis.Disjoint(altLook)
	}

	for _, cycle := range analysis.LeftRecursionCycles(g.ATN) {
		names := make([]string, len(cycle))
		for i, ruleIdx := range cycle {
			names[i] = g.ruleList[ruleIdx].Name
		}
		g.mgr.Emit(issue.CodeLeftRecursionCycles, g.fileName,
			pos(g.ruleList[cycle[0]].AST), "["+strings.Join(names, ", ")+"]")
	}
}

// GrammarView implementation; the atn package builds from this surface.

func (g *Grammar) IsLexer() bool {
	return g.Type == spec.GrammarTypeLexer
}

func (g *Grammar) NumRules() int {
	return len(g.ruleList)
}

func (g *Grammar) RuleName(idx int) string {
	return g.ruleList[idx].Name
}

func (g *Grammar) RuleBlock(idx int) *spec.Node {
	return g.ruleList[idx].Block()
}

func (g *Grammar) RuleIsFragment(idx int) bool {
	return g.ruleList[idx].IsFragment
}

func (g *Grammar) RuleIsLeftRecursive(idx int) bool {
	return g.ruleList[idx].LeftRecursive != nil
}

func (g *Grammar) RuleMode(idx int) string {
	return g.ruleList[idx].Mode
}

func (g *Grammar) RuleCaseInsensitive(idx int) bool {
	return g.ruleList[idx].CaseInsensitive()
}

func (g *Grammar) RuleIndexOf(name string) (int, bool) {
	r := g.rules[name]
	if r == nil {
		return 0, false
	}
	return r.Index, true
}

func (g *Grammar) TokenTypeOfRule(idx int) int {
	return g.ruleList[idx].TokenType
}

func (g *Grammar) TokenType(name string) int {
	return g.GetTokenType(name)
}

func (g *Grammar) StringLiteralType(lit string) int {
	return g.GetStringLiteralType(lit)
}

func (g *Grammar) ActionIndex(n *spec.Node) int {
	if idx, ok := g.actions[n]; ok {
		return idx
	}
	g.actions[n] = len(g.actionList)
	g.actionList = append(g.actionList, n)
	return g.actions[n]
}

func (g *Grammar) SempredIndex(n *spec.Node) int {
	if idx, ok := g.sempreds[n]; ok {
		return idx
	}
	g.sempreds[n] = len(g.sempredList)
	g.sempredList = append(g.sempredList, n)
	return g.sempreds[n]
}

func (g *Grammar) LexerCommandActionIndex(n *spec.Node) int {
	return g.ActionIndex(n)
}
