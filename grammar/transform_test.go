package grammar

import (
	"strings"
	"testing"

	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

func parseSrc(t *testing.T, src string) *spec.Node {
	t.Helper()
	root, err := spec.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected syntax error: %v", err)
	}
	return root
}

func TestMergeImports(t *testing.T) {
	root := parseSrc(t, `
parser grammar Root;
tokens{A}
a : A;
`)
	del := parseSrc(t, `
parser grammar Del;
tokens{B}
a : B B;
b : B;
`)
	mgr := issue.NewManager()
	MergeImports(root, []*spec.Node{del}, "", mgr)

	g := New(root, "", mgr)
	if g.Rule("b") == nil {
		t.Errorf("rule b was not merged")
	}
	// The root's a wins.
	a := g.Rule("a")
	alt := a.Block().ChildrenOfKind(spec.KindAlt)[0]
	if len(alt.Children) != 1 {
		t.Errorf("root rule a was overwritten by the delegate")
	}

	tokensBlocks := root.ChildrenOfKind(spec.KindTokens)
	if len(tokensBlocks) != 1 {
		t.Fatalf("got %v tokens blocks, want 1", len(tokensBlocks))
	}
	var names []string
	for _, tok := range tokensBlocks[0].Children {
		names = append(names, tok.Text)
	}
	if strings.Join(names, ",") != "A,B" {
		t.Errorf("merged tokens: got %v, want A,B", names)
	}
}

func TestMergeImportsChannelsAndModes(t *testing.T) {
	root := parseSrc(t, `
lexer grammar Root;
channels{C1}
A : 'a';
mode M;
X : 'x';
`)
	del := parseSrc(t, `
lexer grammar Del;
channels{C1, C2}
B : 'b';
mode M;
X : 'zzz';
Y : 'y';
mode EMPTYAFTER;
A : 'dropped';
`)
	mgr := issue.NewManager()
	MergeImports(root, []*spec.Node{del}, "", mgr)
	g := New(root, "", mgr)

	if g.Rule("B") == nil || g.Rule("Y") == nil {
		t.Errorf("delegate rules were not merged")
	}
	if g.Rule("Y") != nil && g.Rule("Y").Mode != "M" {
		t.Errorf("Y merged into mode %v, want M", g.Rule("Y").Mode)
	}
	// A delegate mode whose rules all conflict is not added.
	if g.HasMode("EMPTYAFTER") {
		t.Errorf("empty merged mode must not be added")
	}

	ch := root.FirstChildOfKind(spec.KindChannels)
	if len(ch.Children) != 2 {
		t.Errorf("channels merged to %v entries, want 2 (deduped)", len(ch.Children))
	}
}

func TestMergeImportsOptionConflictWarns(t *testing.T) {
	root := parseSrc(t, `
parser grammar Root;
options{language=Go;}
a : A;
`)
	del := parseSrc(t, `
parser grammar Del;
options{language=Java;}
b : A;
`)
	mgr := issue.NewManager()
	MergeImports(root, []*spec.Node{del}, "", mgr)
	if n := len(mgr.IssuesByCode(issue.CodeOptionsInDelegate)); n != 1 {
		t.Errorf("got %v OPTIONS_IN_DELEGATE, want 1", n)
	}
}

func TestMergeImportsActionConcatenation(t *testing.T) {
	root := parseSrc(t, `
parser grammar Root;
@members { int rootSide; }
a : A;
`)
	del := parseSrc(t, `
parser grammar Del;
@members { int delSide; }
b : A;
`)
	mgr := issue.NewManager()
	MergeImports(root, []*spec.Node{del}, "", mgr)
	g := New(root, "", mgr)

	act := g.NamedAction("", "members")
	if act == nil {
		t.Fatalf("members action missing after merge")
	}
	body := act.FirstChildOfKind(spec.KindAction).Text
	if !strings.Contains(body, "rootSide") || !strings.Contains(body, "delSide") {
		t.Errorf("bodies were not concatenated: %q", body)
	}
	if n := len(mgr.IssuesByCode(issue.CodeActionRedefinition)); n != 0 {
		t.Errorf("cross-grammar action merge must not be a redefinition")
	}
}

func TestExtractImplicitLexer(t *testing.T) {
	g, mgr := processSrc(t, `
grammar Expr;
options { superClass=Base; caseInsensitive=false; }
expr : expr '*' expr | 'if' expr | INT;
INT : [0-9]+;
WS : ' ' -> skip;
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	lex := g.ImplicitLexer()
	if lex == nil {
		t.Fatalf("no implicit lexer for a combined grammar")
	}
	if lex.Name != "ExprLexer" {
		t.Errorf("lexer name: got %v", lex.Name)
	}
	if lex.Rule("INT") == nil || lex.Rule("WS") == nil {
		t.Errorf("lexer rules were not moved")
	}
	if g.Rule("INT") != nil {
		t.Errorf("INT still in the parser half")
	}

	// Generated literal rules appear before the moved rules and alias the
	// parser's literals.
	var ruleNames []string
	for _, r := range lex.Rules() {
		ruleNames = append(ruleNames, r.Name)
	}
	if len(ruleNames) < 4 || !strings.HasPrefix(ruleNames[0], "T__") {
		t.Fatalf("generated literal rules must come first: %v", ruleNames)
	}
	if lex.GetStringLiteralType("*") == 0 || lex.GetStringLiteralType("if") == 0 {
		t.Errorf("parser literals got no lexer types")
	}
	// Options propagate minus the blacklist.
	if _, ok := lex.AST.ChildrenOfKind(spec.KindOptions)[0].Option("superClass"); ok {
		t.Errorf("superClass must not propagate into the lexer")
	}

	// The parser half sees the lexer's vocabulary.
	if g.GetStringLiteralType("if") != lex.GetStringLiteralType("if") {
		t.Errorf("parser and lexer disagree on 'if': %v vs %v",
			g.GetStringLiteralType("if"), lex.GetStringLiteralType("if"))
	}
}

func TestExtractImplicitLexerKeepsExistingAlias(t *testing.T) {
	g, mgr := processSrc(t, `
grammar T;
a : 'if' ID;
IF : 'if';
ID : [a-z]+;
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	lex := g.ImplicitLexer()
	for _, r := range lex.Rules() {
		if strings.HasPrefix(r.Name, "T__") {
			t.Errorf("generated rule %v despite existing alias IF", r.Name)
		}
	}
	if g.GetStringLiteralType("if") != g.GetTokenType("IF") {
		t.Errorf("'if' should resolve to IF's type")
	}
}

func TestBlockSetReduction(t *testing.T) {
	g, mgr := processSrc(t, `
parser grammar P;
tokens{A, B, C}
a : x=(A | B | C);
b : (A | B) C;
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}

	findKinds := func(rule string, kind spec.NodeKind) []*spec.Node {
		var out []*spec.Node
		spec.Walk(g.Rule(rule).AST, func(n *spec.Node) bool {
			if n.Kind == kind {
				out = append(out, n)
			}
			return true
		})
		return out
	}

	setsA := findKinds("a", spec.KindSet)
	if len(setsA) != 1 {
		t.Fatalf("rule a: got %v set nodes, want 1", len(setsA))
	}
	if setsA[0].Label != "x" {
		t.Errorf("label lost in reduction: %q", setsA[0].Label)
	}
	if len(setsA[0].Children) != 3 {
		t.Errorf("set has %v members, want 3", len(setsA[0].Children))
	}

	if sets := findKinds("b", spec.KindSet); len(sets) != 1 {
		t.Errorf("rule b: got %v set nodes, want 1", len(sets))
	}
}

func TestLeftRecursionElimination(t *testing.T) {
	g, mgr := processSrc(t, `
grammar E;
e : e '*' e
  | e '+' e
  | INT
  ;
INT : [0-9]+;
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	r := g.Rule("e")
	if r.LeftRecursive == nil {
		t.Fatalf("rule e was not rewritten")
	}
	info := r.LeftRecursive
	if len(info.PrimaryAlts) != 1 || len(info.OpAlts) != 2 {
		t.Fatalf("got %v primary / %v op alts, want 1/2",
			len(info.PrimaryAlts), len(info.OpAlts))
	}
	if info.OpAlts[0].Precedence <= info.OpAlts[1].Precedence {
		t.Errorf("earlier alternatives must bind tighter: %v then %v",
			info.OpAlts[0].Precedence, info.OpAlts[1].Precedence)
	}
	if info.PrimaryAlts[0].AltNum != 3 {
		t.Errorf("primary alt: got %v, want 3", info.PrimaryAlts[0].AltNum)
	}

	// The rewritten body is primary ( {p}? op )* in a single alternative.
	if r.NumAlts != 1 {
		t.Errorf("rewritten rule has %v alts, want 1", r.NumAlts)
	}
	var preds []*spec.Node
	spec.Walk(r.AST, func(n *spec.Node) bool {
		if n.Kind == spec.KindPrecPredicate {
			preds = append(preds, n)
		}
		return true
	})
	if len(preds) != 2 {
		t.Errorf("got %v precedence predicates, want 2", len(preds))
	}

	// No left-recursion cycle remains.
	if n := len(mgr.IssuesByCode(issue.CodeLeftRecursionCycles)); n != 0 {
		t.Errorf("rewritten rule still reported as cyclic")
	}
}

func TestLeftRecursionAssocOption(t *testing.T) {
	g, mgr := processSrc(t, `
grammar E;
e : e '^'<assoc=right> e
  | e '+' e
  | INT
  ;
INT : [0-9]+;
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	info := g.Rule("e").LeftRecursive
	if info.OpAlts[0].Assoc != AssocRight {
		t.Errorf("alt 1: got %v, want right", info.OpAlts[0].Assoc)
	}
	if info.OpAlts[1].Assoc != AssocLeft {
		t.Errorf("alt 2: got %v, want left", info.OpAlts[1].Assoc)
	}
}

func TestIndirectLeftRecursionReported(t *testing.T) {
	_, mgr := processSrc(t, `
grammar T;
a : b X;
b : a Y | Y;
X : 'x';
Y : 'y';
`)
	if n := len(mgr.IssuesByCode(issue.CodeLeftRecursionCycles)); n == 0 {
		t.Errorf("mutual left recursion was not reported")
	}
}

func TestSanityCheckParentAndChildIndexes(t *testing.T) {
	root := parseSrc(t, `
grammar T;
a : A | B;
A : 'a';
B : 'b';
`)
	var bad int
	spec.Walk(root, func(n *spec.Node) bool {
		for i, c := range n.Children {
			if c.Parent != n || c.ChildIndex != i {
				bad++
			}
		}
		return true
	})
	if bad != 0 {
		t.Errorf("%v nodes with broken parent/child links after parse", bad)
	}

	// Break links on purpose; the sanity pass restores them.
	a := root.ChildrenOfKind(spec.KindRule)[0]
	a.Children[0].Parent = nil
	a.Children[0].ChildIndex = 99
	root.SanityCheckParentAndChildIndexes()
	if a.Children[0].Parent != a || a.Children[0].ChildIndex != 0 {
		t.Errorf("sanity check did not restore links")
	}
}
