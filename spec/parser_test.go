package spec

import (
	"strings"
	"testing"
)

func parse(t *testing.T, src string) *Node {
	t.Helper()
	root, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected syntax error: %v", err)
	}
	return root
}

func TestParseGrammarDeclarations(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		name    string
		gtype   GrammarType
	}{
		{caption: "combined", src: `grammar T; a : A;`, name: "T", gtype: GrammarTypeCombined},
		{caption: "lexer", src: `lexer grammar L; A : 'a';`, name: "L", gtype: GrammarTypeLexer},
		{caption: "parser", src: `parser grammar P; a : b; b : c; c : A;`, name: "P", gtype: GrammarTypeParser},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			root := parse(t, tt.src)
			if root.Text != tt.name || root.GrammarType != tt.gtype {
				t.Errorf("got %v %v, want %v %v", root.GrammarType, root.Text, tt.gtype, tt.name)
			}
		})
	}
}

func TestParsePrequels(t *testing.T) {
	root := parse(t, `
grammar T;
options { language=Go; k=2; }
tokens { A, B }
channels { WS_CH }
import Base, Extra;
@parser::members { int depth; }
@lexer::init { setup(); }
a : A;
`)
	opts := root.FirstChildOfKind(KindOptions)
	if opts == nil {
		t.Fatalf("no options node")
	}
	if v, _ := opts.Option("language"); v != "Go" {
		t.Errorf("language: got %v", v)
	}
	if v, _ := opts.Option("k"); v != "2" {
		t.Errorf("k: got %v", v)
	}

	toks := root.FirstChildOfKind(KindTokens)
	if toks == nil || len(toks.Children) != 2 {
		t.Fatalf("tokens block malformed: %v", toks)
	}
	if toks.Children[0].Text != "A" || toks.Children[1].Text != "B" {
		t.Errorf("token names: %v %v", toks.Children[0].Text, toks.Children[1].Text)
	}

	if ch := root.FirstChildOfKind(KindChannels); ch == nil || len(ch.Children) != 1 {
		t.Errorf("channels block malformed")
	}

	imp := root.FirstChildOfKind(KindImport)
	if imp == nil || len(imp.Children) != 2 {
		t.Fatalf("import malformed")
	}
	if imp.Children[0].Text != "Base" || imp.Children[1].Text != "Extra" {
		t.Errorf("imports: %v %v", imp.Children[0].Text, imp.Children[1].Text)
	}

	actions := root.ChildrenOfKind(KindNamedAction)
	if len(actions) != 2 {
		t.Fatalf("got %v named actions, want 2", len(actions))
	}
	if actions[0].Scope != "parser" || actions[0].Text != "members" {
		t.Errorf("action 0: %v::%v", actions[0].Scope, actions[0].Text)
	}
	if body := actions[0].FirstChildOfKind(KindAction).Text; !strings.Contains(body, "int depth;") {
		t.Errorf("action body: %q", body)
	}
}

func TestParseRuleShapes(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		rule    string
		want    string
	}{
		{
			caption: "alternation",
			src:     `grammar T; a : A | b | 'x';`,
			rule:    "a",
			want:    "(rule:a (block (alt terminal:A) (alt rule-ref:b) (alt string:x)))",
		},
		{
			caption: "quantifiers",
			src:     `grammar T; a : A? B* C+;`,
			rule:    "a",
			want:    "(rule:a (block (alt (optional terminal:A) (closure terminal:B) (positive-closure terminal:C))))",
		},
		{
			caption: "nested blocks",
			src:     `grammar T; a : (A | B) C;`,
			rule:    "a",
			want:    "(rule:a (block (alt (block (alt terminal:A) (alt terminal:B)) terminal:C)))",
		},
		{
			caption: "negation and wildcard",
			src:     `grammar T; a : ~A .;`,
			rule:    "a",
			want:    "(rule:a (block (alt (not terminal:A) wildcard)))",
		},
		{
			caption: "empty alternative",
			src:     `grammar T; a : A | ;`,
			rule:    "a",
			want:    "(rule:a (block (alt terminal:A) alt))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			root := parse(t, tt.src)
			var rule *Node
			for _, r := range root.ChildrenOfKind(KindRule) {
				if r.Text == tt.rule {
					rule = r
				}
			}
			if rule == nil {
				t.Fatalf("rule %v not parsed", tt.rule)
			}
			if got := rule.String(); got != tt.want {
				t.Errorf("got  %v\nwant %v", got, tt.want)
			}
		})
	}
}

func TestParseLabelsAndOptions(t *testing.T) {
	root := parse(t, `
grammar T;
a : x=A y+=b e=(B | C) # Labeled
  | B                   # Other
  ;
b : A<assoc=right>;
`)
	rules := root.ChildrenOfKind(KindRule)
	alts := rules[0].FirstChildOfKind(KindBlock).ChildrenOfKind(KindAlt)
	if alts[0].AltLabel != "Labeled" || alts[1].AltLabel != "Other" {
		t.Errorf("alt labels: %q %q", alts[0].AltLabel, alts[1].AltLabel)
	}

	elems := alts[0].Children
	if elems[0].Label != "x" || elems[0].ListLabel {
		t.Errorf("elem 0 label: %v list=%v", elems[0].Label, elems[0].ListLabel)
	}
	if elems[1].Label != "y" || !elems[1].ListLabel {
		t.Errorf("elem 1 label: %v list=%v", elems[1].Label, elems[1].ListLabel)
	}
	if elems[2].Label != "e" || elems[2].Kind != KindBlock {
		t.Errorf("elem 2: label %v kind %v", elems[2].Label, elems[2].Kind)
	}

	opTok := rules[1].FirstChildOfKind(KindBlock).ChildrenOfKind(KindAlt)[0].Children[0]
	if v, _ := opTok.Option("assoc"); v != "right" {
		t.Errorf("element option assoc: got %v", v)
	}
}

func TestParseParserRuleSignature(t *testing.T) {
	root := parse(t, `
parser grammar P;
expr[int min] returns [int value] locals [int depth] options { p=1; } : A;
`)
	rule := root.FirstChildOfKind(KindRule)
	if rule.ArgAction != "int min" {
		t.Errorf("args: %q", rule.ArgAction)
	}
	if rule.RetAction != "int value" {
		t.Errorf("returns: %q", rule.RetAction)
	}
	if rule.LocAction != "int depth" {
		t.Errorf("locals: %q", rule.LocAction)
	}
	if v, _ := rule.Option("p"); v != "1" {
		t.Errorf("rule option: %v", v)
	}
}

func TestParseLexerConstructs(t *testing.T) {
	root := parse(t, `
lexer grammar L;
fragment DIGIT : [0-9];
NUM : DIGIT+ ('.' DIGIT+)?;
RANGE : 'a'..'z';
NG : .*? '"';
CMD : 'c' -> type(NUM), channel(HIDDEN), pushMode(ISLAND);
mode ISLAND;
OUT : 'o' -> popMode;
`)
	rules := root.ChildrenOfKind(KindRule)
	if !rules[0].Fragment {
		t.Errorf("DIGIT must be a fragment")
	}

	var rng *Node
	Walk(root, func(n *Node) bool {
		if n.Kind == KindRange {
			rng = n
		}
		return true
	})
	if rng == nil || rng.Lo != 'a' || rng.Hi != 'z' {
		t.Fatalf("range not parsed: %+v", rng)
	}

	var closure *Node
	Walk(rules[3], func(n *Node) bool {
		if n.Kind == KindClosure {
			closure = n
		}
		return true
	})
	if closure == nil || closure.Greedy {
		t.Errorf("*? must parse as a non-greedy closure")
	}

	var cmds *Node
	Walk(rules[4], func(n *Node) bool {
		if n.Kind == KindLexerCommands {
			cmds = n
		}
		return true
	})
	if cmds == nil || len(cmds.Children) != 3 {
		t.Fatalf("commands not parsed: %v", cmds)
	}
	wantCmds := []struct{ name, arg string }{
		{"type", "NUM"}, {"channel", "HIDDEN"}, {"pushMode", "ISLAND"},
	}
	for i, want := range wantCmds {
		if cmds.Children[i].Text != want.name || cmds.Children[i].Value != want.arg {
			t.Errorf("command %v: got %v(%v)", i, cmds.Children[i].Text, cmds.Children[i].Value)
		}
	}

	modes := root.ChildrenOfKind(KindMode)
	if len(modes) != 1 || modes[0].Text != "ISLAND" {
		t.Fatalf("mode not parsed")
	}
	if len(modes[0].ChildrenOfKind(KindRule)) != 1 {
		t.Errorf("mode rules not attached")
	}
}

func TestParseActionsAndPredicates(t *testing.T) {
	root := parse(t, `
grammar T;
a : {setup();} A {done();};
b : {ready()}? A;
`)
	rules := root.ChildrenOfKind(KindRule)

	altA := rules[0].FirstChildOfKind(KindBlock).ChildrenOfKind(KindAlt)[0]
	if altA.Children[0].Kind != KindAction || altA.Children[0].Text != "setup();" {
		t.Errorf("leading action: %v %q", altA.Children[0].Kind, altA.Children[0].Text)
	}
	if altA.Children[2].Kind != KindAction {
		t.Errorf("trailing action missing")
	}

	altB := rules[1].FirstChildOfKind(KindBlock).ChildrenOfKind(KindAlt)[0]
	if altB.Children[0].Kind != KindPredicate || altB.Children[0].Text != "ready()" {
		t.Errorf("predicate: %v %q", altB.Children[0].Kind, altB.Children[0].Text)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
	}{
		{caption: "missing grammar decl", src: `a : A;`},
		{caption: "missing semicolon", src: `grammar T; a : A`},
		{caption: "missing colon", src: `grammar T; a A;`},
		{caption: "unbalanced paren", src: `grammar T; a : (A;`},
		{caption: "range bound too long", src: `grammar T; A : 'ab'..'c';`},
		{caption: "dangling quantifier", src: `grammar T; a : x=*;`},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			if err == nil {
				t.Fatalf("expected a syntax error")
			}
			synErr, ok := err.(*SyntaxError)
			if !ok {
				t.Fatalf("got %T, want *SyntaxError", err)
			}
			if synErr.Pos.Row == 0 {
				t.Errorf("syntax error carries no position: %v", synErr)
			}
		})
	}
}

func TestParseDupIsDeep(t *testing.T) {
	root := parse(t, `grammar T; a : A | b;`)
	rule := root.FirstChildOfKind(KindRule)
	dup := rule.Dup()
	if dup.String() != rule.String() {
		t.Fatalf("dup differs: %v vs %v", dup.String(), rule.String())
	}
	dup.Children[0].Children[0].Children[0].Text = "CHANGED"
	if rule.String() == dup.String() {
		t.Errorf("dup shares nodes with the original")
	}
}
