package grammar

import (
	"strings"
	"testing"

	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

func processSrc(t *testing.T, src string) (*Grammar, *issue.Manager) {
	t.Helper()
	root, err := spec.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected syntax error: %v", err)
	}
	mgr := issue.NewManager()
	g := Process(root, "", mgr, nil)
	return g, mgr
}

func codeCounts(mgr *issue.Manager) map[issue.Code]int {
	counts := map[issue.Code]int{}
	for _, iss := range mgr.Issues() {
		counts[iss.Code]++
	}
	return counts
}

func TestSemanticPipelineDiagnostics(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		codes   map[issue.Code]int
	}{
		{
			caption: "illegal options and repeated prequels",
			src: `parser grammar U;
options{foo=bar;}
tokens{ID, f}
tokens{A}
a options{blech=bar;}: ID;
`,
			codes: map[issue.Code]int{
				issue.CodeIllegalOption:            2,
				issue.CodeTokenNamesMustStartUpper: 1,
				issue.CodeRepeatedPrequel:          2,
			},
		},
		{
			caption: "label on a block that is not a set",
			src: `grammar T;
ss : op=('=' | '+=' | expr) EOF;
expr : '=' '=';
`,
			codes: map[issue.Code]int{
				issue.CodeLabelBlockNotASet: 1,
			},
		},
		{
			caption: "attribute and label conflicts with a rule name",
			src: `grammar T;
ss[int expr] returns [int expr] locals [int expr] : expr=expr EOF;
expr: '=';
`,
			codes: map[issue.Code]int{
				issue.CodeArgConflictsWithRule:     1,
				issue.CodeRetvalConflictsWithRule:  1,
				issue.CodeLocalConflictsWithRule:   1,
				issue.CodeRetvalConflictsWithArg:   1,
				issue.CodeLocalConflictsWithArg:    1,
				issue.CodeLocalConflictsWithRetval: 1,
				issue.CodeLabelConflictsWithRule:   1,
				issue.CodeLabelConflictsWithArg:    1,
				issue.CodeLabelConflictsWithRetval: 1,
				issue.CodeLabelConflictsWithLocal:  1,
			},
		},
		{
			caption: "reserved names in rules, modes, and channels",
			src: `lexer grammar L;
channels { SKIP, HIDDEN }
A:'a';
mode MAX_CHAR_VALUE;
MIN_CHAR_VALUE:'a';
`,
			codes: map[issue.Code]int{
				issue.CodeReservedRuleName:                     1,
				issue.CodeModeConflictsWithCommonConstants:     1,
				issue.CodeChannelConflictsWithCommonConstants:  2,
			},
		},
		{
			caption: "mode with only fragment rules",
			src: `lexer grammar L;
A:'a';
mode X;
fragment B:'b';
`,
			codes: map[issue.Code]int{
				issue.CodeModeWithoutRules: 1,
			},
		},
		{
			caption: "literal token shadowed by an earlier rule",
			src: `lexer grammar Test;
TOKEN1:'as''df'|'qwer';
TOKEN3:'asdf';
`,
			codes: map[issue.Code]int{
				issue.CodeTokenUnreachable: 1,
			},
		},
		{
			caption: "literal shadowed inside one rule's own alternatives",
			src: `lexer grammar Test;
TOKEN:'x'|'x';
`,
			codes: map[issue.Code]int{
				issue.CodeTokenUnreachable: 1,
			},
		},
		{
			caption: "undefined rule reference",
			src: `parser grammar P;
a : b ID;
`,
			codes: map[issue.Code]int{
				issue.CodeUndefinedRuleRef:        1,
				issue.CodeImplicitTokenDefinition: 1,
			},
		},
		{
			caption: "argument arity at call sites",
			src: `parser grammar P;
tokens{ID}
a : b[5] c;
b : ID;
c[int x] : ID;
`,
			codes: map[issue.Code]int{
				issue.CodeRuleHasNoArgs:   1,
				issue.CodeMissingRuleArgs: 1,
			},
		},
		{
			caption: "token name reassignment warns",
			src: `lexer grammar L;
tokens{A, A}
A:'a';
`,
			codes: map[issue.Code]int{
				issue.CodeTokenNameReassignment: 1,
			},
		},
		{
			caption: "string literal in a pure parser grammar",
			src: `parser grammar P;
tokens{ID}
a : 'if' ID;
`,
			codes: map[issue.Code]int{
				issue.CodeImplicitStringDefinition: 1,
			},
		},
		{
			caption: "lexer rule able to match the empty string",
			src: `lexer grammar L;
A : 'a'?;
B : 'b';
`,
			codes: map[issue.Code]int{
				issue.CodeEpsilonToken: 1,
			},
		},
		{
			caption: "range spanning case classes",
			src: `lexer grammar L;
A : 'A'..'g';
`,
			codes: map[issue.Code]int{
				issue.CodeRangeProbablyContainsNotImpliedCharacters: 1,
			},
		},
		{
			caption: "incompatible and duplicated lexer commands",
			src: `lexer grammar L;
A : 'a' -> skip, more;
B : 'b' -> skip, skip;
`,
			codes: map[issue.Code]int{
				issue.CodeIncompatibleCommands: 1,
				issue.CodeDuplicatedCommand:    1,
			},
		},
		{
			caption: "lexer command argument resolution",
			src: `lexer grammar L;
A : 'a' -> type(MISSING);
B : 'b' -> channel(NOWHERE);
C : 'c' -> mode(GONE);
`,
			codes: map[issue.Code]int{
				issue.CodeUndefinedTokenInCommand:   1,
				issue.CodeUndefinedChannelInCommand: 1,
				issue.CodeUndefinedModeInCommand:    1,
			},
		},
		{
			caption: "clean grammar reports nothing",
			src: `grammar Calc;
expr : term ('+' term)* ;
term : INT ;
INT : [0-9]+ ;
WS : [ \t\r\n]+ -> skip ;
`,
			codes: map[issue.Code]int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, mgr := processSrc(t, tt.src)
			got := codeCounts(mgr)
			for code, want := range tt.codes {
				if got[code] != want {
					t.Errorf("%v: got %v, want %v", code.Name(), got[code], want)
				}
			}
			for code, n := range got {
				if _, expected := tt.codes[code]; !expected {
					t.Errorf("unexpected %v (%v)", code.Name(), n)
				}
			}
		})
	}
}

func TestRuleIndexInvariant(t *testing.T) {
	g, mgr := processSrc(t, `
grammar T;
a : b;
b : c;
c : A;
A : 'a';
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	for i, r := range g.Rules() {
		if r.Index != i {
			t.Errorf("rule %v: index %v at position %v", r.Name, r.Index, i)
		}
		if g.Rule(r.Name) != r {
			t.Errorf("rule %v: lookup does not round-trip", r.Name)
		}
	}
}

func TestRemoveRuleRenumbers(t *testing.T) {
	g, _ := processSrc(t, `
parser grammar P;
tokens{A}
a : A;
b : A;
c : A;
`)
	g.RemoveRule(g.Rule("b"))
	names := []string{"a", "c"}
	if len(g.Rules()) != 2 {
		t.Fatalf("got %v rules, want 2", len(g.Rules()))
	}
	for i, r := range g.Rules() {
		if r.Name != names[i] || r.Index != i {
			t.Errorf("slot %v: got %v(%v)", i, r.Name, r.Index)
		}
	}
}

func TestTokenTypeAssignment(t *testing.T) {
	g, mgr := processSrc(t, `
lexer grammar L;
tokens{PRE}
A : 'a';
FOO : 'foo';
fragment F : 'f';
SKIPPED : 'zz' -> more;
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	if got := g.GetTokenType("PRE"); got != 1 {
		t.Errorf("PRE: got type %v, want 1", got)
	}
	if got := g.GetTokenType("A"); got != 2 {
		t.Errorf("A: got type %v, want 2", got)
	}
	if got := g.GetStringLiteralType("a"); got != g.GetTokenType("A") {
		t.Errorf("literal 'a' should alias A: got %v", got)
	}
	if got := g.GetTokenType("F"); got != 0 {
		t.Errorf("fragment F must not get a token type, got %v", got)
	}
	if got := g.GetTokenType("SKIPPED"); got != 0 {
		t.Errorf("a more rule must not get a token type, got %v", got)
	}
	// Name and type tables agree.
	for name, ttype := range map[string]int{"PRE": 1, "A": 2} {
		if g.TokenNames()[ttype] != name {
			t.Errorf("typeToTokenName[%v] = %q, want %q", ttype, g.TokenNames()[ttype], name)
		}
	}
}

func TestAmbiguousLiteralAliasDropped(t *testing.T) {
	g, _ := processSrc(t, `
lexer grammar L;
A : 'x';
B : 'x';
`)
	if got := g.GetStringLiteralType("x"); got != 0 {
		// The first alias stands until the second definition drops it.
		t.Errorf("literal 'x' keeps type %v after ambiguity, want none", got)
	}
	if g.GetTokenType("A") == 0 || g.GetTokenType("B") == 0 {
		t.Errorf("both rules keep symbolic types: A=%v B=%v",
			g.GetTokenType("A"), g.GetTokenType("B"))
	}
}

func TestChannelAssignmentOrder(t *testing.T) {
	g, mgr := processSrc(t, `
lexer grammar L;
channels { WS_CHANNEL, COMMENT_CHANNEL }
A : 'a';
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	if got := g.ChannelValue("WS_CHANNEL"); got != ChannelMinUser {
		t.Errorf("WS_CHANNEL: got %v, want %v", got, ChannelMinUser)
	}
	if got := g.ChannelValue("COMMENT_CHANNEL"); got != ChannelMinUser+1 {
		t.Errorf("COMMENT_CHANNEL: got %v, want %v", got, ChannelMinUser+1)
	}
	if got := g.ChannelValue("HIDDEN"); got != ChannelHidden {
		t.Errorf("HIDDEN: got %v, want %v", got, ChannelHidden)
	}
}

func TestCaseInsensitiveOptionChecks(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		codes   map[issue.Code]int
	}{
		{
			caption: "redundant rule-level value",
			src: `lexer grammar L;
options { caseInsensitive=true; }
A options { caseInsensitive=true; } : 'a';
B options { caseInsensitive=true; } : 'b';
`,
			// One-off: the second redundant rule is suppressed.
			codes: map[issue.Code]int{
				issue.CodeRedundantCaseInsensitiveLexerRuleOption: 1,
			},
		},
		{
			caption: "bad value",
			src: `lexer grammar L;
options { caseInsensitive=maybe; }
A : 'a';
`,
			codes: map[issue.Code]int{
				issue.CodeIllegalOptionValue: 1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, mgr := processSrc(t, tt.src)
			got := codeCounts(mgr)
			for code, want := range tt.codes {
				if got[code] != want {
					t.Errorf("%v: got %v, want %v", code.Name(), got[code], want)
				}
			}
		})
	}
}

func TestSemanticPipelineIdempotent(t *testing.T) {
	g, mgr := processSrc(t, `
grammar T;
a : A b;
b : A;
A : 'a';
`)
	if mgr.ErrorCount() > 0 {
		t.Fatalf("unexpected errors: %v", mgr.Issues())
	}
	before := g.MaxTokenType()
	names := append([]string{}, g.TokenNames()...)

	Compile(g)

	if g.MaxTokenType() != before {
		t.Errorf("token type count changed: %v -> %v", before, g.MaxTokenType())
	}
	for i, name := range g.TokenNames() {
		if names[i] != name {
			t.Errorf("typeToTokenName[%v] changed: %q -> %q", i, names[i], name)
		}
	}
}
