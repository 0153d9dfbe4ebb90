package issue

import (
	"strings"
	"testing"
)

func TestManagerCountsAndFanOut(t *testing.T) {
	mgr := NewManager()
	var seen []*Issue
	mgr.AddListener(ListenerFunc(func(i *Issue) {
		seen = append(seen, i)
	}))

	mgr.Emit(CodeUndefinedRuleRef, "T.g4", NewPosition(3, 7), "foo")
	mgr.Emit(CodeImplicitTokenDefinition, "T.g4", NewPosition(4, 1), "ID")

	if mgr.ErrorCount() != 1 {
		t.Errorf("errors: got %v, want 1", mgr.ErrorCount())
	}
	if mgr.WarningCount() != 1 {
		t.Errorf("warnings: got %v, want 1", mgr.WarningCount())
	}
	if len(seen) != 2 {
		t.Errorf("listener saw %v issues, want 2", len(seen))
	}
}

func TestListenerOrder(t *testing.T) {
	mgr := NewManager()
	var order []string
	mgr.AddListener(ListenerFunc(func(i *Issue) { order = append(order, "first") }))
	mgr.AddListener(ListenerFunc(func(i *Issue) { order = append(order, "second") }))
	mgr.Emit(CodeSyntaxError, "", Position{}, "x")
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("broadcast order: %v", order)
	}
}

func TestOneOffSuppression(t *testing.T) {
	mgr := NewManager()
	first := mgr.Emit(CodeRedundantCaseInsensitiveLexerRuleOption, "", NewPosition(1, 1), "true")
	second := mgr.Emit(CodeRedundantCaseInsensitiveLexerRuleOption, "", NewPosition(2, 1), "true")
	if first == nil {
		t.Fatalf("first occurrence suppressed")
	}
	if second != nil {
		t.Fatalf("second occurrence not suppressed")
	}
	if len(mgr.Issues()) != 1 {
		t.Errorf("got %v issues, want 1", len(mgr.Issues()))
	}
}

func TestWarningsAreErrorsPromotion(t *testing.T) {
	mgr := NewManager()
	mgr.WarningsAreErrors = true
	mgr.Emit(CodeImplicitTokenDefinition, "T.g4", NewPosition(1, 1), "ID")

	if mgr.ErrorCount() != 1 {
		t.Errorf("errors: got %v, want 1", mgr.ErrorCount())
	}
	var promoted bool
	for _, iss := range mgr.Issues() {
		if iss.Code == CodeWarningTreatedAsError {
			promoted = true
		}
	}
	if !promoted {
		t.Errorf("no WARNING_TREATED_AS_ERROR emitted")
	}
}

func TestRenderFormats(t *testing.T) {
	iss := &Issue{
		Code:     CodeUndefinedRuleRef,
		Severity: SeverityError,
		FileName: "T.g4",
		Pos:      NewPosition(5, 9),
		Args:     []interface{}{"foo"},
	}
	tests := []struct {
		format Format
		want   string
	}{
		{FormatANTLR, "error(11): T.g4:5:9: reference to undefined rule: foo"},
		{FormatGNU, "T.g4:5:9: error: reference to undefined rule: foo"},
		{FormatVS2005, "T.g4(5,9) : error 11: reference to undefined rule: foo"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := Render(iss, tt.format); got != tt.want {
				t.Errorf("got  %v\nwant %v", got, tt.want)
			}
		})
	}
}

func TestRenderWithoutLocation(t *testing.T) {
	iss := &Issue{
		Code:     CodeInternalError,
		Severity: SeverityFatal,
		Args:     []interface{}{"boom"},
	}
	got := Render(iss, FormatANTLR)
	if strings.Contains(got, ":0:") {
		t.Errorf("rendered a zero position: %v", got)
	}
	if !strings.Contains(got, "internal error: boom") {
		t.Errorf("message lost: %v", got)
	}
}

func TestIssuesByCodeSortsByPosition(t *testing.T) {
	mgr := NewManager()
	mgr.Emit(CodeUndefinedRuleRef, "", NewPosition(9, 1), "b")
	mgr.Emit(CodeUndefinedRuleRef, "", NewPosition(2, 1), "a")
	mgr.Emit(CodeSyntaxError, "", NewPosition(1, 1), "x")

	found := mgr.IssuesByCode(CodeUndefinedRuleRef)
	if len(found) != 2 {
		t.Fatalf("got %v issues", len(found))
	}
	if found[0].Pos.Row != 2 || found[1].Pos.Row != 9 {
		t.Errorf("not sorted by position: %v, %v", found[0].Pos, found[1].Pos)
	}
}
