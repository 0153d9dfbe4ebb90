package atn

import (
	"errors"
	"testing"
)

func buildSampleATN() *ATN {
	a := NewATN(GrammarKindParser, 5)
	a.RuleToStartState = make([]*State, 1)
	a.RuleToStopState = make([]*State, 1)
	a.RuleToTokenType = make([]int, 1)

	start := a.AddState(StateRuleStart, 0)
	stop := a.AddState(StateRuleStop, 0)
	a.RuleToStartState[0] = start
	a.RuleToStopState[0] = stop

	blk := a.AddState(StateBlockStart, 0)
	end := a.AddState(StateBlockEnd, 0)
	blk.EndState = end
	a.DefineDecision(blk)

	m1 := a.AddState(StateBasic, 0)
	m2 := a.AddState(StateBasic, 0)

	start.AddTransition(NewEpsilonTransition(blk))
	blk.AddTransition(NewEpsilonTransition(m1))
	blk.AddTransition(NewEpsilonTransition(m2))
	m1.AddTransition(NewAtomTransition(end, 1))
	set := NewIntervalSet()
	set.AddOne(TokenEOF)
	set.AddRange(2, 4)
	m2.AddTransition(NewSetTransition(end, set))
	end.AddTransition(NewEpsilonTransition(stop))
	return a
}

func TestSerializeRoundTrip(t *testing.T) {
	a := buildSampleATN()
	words, err := Serialize(a)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	b, err := Deserialize(words)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if b.Kind != a.Kind || b.MaxTokenType != a.MaxTokenType {
		t.Errorf("header mismatch: %v/%v vs %v/%v", b.Kind, b.MaxTokenType, a.Kind, a.MaxTokenType)
	}
	if len(b.States) != len(a.States) {
		t.Fatalf("state count: got %v, want %v", len(b.States), len(a.States))
	}
	for i, s := range a.States {
		d := b.States[i]
		if d.Kind != s.Kind || d.RuleIndex != s.RuleIndex || d.Decision != s.Decision {
			t.Errorf("state %v mismatch: %+v vs %+v", i, d, s)
		}
		if len(d.Transitions) != len(s.Transitions) {
			t.Fatalf("state %v transition count: got %v, want %v",
				i, len(d.Transitions), len(s.Transitions))
		}
		for j, tr := range s.Transitions {
			dt := d.Transitions[j]
			if dt.Kind != tr.Kind || dt.Target.Num != tr.Target.Num {
				t.Errorf("state %v edge %v mismatch", i, j)
			}
			if tr.Label != nil && !dt.Label.Equal(tr.Label) {
				t.Errorf("state %v edge %v label: got %v, want %v",
					i, j, dt.Label, tr.Label)
			}
		}
	}
	if len(b.DecisionToState) != 1 || b.DecisionToState[0].Num != a.DecisionToState[0].Num {
		t.Errorf("decision mapping lost")
	}
	if b.States[2].EndState == nil || b.States[2].EndState.Num != 3 {
		t.Errorf("block end link lost")
	}
}

func TestSerializeNegativeOneSentinel(t *testing.T) {
	e := &intEncoder{}
	e.writeInt(-1)
	if e.err != nil {
		t.Fatalf("unexpected error: %v", e.err)
	}
	if len(e.words) != 2 || e.words[0] != 0xFFFF || e.words[1] != 0xFFFF {
		t.Fatalf("sentinel encoding: got %v", e.words)
	}
	d := &intDecoder{words: e.words}
	v, err := d.readInt()
	if err != nil || v != -1 {
		t.Errorf("sentinel decoding: got %v, %v", v, err)
	}
}

func TestSerializeWideValues(t *testing.T) {
	for _, v := range []int{0, 1, 0x7FFF, 0x8000, 0x12345, maxPayload} {
		e := &intEncoder{}
		e.writeInt(v)
		if e.err != nil {
			t.Fatalf("value %v: %v", v, e.err)
		}
		d := &intDecoder{words: e.words}
		got, err := d.readInt()
		if err != nil {
			t.Fatalf("value %v: %v", v, err)
		}
		if got != v {
			t.Errorf("value %v round-tripped to %v", v, got)
		}
	}
}

func TestSerializeOverflow(t *testing.T) {
	e := &intEncoder{}
	e.writeInt(maxPayload + 1)
	if !errors.Is(e.err, ErrSerializerOverflow) {
		t.Errorf("got %v, want overflow", e.err)
	}

	a := buildSampleATN()
	a.MaxTokenType = maxPayload + 1
	if _, err := Serialize(a); !errors.Is(err, ErrSerializerOverflow) {
		t.Errorf("serialize: got %v, want overflow", err)
	}
}
