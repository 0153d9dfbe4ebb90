package atn

import (
	"errors"
	"fmt"
)

// Serialized-payload word format: each element is a 16-bit word. A value
// below 0x8000 stands for itself. A word with the high bit set is the first
// half of a two-word big-endian 31-bit value. The pair 0xFFFF 0xFFFF is the
// sentinel for -1, so the largest carried value is 0x7FFF_FFFE: 0x7FFF_FFFF
// would encode as that same pair.
const (
	serializedVersion = 1

	wordHighBit = 0x8000
	wordMask    = 0x7FFF
	maxPayload  = 0x7FFF_FFFE
)

// ErrSerializerOverflow reports a value the word format cannot carry; the
// driver escalates it as a cannot-write-file failure.
var ErrSerializerOverflow = errors.New("serialized ATN element exceeds the maximum payload value")

type intEncoder struct {
	words []uint16
	err   error
}

func (e *intEncoder) writeInt(v int) {
	if e.err != nil {
		return
	}
	if v == -1 {
		e.words = append(e.words, 0xFFFF, 0xFFFF)
		return
	}
	if v < 0 || v > maxPayload {
		e.err = fmt.Errorf("%w: %v", ErrSerializerOverflow, v)
		return
	}
	if v < wordHighBit {
		e.words = append(e.words, uint16(v))
		return
	}
	e.words = append(e.words, uint16(wordHighBit|(v>>16)), uint16(v&0xFFFF))
}

type intDecoder struct {
	words []uint16
	pos   int
}

func (d *intDecoder) readInt() (int, error) {
	if d.pos >= len(d.words) {
		return 0, errors.New("truncated serialized ATN")
	}
	w := d.words[d.pos]
	d.pos++
	if w&wordHighBit == 0 {
		return int(w), nil
	}
	if d.pos >= len(d.words) {
		return 0, errors.New("truncated serialized ATN")
	}
	lo := d.words[d.pos]
	d.pos++
	if w == 0xFFFF && lo == 0xFFFF {
		return -1, nil
	}
	return int(w&wordMask)<<16 | int(lo), nil
}

// Serialize flattens the automaton into the integer payload consumed by
// code generators and the interpreter dump.
func Serialize(a *ATN) ([]uint16, error) {
	e := &intEncoder{}

	e.writeInt(serializedVersion)
	e.writeInt(int(a.Kind))
	e.writeInt(a.MaxTokenType)

	// States. Targets and link states are referenced by number, so the
	// array must already be compact.
	e.writeInt(len(a.States))
	for _, s := range a.States {
		e.writeInt(int(s.Kind))
		e.writeInt(s.RuleIndex)
		e.writeInt(s.Decision)
		e.writeInt(boolWord(s.NonGreedy))
		e.writeInt(boolWord(s.PrecedenceRule))
		e.writeInt(stateNumOrNeg(s.EndState))
		e.writeInt(stateNumOrNeg(s.LoopBack))
	}

	// Interval sets referenced by set-class transitions, deduplicated by
	// identity of content.
	var sets []*IntervalSet
	setIdx := map[string]int{}
	indexOfSet := func(set *IntervalSet) int {
		key := set.String()
		if i, ok := setIdx[key]; ok {
			return i
		}
		i := len(sets)
		setIdx[key] = i
		sets = append(sets, set)
		return i
	}
	type edge struct {
		src int
		t   *Transition
	}
	var edges []edge
	for _, s := range a.States {
		for _, t := range s.Transitions {
			edges = append(edges, edge{src: s.Num, t: t})
			switch t.Kind {
			case TransitionSet, TransitionNotSet:
				indexOfSet(t.Label)
			}
		}
	}

	e.writeInt(len(sets))
	for _, set := range sets {
		ivs := set.Intervals()
		e.writeInt(len(ivs))
		for _, iv := range ivs {
			e.writeInt(iv.Lo)
			e.writeInt(iv.Hi)
		}
	}

	e.writeInt(len(edges))
	for _, ed := range edges {
		t := ed.t
		e.writeInt(ed.src)
		e.writeInt(t.Target.Num)
		e.writeInt(int(t.Kind))
		switch t.Kind {
		case TransitionAtom:
			e.writeInt(t.Label.Intervals()[0].Lo)
		case TransitionRange:
			e.writeInt(t.Label.Intervals()[0].Lo)
			e.writeInt(t.Label.Intervals()[0].Hi)
		case TransitionSet, TransitionNotSet:
			e.writeInt(indexOfSet(t.Label))
		case TransitionRule:
			e.writeInt(t.RuleIndex)
			e.writeInt(t.Precedence)
			e.writeInt(t.FollowState.Num)
		case TransitionAction:
			e.writeInt(t.ActionIndex)
		case TransitionPredicate:
			e.writeInt(t.PredIndex)
		case TransitionPrecedence:
			e.writeInt(t.Precedence)
		}
	}

	e.writeInt(len(a.RuleToStartState))
	for i := range a.RuleToStartState {
		e.writeInt(a.RuleToStartState[i].Num)
		e.writeInt(a.RuleToStopState[i].Num)
		if a.Kind == GrammarKindLexer {
			e.writeInt(a.RuleToTokenType[i])
		}
	}

	e.writeInt(len(a.DecisionToState))
	for _, s := range a.DecisionToState {
		e.writeInt(s.Num)
	}

	e.writeInt(len(a.ModeToStartState))
	for _, s := range a.ModeToStartState {
		e.writeInt(s.Num)
	}

	if e.err != nil {
		return nil, e.err
	}
	return e.words, nil
}

// Deserialize rebuilds an automaton from its serialized payload. Mode names
// are not part of the payload and stay empty.
func Deserialize(words []uint16) (*ATN, error) {
	d := &intDecoder{words: words}
	read := func() int {
		v, err := d.readInt()
		if err != nil {
			panic(err)
		}
		return v
	}

	var a *ATN
	err := func() (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				retErr = r.(error)
			}
		}()

		version := read()
		if version != serializedVersion {
			return fmt.Errorf("unsupported serialized ATN version %v", version)
		}
		kind := GrammarKind(read())
		maxTokenType := read()
		a = NewATN(kind, maxTokenType)

		numStates := read()
		type stateLinks struct {
			end      int
			loopBack int
		}
		links := make([]stateLinks, numStates)
		for i := 0; i < numStates; i++ {
			s := a.AddState(StateKind(read()), 0)
			s.RuleIndex = read()
			s.Decision = read()
			s.NonGreedy = read() == 1
			s.PrecedenceRule = read() == 1
			links[i] = stateLinks{end: read(), loopBack: read()}
		}
		for i, l := range links {
			if l.end >= 0 {
				a.States[i].EndState = a.States[l.end]
			}
			if l.loopBack >= 0 {
				a.States[i].LoopBack = a.States[l.loopBack]
			}
		}

		numSets := read()
		sets := make([]*IntervalSet, numSets)
		for i := 0; i < numSets; i++ {
			set := NewIntervalSet()
			numIvs := read()
			for j := 0; j < numIvs; j++ {
				lo := read()
				hi := read()
				set.AddRange(lo, hi)
			}
			sets[i] = set
		}

		numEdges := read()
		for i := 0; i < numEdges; i++ {
			src := a.States[read()]
			target := a.States[read()]
			kind := TransitionKind(read())
			t := &Transition{Kind: kind, Target: target}
			switch kind {
			case TransitionAtom:
				v := read()
				t.Label = NewIntervalSetOf(v, v)
			case TransitionRange:
				lo := read()
				hi := read()
				t.Label = NewIntervalSetOf(lo, hi)
			case TransitionSet, TransitionNotSet:
				t.Label = sets[read()]
			case TransitionRule:
				t.RuleIndex = read()
				t.Precedence = read()
				t.FollowState = a.States[read()]
			case TransitionAction:
				t.ActionIndex = read()
			case TransitionPredicate:
				t.PredIndex = read()
			case TransitionPrecedence:
				t.Precedence = read()
			}
			src.AddTransition(t)
		}

		numRules := read()
		a.RuleToStartState = make([]*State, numRules)
		a.RuleToStopState = make([]*State, numRules)
		a.RuleToTokenType = make([]int, numRules)
		for i := 0; i < numRules; i++ {
			a.RuleToStartState[i] = a.States[read()]
			a.RuleToStopState[i] = a.States[read()]
			if a.Kind == GrammarKindLexer {
				a.RuleToTokenType[i] = read()
			}
		}

		numDecisions := read()
		a.DecisionToState = make([]*State, numDecisions)
		for i := 0; i < numDecisions; i++ {
			a.DecisionToState[i] = a.States[read()]
		}

		numModes := read()
		a.ModeToStartState = make([]*State, numModes)
		for i := 0; i < numModes; i++ {
			a.ModeToStartState[i] = a.States[read()]
		}
		return nil
	}()
	if err != nil {
		return nil, err
	}
	return a, nil
}

func boolWord(b bool) int {
	if b {
		return 1
	}
	return 0
}

func stateNumOrNeg(s *State) int {
	if s == nil {
		return -1
	}
	return s.Num
}
