package atn

import (
	"unicode"

	"github.com/ternbird/tern/issue"
	"github.com/ternbird/tern/spec"
)

// GrammarView is the surface the factories need from a validated grammar.
// It is implemented by grammar.Grammar; depending on the interface keeps
// the automaton layer free of the symbol-table machinery.
type GrammarView interface {
	IsLexer() bool
	FileName() string

	NumRules() int
	RuleName(idx int) string
	RuleBlock(idx int) *spec.Node
	RuleIsFragment(idx int) bool
	RuleIsLeftRecursive(idx int) bool
	RuleMode(idx int) string
	RuleCaseInsensitive(idx int) bool
	RuleIndexOf(name string) (int, bool)
	TokenTypeOfRule(idx int) int

	TokenType(name string) int
	StringLiteralType(lit string) int
	MaxTokenType() int

	ActionIndex(n *spec.Node) int
	SempredIndex(n *spec.Node) int
	LexerCommandActionIndex(n *spec.Node) int

	ModeNames() []string
}

// handle is a sub-automaton under construction: everything between left
// and right, both inclusive.
type handle struct {
	left  *State
	right *State
}

type factory struct {
	g   GrammarView
	atn *ATN
	mgr *issue.Manager

	currentRule int
	ciGlobal    bool
}

// Build constructs the ATN for a validated grammar. Diagnostics found
// during construction (set collisions) go to mgr.
func Build(g GrammarView, mgr *issue.Manager) *ATN {
	kind := GrammarKindParser
	if g.IsLexer() {
		kind = GrammarKindLexer
	}
	f := &factory{
		g:   g,
		atn: NewATN(kind, g.MaxTokenType()),
		mgr: mgr,
	}
	f.createRuleStartAndStops()
	f.buildRules()
	if g.IsLexer() {
		f.buildModeEntries()
	}
	Optimize(f.atn)
	return f.atn
}

func (f *factory) createRuleStartAndStops() {
	n := f.g.NumRules()
	f.atn.RuleToStartState = make([]*State, n)
	f.atn.RuleToStopState = make([]*State, n)
	f.atn.RuleToTokenType = make([]int, n)
	for i := 0; i < n; i++ {
		start := f.atn.AddState(StateRuleStart, i)
		stop := f.atn.AddState(StateRuleStop, i)
		start.PrecedenceRule = f.g.RuleIsLeftRecursive(i)
		f.atn.RuleToStartState[i] = start
		f.atn.RuleToStopState[i] = stop
		if f.g.IsLexer() {
			f.atn.RuleToTokenType[i] = f.g.TokenTypeOfRule(i)
		}
	}
}

func (f *factory) buildRules() {
	for i := 0; i < f.g.NumRules(); i++ {
		f.currentRule = i
		f.ciGlobal = f.g.RuleCaseInsensitive(i)
		block := f.g.RuleBlock(i)
		h := f.block(block)
		start := f.atn.RuleToStartState[i]
		stop := f.atn.RuleToStopState[i]
		start.AddTransition(NewEpsilonTransition(h.left))
		h.right.AddTransition(NewEpsilonTransition(stop))
	}
}

// buildModeEntries creates one tokens-start decision per mode with an
// epsilon edge to every non-fragment rule declared in it.
func (f *factory) buildModeEntries() {
	modes := f.g.ModeNames()
	f.atn.ModeNames = append(f.atn.ModeNames, modes...)
	for _, mode := range modes {
		entry := f.atn.AddState(StateTokensStart, -1)
		f.atn.DefineDecision(entry)
		f.atn.ModeToStartState = append(f.atn.ModeToStartState, entry)
		for i := 0; i < f.g.NumRules(); i++ {
			if f.g.RuleIsFragment(i) || f.g.RuleMode(i) != mode {
				continue
			}
			entry.AddTransition(NewEpsilonTransition(f.atn.RuleToStartState[i]))
		}
	}
}

// block builds a (...|...) block. Single-alternative blocks collapse to the
// alternative itself; anything else gets a decision.
func (f *factory) block(n *spec.Node) handle {
	alts := n.ChildrenOfKind(spec.KindAlt)
	if len(alts) == 1 {
		h := f.alt(alts[0])
		f.associate(n, h.left)
		return h
	}

	start := f.atn.AddState(StateBlockStart, f.currentRule)
	end := f.atn.AddState(StateBlockEnd, f.currentRule)
	start.EndState = end
	f.atn.DefineDecision(start)
	for _, alt := range alts {
		h := f.alt(alt)
		start.AddTransition(NewEpsilonTransition(h.left))
		h.right.AddTransition(NewEpsilonTransition(end))
	}
	f.associate(n, start)
	return handle{left: start, right: end}
}

// alt chains an alternative's elements. An empty alternative is a pair of
// states joined by epsilon.
func (f *factory) alt(n *spec.Node) handle {
	var elems []handle
	for _, c := range n.Children {
		if c.Kind == spec.KindLexerCommands {
			h := f.lexerCommands(c)
			elems = append(elems, h)
			continue
		}
		elems = append(elems, f.element(c))
	}
	if len(elems) == 0 {
		left := f.atn.AddState(StateBasic, f.currentRule)
		right := f.atn.AddState(StateBasic, f.currentRule)
		left.AddTransition(NewEpsilonTransition(right))
		return handle{left: left, right: right}
	}
	for i := 0; i < len(elems)-1; i++ {
		elems[i].right.AddTransition(NewEpsilonTransition(elems[i+1].left))
	}
	return handle{left: elems[0].left, right: elems[len(elems)-1].right}
}

func (f *factory) element(n *spec.Node) handle {
	switch n.Kind {
	case spec.KindTerminal:
		return f.tokenRef(n)
	case spec.KindStringLiteral:
		return f.stringLiteral(n)
	case spec.KindRuleRef:
		return f.ruleRef(n)
	case spec.KindRange:
		return f.charRange(n)
	case spec.KindCharSet:
		return f.charSet(n)
	case spec.KindSet:
		return f.set(n)
	case spec.KindNot:
		return f.not(n)
	case spec.KindWildcard:
		return f.wildcard(n)
	case spec.KindOptional:
		return f.optional(n)
	case spec.KindClosure:
		return f.closure(n)
	case spec.KindPositiveClosure:
		return f.positiveClosure(n)
	case spec.KindAction:
		return f.action(n)
	case spec.KindPredicate:
		return f.predicate(n)
	case spec.KindPrecPredicate:
		return f.precPredicate(n)
	case spec.KindBlock:
		return f.block(n)
	}
	// Unknown kinds become epsilon so a broken tree still yields a
	// connected automaton; semantic checks have already reported it.
	left := f.atn.AddState(StateBasic, f.currentRule)
	right := f.atn.AddState(StateBasic, f.currentRule)
	left.AddTransition(NewEpsilonTransition(right))
	return handle{left: left, right: right}
}

func (f *factory) edge(t *Transition) handle {
	left := f.atn.AddState(StateBasic, f.currentRule)
	right := f.atn.AddState(StateBasic, f.currentRule)
	t.Target = right
	left.AddTransition(t)
	return handle{left: left, right: right}
}

func (f *factory) tokenRef(n *spec.Node) handle {
	if f.g.IsLexer() {
		// A token reference inside a lexer rule calls that rule.
		if idx, ok := f.g.RuleIndexOf(n.Text); ok {
			return f.ruleCall(n, idx)
		}
		// Undefined refs were reported during symbol checks.
		left := f.atn.AddState(StateBasic, f.currentRule)
		right := f.atn.AddState(StateBasic, f.currentRule)
		left.AddTransition(NewEpsilonTransition(right))
		return handle{left: left, right: right}
	}
	ttype := f.g.TokenType(n.Text)
	h := f.edge(NewAtomTransition(nil, ttype))
	f.associate(n, h.left)
	return h
}

func (f *factory) stringLiteral(n *spec.Node) handle {
	if !f.g.IsLexer() {
		ttype := f.g.StringLiteralType(n.Text)
		h := f.edge(NewAtomTransition(nil, ttype))
		f.associate(n, h.left)
		return h
	}

	// Lexer: one transition per code point.
	ci := f.caseInsensitive(n)
	left := f.atn.AddState(StateBasic, f.currentRule)
	prev := left
	for _, rn := range n.Text {
		next := f.atn.AddState(StateBasic, f.currentRule)
		if ci {
			lower := unicode.ToLower(rn)
			upper := unicode.ToUpper(rn)
			if lower != upper {
				set := NewIntervalSet()
				set.AddOne(int(lower))
				set.AddOne(int(upper))
				prev.AddTransition(NewSetTransition(next, set))
			} else {
				prev.AddTransition(NewAtomTransition(next, int(rn)))
			}
		} else {
			prev.AddTransition(NewAtomTransition(next, int(rn)))
		}
		prev = next
	}
	f.associate(n, left)
	return handle{left: left, right: prev}
}

func (f *factory) ruleRef(n *spec.Node) handle {
	idx, ok := f.g.RuleIndexOf(n.Text)
	if !ok {
		left := f.atn.AddState(StateBasic, f.currentRule)
		right := f.atn.AddState(StateBasic, f.currentRule)
		left.AddTransition(NewEpsilonTransition(right))
		return handle{left: left, right: right}
	}
	return f.ruleCall(n, idx)
}

func (f *factory) ruleCall(n *spec.Node, idx int) handle {
	left := f.atn.AddState(StateBasic, f.currentRule)
	follow := f.atn.AddState(StateBasic, f.currentRule)
	prec := 0
	if v, ok := n.Option("prec"); ok && v != "" {
		prec = atoiSafe(v)
	}
	left.AddTransition(NewRuleTransition(f.atn.RuleToStartState[idx], idx, prec, follow))
	f.associate(n, left)
	return handle{left: left, right: follow}
}

func (f *factory) charRange(n *spec.Node) handle {
	lo, hi := int(n.Lo), int(n.Hi)
	if f.caseInsensitive(n) {
		set := NewIntervalSet()
		set.AddRange(lo, hi)
		expandFoldedRanges(set, lo, hi)
		h := f.edge(NewSetTransition(nil, set))
		f.associate(n, h.left)
		return h
	}
	h := f.edge(NewRangeTransition(nil, lo, hi))
	f.associate(n, h.left)
	return h
}

func (f *factory) charSet(n *spec.Node) handle {
	set := f.charSetToIntervals(n)
	h := f.edge(NewSetTransition(nil, set))
	f.associate(n, h.left)
	return h
}

// charSetToIntervals decodes a [...] body, reporting duplicate code points.
func (f *factory) charSetToIntervals(n *spec.Node) *IntervalSet {
	ranges, err := spec.ParseCharSet(n.Text)
	if err != nil {
		f.mgr.Emit(issue.CodeSyntaxError, f.g.FileName(),
			issue.NewPosition(n.Pos.Row, n.Pos.Col), err)
		return NewIntervalSet()
	}
	set := NewIntervalSet()
	for _, r := range ranges {
		overlap := set.AddRangeChecked(int(r.Lo), int(r.Hi))
		if overlap != nil {
			f.mgr.Emit(issue.CodeCharactersCollisionInSet, f.g.FileName(),
				issue.NewPosition(n.Pos.Row, n.Pos.Col),
				overlap, "["+n.Text+"]")
		}
	}
	if f.caseInsensitive(n) {
		for _, r := range ranges {
			expandFoldedRanges(set, int(r.Lo), int(r.Hi))
		}
	}
	return set
}

// set builds the single transition for a block the set transform collapsed.
func (f *factory) set(n *spec.Node) handle {
	set := NewIntervalSet()
	for _, c := range n.Children {
		switch c.Kind {
		case spec.KindTerminal:
			if f.g.IsLexer() {
				break
			}
			set.AddOne(f.g.TokenType(c.Text))
		case spec.KindStringLiteral:
			if f.g.IsLexer() {
				rns := []rune(c.Text)
				overlap := set.AddRangeChecked(int(rns[0]), int(rns[0]))
				if overlap != nil {
					f.mgr.Emit(issue.CodeCharactersCollisionInSet, f.g.FileName(),
						issue.NewPosition(c.Pos.Row, c.Pos.Col), overlap, n.String())
				}
			} else {
				set.AddOne(f.g.StringLiteralType(c.Text))
			}
		case spec.KindRange:
			overlap := set.AddRangeChecked(int(c.Lo), int(c.Hi))
			if overlap != nil {
				f.mgr.Emit(issue.CodeCharactersCollisionInSet, f.g.FileName(),
					issue.NewPosition(c.Pos.Row, c.Pos.Col), overlap, n.String())
			}
		case spec.KindCharSet:
			sub := f.charSetToIntervals(c)
			for _, iv := range sub.Intervals() {
				overlap := set.AddRangeChecked(iv.Lo, iv.Hi)
				if overlap != nil {
					f.mgr.Emit(issue.CodeCharactersCollisionInSet, f.g.FileName(),
						issue.NewPosition(c.Pos.Row, c.Pos.Col), overlap, n.String())
				}
			}
		}
	}
	h := f.edge(NewSetTransition(nil, set))
	f.associate(n, h.left)
	return h
}

func (f *factory) not(n *spec.Node) handle {
	inner := n.Children[0]
	var set *IntervalSet
	switch inner.Kind {
	case spec.KindCharSet:
		set = f.charSetToIntervals(inner)
	case spec.KindStringLiteral:
		set = NewIntervalSet()
		if f.g.IsLexer() {
			for _, rn := range inner.Text {
				set.AddOne(int(rn))
			}
		} else {
			set.AddOne(f.g.StringLiteralType(inner.Text))
		}
	case spec.KindTerminal:
		set = NewIntervalSet()
		if f.g.IsLexer() {
			// ~TOKEN in a lexer only makes sense for single-char rules;
			// semantic checks have constrained it, treat as empty here.
		} else {
			set.AddOne(f.g.TokenType(inner.Text))
		}
	case spec.KindRange:
		set = NewIntervalSetOf(int(inner.Lo), int(inner.Hi))
	case spec.KindBlock, spec.KindSet:
		set = NewIntervalSet()
		for _, c := range setLeaves(inner) {
			switch c.Kind {
			case spec.KindTerminal:
				set.AddOne(f.g.TokenType(c.Text))
			case spec.KindStringLiteral:
				if f.g.IsLexer() {
					rns := []rune(c.Text)
					set.AddOne(int(rns[0]))
				} else {
					set.AddOne(f.g.StringLiteralType(c.Text))
				}
			case spec.KindRange:
				set.AddRange(int(c.Lo), int(c.Hi))
			case spec.KindCharSet:
				set.AddSet(f.charSetToIntervals(c))
			}
		}
	default:
		set = NewIntervalSet()
	}
	h := f.edge(NewNotSetTransition(nil, set))
	f.associate(n, h.left)
	return h
}

// setLeaves flattens a block of single-element alternatives.
func setLeaves(n *spec.Node) []*spec.Node {
	if n.Kind == spec.KindSet {
		return n.Children
	}
	var leaves []*spec.Node
	for _, alt := range n.ChildrenOfKind(spec.KindAlt) {
		if len(alt.Children) == 1 {
			leaves = append(leaves, alt.Children[0])
		}
	}
	return leaves
}

func (f *factory) wildcard(n *spec.Node) handle {
	h := f.edge(NewWildcardTransition(nil))
	f.associate(n, h.left)
	return h
}

func (f *factory) optional(n *spec.Node) handle {
	start := f.atn.AddState(StateBlockStart, f.currentRule)
	end := f.atn.AddState(StateBlockEnd, f.currentRule)
	start.EndState = end
	f.atn.DefineDecision(start)
	start.NonGreedy = !n.Greedy

	body := f.element(n.Children[0])
	start.AddTransition(NewEpsilonTransition(body.left))
	body.right.AddTransition(NewEpsilonTransition(end))
	start.AddTransition(NewEpsilonTransition(end))

	f.associate(n, start)
	return handle{left: start, right: end}
}

func (f *factory) closure(n *spec.Node) handle {
	entry := f.atn.AddState(StateStarLoopEntry, f.currentRule)
	f.atn.DefineDecision(entry)
	entry.NonGreedy = !n.Greedy

	blkStart := f.atn.AddState(StateStarBlockStart, f.currentRule)
	blkEnd := f.atn.AddState(StateBlockEnd, f.currentRule)
	blkStart.EndState = blkEnd
	loopBack := f.atn.AddState(StateStarLoopBack, f.currentRule)
	end := f.atn.AddState(StateLoopEnd, f.currentRule)
	entry.LoopBack = loopBack
	end.LoopBack = loopBack

	body := f.element(n.Children[0])
	blkStart.AddTransition(NewEpsilonTransition(body.left))
	body.right.AddTransition(NewEpsilonTransition(blkEnd))

	entry.AddTransition(NewEpsilonTransition(blkStart))
	entry.AddTransition(NewEpsilonTransition(end))
	blkEnd.AddTransition(NewEpsilonTransition(loopBack))
	loopBack.AddTransition(NewEpsilonTransition(entry))

	f.associate(n, entry)
	return handle{left: entry, right: end}
}

func (f *factory) positiveClosure(n *spec.Node) handle {
	blkStart := f.atn.AddState(StatePlusBlockStart, f.currentRule)
	blkEnd := f.atn.AddState(StateBlockEnd, f.currentRule)
	blkStart.EndState = blkEnd
	loopBack := f.atn.AddState(StatePlusLoopBack, f.currentRule)
	f.atn.DefineDecision(loopBack)
	loopBack.NonGreedy = !n.Greedy
	end := f.atn.AddState(StateLoopEnd, f.currentRule)
	blkStart.LoopBack = loopBack
	end.LoopBack = loopBack

	body := f.element(n.Children[0])
	blkStart.AddTransition(NewEpsilonTransition(body.left))
	body.right.AddTransition(NewEpsilonTransition(blkEnd))

	blkEnd.AddTransition(NewEpsilonTransition(loopBack))
	loopBack.AddTransition(NewEpsilonTransition(blkStart))
	loopBack.AddTransition(NewEpsilonTransition(end))

	f.associate(n, blkStart)
	return handle{left: blkStart, right: end}
}

func (f *factory) action(n *spec.Node) handle {
	h := f.edge(NewActionTransition(nil, f.g.ActionIndex(n)))
	f.associate(n, h.left)
	return h
}

func (f *factory) predicate(n *spec.Node) handle {
	h := f.edge(NewPredicateTransition(nil, f.g.SempredIndex(n)))
	f.associate(n, h.left)
	return h
}

func (f *factory) precPredicate(n *spec.Node) handle {
	h := f.edge(NewPrecedenceTransition(nil, n.Precedence))
	f.associate(n, h.left)
	return h
}

// lexerCommands becomes a single action transition indexing the command
// group; fragment rules never execute them.
func (f *factory) lexerCommands(n *spec.Node) handle {
	h := f.edge(NewActionTransition(nil, f.g.LexerCommandActionIndex(n)))
	f.associate(n, h.left)
	return h
}

func (f *factory) caseInsensitive(n *spec.Node) bool {
	if v, ok := n.Option("caseInsensitive"); ok {
		return v == "true"
	}
	return f.ciGlobal
}

func (f *factory) associate(n *spec.Node, s *State) {
	if n.StateNum < 0 {
		n.StateNum = s.Num
	}
}

// expandFoldedRanges unions the case foldings of [lo, hi] into set. Very
// wide ranges are taken as already case-complete and left alone.
func expandFoldedRanges(set *IntervalSet, lo, hi int) {
	const foldLimit = 0x1000
	if hi-lo > foldLimit {
		return
	}
	for c := lo; c <= hi; c++ {
		rn := rune(c)
		for folded := unicode.SimpleFold(rn); folded != rn; folded = unicode.SimpleFold(folded) {
			set.AddOne(int(folded))
		}
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, rn := range s {
		if rn < '0' || rn > '9' {
			return 0
		}
		n = n*10 + int(rn-'0')
	}
	return n
}
