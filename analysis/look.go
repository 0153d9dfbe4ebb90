// Package analysis computes static lookahead information over a built ATN:
// the LOOK set of every decision alternative, the LL(1) property of each
// decision, and left-recursion cycles the transform pipeline could not
// remove.
package analysis

import (
	"github.com/ternbird/tern/atn"
)

// hitPred marks an alternative whose lookahead ran into a semantic
// predicate while predicates were treated as opaque. It lies below every
// token type, sentinel, and code point, so no matchable symbol collides
// with it.
const hitPred = atn.TokenEpsilon - 1

type looker struct {
	atn          *atn.ATN
	seeThruPreds bool
}

type busyKey struct {
	state  int
	follow int
}

// Look computes the set of symbols that can be matched first when the
// automaton continues from s with an empty call stack. Predicates are seen
// through.
func Look(a *atn.ATN, s *atn.State) *atn.IntervalSet {
	lk := &looker{atn: a, seeThruPreds: true}
	set := atn.NewIntervalSet()
	lk.look(s, nil, nil, set, map[busyKey]struct{}{}, map[int]struct{}{})
	return set
}

// DecisionLookahead computes the LOOK set of every alternative of every
// decision, bounded to one symbol. An alternative whose closure hits a
// predicate, or that can match nothing, gets a nil entry; such decisions
// are left to adaptive prediction.
func DecisionLookahead(a *atn.ATN) [][]*atn.IntervalSet {
	lk := &looker{atn: a, seeThruPreds: false}
	look := make([][]*atn.IntervalSet, len(a.DecisionToState))
	for d, s := range a.DecisionToState {
		altLook := make([]*atn.IntervalSet, len(s.Transitions))
		for alt, t := range s.Transitions {
			set := atn.NewIntervalSet()
			lk.look(t.Target, nil, nil, set, map[busyKey]struct{}{}, map[int]struct{}{})
			if set.Length() == 0 || set.Contains(hitPred) {
				altLook[alt] = nil
			} else {
				altLook[alt] = set
			}
		}
		look[d] = altLook
	}
	return look
}

// Disjoint reports whether the alternative sets are pairwise disjoint and
// all known; this is exactly the decisions predictable with one symbol of
// lookahead.
func Disjoint(altLook []*atn.IntervalSet) bool {
	for i := 0; i < len(altLook); i++ {
		if altLook[i] == nil {
			return false
		}
		for j := i + 1; j < len(altLook); j++ {
			if altLook[j] == nil {
				return false
			}
			if !altLook[i].Disjoint(altLook[j]) {
				return false
			}
		}
	}
	return true
}

// look adds to set every symbol matchable first from s. stop cuts the walk
// at a block end; follow is the rule-call return stack; busy cuts epsilon
// cycles; calledRules cuts recursive rule entry.
func (lk *looker) look(s, stop *atn.State, follow []*atn.State, set *atn.IntervalSet, busy map[busyKey]struct{}, calledRules map[int]struct{}) {
	top := -1
	if len(follow) > 0 {
		top = follow[len(follow)-1].Num
	}
	key := busyKey{state: s.Num, follow: top}
	if _, ok := busy[key]; ok {
		return
	}
	busy[key] = struct{}{}

	if s == stop || s.Kind == atn.StateRuleStop {
		if len(follow) == 0 {
			set.AddOne(atn.TokenEpsilon)
			return
		}
		ret := follow[len(follow)-1]
		lk.look(ret, stop, follow[:len(follow)-1], set, busy, calledRules)
		return
	}

	for _, t := range s.Transitions {
		switch t.Kind {
		case atn.TransitionRule:
			if _, ok := calledRules[t.RuleIndex]; ok {
				continue
			}
			calledRules[t.RuleIndex] = struct{}{}
			lk.look(t.Target, stop, append(follow, t.FollowState), set, busy, calledRules)
			delete(calledRules, t.RuleIndex)
		case atn.TransitionPredicate, atn.TransitionPrecedence:
			if lk.seeThruPreds {
				lk.look(t.Target, stop, follow, set, busy, calledRules)
			} else {
				set.AddOne(hitPred)
			}
		case atn.TransitionEpsilon, atn.TransitionAction:
			lk.look(t.Target, stop, follow, set, busy, calledRules)
		case atn.TransitionWildcard:
			set.AddSet(lk.fullRange())
		case atn.TransitionNotSet:
			min, max := lk.bounds()
			set.AddSet(t.Label.Complement(min, max))
		default:
			set.AddSet(t.Label)
		}
	}
}

func (lk *looker) bounds() (int, int) {
	if lk.atn.Kind == atn.GrammarKindLexer {
		return atn.MinCharValue, atn.MaxCharValue
	}
	return atn.TokenMinUserType, lk.atn.MaxTokenType
}

func (lk *looker) fullRange() *atn.IntervalSet {
	min, max := lk.bounds()
	return atn.NewIntervalSetOf(min, max)
}
