package atn

// Optimize rewrites the freshly built automaton in place: decisions whose
// alternatives all match a single symbol collapse into one set transition,
// and the state array is compacted afterwards.
func Optimize(a *ATN) {
	mergeSets(a)
	compact(a)
}

// mergeSets collapses a block decision whose every alternative is
// epsilon -> match-one-symbol -> epsilon -> block-end into a single set
// transition straight to the block end.
func mergeSets(a *ATN) {
	for _, s := range a.States {
		if s == nil || s.Kind != StateBlockStart || s.EndState == nil {
			continue
		}
		end := s.EndState

		set := NewIntervalSet()
		var removed []*State
		mergeable := len(s.Transitions) > 1
		for _, t := range s.Transitions {
			if t.Kind != TransitionEpsilon {
				mergeable = false
				break
			}
			mid := t.Target
			if len(mid.Transitions) != 1 {
				mergeable = false
				break
			}
			match := mid.Transitions[0]
			switch match.Kind {
			case TransitionAtom, TransitionRange, TransitionSet:
			default:
				mergeable = false
			}
			if !mergeable {
				break
			}
			after := match.Target
			if len(after.Transitions) != 1 ||
				after.Transitions[0].Kind != TransitionEpsilon ||
				after.Transitions[0].Target != end {
				mergeable = false
				break
			}
			set.AddSet(match.Label)
			removed = append(removed, mid, after)
		}
		if !mergeable {
			continue
		}

		s.Transitions = nil
		s.AddTransition(NewSetTransition(end, set))
		for _, dead := range removed {
			a.RemoveState(dead)
		}
	}
}

// compact squeezes nil slots out of the state array and renumbers the
// survivors so that States[s.Num] == s again.
func compact(a *ATN) {
	out := a.States[:0]
	for _, s := range a.States {
		if s == nil {
			continue
		}
		s.Num = len(out)
		out = append(out, s)
	}
	a.States = out
}
