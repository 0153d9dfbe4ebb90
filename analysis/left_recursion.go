package analysis

import (
	"sort"

	"github.com/ternbird/tern/atn"
)

// LeftRecursionCycles finds sets of mutually left-recursive rules the
// transform pipeline could not rewrite. An edge r -> c exists when rule c
// can be entered before any symbol is consumed in r; the strongly
// connected components of that graph with a cycle are the offenders.
func LeftRecursionCycles(a *atn.ATN) [][]int {
	n := len(a.RuleToStartState)
	edges := make([][]int, n)
	for r := 0; r < n; r++ {
		edges[r] = leftEdges(a, r)
	}

	sccs := stronglyConnected(edges)
	var cycles [][]int
	for _, scc := range sccs {
		if len(scc) > 1 {
			sort.Ints(scc)
			cycles = append(cycles, scc)
			continue
		}
		r := scc[0]
		for _, c := range edges[r] {
			if c == r {
				cycles = append(cycles, scc)
				break
			}
		}
	}
	return cycles
}

// leftEdges walks the epsilon-reachable frontier of a rule's start state
// and collects the rules invoked before any symbol is matched.
func leftEdges(a *atn.ATN, rule int) []int {
	seen := map[int]struct{}{}
	callees := map[int]struct{}{}
	var walk func(s *atn.State)
	walk = func(s *atn.State) {
		if _, ok := seen[s.Num]; ok {
			return
		}
		seen[s.Num] = struct{}{}
		for _, t := range s.Transitions {
			switch t.Kind {
			case atn.TransitionRule:
				callees[t.RuleIndex] = struct{}{}
			case atn.TransitionEpsilon, atn.TransitionAction,
				atn.TransitionPredicate, atn.TransitionPrecedence:
				walk(t.Target)
			}
		}
	}
	walk(a.RuleToStartState[rule])

	out := make([]int, 0, len(callees))
	for c := range callees {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// stronglyConnected is Tarjan's algorithm over the rule graph.
func stronglyConnected(edges [][]int) [][]int {
	n := len(edges)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next := 0
	var sccs [][]int

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if index[w] < 0 {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := 0; v < n; v++ {
		if index[v] < 0 {
			strongconnect(v)
		}
	}
	return sccs
}
