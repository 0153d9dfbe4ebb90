package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternbird/tern/grammar"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show grammar.g4",
		Short: "Describe a compiled grammar: rules, tokens, and decisions",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	g, mgr, err := processGrammar(args[0])
	if err != nil {
		return err
	}
	if mgr.ErrorCount() > 0 {
		return fmt.Errorf("%v error(s) in %v", mgr.ErrorCount(), args[0])
	}

	describeGrammar(g)
	if lex := g.ImplicitLexer(); lex != nil {
		fmt.Fprintln(os.Stdout)
		describeGrammar(lex)
	}
	return nil
}

func describeGrammar(g *grammar.Grammar) {
	w := os.Stdout
	fmt.Fprintf(w, "%v grammar %v\n", g.Type, g.Name)

	fmt.Fprintf(w, "\ntokens:\n")
	for t := 1; t <= g.MaxTokenType(); t++ {
		fmt.Fprintf(w, "  %4v  %v\n", t, g.TokenDisplayName(t))
	}

	fmt.Fprintf(w, "\nrules:\n")
	for _, r := range g.Rules() {
		flags := ""
		if r.IsFragment {
			flags = " (fragment)"
		}
		if r.LeftRecursive != nil {
			flags += " (left-recursive)"
		}
		fmt.Fprintf(w, "  %4v  %v%v\n", r.Index, r.Name, flags)
	}

	if len(g.ModeNames()) > 0 {
		fmt.Fprintf(w, "\nmodes:\n")
		for _, m := range g.ModeNames() {
			fmt.Fprintf(w, "  %v\n", m)
		}
	}

	fmt.Fprintf(w, "\ndecisions: %v\n", len(g.DecisionLookahead))
	for d, altLook := range g.DecisionLookahead {
		state := g.ATN.DecisionToState[d]
		kind := "adaptive"
		if g.LL1[d] {
			kind = "LL(1)"
		}
		owner := "mode dispatch"
		if state.RuleIndex >= 0 {
			owner = g.RuleName(state.RuleIndex)
		}
		fmt.Fprintf(w, "  %4v  state %v in %v: %v\n", d, state.Num, owner, kind)
		for alt, look := range altLook {
			if look == nil {
				fmt.Fprintf(w, "          alt %v: (needs runtime prediction)\n", alt+1)
				continue
			}
			fmt.Fprintf(w, "          alt %v: %v\n", alt+1, look)
		}
	}
}
