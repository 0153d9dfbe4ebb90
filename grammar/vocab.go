package grammar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteTokens emits the .tokens vocabulary file: symbolic token names
// first, then literal aliases, one NAME=type per line.
func WriteTokens(w io.Writer, g *Grammar) error {
	for t := 1; t <= g.maxTokenType; t++ {
		name := g.typeToTokenName[t]
		if name == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%v=%v\n", name, t); err != nil {
			return err
		}
	}
	for t := 1; t <= g.maxTokenType; t++ {
		lit := g.typeToStringLiteral[t]
		if lit == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "'%v'=%v\n", lit, t); err != nil {
			return err
		}
	}
	return nil
}

// ReadTokenVocab parses a .tokens file back into a name-to-type map;
// literal aliases keep their quotes as map keys.
func ReadTokenVocab(r io.Reader) (map[string]int, error) {
	vocab := map[string]int{}
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" {
			continue
		}
		eq := strings.LastIndex(text, "=")
		if eq <= 0 {
			return nil, fmt.Errorf("line %v: expected NAME=type, got %q", line, text)
		}
		t, err := strconv.Atoi(strings.TrimSpace(text[eq+1:]))
		if err != nil {
			return nil, fmt.Errorf("line %v: bad token type in %q", line, text)
		}
		vocab[strings.TrimSpace(text[:eq])] = t
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return vocab, nil
}

// WriteInterp emits the interpreter dump: the vocabulary sections in fixed
// order followed by the serialized ATN payload.
func WriteInterp(w io.Writer, g *Grammar, serialized []uint16) error {
	write := func(format string, args ...interface{}) {
		fmt.Fprintf(w, format, args...)
	}

	write("token literal names:\n")
	write("null\n")
	for t := 1; t <= g.maxTokenType; t++ {
		if lit := g.typeToStringLiteral[t]; lit != "" {
			write("'%v'\n", lit)
		} else {
			write("null\n")
		}
	}
	write("\n")

	write("token symbolic names:\n")
	write("null\n")
	for t := 1; t <= g.maxTokenType; t++ {
		if name := g.typeToTokenName[t]; name != "" {
			write("%v\n", name)
		} else {
			write("null\n")
		}
	}
	write("\n")

	write("rule names:\n")
	for _, r := range g.ruleList {
		write("%v\n", r.Name)
	}
	write("\n")

	if g.IsLexer() {
		write("channel names:\n")
		for _, name := range g.channelValueToName {
			write("%v\n", name)
		}
		write("\n")

		write("mode names:\n")
		for _, name := range g.modes {
			write("%v\n", name)
		}
		write("\n")
	}

	write("atn:\n")
	parts := make([]string, len(serialized))
	for i, v := range serialized {
		parts[i] = strconv.Itoa(int(v))
	}
	write("[%v]\n", strings.Join(parts, ", "))
	return nil
}
