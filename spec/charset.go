package spec

import "fmt"

// CharRange is an inclusive range of code points inside a character set.
type CharRange struct {
	Lo rune
	Hi rune
}

// ParseCharSet interprets the raw body of a [...] character set into its
// ranges, in source order. Overlap between ranges is the caller's concern;
// this only decodes the syntax.
func ParseCharSet(raw string) ([]CharRange, error) {
	rns := []rune(raw)
	var ranges []CharRange
	i := 0
	next := func() (rune, error) {
		if rns[i] != '\\' {
			rn := rns[i]
			i++
			return rn, nil
		}
		i++
		if i >= len(rns) {
			return 0, synErrIncompletedEscSeq
		}
		rn := rns[i]
		i++
		switch rn {
		case 'n':
			return '\n', nil
		case 'r':
			return '\r', nil
		case 't':
			return '\t', nil
		case 'b':
			return '\b', nil
		case 'f':
			return '\f', nil
		case '\\', ']', '-', '\'':
			return rn, nil
		case 'u':
			return decodeCharSetUnicode(rns, &i)
		}
		return 0, synErrInvalidEscSeq.withDetail(fmt.Sprintf("\\%c", rn))
	}

	for i < len(rns) {
		lo, err := next()
		if err != nil {
			return nil, err
		}
		hi := lo
		if i+1 < len(rns) && rns[i] == '-' {
			i++
			hi, err = next()
			if err != nil {
				return nil, err
			}
		}
		if hi < lo {
			return nil, synErrInvalidEscSeq.withDetail(fmt.Sprintf("%c-%c is an inverted range", lo, hi))
		}
		ranges = append(ranges, CharRange{Lo: lo, Hi: hi})
	}
	return ranges, nil
}

func decodeCharSetUnicode(rns []rune, i *int) (rune, error) {
	if *i >= len(rns) {
		return 0, synErrIncompletedEscSeq
	}
	if rns[*i] == '{' {
		*i++
		var v rune
		n := 0
		for {
			if *i >= len(rns) {
				return 0, synErrIncompletedEscSeq
			}
			rn := rns[*i]
			*i++
			if rn == '}' {
				if n == 0 {
					return 0, synErrInvalidEscSeq
				}
				return v, nil
			}
			d, ok := hexDigit(rn)
			if !ok {
				return 0, synErrInvalidEscSeq
			}
			v = v<<4 | d
			n++
		}
	}
	var v rune
	for n := 0; n < 4; n++ {
		if *i >= len(rns) {
			return 0, synErrIncompletedEscSeq
		}
		d, ok := hexDigit(rns[*i])
		if !ok {
			return 0, synErrInvalidEscSeq
		}
		v = v<<4 | d
		*i++
	}
	return v, nil
}
