package spec

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type tokenKind string

const (
	tokenKindKWGrammar  = tokenKind("grammar")
	tokenKindKWLexer    = tokenKind("lexer")
	tokenKindKWParser   = tokenKind("parser")
	tokenKindKWFragment = tokenKind("fragment")
	tokenKindKWOptions  = tokenKind("options")
	tokenKindKWTokens   = tokenKind("tokens")
	tokenKindKWChannels = tokenKind("channels")
	tokenKindKWImport   = tokenKind("import")
	tokenKindKWMode     = tokenKind("mode")
	tokenKindKWReturns  = tokenKind("returns")
	tokenKindKWLocals   = tokenKind("locals")

	tokenKindTokenRef      = tokenKind("token ref")
	tokenKindRuleRef       = tokenKind("rule ref")
	tokenKindStringLiteral = tokenKind("string")
	tokenKindBracketText   = tokenKind("bracket text")
	tokenKindInt           = tokenKind("int")

	tokenKindColon      = tokenKind(":")
	tokenKindSemicolon  = tokenKind(";")
	tokenKindOr         = tokenKind("|")
	tokenKindLParen     = tokenKind("(")
	tokenKindRParen     = tokenKind(")")
	tokenKindLBrace     = tokenKind("{")
	tokenKindRBrace     = tokenKind("}")
	tokenKindQuestion   = tokenKind("?")
	tokenKindStar       = tokenKind("*")
	tokenKindPlus       = tokenKind("+")
	tokenKindDot        = tokenKind(".")
	tokenKindRange      = tokenKind("..")
	tokenKindArrow      = tokenKind("->")
	tokenKindAssign     = tokenKind("=")
	tokenKindPlusAssign = tokenKind("+=")
	tokenKindAt         = tokenKind("@")
	tokenKindScopeSep   = tokenKind("::")
	tokenKindPound      = tokenKind("#")
	tokenKindComma      = tokenKind(",")
	tokenKindNot        = tokenKind("~")
	tokenKindLt         = tokenKind("<")
	tokenKindGt         = tokenKind(">")

	tokenKindEOF     = tokenKind("eof")
	tokenKindInvalid = tokenKind("invalid")
)

var keywords = map[string]tokenKind{
	"grammar":  tokenKindKWGrammar,
	"lexer":    tokenKindKWLexer,
	"parser":   tokenKindKWParser,
	"fragment": tokenKindKWFragment,
	"options":  tokenKindKWOptions,
	"tokens":   tokenKindKWTokens,
	"channels": tokenKindKWChannels,
	"import":   tokenKindKWImport,
	"mode":     tokenKindKWMode,
	"returns":  tokenKindKWReturns,
	"locals":   tokenKindKWLocals,
}

type token struct {
	kind tokenKind
	text string
	pos  Position
}

func newSymbolToken(kind tokenKind, pos Position) *token {
	return &token{
		kind: kind,
		pos:  pos,
	}
}

func newTextToken(kind tokenKind, text string, pos Position) *token {
	return &token{
		kind: kind,
		text: text,
		pos:  pos,
	}
}

func newEOFToken(pos Position) *token {
	return &token{
		kind: tokenKindEOF,
		pos:  pos,
	}
}

// lexer scans grammar source text. Action bodies are not scanned by next;
// the parser asks for them explicitly with actionBody, which keeps
// brace-delimited target-language code opaque to the token stream.
// Bracketed attribute bodies come through next as raw bracket text.
type lexer struct {
	src *bufio.Reader

	row int
	col int

	// one-rune pushback
	unread    bool
	unreadRn  rune
	unreadEOF bool
	prevCol   int
}

func newLexer(src io.Reader) *lexer {
	return &lexer{
		src: bufio.NewReader(src),
		row: 1,
		col: 0,
	}
}

func (l *lexer) readRune() (rune, bool, error) {
	if l.unread {
		l.unread = false
		if l.unreadEOF {
			return 0, true, nil
		}
		if l.unreadRn == '\n' {
			l.row++
			l.col = 0
		} else {
			l.col++
		}
		return l.unreadRn, false, nil
	}
	rn, _, err := l.src.ReadRune()
	if err == io.EOF {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, err
	}
	if rn == '\n' {
		l.prevCol = l.col
		l.row++
		l.col = 0
	} else {
		l.prevCol = l.col
		l.col++
	}
	return rn, false, nil
}

func (l *lexer) unreadRune(rn rune, eof bool) {
	l.unread = true
	l.unreadRn = rn
	l.unreadEOF = eof
	if !eof {
		if rn == '\n' {
			l.row--
			l.col = l.prevCol
		} else {
			l.col--
		}
	}
}

func (l *lexer) pos() Position {
	return newPosition(l.row, l.col)
}

func (l *lexer) next() (*token, error) {
	err := l.skipWSAndComments()
	if err != nil {
		return nil, err
	}

	rn, eof, err := l.readRune()
	if err != nil {
		return nil, err
	}
	if eof {
		return newEOFToken(l.pos()), nil
	}
	pos := l.pos()

	switch rn {
	case ':':
		if l.peekRune(':') {
			return newSymbolToken(tokenKindScopeSep, pos), nil
		}
		return newSymbolToken(tokenKindColon, pos), nil
	case ';':
		return newSymbolToken(tokenKindSemicolon, pos), nil
	case '|':
		return newSymbolToken(tokenKindOr, pos), nil
	case '(':
		return newSymbolToken(tokenKindLParen, pos), nil
	case ')':
		return newSymbolToken(tokenKindRParen, pos), nil
	case '{':
		return newSymbolToken(tokenKindLBrace, pos), nil
	case '}':
		return newSymbolToken(tokenKindRBrace, pos), nil
	case '?':
		return newSymbolToken(tokenKindQuestion, pos), nil
	case '*':
		return newSymbolToken(tokenKindStar, pos), nil
	case ',':
		return newSymbolToken(tokenKindComma, pos), nil
	case '~':
		return newSymbolToken(tokenKindNot, pos), nil
	case '<':
		return newSymbolToken(tokenKindLt, pos), nil
	case '>':
		return newSymbolToken(tokenKindGt, pos), nil
	case '@':
		return newSymbolToken(tokenKindAt, pos), nil
	case '#':
		return newSymbolToken(tokenKindPound, pos), nil
	case '+':
		if l.peekRune('=') {
			return newSymbolToken(tokenKindPlusAssign, pos), nil
		}
		return newSymbolToken(tokenKindPlus, pos), nil
	case '=':
		return newSymbolToken(tokenKindAssign, pos), nil
	case '-':
		if l.peekRune('>') {
			return newSymbolToken(tokenKindArrow, pos), nil
		}
		return newTextToken(tokenKindInvalid, string(rn), pos), nil
	case '.':
		if l.peekRune('.') {
			return newSymbolToken(tokenKindRange, pos), nil
		}
		return newSymbolToken(tokenKindDot, pos), nil
	case '\'':
		return l.lexStringLiteral(pos)
	case '[':
		return l.lexBracketText(pos)
	}

	if rn >= '0' && rn <= '9' {
		return l.lexInt(rn, pos)
	}
	if isIDStart(rn) {
		return l.lexID(rn, pos)
	}

	return newTextToken(tokenKindInvalid, string(rn), pos), nil
}

// peekRune consumes the next rune when it equals want.
func (l *lexer) peekRune(want rune) bool {
	rn, eof, err := l.readRune()
	if err != nil || eof {
		if err == nil {
			l.unreadRune(rn, eof)
		}
		return false
	}
	if rn == want {
		return true
	}
	l.unreadRune(rn, false)
	return false
}

func (l *lexer) skipWSAndComments() error {
	for {
		rn, eof, err := l.readRune()
		if err != nil {
			return err
		}
		if eof {
			l.unreadRune(0, true)
			return nil
		}
		switch rn {
		case ' ', '\t', '\r', '\n':
			continue
		case '/':
			pos := l.pos()
			next, eof, err := l.readRune()
			if err != nil {
				return err
			}
			if eof {
				return synErrInvalidToken.at(pos).withDetail("/")
			}
			switch next {
			case '/':
				for {
					rn, eof, err := l.readRune()
					if err != nil {
						return err
					}
					if eof || rn == '\n' {
						break
					}
				}
				continue
			case '*':
				err := l.skipBlockComment()
				if err != nil {
					return err
				}
				continue
			default:
				// A stray slash cannot begin any token.
				return synErrInvalidToken.at(pos).withDetail("/")
			}
		}
		l.unreadRune(rn, false)
		return nil
	}
}

func (l *lexer) skipBlockComment() error {
	pos := l.pos()
	for {
		rn, eof, err := l.readRune()
		if err != nil {
			return err
		}
		if eof {
			return synErrUnclosedComment.at(pos)
		}
		if rn == '*' {
			if l.peekRune('/') {
				return nil
			}
		}
	}
}

func (l *lexer) lexStringLiteral(pos Position) (*token, error) {
	var b strings.Builder
	for {
		rn, eof, err := l.readRune()
		if err != nil {
			return nil, err
		}
		if eof || rn == '\n' {
			return nil, synErrUnclosedString.at(pos)
		}
		switch rn {
		case '\'':
			if b.Len() == 0 {
				return nil, synErrEmptyString.at(pos)
			}
			return newTextToken(tokenKindStringLiteral, b.String(), pos), nil
		case '\\':
			dec, err := l.lexEscape(pos)
			if err != nil {
				return nil, err
			}
			b.WriteRune(dec)
		default:
			b.WriteRune(rn)
		}
	}
}

func (l *lexer) lexEscape(pos Position) (rune, error) {
	rn, eof, err := l.readRune()
	if err != nil {
		return 0, err
	}
	if eof {
		return 0, synErrIncompletedEscSeq.at(pos)
	}
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
	case '\\', '\'', '"':
		return rn, nil
	case 'u':
		return l.lexUnicodeEscape(pos)
	}
	return 0, synErrInvalidEscSeq.at(pos).withDetail(fmt.Sprintf("\\%c", rn))
}

func (l *lexer) lexUnicodeEscape(pos Position) (rune, error) {
	rn, eof, err := l.readRune()
	if err != nil {
		return 0, err
	}
	if eof {
		return 0, synErrIncompletedEscSeq.at(pos)
	}
	if rn == '{' {
		var v rune
		n := 0
		for {
			rn, eof, err := l.readRune()
			if err != nil {
				return 0, err
			}
			if eof {
				return 0, synErrIncompletedEscSeq.at(pos)
			}
			if rn == '}' {
				if n == 0 {
					return 0, synErrInvalidEscSeq.at(pos)
				}
				return v, nil
			}
			d, ok := hexDigit(rn)
			if !ok {
				return 0, synErrInvalidEscSeq.at(pos)
			}
			v = v<<4 | d
			n++
		}
	}

	d, ok := hexDigit(rn)
	if !ok {
		return 0, synErrInvalidEscSeq.at(pos)
	}
	v := d
	for i := 0; i < 3; i++ {
		rn, eof, err := l.readRune()
		if err != nil {
			return 0, err
		}
		if eof {
			return 0, synErrIncompletedEscSeq.at(pos)
		}
		d, ok := hexDigit(rn)
		if !ok {
			return 0, synErrInvalidEscSeq.at(pos)
		}
		v = v<<4 | d
	}
	return v, nil
}

func hexDigit(rn rune) (rune, bool) {
	switch {
	case rn >= '0' && rn <= '9':
		return rn - '0', true
	case rn >= 'a' && rn <= 'f':
		return rn - 'a' + 10, true
	case rn >= 'A' && rn <= 'F':
		return rn - 'A' + 10, true
	}
	return 0, false
}

// lexBracketText captures the raw text between [ and ], leaving escape
// interpretation to the consumer. The same token covers character sets in
// lexer rules and argument/attribute declarations in parser rules; the
// parser tells them apart by position.
func (l *lexer) lexBracketText(pos Position) (*token, error) {
	var b strings.Builder
	for {
		rn, eof, err := l.readRune()
		if err != nil {
			return nil, err
		}
		if eof {
			return nil, synErrUnclosedCharSet.at(pos)
		}
		switch rn {
		case ']':
			return newTextToken(tokenKindBracketText, b.String(), pos), nil
		case '\\':
			next, eof, err := l.readRune()
			if err != nil {
				return nil, err
			}
			if eof {
				return nil, synErrIncompletedEscSeq.at(pos)
			}
			b.WriteRune('\\')
			b.WriteRune(next)
		default:
			b.WriteRune(rn)
		}
	}
}

func (l *lexer) lexInt(first rune, pos Position) (*token, error) {
	var b strings.Builder
	b.WriteRune(first)
	for {
		rn, eof, err := l.readRune()
		if err != nil {
			return nil, err
		}
		if eof {
			l.unreadRune(0, true)
			break
		}
		if rn < '0' || rn > '9' {
			l.unreadRune(rn, false)
			break
		}
		b.WriteRune(rn)
	}
	return newTextToken(tokenKindInt, b.String(), pos), nil
}

func (l *lexer) lexID(first rune, pos Position) (*token, error) {
	var b strings.Builder
	b.WriteRune(first)
	for {
		rn, eof, err := l.readRune()
		if err != nil {
			return nil, err
		}
		if eof {
			l.unreadRune(0, true)
			break
		}
		if !isIDPart(rn) {
			l.unreadRune(rn, false)
			break
		}
		b.WriteRune(rn)
	}
	text := b.String()
	if kind, ok := keywords[text]; ok {
		return newSymbolToken(kind, pos), nil
	}
	if text[0] >= 'A' && text[0] <= 'Z' {
		return newTextToken(tokenKindTokenRef, text, pos), nil
	}
	return newTextToken(tokenKindRuleRef, text, pos), nil
}

// actionBody scans the raw text of a brace-delimited action whose opening
// brace was already consumed. Nested braces and quoted character/string
// literals inside the body are skipped over, not interpreted. Comments get
// no special treatment: a brace or quote inside one counts like any other.
func (l *lexer) actionBody(open Position) (string, error) {
	var b strings.Builder
	depth := 1
	for {
		rn, eof, err := l.readRune()
		if err != nil {
			return "", err
		}
		if eof {
			return "", synErrUnclosedAction.at(open)
		}
		switch rn {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b.String(), nil
			}
		case '\'', '"':
			quote := rn
			b.WriteRune(rn)
			for {
				rn, eof, err := l.readRune()
				if err != nil {
					return "", err
				}
				if eof {
					return "", synErrUnclosedAction.at(open)
				}
				b.WriteRune(rn)
				if rn == '\\' {
					next, eof, err := l.readRune()
					if err != nil {
						return "", err
					}
					if eof {
						return "", synErrUnclosedAction.at(open)
					}
					b.WriteRune(next)
					continue
				}
				if rn == quote {
					break
				}
			}
			continue
		}
		if depth > 0 {
			b.WriteRune(rn)
		}
	}
}

func isIDStart(rn rune) bool {
	return rn == '_' || (rn >= 'a' && rn <= 'z') || (rn >= 'A' && rn <= 'Z')
}

func isIDPart(rn rune) bool {
	return isIDStart(rn) || (rn >= '0' && rn <= '9')
}
