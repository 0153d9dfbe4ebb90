package spec

import (
	"fmt"
	"io"
)

// Parse reads a grammar source and returns its AST. The returned error is a
// *SyntaxError for malformed input.
func Parse(src io.Reader) (*Node, error) {
	p := newParser(src)
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	root.SetOrigin(root.Text)
	root.SanityCheckParentAndChildIndexes()
	return root, nil
}

func raiseSyntaxError(synErr *SyntaxError) {
	panic(synErr)
}

type parser struct {
	lex     *lexer
	peeked  []*token
	lastTok *token
}

func newParser(src io.Reader) *parser {
	return &parser{
		lex: newLexer(src),
	}
}

func (p *parser) parse() (root *Node, retErr error) {
	defer func() {
		err := recover()
		if err != nil {
			retErr = err.(error)
			return
		}
	}()
	return p.parseGrammarSpec(), nil
}

// peek returns the i-th upcoming token without consuming it.
func (p *parser) peek(i int) *token {
	for len(p.peeked) <= i {
		tok, err := p.lex.next()
		if err != nil {
			panic(err)
		}
		p.peeked = append(p.peeked, tok)
	}
	return p.peeked[i]
}

func (p *parser) take() *token {
	tok := p.peek(0)
	p.peeked = p.peeked[1:]
	p.lastTok = tok
	if tok.kind == tokenKindInvalid {
		raiseSyntaxError(synErrInvalidToken.at(tok.pos).withDetail(tok.text))
	}
	return tok
}

func (p *parser) consume(expected tokenKind) bool {
	if p.peek(0).kind == expected {
		p.take()
		return true
	}
	return false
}

func (p *parser) expect(expected tokenKind, synErr *SyntaxError) *token {
	if !p.consume(expected) {
		tok := p.peek(0)
		raiseSyntaxError(synErr.at(tok.pos))
	}
	return p.lastTok
}

func (p *parser) parseGrammarSpec() *Node {
	gtype := GrammarTypeCombined
	pos := p.peek(0).pos
	switch {
	case p.consume(tokenKindKWLexer):
		gtype = GrammarTypeLexer
		p.expect(tokenKindKWGrammar, synErrNoGrammarDecl)
	case p.consume(tokenKindKWParser):
		gtype = GrammarTypeParser
		p.expect(tokenKindKWGrammar, synErrNoGrammarDecl)
	case p.consume(tokenKindKWGrammar):
	default:
		raiseSyntaxError(synErrNoGrammarDecl.at(pos))
	}

	var name string
	switch {
	case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
		name = p.lastTok.text
	default:
		raiseSyntaxError(synErrNoGrammarName.at(p.peek(0).pos))
	}
	p.expect(tokenKindSemicolon, synErrNoSemicolon)

	root := NewTextNode(KindGrammar, pos, name)
	root.GrammarType = gtype

	p.parsePrequels(root)
	p.parseRules(root)
	for p.peek(0).kind == tokenKindKWMode {
		root.AddChild(p.parseMode())
	}
	if p.peek(0).kind != tokenKindEOF {
		tok := p.peek(0)
		raiseSyntaxError(synErrUnexpectedToken.at(tok.pos).withDetail(string(tok.kind)))
	}
	return root
}

func (p *parser) parsePrequels(root *Node) {
	for {
		switch p.peek(0).kind {
		case tokenKindKWOptions:
			root.AddChild(p.parseOptionsSpec())
		case tokenKindKWTokens:
			root.AddChild(p.parseNameListSpec(KindTokens))
		case tokenKindKWChannels:
			root.AddChild(p.parseNameListSpec(KindChannels))
		case tokenKindKWImport:
			root.AddChild(p.parseImport())
		case tokenKindAt:
			root.AddChild(p.parseNamedAction())
		default:
			return
		}
	}
}

func (p *parser) parseOptionsSpec() *Node {
	p.take()
	spec := NewNode(KindOptions, p.lastTok.pos)
	p.expect(tokenKindLBrace, synErrUnexpectedToken)
	for !p.consume(tokenKindRBrace) {
		var key string
		keyPos := p.peek(0).pos
		switch {
		case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
			key = p.lastTok.text
		default:
			raiseSyntaxError(synErrUnexpectedToken.at(keyPos))
		}
		p.expect(tokenKindAssign, synErrNoOptionValue)
		opt := NewTextNode(KindOption, keyPos, key)
		opt.Value = p.parseOptionValue()
		p.expect(tokenKindSemicolon, synErrNoSemicolon)
		spec.AddChild(opt)
		spec.SetOption(key, opt.Value)
	}
	return spec
}

func (p *parser) parseOptionValue() string {
	switch {
	case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef),
		p.consume(tokenKindStringLiteral), p.consume(tokenKindInt):
		v := p.lastTok.text
		// qualified values like a.b.C
		for p.consume(tokenKindDot) {
			switch {
			case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
				v = fmt.Sprintf("%v.%v", v, p.lastTok.text)
			default:
				raiseSyntaxError(synErrNoOptionValue.at(p.peek(0).pos))
			}
		}
		return v
	}
	raiseSyntaxError(synErrNoOptionValue.at(p.peek(0).pos))
	return ""
}

func (p *parser) parseNameListSpec(kind NodeKind) *Node {
	p.take()
	spec := NewNode(kind, p.lastTok.pos)
	p.expect(tokenKindLBrace, synErrUnexpectedToken)
	for {
		if p.consume(tokenKindRBrace) {
			break
		}
		switch {
		case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
			spec.AddChild(NewTextNode(KindTerminal, p.lastTok.pos, p.lastTok.text))
		default:
			raiseSyntaxError(synErrUnexpectedToken.at(p.peek(0).pos))
		}
		if !p.consume(tokenKindComma) {
			p.expect(tokenKindRBrace, synErrUnexpectedToken)
			break
		}
	}
	return spec
}

func (p *parser) parseImport() *Node {
	p.take()
	imp := NewNode(KindImport, p.lastTok.pos)
	for {
		switch {
		case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
			imp.AddChild(NewTextNode(KindGrammarRef, p.lastTok.pos, p.lastTok.text))
		default:
			raiseSyntaxError(synErrUnexpectedToken.at(p.peek(0).pos))
		}
		if !p.consume(tokenKindComma) {
			break
		}
	}
	p.expect(tokenKindSemicolon, synErrNoSemicolon)
	return imp
}

// consumeActionID accepts the identifiers named actions use; the scope
// position reuses the lexer/parser keywords as plain names.
func (p *parser) consumeActionID() (string, bool) {
	switch {
	case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
		return p.lastTok.text, true
	case p.consume(tokenKindKWLexer):
		return "lexer", true
	case p.consume(tokenKindKWParser):
		return "parser", true
	}
	return "", false
}

func (p *parser) parseNamedAction() *Node {
	p.take()
	pos := p.lastTok.pos
	name, ok := p.consumeActionID()
	if !ok {
		raiseSyntaxError(synErrNoActionName.at(p.peek(0).pos))
	}
	var scope string
	if p.consume(tokenKindScopeSep) {
		scope = name
		name, ok = p.consumeActionID()
		if !ok {
			raiseSyntaxError(synErrNoActionName.at(p.peek(0).pos))
		}
	}
	open := p.expect(tokenKindLBrace, synErrUnexpectedToken)
	body, err := p.lex.actionBody(open.pos)
	if err != nil {
		panic(err)
	}

	act := NewTextNode(KindNamedAction, pos, name)
	act.Scope = scope
	act.AddChild(NewTextNode(KindAction, open.pos, body))
	return act
}

func (p *parser) parseRules(root *Node) {
	for {
		switch p.peek(0).kind {
		case tokenKindKWFragment, tokenKindTokenRef:
			root.AddChild(p.parseLexerRule())
		case tokenKindRuleRef:
			root.AddChild(p.parseParserRule())
		default:
			return
		}
	}
}

func (p *parser) parseMode() *Node {
	p.take()
	pos := p.lastTok.pos
	var name string
	switch {
	case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
		name = p.lastTok.text
	default:
		raiseSyntaxError(synErrNoModeName.at(p.peek(0).pos))
	}
	p.expect(tokenKindSemicolon, synErrNoSemicolon)

	mode := NewTextNode(KindMode, pos, name)
	for {
		switch p.peek(0).kind {
		case tokenKindKWFragment, tokenKindTokenRef:
			mode.AddChild(p.parseLexerRule())
		default:
			return mode
		}
	}
}

func (p *parser) parseLexerRule() *Node {
	fragment := p.consume(tokenKindKWFragment)
	tok := p.expect(tokenKindTokenRef, synErrNoRuleName)

	rule := NewTextNode(KindRule, tok.pos, tok.text)
	rule.Fragment = fragment
	if p.peek(0).kind == tokenKindKWOptions {
		opts := p.parseOptionsSpec()
		rule.Opts = opts.Opts
	}
	p.expect(tokenKindColon, synErrNoColon)
	rule.AddChild(p.parseAltList())
	p.expect(tokenKindSemicolon, synErrNoSemicolon)
	return rule
}

func (p *parser) parseParserRule() *Node {
	tok := p.take()
	rule := NewTextNode(KindRule, tok.pos, tok.text)
	if p.peek(0).kind == tokenKindBracketText {
		rule.ArgAction = p.take().text
	}
	if p.consume(tokenKindKWReturns) {
		rule.RetAction = p.expect(tokenKindBracketText, synErrUnexpectedToken).text
	}
	if p.consume(tokenKindKWLocals) {
		rule.LocAction = p.expect(tokenKindBracketText, synErrUnexpectedToken).text
	}
	if p.peek(0).kind == tokenKindKWOptions {
		opts := p.parseOptionsSpec()
		rule.Opts = opts.Opts
	}
	p.expect(tokenKindColon, synErrNoColon)
	rule.AddChild(p.parseAltList())
	p.expect(tokenKindSemicolon, synErrNoSemicolon)
	return rule
}

func (p *parser) parseAltList() *Node {
	block := NewNode(KindBlock, p.peek(0).pos)
	block.AddChild(p.parseAlt())
	for p.consume(tokenKindOr) {
		block.AddChild(p.parseAlt())
	}
	return block
}

func (p *parser) parseAlt() *Node {
	alt := NewNode(KindAlt, p.peek(0).pos)
	for {
		elem := p.parseElement()
		if elem == nil {
			break
		}
		alt.AddChild(elem)
	}
	if p.consume(tokenKindPound) {
		switch {
		case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
			alt.AltLabel = p.lastTok.text
		default:
			raiseSyntaxError(synErrNoAltLabel.at(p.peek(0).pos))
		}
	}
	if p.peek(0).kind == tokenKindArrow {
		alt.AddChild(p.parseLexerCommands())
	}
	return alt
}

// parseElement returns nil when the upcoming token cannot begin an element.
func (p *parser) parseElement() *Node {
	// x=e and x+=e labels need two tokens of lookahead.
	tok := p.peek(0)
	if tok.kind == tokenKindTokenRef || tok.kind == tokenKindRuleRef {
		next := p.peek(1)
		if next.kind == tokenKindAssign || next.kind == tokenKindPlusAssign {
			label := p.take()
			assign := p.take()
			elem := p.parseElement()
			if elem == nil {
				raiseSyntaxError(synErrNoElement.at(p.peek(0).pos))
			}
			elem.Label = label.text
			elem.ListLabel = assign.kind == tokenKindPlusAssign
			elem.LabelPos = label.pos
			return elem
		}
	}

	atom := p.parseAtom()
	if atom == nil {
		return nil
	}
	return p.parseQuantifier(atom)
}

func (p *parser) parseQuantifier(atom *Node) *Node {
	var wrapped *Node
	switch {
	case p.consume(tokenKindQuestion):
		wrapped = NewNode(KindOptional, p.lastTok.pos)
	case p.consume(tokenKindStar):
		wrapped = NewNode(KindClosure, p.lastTok.pos)
	case p.consume(tokenKindPlus):
		wrapped = NewNode(KindPositiveClosure, p.lastTok.pos)
	default:
		return atom
	}
	if p.consume(tokenKindQuestion) {
		wrapped.Greedy = false
	}
	wrapped.Label = atom.Label
	wrapped.ListLabel = atom.ListLabel
	wrapped.LabelPos = atom.LabelPos
	atom.Label = ""
	atom.ListLabel = false
	wrapped.AddChild(atom)
	return wrapped
}

func (p *parser) parseAtom() *Node {
	switch p.peek(0).kind {
	case tokenKindTokenRef:
		tok := p.take()
		n := NewTextNode(KindTerminal, tok.pos, tok.text)
		p.parseElementOptions(n)
		return n
	case tokenKindStringLiteral:
		tok := p.take()
		if p.consume(tokenKindRange) {
			lo := decodeRangeBound(tok)
			hiTok := p.expect(tokenKindStringLiteral, synErrNoRangeBound)
			hi := decodeRangeBound(hiTok)
			n := NewNode(KindRange, tok.pos)
			n.Lo = lo
			n.Hi = hi
			return n
		}
		n := NewTextNode(KindStringLiteral, tok.pos, tok.text)
		p.parseElementOptions(n)
		return n
	case tokenKindRuleRef:
		tok := p.take()
		n := NewTextNode(KindRuleRef, tok.pos, tok.text)
		if p.peek(0).kind == tokenKindBracketText {
			n.ArgAction = p.take().text
		}
		p.parseElementOptions(n)
		return n
	case tokenKindBracketText:
		tok := p.take()
		n := NewTextNode(KindCharSet, tok.pos, tok.text)
		p.parseElementOptions(n)
		return n
	case tokenKindDot:
		tok := p.take()
		n := NewNode(KindWildcard, tok.pos)
		p.parseElementOptions(n)
		return n
	case tokenKindNot:
		tok := p.take()
		n := NewNode(KindNot, tok.pos)
		sub := p.parseAtom()
		if sub == nil {
			raiseSyntaxError(synErrNoElement.at(p.peek(0).pos))
		}
		n.AddChild(sub)
		return n
	case tokenKindLParen:
		p.take()
		block := p.parseAltList()
		p.expect(tokenKindRParen, synErrUnbalancedParen)
		return block
	case tokenKindLBrace:
		open := p.take()
		body, err := p.lex.actionBody(open.pos)
		if err != nil {
			panic(err)
		}
		if p.consume(tokenKindQuestion) {
			n := NewTextNode(KindPredicate, open.pos, body)
			p.parseElementOptions(n)
			return n
		}
		return NewTextNode(KindAction, open.pos, body)
	}
	return nil
}

func decodeRangeBound(tok *token) rune {
	rns := []rune(tok.text)
	if len(rns) != 1 {
		raiseSyntaxError(synErrNoRangeBound.at(tok.pos))
	}
	return rns[0]
}

func (p *parser) parseElementOptions(elem *Node) {
	if p.peek(0).kind != tokenKindLt {
		return
	}
	p.take()
	for {
		var key string
		switch {
		case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
			key = p.lastTok.text
		default:
			raiseSyntaxError(synErrUnclosedElemOpts.at(p.peek(0).pos))
		}
		value := ""
		if p.consume(tokenKindAssign) {
			value = p.parseOptionValue()
		}
		elem.SetOption(key, value)
		if !p.consume(tokenKindComma) {
			break
		}
	}
	p.expect(tokenKindGt, synErrUnclosedElemOpts)
}

func (p *parser) parseLexerCommands() *Node {
	p.take()
	cmds := NewNode(KindLexerCommands, p.lastTok.pos)
	for {
		var name string
		switch {
		case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef):
			name = p.lastTok.text
		case p.consume(tokenKindKWMode):
			name = "mode"
		default:
			raiseSyntaxError(synErrNoCommandName.at(p.peek(0).pos))
		}
		cmd := NewTextNode(KindLexerCommand, p.lastTok.pos, name)
		if p.consume(tokenKindLParen) {
			switch {
			case p.consume(tokenKindTokenRef), p.consume(tokenKindRuleRef), p.consume(tokenKindInt):
				cmd.Value = p.lastTok.text
			default:
				raiseSyntaxError(synErrUnexpectedToken.at(p.peek(0).pos))
			}
			p.expect(tokenKindRParen, synErrUnbalancedParen)
		}
		cmds.AddChild(cmd)
		if !p.consume(tokenKindComma) {
			break
		}
	}
	return cmds
}
