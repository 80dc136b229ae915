package msd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

const eof rune = -1

// keywordPeekLen is enough lookahead to tell every keyword apart from a
// longer word that merely starts with one.
const keywordPeekLen = 8

// ParseStr parses a single expression from text.
func ParseStr(text string) (Expr, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads exactly one expression from r. Anything other than whitespace
// after the expression is an error.
func Parse(r io.Reader) (Expr, error) {
	return ParseFile("", r)
}

// ParseFile is like Parse, but records filename in every source location.
func ParseFile(filename string, r io.Reader) (Expr, error) {
	p := &parser{
		r:        bufio.NewReader(r),
		filename: filename,
		line:     1,
		col:      1,
	}

	e, err := p.parseExpr()
	if err == nil {
		p.skipWhitespace()
		if p.peek() != eof {
			err = p.errorf("invalid input")
		}
	}
	if p.ioErr != nil {
		return nil, errors.Wrap(p.ioErr, "reading input")
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

type parser struct {
	r        *bufio.Reader
	filename string

	// position of the next rune
	line, col int

	// position just past the last consumed token rune
	endLine, endCol int

	ioErr error
}

func (p *parser) pos() SourcePosition {
	return SourcePosition{Line: p.line, Column: p.col}
}

// span builds a location from start to the end of the last token.
func (p *parser) span(start SourcePosition) *SourceLocation {
	length := 1
	if p.endLine == start.Line && p.endCol > start.Column {
		length = p.endCol - start.Column
	}
	return &SourceLocation{
		Filename: p.filename,
		Line:     start.Line,
		Column:   start.Column,
		Length:   length,
		End:      &SourcePosition{Line: p.endLine, Column: p.endCol},
	}
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Location: &SourceLocation{
			Filename: p.filename,
			Line:     p.line,
			Column:   p.col,
			Length:   1,
		},
	}
}

func (p *parser) peek() rune {
	c, _, err := p.r.ReadRune()
	if err != nil {
		if err != io.EOF && p.ioErr == nil {
			p.ioErr = err
		}
		return eof
	}
	_ = p.r.UnreadRune()
	return c
}

func (p *parser) read() rune {
	c, _, err := p.r.ReadRune()
	if err != nil {
		if err != io.EOF && p.ioErr == nil {
			p.ioErr = err
		}
		return eof
	}
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

// next consumes one rune of a token.
func (p *parser) next() rune {
	c := p.read()
	p.endLine, p.endCol = p.line, p.col
	return c
}

func (p *parser) skipWhitespace() {
	for unicode.IsSpace(p.peek()) {
		p.read()
	}
}

func (p *parser) consume(expect rune) error {
	c := p.peek()
	if c != expect {
		return p.errorf("expected %s but found %s", quoteRune(expect), quoteRune(c))
	}
	p.next()
	return nil
}

// peekWord returns the keyword-shaped word at the cursor without consuming
// it: an underscore followed by letters.
func (p *parser) peekWord() string {
	buf, _ := p.r.Peek(keywordPeekLen)
	if len(buf) == 0 || buf[0] != '_' {
		return ""
	}
	i := 1
	for i < len(buf) && isLetter(rune(buf[i])) {
		i++
	}
	return string(buf[:i])
}

func (p *parser) readWord() string {
	var word strings.Builder
	word.WriteRune(p.next())
	for isLetter(p.peek()) {
		word.WriteRune(p.next())
	}
	return word.String()
}

func (p *parser) consumeKeyword(kw string) error {
	p.skipWhitespace()
	if p.peek() != '_' {
		return p.errorf("expected %s", kw)
	}
	if word := p.readWord(); word != kw {
		return p.errorf("expected %s but found %s", kw, word)
	}
	return nil
}

// expr := comparg ('==' expr)?
func (p *parser) parseExpr() (Expr, error) {
	p.skipWhitespace()
	start := p.pos()

	lhs, err := p.parseComparg()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if buf, _ := p.r.Peek(2); string(buf) == "==" {
		p.next()
		p.next()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Eq{Left: lhs, Right: rhs, Loc: p.span(start)}, nil
	}
	return lhs, nil
}

// comparg := addend ('+' comparg)?
func (p *parser) parseComparg() (Expr, error) {
	p.skipWhitespace()
	start := p.pos()

	lhs, err := p.parseAddend()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if p.peek() == '+' {
		p.next()
		rhs, err := p.parseComparg()
		if err != nil {
			return nil, err
		}
		return &Add{Left: lhs, Right: rhs, Loc: p.span(start)}, nil
	}
	return lhs, nil
}

// addend := multicand ('*' addend)?
func (p *parser) parseAddend() (Expr, error) {
	p.skipWhitespace()
	start := p.pos()

	lhs, err := p.parseMulticand()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if p.peek() == '*' {
		p.next()
		rhs, err := p.parseAddend()
		if err != nil {
			return nil, err
		}
		return &Mult{Left: lhs, Right: rhs, Loc: p.span(start)}, nil
	}
	return lhs, nil
}

// multicand := inner inner*
func (p *parser) parseMulticand() (Expr, error) {
	p.skipWhitespace()
	start := p.pos()

	e, err := p.parseInner()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		if !p.startsArgument() {
			return e, nil
		}
		arg, err := p.parseInner()
		if err != nil {
			return nil, err
		}
		e = &Call{Fun: e, Arg: arg, Loc: p.span(start)}
	}
}

// startsArgument reports whether the next token can begin an application
// argument. The closing keywords of _let and _if end the expression instead.
func (p *parser) startsArgument() bool {
	c := p.peek()
	switch {
	case c == '-', c == '(', isDigit(c), isLetter(c):
		return true
	case c == '_':
		switch p.peekWord() {
		case "_in", "_then", "_else":
			return false
		}
		return true
	default:
		return false
	}
}

func (p *parser) parseInner() (Expr, error) {
	p.skipWhitespace()
	start := p.pos()

	c := p.peek()
	switch {
	case c == '-' || isDigit(c):
		return p.parseNum()
	case c == '(':
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, p.errorf("missing close parenthesis")
		}
		p.next()
		return e, nil
	case isLetter(c):
		name := p.parseIdentifier()
		return &Var{Name: name, Loc: p.span(start)}, nil
	case c == '_':
		return p.parseKeyword()
	case c == eof:
		return nil, p.errorf("unexpected end of input")
	default:
		return nil, p.errorf("invalid input: unexpected %s", quoteRune(c))
	}
}

func (p *parser) parseNum() (Expr, error) {
	start := p.pos()

	var digits strings.Builder
	if p.peek() == '-' {
		digits.WriteRune(p.next())
		if !isDigit(p.peek()) {
			return nil, p.errorf("not a number")
		}
	}
	for isDigit(p.peek()) {
		digits.WriteRune(p.next())
	}

	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return nil, &ParseError{
			Message:  fmt.Sprintf("number out of range: %s", digits.String()),
			Location: p.span(start),
		}
	}
	return &Num{Val: n, Loc: p.span(start)}, nil
}

func (p *parser) parseIdentifier() string {
	var name strings.Builder
	for isLetter(p.peek()) {
		name.WriteRune(p.next())
	}
	return name.String()
}

func (p *parser) parseKeyword() (Expr, error) {
	start := p.pos()

	word := p.readWord()
	switch word {
	case "_true":
		return &Bool{Val: true, Loc: p.span(start)}, nil
	case "_false":
		return &Bool{Val: false, Loc: p.span(start)}, nil
	case "_let":
		return p.parseLet(start)
	case "_if":
		return p.parseIf(start)
	case "_fun":
		return p.parseFun(start)
	case "_in", "_then", "_else":
		return nil, &ParseError{
			Message:  fmt.Sprintf("unexpected keyword %s", word),
			Location: p.span(start),
		}
	default:
		return nil, &ParseError{
			Message:  fmt.Sprintf("unknown keyword %s", word),
			Location: p.span(start),
		}
	}
}

// _let identifier '=' expr '_in' expr
func (p *parser) parseLet(start SourcePosition) (Expr, error) {
	p.skipWhitespace()
	if !isLetter(p.peek()) {
		return nil, p.errorf("expected variable name after _let")
	}
	nameStart := p.pos()
	name := p.parseIdentifier()
	nameLoc := p.span(nameStart)

	p.skipWhitespace()
	if err := p.consume('='); err != nil {
		return nil, err
	}

	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if err := p.consumeKeyword("_in"); err != nil {
		return nil, err
	}

	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &Let{Name: name, Rhs: rhs, Body: body, NameLoc: nameLoc, Loc: p.span(start)}, nil
}

// _if expr '_then' expr '_else' expr
func (p *parser) parseIf(start SourcePosition) (Expr, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if err := p.consumeKeyword("_then"); err != nil {
		return nil, err
	}

	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if err := p.consumeKeyword("_else"); err != nil {
		return nil, err
	}

	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &If{Cond: cond, Then: then, Else: els, Loc: p.span(start)}, nil
}

// _fun '(' identifier ')' expr
func (p *parser) parseFun(start SourcePosition) (Expr, error) {
	p.skipWhitespace()
	if err := p.consume('('); err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if !isLetter(p.peek()) {
		return nil, p.errorf("expected parameter name after _fun")
	}
	paramStart := p.pos()
	param := p.parseIdentifier()
	paramLoc := p.span(paramStart)

	p.skipWhitespace()
	if err := p.consume(')'); err != nil {
		return nil, err
	}

	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &Fun{Param: param, Body: body, ParamLoc: paramLoc, Loc: p.span(start)}, nil
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func quoteRune(c rune) string {
	if c == eof {
		return "end of input"
	}
	return strconv.QuoteRune(c)
}
