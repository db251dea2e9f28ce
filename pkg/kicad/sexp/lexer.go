package sexp

import (
	"bufio"
	"fmt"
	"io"
	"unicode"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenLeftParen
	tokenRightParen
	tokenSymbol
	tokenString
)

type token struct {
	typ   tokenType
	value string
}

// lexer tokenizes S-expressions from an io.Reader.
type lexer struct {
	reader *bufio.Reader
	peeked *rune
}

func newLexer(r io.Reader) *lexer {
	return &lexer{reader: bufio.NewReader(r)}
}

// next reads the next token from the input.
func (l *lexer) next() (token, error) {
	// Skip whitespace and # comments
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return token{typ: tokenEOF}, nil
			}
			return token{}, err
		}
		if unicode.IsSpace(ch) {
			l.read()
			continue
		}
		if ch == '#' {
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}
		break
	}

	ch, err := l.peek()
	if err != nil {
		if err == io.EOF {
			return token{typ: tokenEOF}, nil
		}
		return token{}, err
	}

	switch ch {
	case '(':
		l.read()
		return token{typ: tokenLeftParen, value: "("}, nil
	case ')':
		l.read()
		return token{typ: tokenRightParen, value: ")"}, nil
	case '"':
		return l.readString()
	default:
		return l.readSymbol()
	}
}

func (l *lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}
	l.peeked = &ch
	return ch, nil
}

func (l *lexer) read() (rune, error) {
	if l.peeked != nil {
		ch := *l.peeked
		l.peeked = nil
		return ch, nil
	}
	ch, _, err := l.reader.ReadRune()
	return ch, err
}

// readString reads a quoted string, handling backslash escapes and
// doubled quotes.
func (l *lexer) readString() (token, error) {
	l.read() // consume opening quote

	var result []rune
	for {
		ch, err := l.read()
		if err != nil {
			if err == io.EOF {
				return token{}, fmt.Errorf("unexpected EOF in string")
			}
			return token{}, err
		}

		if ch == '"' {
			next, err := l.peek()
			if err == nil && next == '"' {
				l.read()
				result = append(result, '"')
				continue
			}
			break
		}

		if ch == '\\' {
			next, err := l.read()
			if err != nil {
				return token{}, fmt.Errorf("unexpected EOF after backslash")
			}
			switch next {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			default:
				result = append(result, next)
			}
			continue
		}

		result = append(result, ch)
	}

	return token{typ: tokenString, value: string(result)}, nil
}

// readSymbol reads an unquoted symbol (identifier, number, etc.)
func (l *lexer) readSymbol() (token, error) {
	var result []rune
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return token{}, err
		}
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}
		l.read()
		result = append(result, ch)
	}

	if len(result) == 0 {
		return token{}, fmt.Errorf("empty symbol")
	}
	return token{typ: tokenSymbol, value: string(result)}, nil
}

// parser assembles tokens into Sexp trees.
type parser struct {
	lexer   *lexer
	current token
}

func newParser(r io.Reader) *parser {
	return &parser{lexer: newLexer(r)}
}

func (p *parser) parseAll() ([]Sexp, error) {
	var result []Sexp

	tok, err := p.lexer.next()
	if err != nil {
		return nil, err
	}
	p.current = tok

	for p.current.typ != tokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, expr)

		tok, err := p.lexer.next()
		if err != nil {
			return nil, err
		}
		p.current = tok
	}

	return result, nil
}

func (p *parser) parseExpr() (Sexp, error) {
	switch p.current.typ {
	case tokenLeftParen:
		return p.parseList()
	case tokenSymbol:
		return Symbol(p.current.value), nil
	case tokenString:
		return Str(p.current.value), nil
	case tokenRightParen:
		return nil, fmt.Errorf("unexpected ')'")
	case tokenEOF:
		return nil, fmt.Errorf("unexpected EOF")
	default:
		return nil, fmt.Errorf("unexpected token type: %v", p.current.typ)
	}
}

func (p *parser) parseList() (Sexp, error) {
	var items []Sexp
	for {
		tok, err := p.lexer.next()
		if err != nil {
			return nil, err
		}
		p.current = tok

		if p.current.typ == tokenRightParen {
			break
		}
		if p.current.typ == tokenEOF {
			return nil, fmt.Errorf("unexpected EOF in list")
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, elem)
	}
	return &List{Items: items}, nil
}
