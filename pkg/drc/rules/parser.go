package rules

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser parses clearance rule files.
type Parser struct {
	parser *participle.Parser[RuleSet]
}

// NewParser builds a rule file parser instance.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[RuleSet](
		participle.Lexer(RulesLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Parse parses a rule file from a reader.
func (p *Parser) Parse(r io.Reader) (*RuleSet, error) {
	rs, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return rs, nil
}

// ParseString parses a rule file from a string.
func (p *Parser) ParseString(input string) (*RuleSet, error) {
	rs, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return rs, nil
}

// ParseFile parses a rule file from a file path.
func (p *Parser) ParseFile(filename string) (*RuleSet, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}
