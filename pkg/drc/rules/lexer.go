package rules

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// RulesLexer defines the lexical structure of the clearance rule
// files. The syntax is the s-expression dialect KiCad uses for custom
// design rules.
var RulesLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run from # to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Parentheses
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},

	// Quoted strings (rule names, layer names, net class names)
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},

	// Numbers, signed, with optional decimal part
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},

	// Bare identifiers (keywords and constraint kinds)
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.\-]*`},
})
