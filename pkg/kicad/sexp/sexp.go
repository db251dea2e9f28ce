// Package sexp is a streaming S-expression reader and writer for
// KiCad files. Unlike general-purpose sexp libraries it handles
// arbitrarily large board files, and it keeps quoted strings distinct
// from bare symbols so a parsed file can be written back without
// losing quoting.
package sexp

import (
	"io"
	"strings"
)

// Sexp is an S-expression node: a bare symbol, a quoted string, or a
// list.
type Sexp interface {
	// IsLeaf returns true for atoms (symbols and strings)
	IsLeaf() bool

	// String returns the source representation, quoted where needed
	String() string
}

// Symbol is an unquoted atom (identifier or number).
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) String() string { return string(s) }

// Str is a quoted string atom. It serializes back with quotes and
// escaping.
type Str string

func (s Str) IsLeaf() bool { return true }
func (s Str) String() string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range string(s) {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Text returns the atom's textual value, unquoted for Str.
func Text(s Sexp) (string, bool) {
	switch v := s.(type) {
	case Symbol:
		return string(v), true
	case Str:
		return string(v), true
	default:
		return "", false
	}
}

// List is a parenthesized sequence of nodes.
type List struct {
	Items []Sexp
}

func (l *List) IsLeaf() bool { return false }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, item := range l.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(item.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Len returns the number of elements in the list.
func (l *List) Len() int { return len(l.Items) }

// Get returns the element at index, or nil when out of range.
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.Items) {
		return nil
	}
	return l.Items[index]
}

// Name returns the list's leading symbol, or "" when the list is empty
// or starts with something else.
func (l *List) Name() string {
	if len(l.Items) == 0 {
		return ""
	}
	if sym, ok := l.Items[0].(Symbol); ok {
		return string(sym)
	}
	return ""
}

// Parse reads all top-level S-expressions from r.
func Parse(r io.Reader) ([]Sexp, error) {
	return newParser(r).parseAll()
}

// ParseString parses from a string.
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}
