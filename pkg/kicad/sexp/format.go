package sexp

import (
	"io"
	"strings"
)

// Format writes the tree to w in KiCad's layout: nested lists on their
// own indented lines, short leaf-only lists inline.
func Format(w io.Writer, s Sexp) error {
	var b strings.Builder
	writeNode(&b, s, 0)
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, s Sexp, depth int) {
	list, ok := s.(*List)
	if !ok {
		b.WriteString(s.String())
		return
	}

	if inline(list) {
		b.WriteString(list.String())
		return
	}

	b.WriteByte('(')
	for i, item := range list.Items {
		if i == 0 {
			b.WriteString(item.String())
			continue
		}
		if sub, ok := item.(*List); ok && !inline(sub) {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat("  ", depth+1))
			writeNode(b, sub, depth+1)
		} else {
			b.WriteByte(' ')
			writeNode(b, item, depth+1)
		}
	}
	b.WriteByte(')')
}

// inline reports whether the list is flat and short enough to stay on
// one line.
func inline(l *List) bool {
	if len(l.Items) > 8 {
		return false
	}
	for _, item := range l.Items {
		if !item.IsLeaf() {
			return false
		}
	}
	return true
}
