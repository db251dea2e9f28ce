package board

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/sexp"
)

// Write serializes the board back into .kicad_pcb form. Sections the
// parser does not model are emitted exactly as they were read; tracks
// and arcs are regenerated from the model.
func (b *Board) Write(w io.Writer) error {
	root := &sexp.List{}
	root.Items = append(root.Items, b.rest...)
	for _, t := range b.Tracks {
		root.Items = append(root.Items, trackNode(t))
	}
	for _, a := range b.Arcs {
		root.Items = append(root.Items, arcNode(a))
	}
	return sexp.Format(w, root)
}

// WriteFile writes the board to a file.
func (b *Board) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := b.Write(f); err != nil {
		return fmt.Errorf("failed to write board: %w", err)
	}
	return nil
}

func posNode(key string, p geom.Point) *sexp.List {
	return &sexp.List{Items: []sexp.Sexp{
		sexp.Symbol(key), sexp.Num(p.X), sexp.Num(p.Y),
	}}
}

func netNumber(n *Net) int {
	if n == nil {
		return 0
	}
	return n.Number
}

func trackNode(t Track) *sexp.List {
	items := []sexp.Sexp{
		sexp.Symbol("segment"),
		posNode("start", t.Start),
		posNode("end", t.End),
		&sexp.List{Items: []sexp.Sexp{sexp.Symbol("width"), sexp.Num(t.Width)}},
		&sexp.List{Items: []sexp.Sexp{sexp.Symbol("layer"), sexp.Str(t.Layer)}},
		&sexp.List{Items: []sexp.Sexp{sexp.Symbol("net"), sexp.Num(float64(netNumber(t.Net)))}},
	}
	if t.Locked {
		items = append(items, sexp.Symbol("locked"))
	}
	return &sexp.List{Items: items}
}

func arcNode(a Arc) *sexp.List {
	return &sexp.List{Items: []sexp.Sexp{
		sexp.Symbol("arc"),
		posNode("start", a.Start),
		posNode("mid", a.Mid),
		posNode("end", a.End),
		&sexp.List{Items: []sexp.Sexp{sexp.Symbol("width"), sexp.Num(a.Width)}},
		&sexp.List{Items: []sexp.Sexp{sexp.Symbol("layer"), sexp.Str(a.Layer)}},
		&sexp.List{Items: []sexp.Sexp{sexp.Symbol("net"), sexp.Num(float64(netNumber(a.Net)))}},
	}}
}
