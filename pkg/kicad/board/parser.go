package board

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// ParseFile reads and parses a KiCad board file.
func ParseFile(filename string) (*Board, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad board from an io.Reader.
func Parse(r io.Reader) (*Board, error) {
	sexps, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}
	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root, ok := sexps[0].(*sexp.List)
	if !ok || root.Name() != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb' root")
	}

	b := &Board{}

	if node, found := sexp.FindNode(root, "version"); found {
		if v, err := sexp.GetInt(node, 1); err == nil {
			b.Version = v
		}
	}
	if node, found := sexp.FindNode(root, "generator"); found {
		if g, err := sexp.GetString(node, 1); err == nil {
			b.Generator = g
		}
	}

	if node, found := sexp.FindNode(root, "layers"); found {
		layers, err := parseLayers(node)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layers section: %w", err)
		}
		b.Layers = layers
	}

	for _, node := range sexp.FindAllNodes(root, "net") {
		net, err := parseNet(node)
		if err != nil {
			return nil, fmt.Errorf("failed to parse net: %w", err)
		}
		b.Nets = append(b.Nets, net)
	}

	for _, node := range sexp.FindAllNodes(root, "segment") {
		t, err := b.parseTrack(node)
		if err != nil {
			return nil, fmt.Errorf("failed to parse segment: %w", err)
		}
		b.Tracks = append(b.Tracks, t)
	}

	for _, node := range sexp.FindAllNodes(root, "arc") {
		a, err := b.parseArc(node)
		if err != nil {
			return nil, fmt.Errorf("failed to parse arc: %w", err)
		}
		b.Arcs = append(b.Arcs, a)
	}

	for _, node := range sexp.FindAllNodes(root, "via") {
		v, err := b.parseVia(node)
		if err != nil {
			return nil, fmt.Errorf("failed to parse via: %w", err)
		}
		b.Vias = append(b.Vias, v)
	}

	// Everything except tracks and arcs is carried through untouched.
	for _, item := range root.Items {
		if sub, ok := item.(*sexp.List); ok {
			if sub.Name() == "segment" || sub.Name() == "arc" {
				continue
			}
		}
		b.rest = append(b.rest, item)
	}

	return b, nil
}

// parseLayers extracts layer definitions.
// Expected format: (layers (0 "F.Cu" signal) (31 "B.Cu" signal) ...)
func parseLayers(node sexp.Sexp) ([]Layer, error) {
	list, ok := node.(*sexp.List)
	if !ok {
		return nil, fmt.Errorf("expected layers list")
	}
	var layers []Layer
	for _, item := range list.Items[1:] {
		entry, ok := item.(*sexp.List)
		if !ok || entry.Len() < 3 {
			continue
		}
		num, err := sexp.GetInt(entry, 0)
		if err != nil {
			return nil, fmt.Errorf("bad layer ordinal: %w", err)
		}
		name, err := sexp.GetString(entry, 1)
		if err != nil {
			return nil, fmt.Errorf("bad layer name: %w", err)
		}
		typ, _ := sexp.GetString(entry, 2)
		layers = append(layers, Layer{Number: num, Name: name, Type: typ})
	}
	return layers, nil
}

// parseNet extracts a net declaration.
// Expected format: (net 1 "GND")
func parseNet(node sexp.Sexp) (Net, error) {
	num, err := sexp.GetInt(node, 1)
	if err != nil {
		return Net{}, err
	}
	name, _ := sexp.GetString(node, 2)
	return Net{Number: num, Name: name}, nil
}

func parsePosition(node sexp.Sexp) (geom.Point, error) {
	x, err := sexp.GetFloat(node, 1)
	if err != nil {
		return geom.Point{}, err
	}
	y, err := sexp.GetFloat(node, 2)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Pt(x, y), nil
}

func (b *Board) newID(kind string) route.PrimID {
	b.nextID++
	return route.PrimID(fmt.Sprintf("%s-%06d", kind, b.nextID))
}

// parseTrack extracts a track segment (copper trace)
// Expected format: (segment (start x y) (end x y) (width w) (layer "layer") (net n) ...)
func (b *Board) parseTrack(node sexp.Sexp) (Track, error) {
	t := Track{
		ID:    b.newID("seg"),
		Width: 0.15, // Default width
	}

	startNode, found := sexp.FindNode(node, "start")
	if !found {
		return t, fmt.Errorf("missing required 'start' position")
	}
	start, err := parsePosition(startNode)
	if err != nil {
		return t, fmt.Errorf("failed to parse start position: %w", err)
	}
	t.Start = start

	endNode, found := sexp.FindNode(node, "end")
	if !found {
		return t, fmt.Errorf("missing required 'end' position")
	}
	end, err := parsePosition(endNode)
	if err != nil {
		return t, fmt.Errorf("failed to parse end position: %w", err)
	}
	t.End = end

	if widthNode, found := sexp.FindNode(node, "width"); found {
		if w, err := sexp.GetFloat(widthNode, 1); err == nil {
			t.Width = w
		}
	}

	layerNode, found := sexp.FindNode(node, "layer")
	if !found {
		return t, fmt.Errorf("missing required 'layer' field")
	}
	layer, err := sexp.GetString(layerNode, 1)
	if err != nil {
		return t, fmt.Errorf("failed to parse layer: %w", err)
	}
	t.Layer = layer

	if netNode, found := sexp.FindNode(node, "net"); found {
		if num, err := sexp.GetInt(netNode, 1); err == nil {
			t.Net = b.NetByNumber(num)
		}
	}

	if _, found := sexp.FindNode(node, "locked"); found {
		t.Locked = true
	}

	return t, nil
}

// parseArc extracts a copper arc.
// Expected format: (arc (start x y) (mid x y) (end x y) (width w) (layer "layer") (net n))
func (b *Board) parseArc(node sexp.Sexp) (Arc, error) {
	a := Arc{
		ID:    b.newID("arc"),
		Width: 0.15,
	}

	for _, key := range []string{"start", "mid", "end"} {
		posNode, found := sexp.FindNode(node, key)
		if !found {
			return a, fmt.Errorf("missing required '%s' position", key)
		}
		p, err := parsePosition(posNode)
		if err != nil {
			return a, fmt.Errorf("failed to parse %s position: %w", key, err)
		}
		switch key {
		case "start":
			a.Start = p
		case "mid":
			a.Mid = p
		case "end":
			a.End = p
		}
	}

	if widthNode, found := sexp.FindNode(node, "width"); found {
		if w, err := sexp.GetFloat(widthNode, 1); err == nil {
			a.Width = w
		}
	}

	layerNode, found := sexp.FindNode(node, "layer")
	if !found {
		return a, fmt.Errorf("missing required 'layer' field")
	}
	layer, err := sexp.GetString(layerNode, 1)
	if err != nil {
		return a, err
	}
	a.Layer = layer

	if netNode, found := sexp.FindNode(node, "net"); found {
		if num, err := sexp.GetInt(netNode, 1); err == nil {
			a.Net = b.NetByNumber(num)
		}
	}

	return a, nil
}

// parseVia extracts a via definition.
// Expected format: (via (at x y) (size d) (drill d) (layers "L1" "L2") (net n))
func (b *Board) parseVia(node sexp.Sexp) (Via, error) {
	v := Via{}

	atNode, found := sexp.FindNode(node, "at")
	if !found {
		return v, fmt.Errorf("missing required 'at' position")
	}
	pos, err := parsePosition(atNode)
	if err != nil {
		return v, fmt.Errorf("failed to parse position: %w", err)
	}
	v.Position = pos

	if sizeNode, found := sexp.FindNode(node, "size"); found {
		v.Size, _ = sexp.GetFloat(sizeNode, 1)
	}
	if drillNode, found := sexp.FindNode(node, "drill"); found {
		v.Drill, _ = sexp.GetFloat(drillNode, 1)
	}
	if layersNode, found := sexp.FindNode(node, "layers"); found {
		if list, ok := layersNode.(*sexp.List); ok {
			for _, item := range list.Items[1:] {
				if name, ok := sexp.Text(item); ok {
					v.Layers = append(v.Layers, name)
				}
			}
		}
	}
	if netNode, found := sexp.FindNode(node, "net"); found {
		if num, err := sexp.GetInt(netNode, 1); err == nil {
			v.Net = b.NetByNumber(num)
		}
	}

	return v, nil
}
