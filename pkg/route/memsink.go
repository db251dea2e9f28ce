package route

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
)

// MemLine is a straight primitive held by the in-memory sink.
type MemLine struct {
	ID    PrimID
	Net   string
	Layer string
	Start geom.Point
	End   geom.Point
	Width float64
}

// MemArc is an arc primitive held by the in-memory sink.
type MemArc struct {
	ID    PrimID
	Net   string
	Layer string
	Start geom.Point
	End   geom.Point
	Sweep float64
	Width float64
}

// MemSink is an in-process PrimitiveSink and SegmentProvider. It backs
// the engine tests and any pipeline that does not need a real board
// behind it.
type MemSink struct {
	Lines  map[PrimID]MemLine
	Arcs   map[PrimID]MemArc
	nextID int

	// FailCreate, when set, makes the matching create call fail once.
	// Tests use it to exercise per-primitive failure recovery.
	FailCreate func(net, layer string) error
}

// NewMemSink returns an empty sink.
func NewMemSink() *MemSink {
	return &MemSink{
		Lines: make(map[PrimID]MemLine),
		Arcs:  make(map[PrimID]MemArc),
	}
}

func (m *MemSink) newID(kind string) PrimID {
	m.nextID++
	return PrimID(fmt.Sprintf("%s-%06d", kind, m.nextID))
}

// CreateLine implements PrimitiveSink.
func (m *MemSink) CreateLine(ctx context.Context, net, layer string, start, end geom.Point, width float64) (PrimID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailCreate != nil {
		err := m.FailCreate(net, layer)
		m.FailCreate = nil
		if err != nil {
			return "", err
		}
	}
	id := m.newID("line")
	m.Lines[id] = MemLine{ID: id, Net: net, Layer: layer, Start: start, End: end, Width: width}
	return id, nil
}

// CreateArc implements PrimitiveSink.
func (m *MemSink) CreateArc(ctx context.Context, net, layer string, start, end geom.Point, sweepDeg, width float64) (PrimID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailCreate != nil {
		err := m.FailCreate(net, layer)
		m.FailCreate = nil
		if err != nil {
			return "", err
		}
	}
	id := m.newID("arc")
	m.Arcs[id] = MemArc{ID: id, Net: net, Layer: layer, Start: start, End: end, Sweep: sweepDeg, Width: width}
	return id, nil
}

// Delete implements PrimitiveSink. Unknown ids are ignored.
func (m *MemSink) Delete(ctx context.Context, ids []PrimID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		delete(m.Lines, id)
		delete(m.Arcs, id)
	}
	return nil
}

// Segments implements SegmentProvider over the sink's straight lines.
func (m *MemSink) Segments(ctx context.Context, scope Scope) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs := make([]Segment, 0, len(m.Lines))
	for _, l := range m.Lines {
		segs = append(segs, Segment{
			Start: l.Start,
			End:   l.End,
			Width: l.Width,
			Net:   l.Net,
			Layer: l.Layer,
			ID:    l.ID,
		})
	}
	return segs, nil
}

// Count returns the number of held primitives, lines plus arcs.
func (m *MemSink) Count() int {
	return len(m.Lines) + len(m.Arcs)
}
