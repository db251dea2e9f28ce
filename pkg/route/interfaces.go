package route

import (
	"context"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
)

// Scope selects which part of the board a pass operates on.
type Scope int

const (
	// ScopeAll covers every line-like copper primitive on the board.
	ScopeAll Scope = iota
	// ScopeSelected covers only the host's current selection.
	ScopeSelected
)

// SegmentProvider yields the raw segment set for a pass. Implementors
// must pre-explode polylines into straight sub-segments carrying a
// back-reference to their origin, and filter out anything that is not
// line-like, so the engine only ever sees typed Segments.
type SegmentProvider interface {
	Segments(ctx context.Context, scope Scope) ([]Segment, error)
}

// PrimitiveSink creates and deletes board primitives. Calls model
// asynchronous host operations: each may fail independently, and
// failures are per call, never batch atomic. The engine awaits them
// sequentially so deletes land before the re-creates that replace
// them.
type PrimitiveSink interface {
	CreateLine(ctx context.Context, net, layer string, start, end geom.Point, width float64) (PrimID, error)
	CreateArc(ctx context.Context, net, layer string, start, end geom.Point, sweepDeg, width float64) (PrimID, error)
	Delete(ctx context.Context, ids []PrimID) error
}

// SnapshotDiff describes what a restore changed.
type SnapshotDiff struct {
	Created []PrimID
	Deleted []PrimID
}

// SnapshotStore captures and restores the full line+arc primitive set
// for undo. The engine only invokes Capture around a mutating pass;
// restoring is the caller's business.
type SnapshotStore interface {
	Capture(ctx context.Context) (any, error)
	Restore(ctx context.Context, snapshot any) (SnapshotDiff, error)
}
