// Package snapshot implements an in-memory undo store over a board's
// copper primitives. A pass captures the line and arc set before
// mutating it; restoring swaps the captured set back in and reports
// which ids appeared and disappeared so a host can update its view.
package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/npillmayer/schuko/tracing"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/board"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// tracer writes to the trace channel with key 'otsm.snapshot'
func tracer() tracing.Trace {
	return tracing.Select("otsm.snapshot")
}

// Event describes a change to the snapshot list.
type Event struct {
	Op    string // "capture" or "restore"
	Count int    // snapshots held after the change
}

// state is the captured primitive set. It is returned opaquely as
// `any` through the route.SnapshotStore interface.
type state struct {
	tracks []board.Track
	arcs   []board.Arc
}

// Store captures and restores a single board's track and arc set.
type Store struct {
	mu    sync.Mutex
	board *board.Board
	held  int

	observers []chan Event
}

// NewStore builds a store over b.
func NewStore(b *board.Board) *Store {
	return &Store{board: b}
}

// Subscribe returns a channel receiving an Event after every capture
// and restore. Slow receivers drop events rather than block a pass.
func (s *Store) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 8)
	s.observers = append(s.observers, ch)
	return ch
}

func (s *Store) notify(ev Event) {
	for _, ch := range s.observers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Capture implements route.SnapshotStore.
func (s *Store) Capture(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &state{
		tracks: append([]board.Track(nil), s.board.Tracks...),
		arcs:   append([]board.Arc(nil), s.board.Arcs...),
	}
	s.held++
	tracer().Debugf("captured %d tracks, %d arcs", len(st.tracks), len(st.arcs))
	s.notify(Event{Op: "capture", Count: s.held})
	return st, nil
}

// Restore implements route.SnapshotStore. The diff lists ids present
// only in the snapshot as Created (they reappear) and ids present only
// on the current board as Deleted (they vanish).
func (s *Store) Restore(ctx context.Context, snapshot any) (route.SnapshotDiff, error) {
	if err := ctx.Err(); err != nil {
		return route.SnapshotDiff{}, err
	}
	st, ok := snapshot.(*state)
	if !ok {
		return route.SnapshotDiff{}, fmt.Errorf("restore: not a snapshot of this store (%T)", snapshot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := idSet(s.board.Tracks, s.board.Arcs)
	then := idSet(st.tracks, st.arcs)

	var diff route.SnapshotDiff
	for id := range then {
		if !now[id] {
			diff.Created = append(diff.Created, id)
		}
	}
	for id := range now {
		if !then[id] {
			diff.Deleted = append(diff.Deleted, id)
		}
	}

	s.board.Tracks = append([]board.Track(nil), st.tracks...)
	s.board.Arcs = append([]board.Arc(nil), st.arcs...)
	if s.held > 0 {
		s.held--
	}
	tracer().Infof("restored snapshot: %d reappear, %d vanish", len(diff.Created), len(diff.Deleted))
	s.notify(Event{Op: "restore", Count: s.held})
	return diff, nil
}

func idSet(tracks []board.Track, arcs []board.Arc) map[route.PrimID]bool {
	out := make(map[route.PrimID]bool, len(tracks)+len(arcs))
	for _, t := range tracks {
		out[t.ID] = true
	}
	for _, a := range arcs {
		out[a.ID] = true
	}
	return out
}
