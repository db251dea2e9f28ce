package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/board"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/render"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

var (
	viewNet     string
	viewPreview bool
)

var viewCmd = &cobra.Command{
	Use:   "view <board_file>",
	Short: "View board copper in interactive viewer",
	Long: `Opens a board file in an interactive Gio-based viewer with pan, zoom,
and rotation controls. With --preview the corner smoothing pass runs
first and the original tracks stay visible as a dim overlay.

Controls:
  Left Click / R    - Rotate 90°
  Right Click / F   - Flip board
  Scroll Wheel      - Zoom in/out
  Space             - Fit board to window
  Q / Escape        - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVar(&viewNet, "net", "", "highlight this net")
	viewCmd.Flags().BoolVar(&viewPreview, "preview", false, "smooth first and show the original as overlay")
}

func runView(cmd *cobra.Command, args []string) error {
	filename := args[0]

	fmt.Printf("Loading board: %s\n", filename)
	b, err := board.ParseFile(filename)
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}

	fmt.Printf("✓ Loaded board successfully\n")
	fmt.Printf("  Version: %d\n", b.Version)
	fmt.Printf("  Layers: %d\n", len(b.Layers))
	fmt.Printf("  Nets: %d\n", len(b.Nets))
	fmt.Printf("  Tracks: %d\n", len(b.Tracks))
	fmt.Printf("  Arcs: %d\n", len(b.Arcs))
	fmt.Printf("  Vias: %d\n", len(b.Vias))

	var ghost *board.Board
	if viewPreview {
		ghost = &board.Board{
			Tracks: append([]board.Track(nil), b.Tracks...),
			Arcs:   append([]board.Arc(nil), b.Arcs...),
		}
		if err := previewSmooth(b); err != nil {
			return err
		}
		fmt.Printf("✓ Preview pass done: %d tracks, %d arcs\n", len(b.Tracks), len(b.Arcs))
	}

	bbox := b.GetBoundingBox()
	if !bbox.IsEmpty() {
		fmt.Printf("  Copper extent: %.2f x %.2f mm\n", bbox.Width(), bbox.Height())
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title("OpenTraceSmooth Viewer - " + filename))
		w.Option(app.Size(unit.Dp(1000), unit.Dp(800)))

		if err := runViewerWindow(w, b, ghost, bbox); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
	return nil
}

// previewSmooth runs an in-memory smoothing pass without the design
// check loop, purely for visual inspection.
func previewSmooth(b *board.Board) error {
	ctx := context.Background()
	adapter := board.NewAdapter(b)
	opts := route.DefaultOptions()
	opts.EnableDRC = false

	segs, err := adapter.Segments(ctx, route.ScopeAll)
	if err != nil {
		return err
	}
	stop := adapter.ViaTerminators()
	var paths []route.Path
	for _, group := range route.GroupSegments(segs) {
		paths = append(paths, route.ExtractPathsStopping(group, stop)...)
	}
	ctrl := drc.NewController(adapter, nil, opts, nil)
	_, err = ctrl.Run(ctx, paths)
	return err
}

func runViewerWindow(w *app.Window, b, ghost *board.Board, bbox board.BoundingBox) error {
	camera := render.NewCamera(1000, 800)
	if !bbox.IsEmpty() {
		camera.Fit(bbox)
	}

	var ops op.Ops

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			ops.Reset()

			gtx := layout.Context{
				Ops:         &ops,
				Constraints: layout.Exact(e.Size),
				Metric:      e.Metric,
				Now:         e.Now,
				Source:      e.Source,
			}

			camera.UpdateScreenSize(e.Size.X, e.Size.Y)

			// Handle keyboard events
			for {
				ev, ok := gtx.Event(key.Filter{})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok {
					if ke.State == key.Press {
						if handleKeyPress(ke.Name, camera, bbox) {
							return nil
						}
						w.Invalidate()
					}
				}
			}

			// Handle mouse events
			for {
				ev, ok := gtx.Event(pointer.Filter{
					Kinds: pointer.Press | pointer.Scroll,
				})
				if !ok {
					break
				}
				if pe, ok := ev.(pointer.Event); ok {
					switch pe.Kind {
					case pointer.Press:
						if pe.Buttons == pointer.ButtonPrimary {
							camera.Rotate(90)
							w.Invalidate()
						} else if pe.Buttons == pointer.ButtonSecondary {
							camera.Flip()
							w.Invalidate()
						}
					case pointer.Scroll:
						zoomFactor := 1.0 + float64(pe.Scroll.Y)*0.1
						camera.ZoomAt(float64(pe.Position.X), float64(pe.Position.Y), zoomFactor)
						w.Invalidate()
					}
				}
			}

			paint.Fill(&ops, render.ColorBackground)

			if ghost != nil {
				render.RenderGhost(gtx, camera, ghost)
			}
			render.RenderBoardWithHighlight(gtx, camera, b, viewNet)

			e.Frame(&ops)
		}
	}
}

func handleKeyPress(k key.Name, camera *render.Camera, bbox board.BoundingBox) bool {
	switch k {
	case key.NameEscape, "Q":
		return true // Signal to close
	case "F":
		camera.Flip()
	case "R":
		camera.Rotate(90)
	case key.NameLeftArrow:
		camera.Rotate(-90)
	case key.NameSpace:
		if !bbox.IsEmpty() {
			camera.Fit(bbox)
		}
	}
	return false
}
