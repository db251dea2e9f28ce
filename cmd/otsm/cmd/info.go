package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/board"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

var infoCmd = &cobra.Command{
	Use:   "info <board_file> [net_name]",
	Short: "Show board and chain statistics",
	Long: `Display copper statistics for a board file.

Without net_name: board totals and a per-net track/chain table
With net_name: every track of that net`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	b, err := board.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	if len(args) >= 2 {
		return showNetDetails(b, args[1])
	}

	fmt.Printf("Board: %s (version %d, generator %s)\n", args[0], b.Version, b.Generator)
	fmt.Printf("  Layers: %d (%d copper)\n", len(b.Layers), len(b.CopperLayers()))
	fmt.Printf("  Nets:   %d\n", len(b.Nets))
	fmt.Printf("  Tracks: %d\n", len(b.Tracks))
	fmt.Printf("  Arcs:   %d\n", len(b.Arcs))
	fmt.Printf("  Vias:   %d\n", len(b.Vias))

	bbox := b.GetBoundingBox()
	if !bbox.IsEmpty() {
		fmt.Printf("  Copper extent: %.2f x %.2f mm\n", bbox.Width(), bbox.Height())
	}

	listChains(b)
	return nil
}

// listChains shows the per-net smoothable chain breakdown the smooth
// command would operate on.
func listChains(b *board.Board) {
	adapter := board.NewAdapter(b)
	segs, err := adapter.Segments(context.Background(), route.ScopeAll)
	if err != nil {
		return
	}

	type row struct {
		tracks  int
		chains  int
		corners int
	}
	stop := adapter.ViaTerminators()
	byNet := make(map[string]*row)
	for key, group := range route.GroupSegments(segs) {
		r := byNet[key.Net]
		if r == nil {
			r = &row{}
			byNet[key.Net] = r
		}
		r.tracks += len(group)
		for _, p := range route.ExtractPathsStopping(group, stop) {
			r.chains++
			r.corners += p.Corners()
		}
	}

	names := make([]string, 0, len(byNet))
	for name := range byNet {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\n%-30s %7s %7s %8s\n", "Net Name", "Tracks", "Chains", "Corners")
	fmt.Println("────────────────────────────────────────────────────────")
	for _, name := range names {
		r := byNet[name]
		label := name
		if label == "" {
			label = "(no net)"
		}
		fmt.Printf("%-30s %7d %7d %8d\n", label, r.tracks, r.chains, r.corners)
	}
}

func showNetDetails(b *board.Board, netName string) error {
	net := b.GetNet(netName)
	if net == nil {
		return fmt.Errorf("net '%s' not found", netName)
	}

	fmt.Printf("Net: %s (number %d)\n\n", net.Name, net.Number)

	tracks := b.NetTracks(netName)
	fmt.Printf("Tracks (%d):\n", len(tracks))
	for i, track := range tracks {
		fmt.Printf("  Track %d: %.2f mm wide on %s from (%.2f, %.2f) to (%.2f, %.2f)\n",
			i+1, track.Width, track.Layer,
			track.Start.X, track.Start.Y,
			track.End.X, track.End.Y)
	}

	arcCount := 0
	for _, a := range b.Arcs {
		if a.Net != nil && a.Net.Name == netName {
			arcCount++
			fmt.Printf("  Arc %d: %.2f mm wide on %s from (%.2f, %.2f) to (%.2f, %.2f)\n",
				arcCount, a.Width, a.Layer,
				a.Start.X, a.Start.Y, a.End.X, a.End.Y)
		}
	}

	return nil
}
