package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/drc/check"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/drc/rules"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/board"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/snapshot"
)

var (
	smoothOutput  string
	smoothRatio   float64
	smoothRadius  float64
	smoothForce   bool
	smoothNoMerge bool
	smoothNoDRC   bool
	smoothRetries int
	smoothRules   string
)

var smoothCmd = &cobra.Command{
	Use:   "smooth <board_file>",
	Short: "Round trace corners with tangent arcs",
	Long: `Extracts maximal track chains from the board, replaces each interior
corner with a circular arc tangent to both legs, and re-checks the
result against the design rules. Corners implicated in a clearance
violation back off their radius and are re-tried; corners that cannot
be repaired revert to sharp joints.

Without -o the board file is rewritten in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runSmooth,
}

func init() {
	rootCmd.AddCommand(smoothCmd)
	smoothCmd.Flags().StringVarP(&smoothOutput, "output", "o", "", "output file (default: rewrite input)")
	smoothCmd.Flags().Float64Var(&smoothRatio, "ratio", 3.0, "arc radius as a multiple of the trace half-width")
	smoothCmd.Flags().Float64Var(&smoothRadius, "radius", 0, "fixed arc radius in mm (overrides --ratio)")
	smoothCmd.Flags().BoolVar(&smoothForce, "force-arc", false, "accept arcs clamped by short legs")
	smoothCmd.Flags().BoolVar(&smoothNoMerge, "no-merge", false, "disable merging close same-direction corners")
	smoothCmd.Flags().BoolVar(&smoothNoDRC, "no-drc", false, "skip the clearance check/repair loop")
	smoothCmd.Flags().IntVar(&smoothRetries, "retries", 4, "repair cycles before giving up on a corner")
	smoothCmd.Flags().StringVar(&smoothRules, "rules", "", "design rules file (.kicad_dru)")
}

func smoothOptions() route.Options {
	opts := route.DefaultOptions()
	opts.CornerRadiusRatio = smoothRatio
	opts.FixedRadius = smoothRadius
	opts.ForceArc = smoothForce
	opts.MergeUTurns = !smoothNoMerge
	opts.EnableDRC = !smoothNoDRC
	opts.DRCRetryCount = smoothRetries
	return opts
}

func runSmooth(cmd *cobra.Command, args []string) error {
	filename := args[0]
	ctx := context.Background()

	b, err := board.ParseFile(filename)
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	fmt.Printf("Loaded %s: %d tracks, %d arcs, %d nets\n",
		filename, len(b.Tracks), len(b.Arcs), len(b.Nets))

	adapter := board.NewAdapter(b)
	opts := smoothOptions()

	var oracle drc.Oracle
	if !smoothNoDRC {
		var rs *rules.RuleSet
		if smoothRules != "" {
			parser, err := rules.NewParser()
			if err != nil {
				return fmt.Errorf("error building rules parser: %w", err)
			}
			rs, err = parser.ParseFile(smoothRules)
			if err != nil {
				return fmt.Errorf("error parsing rules file: %w", err)
			}
			fmt.Printf("Loaded %d design rules from %s\n", len(rs.Rules), smoothRules)
		}
		oracle = check.NewChecker(adapter, rs)
	}

	segs, err := adapter.Segments(ctx, route.ScopeAll)
	if err != nil {
		return err
	}
	stop := adapter.ViaTerminators()
	var paths []route.Path
	for _, group := range route.GroupSegments(segs) {
		paths = append(paths, route.ExtractPathsStopping(group, stop)...)
	}
	fmt.Printf("Extracted %d smoothable chains from %d segments\n", len(paths), len(segs))

	store := snapshot.NewStore(b)
	snap, err := store.Capture(ctx)
	if err != nil {
		return err
	}

	widths := make(route.WidthTable)
	ctrl := drc.NewController(adapter, oracle, opts, widths)
	sum, err := ctrl.Run(ctx, paths)
	if err != nil {
		// Put the board back the way it was.
		if _, rerr := store.Restore(ctx, snap); rerr != nil {
			fmt.Printf("warning: restore after failed run: %v\n", rerr)
		}
		return fmt.Errorf("smoothing failed: %w", err)
	}

	printSmoothSummary(sum)

	out := smoothOutput
	if out == "" {
		out = filename
	}
	if err := b.WriteFile(out); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %s\n", out)
	return nil
}

func printSmoothSummary(sum drc.Summary) {
	fmt.Printf("✓ Smoothing finished\n")
	fmt.Printf("  Chains:           %d\n", sum.Paths)
	fmt.Printf("  Arcs created:     %d\n", sum.Arcs)
	fmt.Printf("  Clamped corners:  %d\n", sum.Clamped)
	fmt.Printf("  Sharp corners:    %d\n", sum.Straightened)
	if sum.Cycles > 0 {
		fmt.Printf("  Check cycles:     %d\n", sum.Cycles)
		fmt.Printf("  Forced straight:  %d\n", sum.ForcedStraight)
		if sum.Clean {
			fmt.Printf("  Design check:     clean\n")
		} else {
			fmt.Printf("  Design check:     violations remain\n")
		}
	}
	if sum.HostFailures > 0 {
		fmt.Printf("  Host failures:    %d\n", sum.HostFailures)
	}
}
