package cmd

import (
	"fmt"
	"os"

	"github.com/npillmayer/schuko/tracing"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// traceKeys lists every trace channel the engine writes to.
var traceKeys = []string{
	"otsm.route",
	"otsm.smooth",
	"otsm.taper",
	"otsm.drc",
	"otsm.check",
	"otsm.snapshot",
}

var rootCmd = &cobra.Command{
	Use:   "otsm",
	Short: "OpenTraceSmooth - PCB trace beautification tools",
	Long: `OpenTraceSmooth (otsm) rounds the corners of KiCad copper traces
with tangent circular arcs and generates smooth width transitions
where traces of different widths meet.

Examples:
  otsm smooth board.kicad_pcb -o out.kicad_pcb   # Round trace corners
  otsm taper board.kicad_pcb -o out.kicad_pcb    # Generate width tapers
  otsm info board.kicad_pcb                      # Show board statistics
  otsm view board.kicad_pcb                      # Interactive viewer`,
	Version: "0.9.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			for _, key := range traceKeys {
				tracing.Select(key).SetTraceLevel(tracing.LevelDebug)
			}
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
