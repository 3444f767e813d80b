// Command cachechase runs the pointer-chase cache-boundary measurement
// core end to end: it parses flags into a chase.Config, calls chase.Run,
// and prints the resulting table/summary (or, with --format json, a
// machine-readable payload for a downstream plotting tool).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	chase "github.com/jbrusegaard/cachechase"
	"github.com/spf13/cobra"
)

// patternFlag adapts chase.Pattern to pflag.Value so the CLI rejects an
// unrecognized --pattern value outright at parse time, instead of
// silently falling back to random the way chase.Config (a library
// caller) does.
type patternFlag struct {
	value chase.Pattern
}

func (p *patternFlag) String() string { return string(p.value) }

func (p *patternFlag) Set(s string) error {
	pat, err := chase.ParsePattern(s)
	if err != nil {
		return err
	}
	p.value = pat
	return nil
}

func (p *patternFlag) Type() string { return "pattern" }

func main() {
	cfg := chase.DefaultConfig()
	pattern := &patternFlag{value: cfg.Pattern}

	var (
		format  string
		verbose bool
	)

	root := &cobra.Command{
		Use:   "cachechase",
		Short: "Infer CPU cache capacities from pointer-chase latency",
		Long: `cachechase measures per-access latency of a pointer-chase over working
sets of geometrically increasing size and reports where that latency
steps up — each step approximates the capacity of one level of the CPU
cache hierarchy.

It reports nothing about cache-line size or associativity, and it does
not drive hardware performance counters: it infers cache boundaries
purely from measured access latency.

Examples:
  cachechase
  cachechase --max-bytes 67108864 --pattern stride --pattern-arg 7
  cachechase --format json > curve.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Pattern = pattern.value
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be table or json, got %q", format)
			}

			if verbose {
				printSystemInfo(cmd.OutOrStdout())
			}

			out := cmd.OutOrStdout()
			runOut := out
			printTable := cfg.PrintTable
			if format == "json" {
				// JSON is a complete, self-describing payload; the
				// line-oriented table and summary stay reserved for
				// --format table.
				cfg.PrintTable = false
				runOut = io.Discard
			}

			report, err := chase.Run(cfg, runOut, cmd.ErrOrStderr())
			cfg.PrintTable = printTable
			if err != nil {
				return err
			}

			if format == "json" {
				return json.NewEncoder(out).Encode(report)
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.Uint64Var(&cfg.MinBytes, "min-bytes", cfg.MinBytes, "smallest working-set size to measure, in bytes")
	flags.Uint64Var(&cfg.MaxBytes, "max-bytes", cfg.MaxBytes, "largest working-set size to measure, in bytes (clamped to 4GiB)")
	flags.IntVar(&cfg.NodeStride, "node-stride", cfg.NodeStride, "byte distance between chase nodes (>= 2*pointer size)")
	flags.IntVar(&cfg.TargetMS, "target-ms", cfg.TargetMS, "target wall-clock milliseconds per timed run")
	flags.IntVar(&cfg.Repeats, "repeats", cfg.Repeats, "number of timed runs per size; minimum latency is reported")
	flags.IntVar(&cfg.WarmupIters, "warmup-iters", cfg.WarmupIters, "warmup chase passes before calibration")
	flags.Var(pattern, "pattern", "chase ordering: random, sequential, reverse, stride, interleave, gray, bitrev")
	flags.Uint64Var(&cfg.PatternArg, "pattern-arg", cfg.PatternArg, "pattern-specific argument (e.g. stride's step k)")
	flags.BoolVar(&cfg.PrintTable, "print-table", cfg.PrintTable, "print the size/latency table (format=table only)")
	flags.StringVar(&format, "format", "table", "output format: table or json")
	flags.BoolVar(&verbose, "verbose", false, "print a system-info header before the table")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// printSystemInfo writes the optional --verbose header. It never appears
// in the default output, so the default invocation matches the stable
// table/summary format byte-for-byte.
func printSystemInfo(w io.Writer) {
	fmt.Fprintln(w, "# system: go", runtime.Version(), runtime.GOOS+"/"+runtime.GOARCH,
		"cpus="+strconv.Itoa(runtime.NumCPU()), "gomaxprocs="+strconv.Itoa(runtime.GOMAXPROCS(0)))
}
