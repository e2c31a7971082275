// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/china-tjj/dyncast"
	"github.com/china-tjj/dyncast/internal/workload"
	"github.com/spf13/cobra"
)

func (c *CLI) newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run conversions through the cache and compare them with the uncached ground truth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := c.logger(cmd)
			path, _ := cmd.Flags().GetString("workload")
			var w *workload.Workload
			if path == "" {
				w = workload.Default()
			} else {
				var err error
				if w, err = workload.Load(path); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("workers") {
				w.Workers, _ = cmd.Flags().GetInt("workers")
			}
			if cmd.Flags().Changed("rounds") {
				w.Rounds, _ = cmd.Flags().GetInt("rounds")
			}

			scope := dyncast.NewScope(dyncast.WithLogger(logger))
			report, err := workload.Run(cmd.Context(), scope, w, logger)
			if report != nil {
				c.printReport(report)
			}
			return err
		},
	}
	cmd.Flags().StringP("workload", "w", "", "YAML workload file (default: every reachable combination of the built-in types)")
	cmd.Flags().Int("workers", 0, "Number of concurrent workers (overrides the workload)")
	cmd.Flags().Int("rounds", 0, "Rounds per worker (overrides the workload)")
	return cmd
}

func (c *CLI) printReport(r *workload.Report) {
	out := c.stdout
	_, _ = fmt.Fprintf(out, "conversions:  %d (%d failed, %d mismatched)\n", r.Conversions, r.Failed, r.Mismatches)
	_, _ = fmt.Fprintf(out, "cached:       %s\n", r.Cached)
	_, _ = fmt.Fprintf(out, "uncached:     %s\n", r.Uncached)
	if r.Cached > 0 {
		_, _ = fmt.Fprintf(out, "speedup:      %.1fx\n", float64(r.Uncached)/float64(r.Cached))
	}
	_, _ = fmt.Fprintf(out, "hits:         %d\n", r.Stats.Hits)
	_, _ = fmt.Fprintf(out, "misses:       %d\n", r.Stats.Misses)
	_, _ = fmt.Fprintf(out, "resolutions:  %d\n", r.Stats.Resolutions)
	_, _ = fmt.Fprintf(out, "shortcuts:    %d\n", r.Stats.Shortcuts)
	_, _ = fmt.Fprintf(out, "uncacheable:  %d\n", r.Stats.Uncacheable)
	_, _ = fmt.Fprintf(out, "entries:      %d\n", r.Stats.Entries)
	_, _ = fmt.Fprintf(out, "fingerprint:  %016x\n", r.Fingerprint)
}
