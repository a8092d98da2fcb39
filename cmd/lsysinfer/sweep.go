package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/internal/codec"
	"github.com/gitrdm/lsysinfer/internal/store"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

func newSweepCmd(a *app) *cobra.Command {
	var from, to int
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "sweep h1,h2,...",
		Short: "Try increasing depths until one has an optimal system",
		Long: `Sweep solves the histogram at every depth from --from to --to in turn and
stops at the first depth with an optimal system. Each depth gets its own
--timeout budget. One line is printed per attempted depth.`,
		Example: "  lsysinfer sweep 5,3 --to 6",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseHistogram(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = a.cfg.Timeout
			}
			s, err := a.solver()
			if err != nil {
				return err
			}
			results, err := s.Sweep(cmd.Context(), h, from, to, timeout)
			recs := make([]store.Record, 0, len(results))
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "depth %d: %s\n", res.Depth, codec.Encode(res, a.recordLayout()))
				recs = append(recs, a.record(h, res))
			}
			a.archive(cmd.Context(), recs...)
			return err
		},
	}
	cmd.Flags().IntVar(&from, "from", 1, "first depth")
	cmd.Flags().IntVar(&to, "to", 8, "last depth")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "budget per depth (default from configuration)")
	return cmd
}

// parseHistogram reads comma-separated symbol counts.
func parseHistogram(s string) (infer.Histogram, error) {
	var h infer.Histogram
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("%w: histogram %q: %v", infer.ErrConfiguration, s, err)
		}
		h = append(h, v)
	}
	return h, h.Validate()
}
