package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/internal/codec"
	"github.com/gitrdm/lsysinfer/internal/parallel"
	"github.com/gitrdm/lsysinfer/internal/store"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

func newBatchCmd(a *app) *cobra.Command {
	var input, output string
	var workers int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Solve every record of a file concurrently",
		Long: `Batch reads one request record per line and solves them on --workers
goroutines, each with its own engine. Result records are printed in input
order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := a.recordLayout()
			in := cmd.InOrStdin()
			if input != "" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("%w: %v", codec.ErrIO, err)
				}
				defer f.Close()
				in = f
			}
			reqs, err := codec.ReadRequests(in, layout)
			if err != nil {
				return err
			}

			results := make([]infer.Result, len(reqs))
			err = parallel.Map(cmd.Context(), workers, len(reqs), func(ctx context.Context, i int) error {
				s, err := a.solver()
				if err != nil {
					return err
				}
				res, err := s.Solve(ctx, reqs[i].Histogram, reqs[i].Depth, a.timeout(reqs[i]))
				if err != nil {
					return fmt.Errorf("record %d: %w", i+1, err)
				}
				results[i] = res
				return nil
			})
			if err != nil {
				return err
			}

			lines := make([]string, len(results))
			recs := make([]store.Record, len(results))
			for i, res := range results {
				lines[i] = codec.Encode(res, layout)
				recs[i] = a.record(reqs[i].Histogram, res)
			}
			a.archive(cmd.Context(), recs...)
			text := strings.Join(lines, "\n") + "\n"
			if err := emit(cmd.OutOrStdout(), text); err != nil {
				a.log.WithError(err).Warn("writing results failed")
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
					a.log.WithError(err).Warn("writing results failed")
					return fmt.Errorf("%w: %v", codec.ErrIO, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "file with one request record per line (default stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file receiving the result records")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent solves (default: number of CPUs)")
	return cmd
}
