package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/pkg/infer"
	"github.com/gitrdm/lsysinfer/pkg/lsystem"
)

func newExplainCmd(a *app) *cobra.Command {
	var depth, alphabet int
	cmd := &cobra.Command{
		Use:   "explain word",
		Short: "Infer an L-system that derives a word",
		Long: `Explain counts the symbols of word, infers a minimal system for that
histogram at --depth, and orders every production so that the derivation
spells the word exactly. Words are lowercase letters ("abaab") or
comma-separated 1-based symbol numbers ("1,2,1,1,2").`,
		Example: "  lsysinfer explain abaab --depth 3",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := alphabet
			if n == 0 {
				n = 26
			}
			target, err := lsystem.ParseWord(args[0], n)
			if err != nil {
				return fmt.Errorf("%w: %v", infer.ErrConfiguration, err)
			}
			if alphabet == 0 {
				n = 0
				for _, sym := range target {
					n = max(n, sym+1)
				}
			}
			h := target.Histogram(n)

			s, err := a.solver()
			if err != nil {
				return err
			}
			res, err := s.Solve(cmd.Context(), h, depth, a.cfg.Timeout)
			if err != nil {
				return err
			}
			a.archive(cmd.Context(), a.record(h, res))
			out := cmd.OutOrStdout()
			if res.Status != infer.OptimalFound {
				fmt.Fprintf(out, "%s: no system at depth %d\n", res.Status, depth)
				return nil
			}
			fmt.Fprintf(out, "histogram %v\n%s\n", []int(h), res.Solution)

			rs, err := lsystem.Arrange(cmd.Context(), *res.Solution, depth, target)
			if err != nil {
				fmt.Fprintf(out, "no ordering of the productions derives %s\n", target.Format(n))
				return nil
			}
			fmt.Fprint(out, rs.Format())
			return nil
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "derivation depth")
	cmd.Flags().IntVarP(&alphabet, "alphabet", "n", 0, "alphabet size (default: largest symbol in the word)")
	return cmd
}
