package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/internal/codec"
	"github.com/gitrdm/lsysinfer/pkg/infer"
	"github.com/gitrdm/lsysinfer/pkg/lsystem"
)

func newGenerateCmd(a *app) *cobra.Command {
	var depths, alphabet, complexity string
	var count int
	var seed int64
	var timeout time.Duration
	var rules bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draw random L-systems and print their request records",
		Long: `Generate draws random systems whose derivation uses every production and
prints one request record per sample, ready for solve or batch. Ranges are
"lo-hi" or a single number. With --rules the drawn systems and their words
are written to stderr.`,
		Example: "  lsysinfer generate --count 20 --depth 2-4 --alphabet 2-3 > requests.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rs [3]lsystem.Range
			for i, s := range []string{depths, alphabet, complexity} {
				r, err := parseRange(s)
				if err != nil {
					return err
				}
				rs[i] = r
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			g := lsystem.NewGenerator(rs[0], rs[1], rs[2], seed)
			for i := 0; i < count; i++ {
				sample, err := g.Generate()
				if err != nil {
					return err
				}
				n := sample.RuleSet.N()
				req := codec.Request{Timeout: timeout, Depth: sample.Depth, Histogram: sample.Target.Histogram(n)}
				fmt.Fprintln(cmd.OutOrStdout(), req.String())
				if rules {
					fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n%sword: %s\n\n", req, sample.RuleSet.Format(), sample.Target.Format(n))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&depths, "depth", "1-3", "derivation depth range")
	cmd.Flags().StringVar(&alphabet, "alphabet", "1-3", "alphabet size range")
	cmd.Flags().StringVar(&complexity, "complexity", "0-2", "extra symbols range")
	cmd.Flags().IntVarP(&count, "count", "c", 1, "number of samples")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: clock)")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "timeout written into each record")
	cmd.Flags().BoolVar(&rules, "rules", false, "write the drawn systems to stderr")
	return cmd
}

// parseRange reads "lo-hi" or "n".
func parseRange(s string) (lsystem.Range, error) {
	lo, hi, found := strings.Cut(s, "-")
	a, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return lsystem.Range{}, fmt.Errorf("%w: range %q", infer.ErrConfiguration, s)
	}
	if !found {
		return lsystem.Range{Lo: a, Hi: a}, nil
	}
	b, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || b < a {
		return lsystem.Range{}, fmt.Errorf("%w: range %q", infer.ErrConfiguration, s)
	}
	return lsystem.Range{Lo: a, Hi: b}, nil
}
