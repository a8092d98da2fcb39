package main

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/internal/codec"
)

func newSolveCmd(a *app) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "solve [record]",
		Short: "Solve one request record",
		Long: `Solve reads one request record, either from --input or as the argument,
and prints the result record. With --output the result is also written to
that file.

Record: timeout,depth,h1,...,hN (legacy layout: depth,h1,...,hN).`,
		Example: "  lsysinfer solve 30,2,2,1\n  lsysinfer solve --input inData --output outData",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := a.recordLayout()
			var (
				req codec.Request
				err error
			)
			switch {
			case len(args) == 1 && input != "":
				return errors.New("give either a record argument or --input, not both")
			case len(args) == 1:
				req, err = codec.ReadRequest(strings.NewReader(args[0]), layout)
			case input != "":
				req, err = codec.ReadRequestFile(input, layout)
			default:
				req, err = codec.ReadRequest(cmd.InOrStdin(), layout)
			}
			if err != nil {
				return err
			}

			s, err := a.solver()
			if err != nil {
				return err
			}
			res, err := s.Solve(cmd.Context(), req.Histogram, req.Depth, a.timeout(req))
			if err != nil {
				return err
			}
			if res.Incumbent != nil {
				a.log.WithFields(logrus.Fields{
					"cost":  res.Incumbent.Cost(),
					"axiom": res.Incumbent.Axiom,
					"rules": res.Incumbent.Rules,
				}).Info("best system found before the timeout")
			}
			a.archive(cmd.Context(), a.record(req.Histogram, res))

			if err := emit(cmd.OutOrStdout(), codec.Encode(res, layout)+"\n"); err != nil {
				a.log.WithError(err).Warn("writing result failed")
				return err
			}
			if output != "" {
				if err := codec.WriteFile(output, res, layout); err != nil {
					a.log.WithError(err).Warn("writing result failed")
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "file holding the request record")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file receiving the result record")
	return cmd
}
