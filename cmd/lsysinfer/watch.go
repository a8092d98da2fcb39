package main

import (
	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Solve the request file whenever it changes",
		Long: `Watch monitors a request file and rewrites the result file after every
change, the way a caller exchanging file buffers expects. Paths default to
watch.input and watch.output from the configuration.`,
		Example: "  lsysinfer watch --input inData --output outData",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				input = a.cfg.Watch.Input
			}
			if output == "" {
				output = a.cfg.Watch.Output
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			opts := watch.Options{
				Input:    input,
				Output:   output,
				Layout:   a.recordLayout(),
				Timeout:  a.cfg.Timeout,
				Debounce: a.cfg.Watch.Debounce,
				Log:      a.log,
			}
			if st != nil {
				defer st.Close()
				opts.Archive = st
			}
			s, err := a.solver()
			if err != nil {
				return err
			}
			w, err := watch.New(s, opts)
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "request file to watch")
	cmd.Flags().StringVarP(&output, "output", "o", "", "result file to write")
	return cmd
}
