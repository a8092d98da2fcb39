package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived solves, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("no archive configured: set store.path")
			}
			defer st.Close()
			recs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tENGINE\tDEPTH\tHISTOGRAM\tSTATUS\tELAPSED\tRESULT")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%s\t%s\t%s\n",
					r.Timestamp.Format(time.RFC3339), r.Engine, r.Depth, []int(r.Histogram),
					r.Status, r.Elapsed.Round(time.Millisecond), r.Payload)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to list (0 for all)")
	return cmd
}
