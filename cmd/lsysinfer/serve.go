package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gitrdm/lsysinfer/internal/metrics"
	"github.com/gitrdm/lsysinfer/internal/server"
	"github.com/gitrdm/lsysinfer/pkg/infer"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve solves over HTTP",
		Long: `Serve exposes POST /v1/solve (JSON), POST /v1/solve/record (CSV record),
GET /v1/history, GET /healthz and GET /metrics. Solves run one at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			gin.SetMode(gin.ReleaseMode)

			rec := metrics.New()
			s, err := a.solver(infer.WithObserver(rec))
			if err != nil {
				return err
			}
			opts := server.Options{
				Layout:     a.recordLayout(),
				Timeout:    a.cfg.Timeout,
				MaxTimeout: a.cfg.Server.MaxTimeout,
				Metrics:    rec.Handler(),
				Log:        a.log,
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
				opts.Archive = st
			}
			return server.New(s, opts).Run(cmd.Context(), addr, a.cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
