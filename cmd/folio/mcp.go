package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pario-ai/folio/pkg/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve folio tools over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, cleanup, err := openDeps(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := d.ensureCollection(ctx); err != nil {
				return err
			}
			if err := d.openAuditor(); err != nil {
				return err
			}

			var (
				cs  mcp.CacheStatter
				aud mcp.AuditQuerier
			)
			if d.cache != nil {
				cs = d.cache
			}
			if d.auditor != nil {
				aud = d.auditor
			}
			srv := mcp.New(d.retriever(), d.orchestrator(), cs, aud, version, d.log)
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
