package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chat HTTP server",
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

			var auditor server.Auditor
			if d.auditor != nil {
				auditor = d.auditor
			}
			srv := server.New(d.cfg, d.orchestrator(), d.cache, d.store, auditor, d.log)

			d.log.Info("starting folio",
				zap.String("config", *configPath),
				zap.String("version", version),
				zap.String("cache", cacheProvider(d)),
				zap.String("content_store", d.cfg.ContentStore.Provider),
			)
			return srv.ListenAndServe(ctx)
		},
	}
}

func cacheProvider(d *deps) string {
	if d.cache == nil {
		return "none"
	}
	return d.cfg.Cache.Provider
}
