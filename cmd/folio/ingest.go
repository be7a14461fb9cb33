package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/folio/pkg/ingest"
)

func newIngestCmd(configPath *string) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the content store from the site pages and resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, cleanup, err := openDeps(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			in, err := ingest.New(d.cfg.Ingest, d.cache, d.store, d.embedder, d.log)
			if err != nil {
				return err
			}

			report, err := in.Run(ctx)
			if err != nil {
				return err
			}
			printReport(report)
			if !watch {
				return nil
			}

			d.log.Info("watching for changes", zap.String("dir", d.cfg.Ingest.PagesDir))
			return in.Watch(ctx, d.cfg.Ingest.PagesDir, d.cfg.Ingest.WatchDebounce, func(r *ingest.Report, err error) {
				if err != nil {
					d.log.Error("re-ingest failed", zap.Error(err))
					return
				}
				printReport(r)
			})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "re-ingest when pages change")
	return cmd
}

func printReport(r *ingest.Report) {
	resume := "no"
	if r.Resume {
		resume = "yes"
	}
	fmt.Printf("Pages:    %d\nResume:   %s\nChunks:   %d\nDuration: %s\n",
		r.Pages, resume, r.Chunks, r.Duration.Round(time.Millisecond))
	var merr *multierror.Error
	if errors.As(r.Warnings, &merr) {
		for _, w := range merr.Errors {
			fmt.Printf("warning: %v\n", w)
		}
	} else if r.Warnings != nil {
		fmt.Printf("warning: %v\n", r.Warnings)
	}
}
