package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/folio/pkg/health"
)

func newHealthCmd(configPath *string) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check embeddings, cache, content store and chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			d, cleanup, err := openDeps(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			probes := []health.Probe{health.Embeddings(d.embedder)}
			if d.cache != nil {
				probes = append(probes, health.Cache(d.cache))
			}
			probes = append(probes, health.ContentStore(d.store))
			if url != "" {
				probes = append(probes, health.RemoteChat(&http.Client{Timeout: timeout}, url))
			} else {
				probes = append(probes, health.Chat(d.orchestrator()))
			}

			results, runErr := health.Run(ctx, probes)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHECK\tSTATUS\tLATENCY\tERROR")
			for _, r := range results {
				status, msg := "ok", ""
				if !r.OK() {
					status, msg = "FAIL", r.Err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, status, r.Latency.Round(time.Millisecond), msg)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "base URL of a running server to probe instead of the local pipeline")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	return cmd
}
