package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/models"
)

func newAskCmd(configPath *string) *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and stream the answer to stdout",
		Args:  cobra.MinimumNArgs(1),
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

			question := strings.Join(args, " ")
			reply, err := d.orchestrator().Chat(ctx, []models.ChatMessage{{Role: models.RoleUser, Content: question}})
			if err != nil {
				return publicError(err)
			}
			for c := range reply.Stream {
				if c.Err != nil {
					fmt.Println()
					return publicError(c.Err)
				}
				fmt.Print(c.Text)
			}
			fmt.Println()
			reply.Wait()

			if showSources {
				if reply.Cached {
					fmt.Fprintln(os.Stderr, "(cached answer)")
				}
				for _, doc := range reply.Documents {
					fmt.Fprintf(os.Stderr, "  %.3f  %s\n", doc.Score, doc.URL)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved documents to stderr")
	return cmd
}

func publicError(err error) error {
	var ce *chat.Error
	if errors.As(err, &ce) {
		return fmt.Errorf("%s (%d): %s", ce.Kind, ce.Kind.Status(), ce.Message())
	}
	return err
}
