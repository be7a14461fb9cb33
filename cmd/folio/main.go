package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "folio",
		Short:         "Folio: retrieval-augmented chat for a portfolio site",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "folio.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newIngestCmd(&configPath),
		newAskCmd(&configPath),
		newCacheCmd(&configPath),
		newHealthCmd(&configPath),
		newAuditCmd(&configPath),
		newMCPCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
