package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// expiryClearer is implemented by caches that keep expired rows until
// they are swept.
type expiryClearer interface {
	Clear(ctx context.Context, expiredOnly bool) error
}

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the answer cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, cleanup, err := openDeps(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			if d.cache == nil {
				fmt.Println("Cache is disabled.")
				return nil
			}

			stats, err := d.cache.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Provider: %s\nEntries:  %d\nHits:     %d\nMisses:   %d\n",
				d.cfg.Cache.Provider, stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, cleanup, err := openDeps(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			if d.cache == nil {
				fmt.Println("Cache is disabled.")
				return nil
			}

			if c, ok := d.cache.(expiryClearer); ok {
				if err := c.Clear(ctx, expiredOnly); err != nil {
					return err
				}
			} else if expiredOnly {
				fmt.Printf("The %s cache evicts expired entries itself.\n", d.cfg.Cache.Provider)
				return nil
			} else if err := d.cache.Flush(ctx); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Println("Expired cache entries cleared.")
			} else {
				fmt.Println("All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Remove every cached answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, cleanup, err := openDeps(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()
			if d.cache == nil {
				fmt.Println("Cache is disabled.")
				return nil
			}
			if err := d.cache.Flush(ctx); err != nil {
				return err
			}
			fmt.Println("Cache flushed.")
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd, flushCmd)
	return cmd
}
