package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/folio/pkg/audit"
	"github.com/pario-ai/folio/pkg/cache"
	"github.com/pario-ai/folio/pkg/models"
)

func newAuditCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the chat audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(configPath),
		newAuditShowCmd(configPath),
		newAuditStatsCmd(configPath),
		newAuditCleanupCmd(configPath),
	)
	return cmd
}

func newAuditSearchCmd(configPath *string) *cobra.Command {
	var (
		since      string
		cacheKey   string
		question   string
		cacheHits  bool
		errorsOnly bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				CacheKey:   cacheKey,
				ErrorsOnly: errorsOnly,
				Limit:      limit,
			}
			if question != "" {
				opts.CacheKey = cache.Fingerprint(question)
			}
			if cmd.Flags().Changed("cache-hit") {
				opts.CacheHit = &cacheHits
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAuditEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cacheKey, "cache-key", "", "filter by question fingerprint")
	cmd.Flags().StringVar(&question, "question", "", "filter by question text (fingerprinted like the cache)")
	cmd.Flags().BoolVar(&cacheHits, "cache-hit", false, "filter by cache hit (true) or miss (false)")
	cmd.Flags().BoolVar(&errorsOnly, "errors", false, "only failed requests")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditShowCmd(configPath *string) *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a single audit entry by request ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID == "" {
				return fmt.Errorf("--request-id is required")
			}

			l, cleanup, err := openAuditLogger(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(context.Background(), models.AuditQueryOpts{
				RequestID: requestID,
				Limit:     1,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that request ID.")
				return nil
			}

			e := entries[0]
			fmt.Printf("Request ID:    %s\n", e.RequestID)
			fmt.Printf("Cache key:     %s\n", e.CacheKey)
			fmt.Printf("Cache hit:     %t\n", e.CacheHit)
			fmt.Printf("Status:        %d\n", e.StatusCode)
			if e.ErrorKind != "" {
				fmt.Printf("Error:         %s\n", e.ErrorKind)
			}
			fmt.Printf("Documents:     %d\n", e.DocumentCount)
			fmt.Printf("History turns: %d\n", e.HistoryTurns)
			fmt.Printf("Latency:       %dms\n", e.LatencyMs)
			if e.RemoteAddr != "" {
				fmt.Printf("Client:        %s\n", e.RemoteAddr)
			}
			fmt.Printf("Time:          %s\n", e.CreatedAt.Format(time.RFC3339))
			if e.Question != "" {
				fmt.Printf("\n--- Question ---\n%s\n", e.Question)
			}
			if e.RewrittenQuery != "" && e.RewrittenQuery != e.Question {
				fmt.Printf("\n--- Search Query ---\n%s\n", e.RewrittenQuery)
			}
			if e.Answer != "" {
				fmt.Printf("\n--- Answer ---\n%s\n", e.Answer)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requestID, "request-id", "", "request ID to show")
	return cmd
}

func newAuditStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show audit log statistics by day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(formatAuditStats(stats))
			return nil
		},
	}
}

func newAuditCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit entries.\n", deleted)
			return nil
		},
	}
}

func openAuditLogger(cmd *cobra.Command, configPath string) (*audit.Logger, func(), error) {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return nil, nil, err
	}

	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %6s %-5s %5s %8s %-20s %s\n",
		"REQUEST ID", "STATUS", "CACHE", "DOCS", "LATENCY", "TIME", "QUESTION")
	b.WriteString(strings.Repeat("-", 120) + "\n")
	for _, e := range entries {
		hit := "miss"
		if e.CacheHit {
			hit = "hit"
		}
		q := strings.ReplaceAll(e.Question, "\n", " ")
		if len(q) > 40 {
			q = q[:37] + "..."
		}
		fmt.Fprintf(&b, "%-36s %6d %-5s %5d %6dms %-20s %s\n",
			e.RequestID, e.StatusCode, hit, e.DocumentCount,
			e.LatencyMs, e.CreatedAt.Format("2006-01-02 15:04:05"), q)
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %9s %10s %7s %12s\n", "DAY", "REQUESTS", "CACHE HITS", "ERRORS", "AVG LATENCY")
	b.WriteString(strings.Repeat("-", 54) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-12s %9d %10d %7d %10.0fms\n", s.Day, s.Requests, s.CacheHits, s.Errors, s.AvgLatencyMs)
	}
	return b.String()
}
