package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/folio/pkg/chat"
	"github.com/pario-ai/folio/pkg/models"
)

// formatDocuments lists retrieved chunks, best match first.
func formatDocuments(docs []models.RetrievedDocument) string {
	if len(docs) == 0 {
		return "No matching content found."
	}
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "%d. %s (score %.3f)\n", i+1, d.URL, d.Score)
		content := strings.TrimSpace(d.Content)
		if len(content) > 300 {
			content = content[:300] + "..."
		}
		for _, line := range strings.Split(content, "\n") {
			b.WriteString("   " + line + "\n")
		}
	}
	return b.String()
}

// formatAnswer appends the sources used for a generated answer.
func formatAnswer(answer string, reply *chat.Reply) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(answer))
	b.WriteString("\n")
	if reply.Cached {
		b.WriteString("\n(cached answer)\n")
		return b.String()
	}
	seen := make(map[string]bool)
	var urls []string
	for _, d := range reply.Documents {
		if d.URL != "" && !seen[d.URL] {
			seen[d.URL] = true
			urls = append(urls, d.URL)
		}
	}
	if len(urls) > 0 {
		b.WriteString("\nSources: " + strings.Join(urls, ", ") + "\n")
	}
	return b.String()
}

// formatAuditEntries formats audit entries as a text table.
func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-36s %6s %5s %5s %8s  %s\n",
		"Time", "Request ID", "Status", "Cache", "Docs", "Latency", "Question")
	b.WriteString(strings.Repeat("-", 110) + "\n")
	for _, e := range entries {
		cache := "miss"
		if e.CacheHit {
			cache = "hit"
		}
		question := e.Question
		if len(question) > 40 {
			question = question[:37] + "..."
		}
		status := fmt.Sprint(e.StatusCode)
		if e.ErrorKind != "" {
			status += "!"
		}
		fmt.Fprintf(&b, "%-20s %-36s %6s %5s %5d %6dms  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.RequestID, status, cache,
			e.DocumentCount, e.LatencyMs, question)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, hitRate)
}
