package models

import "time"

// AuditEntry records one chat request and its outcome.
type AuditEntry struct {
	RequestID      string    `json:"request_id"`
	CacheKey       string    `json:"cache_key"`
	Question       string    `json:"question,omitempty"`
	RewrittenQuery string    `json:"rewritten_query,omitempty"`
	Answer         string    `json:"answer,omitempty"`
	CacheHit       bool      `json:"cache_hit"`
	DocumentCount  int       `json:"document_count"`
	HistoryTurns   int       `json:"history_turns"`
	StatusCode     int       `json:"status_code"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	RemoteAddr     string    `json:"remote_addr,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DBPath        string   `yaml:"db_path"`
	RetentionDays int      `yaml:"retention_days"`
	Include       []string `yaml:"include"`       // "questions", "answers", "metadata"
	MaxBodySize   int      `yaml:"max_body_size"` // bytes
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Since      time.Time
	CacheKey   string
	RequestID  string
	CacheHit   *bool
	ErrorsOnly bool
	Limit      int
}

// AuditStat holds aggregate audit counts for a single day.
type AuditStat struct {
	Day          string
	Requests     int
	CacheHits    int
	Errors       int
	AvgLatencyMs float64
}
