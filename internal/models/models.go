package models

import "time"

// Run statuses.
const (
	RunStatusSuccess = "success"
	RunStatusSkipped = "skipped"
	RunStatusFailed  = "failed"
)

// Run error types, derived from the client's error taxonomy.
const (
	ErrorTypeTransport = "transport"
	ErrorTypeRemote    = "remote"
	ErrorTypeDecode    = "decode"
	ErrorTypeInput     = "input"
	ErrorTypeFeed      = "feed"
	ErrorTypeStore     = "store"
)

// Run records one continuous clustering run.
type Run struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	FeedsFetched int       `json:"feeds_fetched"`
	NewArticles  int       `json:"new_articles"`
	ResultItems  int       `json:"result_items"`
	InvalidCount int       `json:"invalid_count"`
	ErrorType    string    `json:"error_type,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

type Stats struct {
	StoredArticles    int   `json:"stored_articles"`
	InvalidArticles   int   `json:"invalid_articles"`
	TotalRuns         int   `json:"total_runs"`
	FailedRuns        int   `json:"failed_runs"`
	DatabaseSizeBytes int64 `json:"database_size_bytes"`
}
