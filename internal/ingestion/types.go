// Package ingestion defines the request/response types and Kafka event schema
// used by the post ingestion pipeline.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by POST /api/v1/posts.
type IngestRequest struct {
	Platform   string     `json:"platform"`
	ExternalID string     `json:"external_id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Author     string     `json:"author"`
	URL        string     `json:"url"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// BulkIngestRequest carries several posts in one call.
type BulkIngestRequest struct {
	Posts []IngestRequest `json:"posts"`
}

// IngestResponse is returned once a post is stored.
type IngestResponse struct {
	PostID    string `json:"post_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// BulkItemResult reports the outcome of one post in a bulk request.
type BulkItemResult struct {
	Index  int               `json:"index"`
	Result *IngestResponse   `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// PostIngestEvent is published to the post-ingest topic after a new post is
// persisted. The worker scores it.
type PostIngestEvent struct {
	PostID     string    `json:"post_id"`
	Platform   string    `json:"platform"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IngestedAt time.Time `json:"ingested_at"`
	RequestID  string    `json:"request_id,omitempty"`
}

// EventTypePostIngested labels PostIngestEvent messages.
const EventTypePostIngested = "post.ingested"
