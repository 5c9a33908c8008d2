// Package validator provides input validation for ingestion requests. It
// enforces platform, identifier, title and body constraints and returns
// per-field error details.
package validator

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion"
)

const (
	maxTitleLength      = 1024
	maxBodyLength       = 65536
	maxExternalIDLength = 255
	maxAuthorLength     = 255
)

// Platforms lists the accepted post sources.
var Platforms = []string{"reddit", "linkedin", "g2", "twitter", "hackernews", "manual"}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// Normalize trims fields and lower-cases the platform in place.
func Normalize(req *ingestion.IngestRequest) {
	req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.URL = strings.TrimSpace(req.URL)
}

// ValidateIngestRequest checks req and returns a *ValidationError listing
// every failing field. The title may be empty; the body may not.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	switch {
	case req.Platform == "":
		errs["platform"] = "platform is required"
	case !slices.Contains(Platforms, req.Platform):
		errs["platform"] = fmt.Sprintf("platform must be one of %s", strings.Join(Platforms, ", "))
	}
	if req.ExternalID == "" {
		errs["external_id"] = "external_id is required"
	} else if len(req.ExternalID) > maxExternalIDLength {
		errs["external_id"] = fmt.Sprintf("external_id must be at most %d characters", maxExternalIDLength)
	}
	if len(req.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		errs["body"] = "body is required and must not be empty"
	} else if len(req.Body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d characters", maxBodyLength)
	}
	if len(req.Author) > maxAuthorLength {
		errs["author"] = fmt.Sprintf("author must be at most %d characters", maxAuthorLength)
	}
	if req.URL != "" {
		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs["url"] = "url must be an absolute http(s) URL"
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
