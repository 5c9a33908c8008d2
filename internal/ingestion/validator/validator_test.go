package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion"
)

func validRequest() ingestion.IngestRequest {
	return ingestion.IngestRequest{
		Platform:   "reddit",
		ExternalID: "t3_abc123",
		Title:      "Switching payroll providers",
		Body:       "Switched from ADP to Gusto last month.",
		URL:        "https://www.reddit.com/r/smallbusiness/comments/abc123",
	}
}

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(r *ingestion.IngestRequest)
		wantFields []string
	}{
		{"valid", func(r *ingestion.IngestRequest) {}, nil},
		{"empty title allowed", func(r *ingestion.IngestRequest) { r.Title = "" }, nil},
		{"missing platform", func(r *ingestion.IngestRequest) { r.Platform = "" }, []string{"platform"}},
		{"unknown platform", func(r *ingestion.IngestRequest) { r.Platform = "myspace" }, []string{"platform"}},
		{"missing external id", func(r *ingestion.IngestRequest) { r.ExternalID = "" }, []string{"external_id"}},
		{"blank body", func(r *ingestion.IngestRequest) { r.Body = "   " }, []string{"body"}},
		{"huge body", func(r *ingestion.IngestRequest) { r.Body = strings.Repeat("a", maxBodyLength+1) }, []string{"body"}},
		{"long title", func(r *ingestion.IngestRequest) { r.Title = strings.Repeat("t", maxTitleLength+1) }, []string{"title"}},
		{"relative url", func(r *ingestion.IngestRequest) { r.URL = "/r/payroll" }, []string{"url"}},
		{"several fields", func(r *ingestion.IngestRequest) { r.Platform = ""; r.Body = "" }, []string{"platform", "body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := ValidateIngestRequest(&req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if _, ok := verr.Fields[f]; !ok {
					t.Errorf("missing error for field %s in %v", f, verr.Fields)
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	req := ingestion.IngestRequest{Platform: "  Reddit ", ExternalID: " t3_x ", Title: " Hi "}
	Normalize(&req)
	if req.Platform != "reddit" || req.ExternalID != "t3_x" || req.Title != "Hi" {
		t.Errorf("normalized = %+v", req)
	}
}

func TestValidationErrorMessageSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "too long", "body": "required"}}
	if got := err.Error(); got != "body: required; title: too long" {
		t.Errorf("Error() = %q", got)
	}
}
