package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
)

func TestReadPosts(t *testing.T) {
	input := `{"id":"a","body":"Gusto is great."}

{"title":"t","body":"ADP is slow."}
`
	posts, err := readPosts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "a" || posts[1].ID != "3" || posts[1].Title != "t" {
		t.Errorf("unexpected posts: %+v", posts)
	}

	if _, err := readPosts(strings.NewReader("{broken")); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestSentimentCommand(t *testing.T) {
	cmd := sentimentCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(`{"id":"1","body":"Gusto is great, setup was easy."}
{"id":"2","body":"Nothing about vendors."}
`))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	dec := json.NewDecoder(&out)
	var lines []sentimentLine
	for dec.More() {
		var l sentimentLine
		if err := dec.Decode(&l); err != nil {
			t.Fatalf("decode: %v", err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 output lines, got %d", len(lines))
	}
	if lines[0].Entity != "gusto" || lines[0].Result.Label != sentiment.Positive {
		t.Errorf("line 1 = %+v", lines[0])
	}
	if !lines[1].Result.IsZero() {
		t.Errorf("line 2 should be neutral zero, got %+v", lines[1].Result)
	}
}
