// Command loadtest drives concurrent traffic at the analyzer or ingestion
// service and prints throughput, latency percentiles, status codes and, for
// scoring endpoints, the label mix the service returned.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -endpoint analyze -concurrency 20 -duration 30s
//	go run ./cmd/loadtest -url http://localhost:8081 -endpoint ingest -rps 200
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type samplePost struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// target is one endpoint the tool can exercise.
type target struct {
	path string
	// body builds the JSON request for post.
	body func(post samplePost) any
	// inspect pulls the label and cache flag out of a 2xx response body.
	inspect func(body []byte) (label string, cached bool)
}

var targets = map[string]target{
	"sentiment": {
		path: "/api/v1/sentiment",
		body: func(p samplePost) any { return p },
		inspect: func(b []byte) (string, bool) {
			var out struct {
				Label string `json:"label"`
			}
			_ = json.Unmarshal(b, &out)
			return out.Label, false
		},
	},
	"analyze": {
		path: "/api/v1/analyze",
		body: func(p samplePost) any { return p },
		inspect: func(b []byte) (string, bool) {
			var out struct {
				Brand struct {
					Label string `json:"label"`
				} `json:"brand"`
				Cached bool `json:"cached"`
			}
			_ = json.Unmarshal(b, &out)
			return out.Brand.Label, out.Cached
		},
	},
	"themes": {
		path: "/api/v1/themes",
		body: func(p samplePost) any { return p },
	},
	"ingest": {
		path: "/api/v1/posts",
		body: func(p samplePost) any {
			return map[string]string{
				"platform":    "manual",
				"external_id": uuid.NewString(),
				"title":       p.Title,
				"body":        p.Body,
			}
		},
	},
}

type options struct {
	baseURL     string
	endpoint    string
	apiKey      string
	concurrency int
	rps         int
	duration    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the target service")
	flag.StringVar(&opts.endpoint, "endpoint", "analyze", "sentiment, analyze, themes or ingest")
	flag.StringVar(&opts.apiKey, "api-key", os.Getenv("SM_API_KEY"), "API key sent as a bearer token")
	flag.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.IntVar(&opts.rps, "rps", 0, "total request rate cap, 0 for unlimited")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "test duration")
	flag.Parse()

	tg, ok := targets[opts.endpoint]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown endpoint %q\n", opts.endpoint)
		os.Exit(2)
	}
	if opts.concurrency < 1 {
		opts.concurrency = 1
	}

	fmt.Printf("target %s%s, %d workers for %s", opts.baseURL, tg.path, opts.concurrency, opts.duration)
	if opts.rps > 0 {
		fmt.Printf(" at %d req/s", opts.rps)
	}
	fmt.Printf(", %d sample posts\n\n", len(corpus))

	samples, elapsed := run(opts, tg)
	rep := summarize(samples, elapsed)
	rep.print(os.Stdout)
	if rep.Total == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed, is the service running?")
		os.Exit(1)
	}
}

// run fires requests until the duration passes and returns every sample.
func run(opts options, tg target) ([]sample, time.Duration) {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	var pace <-chan time.Time
	if opts.rps > 0 {
		t := time.NewTicker(time.Second / time.Duration(opts.rps))
		defer t.Stop()
		pace = t.C
	}

	results := make(chan sample, opts.concurrency*4)
	collected := make(chan []sample, 1)
	go func() {
		var all []sample
		for s := range results {
			all = append(all, s)
		}
		collected <- all
	}()

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < opts.concurrency; w++ {
		g.Go(func() error {
			for i := w; ; i++ {
				if pace != nil {
					select {
					case <-pace:
					case <-ctx.Done():
						return nil
					}
				}
				if ctx.Err() != nil {
					return nil
				}
				s := fire(ctx, client, opts, tg, corpus[i%len(corpus)])
				if ctx.Err() != nil && s.err != nil {
					return nil
				}
				results <- s
			}
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)
	close(results)
	return <-collected, elapsed
}

func fire(ctx context.Context, client *http.Client, opts options, tg target, post samplePost) sample {
	payload, _ := json.Marshal(tg.body(post))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.baseURL+tg.path, bytes.NewReader(payload))
	if err != nil {
		return sample{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+opts.apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return sample{latency: time.Since(start), err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	s := sample{latency: time.Since(start), status: resp.StatusCode, err: err}
	if err == nil && tg.inspect != nil && resp.StatusCode/100 == 2 {
		s.label, s.cached = tg.inspect(body)
	}
	return s
}
