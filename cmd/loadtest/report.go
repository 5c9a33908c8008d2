package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"text/tabwriter"
	"time"
)

// sample is the outcome of one request. status is 0 when no response came
// back.
type sample struct {
	latency time.Duration
	status  int
	label   string
	cached  bool
	err     error
}

type report struct {
	Total     int
	OK        int
	Failed    int
	Transport int
	Elapsed   time.Duration
	Cached    int
	Statuses  map[int]int
	Labels    map[string]int
	Latency   map[string]time.Duration
}

func summarize(samples []sample, elapsed time.Duration) report {
	r := report{
		Total:    len(samples),
		Elapsed:  elapsed,
		Statuses: map[int]int{},
		Labels:   map[string]int{},
		Latency:  map[string]time.Duration{},
	}
	var lat []time.Duration
	for _, s := range samples {
		if s.err != nil && s.status == 0 {
			r.Transport++
			r.Failed++
			continue
		}
		r.Statuses[s.status]++
		lat = append(lat, s.latency)
		if s.status/100 != 2 || s.err != nil {
			r.Failed++
			continue
		}
		r.OK++
		if s.label != "" {
			r.Labels[s.label]++
		}
		if s.cached {
			r.Cached++
		}
	}
	if len(lat) == 0 {
		return r
	}
	slices.Sort(lat)
	var sum time.Duration
	for _, l := range lat {
		sum += l
	}
	r.Latency["min"] = lat[0]
	r.Latency["avg"] = sum / time.Duration(len(lat))
	r.Latency["p50"] = percentile(lat, 50)
	r.Latency["p90"] = percentile(lat, 90)
	r.Latency["p99"] = percentile(lat, 99)
	r.Latency["max"] = lat[len(lat)-1]
	return r
}

// percentile uses the nearest-rank method on sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	return sorted[min(max(rank-1, 0), len(sorted)-1)]
}

func (r report) print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "requests\t%d\n", r.Total)
	fmt.Fprintf(tw, "ok\t%d\n", r.OK)
	fmt.Fprintf(tw, "failed\t%d\t(%d transport)\n", r.Failed, r.Transport)
	if r.Total > 0 && r.Elapsed > 0 {
		fmt.Fprintf(tw, "throughput\t%.1f req/s\n", float64(r.Total)/r.Elapsed.Seconds())
	}
	if r.OK > 0 && r.Cached > 0 {
		fmt.Fprintf(tw, "cache hits\t%.1f%%\n", 100*float64(r.Cached)/float64(r.OK))
	}
	if len(r.Latency) > 0 {
		fmt.Fprintln(tw)
		for _, k := range []string{"min", "avg", "p50", "p90", "p99", "max"} {
			fmt.Fprintf(tw, "latency %s\t%s\n", k, r.Latency[k].Round(10*time.Microsecond))
		}
	}
	if len(r.Statuses) > 0 {
		fmt.Fprintln(tw)
		codes := make([]int, 0, len(r.Statuses))
		for c := range r.Statuses {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Fprintf(tw, "status %d\t%d\n", c, r.Statuses[c])
		}
	}
	if len(r.Labels) > 0 {
		fmt.Fprintln(tw)
		for _, l := range []string{"positive", "neutral", "negative"} {
			fmt.Fprintf(tw, "label %s\t%d\n", l, r.Labels[l])
		}
	}
	tw.Flush()
}
