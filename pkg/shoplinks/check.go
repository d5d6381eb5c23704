package shoplinks

import (
	"context"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pcsensei/pcsensei/pkg/whttp"
)

// CheckResult is the outcome of probing one shop link.
type CheckResult struct {
	Store      string `json:"store"`
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
	Title      string `json:"title,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OK reports whether the store answered with a 2xx or 3xx status.
func (r CheckResult) OK() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 400
}

// Check probes each link in store order, waiting interval between requests
// so a retailer is never hit in bursts.
func Check(ctx context.Context, client *retryablehttp.Client, links map[string]string, interval time.Duration) []CheckResult {
	var results []CheckResult
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	first := true
	for _, s := range Stores {
		link, ok := links[s.Key]
		if !ok {
			continue
		}
		if !first && tick != nil {
			select {
			case <-ctx.Done():
				return results
			case <-tick:
			}
		}
		first = false

		r := CheckResult{Store: s.Key, URL: link}
		res, err := whttp.Do(ctx, client, &whttp.Request{URL: link})
		if err != nil {
			r.Error = err.Error()
		} else {
			r.StatusCode = res.StatusCode
			r.Title = res.Title
		}
		results = append(results, r)
	}
	return results
}
