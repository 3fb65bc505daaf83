// Package image implements the image bot: one command per subreddit plus a
// few locally stored pictures.
package image

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/keshon/botcrew/pkg/retrylimit"
)

const (
	listingLimit = 50
	userAgent    = "botcrew (discord image bot)"
)

// Fetcher retrieves candidate image URLs for a subreddit.
type Fetcher interface {
	FetchImageURLs(ctx context.Context, subreddit string) ([]string, error)
}

// redditFetcher reads Reddit's public hot listing. Reddit throttles
// unauthenticated clients aggressively, so requests go through an adaptive
// rate limiter with retries.
type redditFetcher struct {
	client  *http.Client
	limiter *retrylimit.AdaptiveLimiter
}

// NewFetcher returns the production Reddit fetcher.
func NewFetcher() Fetcher {
	return &redditFetcher{
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: retrylimit.NewAdaptiveLimiter(2, 1, 5, 1, 0.5),
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				PostHint string `json:"post_hint"`
				URL      string `json:"url"`
				Over18   bool   `json:"over_18"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (f *redditFetcher) FetchImageURLs(ctx context.Context, subreddit string) ([]string, error) {
	url := fmt.Sprintf("https://www.reddit.com/r/%s/hot.json?limit=%d", subreddit, listingLimit)

	var body listing
	err := retrylimit.WithRetryMax(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return json.NewDecoder(resp.Body).Decode(&body)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("reddit returned %s: %w", resp.Status, httpStatusError(resp.StatusCode))
		default:
			// Client errors (bad subreddit name etc.) will not improve on retry.
			return &retrylimit.FatalError{Err: fmt.Errorf("reddit returned %s", resp.Status)}
		}
	}, f.limiter, 3)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}

	var urls []string
	for _, child := range body.Data.Children {
		post := child.Data
		if post.Over18 || !looksLikeImage(post.PostHint, post.URL) {
			continue
		}
		urls = append(urls, post.URL)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("r/%s has no image posts right now", subreddit)
	}
	return urls, nil
}

func looksLikeImage(hint, url string) bool {
	if hint == "image" {
		return true
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif"} {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return false
}

// httpStatusError wraps a status code so the retry classifier can tell rate
// limiting and server errors apart from everything else.
type httpStatusError int

func (e httpStatusError) Error() string   { return http.StatusText(int(e)) }
func (e httpStatusError) StatusCode() int { return int(e) }
