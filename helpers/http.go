package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"time"

	"golang.org/x/net/html/charset"

	perrors "printerpricewatch/pkg/errors"
)

// HTTP header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.google.com.au/",
		"https://www.bing.com/",
	}
)

// FetchWithBrowserHeaders sends an HTTP GET request with browser-like headers,
// retrying transient failures with exponential backoff, converts the response
// body to UTF-8 (if needed), and returns it as an io.Reader.
//
// A 429 response is returned immediately as a rate limit error so callers can
// block the store for a while instead of hammering it.
func FetchWithBrowserHeaders(ctx context.Context, url string, timeout time.Duration, maxRetries int) (io.Reader, error) {
	client := &http.Client{Timeout: timeout}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, time.Duration(attempt)*2*time.Second); err != nil {
				return nil, err
			}
		}

		body, err := fetchOnce(ctx, client, url)
		if err == nil {
			return body, nil
		}

		var scrapeErr *perrors.ScrapeError
		if errors.As(err, &scrapeErr) && !scrapeErr.IsRetryable() {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, url string) (io.Reader, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, perrors.NewNetwork("", "", "failed to create request", err)
	}

	// Set browser-like headers; unidentified bots get blocked on some stores
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,en-AU;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("upgrade-insecure-requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, perrors.NewNetwork("", "", "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, perrors.NewRateLimit("", resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode >= 500 {
		return nil, perrors.NewNetwork("", "", fmt.Sprintf("fetch %s server error: %d", url, resp.StatusCode), nil)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, perrors.NewFetch("", "", fmt.Sprintf("fetch %s unexpected status code: %d", url, resp.StatusCode))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, perrors.NewNetwork("", "", "failed to read response body", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))

	// If already UTF-8, return as is
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	// Convert to UTF-8 if necessary
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, perrors.NewNetwork("", "", "failed to read converted UTF-8 body", err)
	}

	return &buf, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
