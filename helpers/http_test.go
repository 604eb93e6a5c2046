package helpers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	perrors "printerpricewatch/pkg/errors"
)

func TestFetchWithBrowserHeaders(t *testing.T) {
	// Create a test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("referer"))

		// Send a response
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, World!</body></html>"))
	}))
	defer server.Close()

	// Fetch the page
	reader, err := FetchWithBrowserHeaders(context.Background(), server.URL, 5*time.Second, 0)
	assert.NoError(t, err)

	// Read the response
	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Hello, World!")
}

func TestFetchWithBrowserHeadersNonUTF8(t *testing.T) {
	// Create a test server that returns a non-UTF8 response
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Price: $899.00</body></html>"))
	}))
	defer server.Close()

	reader, err := FetchWithBrowserHeaders(context.Background(), server.URL, 5*time.Second, 0)
	assert.NoError(t, err)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "$899.00")
}

func TestFetchWithBrowserHeadersRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := FetchWithBrowserHeaders(context.Background(), server.URL, 5*time.Second, 2)
	assert.Error(t, err)

	var scrapeErr *perrors.ScrapeError
	assert.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, perrors.ErrorTypeRateLimit, scrapeErr.Type)
	assert.Contains(t, err.Error(), "retry after 60")
}

func TestFetchWithBrowserHeadersNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := FetchWithBrowserHeaders(context.Background(), server.URL, 5*time.Second, 2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 404")
	// 4xx responses are definitive; no retries
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchWithBrowserHeadersRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer server.Close()

	reader, err := FetchWithBrowserHeaders(context.Background(), server.URL, 5*time.Second, 1)
	assert.NoError(t, err)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "recovered")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchWithBrowserHeadersInvalidURL(t *testing.T) {
	_, err := FetchWithBrowserHeaders(context.Background(), "http://invalid.url.that.does.not.exist", time.Second, 0)
	assert.Error(t, err)
}
