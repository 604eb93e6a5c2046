package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeRateFetch represents exchange rate fetch errors
	ErrorTypeRateFetch ErrorType = "rate_fetch"
	// ErrorTypeNetwork represents transient network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeFetch represents definitive HTTP failures (4xx responses)
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeExtract represents selector extraction errors
	ErrorTypeExtract ErrorType = "extract"
	// ErrorTypeParse represents price parsing errors
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypePersistence represents history write errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
)

// ScrapeError represents a pipeline-specific error
type ScrapeError struct {
	Type    ErrorType
	Store   string
	Model   string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	scope := e.Store
	if e.Model != "" {
		scope = e.Store + "/" + e.Model
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, scope, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, scope, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth retrying
func (e *ScrapeError) IsRetryable() bool {
	return e.Type == ErrorTypeNetwork
}

// IsFatal returns true if the error must abort the whole run
func (e *ScrapeError) IsFatal() bool {
	switch e.Type {
	case ErrorTypeConfiguration, ErrorTypePersistence:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, store, model, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Store:   store,
		Model:   model,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", "", message, err)
}

// NewRateFetch creates a new exchange rate fetch error
func NewRateFetch(message string, err error) *ScrapeError {
	return New(ErrorTypeRateFetch, "", "", message, err)
}

// NewNetwork creates a new network error
func NewNetwork(store, model, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, store, model, message, err)
}

// NewFetch creates a new fetch error for a non-2xx response
func NewFetch(store, model, message string) *ScrapeError {
	return New(ErrorTypeFetch, store, model, message, nil)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(store string, retryAfter string) *ScrapeError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, store, "", message, nil)
}

// NewExtract creates a new extraction error
func NewExtract(store, model, message string) *ScrapeError {
	return New(ErrorTypeExtract, store, model, message, nil)
}

// NewParse creates a new price parsing error
func NewParse(store, model, message string, err error) *ScrapeError {
	return New(ErrorTypeParse, store, model, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(message string, err error) *ScrapeError {
	return New(ErrorTypePersistence, "", "", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(store, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, store, "", message, err)
}
