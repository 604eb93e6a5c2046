package publisher

// Publisher represents a service for publishing price records downstream
type Publisher interface {
	// Publish publishes a message keyed by store name
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// Noop is the publisher used when no Redis address is configured
type Noop struct{}

// Publish discards the message
func (Noop) Publish(string, []byte) error { return nil }

// TrimStreams does nothing
func (Noop) TrimStreams() error { return nil }

// Close does nothing
func (Noop) Close() error { return nil }
