package sse

import "time"

// Config holds configuration for event streams
type Config struct {
	// KeepAliveInterval is how often an idle stream gets a comment line, so
	// proxies do not time the connection out.
	KeepAliveInterval time.Duration

	// ClientBuffer is how many events a slow client may fall behind before
	// further events to it are dropped.
	ClientBuffer int
}

// DefaultConfig returns the default stream configuration
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
		ClientBuffer:      64,
	}
}
