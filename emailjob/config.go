package emailjob

import "time"

// Config tunes the queue's buffer and the worker's retry policy.
type Config struct {
	// BufferSize is the bounded channel capacity. Default 100.
	BufferSize int

	// BaseRetryDelay seeds the exponential backoff. Default 1s.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps a single backoff step. Default 60s.
	MaxRetryDelay time.Duration

	// MaxAttempts is the total number of delivery attempts per job,
	// including the first one. Default 2.
	MaxAttempts int

	// NonBlocking makes Enqueue fail with ErrQueueFull instead of waiting
	// for buffer space. Default is blocking.
	NonBlocking bool
}

// DefaultConfig returns the queue defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:     100,
		BaseRetryDelay: time.Second,
		MaxRetryDelay:  60 * time.Second,
		MaxAttempts:    2,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = def.BaseRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = def.MaxRetryDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	return c
}
