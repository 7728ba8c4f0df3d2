package config

import "time"

const (
	// MaxMessageLength is the maximum body length of a text message,
	// counted after trimming.
	MaxMessageLength = 2000

	// TypingTimeout is how long a typing indicator stays up without a
	// fresh "typing" signal before it auto-clears.
	TypingTimeout = 2 * time.Second

	// DefaultHistoryLimit is the page size used when a history request
	// does not specify one.
	DefaultHistoryLimit = 100

	// UnreadCacheTTL bounds the staleness of the cached unread counter.
	UnreadCacheTTL = 30 * time.Second

	// FileURLTTL is the validity window of a signed file link.
	FileURLTTL = 15 * time.Minute
)
