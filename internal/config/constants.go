package config

import "time"

const (
	// Tool-calling loop bound per chat turn
	MaxToolRounds = 5

	// Trailing history sent to providers
	MaxHistoryMessages = 10

	// Provider request timeout
	RequestTimeout = 120 * time.Second

	// Session store size cap and eviction floor
	MaxSessionStoreBytes = 10 * 1024 * 1024
	EvictionKeepSessions = 2

	// Sessions and messages retained per session store entry
	MaxStoredSessions        = 10
	MaxStoredMessagesPerChat = 50

	// File listing page size
	FileListLimit = 100

	// Signed URL lifetimes
	ThumbnailURLTTL = 15 * time.Minute
	PreviewURLTTL   = 15 * time.Minute

	// Thumbnail bounding box (longest edge, pixels)
	ThumbnailSize = 128

	// Auth token lifetime
	TokenTTL = 24 * time.Hour

	// Model catalog cache duration
	ModelCacheDuration = 1 * time.Hour

	// fetch_url tool limits
	FetchURLTimeout  = 30 * time.Second
	FetchURLMaxBytes = 2 * 1024 * 1024
	FetchURLMaxText  = 8000

	// Default models per provider
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-5"
	DefaultCerebrasModel  = "gpt-oss-120b"
	DefaultOllamaModel    = "llama3.1"
)
