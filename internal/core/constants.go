package core

import "time"

// Category names with special meaning in the store and the query engine.
const (
	// UnsortedCategory always exists and cannot be removed.
	UnsortedCategory = "Unsorted"
	// AllCategories is the query engine's pseudo-category selecting every
	// category. It is never stored.
	AllCategories = "All"
)

// Persisted document keys.
const (
	KeyCategories = "categories"
	KeyLinks      = "links" // legacy flat list, cleared by migration
	KeyRevision   = "revision"
)

// Browser sync-storage limits, used by the "sync" quota preset.
const (
	SyncQuotaBytes        = 102400
	SyncQuotaBytesPerItem = 8192
	SyncMaxItems          = 512
)

// Timeout defaults for resolving page metadata
const (
	DefaultResolveTimeout   = 35 * time.Second
	DefaultFetchTimeout     = 10 * time.Second
	DefaultNetworkIdleDelay = 500 * time.Millisecond
)

// Resource limits
const (
	MaxPageSize = 5 * 1024 * 1024 // 5MB
	MaxIconSize = 256 * 1024
)

// HTTP client configuration
const (
	UserAgent = "Mozilla/5.0 (compatible; linksaver/1.0)"
)
