package utils

import (
	"time"
)

// Upload limits
const (
	// MinMaxFileSize is the floor applied to any configured max file size (1KB)
	MinMaxFileSize = 1024

	// MinImageBytes is the smallest payload accepted as a real image
	MinImageBytes = 100

	// MaxResolutionBound caps every configured width/height bound
	MaxResolutionBound = 10000

	// ContentScanBytes is how much of the payload is scanned for script signatures
	ContentScanBytes = 1024

	// DefaultMaxFileSize is used when neither the product nor the defaults set one (5MB)
	DefaultMaxFileSize = 5 * 1024 * 1024

	// DefaultImageCount is the number of images a product requires by default
	DefaultImageCount = 9

	// MaxImageCount is the largest configurable image count
	MaxImageCount = 50

	// MaxPreviewPixels caps the canvas a preview will decode (40 MP)
	MaxPreviewPixels = 40_000_000
)

// Retention and audit constants
const (
	// UploadRetentionPeriod is how long an unreferenced upload is kept (48 hours)
	UploadRetentionPeriod = 48 * time.Hour

	// UploadCleanupInterval is how often the retention sweep runs
	UploadCleanupInterval = 24 * time.Hour

	// UploadLogCap bounds the audit log to the most recent entries
	UploadLogCap = 1000

	// GuestThrottleWindow is the minimum gap between two guest submissions from one IP
	GuestThrottleWindow = 5 * time.Second

	// CartItemTTL is how long an unordered cart item stays active
	CartItemTTL = 48 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// UploadFilePrefix starts every managed upload filename
const UploadFilePrefix = "prod-"

// AllowedImageExtensions lists every extension the service can ever store
var AllowedImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
