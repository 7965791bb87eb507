// Package utils provides utility functions for the application.
package utils

import (
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

func ToPtr[T any](v T) *T {
	return &v
}

// SizeFormat renders a byte count for user-facing messages (e.g. "1.0 MiB")
func SizeFormat(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// ClampInt bounds v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// NormalizeExtensions lowercases, trims and de-duplicates extensions, keeping
// only those the service can store.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(e, ".")))
		if e == "" || !slices.Contains(AllowedImageExtensions, e) || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}
