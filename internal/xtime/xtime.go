// Package xtime centralizes the small set of clock operations AEX needs:
// second/millisecond timestamps and TTL expiry checks. Kept as a thin
// wrapper (grounded on original_source/src/time.rs's SystemTime helper) so
// that every "now" in the connection manager and session-key manager reads
// the same clock and the same saturating-subtraction rule.
package xtime

import "time"

// NowSeconds returns the current Unix time in whole seconds.
func NowSeconds() int64 {
	return time.Now().Unix()
}

// NowMillis returns the current Unix time in whole milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// IsFuture reports whether seconds (a Unix timestamp) is later than now.
func IsFuture(seconds int64) bool {
	return NowSeconds() < seconds
}

// IsExpired reports whether fromMillis is at least ttlMillis in the past,
// saturating instead of overflowing if the clock moved backwards.
func IsExpired(fromMillis, ttlMillis int64) bool {
	elapsed := NowMillis() - fromMillis
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed >= ttlMillis
}

// SaturatingSub returns a-b, floored at 0, matching Rust's saturating_sub
// used throughout the original connection-manager uptime accounting.
func SaturatingSub(a, b int64) int64 {
	if a < b {
		return 0
	}
	return a - b
}
