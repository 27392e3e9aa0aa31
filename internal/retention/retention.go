package retention

import "time"

// Every upload lives for exactly one window; there is no per-file
// override.
const (
	Window       = 24 * time.Hour
	WindowMillis = int64(Window / time.Millisecond)
)

// Expired reports whether an upload made at uploadedAtMillis has passed
// the retention window as of nowMillis. The comparison is strictly
// greater-than: an entry exactly at the boundary is still live. Integer
// arithmetic only, so there is no float drift near the boundary.
func Expired(uploadedAtMillis, nowMillis int64) bool {
	return nowMillis-uploadedAtMillis > WindowMillis
}

// ExpiresAt returns the instant (unix millis) after which the upload
// becomes eligible for deletion.
func ExpiresAt(uploadedAtMillis int64) int64 {
	return uploadedAtMillis + WindowMillis
}
