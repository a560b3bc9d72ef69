package access

import (
	"fmt"
	"time"
)

// DefaultWindow is the access window applied when no override is configured.
const DefaultWindow = 8 * time.Hour

// RemainingTime computes how much of the access window is left for rec at
// the given instant. It fails closed: a record that has exited or whose
// status is Revoked or Denied is expired regardless of timestamps. The
// result is floored to whole minutes. ok is false when the window has
// lapsed.
//
// Pure function of its arguments; callers must re-evaluate on every poll
// tick rather than cache the result.
func RemainingTime(rec AccessRecord, now time.Time, window time.Duration) (remaining time.Duration, ok bool) {
	if window <= 0 {
		window = DefaultWindow
	}
	if rec.ExitTime != nil || rec.Status == StatusRevoked || rec.Status == StatusDenied {
		return 0, false
	}
	left := window - now.Sub(rec.EntryTime)
	if left <= 0 {
		return 0, false
	}
	return left.Truncate(time.Minute), true
}

// FormatRemaining renders a remaining duration as "3h 20m", or "Expired"
// when expired.
func FormatRemaining(d time.Duration, ok bool) string {
	if !ok {
		return "Expired"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
