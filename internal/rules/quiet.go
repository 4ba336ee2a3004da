package rules

import (
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
)

// InQuietHours reports whether now falls inside the half-open suppression
// window [StartHour, EndHour). A window with StartHour >= EndHour wraps
// midnight — the common case for quiet hours like 22:00–07:00 — and
// StartHour == EndHour means always quiet while enabled. The caller is
// responsible for localizing now first.
func InQuietHours(qh model.QuietHours, now time.Time) bool {
	if !qh.Enabled {
		return false
	}
	hour := now.Hour()
	if qh.StartHour < qh.EndHour {
		return hour >= qh.StartHour && hour < qh.EndHour
	}
	return hour >= qh.StartHour || hour < qh.EndHour
}
