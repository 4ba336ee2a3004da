package rules

import (
	"log/slog"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
)

// MatchesPushRule reports whether a rule qualifies an event for OS push.
// Disabled rules never match, and a push rule must be specific: an empty
// condition list is a non-match.
func MatchesPushRule(ev model.Event, rule model.Rule) bool {
	if !rule.Enabled || len(rule.Conditions) == 0 {
		return false
	}
	return allConditions(ev, rule)
}

// MatchesInboxRule reports whether a rule qualifies an event for the inbox.
// Identical to the push gate except that an empty condition list is a
// catch-all, so a user can opt into everything without authoring conditions.
func MatchesInboxRule(ev model.Event, rule model.Rule) bool {
	if !rule.Enabled {
		return false
	}
	return allConditions(ev, rule)
}

func allConditions(ev model.Event, rule model.Rule) bool {
	for _, c := range rule.Conditions {
		if !Evaluate(ev, c) {
			return false
		}
	}
	return true
}

// MatchesAnyPushRule ORs the push gate across a rule list. An empty list is
// always false: push is opt-in only, never a default-allow.
func MatchesAnyPushRule(ev model.Event, list []model.Rule) bool {
	for _, rule := range list {
		if rule.SendPush && MatchesPushRule(ev, rule) {
			return true
		}
	}
	return false
}

// MatchesAnyInboxRule ORs the inbox gate across a rule list.
func MatchesAnyInboxRule(ev model.Event, list []model.Rule) bool {
	for _, rule := range list {
		if MatchesInboxRule(ev, rule) {
			return true
		}
	}
	return false
}

// ShouldSendPush is the narrow gate: preferences enabled, outside quiet
// hours, and at least one enabled push rule matching.
func ShouldSendPush(ev model.Event, prefs model.NotificationPreferences, now time.Time) bool {
	if !prefs.Enabled {
		return false
	}
	if InQuietHours(prefs.QuietHours, Localize(now, prefs.Timezone)) {
		return false
	}
	return MatchesAnyPushRule(ev, prefs.Rules)
}

// ShouldAddToInbox is the broad gate. Deliberately not gated by quiet hours:
// quiet hours suppress interruption, not record-keeping.
func ShouldAddToInbox(ev model.Event, prefs model.NotificationPreferences) bool {
	return prefs.Enabled && MatchesAnyInboxRule(ev, prefs.Rules)
}

// Localize shifts now into the user's preferred zone. Unknown or empty zone
// names fall back to UTC.
func Localize(now time.Time, tz string) time.Time {
	if tz == "" {
		return now.UTC()
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("unknown preference timezone", "timezone", tz)
		return now.UTC()
	}
	return now.In(loc)
}
