package rules

import (
	"testing"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
)

func severityRule(min float64, sendPush bool) model.Rule {
	return model.Rule{
		ID:      "r-sev",
		Name:    "high severity",
		Enabled: true,
		Conditions: []model.Condition{
			{Field: "severity", Operator: ">=", Value: min},
		},
		SendPush: sendPush,
	}
}

func TestMatchesPushRuleEmptyConditions(t *testing.T) {
	ev := testEvent()
	rule := model.Rule{ID: "r1", Enabled: true, SendPush: true}

	if MatchesPushRule(ev, rule) {
		t.Error("push rule with no conditions must never match")
	}
	if !MatchesInboxRule(ev, rule) {
		t.Error("inbox rule with no conditions is a catch-all")
	}
}

func TestMatchesRuleDisabled(t *testing.T) {
	ev := testEvent()
	rule := severityRule(1, true)
	rule.Enabled = false

	if MatchesPushRule(ev, rule) {
		t.Error("disabled rule must not match push gate")
	}
	if MatchesInboxRule(ev, rule) {
		t.Error("disabled rule must not match inbox gate")
	}
}

func TestConditionsAreConjunctive(t *testing.T) {
	ev := testEvent() // severity 7, MILITARY
	rule := model.Rule{
		ID:      "r-and",
		Enabled: true,
		Conditions: []model.Condition{
			{Field: "severity", Operator: ">=", Value: float64(5)},
			{Field: "category", Operator: "=", Value: "CYBER"},
		},
		SendPush: true,
	}
	if MatchesPushRule(ev, rule) {
		t.Error("all conditions must hold for a rule to match")
	}

	rule.Conditions[1].Value = "MILITARY"
	if !MatchesPushRule(ev, rule) {
		t.Error("rule should match when every condition holds")
	}
}

func TestMatchesAnyIsDisjunctive(t *testing.T) {
	ev := testEvent() // severity 7
	nonMatching := severityRule(9, true)
	matching := severityRule(5, true)

	if !MatchesAnyPushRule(ev, []model.Rule{nonMatching, matching}) {
		t.Error("any matching rule should satisfy the OR")
	}
	if MatchesAnyPushRule(ev, nil) {
		t.Error("empty rule list must never match: opt-in only")
	}
	if MatchesAnyInboxRule(ev, nil) {
		t.Error("empty rule list must never match the inbox gate either")
	}
}

func TestMatchesAnyPushRuleRespectsSendPush(t *testing.T) {
	ev := testEvent()
	rule := severityRule(5, false)

	if MatchesAnyPushRule(ev, []model.Rule{rule}) {
		t.Error("a rule with send_push=false must not satisfy the push gate")
	}
	if !MatchesAnyInboxRule(ev, []model.Rule{rule}) {
		t.Error("a rule with send_push=false still gates the inbox")
	}
}

func TestShouldSendPush(t *testing.T) {
	ev := testEvent()
	noon := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	prefs := model.NotificationPreferences{
		Enabled: true,
		Rules:   []model.Rule{severityRule(5, true)},
	}
	if !ShouldSendPush(ev, prefs, noon) {
		t.Error("expected push: enabled, no quiet hours, matching rule")
	}

	prefs.Enabled = false
	if ShouldSendPush(ev, prefs, noon) {
		t.Error("disabled preferences must suppress push")
	}
	if ShouldAddToInbox(ev, prefs) {
		t.Error("disabled preferences must suppress inbox too")
	}
}

func TestShouldSendPushQuietHours(t *testing.T) {
	ev := testEvent()
	prefs := model.NotificationPreferences{
		Enabled:    true,
		Rules:      []model.Rule{severityRule(5, true)},
		QuietHours: model.QuietHours{Enabled: true, StartHour: 22, EndHour: 6},
	}

	night := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	if ShouldSendPush(ev, prefs, night) {
		t.Error("quiet hours must suppress push")
	}
	if !ShouldAddToInbox(ev, prefs) {
		t.Error("quiet hours must not suppress inbox recording")
	}

	noon := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if !ShouldSendPush(ev, prefs, noon) {
		t.Error("push should go out outside quiet hours")
	}
}

func TestShouldSendPushQuietHoursTimezone(t *testing.T) {
	ev := testEvent()
	prefs := model.NotificationPreferences{
		Enabled:    true,
		Rules:      []model.Rule{severityRule(5, true)},
		QuietHours: model.QuietHours{Enabled: true, StartHour: 22, EndHour: 6},
		Timezone:   "America/New_York",
	}

	// 03:00 UTC is 22:00 or 23:00 in New York year-round: quiet.
	utcNight := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	if ShouldSendPush(ev, prefs, utcNight) {
		t.Error("quiet hours should be evaluated in the user's zone")
	}

	// 16:00 UTC is 11:00/12:00 in New York: not quiet.
	utcDay := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	if !ShouldSendPush(ev, prefs, utcDay) {
		t.Error("daytime in the user's zone should allow push")
	}
}
