package model

// Condition fields and operators accepted by the evaluator.
const (
	FieldSeverity = "severity"
	FieldCategory = "category"
	FieldRegion   = "region"
	FieldCountry  = "country"
	FieldSources  = "sources"
	FieldTitle    = "title"
	FieldLocation = "location"

	OpGTE      = ">="
	OpLTE      = "<="
	OpEq       = "="
	OpNeq      = "!="
	OpIn       = "in"
	OpContains = "contains"
)

// Condition is a single predicate over one derived event field. Value is
// whatever JSON decoded it to: a number, a string, or a list of strings.
// Conditions are immutable once created.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Rule is a named conjunction of conditions. Rules within a preference set
// are disjunctive. A rule with SendPush=false still gates inbox delivery but
// never triggers an OS push.
type Rule struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Enabled    bool        `json:"enabled"`
	Conditions []Condition `json:"conditions"`
	SendPush   bool        `json:"send_push"`
}

// QuietHours suppresses push delivery (not inbox recording) during a local
// time window. StartHour == EndHour means always quiet while enabled.
type QuietHours struct {
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
}

// NotificationPreferences is the per-user rule set. Timezone is an IANA zone
// name used to localize quiet hours; empty means UTC.
type NotificationPreferences struct {
	Enabled    bool       `json:"enabled"`
	Rules      []Rule     `json:"rules"`
	QuietHours QuietHours `json:"quiet_hours"`
	Timezone   string     `json:"timezone,omitempty"`
}
