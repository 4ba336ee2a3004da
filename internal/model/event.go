package model

// Event categories as produced by the ingestion pipeline.
const (
	CategoryMilitary    = "MILITARY"
	CategoryDiplomacy   = "DIPLOMACY"
	CategoryEconomy     = "ECONOMY"
	CategoryCivilUnrest = "CIVIL_UNREST"
	CategoryDisaster    = "DISASTER"
	CategoryCyber       = "CYBER"
	CategoryTerrorism   = "TERRORISM"
	CategoryOther       = "OTHER"
)

// Event is the read-only projection of an ingested event used for rule
// matching. Region may be empty; condition evaluation derives it from
// LocationName when needed.
type Event struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	LocationName string `json:"location_name"`
	Region       string `json:"region"`
	Severity     int    `json:"severity"`
	SourceCount  int    `json:"source_count"`
}

// NotificationPayload is what the ingestion process hands to Dispatch and
// what gets serialized as the push message body.
type NotificationPayload struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	URL          string `json:"url,omitempty"`
	ID           string `json:"id"`
	Severity     int    `json:"severity"`
	Category     string `json:"category"`
	Region       string `json:"region,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	SourcesCount int    `json:"sources_count,omitempty"`
	Icon         string `json:"icon,omitempty"`
	Tag          string `json:"tag,omitempty"`
	Critical     bool   `json:"critical,omitempty"`
}

// Event builds the matching projection from a payload.
func (p NotificationPayload) Event() Event {
	return Event{
		ID:           p.ID,
		Title:        p.Title,
		Category:     p.Category,
		LocationName: p.LocationName,
		Region:       p.Region,
		Severity:     p.Severity,
		SourceCount:  p.SourcesCount,
	}
}
