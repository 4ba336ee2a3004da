package rules

import "strings"

// countryAliases normalizes the handful of country spellings the ingestion
// pipeline is known to emit inconsistently.
var countryAliases = map[string]string{
	"gaza strip":                       "Gaza",
	"united states":                    "USA",
	"united states of america":         "USA",
	"u.s.":                             "USA",
	"us":                               "USA",
	"united kingdom":                   "UK",
	"u.k.":                             "UK",
	"democratic republic of the congo": "DR Congo",
	"republic of korea":                "South Korea",
	"russian federation":               "Russia",
	"myanmar (burma)":                  "Myanmar",
}

// CountryFromLocation derives a country from a location name by taking the
// trailing comma-separated segment and normalizing known aliases.
// "Rafah, Gaza Strip" yields "Gaza".
func CountryFromLocation(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	segment := location
	if i := strings.LastIndexByte(location, ','); i >= 0 {
		segment = location[i+1:]
	}
	segment = strings.TrimSpace(segment)
	if alias, ok := countryAliases[strings.ToLower(segment)]; ok {
		return alias
	}
	return segment
}

// regionKeywords maps location substrings to a coarse region. First match in
// declaration order wins; ordering matters only for locations naming several
// keywords, which essentially does not happen in practice.
var regionKeywords = []struct {
	keyword string
	region  string
}{
	{"gaza", "Middle East"},
	{"israel", "Middle East"},
	{"lebanon", "Middle East"},
	{"syria", "Middle East"},
	{"iran", "Middle East"},
	{"iraq", "Middle East"},
	{"yemen", "Middle East"},
	{"saudi", "Middle East"},
	{"ukraine", "Eastern Europe"},
	{"russia", "Eastern Europe"},
	{"belarus", "Eastern Europe"},
	{"moldova", "Eastern Europe"},
	{"poland", "Eastern Europe"},
	{"taiwan", "East Asia"},
	{"china", "East Asia"},
	{"korea", "East Asia"},
	{"japan", "East Asia"},
	{"philippines", "East Asia"},
	{"sudan", "Africa"},
	{"mali", "Africa"},
	{"niger", "Africa"},
	{"congo", "Africa"},
	{"ethiopia", "Africa"},
	{"somalia", "Africa"},
	{"sahel", "Africa"},
	{"venezuela", "Latin America"},
	{"colombia", "Latin America"},
	{"haiti", "Latin America"},
	{"mexico", "Latin America"},
}

// RegionFromLocation derives a coarse region from a location name. Returns
// the empty string when nothing matches; region conditions then simply fail
// to match, which is the intended fail-closed behavior.
func RegionFromLocation(location string) string {
	lower := strings.ToLower(location)
	for _, rk := range regionKeywords {
		if strings.Contains(lower, rk.keyword) {
			return rk.region
		}
	}
	return ""
}
