package locale

import (
	"strings"
)

const (
	DefaultRegion = "US"
)

type Country struct {
	Code          string   // ISO 3166-1 alpha-2 country code, also the phone region
	Name          string   // Human-readable country name
	PhonePrefixes []string // Calling code prefixes (e.g., ["+91", "91"])
	Timezones     []string // IANA zones a business in this country is likely to run in
}

var (
	Countries = map[string]Country{
		"US": {
			Code:          "US",
			Name:          "United States",
			PhonePrefixes: []string{"+1", "1"},
			Timezones: []string{
				"America/New_York", "America/Chicago", "America/Denver", "America/Phoenix",
				"America/Los_Angeles", "America/Anchorage", "Pacific/Honolulu",
				"US/Eastern", "US/Central", "US/Mountain", "US/Pacific",
			},
		},
		"CA": {
			Code:          "CA",
			Name:          "Canada",
			PhonePrefixes: []string{"+1", "1"},
			Timezones: []string{
				"America/Toronto", "America/Vancouver", "America/Edmonton",
				"America/Winnipeg", "America/Halifax", "America/St_Johns",
			},
		},
		"IN": {
			Code:          "IN",
			Name:          "India",
			PhonePrefixes: []string{"+91", "91"},
			Timezones:     []string{"Asia/Kolkata", "Asia/Calcutta"},
		},
		"GB": {
			Code:          "GB",
			Name:          "United Kingdom",
			PhonePrefixes: []string{"+44", "44"},
			Timezones:     []string{"Europe/London", "GB"},
		},
		"AU": {
			Code:          "AU",
			Name:          "Australia",
			PhonePrefixes: []string{"+61", "61"},
			Timezones: []string{
				"Australia/Sydney", "Australia/Melbourne", "Australia/Brisbane",
				"Australia/Perth", "Australia/Adelaide",
			},
		},
	}
)

// DetectRegion maps an IANA zone to the country whose phone numbering
// applies to local customers. Unknown zones fall back to DefaultRegion.
func DetectRegion(tz string) string {
	for code, country := range Countries {
		for _, z := range country.Timezones {
			if strings.EqualFold(tz, z) {
				return code
			}
		}
	}
	return DefaultRegion
}
