package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var supportedRegions = []string{
	"US",
	"CA",
}

// NormalizePhone returns the E.164 form, or the trimmed input when it cannot
// be parsed so that validation reports it.
func NormalizePhone(phone string) string {
	return NormalizePhoneInRegion(phone, "")
}

// NormalizePhoneInRegion reads national numbers as belonging to region
// first, then to the supported regions.
func NormalizePhoneInRegion(phone, region string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	regions := supportedRegions
	if region != "" {
		regions = append([]string{region}, supportedRegions...)
	}

	for _, r := range regions {
		parsedNumber, err := phonenumbers.Parse(phone, r)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return phone
}
