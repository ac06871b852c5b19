package locale

import (
	"testing"
)

func TestDetectRegion(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		want     string
	}{
		{
			name:     "New York",
			timezone: "America/New_York",
			want:     "US",
		},
		{
			name:     "legacy US alias",
			timezone: "US/Pacific",
			want:     "US",
		},
		{
			name:     "Toronto",
			timezone: "America/Toronto",
			want:     "CA",
		},
		{
			name:     "Kolkata",
			timezone: "Asia/Kolkata",
			want:     "IN",
		},
		{
			name:     "case insensitive",
			timezone: "europe/london",
			want:     "GB",
		},
		{
			name:     "unknown zone",
			timezone: "Asia/Tokyo",
			want:     DefaultRegion,
		},
		{
			name:     "UTC",
			timezone: "UTC",
			want:     DefaultRegion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectRegion(tt.timezone); got != tt.want {
				t.Errorf("DetectRegion(%q) = %q, want %q", tt.timezone, got, tt.want)
			}
		})
	}
}

func TestCountriesAreConsistent(t *testing.T) {
	seen := map[string]string{}
	for code, country := range Countries {
		if country.Code != code {
			t.Errorf("country %q has code %q", code, country.Code)
		}
		for _, z := range country.Timezones {
			if other, ok := seen[z]; ok {
				t.Errorf("zone %q listed for both %s and %s", z, other, code)
			}
			seen[z] = code
		}
	}
}
