package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Full Detail  ", want: "Full Detail"},
		{name: "multiple spaces between words", input: "Full    Detail", want: "Full Detail"},
		{name: "tabs and newlines", input: "Full\t\nDetail", want: "Full Detail"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n  ", want: ""},
		{name: "preserve special characters", input: " Café & Spa™ ", want: "Café & Spa™"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := TrimAndNormalize(got); again != got {
				t.Errorf("TrimAndNormalize is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeFreeText(t *testing.T) {
	got := NormalizeFreeText("  gate code  1234 \n\n  dog in   yard  ")
	want := "gate code 1234\n\ndog in yard"
	if got != want {
		t.Errorf("NormalizeFreeText() = %q, want %q", got, want)
	}
}

func TestNormalizePromoCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "save20", want: "SAVE20"},
		{input: " Save 20 ", want: "SAVE20"},
		{input: "SUMMER\t2026", want: "SUMMER2026"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizePromoCode(tt.input); got != tt.want {
				t.Errorf("NormalizePromoCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Dana@Example.COM "); got != "dana@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestVehicleNormalizers(t *testing.T) {
	if got := NormalizePlate(" abc  123 "); got != "ABC 123" {
		t.Errorf("NormalizePlate() = %q", got)
	}
	if got := NormalizeVIN("1hg-cm82633 a004352"); got != "1HGCM82633A004352" {
		t.Errorf("NormalizeVIN() = %q", got)
	}
	if got := NormalizeVehicleType(" SUV "); got != "suv" {
		t.Errorf("NormalizeVehicleType() = %q", got)
	}
}
