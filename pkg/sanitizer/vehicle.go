package sanitizer

import (
	"strings"
	"unicode"
)

func NormalizePlate(plate string) string {
	return strings.ToUpper(TrimAndNormalize(plate))
}

// NormalizeVIN uppercases and strips separators. VINs never contain I, O or Q,
// which the validator enforces via its length and charset rules.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, vin))
}

func NormalizeVehicleType(t string) string {
	return NormalizeKeyword(t)
}
