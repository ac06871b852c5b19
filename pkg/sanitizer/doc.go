// Package sanitizer normalizes user input before validation and storage.
//
// All functions are idempotent and never fail: malformed input is returned
// in a form the validator will reject, or as an empty value.
//
// Normalization includes:
//   - Free text: collapse whitespace, trim
//   - Phone numbers: E.164 via libphonenumber, US region by default
//   - Promo codes: uppercase, no whitespace
//   - Vehicles: uppercase plates and VINs, lowercase vehicle types
//   - Slices: drop empties and duplicates after normalization
package sanitizer
