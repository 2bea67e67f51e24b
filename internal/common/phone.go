package common

import "strings"

// DigitsOnly strips every non-digit rune from a phone number so that stored
// and supplied guest phone values compare formatting-insensitively.
func DigitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// significantPhoneDigits is the length of a subscriber number without the
// country code.
const significantPhoneDigits = 10

// PhoneDigitsEqual reports whether two phone numbers carry the same digits
// regardless of formatting. A leading country code on either side is
// ignored when both numbers are long enough to carry a full subscriber
// number. Two empty values never match.
func PhoneDigitsEqual(a, b string) bool {
	da, db := DigitsOnly(a), DigitsOnly(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	if len(da) >= significantPhoneDigits && len(db) >= significantPhoneDigits {
		return da[len(da)-significantPhoneDigits:] == db[len(db)-significantPhoneDigits:]
	}
	return false
}
