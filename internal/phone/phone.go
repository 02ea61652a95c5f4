// Package phone validates and normalizes destination numbers before they
// are handed to the SMS platform.
package phone

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidNumber is returned when a destination cannot be parsed or is
// not a valid phone number.
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalize parses and validates a destination using libphonenumber and
// returns it in E.164 format. The input must carry a '+' country prefix;
// no default region is assumed.
func Normalize(input string) (string, error) {
	// Pre-screen: only ASCII digits, one '+', and common formatting
	// characters. Rejects non-ASCII digits before they reach the parser.
	plusCount := 0
	for _, r := range input {
		switch {
		case r == '+':
			plusCount++
		case r >= '0' && r <= '9', r == ' ', r == '-', r == '(', r == ')', r == '.':
			// ok
		default:
			return "", ErrInvalidNumber
		}
	}
	if plusCount != 1 {
		return "", ErrInvalidNumber
	}

	num, err := phonenumbers.Parse(input, "")
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Country returns the ISO 3166-1 alpha-2 country code for an E.164
// number, or "" if parsing fails.
func Country(number string) string {
	num, err := phonenumbers.Parse(number, "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(num)
}
