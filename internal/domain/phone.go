package domain

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone normalizes a phone number to E.164 format for tel: links.
//
// Returns the E.164 form and a dash-formatted display string. Ten and
// eleven digit numbers get US/Canada grouping; everything else keeps its
// original formatting for display. Empty input returns ("", "").
func NormalizePhone(phone string) (e164, display string) {
	if phone == "" {
		return "", ""
	}

	digits := nonDigits.ReplaceAllString(phone, "")
	if digits == "" {
		return "", ""
	}

	e164 = "+" + digits
	display = phone

	switch {
	case len(digits) == 10:
		// US/Canada without country code: +1-XXX-XXX-XXXX
		display = "+1-" + digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
		e164 = "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		display = "+" + digits[:1] + "-" + digits[1:4] + "-" + digits[4:7] + "-" + digits[7:]
	}

	return e164, display
}
