package payment

import (
	"regexp"
	"strings"

	"dating-subscription-payments/internal/domain"
)

var (
	nonDigits   = regexp.MustCompile(`[^0-9]`)
	kenyaMSISDN = regexp.MustCompile(`^254\d{9}$`)
)

// normalizeKenyanMSISDN resolves user input ("0712 345 678", "+254712345678",
// "712345678") to the canonical 254XXXXXXXXX shape both providers key on.
func normalizeKenyanMSISDN(raw string) (string, error) {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")
	switch {
	case strings.HasPrefix(s, "254"):
		// already has the country code
	case strings.HasPrefix(s, "0"):
		s = "254" + s[1:]
	default:
		s = "254" + s
	}
	if !kenyaMSISDN.MatchString(s) {
		return "", domain.ErrInvalidPhoneNumber
	}
	return s, nil
}
