package validation

import (
	"regexp"
	"time"
)

// Country codes: ISO alpha-2 or alpha-3, upper or lower case accepted.
var countryRe = regexp.MustCompile(`^[A-Za-z]{2,3}$`)

func IsValidCountryCode(code string) bool {
	return countryRe.MatchString(code)
}

// IsValidVintage bounds vintages to the span real registries accept.
func IsValidVintage(vintage int) bool {
	return vintage >= 1990 && vintage <= time.Now().Year()+1
}

// ParseDate accepts "2006-01-02" or RFC 3339.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
