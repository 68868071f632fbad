package validate

import (
	"strings"
	"time"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MinLen(value string, n int) bool {
	return len(value) >= n
}

// Email accepts anything with a non-empty local part and domain. Real
// verification happens server-side via the confirmation mail.
func Email(value string) bool {
	at := strings.Index(value, "@")
	return at > 0 && at < len(value)-1
}

// Age in whole years at the reference time.
func Age(birthdate, now time.Time) int {
	years := now.Year() - birthdate.Year()
	anniversary := birthdate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
