// luhn.go — credit-card checksum, adapted from the teacher's
// internal/redaction.luhnValid to cut false positives on the credit-card
// rule (a bare 16-digit run is common in IDs and hashes; Luhn narrows it to
// plausible card numbers).
package redact

import "strings"

func luhnValid(number string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if alt {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alt = !alt
	}
	return sum%10 == 0
}
