package people

import (
	"strings"
)

// NormalizePhone converts a raw phone number into an E.164-like form.
// 11 digits starting with "1" and bare 10-digit numbers are treated as
// North American; anything else keeps its digits with a "+" prefix.
// The function is idempotent: normalizing an already-normalized number
// returns it unchanged.
func NormalizePhone(phone string) string {
	if phone == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	case len(digits) == 10:
		return "+1" + digits
	}

	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + digits
}
