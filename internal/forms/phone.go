package forms

import "fmt"

// NormalizePhone strips everything but digits and keeps the last ten, so
// "+7 (999) 123-45-67" and "89991234567" normalize to the same value.
func NormalizePhone(raw string) string {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return string(digits)
}

// FormatPhone renders a normalized ten-digit number for display.
func FormatPhone(phone string) string {
	if len(phone) != 10 {
		return phone
	}
	return fmt.Sprintf("+7 (%s) %s-%s-%s", phone[:3], phone[3:6], phone[6:8], phone[8:])
}
