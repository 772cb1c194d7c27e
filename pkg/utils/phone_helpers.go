package utils

import (
	"regexp"
	"strings"
)

var nonDigitRegexp = regexp.MustCompile(`\D`)

// NormalizePhone keeps a leading '+' and digits only.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	digitsOnly := nonDigitRegexp.ReplaceAllString(phone, "")
	if digitsOnly == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return "+" + digitsOnly
	}
	return digitsOnly
}
