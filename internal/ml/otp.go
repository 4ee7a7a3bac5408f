package ml

import (
	"regexp"
	"strings"
)

// otpPatterns are tried in order; the first capture wins. The final bare
// six-digit pattern also matches non-OTP numbers such as amounts or PINs.
var otpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b([0-9]{4,8})\b.*(?:is|as).*(?:OTP|one.time.password|verification|code)`),
	regexp.MustCompile(`(?i)(?:OTP|one.time.password|verification|code).*\b([0-9]{4,8})\b`),
	regexp.MustCompile(`\b([0-9]{6})\b`),
}

// senderHeaderPattern matches a "SENDER:" prefix at the start of a message.
var senderHeaderPattern = regexp.MustCompile(`(?i)^([A-Z0-9-]+):`)

// ExtractOTP returns the one-time code carried by text, if any.
func ExtractOTP(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, pattern := range otpPatterns {
		if m := pattern.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// ExtractSenderHeader returns the sender ID from a "SENDER: ..." prefix.
func ExtractSenderHeader(text string) (string, bool) {
	m := senderHeaderPattern.FindStringSubmatch(text)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}
