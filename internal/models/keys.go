package models

import "strings"

// UnknownKey is the sentinel every empty or absent identifier normalizes to.
const UnknownKey = "unknown"

// NormalizeSenderID strips everything but ASCII letters and digits and
// upper-cases the rest. The sentinel is returned in its lowercase form so
// that normalizing twice yields the same key.
func NormalizeSenderID(senderID string) string {
	var b strings.Builder
	b.Grow(len(senderID))
	for i := 0; i < len(senderID); i++ {
		c := senderID[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		}
	}
	key := b.String()
	if key == "" || key == "UNKNOWN" {
		return UnknownKey
	}
	return key
}

// NormalizePhoneNumber keeps only the digits of a phone number.
func NormalizePhoneNumber(phoneNumber string) string {
	if phoneNumber == UnknownKey {
		return UnknownKey
	}
	var b strings.Builder
	b.Grow(len(phoneNumber))
	for i := 0; i < len(phoneNumber); i++ {
		if c := phoneNumber[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return UnknownKey
	}
	return b.String()
}

// RatingKey identifies the (user, number) pair the rating cooldown applies to.
func RatingKey(userID, normalizedNumber string) string {
	return userID + ":" + normalizedNumber
}
