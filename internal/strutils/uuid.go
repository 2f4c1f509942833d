package strutils

import (
	"fmt"
	"strings"
	"unicode"
)

const VALID_HEX_DIGITS = "0123456789abcdefABCDEF"

const STRIPPED_UUID_LENGTH = 32

// NormalizeUUID strips dashes and lowercases the uuid. User ids are stored
// and compared in this form everywhere.
func NormalizeUUID(uuid string) (string, error) {
	var normalized strings.Builder
	normalized.Grow(STRIPPED_UUID_LENGTH)

	for _, char := range uuid {
		if char == '-' {
			continue
		}
		if !strings.ContainsRune(VALID_HEX_DIGITS, char) {
			return "", fmt.Errorf("invalid character in UUID. input: '%s'", uuid)
		}
		if _, err := normalized.WriteRune(unicode.ToLower(char)); err != nil {
			return "", fmt.Errorf("failed writing to stringbuilder: %w", err)
		}
	}

	if normalized.Len() != STRIPPED_UUID_LENGTH {
		return "", fmt.Errorf("normalized UUID has incorrect length. input: '%s'", uuid)
	}
	return normalized.String(), nil
}

// UUIDIsNormalized reports whether uuid is already in the form produced by
// NormalizeUUID.
func UUIDIsNormalized(uuid string) bool {
	if len(uuid) != STRIPPED_UUID_LENGTH {
		return false
	}
	for _, char := range uuid {
		if !strings.ContainsRune("0123456789abcdef", char) {
			return false
		}
	}
	return true
}
