package utils

import "regexp"

var prefixedHexPattern = regexp.MustCompile(`(?i)^0x[1-9a-f][0-9a-f]*$`)

// IsPrefixedFormattedHexString reports whether s is a 0x-prefixed hex
// number with no leading zeros. Zero itself is rejected.
func IsPrefixedFormattedHexString(s string) bool {
	return prefixedHexPattern.MatchString(s)
}
