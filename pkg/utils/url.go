package utils

import (
	"net/url"
	"strings"
)

const uriChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789:/?#[]@!$&'()*+,;=.-_~%"

// IsHTTPSURI reports whether s is an absolute https URI with a host.
// Characters outside the RFC 3986 set and broken percent-escapes fail.
func IsHTTPSURI(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !strings.ContainsRune(uriChars, r) {
			return false
		}
	}

	if !validEscapes(s) {
		return false
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	if !strings.EqualFold(u.Scheme, "https") || u.Opaque != "" {
		return false
	}

	return u.Hostname() != ""
}

func validEscapes(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHexDigit(s[i+1]) || !isHexDigit(s[i+2]) {
			return false
		}
		i += 2
	}
	return true
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
