package common

import "strings"

// WipeByteArray overwrites b with zeros. Used for passwords read from the
// terminal once they have been sent. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// BearerToken formats the Authorization header value for token.
func BearerToken(token string) string {
	return BearerScheme + " " + token
}

// ParseBearer extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func ParseBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
