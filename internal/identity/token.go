package identity

import (
	"encoding/hex"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HeaderAuthorization carries the opaque token.
const HeaderAuthorization = "Authorization"

// ExtractToken returns the Authorization header value. The value is opaque:
// no scheme prefix is stripped, it is forwarded to the identity service as is.
func ExtractToken(header http.Header) (string, error) {
	raw := strings.TrimSpace(header.Get(HeaderAuthorization))
	if raw == "" {
		return "", ErrMissingToken
	}
	if !isVisibleASCII(raw) {
		return "", ErrMalformedToken
	}
	return raw, nil
}

// isVisibleASCII accepts printable ASCII plus space and tab, the set a
// header value must stay within to be read back as a plain string.
func isVisibleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\t' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// Fingerprint returns a short, non-reversible tag for a token so log lines
// can be correlated without recording the token itself.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
