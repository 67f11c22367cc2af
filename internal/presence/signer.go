package presence

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
)

// Param is one query parameter. Order is significant: the service recomputes
// the checksum over the raw query string exactly as sent, so the signed string
// and the request URL must be built from the same ordered sequence.
type Param struct {
	Key   string
	Value string
}

// EncodeParams builds the raw query string for an ordered parameter list.
func EncodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Signer builds request checksums for the external conferencing service.
type Signer struct {
	secret string
}

// NewSigner creates a signer with the service's shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex SHA-1 digest of action + rawQuery + secret. The service
// authenticates by recomputing the same digest; any encoding mismatch shows up
// as an authentication failure on the service side, not as a local error.
func (s *Signer) Sign(action string, params []Param) string {
	sum := sha1.Sum([]byte(action + EncodeParams(params) + s.secret))
	return hex.EncodeToString(sum[:])
}

// SignedQuery returns the full query string with the checksum appended as the
// final parameter.
func (s *Signer) SignedQuery(action string, params []Param) string {
	raw := EncodeParams(params)
	checksum := s.Sign(action, params)
	if raw == "" {
		return "checksum=" + checksum
	}
	return raw + "&checksum=" + checksum
}
