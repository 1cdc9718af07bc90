package didresolver

import (
	"net/url"
	"strings"

	dErrors "cardex/pkg/domain-errors"
)

// DeriveWebDID builds a did:web identifier from a caller-supplied domain and
// optional path segments. Sanitization makes derivation idempotent: scheme
// prefixes are stripped, slashes trimmed, the domain lowercased and each
// path segment percent-encoded.
func DeriveWebDID(domain string, path []string) (string, error) {
	sanitized := sanitizeDomain(domain)
	if sanitized == "" {
		return "", dErrors.New(dErrors.CodeInvalidData, "did:web domain is empty after sanitization")
	}

	parts := []string{sanitized}
	for _, segment := range path {
		cleaned := strings.Trim(segment, "/")
		if cleaned == "" {
			continue
		}
		parts = append(parts, url.PathEscape(cleaned))
	}
	return "did:web:" + strings.Join(parts, ":"), nil
}

func sanitizeDomain(domain string) string {
	d := strings.TrimSpace(domain)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(strings.ToLower(d), scheme) {
			d = d[len(scheme):]
			break
		}
	}
	d = strings.Trim(d, "/")
	// Percent-encode the port separator so the DID stays within the allowed
	// character set.
	d = strings.ReplaceAll(d, ":", "%3A")
	return strings.ToLower(d)
}
