package extract

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped by Sanitize. They carry
// analytics state, not content identity.
var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"mc_cid":   true,
	"mc_eid":   true,
	"igshid":   true,
	"mkt_tok":  true,
	"_hsenc":   true,
	"_hsmi":    true,
	"oly_enc":  true,
	"oly_anon": true,
}

// Absolutize resolves a possibly relative URL against a base URL.
func Absolutize(rawURL, baseURL string) string {
	if rawURL == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return rawURL
	}
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	return base.ResolveReference(ref).String()
}

// Sanitize normalizes a URL for storage and comparison: lowercased scheme
// and host, no fragment, no tracking parameters. Unparseable input is
// returned unchanged.
func Sanitize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		query := u.Query()
		for name := range query {
			if trackingParams[name] || strings.HasPrefix(name, "utm_") {
				query.Del(name)
			}
		}
		u.RawQuery = query.Encode()
	}

	return u.String()
}
