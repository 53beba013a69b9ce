package contextmatch

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query keys stripped during canonicalization
// (§4.10 step 1).
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true,
	"ref": true, "fbclid": true, "gclid": true,
}

// Canonicalize strips tracking query parameters and the fragment from
// raw, returning a stable string suitable as a cache key and a store
// lookup value. Malformed URLs are returned trimmed and lowercased as a
// best-effort fallback rather than an error, since a context check must
// never fail outright on a bad URL from the client.
func Canonicalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}

	u.Fragment = ""

	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if trackingParams[lower] || strings.HasPrefix(lower, "utm_") {
			q.Del(key)
		}
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		for _, v := range q[k] {
			values.Add(k, v)
		}
	}
	u.RawQuery = values.Encode()

	return u.String()
}
