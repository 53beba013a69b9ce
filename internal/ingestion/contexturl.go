package ingestion

import "strings"

// knownContextServices is the service/location vocabulary consulted to
// derive context_url from a proposed event's keywords (§4.6 step 7).
// Mirrors the subscription/recommendation vocabulary internal/heuristics
// recognizes during Analyze, kept separate since context_url derivation
// is a store/ingestion concern, not a classification one.
var knownContextServices = []string{
	"netflix", "spotify", "prime", "amazon prime", "hulu", "disney+", "disney plus",
	"youtube premium", "hbo", "apple music", "apple tv", "hotstar",
	"goa", "zantyes", "makemytrip",
}

// deriveContextURL returns the first known service/location entry that
// a lowercased keyword equals or contains (the vocabulary entry itself,
// not the keyword), falling back to the lowercased location, or "" if
// neither yields a match.
func deriveContextURL(keywords, location string) string {
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		for _, svc := range knownContextServices {
			if kw == svc || strings.Contains(kw, svc) {
				return svc
			}
		}
	}
	if location != "" {
		return strings.ToLower(strings.TrimSpace(location))
	}
	return ""
}
