package contextmatch

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// pattern pairs a host/path regex with an activity label, grounded on
// the fixed service vocabulary internal/ingestion.deriveContextURL uses
// in the other direction (keywords -> service) — here the service is
// already known from the URL shape, so the activity is assigned
// directly instead of searched for.
type pattern struct {
	re       *regexp.Regexp
	activity string
}

// knownPatterns recognizes a handful of common subscription/travel/
// shopping hosts so their activity is available even when the path
// itself carries no useful tokens (e.g. a bare "netflix.com/browse").
var knownPatterns = []pattern{
	{regexp.MustCompile(`netflix\.com`), "netflix"},
	{regexp.MustCompile(`spotify\.com`), "spotify"},
	{regexp.MustCompile(`primevideo\.com|amazon\.[a-z.]+/gp/video`), "amazon prime"},
	{regexp.MustCompile(`hulu\.com`), "hulu"},
	{regexp.MustCompile(`disneyplus\.com`), "disney+"},
	{regexp.MustCompile(`youtube\.com/premium`), "youtube premium"},
	{regexp.MustCompile(`hbomax\.com|max\.com`), "hbo"},
	{regexp.MustCompile(`music\.apple\.com`), "apple music"},
	{regexp.MustCompile(`tv\.apple\.com`), "apple tv"},
	{regexp.MustCompile(`hotstar\.com`), "hotstar"},
	{regexp.MustCompile(`makemytrip\.com`), "makemytrip"},
}

// ExtractKeywords derives a space-separated keyword string from
// canonicalURL and the page title (§4.10 step 3): known-host activities
// first, then a default path-tokenizer that drops sub-3-char segments
// and pure-digit tokens, plus the title's own words.
func ExtractKeywords(canonicalURL, title string) string {
	var tokens []string

	for _, p := range knownPatterns {
		if p.re.MatchString(canonicalURL) {
			tokens = append(tokens, p.activity)
		}
	}

	if u, err := url.Parse(canonicalURL); err == nil {
		for _, seg := range strings.Split(u.Path, "/") {
			seg = strings.ToLower(strings.TrimSpace(seg))
			if isUsableToken(seg) {
				tokens = append(tokens, seg)
			}
		}
	}

	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,!?:;\"'()")
		if isUsableToken(word) {
			tokens = append(tokens, word)
		}
	}

	return strings.Join(dedupe(tokens), " ")
}

func isUsableToken(tok string) bool {
	if len(tok) < 3 {
		return false
	}
	if _, err := strconv.Atoi(tok); err == nil {
		return false
	}
	return true
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
