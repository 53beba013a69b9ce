package contextmatch

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	idPattern         = regexp.MustCompile(`(?i)id[^0-9]{0,3}(\d+)`)
	confidencePattern = regexp.MustCompile(`(0?\.\d+|1(?:\.0+)?)`)
)

// parseValidateReply extracts a candidate id and confidence from the
// LLM's free-text validate reply, or reports ok=false on "none" or any
// unparseable shape.
func parseValidateReply(reply string) (id int64, confidence float64, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(reply))
	if lower == "" || strings.Contains(lower, "none") {
		return 0, 0, false
	}

	m := idPattern.FindStringSubmatch(lower)
	if m == nil {
		return 0, 0, false
	}
	parsed, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	confidence = 0.6
	if cm := confidencePattern.FindStringSubmatch(lower); cm != nil {
		if v, err := strconv.ParseFloat(cm[1], 64); err == nil {
			confidence = v
		}
	}
	if confidence > 1 {
		confidence = 1
	}
	return parsed, confidence, true
}
