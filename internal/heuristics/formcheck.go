package heuristics

import "strings"

// FormCheckResult is the templated mismatch warning rendered by
// POST /api/form-check (§6): a form field the user is filling in
// disagrees with a value Argus remembers from a prior message.
type FormCheckResult struct {
	Mismatch   bool   `json:"mismatch"`
	Entered    string `json:"entered,omitempty"`
	Remembered string `json:"remembered,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// CheckForm compares fieldValue (parsed, if the caller extracted a
// normalized value) against remembered, the value surfaced from the
// candidate event whose keywords matched fieldType. A byte-identical
// or case-insensitively-identical value is not a mismatch, nor is one
// whose every token also appears in remembered; anything else,
// including a partial token overlap, is reported as one.
func CheckForm(fieldType, fieldValue, parsed, remembered string) FormCheckResult {
	entered := parsed
	if entered == "" {
		entered = fieldValue
	}
	if remembered == "" {
		return FormCheckResult{Mismatch: false}
	}

	normEntered := strings.ToLower(strings.TrimSpace(entered))
	normRemembered := strings.ToLower(strings.TrimSpace(remembered))
	if normEntered == normRemembered {
		return FormCheckResult{Mismatch: false}
	}

	enteredTokens := tokenSet(normEntered)
	rememberedTokens := tokenSet(normRemembered)
	if len(enteredTokens) > 0 && overlapCount(enteredTokens, rememberedTokens) == len(enteredTokens) {
		return FormCheckResult{Mismatch: false}
	}

	return FormCheckResult{
		Mismatch:   true,
		Entered:    entered,
		Remembered: remembered,
		Suggestion: remembered,
	}
}
