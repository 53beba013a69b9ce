package contextmatch

import "testing"

func TestCanonicalize_StripsTrackingParamsAndFragment(t *testing.T) {
	t.Parallel()

	got := Canonicalize("https://example.com/plans?utm_source=ad&utm_campaign=x&ref=abc&plan=pro#section-2")
	want := "https://example.com/plans?plan=pro"
	if got != want {
		t.Fatalf("Canonicalize() = %q, want %q", got, want)
	}
}

func TestCanonicalize_FallsBackOnMalformedURL(t *testing.T) {
	t.Parallel()

	got := Canonicalize("  NOT A URL ")
	if got != "not a url" {
		t.Fatalf("Canonicalize() = %q", got)
	}
}

func TestExtractKeywords_DropsShortAndNumericSegments(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("https://www.netflix.com/browse/genre/83", "Netflix - Browse")
	if got == "" {
		t.Fatal("expected non-empty keywords")
	}
	for _, tok := range []string{"83", "ge"} {
		if containsToken(got, tok) {
			t.Fatalf("keywords %q should not contain short/numeric token %q", got, tok)
		}
	}
	if !containsToken(got, "netflix") {
		t.Fatalf("keywords %q should contain known-host activity", got)
	}
}

func containsToken(s, tok string) bool {
	for _, f := range splitFields(s) {
		if f == tok {
			return true
		}
	}
	return false
}

func splitFields(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
