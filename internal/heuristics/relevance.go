package heuristics

import (
	"strings"

	"github.com/argus-assistant/argus/internal/model"
)

// MaxRelevanceConfidence is the confidence ceiling for
// ValidateRelevance (§4.4), lower than Analyze's because context-match
// validation has weaker signal than direct message extraction.
const MaxRelevanceConfidence = 0.6

// ValidateRelevance decides whether extracted page keywords are
// relevant to any candidate event, by requiring either >=30% token
// overlap or at least 2 shared tokens, whichever is reached first.
func ValidateRelevance(pageKeywords string, candidates []model.CandidateEvent) (*model.CandidateEvent, float64) {
	pageTokens := tokenSet(strings.ToLower(pageKeywords))
	if len(pageTokens) == 0 {
		return nil, 0
	}

	var best *model.CandidateEvent
	bestRatio := 0.0

	for i := range candidates {
		c := &candidates[i]
		candTokens := tokenSet(strings.ToLower(c.Title + " " + c.Keywords))
		if len(candTokens) == 0 {
			continue
		}

		shared := overlapCount(pageTokens, candTokens)
		ratio := float64(shared) / float64(len(pageTokens))

		relevant := ratio >= 0.3 || shared >= 2
		if !relevant {
			continue
		}
		if ratio > bestRatio {
			bestRatio = ratio
			best = c
		}
	}

	if best == nil {
		return nil, 0
	}

	confidence := bestRatio * MaxRelevanceConfidence
	if confidence > MaxRelevanceConfidence {
		confidence = MaxRelevanceConfidence
	}
	return best, confidence
}
