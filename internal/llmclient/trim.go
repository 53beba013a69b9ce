package llmclient

import (
	"github.com/pkoukk/tiktoken-go"
)

// encodingName matches the cl100k_base encoding used by the
// gpt-3.5/gpt-4 family; close enough for budget estimation against any
// OpenAI-compatible backend.
const encodingName = "cl100k_base"

// maxHistoryTurns bounds the chat history sent upstream regardless of
// token budget, per the "last 5 messages" context rule.
const maxHistoryTurns = 5

// maxPromptTokens is the soft ceiling before TrimHistory starts
// dropping the oldest turns beyond the last-5 rule.
const maxPromptTokens = 3000

// TrimHistory keeps at most the last maxHistoryTurns turns, then drops
// further from the front if the remaining turns still exceed
// maxPromptTokens. system is always kept first when non-empty.
func TrimHistory(system string, turns []ChatTurn) []ChatTurn {
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}

	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return withSystem(system, turns)
	}

	for len(turns) > 1 && countTokens(enc, system, turns) > maxPromptTokens {
		turns = turns[1:]
	}

	return withSystem(system, turns)
}

func withSystem(system string, turns []ChatTurn) []ChatTurn {
	if system == "" {
		return turns
	}
	out := make([]ChatTurn, 0, len(turns)+1)
	out = append(out, ChatTurn{Role: "system", Content: system})
	out = append(out, turns...)
	return out
}

func countTokens(enc *tiktoken.Tiktoken, system string, turns []ChatTurn) int {
	total := len(enc.Encode(system, nil, nil))
	for _, t := range turns {
		total += len(enc.Encode(t.Content, nil, nil))
	}
	return total
}
