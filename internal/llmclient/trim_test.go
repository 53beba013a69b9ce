package llmclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimHistoryKeepsAtMostLastFiveTurns(t *testing.T) {
	var turns []ChatTurn
	for i := 0; i < 9; i++ {
		turns = append(turns, ChatTurn{Role: "user", Content: "msg"})
	}

	trimmed := TrimHistory("", turns)
	assert.LessOrEqual(t, len(trimmed), maxHistoryTurns)
}

func TestTrimHistoryPrependsSystemPrompt(t *testing.T) {
	turns := []ChatTurn{{Role: "user", Content: "hi"}}
	trimmed := TrimHistory("be concise", turns)

	require.NotEmpty(t, trimmed)
	assert.Equal(t, "system", trimmed[0].Role)
	assert.Equal(t, "be concise", trimmed[0].Content)
}

func TestTrimHistoryDropsOldestWhenOverTokenBudget(t *testing.T) {
	big := strings.Repeat("word ", 2000)
	turns := []ChatTurn{
		{Role: "user", Content: big},
		{Role: "assistant", Content: big},
		{Role: "user", Content: "final short message"},
	}

	trimmed := TrimHistory("system", turns)
	assert.Less(t, len(trimmed), len(turns)+1)
	assert.Equal(t, "final short message", trimmed[len(trimmed)-1].Content)
}
