package heuristics

import (
	"testing"
	"time"

	"github.com/argus-assistant/argus/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents(now time.Time) []model.Event {
	todayTS := now.Unix()
	nextWeekTS := now.AddDate(0, 0, 10).Unix()
	return []model.Event{
		{ID: 1, Title: "Dentist appointment", Keywords: "dentist,checkup", EventTime: &todayTS},
		{ID: 2, Title: "Netflix subscription renews", Keywords: "netflix,subscription", EventTime: &nextWeekTS},
	}
}

func TestChatNoMatchReturnsGenericReply(t *testing.T) {
	now := time.Now()
	resp := Chat("what is the weather", now, sampleEvents(now))
	assert.Empty(t, resp.Matches)
	assert.NotEmpty(t, resp.Reply)
}

func TestChatMatchesByTokenOverlap(t *testing.T) {
	now := time.Now()
	resp := Chat("when is my dentist appointment", now, sampleEvents(now))
	require.Len(t, resp.Matches, 1)
	assert.EqualValues(t, 1, resp.Matches[0])
}

func TestChatTodayFilterExcludesFutureEvents(t *testing.T) {
	now := time.Now()
	resp := Chat("what netflix subscription renews today", now, sampleEvents(now))
	assert.Empty(t, resp.Matches)
}
