package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/scanchat/internal/domain"
)

func at(chatID string, ts time.Time) *domain.ChatSession {
	return &domain.ChatSession{ChatID: chatID, CreatedAt: ts, LastUpdated: ts}
}

func TestGroupByRecency(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	sessions := []*domain.ChatSession{
		at("today", time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)),
		at("yesterday", time.Date(2024, 6, 14, 23, 59, 0, 0, time.UTC)),
		at("earlier", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	}

	g := GroupByRecency(sessions, now)

	require.Len(t, g.Today, 1)
	require.Len(t, g.Yesterday, 1)
	require.Len(t, g.Earlier, 1)
	assert.Equal(t, "today", g.Today[0].ChatID)
	assert.Equal(t, "yesterday", g.Yesterday[0].ChatID)
	assert.Equal(t, "earlier", g.Earlier[0].ChatID)
	assert.Equal(t, 3, g.Len())
}

func TestGroupByRecencyUsesCalendarDays(t *testing.T) {
	// 30 minutes ago but before midnight is yesterday
	now := time.Date(2024, 6, 15, 0, 10, 0, 0, time.UTC)
	g := GroupByRecency([]*domain.ChatSession{
		at("late", time.Date(2024, 6, 14, 23, 40, 0, 0, time.UTC)),
		// 47 hours ago, two dates back
		at("old", time.Date(2024, 6, 13, 1, 10, 0, 0, time.UTC)),
		at("fresh", time.Date(2024, 6, 15, 0, 0, 1, 0, time.UTC)),
	}, now)

	assert.Len(t, g.Today, 1)
	assert.Equal(t, "late", g.Yesterday[0].ChatID)
	assert.Equal(t, "old", g.Earlier[0].ChatID)
}

func TestGroupByRecencyUsesNowLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	now := time.Date(2024, 6, 15, 8, 0, 0, 0, seoul)

	// 2024-06-14 23:30 UTC is 2024-06-15 08:30 KST
	g := GroupByRecency([]*domain.ChatSession{
		at("s", time.Date(2024, 6, 14, 23, 30, 0, 0, time.UTC)),
	}, now)

	assert.Len(t, g.Today, 1)
}

func TestGroupByRecencyEmpty(t *testing.T) {
	g := GroupByRecency(nil, time.Now())
	assert.Zero(t, g.Len())
}
