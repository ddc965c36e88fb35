package session

import (
	"time"

	"github.com/joss/scanchat/internal/domain"
)

// Groups partitions sessions by calendar day relative to now.
type Groups struct {
	Today     []*domain.ChatSession
	Yesterday []*domain.ChatSession
	Earlier   []*domain.ChatSession
}

// Len returns the total number of grouped sessions.
func (g Groups) Len() int {
	return len(g.Today) + len(g.Yesterday) + len(g.Earlier)
}

// GroupByRecency compares calendar dates in now's location, not elapsed
// time: 23 hours ago on the previous date is yesterday.
func GroupByRecency(sessions []*domain.ChatSession, now time.Time) Groups {
	loc := now.Location()
	today := dayOf(now, loc)
	yesterday := today.AddDate(0, 0, -1)

	var g Groups
	for _, s := range sessions {
		day := dayOf(s.LastUpdated, loc)
		switch {
		case day.Equal(today):
			g.Today = append(g.Today, s)
		case day.Equal(yesterday):
			g.Yesterday = append(g.Yesterday, s)
		default:
			g.Earlier = append(g.Earlier, s)
		}
	}
	return g
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
