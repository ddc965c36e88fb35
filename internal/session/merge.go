package session

import (
	"github.com/joss/scanchat/internal/domain"
)

// Merge reconciles the local cache with a remote listing.
//
// listed is the remote listing where each entry borrows messages, file
// and analysis result from its local copy when the summary lacks them.
// cache is what the local store should hold afterwards: listed plus the
// local-only sessions, newest first and capped.
func Merge(local, remote []*domain.ChatSession) (listed, cache []*domain.ChatSession) {
	byID := make(map[string]*domain.ChatSession, len(local))
	for _, s := range local {
		byID[s.ChatID] = s
	}

	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		if r == nil || r.ChatID == "" || seen[r.ChatID] {
			continue
		}
		seen[r.ChatID] = true

		merged := *r
		if l, ok := byID[r.ChatID]; ok {
			if len(merged.Messages) == 0 {
				merged.Messages = l.Messages
			}
			if merged.FileName == "" {
				merged.FileName = l.FileName
				merged.FileSize = l.FileSize
			}
			if merged.AnalysisResult == nil {
				merged.AnalysisResult = l.AnalysisResult
			}
			if merged.Title == "" {
				merged.Title = l.Title
			}
			if merged.CreatedAt.IsZero() {
				merged.CreatedAt = l.CreatedAt
			}
			if l.LastUpdated.After(merged.LastUpdated) {
				merged.LastUpdated = l.LastUpdated
			}
		}
		if merged.Title == "" {
			merged.Title = DefaultTitle
		}
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = merged.LastUpdated
		}
		if len(merged.Messages) > 0 {
			merged.MessageCount = len(merged.Messages)
		}
		listed = append(listed, &merged)
	}

	cache = make([]*domain.ChatSession, 0, len(listed)+len(local))
	cache = append(cache, listed...)
	for _, l := range local {
		if !seen[l.ChatID] {
			cache = append(cache, l)
		}
	}
	SortByRecency(cache)
	if len(cache) > MaxSessions {
		cache = cache[:MaxSessions]
	}
	return listed, cache
}
