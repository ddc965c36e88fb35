package session

import (
	"strings"

	"github.com/joss/scanchat/internal/domain"
	strutil "github.com/joss/scanchat/internal/strings"
)

const (
	// DefaultTitle is used when nothing better is known.
	DefaultTitle = "새 채팅"

	titleRunes = 30
)

// FileTitle is the title of a session opened by a file upload.
func FileTitle(name string) string {
	return name + " 파일의 악성 코드 분석"
}

// newTitle picks the title of a new session: explicit hint, then the
// file, then the first user message.
func newTitle(opts UpsertOptions, msgs []domain.Message) string {
	if opts.TitleHint != "" {
		return opts.TitleHint
	}
	if opts.File != nil && opts.File.Name != "" {
		return FileTitle(opts.File.Name)
	}
	for _, m := range msgs {
		if m.IsUser && m.File != "" {
			return FileTitle(m.File)
		}
	}
	for _, m := range msgs {
		if !m.IsUser {
			continue
		}
		if text := strings.TrimSpace(m.Text); text != "" {
			return strutil.Ellipsize(text, titleRunes)
		}
	}
	return DefaultTitle
}
