package session

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// chatIDLen is the length of locally generated chat ids.
const chatIDLen = 12

// NewChatID returns 12 lowercase alphanumerics taken from the random
// half of a ULID.
func NewChatID() string {
	id := ulid.Make().String()
	return strings.ToLower(id[len(id)-chatIDLen:])
}
