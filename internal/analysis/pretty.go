package analysis

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Pretty renders a payload as 2-space indented JSON. Payloads that do not
// parse are returned as trimmed text so they can still be shown.
func Pretty(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return strings.TrimSpace(string(raw))
	}
	// a JSON string attachment is shown unquoted
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return buf.String()
}
