package analysis

import (
	"encoding/json"
	"sort"
)

// allowList is the fixed set of view fields a user may ask for by name.
var allowList = map[string]struct{}{
	"sessionId":               {},
	"fileName":                {},
	"vtId":                    {},
	"llmId":                   {},
	"extractedId":             {},
	"md5":                     {},
	"sha1":                    {},
	"sha256":                  {},
	"vtMaliciousCount":        {},
	"vtSuspiciousCount":       {},
	"vtUndetectedCount":       {},
	"vtHarmlessCount":         {},
	"vtTimeoutCount":          {},
	"vtFailureCount":          {},
	"vtTypeUnsupportedCount":  {},
	"vtTotalEngines":          {},
	"vtDetectionRate":         {},
	"vtMaliciousEnginesList":  {},
	"vtSuspiciousEnginesList": {},
	"llmReport":               {},
}

// VariableNames returns the allow-list in sorted order.
func VariableNames() []string {
	names := make([]string, 0, len(allowList))
	for name := range allowList {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckVariableExists reports whether name is allow-listed and present on v.
func CheckVariableExists(name string, v *View) bool {
	if v == nil {
		return false
	}
	if _, ok := allowList[name]; !ok {
		return false
	}
	_, ok := v.fields()[name]
	return ok
}

// GetVariableValue returns the named field of v. Objects and arrays come
// back as 2-space indented JSON; scalars are returned as-is.
func GetVariableValue(name string, v *View) (any, bool) {
	if !CheckVariableExists(name, v) {
		return nil, false
	}
	return formatValue(v.fields()[name]), true
}

func formatValue(val any) any {
	switch val.(type) {
	case map[string]any, []any, []string, map[string]string, map[string]int:
		data, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			return val
		}
		return string(data)
	}
	return val
}
