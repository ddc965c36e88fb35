package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Shape identifies which response layout a payload uses.
type Shape int

const (
	ShapeUnrecognized Shape = iota
	// ShapeSessionWrapped: {sessionId, analysisResult: {reportfromVT, reportfromLLM}}
	ShapeSessionWrapped
	// ShapeFlatLegacy: {reportfromVT?, reportfromLLM?} at the top level
	ShapeFlatLegacy
)

func (s Shape) String() string {
	switch s {
	case ShapeSessionWrapped:
		return "session-wrapped"
	case ShapeFlatLegacy:
		return "flat-legacy"
	default:
		return "unrecognized"
	}
}

// Result is the outcome of sniffing a raw response.
type Result struct {
	Shape Shape

	root     map[string]any
	envelope map[string]any // object that carries reportfromVT/reportfromLLM
}

// Decode parses raw JSON and classifies it. Invalid JSON is unrecognized.
func Decode(raw []byte) Result {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Result{}
	}
	return DecodeValue(v)
}

// DecodeValue classifies an already decoded JSON value.
func DecodeValue(v any) Result {
	root, ok := v.(map[string]any)
	if !ok {
		return Result{}
	}

	if _, ok := root["sessionId"]; ok {
		if inner, ok := asObject(root["analysisResult"]); ok {
			return Result{Shape: ShapeSessionWrapped, root: root, envelope: inner}
		}
	}

	_, hasVT := root["reportfromVT"]
	_, hasLLM := root["reportfromLLM"]
	if hasVT || hasLLM {
		return Result{Shape: ShapeFlatLegacy, root: root, envelope: root}
	}
	return Result{}
}

// Normalize maps a raw response (JSON bytes or a decoded value) to a View.
// It returns false for any shape it does not recognize.
func Normalize(raw any) (*View, bool) {
	var r Result
	switch v := raw.(type) {
	case json.RawMessage:
		r = Decode(v)
	case []byte:
		r = Decode(v)
	default:
		r = DecodeValue(v)
	}
	return r.View()
}

// View builds the canonical projection for a recognized result.
func (r Result) View() (*View, bool) {
	if r.Shape == ShapeUnrecognized {
		return nil, false
	}

	v := &View{
		SessionID: stringAt(r.root, "sessionId"),
		FileName:  firstString(r.envelope, r.root, "fileName"),
	}

	vt, _ := asObject(r.envelope["reportfromVT"])
	llm := r.envelope["reportfromLLM"]
	llmObj, _ := asObject(llm)

	v.VTID = resolveID(vt)
	v.LLMID = resolveID(llmObj)
	v.ExtractedID = resolveID(r.envelope)

	attrs := objectAt(vt, "data", "attributes")
	v.MD5 = hashAt(attrs, "md5", r.envelope, r.root, "id_MD5")
	v.SHA1 = hashAt(attrs, "sha1", r.envelope, r.root, "id_SHA1")
	v.SHA256 = hashAt(attrs, "sha256", r.envelope, r.root, "id_SHA256")

	stats, hasStats := firstObject(attrs, "lastAnalysisStats", "last_analysis_stats")
	results, _ := firstObject(attrs, "lastAnalysisResults", "last_analysis_results")

	if hasStats {
		v.VTMaliciousCount = toInt(stats["malicious"])
		v.VTSuspiciousCount = toInt(stats["suspicious"])
		v.VTUndetectedCount = toInt(stats["undetected"])
		v.VTHarmlessCount = toInt(stats["harmless"])
		v.VTTimeoutCount = toInt(stats["timeout"])
		v.VTFailureCount = toInt(stats["failure"])
		v.VTTypeUnsupportedCount = toInt(firstPresent(stats, "type-unsupported", "typeUnsupported", "type_unsupported"))
	}

	malicious, suspicious := partitionEngines(results)
	v.VTTotalEngines = len(results)
	v.VTMaliciousEnginesList = strings.Join(malicious, ", ")
	v.VTSuspiciousEnginesList = strings.Join(suspicious, ", ")

	denominator := 0
	if hasStats {
		denominator = v.VTTotalEngines
	}
	v.VTDetectionRate = fmt.Sprintf("%d/%d", v.VTMaliciousCount, denominator)

	v.LLMReport = llmText(llm)
	return v, true
}

// partitionEngines splits per-engine verdicts by exact category.
// Engines are visited in key order so the lists are stable.
func partitionEngines(results map[string]any) (malicious, suspicious []string) {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry, ok := results[key].(map[string]any)
		if !ok {
			continue
		}
		category, _ := entry["category"].(string)
		name := key
		if n, ok := entry["engine_name"].(string); ok && n != "" {
			name = n
		}
		switch category {
		case "malicious":
			malicious = append(malicious, name)
		case "suspicious":
			suspicious = append(suspicious, name)
		}
	}
	return malicious, suspicious
}

var idCandidates = [][]string{
	{"_id"},
	{"scanId"},
	{"reportfromVT", "_id"},
	{"reportfromVT", "scan_id"},
}

// resolveID returns the first present, non-null identifier in obj.
func resolveID(obj map[string]any) *string {
	if obj == nil {
		return nil
	}
	for _, path := range idCandidates {
		val, ok := lookup(obj, path...)
		if !ok || val == nil {
			continue
		}
		if s := scalarString(val); s != nil {
			return s
		}
	}
	return nil
}

func hashAt(attrs map[string]any, key string, envelope, root map[string]any, fallback string) *string {
	if s := stringAt(attrs, key); s != nil {
		return s
	}
	return firstString(envelope, root, fallback)
}

// llmText extracts the narrative from a string or a wrapped report object.
func llmText(v any) string {
	switch t := v.(type) {
	case string:
		if obj, ok := asObject(t); ok {
			return llmText(obj)
		}
		return t
	case map[string]any:
		for _, key := range []string{"report", "summary", "content", "text", "response"} {
			if s, ok := t[key].(string); ok {
				return s
			}
		}
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return ""
		}
		return string(data)
	}
	return ""
}

// asObject accepts a JSON object or a string holding one.
// Some backend versions stringify the nested reports.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		trimmed := strings.TrimSpace(t)
		if !strings.HasPrefix(trimmed, "{") {
			return nil, false
		}
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, false
		}
		return obj, true
	}
	return nil, false
}

func lookup(obj map[string]any, path ...string) (any, bool) {
	var cur any = obj
	for _, key := range path {
		m, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func objectAt(obj map[string]any, path ...string) map[string]any {
	if obj == nil {
		return nil
	}
	v, ok := lookup(obj, path...)
	if !ok {
		return nil
	}
	m, _ := asObject(v)
	return m
}

func firstObject(obj map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := asObject(obj[k]); ok {
			return m, true
		}
	}
	return nil, false
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}

func firstString(a, b map[string]any, key string) *string {
	if s := stringAt(a, key); s != nil {
		return s
	}
	return stringAt(b, key)
}

func stringAt(obj map[string]any, key string) *string {
	if obj == nil {
		return nil
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	return scalarString(v)
}

// scalarString renders strings and numbers; Mongo-style {"$oid": "..."} ids
// are unwrapped.
func scalarString(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	case map[string]any:
		oid, ok := t["$oid"].(string)
		if !ok {
			return nil
		}
		s = oid
	default:
		return nil
	}
	return &s
}

func toInt(v any) int {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}
