// Package analysis turns raw scan responses into the canonical View used
// by the chat renderer.
//
// The backend has shipped several response layouts over time. Decode
// sniffs the layout once and everything downstream works on View.
package analysis

// View is the UI-ready projection of one raw analysis result.
// Nil pointer fields are absent (null in JSON).
type View struct {
	SessionID   *string `json:"sessionId"`
	FileName    *string `json:"fileName"`
	VTID        *string `json:"vtId"`
	LLMID       *string `json:"llmId"`
	ExtractedID *string `json:"extractedId"`

	MD5    *string `json:"md5"`
	SHA1   *string `json:"sha1"`
	SHA256 *string `json:"sha256"`

	VTMaliciousCount       int    `json:"vtMaliciousCount"`
	VTSuspiciousCount      int    `json:"vtSuspiciousCount"`
	VTUndetectedCount      int    `json:"vtUndetectedCount"`
	VTHarmlessCount        int    `json:"vtHarmlessCount"`
	VTTimeoutCount         int    `json:"vtTimeoutCount"`
	VTFailureCount         int    `json:"vtFailureCount"`
	VTTypeUnsupportedCount int    `json:"vtTypeUnsupportedCount"`
	VTTotalEngines         int    `json:"vtTotalEngines"`
	VTDetectionRate        string `json:"vtDetectionRate"`

	VTMaliciousEnginesList  string `json:"vtMaliciousEnginesList"`
	VTSuspiciousEnginesList string `json:"vtSuspiciousEnginesList"`

	LLMReport string `json:"llmReport"`
}

// fields lists every view-model field of v. Unset optional fields are
// present with a nil value.
func (v *View) fields() map[string]any {
	out := map[string]any{
		"vtMaliciousCount":        v.VTMaliciousCount,
		"vtSuspiciousCount":       v.VTSuspiciousCount,
		"vtUndetectedCount":       v.VTUndetectedCount,
		"vtHarmlessCount":         v.VTHarmlessCount,
		"vtTimeoutCount":          v.VTTimeoutCount,
		"vtFailureCount":          v.VTFailureCount,
		"vtTypeUnsupportedCount":  v.VTTypeUnsupportedCount,
		"vtTotalEngines":          v.VTTotalEngines,
		"vtDetectionRate":         v.VTDetectionRate,
		"vtMaliciousEnginesList":  v.VTMaliciousEnginesList,
		"vtSuspiciousEnginesList": v.VTSuspiciousEnginesList,
		"llmReport":               v.LLMReport,
	}
	optional := map[string]*string{
		"sessionId":   v.SessionID,
		"fileName":    v.FileName,
		"vtId":        v.VTID,
		"llmId":       v.LLMID,
		"extractedId": v.ExtractedID,
		"md5":         v.MD5,
		"sha1":        v.SHA1,
		"sha256":      v.SHA256,
	}
	for name, p := range optional {
		if p == nil {
			out[name] = nil
			continue
		}
		out[name] = *p
	}
	return out
}
