package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/joss/scanchat/internal/analysis"
	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/session"
	strutil "github.com/joss/scanchat/internal/strings"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
	width  int
}

// New creates a new renderer. Pretty output uses color and rules.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty, width: 80}
}

// WithWidth sets the wrap width for message bodies.
func (r *Renderer) WithWidth(width int) *Renderer {
	if width > 20 {
		r.width = width
	}
	return r
}

// Sessions formats grouped sessions, newest group first.
func (r *Renderer) Sessions(g session.Groups) string {
	if g.Len() == 0 {
		return "No sessions yet"
	}

	var sb strings.Builder
	groups := []struct {
		title    string
		sessions []*domain.ChatSession
	}{
		{"Today", g.Today},
		{"Yesterday", g.Yesterday},
		{"Earlier", g.Earlier},
	}

	for _, grp := range groups {
		if len(grp.sessions) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		if r.pretty {
			sb.WriteString(color.CyanString(grp.title) + "\n")
			sb.WriteString(strings.Repeat("─", 60) + "\n")
		} else {
			sb.WriteString(strings.ToUpper(grp.title) + ":\n")
		}
		for _, s := range grp.sessions {
			r.formatSession(&sb, s)
		}
	}
	return sb.String()
}

func (r *Renderer) formatSession(sb *strings.Builder, s *domain.ChatSession) {
	timeStr := s.LastUpdated.Local().Format("2006-01-02 15:04")
	title := strutil.Truncate(strutil.FirstLine(s.Title), 40)

	if r.pretty {
		fmt.Fprintf(sb, "  %s  %s %s\n",
			color.HiBlackString(s.ChatID), title,
			color.HiBlackString("(%d msgs, %s)", s.MessageCount, timeStr))
		return
	}
	fmt.Fprintf(sb, "  %s\t%s\t%d\t%s\n", s.ChatID, title, s.MessageCount, timeStr)
}

// Thread formats a whole session: header then messages in order.
func (r *Renderer) Thread(s *domain.ChatSession) string {
	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString(s.Title) + "\n")
	} else {
		sb.WriteString(s.Title + "\n")
	}
	meta := fmt.Sprintf("id=%s messages=%d updated=%s", s.ChatID, s.MessageCount, s.LastUpdated.Local().Format(time.RFC3339))
	if s.FileName != "" {
		meta += fmt.Sprintf(" file=%s (%s)", s.FileName, strutil.HumanSize(s.FileSize))
	}
	if r.pretty {
		meta = color.HiBlackString(meta)
	}
	sb.WriteString(meta + "\n")
	if r.pretty {
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	if len(s.Messages) == 0 {
		sb.WriteString("\n(no messages)\n")
		return sb.String()
	}
	for _, m := range s.Messages {
		sb.WriteString("\n")
		sb.WriteString(r.Message(m))
	}
	return sb.String()
}

// Message formats one chat bubble.
func (r *Renderer) Message(m domain.Message) string {
	var sb strings.Builder

	who := "bot"
	if m.IsUser {
		who = "you"
	}
	stamp := m.Timestamp.Local().Format("15:04")

	switch {
	case m.IsLoading:
		who = StatusIcon("loading") + " " + who
	case m.IsError:
		who = StatusIcon("error") + " " + who
	}

	if r.pretty {
		label := color.GreenString(who)
		if m.IsUser {
			label = color.BlueString(who)
		}
		if m.IsError {
			label = color.RedString(who)
		}
		fmt.Fprintf(&sb, "%s %s\n", label, color.HiBlackString(stamp))
	} else {
		fmt.Fprintf(&sb, "[%s] %s\n", stamp, who)
	}

	body := m.Text
	if m.IsLoading {
		body = "analyzing..."
	}
	if m.File != "" && m.IsUser {
		body = strings.TrimPrefix(body, m.File)
		body = strings.TrimPrefix(body, "\n")
		sb.WriteString(indent("📎 "+m.File) + "\n")
	}
	if body != "" {
		text := strutil.WordWrap(body, r.width-2)
		if r.pretty && m.IsError {
			text = color.RedString(text)
		}
		sb.WriteString(indent(text) + "\n")
	}

	if len(m.Attachment) > 0 {
		sb.WriteString(indent(r.Attachment(m.Attachment)) + "\n")
	}
	return sb.String()
}

// Attachment renders a raw analysis result: the summary view when the
// shape is known, else the payload pretty-printed.
func (r *Renderer) Attachment(raw []byte) string {
	if v, ok := analysis.Normalize(raw); ok {
		return r.Analysis(v)
	}
	return analysis.Pretty(raw)
}

// Analysis formats the summary of one scan.
func (r *Renderer) Analysis(v *analysis.View) string {
	var sb strings.Builder

	rate := v.VTDetectionRate
	if r.pretty {
		switch {
		case v.VTMaliciousCount > 0:
			rate = color.RedString(rate)
		case v.VTSuspiciousCount > 0:
			rate = color.YellowString(rate)
		default:
			rate = color.GreenString(rate)
		}
	}

	if v.FileName != nil {
		fmt.Fprintf(&sb, "File:       %s\n", *v.FileName)
	}
	fmt.Fprintf(&sb, "Detection:  %s (%d engines)\n", rate, v.VTTotalEngines)
	fmt.Fprintf(&sb, "Verdicts:   malicious=%d suspicious=%d undetected=%d harmless=%d\n",
		v.VTMaliciousCount, v.VTSuspiciousCount, v.VTUndetectedCount, v.VTHarmlessCount)
	if v.VTTimeoutCount+v.VTFailureCount+v.VTTypeUnsupportedCount > 0 {
		fmt.Fprintf(&sb, "Skipped:    timeout=%d failure=%d unsupported=%d\n",
			v.VTTimeoutCount, v.VTFailureCount, v.VTTypeUnsupportedCount)
	}
	for _, h := range []struct {
		name string
		val  *string
	}{{"MD5", v.MD5}, {"SHA1", v.SHA1}, {"SHA256", v.SHA256}} {
		if h.val != nil {
			fmt.Fprintf(&sb, "%-11s %s\n", h.name+":", *h.val)
		}
	}
	if v.VTMaliciousEnginesList != "" {
		fmt.Fprintf(&sb, "Malicious:  %s\n", v.VTMaliciousEnginesList)
	}
	if v.VTSuspiciousEnginesList != "" {
		fmt.Fprintf(&sb, "Suspicious: %s\n", v.VTSuspiciousEnginesList)
	}
	if v.LLMReport != "" {
		sb.WriteString("\n")
		sb.WriteString(strutil.WordWrap(v.LLMReport, r.width-2))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Variable formats a single looked-up view field.
func (r *Renderer) Variable(name string, value any) string {
	if value == nil {
		value = "null"
	}
	if r.pretty {
		return fmt.Sprintf("%s = %v", color.CyanString(name), value)
	}
	return fmt.Sprintf("%s=%v", name, value)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "\n")
}
