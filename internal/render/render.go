package render

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer prints indented report lines straight to an io.Writer.
// doctor and the backup commands use it; chat output goes through Renderer.
type Writer struct {
	out io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// Stdout returns a Writer on os.Stdout.
func Stdout() *Writer {
	return NewWriter(os.Stdout)
}

// Header writes an upper-cased title followed by a blank line.
func (w *Writer) Header(title string, args ...any) {
	if len(args) > 0 {
		title = fmt.Sprintf(title, args...)
	}
	fmt.Fprintf(w.out, "%s\n\n", strings.ToUpper(title))
}

// Section starts a titled block after a blank line.
func (w *Writer) Section(title string) {
	fmt.Fprintf(w.out, "\n%s:\n", strings.ToUpper(title))
}

func (w *Writer) Item(format string, args ...any) {
	fmt.Fprintf(w.out, "  "+format+"\n", args...)
}

func (w *Writer) SubItem(format string, args ...any) {
	fmt.Fprintf(w.out, "    "+format+"\n", args...)
}

// Nested writes a detail line hanging off the previous item.
func (w *Writer) Nested(format string, args ...any) {
	fmt.Fprintf(w.out, "    └─ "+format+"\n", args...)
}

// Status writes an item prefixed with the icon for status.
func (w *Writer) Status(status, format string, args ...any) {
	w.Item(StatusIcon(status)+" "+format, args...)
}

// Check writes an item prefixed with a tick or a cross.
func (w *Writer) Check(ok bool, format string, args ...any) {
	w.Item(BoolIcon(ok)+" "+format, args...)
}

// StatusIcon maps message and health states to an icon. Health check
// states (ok, degraded, healthy, unhealthy) share icons with their
// message counterparts.
func StatusIcon(status string) string {
	switch status {
	case "success", "ok", "healthy":
		return "✓"
	case "error", "unhealthy":
		return "✗"
	case "warning", "degraded":
		return "!"
	case "loading":
		return "…"
	default:
		return "•"
	}
}

func BoolIcon(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
