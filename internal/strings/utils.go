// Package strings provides rune-safe string helpers for terminal output.
package strings

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Truncate shortens a string to n runes with ellipsis.
// If n < 4, uses n = 4 to ensure room for "...".
func Truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// Ellipsize keeps the first n runes and appends "..." when s is longer.
// Unlike Truncate the result may be n+3 runes long.
func Ellipsize(s string, n int) string {
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// FirstLine returns s up to the first newline.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// HumanSize formats a byte count as B, KB or MB.
func HumanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// WordWrap breaks each line of s on spaces so it fits in width terminal
// cells. Existing newlines are kept and a word wider than width sits on a
// line of its own.
func WordWrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if Width(line) > width {
			lines[i] = wrapLine(line, width)
		}
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, width int) string {
	var (
		out []string
		cur strings.Builder
		w   int
	)
	for _, word := range strings.Fields(line) {
		ww := Width(word)
		if w > 0 && w+1+ww > width {
			out = append(out, cur.String())
			cur.Reset()
			w = 0
		}
		if w > 0 {
			cur.WriteByte(' ')
			w++
		}
		cur.WriteString(word)
		w += ww
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return strings.Join(out, "\n")
}

// Width is the number of terminal cells s occupies. ANSI escape sequences
// take none; wide runes such as Hangul take two.
func Width(s string) int {
	w := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		default:
			w += runewidth.RuneWidth(r)
		}
	}
	return w
}
