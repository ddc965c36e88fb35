package strings

import (
	"testing"
)

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"fits", "hello world", 80, "hello world"},
		{"breaks on space", "hello world test", 10, "hello\nworld test"},
		{"keeps newlines", "line1\nline2", 80, "line1\nline2"},
		{"empty", "", 80, ""},
		{"zero width", "test", 0, "test"},
		{"wide word alone", "superlongword short", 5, "superlongword\nshort"},
		{"wide word in the middle", "a superlongword b", 5, "a\nsuperlongword\nb"},
		{"hangul counts double", "악성 코드 분석", 9, "악성 코드\n분석"},
		{"color codes take no room", "\x1b[31mred\x1b[0m alert", 9, "\x1b[31mred\x1b[0m alert"},
		{"collapses runs of spaces when wrapping", "one   two three", 7, "one two\nthree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WordWrap(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("WordWrap(%q, %d) = %q, want %q", tt.input, tt.width, result, tt.expected)
			}
		})
	}
}

func TestWidth(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello", 5},
		{"\x1b[31mred\x1b[0m", 3},
		{"", 0},
		{"\x1b[31m\x1b[0m", 0},
		{"새 채팅", 7},
	}

	for _, tt := range tests {
		if got := Width(tt.input); got != tt.expected {
			t.Errorf("Width(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{
			name:     "no truncation needed",
			input:    "hello",
			n:        10,
			expected: "hello",
		},
		{
			name:     "truncation with ellipsis",
			input:    "hello world",
			n:        8,
			expected: "hello...",
		},
		{
			name:     "counts runes",
			input:    "악성 코드 분석 결과",
			n:        6,
			expected: "악성 ...",
		},
		{
			name:     "min length enforced",
			input:    "hello",
			n:        2,
			expected: "h...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Truncate(tt.input, tt.n)
			if result != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.n, result, tt.expected)
			}
		})
	}
}

func TestEllipsize(t *testing.T) {
	tests := []struct {
		input    string
		n        int
		expected string
	}{
		{"short", 30, "short"},
		{"exactly", 7, "exactly"},
		{"abcdefgh", 3, "abc..."},
		{"가나다라마", 2, "가나..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := Ellipsize(tt.input, tt.n); got != tt.expected {
			t.Errorf("Ellipsize(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("a.apk\nwhat is it"); got != "a.apk" {
		t.Errorf("FirstLine = %q", got)
	}
	if got := FirstLine("single"); got != "single" {
		t.Errorf("FirstLine = %q", got)
	}
}

func TestHumanSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for n, want := range tests {
		if got := HumanSize(n); got != want {
			t.Errorf("HumanSize(%d) = %q, want %q", n, got, want)
		}
	}
}
