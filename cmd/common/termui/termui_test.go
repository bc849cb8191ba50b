package termui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Rain", 10, "Rain"},
		{"Thunderstorm", 8, "Thunder…"},
		{"Thunder", 1, "…"},
		{"Thunder", 0, ""},
		{"雷雨の音", 5, "雷雨…"},
	}

	for _, tt := range tests {
		got := Truncate(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if lipgloss.Width(got) > tt.width {
			t.Errorf("Truncate(%q, %d) is %d cells wide", tt.in, tt.width, lipgloss.Width(got))
		}
	}
}

func TestPad(t *testing.T) {
	if got := Pad("Rain", 6); got != "Rain  " {
		t.Errorf("Pad() = %q", got)
	}
	if got := Pad("雷雨", 6); lipgloss.Width(got) != 6 {
		t.Errorf("Pad() of wide text is %d cells", lipgloss.Width(got))
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "░░░░░░░░░░"},
		{0.3, "███░░░░░░░"},
		{0.5, "█████░░░░░"},
		{1, "██████████"},
		{1.5, "██████████"},
		{-1, "░░░░░░░░░░"},
	}
	for _, tt := range tests {
		if got := Bar(tt.v, 10); got != tt.want {
			t.Errorf("Bar(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
